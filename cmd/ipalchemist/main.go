// Package main provides the entry point for the ipalchemist CLI.
//
// ipalchemist manages rotating egress points: it fetches proxy pools,
// health-checks candidates, applies the working one as the system
// egress, and rotates it on a timer. Tor can serve as an egress source
// with automatic circuit renewal.
//
// Usage:
//
//	ipalchemist fetch
//	ipalchemist rotate
//	ipalchemist run --interval 5m
//
// See --help for all available options.
package main

// main is the entry point for ipalchemist.
func main() {
	Execute()
}
