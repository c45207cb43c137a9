// Package health probes candidate egress points for liveness.
//
// A check routes one request through the candidate to an IP-echo
// endpoint and measures the wall-clock round trip. Failure is a routine
// outcome, reported in the result rather than as an error: on any
// transport failure, non-2xx response, or timeout the candidate is
// simply not working.
package health
