// Package tor manages a Tor daemon as a rotating egress point.
//
// The controller launches the system tor binary when one is installed
// and falls back to an embedded daemon (via tornago) when it is not.
// Circuit renewal goes straight over the control port with the
// AUTHENTICATE and SIGNAL NEWNYM commands, and an independent rotation
// loop requests a fresh exit on a timer, probing the observed exit IP
// through the SOCKS listener after each renewal.
package tor
