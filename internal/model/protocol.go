package model

import "fmt"

// Protocol identifies the proxy protocol a record speaks.
//
// Design decision: We use a string type rather than iota constants because
// protocols round-trip through JSON (pool cache, favorites, history) and
// through proxy URLs, where the string form is the natural representation.
type Protocol string

// Supported proxy protocols.
const (
	ProtocolHTTP   Protocol = "http"
	ProtocolHTTPS  Protocol = "https"
	ProtocolSOCKS4 Protocol = "socks4"
	ProtocolSOCKS5 Protocol = "socks5"
)

// allProtocols lists every valid protocol, in the default preference order
// used when configuration does not override it.
var allProtocols = []Protocol{ProtocolHTTP, ProtocolSOCKS5, ProtocolSOCKS4, ProtocolHTTPS}

// DefaultProtocolPreference returns the default ordered protocol preference.
// The result is a fresh slice; callers may reorder it freely.
func DefaultProtocolPreference() []Protocol {
	out := make([]Protocol, len(allProtocols))
	copy(out, allProtocols)
	return out
}

// Valid reports whether p is one of the supported protocols.
func (p Protocol) Valid() bool {
	switch p {
	case ProtocolHTTP, ProtocolHTTPS, ProtocolSOCKS4, ProtocolSOCKS5:
		return true
	}
	return false
}

// String returns the wire form of the protocol (e.g. "socks5").
func (p Protocol) String() string {
	return string(p)
}

// ParseProtocol converts a string into a Protocol.
// It returns an error for anything outside the supported set so that
// malformed source data is rejected at the boundary rather than deep
// inside the selector or health checker.
func ParseProtocol(s string) (Protocol, error) {
	p := Protocol(s)
	if !p.Valid() {
		return "", fmt.Errorf("unsupported proxy protocol %q", s)
	}
	return p, nil
}
