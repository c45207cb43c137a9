package model

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// ProxyRecord is a normalized descriptor of one candidate egress point.
//
// Records are created fresh on every pool fetch and never mutated in place.
// A health check produces a new record via WithHealth rather than updating
// the original, so stale latency data never survives a check silently.
type ProxyRecord struct {
	// Host is the proxy's address, an IP or hostname.
	Host string `json:"host"`

	// Port is the proxy's TCP port.
	Port uint16 `json:"port"`

	// Protocol is the protocol bound to this record. When a source
	// advertises several protocols, the pool manager binds the first
	// one matching the configured preference order.
	Protocol Protocol `json:"protocol"`

	// Country is the ISO country code reported by the source, if any.
	Country string `json:"country,omitempty"`

	// LatencyMs is the last measured round-trip latency in milliseconds.
	// Negative means unknown; zero is a legitimate (sub-millisecond)
	// measurement.
	LatencyMs int `json:"latency_ms"`

	// LastChecked is when the record's liveness was last verified.
	// The zero time means never.
	LastChecked time.Time `json:"last_checked,omitzero"`

	// IsFavorite is re-derived on each fetch by membership test against
	// the favorites set. It is a view field, not part of identity.
	IsFavorite bool `json:"is_favorite"`

	// ObservedIP is the externally visible IP reported by the IP-echo
	// endpoint during the last successful health check.
	ObservedIP string `json:"observed_ip,omitempty"`
}

// Key returns the record's identity, the (host, port) pair.
// Two records with the same key are the same egress point regardless of
// protocol, latency, or favorite status.
func (r ProxyRecord) Key() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(int(r.Port)))
}

// Addr returns "host:port", the dialable address of the proxy.
func (r ProxyRecord) Addr() string {
	return r.Key()
}

// URL returns the proxy URL form, e.g. "socks5://10.0.0.1:1080".
func (r ProxyRecord) URL() string {
	return fmt.Sprintf("%s://%s", r.Protocol, r.Addr())
}

// Validate checks the record invariants: a non-empty host, a non-zero
// port, and a supported protocol.
func (r ProxyRecord) Validate() error {
	if r.Host == "" {
		return fmt.Errorf("proxy record has empty host")
	}
	if r.Port == 0 {
		return fmt.Errorf("proxy record %q has zero port", r.Host)
	}
	if !r.Protocol.Valid() {
		return fmt.Errorf("proxy record %s has unsupported protocol %q", r.Addr(), r.Protocol)
	}
	return nil
}

// WithHealth returns a copy of r merged with the outcome of a health
// check. The original record is left untouched.
func (r ProxyRecord) WithHealth(observedIP string, latencyMs int, checkedAt time.Time) ProxyRecord {
	out := r
	out.ObservedIP = observedIP
	out.LatencyMs = latencyMs
	out.LastChecked = checkedAt
	return out
}

// SameEndpoint reports whether two records describe the same egress point
// in all core selection fields: host, port, and protocol.
func (r ProxyRecord) SameEndpoint(other ProxyRecord) bool {
	return r.Host == other.Host && r.Port == other.Port && r.Protocol == other.Protocol
}

// Pool is the working, filtered set of candidate egress points drawn from
// one active source. It is rebuilt wholesale on each fetch, deduplicated
// by identity key, never incrementally merged.
type Pool []ProxyRecord

// Dedupe returns a pool with duplicate identity keys removed, keeping the
// first occurrence of each. Source order is otherwise preserved.
func (p Pool) Dedupe() Pool {
	seen := make(map[string]struct{}, len(p))
	out := make(Pool, 0, len(p))
	for _, r := range p {
		k := r.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// MarkFavorites returns a pool with each record's IsFavorite flag
// re-derived from the given favorites set.
func (p Pool) MarkFavorites(favorites *FavoritesSet) Pool {
	out := make(Pool, len(p))
	for i, r := range p {
		r.IsFavorite = favorites != nil && favorites.Contains(r.Host)
		out[i] = r
	}
	return out
}
