package model

import (
	"encoding/json"
	"time"
)

// HistoryEntry records one applied proxy.
type HistoryEntry struct {
	Host       string    `json:"host"`
	Port       uint16    `json:"port"`
	Protocol   Protocol  `json:"protocol"`
	Country    string    `json:"country,omitempty"`
	ObservedIP string    `json:"observed_ip,omitempty"`
	LatencyMs  int       `json:"latency_ms"`
	AppliedAt  time.Time `json:"applied_at"`
}

// History is the bounded, most-recent-first sequence of applied proxies.
// When the cap is exceeded the oldest entries are silently dropped.
type History struct {
	max     int
	entries []HistoryEntry
}

// NewHistory returns an empty history holding at most max entries.
// A non-positive max is treated as 1 so that the most recent apply is
// always retained.
func NewHistory(max int) *History {
	if max <= 0 {
		max = 1
	}
	return &History{max: max}
}

// Push prepends an entry for the applied record. The most recent apply is
// always at index 0; anything beyond the cap falls off the end.
func (h *History) Push(r ProxyRecord, appliedAt time.Time) {
	entry := HistoryEntry{
		Host:       r.Host,
		Port:       r.Port,
		Protocol:   r.Protocol,
		Country:    r.Country,
		ObservedIP: r.ObservedIP,
		LatencyMs:  r.LatencyMs,
		AppliedAt:  appliedAt,
	}
	h.entries = append([]HistoryEntry{entry}, h.entries...)
	if len(h.entries) > h.max {
		h.entries = h.entries[:h.max]
	}
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns a copy of the retained entries, most recent first.
func (h *History) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// MarshalJSON encodes the entries, most recent first.
func (h *History) MarshalJSON() ([]byte, error) {
	if h.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h.entries)
}

// UnmarshalJSON decodes stored entries, re-applying the cap.
func (h *History) UnmarshalJSON(data []byte) error {
	var entries []HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	if h.max <= 0 {
		h.max = 1
	}
	if len(entries) > h.max {
		entries = entries[:h.max]
	}
	h.entries = entries
	return nil
}

// SetMax adjusts the cap, trimming retained entries when it shrinks.
func (h *History) SetMax(max int) {
	if max <= 0 {
		max = 1
	}
	h.max = max
	if len(h.entries) > h.max {
		h.entries = h.entries[:h.max]
	}
}
