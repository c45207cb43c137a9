package report

import (
	"time"

	"github.com/aryanox/ipalchemist/internal/model"
)

// Snapshot is the exportable view of the rotation state.
type Snapshot struct {
	// GeneratedAt is when the snapshot was taken.
	GeneratedAt time.Time `json:"generated_at"`

	// Current is the applied egress record, nil when none is applied.
	Current *model.ProxyRecord `json:"current_proxy,omitempty"`

	// RotationActive reports whether the scheduler loop is running.
	RotationActive bool `json:"rotation_active"`

	// IntervalSeconds is the active rotation interval, zero when idle.
	IntervalSeconds uint `json:"interval_seconds,omitempty"`

	// Pool is the current candidate pool.
	Pool []model.ProxyRecord `json:"pool"`

	// Favorites are the pinned endpoints.
	Favorites []model.Favorite `json:"favorites"`

	// History lists applied proxies, most recent first.
	History []model.HistoryEntry `json:"history"`
}

// Writer outputs a snapshot to some destination.
//
// Design decision: the interface writes snapshots, not raw bytes, so
// formats that need structure (tables, charts) get the typed data
// instead of re-parsing text.
type Writer interface {
	// Write outputs the snapshot. Returns the number of bytes written
	// and any error encountered.
	Write(snap *Snapshot) (int, error)
}

// MultiWriter writes a snapshot to several Writers, such as terminal
// plus file. It stops on the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer fanning out to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the snapshot to every configured Writer and returns
// the total bytes written.
func (m *MultiWriter) Write(snap *Snapshot) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(snap)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
