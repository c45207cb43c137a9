package model

import "time"

// RotationState is a snapshot of the rotation engine's externally visible
// state. It is produced by the state holder and consumed read-only by the
// relay server and the CLI.
//
// Invariants: when Active is false no background timer is pending; when
// EndTime is set the scheduler self-terminates at or after it without a
// manual stop.
type RotationState struct {
	// Active reports whether the rotation scheduler loop is running.
	Active bool `json:"active"`

	// IntervalSeconds is the sleep between successful rotations.
	IntervalSeconds uint `json:"interval_seconds"`

	// EndTime is the absolute time at which the scheduler self-terminates.
	// Nil means unbounded.
	EndTime *time.Time `json:"end_time,omitempty"`

	// CurrentProxy is the egress point most recently applied, or nil when
	// none is applied. It is replaced atomically on each successful apply
	// and persists across restarts via the store.
	CurrentProxy *ProxyRecord `json:"current_proxy,omitempty"`
}
