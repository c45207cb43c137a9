package tor

import "errors"

// Tor lifecycle and control errors.
//
// Design decision: each failure mode gets its own sentinel so callers
// can tell a daemon that never came up (fatal for Tor integration)
// apart from a rejected control command (retried on the next renewal).
var (
	// ErrStart is returned when the Tor daemon fails to launch or dies
	// before the startup grace period elapses.
	ErrStart = errors.New("tor daemon failed to start")

	// ErrAuth is returned when the control port rejects authentication.
	// No further commands are sent on the connection.
	ErrAuth = errors.New("tor control authentication rejected")

	// ErrSignal is returned when the control port accepts authentication
	// but rejects the NEWNYM signal.
	ErrSignal = errors.New("tor circuit renewal rejected")

	// ErrNotRunning is returned by operations that need a live daemon.
	ErrNotRunning = errors.New("tor daemon is not running")
)
