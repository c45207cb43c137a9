package engine

import "fmt"

// ApplyError reports a failed apply. It covers configuration mutation
// and persistence failures; both leave the previous egress state in
// place and are safe to retry.
type ApplyError struct {
	// Stage names the step that failed, such as "configure" or
	// "persist history".
	Stage string
	// Err is the underlying failure.
	Err error
}

// Error returns the error message.
func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply egress: %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *ApplyError) Unwrap() error {
	return e.Err
}
