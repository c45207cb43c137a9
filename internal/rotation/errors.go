package rotation

import "errors"

// ErrAlreadyRunning is returned when Start is called on a scheduler
// whose loop is still active.
var ErrAlreadyRunning = errors.New("rotation: scheduler already running")
