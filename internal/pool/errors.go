package pool

import "errors"

// Fetch errors. Both abort only the current fetch attempt and leave the
// prior pool intact; callers distinguish them with errors.Is.
var (
	// ErrFetch is returned for network, timeout, or HTTP-status failures
	// while fetching from a source.
	ErrFetch = errors.New("source fetch failed")

	// ErrSchema is returned when a source answered but the payload does
	// not have the expected shape. This is deliberately distinct from
	// ErrFetch: a schema change in the upstream API needs operator
	// attention, a network blip does not.
	ErrSchema = errors.New("source returned unexpected data shape")
)
