package config

import "errors"

// Validation errors. Each names the single field it rejects so the CLI
// can report the problem without unwrapping.
var (
	// ErrEmptyAPIURL is returned when no proxy-list API URL is configured.
	ErrEmptyAPIURL = errors.New("api_url must not be empty")

	// ErrEmptyIPCheckURL is returned when no IP-echo endpoint is configured.
	ErrEmptyIPCheckURL = errors.New("ip_check_url must not be empty")

	// ErrInvalidMaxLatency is returned for a non-positive latency ceiling.
	ErrInvalidMaxLatency = errors.New("max_latency must be positive")

	// ErrEmptyProtocolPreference is returned when the ordered protocol
	// preference has no entries; with nothing to bind, every fetched
	// record would be dropped.
	ErrEmptyProtocolPreference = errors.New("protocol_preference must list at least one protocol")

	// ErrInvalidProtocol is returned when the preference list contains a
	// protocol outside the supported set.
	ErrInvalidProtocol = errors.New("protocol_preference contains an unsupported protocol")

	// ErrInvalidMaxHistory is returned for a non-positive history cap.
	ErrInvalidMaxHistory = errors.New("max_history must be positive")

	// ErrInvalidRotationInterval is returned for a non-positive interval.
	ErrInvalidRotationInterval = errors.New("rotation_interval must be positive")

	// ErrInvalidMaxAttempts is returned for a non-positive attempt bound.
	ErrInvalidMaxAttempts = errors.New("max_attempts must be positive")

	// ErrInvalidFetchTimeout is returned for a non-positive fetch timeout.
	ErrInvalidFetchTimeout = errors.New("fetch_timeout must be positive")
)
