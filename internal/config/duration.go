package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration with YAML support. It accepts either a Go
// duration string ("90s", "5m") or a bare integer, which is interpreted
// as seconds to match the original configuration format.
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

// Seconds returns the value in whole seconds.
func (d Duration) Seconds() uint {
	s := time.Duration(d) / time.Second
	if s < 0 {
		return 0
	}
	return uint(s)
}

// String returns the Go duration string form.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalYAML encodes the duration as a string ("5m0s").
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML decodes a duration string or an integer number of seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var asInt int64
	if err := node.Decode(&asInt); err == nil {
		*d = Duration(time.Duration(asInt) * time.Second)
		return nil
	}

	var asString string
	if err := node.Decode(&asString); err != nil {
		return fmt.Errorf("duration must be a string or integer seconds: %w", err)
	}
	parsed, err := time.ParseDuration(asString)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", asString, err)
	}
	*d = Duration(parsed)
	return nil
}
