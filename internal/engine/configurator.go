package engine

import (
	"fmt"
	"os"
	"path/filepath"
)

// EgressConfigurator mutates one external egress surface. Implementations
// must tolerate Clear being called when nothing was applied.
type EgressConfigurator interface {
	// Name identifies the surface for logging.
	Name() string
	// Apply points the surface at the given proxy URL.
	Apply(proxyURL string) error
	// Clear removes any previously applied configuration.
	Clear() error
}

// proxyEnvVars are the process-environment variables most tools consult.
// Both spellings are set because consumers disagree on the casing.
var proxyEnvVars = []string{"HTTP_PROXY", "HTTPS_PROXY", "http_proxy", "https_proxy"}

// EnvConfigurator applies the egress address to the process environment.
// Child processes spawned after Apply inherit the proxy settings.
type EnvConfigurator struct{}

// Name implements EgressConfigurator.
func (EnvConfigurator) Name() string { return "environment" }

// Apply implements EgressConfigurator.
func (EnvConfigurator) Apply(proxyURL string) error {
	for _, key := range proxyEnvVars {
		if err := os.Setenv(key, proxyURL); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

// Clear implements EgressConfigurator.
func (EnvConfigurator) Clear() error {
	for _, key := range proxyEnvVars {
		if err := os.Unsetenv(key); err != nil {
			return fmt.Errorf("unset %s: %w", key, err)
		}
	}
	return nil
}

// DirectiveFileConfigurator writes a one-line proxy directive file that
// external CLI tools read on startup, in the style of a curlrc.
type DirectiveFileConfigurator struct {
	// Path is the directive file location.
	Path string
}

// Name implements EgressConfigurator.
func (d DirectiveFileConfigurator) Name() string { return "directive file" }

// Apply implements EgressConfigurator.
func (d DirectiveFileConfigurator) Apply(proxyURL string) error {
	if err := os.MkdirAll(filepath.Dir(d.Path), 0750); err != nil {
		return fmt.Errorf("create directive dir: %w", err)
	}
	line := fmt.Sprintf("proxy = %q\n", proxyURL)
	if err := os.WriteFile(d.Path, []byte(line), 0600); err != nil {
		return fmt.Errorf("write directive file: %w", err)
	}
	return nil
}

// Clear implements EgressConfigurator. A missing file is not an error.
func (d DirectiveFileConfigurator) Clear() error {
	if err := os.Remove(d.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove directive file: %w", err)
	}
	return nil
}
