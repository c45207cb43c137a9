package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file name searched for in the
// XDG config directory when no explicit path is given.
const DefaultConfigFile = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not
// exist. Callers decide whether that is fatal: an explicitly passed path
// that is missing is an error, the default path is not.
var ErrConfigNotFound = errors.New("configuration file not found")

// Load reads a YAML config file over the given base configuration.
// Fields absent from the file keep their base values.
func Load(base *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return ErrConfigNotFound
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, base); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// DefaultPath returns the default config file location under the XDG
// config directory.
func DefaultPath() string {
	return filepath.Join(XDGConfigDir(), DefaultConfigFile)
}

// Save writes the configuration as YAML to path, creating parent
// directories as needed. Used by `ipalchemist init` style bootstrapping
// and after configuration changes made through the CLI.
func Save(c *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
