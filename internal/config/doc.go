// Package config defines the explicit configuration consumed by the
// rotation engine, with documented defaults, YAML file load/save, and
// validation.
//
// Configuration is a plain struct passed into each component at
// construction. There are no package-level mutable settings; components
// never reach back into this package at runtime.
package config
