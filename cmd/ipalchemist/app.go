package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aryanox/ipalchemist/internal/config"
	"github.com/aryanox/ipalchemist/internal/engine"
	"github.com/aryanox/ipalchemist/internal/eventlog"
	"github.com/aryanox/ipalchemist/internal/health"
	ilog "github.com/aryanox/ipalchemist/internal/log"
	"github.com/aryanox/ipalchemist/internal/model"
	"github.com/aryanox/ipalchemist/internal/pool"
	"github.com/aryanox/ipalchemist/internal/selector"
	"github.com/aryanox/ipalchemist/internal/state"
	"github.com/aryanox/ipalchemist/internal/store"
)

// app bundles the wired core components shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.FileStore
	tracker  *state.Tracker
	manager  *pool.Manager
	checker  *health.Checker
	selector *selector.Selector
	engine   *engine.Engine
}

// loadConfig builds the effective configuration from defaults, the
// configuration file, and global flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	explicit := path != ""
	if !explicit {
		path = config.DefaultPath()
	}

	if err := config.Load(cfg, path); err != nil {
		// A missing default config just means defaults apply. A path
		// the user asked for must exist.
		if !errors.Is(err, config.ErrConfigNotFound) || explicit {
			return nil, fmt.Errorf("load configuration: %w", err)
		}
	}

	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, err
	}
	cfg.Verbose = verbose

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// newApp wires the core components for cfg and restores persisted
// state from the data directory.
func newApp(cfg *config.Config) (*app, error) {
	logger := ilog.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	fs, err := store.NewFileStore(config.XDGDataDir())
	if err != nil {
		return nil, fmt.Errorf("open data directory: %w", err)
	}

	tracker := state.NewTracker(fs, state.WithLogger(logger))
	if err := tracker.Restore(); err != nil {
		return nil, fmt.Errorf("restore state: %w", err)
	}

	manager, err := pool.NewManager(cfg, fs, pool.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create pool manager: %w", err)
	}

	checker := health.NewChecker(cfg.IPCheckURL, health.WithLogger(logger))
	sel := selector.NewSelector(manager, checker,
		selector.WithLogger(logger),
		selector.WithMaxAttempts(cfg.MaxAttempts),
		selector.WithCheckTimeout(config.DefaultSelectorCheckTimeout),
	)

	eng, err := engine.NewEngine(cfg, tracker, fs, engine.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create apply engine: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    fs,
		tracker:  tracker,
		manager:  manager,
		checker:  checker,
		selector: sel,
		engine:   eng,
	}, nil
}

// openEvents opens the rotation event log in the data directory.
func (a *app) openEvents() (*eventlog.DB, error) {
	return eventlog.Open(config.XDGDataDir(), eventlog.DefaultOptions())
}

// sourceFromFlags resolves the pool source named by fetch-style flags.
func sourceFromFlags(cmd *cobra.Command, cfg *config.Config) (model.Source, error) {
	name, err := cmd.Flags().GetString("source")
	if err != nil {
		return model.Source{}, err
	}

	switch name {
	case "api":
		url, err := cmd.Flags().GetString("url")
		if err != nil {
			return model.Source{}, err
		}
		if url == "" {
			url = cfg.APIURL
		}
		return model.NewOnlineAPISource(url), nil
	case "tor":
		return model.NewTorNetworkSource(), nil
	case "file":
		path, err := cmd.Flags().GetString("file")
		if err != nil {
			return model.Source{}, err
		}
		if path == "" {
			return model.Source{}, errors.New("--file is required with --source file")
		}
		return model.NewCustomFileSource(path), nil
	default:
		return model.Source{}, fmt.Errorf("unknown source %q (want api, tor, or file)", name)
	}
}
