package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/aryanox/ipalchemist/internal/config"
	"github.com/aryanox/ipalchemist/internal/model"
	"github.com/aryanox/ipalchemist/internal/state"
	"github.com/aryanox/ipalchemist/internal/store"
)

// Engine applies proxy records as the current egress point.
//
// Design decision: the engine never talks to the network. It only
// resolves the advertised address, drives the configurators, and
// persists state, so a failed apply can always be retried without
// cleanup.
type Engine struct {
	mu             sync.Mutex
	singleHostMode bool
	relayAddr      string
	configurators  []EgressConfigurator
	tracker        *state.Tracker
	store          store.Store
	history        *model.History
	logger         *slog.Logger
	now            func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfigurators replaces the default configurator set. Used in
// tests to avoid touching the real process environment.
func WithConfigurators(cs ...EgressConfigurator) Option {
	return func(e *Engine) {
		e.configurators = cs
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an Engine and restores any persisted history.
func NewEngine(cfg *config.Config, tracker *state.Tracker, st store.Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		singleHostMode: cfg.SingleHostMode,
		relayAddr:      net.JoinHostPort(cfg.RelayHost, strconv.Itoa(int(cfg.RelayPort))),
		configurators:  []EgressConfigurator{EnvConfigurator{}},
		tracker:        tracker,
		store:          st,
		history:        model.NewHistory(cfg.MaxHistory),
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:            time.Now,
	}
	// Every apply writes the directive file; an empty config value
	// falls back to the documented ~/.curlrc default.
	directive := cfg.ProxyDirectiveFile
	if directive == "" {
		directive = config.DefaultProxyDirectiveFile()
	}
	if directive != "" {
		e.configurators = append(e.configurators, DirectiveFileConfigurator{Path: directive})
	}
	for _, opt := range opts {
		opt(e)
	}

	data, ok, err := st.Load(store.KeyHistory)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if ok {
		if err := json.Unmarshal(data, e.history); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
	}
	return e, nil
}

// Apply commits record as the current egress point.
//
// Downstream clients see the relay's fixed address in single-host mode,
// so rotation stays invisible to them; otherwise the record's own
// address is advertised. A returned *ApplyError leaves history and the
// tracked current proxy untouched; configurators that ran before the
// failing one keep their settings, so a retry or Clear resolves it.
func (e *Engine) Apply(record model.ProxyRecord) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	proxyURL := e.advertisedURL(record)

	for _, c := range e.configurators {
		if err := c.Apply(proxyURL); err != nil {
			return &ApplyError{Stage: "configure " + c.Name(), Err: err}
		}
	}

	e.history.Push(record, e.now())
	if err := e.persistHistory(); err != nil {
		return &ApplyError{Stage: "persist history", Err: err}
	}
	if err := e.tracker.SetCurrentProxy(&record); err != nil {
		return &ApplyError{Stage: "persist state", Err: err}
	}

	e.logger.Info("egress applied",
		"proxy", record.Addr(),
		"protocol", record.Protocol,
		"advertised", proxyURL,
		"latency_ms", record.LatencyMs,
	)
	return nil
}

// Clear removes the applied egress configuration and forgets the
// current proxy.
func (e *Engine) Clear() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, c := range e.configurators {
		if err := c.Clear(); err != nil {
			return &ApplyError{Stage: "clear " + c.Name(), Err: err}
		}
	}
	if err := e.tracker.SetCurrentProxy(nil); err != nil {
		return &ApplyError{Stage: "persist state", Err: err}
	}

	e.logger.Info("egress cleared")
	return nil
}

// History returns the applied-proxy history, most recent first.
func (e *Engine) History() []model.HistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Entries()
}

// advertisedURL resolves the address downstream clients should use.
func (e *Engine) advertisedURL(record model.ProxyRecord) string {
	if e.singleHostMode {
		return "http://" + e.relayAddr
	}
	return record.URL()
}

// persistHistory writes the history to the store.
func (e *Engine) persistHistory() error {
	data, err := json.MarshalIndent(e.history, "", "  ")
	if err != nil {
		return err
	}
	return e.store.Save(store.KeyHistory, data)
}
