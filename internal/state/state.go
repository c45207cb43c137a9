package state

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aryanox/ipalchemist/internal/model"
	"github.com/aryanox/ipalchemist/internal/store"
)

// Tracker is a concurrency-safe holder for the rotation state. Readers
// get snapshots; writers persist through the backing store so state
// survives restarts.
type Tracker struct {
	mu     sync.RWMutex
	state  model.RotationState
	store  store.Store
	logger *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger used for persistence warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTracker creates a Tracker backed by s.
func NewTracker(s store.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:  s,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Restore loads the previously persisted state. A missing state file is
// not an error; the tracker simply starts empty.
func (t *Tracker) Restore() error {
	data, ok, err := t.store.Load(store.KeyState)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if !ok {
		return nil
	}

	var restored model.RotationState
	if err := json.Unmarshal(data, &restored); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}

	// A persisted "active" flag is stale after a restart. The scheduler
	// owns activation; only the applied egress carries over.
	restored.Active = false
	restored.EndTime = nil

	t.mu.Lock()
	t.state = restored
	t.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() model.RotationState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := t.state
	if t.state.CurrentProxy != nil {
		record := *t.state.CurrentProxy
		snap.CurrentProxy = &record
	}
	if t.state.EndTime != nil {
		end := *t.state.EndTime
		snap.EndTime = &end
	}
	return snap
}

// CurrentProxy returns the applied egress record, or nil when none is
// applied.
func (t *Tracker) CurrentProxy() *model.ProxyRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.state.CurrentProxy == nil {
		return nil
	}
	record := *t.state.CurrentProxy
	return &record
}

// SetCurrentProxy records the applied egress and persists the state.
func (t *Tracker) SetCurrentProxy(record *model.ProxyRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if record == nil {
		t.state.CurrentProxy = nil
	} else {
		copied := *record
		t.state.CurrentProxy = &copied
	}
	return t.persistLocked()
}

// SetActive records whether rotation is running and its parameters.
func (t *Tracker) SetActive(active bool, intervalSeconds uint, endTime *time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.Active = active
	t.state.IntervalSeconds = intervalSeconds
	if endTime == nil {
		t.state.EndTime = nil
	} else {
		end := *endTime
		t.state.EndTime = &end
	}
	return t.persistLocked()
}

// persistLocked writes the state to the store. Callers hold t.mu.
func (t *Tracker) persistLocked() error {
	data, err := json.MarshalIndent(t.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := t.store.Save(store.KeyState, data); err != nil {
		t.logger.Warn("persist state failed", "error", err)
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}
