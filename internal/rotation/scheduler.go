package rotation

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aryanox/ipalchemist/internal/model"
	"github.com/aryanox/ipalchemist/internal/state"
)

// RetryDelay is how long the loop waits after a cycle that found no
// working candidate before retrying the same cycle.
const RetryDelay = 30 * time.Second

// joinTimeout bounds how long Stop waits for the loop goroutine.
const joinTimeout = 5 * time.Second

// Status is the scheduler lifecycle state.
type Status int

// Scheduler lifecycle states.
const (
	StatusIdle Status = iota
	StatusRunning
	StatusStopped
)

// String returns the lowercase state name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ProxyFinder selects a working egress candidate. *selector.Selector
// satisfies this interface.
type ProxyFinder interface {
	FindWorking(ctx context.Context) (*model.ProxyRecord, error)
}

// Applier commits a record as the current egress. *engine.Engine
// satisfies this interface.
type Applier interface {
	Apply(record model.ProxyRecord) error
}

// Scheduler drives the periodic select-and-apply loop.
type Scheduler struct {
	finder  ProxyFinder
	applier Applier
	tracker *state.Tracker
	logger  *slog.Logger
	now     func() time.Time

	retryDelay time.Duration

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger used for cycle progress.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// withRetryDelay shortens the failure retry delay. Used in tests.
func withRetryDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.retryDelay = d
		}
	}
}

// NewScheduler creates an idle Scheduler.
func NewScheduler(finder ProxyFinder, applier Applier, tracker *state.Tracker, opts ...Option) *Scheduler {
	s := &Scheduler{
		finder:     finder,
		applier:    applier,
		tracker:    tracker,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
		retryDelay: RetryDelay,
		status:     StatusIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Status returns the current lifecycle state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Start launches the rotation loop. A non-positive duration means the
// loop runs until stopped; otherwise the absolute end time is fixed
// now, so later clock reads only compare against it.
//
// A stopped scheduler can be started again.
func (s *Scheduler) Start(interval, duration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusRunning {
		return ErrAlreadyRunning
	}

	var endTime *time.Time
	if duration > 0 {
		end := s.now().Add(duration)
		endTime = &end
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.status = StatusRunning

	if err := s.tracker.SetActive(true, uint(interval.Seconds()), endTime); err != nil {
		s.logger.Warn("persist rotation state failed", "error", err)
	}
	s.logger.Info("rotation started", "interval", interval, "duration", duration)

	go s.loop(ctx, done, interval, endTime)
	return nil
}

// Stop halts the loop and waits for it to finish. It returns false when
// the scheduler was not running. After Stop returns no further applies
// happen.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	if s.status != StatusRunning {
		s.mu.Unlock()
		return false
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(joinTimeout):
		s.logger.Warn("rotation loop did not stop within join timeout")
	}
	return true
}

// loop is the rotation cycle. It exits on cancellation or when the end
// time passes, and always transitions the scheduler to Stopped.
func (s *Scheduler) loop(ctx context.Context, done chan struct{}, interval time.Duration, endTime *time.Time) {
	defer func() {
		s.mu.Lock()
		s.status = StatusStopped
		s.mu.Unlock()
		if err := s.tracker.SetActive(false, 0, nil); err != nil {
			s.logger.Warn("persist rotation state failed", "error", err)
		}
		s.logger.Info("rotation stopped")
		close(done)
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		if endTime != nil && !s.now().Before(*endTime) {
			s.logger.Info("rotation duration elapsed")
			return
		}

		if ok := s.cycle(ctx); !ok {
			// Retryable: nothing worked this cycle. Wait the fixed
			// delay and retry without consuming an interval slot.
			if !s.sleep(ctx, s.retryDelay) {
				return
			}
			continue
		}

		if !s.sleep(ctx, interval) {
			return
		}
	}
}

// cycle performs one select-and-apply pass. It reports false for the
// retryable outcomes: no working candidate, or a failed apply.
func (s *Scheduler) cycle(ctx context.Context) bool {
	record, err := s.finder.FindWorking(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return true // cancellation is handled at the loop top
		}
		s.logger.Warn("selection failed", "error", err)
		return false
	}
	if record == nil {
		s.logger.Debug("no working candidate this cycle")
		return false
	}

	if err := s.applier.Apply(*record); err != nil {
		s.logger.Error("apply failed", "proxy", record.Addr(), "error", err)
		return false
	}
	return true
}

// sleep waits for d unless the context is canceled first. It reports
// whether the full duration elapsed.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
