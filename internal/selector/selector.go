package selector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/aryanox/ipalchemist/internal/health"
	"github.com/aryanox/ipalchemist/internal/model"
)

// DefaultMaxAttempts caps how many candidates a single selection probes.
const DefaultMaxAttempts = 15

// DefaultCheckTimeout bounds each individual candidate probe during
// selection. It is deliberately looser than the bulk health check
// timeout because a selection failure forces a full retry cycle.
const DefaultCheckTimeout = 5 * time.Second

// PoolProvider supplies the candidate pool and can refill it on demand.
// *pool.Manager satisfies this interface.
type PoolProvider interface {
	// Pool returns a snapshot of the current candidate pool.
	Pool() model.Pool
	// Fetch refills the pool from the configured source and returns
	// the fresh pool.
	Fetch(ctx context.Context) (model.Pool, error)
}

// Prober performs a liveness probe against a single candidate.
// *health.Checker satisfies this interface.
type Prober interface {
	Check(ctx context.Context, record model.ProxyRecord, timeout time.Duration) health.Result
}

// Selector finds a working egress candidate.
type Selector struct {
	pools        PoolProvider
	prober       Prober
	maxAttempts  int
	checkTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
	shuffle      func(n int, swap func(i, j int))
}

// Option configures a Selector.
type Option func(*Selector)

// WithMaxAttempts overrides the candidate cap.
func WithMaxAttempts(n int) Option {
	return func(s *Selector) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithCheckTimeout overrides the per-candidate probe timeout.
func WithCheckTimeout(d time.Duration) Option {
	return func(s *Selector) {
		if d > 0 {
			s.checkTimeout = d
		}
	}
}

// WithLogger sets the logger used for probe progress.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Selector) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Selector) {
		if now != nil {
			s.now = now
		}
	}
}

// withShuffle overrides the candidate shuffle. Used in tests.
func withShuffle(fn func(n int, swap func(i, j int))) Option {
	return func(s *Selector) {
		s.shuffle = fn
	}
}

// NewSelector creates a Selector probing candidates from pools.
func NewSelector(pools PoolProvider, prober Prober, opts ...Option) *Selector {
	s := &Selector{
		pools:        pools,
		prober:       prober,
		maxAttempts:  DefaultMaxAttempts,
		checkTimeout: DefaultCheckTimeout,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:          time.Now,
		shuffle:      rand.Shuffle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindWorking returns the first candidate that passes a liveness probe,
// annotated with the observed egress IP and measured latency.
//
// An empty pool triggers exactly one refill before giving up. A nil
// record with a nil error means the pool had candidates but none of the
// probed ones worked. That outcome is expected during rotation and is
// not an error.
func (s *Selector) FindWorking(ctx context.Context) (*model.ProxyRecord, error) {
	pool := s.pools.Pool()
	if len(pool) == 0 {
		refilled, err := s.pools.Fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("refill pool: %w", err)
		}
		pool = refilled
	}
	if len(pool) == 0 {
		return nil, nil
	}

	candidates := s.candidates(pool)
	s.shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	for i, record := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.logger.Debug("probing candidate",
			"attempt", i+1,
			"total", len(candidates),
			"proxy", record.Addr(),
			"protocol", record.Protocol,
		)

		result := s.prober.Check(ctx, record, s.checkTimeout)
		if !result.Working {
			continue
		}

		checked := record.WithHealth(result.ObservedIP, result.LatencyMs, s.now())
		s.logger.Info("selected egress",
			"proxy", checked.Addr(),
			"protocol", checked.Protocol,
			"latency_ms", checked.LatencyMs,
		)
		return &checked, nil
	}

	s.logger.Debug("no working candidate", "probed", len(candidates))
	return nil, nil
}

// candidates orders the pool for probing. Favorites present in the pool
// replace latency ordering entirely; otherwise candidates are sorted by
// ascending latency with unknown latency last. The result is capped at
// maxAttempts.
func (s *Selector) candidates(pool model.Pool) []model.ProxyRecord {
	var favorites []model.ProxyRecord
	for _, record := range pool {
		if record.IsFavorite {
			favorites = append(favorites, record)
		}
	}

	ordered := favorites
	if len(ordered) == 0 {
		ordered = make([]model.ProxyRecord, len(pool))
		copy(ordered, pool)
		sort.SliceStable(ordered, func(i, j int) bool {
			return latencyRank(ordered[i]) < latencyRank(ordered[j])
		})
	}

	if len(ordered) > s.maxAttempts {
		ordered = ordered[:s.maxAttempts]
	}
	return ordered
}

// latencyRank maps unknown latency to the end of the ordering.
func latencyRank(record model.ProxyRecord) int {
	if record.LatencyMs < 0 {
		return int(^uint(0) >> 1)
	}
	return record.LatencyMs
}
