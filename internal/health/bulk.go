package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aryanox/ipalchemist/internal/model"
)

// DefaultBulkConcurrency bounds concurrent probes during a bulk check.
// Public proxies tolerate little; more parallelism mostly produces
// timeouts that look like dead candidates.
const DefaultBulkConcurrency = 10

// CheckAll probes every record concurrently, bounded by limit goroutines,
// and returns results indexed like the input. It stops early only on
// context cancellation; individual failures are ordinary results.
func (c *Checker) CheckAll(ctx context.Context, records []model.ProxyRecord, timeout time.Duration, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultBulkConcurrency
	}

	results := make([]Result, len(records))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, record := range records {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			results[i] = c.Check(ctx, record, timeout)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
