package selector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aryanox/ipalchemist/internal/health"
	"github.com/aryanox/ipalchemist/internal/model"
)

type stubPool struct {
	pool     model.Pool
	refill   model.Pool
	fetchErr error
	fetched  int
}

func (s *stubPool) Pool() model.Pool {
	return s.pool
}

func (s *stubPool) Fetch(_ context.Context) (model.Pool, error) {
	s.fetched++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	s.pool = s.refill
	return s.pool, nil
}

// stubProber answers probes from a fixed set of working endpoints and
// records every attempted candidate in order.
type stubProber struct {
	working  map[string]string // key -> observed ip
	attempts []string
}

func (s *stubProber) Check(_ context.Context, record model.ProxyRecord, _ time.Duration) health.Result {
	s.attempts = append(s.attempts, record.Key())
	if ip, ok := s.working[record.Key()]; ok {
		return health.Result{Working: true, ObservedIP: ip, LatencyMs: 42}
	}
	return health.Result{LatencyMs: -1}
}

// noShuffle keeps the candidate ordering stable for assertions.
func noShuffle(_ int, _ func(i, j int)) {}

// TestFindWorking tests candidate selection end to end.
func TestFindWorking(t *testing.T) {
	t.Parallel()

	t.Run("returns first working candidate with health annotations", func(t *testing.T) {
		t.Parallel()

		pool := &stubPool{pool: model.Pool{
			{Host: "10.0.0.1", Port: 8080, Protocol: model.ProtocolHTTP, LatencyMs: 50},
			{Host: "10.0.0.2", Port: 8080, Protocol: model.ProtocolHTTP, LatencyMs: 80},
		}}
		prober := &stubProber{working: map[string]string{"10.0.0.2:8080": "198.51.100.9"}}
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		sel := NewSelector(pool, prober, withShuffle(noShuffle), WithClock(func() time.Time { return now }))
		record, err := sel.FindWorking(context.Background())
		if err != nil {
			t.Fatalf("FindWorking failed: %v", err)
		}
		if record == nil {
			t.Fatal("expected a working record")
		}
		if record.Key() != "10.0.0.2:8080" {
			t.Errorf("selected %s, expected 10.0.0.2:8080", record.Key())
		}
		if record.ObservedIP != "198.51.100.9" {
			t.Errorf("observed ip = %q", record.ObservedIP)
		}
		if record.LatencyMs != 42 {
			t.Errorf("latency = %d, expected measured 42", record.LatencyMs)
		}
		if !record.LastChecked.Equal(now) {
			t.Errorf("last checked = %v", record.LastChecked)
		}
	})

	t.Run("never returns a non-working record", func(t *testing.T) {
		t.Parallel()

		pool := &stubPool{pool: model.Pool{
			{Host: "10.0.0.1", Port: 8080, Protocol: model.ProtocolHTTP},
			{Host: "10.0.0.2", Port: 8080, Protocol: model.ProtocolHTTP},
		}}
		prober := &stubProber{} // nothing works

		sel := NewSelector(pool, prober, withShuffle(noShuffle))
		record, err := sel.FindWorking(context.Background())
		if err != nil {
			t.Fatalf("FindWorking failed: %v", err)
		}
		if record != nil {
			t.Errorf("expected nil record, got %s", record.Key())
		}
		if len(prober.attempts) != 2 {
			t.Errorf("probed %d candidates, expected 2", len(prober.attempts))
		}
	})

	t.Run("empty pool triggers exactly one refill", func(t *testing.T) {
		t.Parallel()

		pool := &stubPool{refill: model.Pool{
			{Host: "10.0.0.1", Port: 8080, Protocol: model.ProtocolHTTP},
		}}
		prober := &stubProber{working: map[string]string{"10.0.0.1:8080": "198.51.100.9"}}

		sel := NewSelector(pool, prober, withShuffle(noShuffle))
		record, err := sel.FindWorking(context.Background())
		if err != nil {
			t.Fatalf("FindWorking failed: %v", err)
		}
		if record == nil {
			t.Fatal("expected record from refilled pool")
		}
		if pool.fetched != 1 {
			t.Errorf("fetched %d times, expected 1", pool.fetched)
		}
	})

	t.Run("refill failure propagates", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("api down")
		pool := &stubPool{fetchErr: wantErr}

		sel := NewSelector(pool, &stubProber{}, withShuffle(noShuffle))
		if _, err := sel.FindWorking(context.Background()); !errors.Is(err, wantErr) {
			t.Errorf("got error %v, expected wrapped %v", err, wantErr)
		}
	})

	t.Run("pool empty after refill yields nil without error", func(t *testing.T) {
		t.Parallel()

		pool := &stubPool{}
		sel := NewSelector(pool, &stubProber{}, withShuffle(noShuffle))
		record, err := sel.FindWorking(context.Background())
		if err != nil {
			t.Fatalf("FindWorking failed: %v", err)
		}
		if record != nil {
			t.Errorf("expected nil record, got %s", record.Key())
		}
	})

	t.Run("canceled context stops probing", func(t *testing.T) {
		t.Parallel()

		pool := &stubPool{pool: model.Pool{
			{Host: "10.0.0.1", Port: 8080, Protocol: model.ProtocolHTTP},
		}}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		sel := NewSelector(pool, &stubProber{}, withShuffle(noShuffle))
		if _, err := sel.FindWorking(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("got error %v, expected context.Canceled", err)
		}
	})
}

// TestCandidates tests the probe ordering rules.
func TestCandidates(t *testing.T) {
	t.Parallel()

	t.Run("favorites override latency ordering", func(t *testing.T) {
		t.Parallel()

		pool := model.Pool{
			{Host: "10.0.0.1", Port: 8080, Protocol: model.ProtocolHTTP, LatencyMs: 10},
			{Host: "10.0.0.2", Port: 9090, Protocol: model.ProtocolHTTP, LatencyMs: 100, IsFavorite: true},
			{Host: "10.0.0.3", Port: 8080, Protocol: model.ProtocolHTTP, LatencyMs: 20},
		}

		sel := NewSelector(&stubPool{}, &stubProber{})
		got := sel.candidates(pool)
		if len(got) != 1 {
			t.Fatalf("got %d candidates, expected only the favorite", len(got))
		}
		if got[0].Key() != "10.0.0.2:9090" {
			t.Errorf("candidate = %s, expected the favorite 10.0.0.2:9090", got[0].Key())
		}
	})

	t.Run("sorted by latency with unknown last", func(t *testing.T) {
		t.Parallel()

		pool := model.Pool{
			{Host: "10.0.0.1", Port: 8080, Protocol: model.ProtocolHTTP, LatencyMs: -1},
			{Host: "10.0.0.2", Port: 8080, Protocol: model.ProtocolHTTP, LatencyMs: 300},
			{Host: "10.0.0.3", Port: 8080, Protocol: model.ProtocolHTTP, LatencyMs: 25},
		}

		sel := NewSelector(&stubPool{}, &stubProber{})
		got := sel.candidates(pool)
		want := []string{"10.0.0.3:8080", "10.0.0.2:8080", "10.0.0.1:8080"}
		for i, key := range want {
			if got[i].Key() != key {
				t.Errorf("candidates[%d] = %s, expected %s", i, got[i].Key(), key)
			}
		}
	})

	t.Run("truncated to max attempts", func(t *testing.T) {
		t.Parallel()

		var pool model.Pool
		for i := range 30 {
			pool = append(pool, model.ProxyRecord{
				Host: "10.0.0.1", Port: uint16(1000 + i), Protocol: model.ProtocolHTTP, LatencyMs: i,
			})
		}

		sel := NewSelector(&stubPool{}, &stubProber{}, WithMaxAttempts(5))
		if got := sel.candidates(pool); len(got) != 5 {
			t.Errorf("got %d candidates, expected 5", len(got))
		}
	})
}
