package eventlog

import (
	"context"
	"testing"
	"time"

	"github.com/aryanox/ipalchemist/internal/model"
)

// TestEventLog tests the append and query paths.
func TestEventLog(t *testing.T) {
	t.Parallel()

	t.Run("record and read back applies", func(t *testing.T) {
		t.Parallel()

		db, err := Open(t.TempDir(), DefaultOptions())
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })

		ctx := context.Background()
		record := model.ProxyRecord{
			Host: "203.0.113.10", Port: 3128, Protocol: model.ProtocolSOCKS5,
			ObservedIP: "203.0.113.10", LatencyMs: 87,
		}
		if err := db.RecordApply(ctx, record); err != nil {
			t.Fatalf("RecordApply failed: %v", err)
		}
		if err := db.Record(ctx, KindRotationStarted, "interval=300s"); err != nil {
			t.Fatalf("Record failed: %v", err)
		}

		events, err := db.Recent(ctx, 10)
		if err != nil {
			t.Fatalf("Recent failed: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("got %d events, expected 2", len(events))
		}

		// Most recent first.
		if events[0].Kind != KindRotationStarted || events[0].Detail != "interval=300s" {
			t.Errorf("events[0] = %+v", events[0])
		}
		applied := events[1]
		if applied.Kind != KindApplied || applied.Proxy != "203.0.113.10:3128" {
			t.Errorf("events[1] = %+v", applied)
		}
		if applied.Protocol != "socks5" || applied.LatencyMs != 87 {
			t.Errorf("apply detail lost: %+v", applied)
		}
	})

	t.Run("recent respects the limit", func(t *testing.T) {
		t.Parallel()

		db, err := Open(t.TempDir(), DefaultOptions())
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })

		ctx := context.Background()
		for range 5 {
			if err := db.Record(ctx, KindTorRenewed, ""); err != nil {
				t.Fatalf("Record failed: %v", err)
			}
		}

		events, err := db.Recent(ctx, 3)
		if err != nil {
			t.Fatalf("Recent failed: %v", err)
		}
		if len(events) != 3 {
			t.Errorf("got %d events, expected 3", len(events))
		}
	})

	t.Run("open without create fails on missing file", func(t *testing.T) {
		t.Parallel()

		if _, err := Open(t.TempDir(), Options{CreateIfNotExists: false}); err == nil {
			t.Error("expected error for missing event log")
		}
	})

	t.Run("log persists across reopen", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		ctx := context.Background()

		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if err := db.Record(ctx, KindCleared, ""); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if err := db.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		reopened, err := Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("reopen failed: %v", err)
		}
		t.Cleanup(func() { _ = reopened.Close() })

		events, err := reopened.Recent(ctx, 10)
		if err != nil {
			t.Fatalf("Recent failed: %v", err)
		}
		if len(events) != 1 || events[0].Kind != KindCleared {
			t.Errorf("events after reopen = %+v", events)
		}
	})

	t.Run("purge drops old events", func(t *testing.T) {
		t.Parallel()

		db, err := Open(t.TempDir(), DefaultOptions())
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })

		ctx := context.Background()
		if err := db.Record(ctx, KindApplied, ""); err != nil {
			t.Fatalf("Record failed: %v", err)
		}

		purged, err := db.PurgeBefore(ctx, time.Now().Add(time.Hour))
		if err != nil {
			t.Fatalf("PurgeBefore failed: %v", err)
		}
		if purged != 1 {
			t.Errorf("purged %d rows, expected 1", purged)
		}

		events, err := db.Recent(ctx, 10)
		if err != nil {
			t.Fatalf("Recent failed: %v", err)
		}
		if len(events) != 0 {
			t.Errorf("events remain after purge: %+v", events)
		}
	})
}
