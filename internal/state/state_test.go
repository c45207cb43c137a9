package state

import (
	"testing"
	"time"

	"github.com/aryanox/ipalchemist/internal/model"
	"github.com/aryanox/ipalchemist/internal/store"
)

// TestTracker tests state mutation, snapshots, and persistence.
func TestTracker(t *testing.T) {
	t.Parallel()

	t.Run("snapshot is a copy", func(t *testing.T) {
		t.Parallel()

		fs, err := store.NewFileStore(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileStore failed: %v", err)
		}
		tracker := NewTracker(fs)

		record := model.ProxyRecord{Host: "10.0.0.1", Port: 8080, Protocol: model.ProtocolHTTP}
		if err := tracker.SetCurrentProxy(&record); err != nil {
			t.Fatalf("SetCurrentProxy failed: %v", err)
		}

		snap := tracker.Snapshot()
		snap.CurrentProxy.Host = "changed"
		if tracker.CurrentProxy().Host != "10.0.0.1" {
			t.Error("mutating snapshot leaked into tracker state")
		}
	})

	t.Run("restore recovers applied proxy but not active flag", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		fs, err := store.NewFileStore(dir)
		if err != nil {
			t.Fatalf("NewFileStore failed: %v", err)
		}

		tracker := NewTracker(fs)
		record := model.ProxyRecord{Host: "10.0.0.1", Port: 8080, Protocol: model.ProtocolSOCKS5}
		if err := tracker.SetCurrentProxy(&record); err != nil {
			t.Fatalf("SetCurrentProxy failed: %v", err)
		}
		end := time.Now().Add(time.Hour)
		if err := tracker.SetActive(true, 300, &end); err != nil {
			t.Fatalf("SetActive failed: %v", err)
		}

		// A fresh tracker over the same directory simulates a restart.
		fs2, err := store.NewFileStore(dir)
		if err != nil {
			t.Fatalf("NewFileStore failed: %v", err)
		}
		restored := NewTracker(fs2)
		if err := restored.Restore(); err != nil {
			t.Fatalf("Restore failed: %v", err)
		}

		snap := restored.Snapshot()
		if snap.Active {
			t.Error("active flag survived restart")
		}
		if snap.EndTime != nil {
			t.Error("end time survived restart")
		}
		if snap.CurrentProxy == nil || snap.CurrentProxy.Key() != "10.0.0.1:8080" {
			t.Errorf("current proxy not restored: %+v", snap.CurrentProxy)
		}
		if snap.IntervalSeconds != 300 {
			t.Errorf("interval = %d, expected 300", snap.IntervalSeconds)
		}
	})

	t.Run("restore with no persisted state is a no-op", func(t *testing.T) {
		t.Parallel()

		fs, err := store.NewFileStore(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileStore failed: %v", err)
		}
		tracker := NewTracker(fs)
		if err := tracker.Restore(); err != nil {
			t.Fatalf("Restore failed: %v", err)
		}
		if tracker.CurrentProxy() != nil {
			t.Error("expected empty state")
		}
	})

	t.Run("clearing current proxy persists nil", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		fs, err := store.NewFileStore(dir)
		if err != nil {
			t.Fatalf("NewFileStore failed: %v", err)
		}
		tracker := NewTracker(fs)

		record := model.ProxyRecord{Host: "10.0.0.1", Port: 8080, Protocol: model.ProtocolHTTP}
		if err := tracker.SetCurrentProxy(&record); err != nil {
			t.Fatalf("SetCurrentProxy failed: %v", err)
		}
		if err := tracker.SetCurrentProxy(nil); err != nil {
			t.Fatalf("SetCurrentProxy(nil) failed: %v", err)
		}

		fs2, err := store.NewFileStore(dir)
		if err != nil {
			t.Fatalf("NewFileStore failed: %v", err)
		}
		restored := NewTracker(fs2)
		if err := restored.Restore(); err != nil {
			t.Fatalf("Restore failed: %v", err)
		}
		if restored.CurrentProxy() != nil {
			t.Error("cleared proxy came back after restart")
		}
	})
}
