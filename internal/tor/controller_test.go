package tor

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestControllerLifecycle tests subprocess start, aliveness, and stop.
// A plain sleep stands in for the tor binary so the tests do not need
// a Tor installation.
func TestControllerLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("start and stop", func(t *testing.T) {
		t.Parallel()

		c := NewController(Config{
			Binary:       "sleep",
			StartupGrace: 50 * time.Millisecond,
			ControlAddr:  "127.0.0.1:9051",
			SocksAddr:    "127.0.0.1:9050",
		}, withArgs("60"))

		if err := c.Start(context.Background()); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if !c.IsRunning() {
			t.Fatal("controller not running after start")
		}

		// Starting a running controller is a no-op.
		if err := c.Start(context.Background()); err != nil {
			t.Errorf("second Start failed: %v", err)
		}

		if err := c.Stop(); err != nil {
			t.Fatalf("Stop failed: %v", err)
		}
		if c.IsRunning() {
			t.Error("controller still running after stop")
		}

		// Stopping again must be quiet.
		if err := c.Stop(); err != nil {
			t.Errorf("second Stop failed: %v", err)
		}
	})

	t.Run("daemon dying in the grace period", func(t *testing.T) {
		t.Parallel()

		c := NewController(Config{
			Binary:       "true",
			StartupGrace: 200 * time.Millisecond,
		})
		if err := c.Start(context.Background()); !errors.Is(err, ErrStart) {
			t.Errorf("got %v, expected ErrStart", err)
		}
		if c.IsRunning() {
			t.Error("controller claims to be running after failed start")
		}
	})

	t.Run("canceled context during startup", func(t *testing.T) {
		t.Parallel()

		c := NewController(Config{
			Binary:       "sleep",
			StartupGrace: 10 * time.Second,
		}, withArgs("60"))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		if err := c.Start(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("got %v, expected context.DeadlineExceeded", err)
		}
	})
}

// TestRotateLoopFirstRenewal tests that the loop renews as soon as it
// starts instead of waiting out a full interval first.
func TestRotateLoopFirstRenewal(t *testing.T) {
	t.Parallel()

	stub := startControlStub(t, "250 OK", "250 OK")
	c := NewController(Config{
		Binary:      "sleep",
		ControlAddr: stub.addr,
		SocksAddr:   "127.0.0.1:1", // probe fails, which the loop tolerates
		IPCheckURL:  "http://ip.example.test/",
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		// An hour-long interval: only the startup renewal can fire.
		c.RotateLoop(ctx, time.Hour)
		close(done)
	}()

	renewed := false
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !renewed {
		for _, cmd := range stub.received() {
			if cmd == "SIGNAL NEWNYM" {
				renewed = true
			}
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("rotate loop did not stop on cancellation")
	}

	if !renewed {
		t.Error("no renewal before the first interval elapsed")
	}
}

// TestRotateLoop tests that the loop renews on its ticker and stops on
// cancellation.
func TestRotateLoop(t *testing.T) {
	t.Parallel()

	stub := startControlStub(t, "250 OK", "250 OK")
	c := NewController(Config{
		Binary:      "sleep",
		ControlAddr: stub.addr,
		SocksAddr:   "127.0.0.1:1", // probe fails, which the loop tolerates
		IPCheckURL:  "http://ip.example.test/",
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.RotateLoop(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		renewed := 0
		for _, cmd := range stub.received() {
			if cmd == "SIGNAL NEWNYM" {
				renewed++
			}
		}
		if renewed >= 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("rotate loop did not stop on cancellation")
	}

	renewed := 0
	for _, cmd := range stub.received() {
		if cmd == "SIGNAL NEWNYM" {
			renewed++
		}
	}
	if renewed < 2 {
		t.Errorf("renewed %d times, expected at least 2", renewed)
	}
}
