package relay

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aryanox/ipalchemist/internal/model"
	"github.com/aryanox/ipalchemist/internal/state"
	"github.com/aryanox/ipalchemist/internal/store"
)

func newTestTracker(t *testing.T) *state.Tracker {
	t.Helper()

	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return state.NewTracker(fs)
}

// TestStatusEndpoint tests the GET / snapshot.
func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("503 before any apply", func(t *testing.T) {
		t.Parallel()

		server := NewServer("127.0.0.1", 8080, newTestTracker(t))
		ts := httptest.NewServer(server.Handler())
		t.Cleanup(ts.Close)

		resp, err := http.Get(ts.URL + "/")
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		defer resp.Body.Close() //nolint:errcheck // Test cleanup

		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("status = %d, expected 503", resp.StatusCode)
		}
	})

	t.Run("snapshot after apply", func(t *testing.T) {
		t.Parallel()

		tracker := newTestTracker(t)
		record := model.ProxyRecord{
			Host: "203.0.113.10", Port: 3128, Protocol: model.ProtocolHTTP,
			ObservedIP: "203.0.113.10",
		}
		if err := tracker.SetCurrentProxy(&record); err != nil {
			t.Fatalf("SetCurrentProxy failed: %v", err)
		}
		if err := tracker.SetActive(true, 300, nil); err != nil {
			t.Fatalf("SetActive failed: %v", err)
		}

		server := NewServer("127.0.0.1", 8080, tracker)
		ts := httptest.NewServer(server.Handler())
		t.Cleanup(ts.Close)

		resp, err := http.Get(ts.URL + "/")
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		defer resp.Body.Close() //nolint:errcheck // Test cleanup

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, expected 200", resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		text := string(body)
		for _, want := range []string{"203.0.113.10:3128", "http", "rotation: active, every 300s"} {
			if !strings.Contains(text, want) {
				t.Errorf("body missing %q:\n%s", want, text)
			}
		}
	})

	t.Run("other paths are not found", func(t *testing.T) {
		t.Parallel()

		server := NewServer("127.0.0.1", 8080, newTestTracker(t))
		ts := httptest.NewServer(server.Handler())
		t.Cleanup(ts.Close)

		resp, err := http.Get(ts.URL + "/admin")
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		defer resp.Body.Close() //nolint:errcheck // Test cleanup

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, expected 404", resp.StatusCode)
		}
	})
}

// TestServerLifecycle tests bind and shutdown on a real listener.
func TestServerLifecycle(t *testing.T) {
	t.Parallel()

	server := NewServer("127.0.0.1", 0, newTestTracker(t))
	if err := server.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := server.Shutdown(t.Context()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}
