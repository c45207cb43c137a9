package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aryanox/ipalchemist/internal/model"
)

func sampleSnapshot() *Snapshot {
	applied := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &Snapshot{
		GeneratedAt:     applied.Add(time.Hour),
		RotationActive:  true,
		IntervalSeconds: 300,
		Current: &model.ProxyRecord{
			Host: "203.0.113.10", Port: 3128, Protocol: model.ProtocolHTTP,
			Country: "DE", ObservedIP: "203.0.113.10", LatencyMs: 120,
		},
		Pool: []model.ProxyRecord{
			{Host: "203.0.113.10", Port: 3128, Protocol: model.ProtocolHTTP},
			{Host: "203.0.113.11", Port: 1080, Protocol: model.ProtocolSOCKS5},
		},
		Favorites: []model.Favorite{
			{Host: "203.0.113.10", Port: 3128, Protocol: model.ProtocolHTTP, Country: "DE", AddedAt: applied},
		},
		History: []model.HistoryEntry{
			{Host: "203.0.113.10", Port: 3128, Protocol: model.ProtocolHTTP, LatencyMs: 120, AppliedAt: applied},
		},
	}
}

// TestJSONWriter tests the JSON export format.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact output round trips", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)
		n, err := w.Write(sampleSnapshot())
		if err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
		}

		var decoded Snapshot
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.Current == nil || decoded.Current.Host != "203.0.113.10" {
			t.Errorf("current proxy lost in round trip: %+v", decoded.Current)
		}
		if len(decoded.Pool) != 2 || len(decoded.History) != 1 {
			t.Errorf("collections lost in round trip: %+v", decoded)
		}
	})

	t.Run("pretty print indents", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())
		if _, err := w.Write(sampleSnapshot()); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  ") {
			t.Error("expected indented output")
		}
	})
}

// TestMarkdownWriter tests the Markdown export format.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("full snapshot", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		if _, err := w.Write(sampleSnapshot()); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		out := buf.String()
		for _, want := range []string{
			"# IP Alchemist Report",
			"## Current Egress",
			"203.0.113.10:3128",
			"## Favorites",
			"## Rotation History",
			"mermaid",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("markdown missing %q", want)
			}
		}
	})

	t.Run("empty snapshot", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		snap := &Snapshot{GeneratedAt: time.Now()}
		if _, err := w.Write(snap); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "No egress point is applied.") {
			t.Error("missing empty-egress text")
		}
		if strings.Contains(out, "mermaid") {
			t.Error("pie chart rendered for an empty pool")
		}
	})
}

// failingWriter always errors, for MultiWriter propagation checks.
type failingWriter struct{}

func (failingWriter) Write(_ *Snapshot) (int, error) {
	return 0, errors.New("disk full")
}

// TestMultiWriter tests fan-out and error propagation.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	mw := NewMultiWriter(NewJSONWriter(&a), NewMarkdownWriter(&b))
	if _, err := mw.Write(sampleSnapshot()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if a.Len() == 0 || b.Len() == 0 {
		t.Error("one of the writers received nothing")
	}

	mw = NewMultiWriter(failingWriter{}, NewJSONWriter(&a))
	if _, err := mw.Write(sampleSnapshot()); err == nil {
		t.Error("expected error from failing writer")
	}
}
