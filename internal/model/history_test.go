package model

import (
	"fmt"
	"testing"
	"time"
)

// TestHistoryPush tests cap enforcement and ordering.
func TestHistoryPush(t *testing.T) {
	t.Parallel()

	t.Run("most recent apply is at index 0", func(t *testing.T) {
		t.Parallel()

		h := NewHistory(10)
		h.Push(ProxyRecord{Host: "old.example", Port: 80, Protocol: ProtocolHTTP}, time.Now())
		h.Push(ProxyRecord{Host: "new.example", Port: 80, Protocol: ProtocolHTTP}, time.Now())

		entries := h.Entries()
		if entries[0].Host != "new.example" {
			t.Errorf("index 0 is %q, expected most recent apply", entries[0].Host)
		}
	})

	t.Run("length never exceeds the cap", func(t *testing.T) {
		t.Parallel()

		h := NewHistory(3)
		for i := range 10 {
			h.Push(ProxyRecord{Host: fmt.Sprintf("h%d.example", i), Port: 80, Protocol: ProtocolHTTP}, time.Now())
		}

		if h.Len() != 3 {
			t.Fatalf("got %d entries, expected 3", h.Len())
		}
		// Oldest entries were silently dropped; newest three remain.
		entries := h.Entries()
		if entries[0].Host != "h9.example" || entries[2].Host != "h7.example" {
			t.Errorf("unexpected retained window: %+v", entries)
		}
	})

	t.Run("non-positive cap retains the latest apply", func(t *testing.T) {
		t.Parallel()

		h := NewHistory(0)
		h.Push(ProxyRecord{Host: "a.example", Port: 80, Protocol: ProtocolHTTP}, time.Now())
		h.Push(ProxyRecord{Host: "b.example", Port: 80, Protocol: ProtocolHTTP}, time.Now())

		if h.Len() != 1 || h.Entries()[0].Host != "b.example" {
			t.Errorf("unexpected entries: %+v", h.Entries())
		}
	})
}

// TestHistorySetMax tests trimming when the cap shrinks.
func TestHistorySetMax(t *testing.T) {
	t.Parallel()

	h := NewHistory(5)
	for i := range 5 {
		h.Push(ProxyRecord{Host: fmt.Sprintf("h%d.example", i), Port: 80, Protocol: ProtocolHTTP}, time.Now())
	}

	h.SetMax(2)
	if h.Len() != 2 {
		t.Fatalf("got %d entries after SetMax(2), expected 2", h.Len())
	}
	if h.Entries()[0].Host != "h4.example" {
		t.Errorf("most recent entry lost on trim: %+v", h.Entries())
	}
}
