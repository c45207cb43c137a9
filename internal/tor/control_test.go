package tor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// controlStub is a scripted Tor control listener. It records every
// command line it receives and answers AUTHENTICATE and SIGNAL with
// the configured replies.
type controlStub struct {
	addr string

	mu       sync.Mutex
	commands []string
}

func startControlStub(t *testing.T, authReply, signalReply string) *controlStub {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	stub := &controlStub{addr: ln.Addr().String()}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go stub.serve(conn, authReply, signalReply)
		}
	}()
	return stub
}

func (s *controlStub) serve(conn net.Conn, authReply, signalReply string) {
	defer conn.Close() //nolint:errcheck // Test helper

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		s.mu.Lock()
		s.commands = append(s.commands, line)
		s.mu.Unlock()

		switch {
		case strings.HasPrefix(line, "AUTHENTICATE"):
			fmt.Fprintf(conn, "%s\r\n", authReply)
		case strings.HasPrefix(line, "SIGNAL"):
			fmt.Fprintf(conn, "%s\r\n", signalReply)
		case line == "QUIT":
			fmt.Fprintf(conn, "250 closing connection\r\n")
			return
		}
	}
}

func (s *controlStub) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.commands))
	copy(out, s.commands)
	return out
}

// TestRenewCircuit tests the control protocol exchange.
func TestRenewCircuit(t *testing.T) {
	t.Parallel()

	t.Run("successful renewal", func(t *testing.T) {
		t.Parallel()

		stub := startControlStub(t, "250 OK", "250 OK")
		client := NewControlClient(stub.addr, "")
		if err := client.RenewCircuit(context.Background()); err != nil {
			t.Fatalf("RenewCircuit failed: %v", err)
		}

		got := stub.received()
		if len(got) < 2 || got[0] != "AUTHENTICATE" || got[1] != "SIGNAL NEWNYM" {
			t.Errorf("control exchange = %v", got)
		}
	})

	t.Run("password is quoted in the authenticate command", func(t *testing.T) {
		t.Parallel()

		stub := startControlStub(t, "250 OK", "250 OK")
		client := NewControlClient(stub.addr, "s3cret")
		if err := client.RenewCircuit(context.Background()); err != nil {
			t.Fatalf("RenewCircuit failed: %v", err)
		}

		got := stub.received()
		if len(got) == 0 || got[0] != `AUTHENTICATE "s3cret"` {
			t.Errorf("auth command = %v", got)
		}
	})

	t.Run("rejected authentication never signals", func(t *testing.T) {
		t.Parallel()

		stub := startControlStub(t, "515 Bad authentication", "250 OK")
		client := NewControlClient(stub.addr, "wrong")
		err := client.RenewCircuit(context.Background())
		if !errors.Is(err, ErrAuth) {
			t.Fatalf("got %v, expected ErrAuth", err)
		}

		for _, cmd := range stub.received() {
			if strings.HasPrefix(cmd, "SIGNAL") {
				t.Error("NEWNYM was sent despite rejected authentication")
			}
		}
	})

	t.Run("rejected signal", func(t *testing.T) {
		t.Parallel()

		stub := startControlStub(t, "250 OK", "552 Unrecognized signal")
		client := NewControlClient(stub.addr, "")
		if err := client.RenewCircuit(context.Background()); !errors.Is(err, ErrSignal) {
			t.Errorf("got %v, expected ErrSignal", err)
		}
	})

	t.Run("unreachable control port", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		addr := ln.Addr().String()
		_ = ln.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		client := NewControlClient(addr, "")
		err = client.RenewCircuit(ctx)
		if err == nil {
			t.Fatal("expected connection error")
		}
		if errors.Is(err, ErrAuth) || errors.Is(err, ErrSignal) {
			t.Errorf("dial failure misclassified: %v", err)
		}
	})
}
