package tor

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// controlIOTimeout bounds each read and write on the control socket
// when the caller's context carries no deadline of its own.
const controlIOTimeout = 10 * time.Second

// ControlClient speaks the Tor control protocol over a raw TCP
// connection. Only the two commands needed for circuit rotation are
// implemented; anything richer belongs in a real controller library.
type ControlClient struct {
	addr     string
	password string
}

// NewControlClient creates a client for the control listener at addr.
// An empty password sends a bare AUTHENTICATE, which Tor accepts when
// no authentication method is configured.
func NewControlClient(addr, password string) *ControlClient {
	return &ControlClient{addr: addr, password: password}
}

// RenewCircuit asks Tor for a fresh circuit. It authenticates, sends
// SIGNAL NEWNYM, and checks both replies for the 250 success code.
// A rejected authentication wraps ErrAuth; a rejected signal wraps
// ErrSignal. Either aborts only this renewal attempt.
func (c *ControlClient) RenewCircuit(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("connect control port %s: %w", c.addr, err)
	}
	defer conn.Close() //nolint:errcheck // Best effort close

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(controlIOTimeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("set control deadline: %w", err)
	}

	reader := bufio.NewReader(conn)

	authCmd := "AUTHENTICATE"
	if c.password != "" {
		authCmd = fmt.Sprintf("AUTHENTICATE %q", c.password)
	}
	reply, err := roundTrip(conn, reader, authCmd)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	if !strings.HasPrefix(reply, "250") {
		return fmt.Errorf("%w: %s", ErrAuth, reply)
	}

	reply, err = roundTrip(conn, reader, "SIGNAL NEWNYM")
	if err != nil {
		return fmt.Errorf("signal newnym: %w", err)
	}
	if !strings.HasPrefix(reply, "250") {
		return fmt.Errorf("%w: %s", ErrSignal, reply)
	}

	// The daemon closes the connection on QUIT; failure is irrelevant.
	_, _ = fmt.Fprintf(conn, "QUIT\r\n") //nolint:errcheck // Best effort
	return nil
}

// roundTrip sends one command line and returns the trimmed reply line.
func roundTrip(conn net.Conn, reader *bufio.Reader, cmd string) (string, error) {
	if _, err := fmt.Fprintf(conn, "%s\r\n", cmd); err != nil {
		return "", err
	}
	reply, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}
