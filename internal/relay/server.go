package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aryanox/ipalchemist/internal/state"
)

// Timeouts for the status listener. The responses are tiny, so slow
// clients get cut off aggressively.
const (
	readTimeout  = 5 * time.Second
	writeTimeout = 5 * time.Second
)

// Server is the fixed local endpoint. Its address is what single-host
// mode advertises, so it must bind exactly the configured host and
// port rather than an OS-assigned one.
type Server struct {
	addr    string
	tracker *state.Tracker
	logger  *slog.Logger
	srv     *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for request and lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a status server bound to host:port.
func NewServer(host string, port uint16, tracker *state.Tracker, opts ...Option) *Server {
	s := &Server{
		addr:    net.JoinHostPort(host, strconv.Itoa(int(port))),
		tracker: tracker,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the HTTP handler serving the status endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleStatus)
	return mux
}

// Start binds the listener and serves in the background. The returned
// error covers only the bind; serve errors after a clean Shutdown are
// swallowed.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("bind relay listener %s: %w", s.addr, err)
	}

	s.srv = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("relay server failed", "error", err)
		}
	}()

	s.logger.Info("relay server listening", "addr", s.addr)
	return nil
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// handleStatus writes the current egress snapshot, or 503 when nothing
// has been applied yet.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if snap.CurrentProxy == nil {
		http.Error(w, "no egress applied", http.StatusServiceUnavailable)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "relay: %s\n", s.addr)
	fmt.Fprintf(&b, "egress: %s (%s)\n", snap.CurrentProxy.Addr(), snap.CurrentProxy.Protocol)
	if snap.CurrentProxy.ObservedIP != "" {
		fmt.Fprintf(&b, "observed ip: %s\n", snap.CurrentProxy.ObservedIP)
	}
	if snap.Active {
		fmt.Fprintf(&b, "rotation: active, every %ds\n", snap.IntervalSeconds)
		if snap.EndTime != nil {
			fmt.Fprintf(&b, "rotation ends: %s\n", snap.EndTime.Format(time.RFC3339))
		}
	} else {
		fmt.Fprintf(&b, "rotation: inactive\n")
	}

	_, _ = io.WriteString(w, b.String()) //nolint:errcheck // Client gone
}
