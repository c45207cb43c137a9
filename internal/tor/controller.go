package tor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	xproxy "golang.org/x/net/proxy"
)

// stopTimeout is how long Stop waits for a graceful exit before the
// daemon is killed.
const stopTimeout = 5 * time.Second

// renewTimeout bounds a single circuit renewal inside the rotation
// loop, control round trip and exit probe included.
const renewTimeout = 30 * time.Second

// maxProbeBytes caps the exit-IP echo response.
const maxProbeBytes = 256

// Controller owns the Tor daemon lifecycle and circuit rotation.
//
// When the configured binary is not installed the controller falls
// back to an embedded daemon, so Tor integration works on machines
// without a system Tor package.
type Controller struct {
	binary       string
	args         []string
	controlAddr  string
	socksAddr    string
	password     string
	startupGrace time.Duration
	ipCheckURL   string
	logger       *slog.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	exited   chan struct{}
	embedded *embeddedDaemon
	control  *ControlClient
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for lifecycle and rotation events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStartupGrace overrides how long the daemon gets to come up
// before aliveness is checked.
func WithStartupGrace(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.startupGrace = d
		}
	}
}

// withArgs overrides the daemon arguments. Used in tests.
func withArgs(args ...string) Option {
	return func(c *Controller) {
		c.args = args
	}
}

// Config carries the Tor settings the controller needs.
type Config struct {
	// Binary is the tor executable name or path. Empty means "tor".
	Binary string
	// ControlAddr is the control listener, host:port.
	ControlAddr string
	// SocksAddr is the SOCKS listener, host:port.
	SocksAddr string
	// ControlPassword authenticates control connections. May be empty.
	ControlPassword string
	// StartupGrace is how long the daemon gets to come up.
	StartupGrace time.Duration
	// IPCheckURL is the echo endpoint used to probe the exit IP.
	IPCheckURL string
}

// NewController creates a Controller. The control client targets the
// configured address immediately, so circuit renewal also works
// against a Tor daemon that was already running before us.
func NewController(cfg Config, opts ...Option) *Controller {
	c := &Controller{
		binary:       cfg.Binary,
		controlAddr:  cfg.ControlAddr,
		socksAddr:    cfg.SocksAddr,
		password:     cfg.ControlPassword,
		startupGrace: cfg.StartupGrace,
		ipCheckURL:   cfg.IPCheckURL,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if c.binary == "" {
		c.binary = "tor"
	}
	if c.startupGrace <= 0 {
		c.startupGrace = 5 * time.Second
	}
	for _, opt := range opts {
		opt(c)
	}
	c.control = NewControlClient(c.controlAddr, c.password)
	return c
}

// Start launches the Tor daemon and waits out the startup grace
// period. A daemon that exits within the grace period wraps ErrStart.
// When the binary is not installed the embedded daemon is started
// instead. Starting an already-running controller is a no-op.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.runningLocked() {
		return nil
	}

	path, err := exec.LookPath(c.binary)
	if err != nil {
		c.logger.Info("tor binary not found, starting embedded daemon", "binary", c.binary)
		return c.startEmbeddedLocked(ctx)
	}

	cmd := exec.Command(path, c.args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrStart, err)
	}

	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait() //nolint:errcheck // Exit status handled via channel
		close(exited)
	}()

	grace := time.NewTimer(c.startupGrace)
	defer grace.Stop()
	select {
	case <-exited:
		return fmt.Errorf("%w: daemon exited during startup grace period", ErrStart)
	case <-ctx.Done():
		_ = cmd.Process.Kill() //nolint:errcheck // Best effort cleanup
		return ctx.Err()
	case <-grace.C:
	}

	c.cmd = cmd
	c.exited = exited
	c.logger.Info("tor daemon started", "pid", cmd.Process.Pid, "control", c.controlAddr, "socks", c.socksAddr)
	return nil
}

// startEmbeddedLocked boots the tornago fallback and retargets the
// control client and SOCKS address at its listeners.
func (c *Controller) startEmbeddedLocked(ctx context.Context) error {
	embedded := newEmbeddedDaemon(0)
	if err := embedded.start(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("%w: %v", ErrStart, err)
	}

	c.embedded = embedded
	c.controlAddr = embedded.controlAddr
	c.socksAddr = embedded.socksAddr
	c.control = NewControlClient(c.controlAddr, "")
	c.logger.Info("embedded tor daemon started", "control", c.controlAddr, "socks", c.socksAddr)
	return nil
}

// Stop shuts the daemon down, gracefully first and by force when the
// grace runs out. Stopping a controller that is not running is a no-op.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.embedded != nil {
		err := c.embedded.stop()
		c.embedded = nil
		return err
	}
	if c.cmd == nil {
		return nil
	}

	if err := c.cmd.Process.Signal(os.Interrupt); err != nil {
		_ = c.cmd.Process.Kill() //nolint:errcheck // Fallback below waits it out
	}

	timer := time.NewTimer(stopTimeout)
	defer timer.Stop()
	select {
	case <-c.exited:
	case <-timer.C:
		c.logger.Warn("tor daemon ignored interrupt, killing", "pid", c.cmd.Process.Pid)
		_ = c.cmd.Process.Kill() //nolint:errcheck // Wait channel closes either way
		<-c.exited
	}

	c.cmd = nil
	c.exited = nil
	c.logger.Info("tor daemon stopped")
	return nil
}

// IsRunning reports whether the controller owns a live daemon.
func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runningLocked()
}

func (c *Controller) runningLocked() bool {
	return c.cmd != nil || (c.embedded != nil && c.embedded.running())
}

// SocksAddr returns the SOCKS listener downstream clients should use.
func (c *Controller) SocksAddr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.socksAddr
}

// RenewCircuit requests a fresh circuit over the control port.
func (c *Controller) RenewCircuit(ctx context.Context) error {
	c.mu.Lock()
	control := c.control
	c.mu.Unlock()
	return control.RenewCircuit(ctx)
}

// ExitIP probes the current exit IP through the SOCKS listener.
func (c *Controller) ExitIP(ctx context.Context) (string, error) {
	c.mu.Lock()
	socksAddr := c.socksAddr
	c.mu.Unlock()

	dialer, err := xproxy.SOCKS5("tcp", socksAddr, nil, &net.Dialer{})
	if err != nil {
		return "", fmt.Errorf("socks dialer: %w", err)
	}

	transport := &http.Transport{DisableKeepAlives: true}
	if contextDialer, ok := dialer.(xproxy.ContextDialer); ok {
		transport.DialContext = contextDialer.DialContext
	} else {
		transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ipCheckURL, nil)
	if err != nil {
		return "", fmt.Errorf("build probe request: %w", err)
	}

	client := &http.Client{Transport: transport}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("probe exit ip: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort drain

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBytes))
	if err != nil {
		return "", fmt.Errorf("read probe response: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}

// RotateLoop renews the circuit immediately and then every interval
// until ctx is canceled. Renewal and probe failures are logged and
// skipped; the loop never gives up on its own.
func (c *Controller) RotateLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info("tor rotation loop started", "interval", interval)
	for {
		c.renewOnce(ctx)

		select {
		case <-ctx.Done():
			c.logger.Info("tor rotation loop stopped")
			return
		case <-ticker.C:
		}
	}
}

// renewOnce performs one circuit renewal plus the informational exit-IP
// probe. A failed probe does not undo a successful renewal.
func (c *Controller) renewOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	renewCtx, cancel := context.WithTimeout(ctx, renewTimeout)
	defer cancel()

	if err := c.RenewCircuit(renewCtx); err != nil {
		c.logger.Warn("circuit renewal failed", "error", err)
		return
	}

	if ip, err := c.ExitIP(renewCtx); err != nil {
		c.logger.Debug("exit ip probe failed", "error", err)
	} else {
		c.logger.Info("tor circuit renewed", "exit_ip", ip)
	}
}
