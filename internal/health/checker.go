package health

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	xproxy "golang.org/x/net/proxy"
	"h12.io/socks"

	"github.com/aryanox/ipalchemist/internal/model"
)

// DefaultTimeout bounds a standalone check. Selection uses a longer
// timeout because a false negative there discards a whole candidate.
const DefaultTimeout = 3 * time.Second

// maxEchoBytes bounds the IP-echo response read. The endpoint returns a
// single address; anything larger is not the endpoint we think it is.
const maxEchoBytes = 256

// Result is the outcome of probing one candidate.
type Result struct {
	// Working reports whether the candidate carried the probe.
	Working bool

	// ObservedIP is the externally visible IP the echo endpoint reported.
	// Empty unless Working.
	ObservedIP string

	// LatencyMs is the wall-clock round trip in milliseconds, DNS
	// pre-resolution excluded. Negative unless Working.
	LatencyMs int
}

// Checker probes candidates against a configured IP-echo endpoint.
type Checker struct {
	echoURL string
	logger  *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the checker's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) { c.logger = logger }
}

// NewChecker returns a Checker probing through candidates to echoURL.
func NewChecker(echoURL string, opts ...Option) *Checker {
	c := &Checker{echoURL: echoURL}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Check probes one candidate with the given timeout. A zero timeout
// selects DefaultTimeout. Check never returns an error: every failure
// mode is the routine "not working" signal.
func (c *Checker) Check(ctx context.Context, record model.ProxyRecord, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport, err := c.transport(record, timeout)
	if err != nil {
		c.logger.Debug("health check rejected candidate", "proxy", record.Addr(), "error", err)
		return Result{LatencyMs: -1}
	}
	client := &http.Client{Transport: transport, Timeout: timeout}
	defer transport.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.echoURL, nil)
	if err != nil {
		return Result{LatencyMs: -1}
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		c.logger.Debug("health check failed", "proxy", record.Addr(), "error", err)
		return Result{LatencyMs: -1}
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort drain

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEchoBytes))
	latency := int(time.Since(start).Milliseconds())
	if err != nil || resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("health check failed", "proxy", record.Addr(), "status", resp.StatusCode)
		return Result{LatencyMs: -1}
	}

	return Result{
		Working:    true,
		ObservedIP: strings.TrimSpace(string(body)),
		LatencyMs:  latency,
	}
}

// transport builds an HTTP transport routing through the candidate.
//
// HTTP and HTTPS proxies go through the standard proxy mechanism. SOCKS5
// uses golang.org/x/net/proxy; SOCKS4 is not covered there, so it goes
// through h12.io/socks.
func (c *Checker) transport(record model.ProxyRecord, timeout time.Duration) (*http.Transport, error) {
	switch record.Protocol {
	case model.ProtocolHTTP, model.ProtocolHTTPS:
		proxyURL, err := url.Parse(record.URL())
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		return &http.Transport{
			Proxy:             http.ProxyURL(proxyURL),
			DisableKeepAlives: true,
		}, nil

	case model.ProtocolSOCKS5:
		dialer, err := xproxy.SOCKS5("tcp", record.Addr(), nil, &net.Dialer{Timeout: timeout})
		if err != nil {
			return nil, fmt.Errorf("failed to build socks5 dialer: %w", err)
		}
		return &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := dialer.(xproxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			},
			DisableKeepAlives: true,
		}, nil

	case model.ProtocolSOCKS4:
		dial := socks.Dial(fmt.Sprintf("socks4://%s?timeout=%s", record.Addr(), timeout))
		return &http.Transport{
			Dial:              dial,
			DisableKeepAlives: true,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported proxy protocol %q", record.Protocol)
	}
}
