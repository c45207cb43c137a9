package tor

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/tornago"
)

// defaultBootstrapTimeout bounds how long the embedded daemon may take
// to join the Tor network. Bootstrapping downloads directory data and
// builds initial circuits, which can take minutes on a cold start.
const defaultBootstrapTimeout = 3 * time.Minute

// embeddedDaemon runs Tor through tornago when no system binary is
// installed. It is the fallback behind Controller; the controller owns
// its lifecycle and surfaces its listener addresses.
type embeddedDaemon struct {
	process          *tornago.TorProcess
	socksAddr        string
	controlAddr      string
	bootstrapTimeout time.Duration
}

func newEmbeddedDaemon(bootstrapTimeout time.Duration) *embeddedDaemon {
	if bootstrapTimeout <= 0 {
		bootstrapTimeout = defaultBootstrapTimeout
	}
	return &embeddedDaemon{bootstrapTimeout: bootstrapTimeout}
}

// start launches the embedded daemon and blocks until it bootstraps.
// Ports are OS-assigned so the embedded daemon never collides with a
// half-configured system Tor on the default ports.
func (e *embeddedDaemon) start(ctx context.Context) error {
	launchCfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(e.bootstrapTimeout),
	)
	if err != nil {
		return fmt.Errorf("embedded tor launch config: %w", err)
	}

	process, err := tornago.StartTorDaemon(launchCfg)
	if err != nil {
		return fmt.Errorf("start embedded tor: %w", err)
	}

	select {
	case <-ctx.Done():
		_ = process.Stop() //nolint:errcheck // Best effort cleanup
		return ctx.Err()
	default:
	}

	e.process = process
	e.socksAddr = process.SocksAddr()
	e.controlAddr = process.ControlAddr()
	return nil
}

// stop shuts the embedded daemon down. Safe to call repeatedly.
func (e *embeddedDaemon) stop() error {
	if e.process == nil {
		return nil
	}
	err := e.process.Stop()
	e.process = nil
	return err
}

func (e *embeddedDaemon) running() bool {
	return e.process != nil
}
