package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aryanox/ipalchemist/internal/engine"
	"github.com/aryanox/ipalchemist/internal/eventlog"
	"github.com/aryanox/ipalchemist/internal/model"
	"github.com/aryanox/ipalchemist/internal/relay"
	"github.com/aryanox/ipalchemist/internal/rotation"
	"github.com/aryanox/ipalchemist/internal/tor"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds how long the relay server gets to drain
// in-flight requests on exit.
const shutdownTimeout = 5 * time.Second

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the relay endpoint and the rotation loop",
		Long: `Run starts the long-lived process: the relay status endpoint on its
fixed address, the rotation loop (when enabled), and optionally a Tor
daemon with periodic circuit renewal. The process exits cleanly on
SIGINT or SIGTERM after stopping every loop and flushing state.

Examples:
  # Serve the relay endpoint; rotate only if auto_start is configured
  ipalchemist run

  # Rotate every two minutes for one hour
  ipalchemist run --rotate --interval 2m --duration 1h`,
		RunE: runRunCmd,
	}

	cmd.Flags().Bool("rotate", false, "Start rotation immediately (implied by auto_start)")
	cmd.Flags().DurationP("interval", "i", 0, "Rotation interval (default: configured rotation_interval)")
	cmd.Flags().DurationP("duration", "d", 0, "Total rotation duration, 0 means unbounded")

	return cmd
}

// recordingApplier wraps the engine so every successful apply also
// lands in the event log.
type recordingApplier struct {
	engine *engine.Engine
	events *eventlog.DB
}

// Apply implements rotation.Applier.
func (r *recordingApplier) Apply(record model.ProxyRecord) error {
	if err := r.engine.Apply(record); err != nil {
		return err
	}
	if r.events != nil {
		// The apply already succeeded; a lost event is not worth
		// failing the cycle over.
		_ = r.events.RecordApply(context.Background(), record) //nolint:errcheck // Best effort
	}
	return nil
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, _ []string) error {
	a, err := appFor(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// These toggles belong to external collaborators (firewall, DNS,
	// chain proxy). The core only announces them.
	if a.cfg.KillSwitch {
		a.logger.Info("kill switch requested, signal forwarded to firewall collaborator")
	}
	if a.cfg.DNSProtection {
		a.logger.Info("dns protection requested, signal forwarded to resolver collaborator")
	}
	if len(a.cfg.ProxyChain) > 0 {
		a.logger.Info("proxy chain requested", "hops", len(a.cfg.ProxyChain))
	}

	events, err := a.openEvents()
	if err != nil {
		a.logger.Warn("event log unavailable", "error", err)
		events = nil
	} else {
		defer events.Close() //nolint:errcheck // Best effort flush
	}

	// Relay endpoint. Its address is what downstream clients use, so a
	// failed bind is fatal.
	server := relay.NewServer(a.cfg.RelayHost, a.cfg.RelayPort, a.tracker, relay.WithLogger(a.logger))
	if err := server.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("relay shutdown failed", "error", err)
		}
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "Relay endpoint listening on %s\n", server.Addr())

	// Tor integration runs its own renewal loop, independent of the
	// proxy rotation scheduler.
	var torCancel context.CancelFunc
	if a.cfg.TorIntegration {
		controller := tor.NewController(tor.Config{
			Binary:          a.cfg.TorBinary,
			ControlAddr:     a.cfg.TorControlAddr,
			SocksAddr:       a.cfg.TorSocksAddr,
			ControlPassword: a.cfg.TorControlPass,
			StartupGrace:    a.cfg.TorStartupGrace.D(),
			IPCheckURL:      a.cfg.IPCheckURL,
		}, tor.WithLogger(a.logger))

		if err := controller.Start(ctx); err != nil {
			return fmt.Errorf("tor integration: %w", err)
		}
		defer func() {
			if err := controller.Stop(); err != nil {
				a.logger.Warn("tor shutdown failed", "error", err)
			}
		}()

		var torCtx context.Context
		torCtx, torCancel = context.WithCancel(ctx)
		defer torCancel()
		go controller.RotateLoop(torCtx, a.cfg.RotationInterval.D())
	}

	scheduler := rotation.NewScheduler(a.selector, &recordingApplier{engine: a.engine, events: events},
		a.tracker, rotation.WithLogger(a.logger))

	if shouldRotate(cmd, a) {
		interval, duration, err := rotationWindow(cmd, a)
		if err != nil {
			return err
		}
		if err := scheduler.Start(interval, duration); err != nil {
			return err
		}
		if events != nil {
			detail := fmt.Sprintf("interval=%s duration=%s", interval, duration)
			if err := events.Record(ctx, eventlog.KindRotationStarted, detail); err != nil {
				a.logger.Warn("record rotation start failed", "error", err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Rotation running every %s\n", interval)
	}

	<-ctx.Done()
	a.logger.Info("shutdown signal received")

	if scheduler.Stop() && events != nil {
		if err := events.Record(context.Background(), eventlog.KindRotationStopped, "shutdown"); err != nil {
			a.logger.Warn("record rotation stop failed", "error", err)
		}
	}
	if torCancel != nil {
		torCancel()
	}
	return nil
}

// shouldRotate decides whether run starts the rotation loop.
func shouldRotate(cmd *cobra.Command, a *app) bool {
	if rotate, err := cmd.Flags().GetBool("rotate"); err == nil && rotate {
		return true
	}
	return a.cfg.AutoStart
}

// rotationWindow resolves the interval and duration from flags with
// the configuration as fallback.
func rotationWindow(cmd *cobra.Command, a *app) (interval, duration time.Duration, err error) {
	interval, err = cmd.Flags().GetDuration("interval")
	if err != nil {
		return 0, 0, err
	}
	if interval <= 0 {
		interval = a.cfg.RotationInterval.D()
	}

	duration, err = cmd.Flags().GetDuration("duration")
	if err != nil {
		return 0, 0, err
	}
	if duration <= 0 {
		duration = a.cfg.RotationDuration.D()
	}
	return interval, duration, nil
}
