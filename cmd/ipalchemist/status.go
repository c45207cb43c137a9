package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current egress point and rotation history",
		RunE:  runStatusCmd,
	}

	cmd.Flags().IntP("events", "n", 0, "Also show the N most recent rotation events")

	return cmd
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	snap := a.tracker.Snapshot()

	if snap.CurrentProxy == nil {
		fmt.Fprintln(out, "Egress: none applied")
	} else {
		fmt.Fprintf(out, "Egress: %s (%s)\n", snap.CurrentProxy.Addr(), snap.CurrentProxy.Protocol)
		if snap.CurrentProxy.ObservedIP != "" {
			fmt.Fprintf(out, "Observed IP: %s\n", snap.CurrentProxy.ObservedIP)
		}
	}
	if snap.Active {
		fmt.Fprintf(out, "Rotation: active, every %ds\n", snap.IntervalSeconds)
		if snap.EndTime != nil {
			fmt.Fprintf(out, "Rotation ends: %s\n", snap.EndTime.Format(time.RFC3339))
		}
	} else {
		fmt.Fprintln(out, "Rotation: inactive")
	}

	// Collaborator toggles are carried in the config and announced
	// here; enforcing them is up to the external tools.
	if a.cfg.KillSwitch {
		fmt.Fprintln(out, "Kill switch: requested")
	}
	if a.cfg.DNSProtection {
		fmt.Fprintln(out, "DNS protection: requested")
	}
	if a.cfg.TorIntegration {
		fmt.Fprintln(out, "Tor integration: enabled")
	}
	if len(a.cfg.ProxyChain) > 0 {
		fmt.Fprintf(out, "Proxy chain: %d hops\n", len(a.cfg.ProxyChain))
	}

	history := a.engine.History()
	fmt.Fprintf(out, "History (%d entries):\n", len(history))
	for _, entry := range history {
		fmt.Fprintf(out, "  %s  %s:%d (%s)\n",
			entry.AppliedAt.Format(time.RFC3339), entry.Host, entry.Port, entry.Protocol)
	}

	limit, err := cmd.Flags().GetInt("events")
	if err != nil {
		return err
	}
	if limit > 0 {
		events, err := a.openEvents()
		if err != nil {
			return fmt.Errorf("open event log: %w", err)
		}
		defer events.Close() //nolint:errcheck // Read-only use

		recent, err := events.Recent(cmd.Context(), limit)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Events (%d):\n", len(recent))
		for _, event := range recent {
			fmt.Fprintf(out, "  %s  %-17s %s %s\n",
				event.Timestamp.Format(time.RFC3339), event.Kind, event.Proxy, event.Detail)
		}
	}
	return nil
}
