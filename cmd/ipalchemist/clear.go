package main

import (
	"fmt"

	"github.com/aryanox/ipalchemist/internal/eventlog"
	"github.com/spf13/cobra"
)

// NewClearCmd creates the clear command.
func NewClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the applied egress configuration",
		Long: `Clear unsets the proxy environment variables, removes the proxy
directive file, and forgets the current egress point.`,
		RunE: runClearCmd,
	}
}

// runClearCmd executes the clear command.
func runClearCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	if err := a.engine.Clear(); err != nil {
		return err
	}

	if events, err := a.openEvents(); err == nil {
		defer events.Close() //nolint:errcheck // Best effort flush
		if err := events.Record(cmd.Context(), eventlog.KindCleared, ""); err != nil {
			a.logger.Warn("record clear event failed", "error", err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Egress configuration cleared.")
	return nil
}
