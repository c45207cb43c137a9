package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRotateCmd creates the rotate command.
func NewRotateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Select and apply a working egress point once",
		Long: `Rotate performs a single rotation cycle: it probes pool candidates
(favorites first, then by latency) and applies the first working one as
the current egress. The pool is fetched automatically when empty.

Examples:
  # Rotate once using the cached pool
  ipalchemist rotate

  # Rotate from a custom file source
  ipalchemist rotate --source file --file ./proxies.txt`,
		RunE: runRotateCmd,
	}

	cmd.Flags().StringP("source", "s", "", "Pool source override: api, tor, or file")
	cmd.Flags().StringP("url", "u", "", "Online API URL (defaults to the configured api_url)")
	cmd.Flags().StringP("file", "f", "", "Proxy list file path for --source file")

	return cmd
}

// runRotateCmd executes the rotate command.
func runRotateCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	if name, _ := cmd.Flags().GetString("source"); name != "" { //nolint:errcheck // Flag is declared above
		src, err := sourceFromFlags(cmd, cfg)
		if err != nil {
			return err
		}
		if err := a.manager.SetSource(src); err != nil {
			return err
		}
	}

	record, err := a.selector.FindWorking(cmd.Context())
	if err != nil {
		return fmt.Errorf("find working egress: %w", err)
	}
	if record == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "No working egress point found. Try again or switch sources.")
		return nil
	}

	if err := a.engine.Apply(*record); err != nil {
		return err
	}

	if events, err := a.openEvents(); err == nil {
		defer events.Close() //nolint:errcheck // Best effort flush
		if err := events.RecordApply(cmd.Context(), *record); err != nil {
			a.logger.Warn("record apply event failed", "error", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Applied egress %s (%s), observed IP %s, latency %dms\n",
		record.Addr(), record.Protocol, record.ObservedIP, record.LatencyMs)
	return nil
}
