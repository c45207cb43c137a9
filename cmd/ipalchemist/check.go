package main

import (
	"fmt"
	"time"

	"github.com/aryanox/ipalchemist/internal/config"
	"github.com/aryanox/ipalchemist/internal/health"
	"github.com/spf13/cobra"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Health-check every proxy in the pool",
		Long: `Check probes every pool candidate concurrently and reports which ones
answer through the IP echo endpoint. The pool is fetched first when
empty.

Examples:
  # Check the cached pool
  ipalchemist check

  # Check a custom file with more workers
  ipalchemist check --source file --file ./proxies.txt --concurrency 20`,
		RunE: runCheckCmd,
	}

	cmd.Flags().StringP("source", "s", "", "Pool source override: api, tor, or file")
	cmd.Flags().StringP("url", "u", "", "Online API URL (defaults to the configured api_url)")
	cmd.Flags().StringP("file", "f", "", "Proxy list file path for --source file")
	cmd.Flags().IntP("concurrency", "w", health.DefaultBulkConcurrency, "Concurrent probe workers")
	cmd.Flags().DurationP("timeout", "t", config.DefaultCheckTimeout, "Per-proxy probe timeout")

	return cmd
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, _ []string) error {
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

	pool := a.manager.Pool()
	if len(pool) == 0 {
		if pool, err = a.manager.Fetch(cmd.Context()); err != nil {
			return fmt.Errorf("fetch pool: %w", err)
		}
	}
	if len(pool) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Pool is empty, nothing to check.")
		return nil
	}

	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}

	start := time.Now()
	results, err := a.checker.CheckAll(cmd.Context(), pool, timeout, concurrency)
	if err != nil {
		return fmt.Errorf("bulk check: %w", err)
	}

	working := 0
	for i, result := range results {
		if !result.Working {
			continue
		}
		working++
		fmt.Fprintf(cmd.OutOrStdout(), "  %-21s %-7s %4dms  %s\n",
			pool[i].Addr(), pool[i].Protocol, result.LatencyMs, result.ObservedIP)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d/%d proxies working (%s)\n",
		working, len(pool), time.Since(start).Round(time.Millisecond))
	return nil
}
