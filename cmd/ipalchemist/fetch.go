package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch a fresh proxy pool from the configured source",
		Long: `Fetch downloads a fresh proxy pool and caches a timestamped snapshot
in the data directory. Records are filtered by latency ceiling,
favorite countries, and protocol preference before entering the pool.

Examples:
  # Fetch from the configured online API
  ipalchemist fetch

  # Fetch from a custom proxy list file
  ipalchemist fetch --source file --file ./proxies.txt

  # Use the Tor network as the egress source
  ipalchemist fetch --source tor`,
		RunE: runFetchCmd,
	}

	cmd.Flags().StringP("source", "s", "api", "Pool source: api, tor, or file")
	cmd.Flags().StringP("url", "u", "", "Online API URL (defaults to the configured api_url)")
	cmd.Flags().StringP("file", "f", "", "Proxy list file path for --source file")

	return cmd
}

// runFetchCmd executes the fetch command.
func runFetchCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	src, err := sourceFromFlags(cmd, cfg)
	if err != nil {
		return err
	}
	if err := a.manager.SetSource(src); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.FetchTimeout.D())
	defer cancel()

	fetched, err := a.manager.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch pool: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d proxies from %s\n", len(fetched), src)
	for i, record := range fetched {
		if i >= 10 {
			fmt.Fprintf(cmd.OutOrStdout(), "  ... and %d more\n", len(fetched)-i)
			break
		}
		marker := " "
		if record.IsFavorite {
			marker = "*"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %-21s %-7s %s\n", marker, record.Addr(), record.Protocol, record.Country)
	}
	return nil
}
