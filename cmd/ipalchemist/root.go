// Package main provides the entry point for the ipalchemist CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for ipalchemist.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ipalchemist",
		Short: "Rotating egress point manager",
		Long: `ipalchemist manages rotating egress points. It fetches proxy pools
from online APIs, local files, or the Tor network, health-checks the
candidates, applies a working one as the system egress, and rotates it
on a timer. Downstream clients keep talking to one fixed local address
while the real egress changes behind it.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "", "Configuration file path (default: XDG config dir)")

	// Add subcommands
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewFetchCmd())
	cmd.AddCommand(NewRotateCmd())
	cmd.AddCommand(NewClearCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewFavoritesCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
