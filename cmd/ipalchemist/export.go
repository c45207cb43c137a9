package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aryanox/ipalchemist/internal/report"
	"github.com/spf13/cobra"
)

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the pool, favorites, and rotation history",
		Long: `Export writes a snapshot of the rotation state for sharing or tool
integration.

Examples:
  # JSON to stdout
  ipalchemist export --json

  # Markdown report to a file
  ipalchemist export --markdown -o report.md`,
		RunE: runExportCmd,
	}

	cmd.Flags().BoolP("json", "j", false, "Export JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false, "Export Markdown (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "", "Write to the given file instead of stdout")

	return cmd
}

// runExportCmd executes the export command.
func runExportCmd(cmd *cobra.Command, _ []string) error {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	asMarkdown, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if asJSON && asMarkdown {
		return fmt.Errorf("--json and --markdown are mutually exclusive")
	}

	a, err := appFor(cmd)
	if err != nil {
		return err
	}

	snap := a.tracker.Snapshot()
	export := &report.Snapshot{
		GeneratedAt:     time.Now(),
		Current:         snap.CurrentProxy,
		RotationActive:  snap.Active,
		IntervalSeconds: snap.IntervalSeconds,
		Pool:            a.manager.Pool(),
		Favorites:       a.manager.Favorites(),
		History:         a.engine.History(),
	}

	output := cmd.OutOrStdout()
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if outputPath != "" {
		if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
		}
		file, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer file.Close() //nolint:errcheck // Write errors surface below
		output = file
	}

	writer := newExportWriter(output, asMarkdown)
	if _, err := writer.Write(export); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	if outputPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", outputPath)
	}
	return nil
}

// newExportWriter picks the report format. JSON is the default since
// exports usually feed other tools.
func newExportWriter(output io.Writer, asMarkdown bool) report.Writer {
	if asMarkdown {
		return report.NewMarkdownWriter(output)
	}
	return report.NewJSONWriter(output, report.WithPrettyPrint())
}
