package main

import (
	"fmt"
	"os"

	"github.com/aryanox/ipalchemist/internal/config"
	"github.com/spf13/cobra"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default settings",
		Long: `Init writes a configuration file populated with the default settings
so every option is visible and editable.

Examples:
  # Create the config in the XDG config directory
  ipalchemist init

  # Create a config at a specific path
  ipalchemist init -o ./ipalchemist.yaml

  # Overwrite an existing file
  ipalchemist init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", "", "Output path (default: XDG config dir)")
	cmd.Flags().BoolP("force", "f", false, "Overwrite an existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if outputPath == "" {
		outputPath = config.DefaultPath()
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	if err := config.Save(config.NewConfig(), outputPath); err != nil {
		return fmt.Errorf("write configuration file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created configuration file: %s\n", outputPath)
	return nil
}
