package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stratalake/dqguard/cmd/dqguard/commands"
	"github.com/stratalake/dqguard/logger"
)

var rootCmd = &cobra.Command{
	Use:   "dqguard",
	Short: "dqguard - data quality validation orchestration",
	Long: `dqguard - data quality validation orchestration.

dqguard sits above an external rule evaluation engine and decides when
validation is worth running at all: it fingerprints datasets to detect
change, samples large tables, reuses cached outcomes, scores results
against layered thresholds, and drives the alert escalation workflow.

Available commands:
  run     - Validate the manifest targets (once or on an interval)
  sweep   - Run the escalation sweeper in the foreground
  alerts  - Inspect and acknowledge alerts
  config  - Manage dqguard configuration
  version - Show version information

Examples:
  dqguard config init            # Write the default configuration
  dqguard run                    # Run one validation cycle
  dqguard run --interval 10m     # Keep validating until interrupted
  dqguard alerts ls              # Show open alerts
  dqguard alerts ack <alert-id>  # Stop an alert's escalation`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON (for scheduled runs under an orchestrator)")

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.SweepCmd)
	rootCmd.AddCommand(commands.AlertsCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
