package commands

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/stratalake/dqguard/alert"
	"github.com/stratalake/dqguard/config"
	"github.com/stratalake/dqguard/errors"
)

var alertsHistoryLimitFlag int

// AlertsCmd groups the alert workflow commands.
var AlertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Inspect and acknowledge quality alerts",
	Long: `Inspect and acknowledge quality alerts.

Alerts open when threshold breaches classify into a severity, escalate
while unacknowledged, and resolve once the breach clears. The records
persist in the alert database, so these commands work between runs.`,
}

var alertsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List open alerts",
	RunE:  runAlertsLs,
}

var alertsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent alert transitions",
	RunE:  runAlertsHistory,
}

var alertsAckCmd = &cobra.Command{
	Use:   "ack <alert-id>",
	Short: "Acknowledge an open alert",
	Long: `Acknowledge an open alert by ID.

Acknowledging halts escalation: the record stays open and keeps
refreshing while its breach persists, but the sweeper no longer
advances it up the ladder.`,
	Args: cobra.ExactArgs(1),
	RunE: runAlertsAck,
}

func init() {
	alertsHistoryCmd.Flags().IntVar(&alertsHistoryLimitFlag, "limit", 20, "Maximum transitions to show")
	AlertsCmd.AddCommand(alertsLsCmd)
	AlertsCmd.AddCommand(alertsHistoryCmd)
	AlertsCmd.AddCommand(alertsAckCmd)
}

func runAlertsLs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	manager, err := newAlertManager(cfg, database)
	if err != nil {
		return err
	}

	open := manager.Open()
	if len(open) == 0 {
		pterm.Success.Println("No open alerts")
		return nil
	}

	pterm.Info.Printf("%d open alerts\n\n", len(open))
	for _, rec := range open {
		printRecord(rec)
	}
	return nil
}

func printRecord(rec alert.Record) {
	pterm.Printf("%s  %s\n", shortID(rec.ID), rec.Identity)
	pterm.Printf("  severity: %s (level %d, %s)\n", rec.Severity, rec.Level, rec.State)
	pterm.Printf("  opened:   %s\n", rec.OpenedAt.Format(time.RFC3339))
	if rec.Acknowledged() {
		pterm.Printf("  acked:    %s\n", rec.AcknowledgedAt.Format(time.RFC3339))
	}
	if rec.Message != "" {
		pterm.Printf("  %s\n", rec.Message)
	}
	pterm.Println()
}

func runAlertsHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	store := alert.NewStore(database)
	rows, err := store.ListRows(alertsHistoryLimitFlag)
	if err != nil {
		return errors.Wrap(err, "failed to read alert history")
	}
	if len(rows) == 0 {
		pterm.Info.Println("No alert history")
		return nil
	}

	total, err := store.Count()
	if err != nil {
		return errors.Wrap(err, "failed to count alert history")
	}

	pterm.Info.Printf("Showing %d of %d transitions (newest first)\n\n", len(rows), total)
	for _, row := range rows {
		pterm.Printf("%s  %s  %s|%s\n", row.CreatedAt.Format(time.RFC3339), row.State, row.Scope, row.Kind)
		pterm.Printf("  alert %s, severity %s, level %d\n", shortID(row.AlertID), row.Severity, row.Level)
		if row.Message != "" {
			pterm.Printf("  %s\n", row.Message)
		}
	}
	return nil
}

func runAlertsAck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	manager, err := newAlertManager(cfg, database)
	if err != nil {
		return err
	}

	rec, err := manager.Acknowledge(args[0])
	if err != nil {
		if errors.IsNotFoundError(err) {
			pterm.Error.Printf("No open alert with ID %s\n", args[0])
		}
		return err
	}

	pterm.Success.Printf("Acknowledged %s (%s)\n", shortID(rec.ID), rec.Identity)
	pterm.Info.Println("Escalation halted; the alert resolves once the breach clears")
	return nil
}
