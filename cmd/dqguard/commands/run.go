package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/stratalake/dqguard/alert"
	"github.com/stratalake/dqguard/config"
	"github.com/stratalake/dqguard/dataset"
	"github.com/stratalake/dqguard/errors"
	"github.com/stratalake/dqguard/logger"
	"github.com/stratalake/dqguard/report"
	"github.com/stratalake/dqguard/runner"
	"github.com/stratalake/dqguard/validate"
)

var (
	runOutFlag      string
	runManifestFlag string
	runIntervalFlag time.Duration
)

// RunCmd validates the manifest targets.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Validate the manifest targets",
	Long: `Run validation cycles over the datasets declared in the manifest.

Each cycle fingerprints every target, skips datasets whose data has not
moved, reuses fresh cached outcomes, executes the rest through the
validation engine, and scores the results against the configured
thresholds. Breaches classify into severities and feed the alert
workflow.

With --interval the command keeps cycling until interrupted and runs
the escalation sweeper alongside, advancing overdue alerts between
cycles.

Examples:
  dqguard run                          # One cycle
  dqguard run --out summary.json       # One cycle, summary written as JSON
  dqguard run --interval 10m           # Cycle every 10 minutes until Ctrl+C`,
	RunE: runValidation,
}

func init() {
	RunCmd.Flags().StringVarP(&runOutFlag, "out", "o", "", "Write each cycle summary as JSON to this path")
	RunCmd.Flags().StringVar(&runManifestFlag, "manifest", "", "Dataset manifest path (defaults to the configured one)")
	RunCmd.Flags().DurationVar(&runIntervalFlag, "interval", 0, "Re-run cycles at this interval until interrupted (0 runs once)")
}

func runValidation(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	manifestPath := runManifestFlag
	if manifestPath == "" {
		manifestPath = cfg.GetManifestPath()
	}
	manifest, err := dataset.LoadManifest(manifestPath)
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

	r, err := runner.New(*cfg, dataset.CSVOpener, validate.NewBasicExecutor(logger.Logger), manager, logger.Logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		pterm.Println()
		pterm.Warning.Println("Interrupt received, finishing up")
		cancel()
	}()

	pterm.Info.Printf("Validating %d targets from %s\n", len(manifest.Targets), manifestPath)

	if runIntervalFlag <= 0 {
		summary, err := r.RunCycle(ctx, manifest.Targets)
		printSummary(summary)
		if err != nil {
			return err
		}
		return exportSummary(summary)
	}

	sweeper := alert.NewSweeper(manager, alert.DefaultSweepInterval, logger.Logger)
	sweeper.Start()
	defer sweeper.Stop()

	watcher := watchConfigFile()
	if watcher != nil {
		defer watcher.Stop()
	}

	ticker := time.NewTicker(runIntervalFlag)
	defer ticker.Stop()

	pterm.Info.Printf("Cycling every %s, press Ctrl+C to stop\n", runIntervalFlag)
	for {
		summary, err := r.RunCycle(ctx, manifest.Targets)
		printSummary(summary)
		if ctx.Err() != nil {
			pterm.Info.Println("Stopped")
			return nil
		}
		if err != nil {
			pterm.Error.Printf("Cycle reported errors: %v\n", err)
		} else if err := exportSummary(summary); err != nil {
			pterm.Warning.Printf("Failed to write summary: %v\n", err)
		}

		select {
		case <-ctx.Done():
			pterm.Info.Println("Stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// watchConfigFile starts the config file watcher when a user config
// exists. Edits are logged; they take effect on the next start.
func watchConfigFile() *config.Watcher {
	path := config.DefaultUserConfigPath()
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	watcher, err := config.NewWatcher(path)
	if err != nil {
		logger.Warnw("Config watcher unavailable", "path", path, "error", err)
		return nil
	}
	watcher.OnReload(func(*config.Config) error {
		pterm.Warning.Println("Configuration changed on disk; restart to apply")
		return nil
	})
	config.SetGlobalWatcher(watcher)
	watcher.Start()
	return watcher
}

func exportSummary(s report.Summary) error {
	if runOutFlag == "" {
		return nil
	}
	if err := s.WriteJSON(runOutFlag); err != nil {
		return errors.Wrap(err, "failed to export summary")
	}
	pterm.Info.Printf("Summary written to %s\n", runOutFlag)
	return nil
}

func printSummary(s report.Summary) {
	pterm.Println()
	healthy := s.FailureCount == 0 && s.ExecutionErrors == 0 && len(s.Breaches) == 0
	if healthy {
		pterm.Success.Printf("Cycle %s complete\n", shortID(s.CycleID))
	} else {
		pterm.Warning.Printf("Cycle %s completed with findings\n", shortID(s.CycleID))
	}

	pterm.Printf("  Validated:    %d (%d passed, %d failed)\n", s.TotalValidations, s.SuccessCount, s.FailureCount)
	pterm.Printf("  Skipped:      %d (%d reused from cache)\n", s.SkippedCount, s.ReusedCount)
	pterm.Printf("  Errors:       %d\n", s.ExecutionErrors)
	pterm.Printf("  Success rate: %.2f%%\n", s.SuccessRate)
	pterm.Printf("  Duration:     %dms\n", s.DurationMs)

	for _, f := range s.Failures {
		if f.TimedOut {
			pterm.Error.Printf("  timed out: %s (%s)\n", f.Key, f.Suite)
		} else {
			pterm.Error.Printf("  execution error: %s: %s\n", f.Key, f.Error)
		}
	}

	if len(s.Breaches) > 0 {
		pterm.Println()
		pterm.Warning.Printf("Threshold breaches: %d\n", len(s.Breaches))
		for _, b := range s.Breaches {
			pterm.Printf("  %s %s: threshold %.2f, actual %.2f\n", b.Scope, b.Kind, b.Threshold, b.Actual)
		}
	}

	for _, rec := range s.AlertsRaised {
		pterm.Error.Printf("ALERT %s\n", rec.Message)
	}
	for _, rec := range s.AlertsEscalated {
		pterm.Error.Printf("ALERT %s\n", rec.Message)
	}
	for _, rec := range s.AlertsResolved {
		pterm.Success.Printf("RESOLVED %s\n", rec.Identity)
	}

	if len(s.Resources.Warnings) > 0 {
		for _, w := range s.Resources.Warnings {
			pterm.Warning.Printf("  %s\n", w)
		}
	}
	pterm.Println()
}

// shortID trims a uuid to its first group for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
