package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/stratalake/dqguard/alert"
	"github.com/stratalake/dqguard/config"
	"github.com/stratalake/dqguard/logger"
)

var sweepIntervalFlag time.Duration

// SweepCmd runs the escalation sweeper in the foreground.
var SweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the alert escalation sweeper",
	Long: `Run the escalation sweeper as a foreground process.

The sweeper periodically walks the open alerts and escalates any whose
configured delay has elapsed without acknowledgement. Use it when
validation cycles run one-shot (cron, CI) and nothing else advances the
escalation ladder between runs.

Press Ctrl+C to stop.`,
	RunE: runSweep,
}

func init() {
	SweepCmd.Flags().DurationVar(&sweepIntervalFlag, "interval", alert.DefaultSweepInterval, "Time between escalation sweeps")
}

func runSweep(cmd *cobra.Command, args []string) error {
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

	sweeper := alert.NewSweeper(manager, sweepIntervalFlag, logger.Logger)
	sweeper.Start()

	watcher := watchConfigFile()
	if watcher != nil {
		defer watcher.Stop()
	}

	pterm.Info.Printf("Escalation sweeper started, sweeping every %s\n", sweepIntervalFlag)
	pterm.Info.Printf("Watching %d open alerts\n", len(manager.Open()))
	pterm.Info.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	pterm.Println()
	pterm.Info.Println("Shutting down")
	sweeper.Stop()

	stats := sweeper.Stats()
	pterm.Success.Printf("Sweeper stopped after %v sweeps\n", stats["sweeps"])
	return nil
}
