package commands

import (
	"database/sql"

	"github.com/stratalake/dqguard/alert"
	"github.com/stratalake/dqguard/config"
	"github.com/stratalake/dqguard/db"
	"github.com/stratalake/dqguard/errors"
	"github.com/stratalake/dqguard/logger"
)

// openDatabase opens and migrates the alert history database at the
// configured path.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	path := cfg.GetDatabasePath()

	database, err := db.Open(path, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", path)
	}

	if err := db.Migrate(database, logger.Logger); err != nil {
		database.Close()
		return nil, errors.Wrapf(err, "failed to run migrations on %s", path)
	}

	return database, nil
}

// newAlertManager builds the alert workflow over an open database:
// history store, throttled log notifier, and the manager itself, which
// restores open alerts from history.
func newAlertManager(cfg *config.Config, database *sql.DB) (*alert.Manager, error) {
	dispatcher := alert.NewDispatcher(
		alert.NewLogNotifier(logger.Logger),
		cfg.Notifications.MaxPerMinute,
		logger.Logger,
	)
	return alert.NewManager(alert.NewStore(database), dispatcher, alert.Config{
		Severity:   cfg.Severity,
		Escalation: cfg.Escalation,
		History:    cfg.History,
	}, logger.Logger)
}
