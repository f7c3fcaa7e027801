package alert

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/stratalake/dqguard/errors"
	"github.com/stratalake/dqguard/quality"
)

// HistoryRow is one persisted state transition. Rows are append-only; the
// open-record set after a restart is the fold of each alert's rows.
type HistoryRow struct {
	ID           int64              `json:"id"`
	AlertID      string             `json:"alert_id"`
	Scope        quality.Scope      `json:"scope"`
	Kind         quality.BreachKind `json:"kind"`
	State        string             `json:"state"`
	Level        int                `json:"level"`
	Severity     quality.Severity   `json:"severity"`
	PercentBelow float64            `json:"percent_below"`
	Breaches     []quality.Breach   `json:"breaches"`
	Message      string             `json:"message,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

// Store persists alert history in the alert_history table.
type Store struct {
	db *sql.DB
}

// NewStore creates an alert history store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append writes one transition row.
func (s *Store) Append(row HistoryRow) error {
	breaches, err := json.Marshal(row.Breaches)
	if err != nil {
		return errors.Wrap(err, "marshal breaches")
	}

	query := `
		INSERT INTO alert_history (
			alert_id, scope_type, scope_layer, scope_dataset, kind,
			state, level, severity, percent_below, breaches, message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.Exec(query,
		row.AlertID,
		string(row.Scope.Type),
		string(row.Scope.Layer),
		row.Scope.Dataset,
		string(row.Kind),
		row.State,
		row.Level,
		string(row.Severity),
		row.PercentBelow,
		string(breaches),
		row.Message,
		row.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return errors.Wrap(err, "append alert history")
	}
	return nil
}

// Trim enforces the retention policy: rows older than retentionDays go
// first, then all but the newest maxEntries. A non-positive bound disables
// that half of the policy. Called after every save.
func (s *Store) Trim(retentionDays, maxEntries int, now time.Time) error {
	if retentionDays > 0 {
		cutoff := now.UTC().AddDate(0, 0, -retentionDays).Format(time.RFC3339)
		if _, err := s.db.Exec(`DELETE FROM alert_history WHERE created_at < ?`, cutoff); err != nil {
			return errors.Wrap(err, "trim alert history by retention")
		}
	}
	if maxEntries > 0 {
		query := `
			DELETE FROM alert_history
			WHERE id IN (
				SELECT id FROM alert_history
				ORDER BY id DESC
				LIMIT -1 OFFSET ?
			)
		`
		if _, err := s.db.Exec(query, maxEntries); err != nil {
			return errors.Wrap(err, "trim alert history by size")
		}
	}
	return nil
}

// ListRows returns the newest rows first, at most limit.
func (s *Store) ListRows(limit int) ([]HistoryRow, error) {
	query := `
		SELECT id, alert_id, scope_type, scope_layer, scope_dataset, kind,
		       state, level, severity, percent_below, breaches, message, created_at
		FROM alert_history
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list alert history")
	}
	defer rows.Close()
	return scanRows(rows)
}

// ListAllAscending returns every row oldest first, for state reconstruction.
func (s *Store) ListAllAscending() ([]HistoryRow, error) {
	query := `
		SELECT id, alert_id, scope_type, scope_layer, scope_dataset, kind,
		       state, level, severity, percent_below, breaches, message, created_at
		FROM alert_history
		ORDER BY id ASC
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, errors.Wrap(err, "list alert history")
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]HistoryRow, error) {
	var out []HistoryRow
	for rows.Next() {
		var (
			row                          HistoryRow
			scopeType, scopeLayer        string
			kind, severity               string
			breaches, createdAt, message string
		)
		if err := rows.Scan(
			&row.ID,
			&row.AlertID,
			&scopeType,
			&scopeLayer,
			&row.Scope.Dataset,
			&kind,
			&row.State,
			&row.Level,
			&severity,
			&row.PercentBelow,
			&breaches,
			&message,
			&createdAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan alert history row")
		}

		row.Scope.Type = quality.ScopeType(scopeType)
		row.Scope.Layer = quality.Layer(scopeLayer)
		row.Kind = quality.BreachKind(kind)
		row.Severity = quality.Severity(severity)
		row.Message = message

		if err := json.Unmarshal([]byte(breaches), &row.Breaches); err != nil {
			return nil, errors.Wrapf(err, "parse breaches for alert %s", row.AlertID)
		}
		created, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, errors.Wrapf(err, "parse created_at for alert %s", row.AlertID)
		}
		row.CreatedAt = created

		out = append(out, row)
	}
	return out, rows.Err()
}

// Count returns the number of stored rows.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM alert_history`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count alert history")
	}
	return n, nil
}
