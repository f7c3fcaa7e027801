package alert

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stratalake/dqguard/config"
	"github.com/stratalake/dqguard/errors"
	"github.com/stratalake/dqguard/internal/util"
	"github.com/stratalake/dqguard/quality"
)

// Config collects the alerting sections of the application configuration.
type Config struct {
	Severity   config.SeverityLevelsConfig
	Escalation config.EscalationConfig
	History    config.HistoryConfig
}

// Manager owns the open-record set and drives the alert state machine.
// Apply consumes one evaluation cycle's breaches, opening and resolving
// records; Sweep advances open records along the escalation ladder once
// their delays expire. Every state transition appends a history row, and
// the history is trimmed after each batch of writes.
type Manager struct {
	classifier *Classifier
	store      *Store
	dispatcher *Dispatcher
	cfg        Config
	log        *zap.SugaredLogger

	mu   sync.Mutex
	open map[Identity]*Record

	timeNow func() time.Time // Injectable for testing
}

// outbound is a notification staged under the manager lock and dispatched
// after it is released.
type outbound struct {
	channels []string
	event    Event
}

// NewManager creates a manager and restores the open-record set from the
// history store.
func NewManager(store *Store, dispatcher *Dispatcher, cfg Config, log *zap.SugaredLogger) (*Manager, error) {
	return NewManagerWithClock(store, dispatcher, cfg, log, time.Now)
}

// NewManagerWithClock creates a manager with an injectable time source.
func NewManagerWithClock(store *Store, dispatcher *Dispatcher, cfg Config, log *zap.SugaredLogger, clock func() time.Time) (*Manager, error) {
	m := &Manager{
		classifier: NewClassifier(cfg.Severity, log),
		store:      store,
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        log,
		open:       make(map[Identity]*Record),
		timeNow:    clock,
	}
	if err := m.restore(); err != nil {
		return nil, err
	}
	return m, nil
}

// restore folds the persisted history into the open-record set. An alert
// whose last row is not a resolution is still open; acknowledgement rows
// set the acknowledged timestamp without changing the record state.
func (m *Manager) restore() error {
	rows, err := m.store.ListAllAscending()
	if err != nil {
		return errors.Wrap(err, "restoring alert state from history")
	}

	working := make(map[string]*Record)
	for _, row := range rows {
		rec, ok := working[row.AlertID]
		if !ok {
			if State(row.State) == StateResolved {
				// Resolution for an alert whose earlier rows were trimmed.
				continue
			}
			rec = &Record{
				ID:       row.AlertID,
				Identity: Identity{Scope: row.Scope, Kind: row.Kind},
				OpenedAt: row.CreatedAt,
			}
			working[row.AlertID] = rec
		}
		switch State(row.State) {
		case StateResolved:
			delete(working, row.AlertID)
		case State(stateAcknowledged):
			rec.AcknowledgedAt = util.Ptr(row.CreatedAt)
		default:
			rec.State = State(row.State)
			rec.Level = row.Level
			rec.Severity = row.Severity
			rec.PercentBelow = row.PercentBelow
			rec.Breaches = row.Breaches
			rec.Message = row.Message
			rec.LastTransitionAt = row.CreatedAt
		}
	}

	restored := 0
	for _, rec := range working {
		if rec.State == "" {
			// Trimming can leave an alert whose oldest surviving row is
			// an acknowledgement; without its open row there is nothing
			// to resume, and sweeping it would walk the ladder from a
			// zero level.
			if m.log != nil {
				m.log.Debugw("Ignoring trimmed alert history fragment", "alert_id", rec.ID)
			}
			continue
		}
		m.open[rec.Identity] = rec
		restored++
	}
	if restored > 0 && m.log != nil {
		m.log.Infow("Restored open alerts from history", "count", restored)
	}
	return nil
}

// Apply consumes one evaluation cycle's breaches. Open records whose
// identity produced no breach this cycle resolve. Identities breaching for
// the first time open a record, but only when the cycle's deviation reached
// an alerting band; an already-open record is refreshed in place, which is
// not a state transition and writes no history row. Severity on a refresh
// only moves up.
func (m *Manager) Apply(ctx context.Context, breaches []quality.Breach) ([]Transition, error) {
	now := m.timeNow()

	current := make(map[Identity][]quality.Breach)
	for _, b := range breaches {
		id := IdentityOf(b)
		current[id] = append(current[id], b)
	}

	cls, alerting := m.classifier.Classify(breaches)

	m.mu.Lock()
	var transitions []Transition
	var pending []outbound
	var errs error
	saved := false

	for _, id := range sortedIdentities(m.open) {
		if _, still := current[id]; still {
			continue
		}
		rec := m.open[id]
		from := rec.State
		rec.State = StateResolved
		rec.ResolvedAt = util.Ptr(now)
		rec.LastTransitionAt = now
		rec.Message = eventMessage(rec, StateResolved)
		delete(m.open, id)

		transitions = append(transitions, Transition{Record: rec.snapshot(), From: from, To: StateResolved})
		if err := m.append(rec, string(StateResolved), now); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
		saved = true
		m.log.Infow("Alert resolved",
			"alert_id", rec.ID,
			"identity", id.String(),
			"severity", string(rec.Severity))
	}

	for _, id := range sortedIdentities(current) {
		group := current[id]
		if rec, ok := m.open[id]; ok {
			rec.Breaches = append([]quality.Breach(nil), group...)
			if alerting && cls.Severity.Rank() > rec.Severity.Rank() {
				rec.Severity = cls.Severity
			}
			if alerting && cls.PercentBelow > rec.PercentBelow {
				rec.PercentBelow = cls.PercentBelow
			}
			continue
		}
		if !alerting {
			continue
		}

		rec := &Record{
			ID:               uuid.New().String(),
			Identity:         id,
			State:            StateOpen,
			Level:            1,
			Severity:         cls.Severity,
			PercentBelow:     cls.PercentBelow,
			Breaches:         append([]quality.Breach(nil), group...),
			OpenedAt:         now,
			LastTransitionAt: now,
		}
		rec.Message = eventMessage(rec, StateOpen)
		m.open[id] = rec

		transitions = append(transitions, Transition{Record: rec.snapshot(), To: StateOpen})
		if err := m.append(rec, string(StateOpen), now); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
		saved = true
		pending = append(pending, outbound{
			channels: cls.Channels,
			event: Event{
				Record:   rec.snapshot(),
				To:       StateOpen,
				Contacts: m.contacts(1),
				Message:  rec.Message,
			},
		})
		m.log.Warnw("Alert opened",
			"alert_id", rec.ID,
			"identity", id.String(),
			"severity", string(cls.Severity),
			"percent_below", cls.PercentBelow)
	}
	m.mu.Unlock()

	if saved {
		if err := m.trim(now); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	for _, out := range pending {
		m.dispatcher.Dispatch(ctx, out.channels, out.event)
	}
	return transitions, errs
}

// Sweep advances open, unacknowledged records whose next escalation delay
// has expired and notifies each newly engaged level's contacts. A record
// can climb several levels in one sweep if sweeps were delayed; due times
// chain from the schedule, not from when the sweep happened to run.
func (m *Manager) Sweep(ctx context.Context) ([]Transition, error) {
	now := m.timeNow()

	m.mu.Lock()
	var transitions []Transition
	var pending []outbound
	var errs error
	saved := false

	for _, id := range sortedIdentities(m.open) {
		rec := m.open[id]
		if rec.Acknowledged() {
			continue
		}
		band, haveBand := m.cfg.Severity.ByName(string(rec.Severity))
		if haveBand && !band.Escalation {
			continue
		}

		for {
			next, ok := m.nextLevel(rec.Level)
			if !ok {
				break
			}
			due := m.dueAt(rec, band, haveBand, next)
			if now.Before(due) {
				break
			}

			from := rec.State
			rec.State = StateEscalated
			rec.Level = next.Level
			rec.LastTransitionAt = due
			rec.Message = eventMessage(rec, StateEscalated)

			transitions = append(transitions, Transition{Record: rec.snapshot(), From: from, To: StateEscalated})
			if err := m.append(rec, string(StateEscalated), due); err != nil {
				errs = errors.CombineErrors(errs, err)
			}
			saved = true
			pending = append(pending, outbound{
				channels: band.NotificationChannels,
				event: Event{
					Record:   rec.snapshot(),
					To:       StateEscalated,
					Contacts: next.Contacts,
					Message:  rec.Message,
				},
			})
			m.log.Warnw("Alert escalated",
				"alert_id", rec.ID,
				"identity", id.String(),
				"level", rec.Level,
				"severity", string(rec.Severity))
		}
	}
	m.mu.Unlock()

	if saved {
		if err := m.trim(now); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	for _, out := range pending {
		m.dispatcher.Dispatch(ctx, out.channels, out.event)
	}
	return transitions, errs
}

// Acknowledge marks the open record with the given id as claimed by an
// operator, which halts escalation. The record keeps its state and still
// resolves normally when its identity stops breaching. Acknowledging an
// already-acknowledged record is a no-op.
func (m *Manager) Acknowledge(id string) (Record, error) {
	now := m.timeNow()

	m.mu.Lock()
	var target *Record
	for _, rec := range m.open {
		if rec.ID == id {
			target = rec
			break
		}
	}
	if target == nil {
		m.mu.Unlock()
		return Record{}, errors.Wrapf(errors.ErrNotFound, "no open alert with id %s", id)
	}
	if target.Acknowledged() {
		snap := target.snapshot()
		m.mu.Unlock()
		return snap, nil
	}

	target.AcknowledgedAt = util.Ptr(now)
	snap := target.snapshot()
	err := m.append(target, stateAcknowledged, now)
	m.mu.Unlock()

	if trimErr := m.trim(now); trimErr != nil {
		err = errors.CombineErrors(err, trimErr)
	}
	m.log.Infow("Alert acknowledged",
		"alert_id", snap.ID,
		"identity", snap.Identity.String(),
		"level", snap.Level)
	return snap, err
}

// Open returns snapshots of the open records, ordered by identity.
func (m *Manager) Open() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Record, 0, len(m.open))
	for _, id := range sortedIdentities(m.open) {
		out = append(out, m.open[id].snapshot())
	}
	return out
}

// append writes one history row for rec. The row state may differ from the
// record state: acknowledgements are recorded while the record keeps its
// open or escalated state.
func (m *Manager) append(rec *Record, state string, at time.Time) error {
	err := m.store.Append(HistoryRow{
		AlertID:      rec.ID,
		Scope:        rec.Identity.Scope,
		Kind:         rec.Identity.Kind,
		State:        state,
		Level:        rec.Level,
		Severity:     rec.Severity,
		PercentBelow: rec.PercentBelow,
		Breaches:     rec.Breaches,
		Message:      rec.Message,
		CreatedAt:    at,
	})
	if err != nil {
		return errors.Wrapf(err, "recording %s transition for alert %s", state, rec.ID)
	}
	return nil
}

func (m *Manager) trim(now time.Time) error {
	if m.cfg.History.RetentionDays <= 0 && m.cfg.History.MaxEntries <= 0 {
		return nil
	}
	return m.store.Trim(m.cfg.History.RetentionDays, m.cfg.History.MaxEntries, now)
}

// dueAt returns when rec may advance to next. The first hop out of level 1
// waits the severity band's escalation delay, counted from when the alert
// opened; later hops wait the ladder level's own delay, counted from the
// previous level's scheduled engagement.
func (m *Manager) dueAt(rec *Record, band config.SeverityLevelConfig, haveBand bool, next config.EscalationLevelConfig) time.Time {
	if rec.Level <= 1 {
		if haveBand {
			return rec.OpenedAt.Add(band.EscalationDelay())
		}
		return rec.OpenedAt.Add(next.Delay())
	}
	return rec.LastTransitionAt.Add(next.Delay())
}

func (m *Manager) nextLevel(current int) (config.EscalationLevelConfig, bool) {
	for _, lvl := range m.cfg.Escalation.Levels {
		if lvl.Level == current+1 {
			return lvl, true
		}
	}
	return config.EscalationLevelConfig{}, false
}

func (m *Manager) contacts(level int) []string {
	for _, lvl := range m.cfg.Escalation.Levels {
		if lvl.Level == level {
			return lvl.Contacts
		}
	}
	return nil
}

func sortedIdentities[V any](byIdentity map[Identity]V) []Identity {
	ids := make([]Identity, 0, len(byIdentity))
	for id := range byIdentity {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
