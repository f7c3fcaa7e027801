// Package alert turns threshold breaches into tracked, escalating alerts.
// An alert is keyed by its identity (scope plus breach kind): at most one
// record per identity is open at a time. Records walk a one-way state
// machine; a resolved identity that breaches again opens a fresh record.
package alert

import (
	"time"

	"github.com/stratalake/dqguard/internal/util"
	"github.com/stratalake/dqguard/quality"
)

// State of an alert record. Transitions only move forward:
// open → escalated (repeatedly, one level at a time) → resolved.
type State string

const (
	StateOpen      State = "open"
	StateEscalated State = "escalated"
	StateResolved  State = "resolved"

	// stateAcknowledged appears only in history rows; the record itself
	// keeps its open or escalated state and stops walking the ladder.
	stateAcknowledged = "acknowledged"
)

// Identity is the stable key of an alert: the breached scope and the kind
// of bound it crossed. Repeated evaluations of a still-broken scope map to
// the same identity and therefore the same open record.
type Identity struct {
	Scope quality.Scope      `json:"scope"`
	Kind  quality.BreachKind `json:"kind"`
}

// String renders the identity for logs and history rows, e.g.
// "dataset/gold/kpi_revenue|failedValidations".
func (i Identity) String() string {
	return i.Scope.String() + "|" + string(i.Kind)
}

// IdentityOf returns the identity a breach maps to.
func IdentityOf(b quality.Breach) Identity {
	return Identity{Scope: b.Scope, Kind: b.Kind}
}

// Record is one tracked alert. It persists across evaluation cycles via the
// history store: every state transition appends a row, and the open-record
// set is reconstructed from those rows after a restart.
type Record struct {
	ID       string   `json:"id"`
	Identity Identity `json:"identity"`
	State    State    `json:"state"`

	// Level is the escalation rung most recently notified, 1-based.
	Level int `json:"level"`

	Severity     quality.Severity `json:"severity"`
	PercentBelow float64          `json:"percent_below"`

	// Breaches is the snapshot from the evaluation that last touched the
	// record.
	Breaches []quality.Breach `json:"breaches"`

	Message string `json:"message,omitempty"`

	OpenedAt         time.Time  `json:"opened_at"`
	LastTransitionAt time.Time  `json:"last_transition_at"`
	AcknowledgedAt   *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
}

// Acknowledged reports whether an operator has claimed the alert, which
// halts escalation while the record stays open.
func (r *Record) Acknowledged() bool {
	return r.AcknowledgedAt != nil
}

// snapshot returns a copy safe to hand to report consumers while the
// manager keeps mutating the live record.
func (r *Record) snapshot() Record {
	cp := *r
	cp.Breaches = append([]quality.Breach(nil), r.Breaches...)
	if r.AcknowledgedAt != nil {
		cp.AcknowledgedAt = util.Ptr(*r.AcknowledgedAt)
	}
	if r.ResolvedAt != nil {
		cp.ResolvedAt = util.Ptr(*r.ResolvedAt)
	}
	return cp
}

// Transition describes one record change produced by Apply or Sweep.
// From is empty for newly opened records.
type Transition struct {
	Record Record `json:"record"`
	From   State  `json:"from,omitempty"`
	To     State  `json:"to"`
}
