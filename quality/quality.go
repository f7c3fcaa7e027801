// Package quality defines the core vocabulary of the validation pipeline:
// dataset identity, validation outcomes, threshold breaches, and severity
// levels. Every other package speaks these types.
package quality

import (
	"fmt"
	"time"
)

// Layer names a tier of the medallion architecture.
type Layer string

const (
	LayerBronze Layer = "bronze"
	LayerSilver Layer = "silver"
	LayerGold   Layer = "gold"
)

// Layers lists the known layers in promotion order.
var Layers = []Layer{LayerBronze, LayerSilver, LayerGold}

// Valid reports whether l is one of the known layers.
func (l Layer) Valid() bool {
	switch l {
	case LayerBronze, LayerSilver, LayerGold:
		return true
	}
	return false
}

// DatasetKey identifies a validation target within a layer.
type DatasetKey struct {
	Layer Layer  `json:"layer"`
	Name  string `json:"name"`
}

// String renders the key as "layer/name", the form used in logs and locks.
func (k DatasetKey) String() string {
	return string(k.Layer) + "/" + k.Name
}

// Outcome is the result of one validation run of a dataset against a suite.
// Outcomes are immutable once produced; the cache and the aggregator share
// them by value.
type Outcome struct {
	Key                DatasetKey    `json:"key"`
	Suite              string        `json:"suite"`
	Success            bool          `json:"success"`
	SuccessRate        float64       `json:"successRate"` // 0..100
	TotalExpectations  int           `json:"totalExpectations"`
	FailedExpectations int           `json:"failedExpectations"`
	StartedAt          time.Time     `json:"startedAt"`
	Duration           time.Duration `json:"duration"`
	Sampled            bool          `json:"sampled"`
	SampleFraction     float64       `json:"sampleFraction"` // 1.0 when the full dataset was read
	RowsValidated      int64         `json:"rowsValidated"`
}

// ScopeType discriminates threshold scopes.
type ScopeType string

const (
	ScopeGlobal  ScopeType = "global"
	ScopeLayer   ScopeType = "layer"
	ScopeDataset ScopeType = "dataset"
)

// Scope names the slice of a cycle a threshold rule or breach applies to.
// Layer is set for layer and dataset scopes; Dataset only for dataset scopes.
type Scope struct {
	Type    ScopeType `json:"type"`
	Layer   Layer     `json:"layer,omitempty"`
	Dataset string    `json:"dataset,omitempty"`
}

// GlobalScope returns the whole-cycle scope.
func GlobalScope() Scope {
	return Scope{Type: ScopeGlobal}
}

// LayerScope returns the scope covering one layer.
func LayerScope(l Layer) Scope {
	return Scope{Type: ScopeLayer, Layer: l}
}

// DatasetScope returns the scope covering one dataset.
func DatasetScope(k DatasetKey) Scope {
	return Scope{Type: ScopeDataset, Layer: k.Layer, Dataset: k.Name}
}

// String renders the scope for logs and history rows:
// "global", "layer/silver", "dataset/silver/orders".
func (s Scope) String() string {
	switch s.Type {
	case ScopeLayer:
		return fmt.Sprintf("layer/%s", s.Layer)
	case ScopeDataset:
		return fmt.Sprintf("dataset/%s/%s", s.Layer, s.Dataset)
	default:
		return "global"
	}
}

// BreachKind discriminates what bound a breach crossed.
type BreachKind string

const (
	BreachSuccessRate        BreachKind = "successRate"
	BreachFailedValidations  BreachKind = "failedValidations"
	BreachFailedExpectations BreachKind = "failedExpectations"
)

// Breach records one threshold rule violated by a cycle summary. Threshold
// and Actual are in the unit of the kind: percent for successRate, counts
// for the other two.
type Breach struct {
	Scope     Scope      `json:"scope"`
	Kind      BreachKind `json:"kind"`
	Threshold float64    `json:"threshold"`
	Actual    float64    `json:"actual"`
}

// NewSuccessRateBreach builds a breach of a minimum success rate bound.
func NewSuccessRateBreach(scope Scope, minRate, actual float64) Breach {
	return Breach{Scope: scope, Kind: BreachSuccessRate, Threshold: minRate, Actual: actual}
}

// NewFailedValidationsBreach builds a breach of a maximum failed-validations bound.
func NewFailedValidationsBreach(scope Scope, maxFailed, actual int) Breach {
	return Breach{Scope: scope, Kind: BreachFailedValidations, Threshold: float64(maxFailed), Actual: float64(actual)}
}

// NewFailedExpectationsBreach builds a breach of a maximum failed-expectations bound.
func NewFailedExpectationsBreach(scope Scope, maxFailed, actual int) Breach {
	return Breach{Scope: scope, Kind: BreachFailedExpectations, Threshold: float64(maxFailed), Actual: float64(actual)}
}

// PercentBelow measures how far a success-rate breach fell below its bound,
// as a percentage of the bound. Returns 0 for other kinds and for a zero
// threshold, where the measure is undefined.
func (b Breach) PercentBelow() float64 {
	if b.Kind != BreachSuccessRate || b.Threshold == 0 {
		return 0
	}
	if b.Actual >= b.Threshold {
		return 0
	}
	return 100 * (b.Threshold - b.Actual) / b.Threshold
}

// String renders the breach for logs.
func (b Breach) String() string {
	switch b.Kind {
	case BreachSuccessRate:
		return fmt.Sprintf("%s: success rate %.2f%% below minimum %.2f%%", b.Scope, b.Actual, b.Threshold)
	case BreachFailedValidations:
		return fmt.Sprintf("%s: %d failed validations exceed maximum %d", b.Scope, int(b.Actual), int(b.Threshold))
	default:
		return fmt.Sprintf("%s: %d failed expectations exceed maximum %d", b.Scope, int(b.Actual), int(b.Threshold))
	}
}

// Severity orders alert urgency. The zero value means unclassified.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities for comparisons: critical outranks high outranks
// medium outranks low. Unclassified ranks lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Valid reports whether s is one of the defined severities.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}
