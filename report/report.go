// Package report accumulates one validation cycle's results into a
// Summary: validation counts per layer and dataset, threshold breaches,
// alert activity, cache statistics, and an advisory resource snapshot.
// The Summary is rebuilt every cycle and handed read-only to reporting
// consumers; long-term persistence is theirs.
package report

import (
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stratalake/dqguard/alert"
	"github.com/stratalake/dqguard/config"
	"github.com/stratalake/dqguard/errors"
	"github.com/stratalake/dqguard/quality"
)

// Counts tallies one scope's cycle activity. Validated counts executor
// runs; Reused counts cache reuses; Skipped counts datasets that were
// neither run nor reusable.
type Counts struct {
	Validated       int `json:"validated"`
	Succeeded       int `json:"succeeded"`
	Failed          int `json:"failed"`
	Skipped         int `json:"skipped"`
	Reused          int `json:"reused"`
	ExecutionErrors int `json:"execution_errors"`
}

// CacheStats mirrors the result cache counters at summary time.
type CacheStats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Evicted uint64 `json:"evicted"`
	Entries int    `json:"entries"`
}

// ExecutionFailure records a dataset the executor could not validate this
// cycle. These count separately from validation failures.
type ExecutionFailure struct {
	Key      quality.DatasetKey `json:"key"`
	Suite    string             `json:"suite"`
	Error    string             `json:"error"`
	TimedOut bool               `json:"timed_out"`
}

// Summary is the aggregate of one validation cycle.
type Summary struct {
	CycleID    string    `json:"cycle_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`

	TotalValidations int     `json:"total_validations"`
	SuccessCount     int     `json:"success_count"`
	FailureCount     int     `json:"failure_count"`
	SkippedCount     int     `json:"skipped_count"`
	ReusedCount      int     `json:"reused_count"`
	ExecutionErrors  int     `json:"execution_errors"`
	SuccessRate      float64 `json:"success_rate"`

	PerLayer   map[string]Counts `json:"per_layer"`
	PerDataset map[string]Counts `json:"per_dataset"`

	Outcomes []quality.Outcome  `json:"outcomes"`
	Breaches []quality.Breach   `json:"breaches,omitempty"`
	Failures []ExecutionFailure `json:"failures,omitempty"`

	AlertsRaised    []alert.Record `json:"alerts_raised,omitempty"`
	AlertsEscalated []alert.Record `json:"alerts_escalated,omitempty"`
	AlertsResolved  []alert.Record `json:"alerts_resolved,omitempty"`

	Cache     CacheStats    `json:"cache"`
	Resources ResourceStats `json:"resources"`
}

// WriteJSON writes the summary as indented JSON to path.
func (s Summary) WriteJSON(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal summary")
	}
	if err := os.WriteFile(path, data, config.DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "write summary to %s", path)
	}
	return nil
}

// Aggregator collects per-dataset results as workers finish. Safe for
// concurrent use. Summarize seals the cycle.
type Aggregator struct {
	mu       sync.Mutex
	outcomes []quality.Outcome
	reused   []quality.Outcome
	skipped  []quality.DatasetKey
	failures []ExecutionFailure

	cycleID   string
	startedAt time.Time
	log       *zap.SugaredLogger
	timeNow   func() time.Time // Injectable for testing
}

// NewAggregator starts an empty cycle aggregate.
func NewAggregator(log *zap.SugaredLogger) *Aggregator {
	return NewAggregatorWithClock(log, time.Now)
}

// NewAggregatorWithClock starts a cycle aggregate with an injectable time
// source.
func NewAggregatorWithClock(log *zap.SugaredLogger, clock func() time.Time) *Aggregator {
	return &Aggregator{
		cycleID:   uuid.New().String(),
		log:       log,
		timeNow:   clock,
		startedAt: clock(),
	}
}

// CycleID returns the aggregate's cycle identifier.
func (a *Aggregator) CycleID() string {
	return a.cycleID
}

// AddOutcome records an outcome the executor produced this cycle.
func (a *Aggregator) AddOutcome(o quality.Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outcomes = append(a.outcomes, o)
}

// AddReused records an outcome served from the result cache instead of a
// fresh execution. It feeds threshold evaluation like any other outcome
// but counts as a reuse, not a validation.
func (a *Aggregator) AddReused(o quality.Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reused = append(a.reused, o)
}

// AddSkipped records a dataset skipped with no cached outcome to reuse.
func (a *Aggregator) AddSkipped(key quality.DatasetKey) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.skipped = append(a.skipped, key)
}

// AddExecutionError records a dataset the executor failed on. The dataset
// is not validated this cycle.
func (a *Aggregator) AddExecutionError(key quality.DatasetKey, suite string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures = append(a.failures, ExecutionFailure{
		Key:      key,
		Suite:    suite,
		Error:    err.Error(),
		TimedOut: errors.IsTimeoutError(err),
	})
}

// Outcomes returns every outcome collected so far, executed and reused,
// in deterministic key order. This is the threshold evaluator's input.
func (a *Aggregator) Outcomes() []quality.Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]quality.Outcome, 0, len(a.outcomes)+len(a.reused))
	out = append(out, a.outcomes...)
	out = append(out, a.reused...)
	sortOutcomes(out)
	return out
}

// Summarize seals the cycle: counts are folded per layer and dataset,
// alert transitions are bucketed by what happened, and the cache and
// resource snapshots are attached.
func (a *Aggregator) Summarize(breaches []quality.Breach, transitions []alert.Transition, cacheStats CacheStats, resources ResourceStats) Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	finished := a.timeNow()
	s := Summary{
		CycleID:    a.cycleID,
		StartedAt:  a.startedAt,
		FinishedAt: finished,
		DurationMs: finished.Sub(a.startedAt).Milliseconds(),
		PerLayer:   make(map[string]Counts),
		PerDataset: make(map[string]Counts),
		Breaches:   append([]quality.Breach(nil), breaches...),
		Cache:      cacheStats,
		Resources:  resources,
	}

	var totalExpectations, failedExpectations int
	for _, o := range a.outcomes {
		s.TotalValidations++
		if o.Success {
			s.SuccessCount++
		} else {
			s.FailureCount++
		}
		totalExpectations += o.TotalExpectations
		failedExpectations += o.FailedExpectations
		s.bump(o.Key, func(c *Counts) {
			c.Validated++
			if o.Success {
				c.Succeeded++
			} else {
				c.Failed++
			}
		})
	}
	for _, o := range a.reused {
		s.SkippedCount++
		s.ReusedCount++
		totalExpectations += o.TotalExpectations
		failedExpectations += o.FailedExpectations
		s.bump(o.Key, func(c *Counts) { c.Reused++ })
	}
	for _, key := range a.skipped {
		s.SkippedCount++
		s.bump(key, func(c *Counts) { c.Skipped++ })
	}
	for _, f := range a.failures {
		s.ExecutionErrors++
		s.bump(f.Key, func(c *Counts) { c.ExecutionErrors++ })
	}

	s.SuccessRate = 100.0
	if totalExpectations > 0 {
		s.SuccessRate = 100 * (1 - float64(failedExpectations)/float64(totalExpectations))
	}

	s.Outcomes = make([]quality.Outcome, 0, len(a.outcomes)+len(a.reused))
	s.Outcomes = append(s.Outcomes, a.outcomes...)
	s.Outcomes = append(s.Outcomes, a.reused...)
	sortOutcomes(s.Outcomes)

	s.Failures = append([]ExecutionFailure(nil), a.failures...)
	sort.Slice(s.Failures, func(i, j int) bool { return s.Failures[i].Key.String() < s.Failures[j].Key.String() })

	for _, tr := range transitions {
		switch tr.To {
		case alert.StateOpen:
			s.AlertsRaised = append(s.AlertsRaised, tr.Record)
		case alert.StateEscalated:
			s.AlertsEscalated = append(s.AlertsEscalated, tr.Record)
		case alert.StateResolved:
			s.AlertsResolved = append(s.AlertsResolved, tr.Record)
		}
	}

	if a.log != nil {
		a.log.Infow("Cycle summarized",
			"cycle_id", s.CycleID,
			"validated", s.TotalValidations,
			"succeeded", s.SuccessCount,
			"failed", s.FailureCount,
			"skipped", s.SkippedCount,
			"execution_errors", s.ExecutionErrors,
			"breaches", len(s.Breaches),
			"duration_ms", s.DurationMs)
	}
	return s
}

func (s *Summary) bump(key quality.DatasetKey, f func(*Counts)) {
	layer := s.PerLayer[string(key.Layer)]
	f(&layer)
	s.PerLayer[string(key.Layer)] = layer

	ds := s.PerDataset[key.String()]
	f(&ds)
	s.PerDataset[key.String()] = ds
}

func sortOutcomes(outcomes []quality.Outcome) {
	sort.Slice(outcomes, func(i, j int) bool {
		if outcomes[i].Key.String() != outcomes[j].Key.String() {
			return outcomes[i].Key.String() < outcomes[j].Key.String()
		}
		return outcomes[i].Suite < outcomes[j].Suite
	})
}
