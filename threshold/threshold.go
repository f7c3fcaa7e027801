// Package threshold evaluates cycle results against the configured quality
// bounds. Rules attach to three scopes: one global rule that always applies,
// per-layer rules, and per-dataset rules that apply only where configured.
// A scope with no rule is skipped, never an error.
package threshold

import (
	"sort"

	"go.uber.org/zap"

	"github.com/stratalake/dqguard/config"
	"github.com/stratalake/dqguard/quality"
)

// scopeStats aggregates outcomes inside one scope. Success rate is computed
// from the summed expectation counts, not averaged per outcome, so large
// suites weigh more than small ones.
type scopeStats struct {
	totalExpectations  int
	failedExpectations int
	failedValidations  int
}

func (s *scopeStats) add(o quality.Outcome) {
	s.totalExpectations += o.TotalExpectations
	s.failedExpectations += o.FailedExpectations
	if !o.Success {
		s.failedValidations++
	}
}

// successRate in percent; an empty scope counts as fully healthy.
func (s *scopeStats) successRate() float64 {
	if s.totalExpectations == 0 {
		return 100
	}
	return 100 * (1 - float64(s.failedExpectations)/float64(s.totalExpectations))
}

// Evaluator holds the configured rules.
type Evaluator struct {
	cfg config.ThresholdsConfig
	log *zap.SugaredLogger
}

// NewEvaluator creates a threshold evaluator over the configured rules.
func NewEvaluator(cfg config.ThresholdsConfig, log *zap.SugaredLogger) *Evaluator {
	return &Evaluator{cfg: cfg, log: log}
}

// Evaluate checks every applicable scope against its rule and returns all
// breaches found, global scope first, then layers, then datasets. Outcomes
// reused from the cache participate like fresh ones; datasets that errored
// out are absent from outcomes and judged by no rule this cycle.
func (e *Evaluator) Evaluate(outcomes []quality.Outcome) []quality.Breach {
	global := &scopeStats{}
	perLayer := make(map[quality.Layer]*scopeStats)
	perDataset := make(map[quality.DatasetKey]*scopeStats)

	for _, o := range outcomes {
		global.add(o)

		layer := o.Key.Layer
		if _, ok := perLayer[layer]; !ok {
			perLayer[layer] = &scopeStats{}
		}
		perLayer[layer].add(o)

		if _, ok := perDataset[o.Key]; !ok {
			perDataset[o.Key] = &scopeStats{}
		}
		perDataset[o.Key].add(o)
	}

	var breaches []quality.Breach
	breaches = append(breaches, e.check(quality.GlobalScope(), e.cfg.Global, global)...)

	for _, layer := range quality.Layers {
		stats, ok := perLayer[layer]
		if !ok {
			continue
		}
		rule, ok := e.cfg.Layers[string(layer)]
		if !ok {
			continue
		}
		breaches = append(breaches, e.check(quality.LayerScope(layer), rule, stats)...)
	}

	keys := make([]quality.DatasetKey, 0, len(perDataset))
	for key := range perDataset {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, key := range keys {
		rule, ok := e.cfg.Datasets[key.Name]
		if !ok {
			continue
		}
		breaches = append(breaches, e.check(quality.DatasetScope(key), rule, perDataset[key])...)
	}

	return breaches
}

// check returns every bound the stats violate. maxFailedValidations of zero
// is zero tolerance: one failed validation in the scope already breaches.
func (e *Evaluator) check(scope quality.Scope, rule config.ThresholdRule, stats *scopeStats) []quality.Breach {
	var breaches []quality.Breach

	if rate := stats.successRate(); rate < rule.MinSuccessRate {
		breaches = append(breaches, quality.NewSuccessRateBreach(scope, rule.MinSuccessRate, rate))
	}
	if stats.failedValidations > rule.MaxFailedValidations {
		breaches = append(breaches, quality.NewFailedValidationsBreach(scope, rule.MaxFailedValidations, stats.failedValidations))
	}
	if stats.failedExpectations > rule.MaxFailedExpectations {
		breaches = append(breaches, quality.NewFailedExpectationsBreach(scope, rule.MaxFailedExpectations, stats.failedExpectations))
	}

	if len(breaches) > 0 && e.log != nil {
		for _, b := range breaches {
			e.log.Warnw("Threshold breached", "scope", scope.String(), "kind", string(b.Kind),
				"threshold", b.Threshold, "actual", b.Actual)
		}
	}
	return breaches
}
