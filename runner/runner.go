// Package runner drives validation cycles. A bounded worker pool walks
// the per-dataset pipeline (fingerprint, change detection, cache,
// sampling, execution) and the cycle close evaluates thresholds and
// feeds the alert manager.
//
// The runner owns the long-lived cycle state: the fingerprint journal
// and the result cache survive across cycles so later runs can skip
// datasets that have not moved. Per-dataset metadata writes are
// serialized by the journal's key locks; two overlapping validations of
// the same dataset never interleave their journal or cache updates.
package runner

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/stratalake/dqguard/alert"
	"github.com/stratalake/dqguard/cache"
	"github.com/stratalake/dqguard/config"
	"github.com/stratalake/dqguard/dataset"
	"github.com/stratalake/dqguard/detect"
	"github.com/stratalake/dqguard/errors"
	"github.com/stratalake/dqguard/fingerprint"
	"github.com/stratalake/dqguard/report"
	"github.com/stratalake/dqguard/sampling"
	"github.com/stratalake/dqguard/threshold"
	"github.com/stratalake/dqguard/validate"
)

// Runner wires the pipeline components and validates manifest targets
// cycle by cycle. Safe for a single caller; RunCycle itself fans work
// out to a bounded pool internally.
type Runner struct {
	cfg  config.Config
	open dataset.Opener
	exec validate.Executor

	computer  *fingerprint.Computer
	detector  *detect.Detector
	journal   *detect.Journal
	planner   *sampling.Planner
	cache     *cache.Store
	evaluator *threshold.Evaluator
	alerts    *alert.Manager

	log *zap.SugaredLogger
}

// New creates a runner. The opener resolves manifest targets to dataset
// sources and exec is the rule evaluation engine. alerts may be nil;
// breaches then surface only in the cycle summary.
func New(cfg config.Config, open dataset.Opener, exec validate.Executor, alerts *alert.Manager, log *zap.SugaredLogger) (*Runner, error) {
	if open == nil {
		return nil, errors.New("runner requires a dataset opener")
	}
	if exec == nil {
		return nil, errors.New("runner requires a validation executor")
	}
	if log == nil {
		return nil, errors.New("runner requires a logger")
	}

	return &Runner{
		cfg:       cfg,
		open:      open,
		exec:      exec,
		computer:  fingerprint.NewComputer(log),
		detector:  detect.NewDetector(cfg.Selective),
		journal:   detect.NewJournal(),
		planner:   sampling.NewPlanner(cfg.Sampling, log),
		cache:     cache.NewStore(cfg.Caching.MaxCacheEntries, log),
		evaluator: threshold.NewEvaluator(cfg.Thresholds, log),
		alerts:    alerts,
		log:       log,
	}, nil
}

// RunCycle validates every target once and returns the cycle summary.
// Dataset-level problems (open failures, execution errors, timeouts)
// are recorded in the summary, not returned; the error covers cycle
// infrastructure only, alert persistence and cancellation.
func (r *Runner) RunCycle(ctx context.Context, targets []dataset.Target) (report.Summary, error) {
	agg := report.NewAggregator(r.log)
	workers := r.workerCount(len(targets))

	r.log.Infow("Validation cycle started",
		"cycle_id", agg.CycleID(),
		"targets", len(targets),
		"workers", workers)

	jobs := make(chan dataset.Target)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go r.worker(ctx, i, jobs, agg, &wg)
	}

	for _, target := range targets {
		if ctx.Err() != nil {
			r.log.Warnw("Validation cycle interrupted, abandoning remaining targets",
				"cycle_id", agg.CycleID())
			break
		}
		select {
		case <-ctx.Done():
		case jobs <- target:
		}
	}
	close(jobs)
	wg.Wait()

	breaches := r.evaluator.Evaluate(agg.Outcomes())

	var cycleErr error
	var transitions []alert.Transition
	if r.alerts != nil {
		var err error
		transitions, err = r.alerts.Apply(ctx, breaches)
		if err != nil {
			r.log.Errorw("Alert processing failed", "cycle_id", agg.CycleID(), "error", err)
			cycleErr = errors.CombineErrors(cycleErr, err)
		}
	}

	hits, misses, evicted := r.cache.Stats()
	summary := agg.Summarize(breaches, transitions, report.CacheStats{
		Hits:    hits,
		Misses:  misses,
		Evicted: evicted,
		Entries: r.cache.Len(),
	}, report.SnapshotResources(r.cfg.Resources, r.log))

	if ctx.Err() != nil {
		cycleErr = errors.CombineErrors(cycleErr, errors.Wrap(ctx.Err(), "validation cycle interrupted"))
	}
	return summary, cycleErr
}

// worker drains the target channel until it closes or the cycle is
// cancelled.
func (r *Runner) worker(ctx context.Context, id int, jobs <-chan dataset.Target, agg *report.Aggregator, wg *sync.WaitGroup) {
	defer wg.Done()

	processed := 0
	for target := range jobs {
		r.processTarget(ctx, target, agg)
		processed++
	}
	r.log.Debugw("Validation worker drained", "worker_id", id, "processed", processed)
}

// processTarget runs the pipeline for one dataset. Every exit path
// records exactly one mark with the aggregator: an outcome, a reuse, a
// skip, or an execution error.
func (r *Runner) processTarget(ctx context.Context, target dataset.Target, agg *report.Aggregator) {
	key := target.Key()
	suite := target.SuiteName()
	ckey := cache.Key{Dataset: key, Suite: suite}

	src, err := r.open(target)
	if err != nil {
		agg.AddExecutionError(key, suite, errors.WrapExecution(err, "opening dataset "+key.String()))
		r.log.Errorw("Failed to open dataset", "dataset", key, "path", target.Path, "error", err)
		return
	}

	// Fingerprint and decide under the key lock so a concurrent run of
	// the same dataset cannot interleave journal reads and writes.
	unlock := r.journal.Lock(key)
	current, err := r.computer.Compute(ctx, key, src)
	if err != nil {
		unlock()
		agg.AddExecutionError(key, suite, err)
		r.log.Errorw("Fingerprint computation failed", "dataset", key, "error", err)
		return
	}
	previous, hasPrevious := r.journal.Get(key)
	decision := r.detector.Decide(previous, hasPrevious, current)

	if !decision.ShouldValidate {
		// The journal moves to the latest observed state even when
		// skipping; the cached outcome stays the last real result.
		r.journal.Put(key, current)
		unlock()

		if entry, ok := r.cacheGet(ckey); ok {
			agg.AddReused(entry.Outcome)
			r.log.Infow("Skipping validation, reusing cached outcome",
				"dataset", key, "suite", suite, "reasons", decision.Reasons)
			return
		}
		agg.AddSkipped(key)
		r.log.Infow("Skipping validation, no changes detected",
			"dataset", key, "reasons", decision.Reasons)
		return
	}
	unlock()

	// Read-before: an outcome produced at this exact fingerprint makes
	// execution unnecessary no matter why the detector fired.
	if entry, ok := r.cacheGet(ckey); ok && !fingerprint.Drifted(entry.Fingerprint, current) {
		agg.AddReused(entry.Outcome)
		r.log.Infow("Cache hit, skipping execution", "dataset", key, "suite", suite)
		return
	}

	plan := r.planner.Plan(current.RowCount, target.StratifyColumns)
	req := validate.NewRequest(key, suite, plan, r.cfg.Lightweight)

	r.log.Debugw("Executing validation",
		"dataset", key,
		"suite", suite,
		"rows", current.RowCount,
		"full_data", plan.UseFullData,
		"reasons", decision.Reasons)

	outcome, err := validate.Run(ctx, r.exec, src, req, r.cfg.Resources.Timeout())
	if err != nil {
		// Not validated this cycle: no journal or cache mutation, so
		// the next cycle decides from the last known good state.
		agg.AddExecutionError(key, suite, err)
		r.log.Errorw("Validation execution failed",
			"dataset", key, "suite", suite, "timeout", errors.IsTimeoutError(err), "error", err)
		return
	}

	// Write-after: only if the dataset still looks like it did when the
	// run was planned. An outcome produced against a superseded
	// fingerprint still counts for this cycle but must not be cached.
	unlock = r.journal.Lock(key)
	latest, ok := r.journal.Get(key)
	stale := ok && fingerprint.Drifted(current, latest)
	if !stale {
		r.journal.Put(key, current)
		if r.cfg.Caching.Enabled {
			r.cache.Put(ckey, outcome, current, r.cfg.Caching.TTL())
		}
	}
	unlock()

	if stale {
		r.log.Warnw("Fingerprint moved during validation, outcome not cached",
			"dataset", key, "suite", suite)
	}
	agg.AddOutcome(outcome)

	if !outcome.Success {
		r.log.Warnw("Validation failed",
			"dataset", key,
			"suite", suite,
			"success_rate", outcome.SuccessRate,
			"failed_expectations", outcome.FailedExpectations)
	}
}

// cacheGet consults the result cache when caching is enabled.
func (r *Runner) cacheGet(key cache.Key) (cache.Entry, bool) {
	if !r.cfg.Caching.Enabled {
		return cache.Entry{}, false
	}
	return r.cache.Get(key)
}

// workerCount bounds the pool at maxWorkers, the target count, and one.
func (r *Runner) workerCount(targets int) int {
	workers := 1
	if r.cfg.Parallel.Enabled && r.cfg.Parallel.MaxWorkers > 1 {
		workers = r.cfg.Parallel.MaxWorkers
	}
	if targets > 0 && workers > targets {
		workers = targets
	}
	return workers
}
