// Package validate defines the contract between the pipeline and the rule
// evaluation engine. The engine is a black box: it may block for a long
// time and may ignore cancellation, so Run bounds every invocation with a
// deadline and classifies what comes back. A dataset that evaluated its
// rules and failed some is a completed Outcome with Success=false; only an
// engine that could not evaluate at all produces an error.
package validate

import (
	"context"
	"fmt"
	"time"

	"github.com/stratalake/dqguard/config"
	"github.com/stratalake/dqguard/dataset"
	"github.com/stratalake/dqguard/errors"
	"github.com/stratalake/dqguard/quality"
	"github.com/stratalake/dqguard/sampling"
)

// Request describes one validation run: which dataset, which suite, how to
// sample it, and which expectations the engine should leave out.
type Request struct {
	Key       quality.DatasetKey `json:"key"`
	SuiteName string             `json:"suite_name"`
	Plan      sampling.Plan      `json:"plan"`

	// CriticalOnly restricts the run to expectations flagged critical.
	CriticalOnly bool `json:"critical_only,omitempty"`

	// SkipExpectationTypes lists expectation types the engine must not run.
	SkipExpectationTypes []string `json:"skip_expectation_types,omitempty"`
}

// NewRequest shapes a request from the lightweight validation config. With
// lightweight mode disabled the request carries the suite untouched.
func NewRequest(key quality.DatasetKey, suite string, plan sampling.Plan, lw config.LightweightConfig) Request {
	req := Request{Key: key, SuiteName: suite, Plan: plan}
	if !lw.Enabled {
		return req
	}
	req.CriticalOnly = lw.CriticalExpectationsOnly
	if lw.SkipExpensiveExpectations {
		req.SkipExpectationTypes = append([]string(nil), lw.ExpensiveExpectationTypes...)
	}
	return req
}

// Executor evaluates a rule suite against a dataset.
type Executor interface {
	Execute(ctx context.Context, src dataset.Source, req Request) (quality.Outcome, error)
}

// Run invokes exec bounded by timeout. The engine runs in its own goroutine
// so the deadline fires even when the engine ignores its context; a run
// that outlives the deadline is abandoned and reported as a timeout. Errors
// come back classified: deadline expiry as a timeout, everything else as an
// execution error.
func Run(ctx context.Context, exec Executor, src dataset.Source, req Request, timeout time.Duration) (quality.Outcome, error) {
	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	type result struct {
		outcome quality.Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := exec.Execute(runCtx, src, req)
		done <- result{outcome, err}
	}()

	select {
	case <-runCtx.Done():
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return quality.Outcome{}, errors.Wrapf(errors.ErrTimeout,
				"validating %s against suite %s after %s", req.Key, req.SuiteName, timeout)
		}
		return quality.Outcome{}, errors.WrapExecution(runCtx.Err(),
			fmt.Sprintf("validating %s against suite %s", req.Key, req.SuiteName))
	case res := <-done:
		if res.err != nil {
			if errors.IsTimeoutError(res.err) {
				return quality.Outcome{}, errors.Wrapf(errors.ErrTimeout,
					"validating %s against suite %s: %v", req.Key, req.SuiteName, res.err)
			}
			return quality.Outcome{}, errors.WrapExecution(res.err,
				fmt.Sprintf("validating %s against suite %s", req.Key, req.SuiteName))
		}
		return res.outcome, nil
	}
}
