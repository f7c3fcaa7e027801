package validate

import (
	"context"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stratalake/dqguard/dataset"
	"github.com/stratalake/dqguard/quality"
	"github.com/stratalake/dqguard/sampling"
)

// Expectation type names follow the convention external engines use, so the
// skip lists in the lightweight config apply to the built-in engine too.
const (
	expectRowCountAtLeastOne = "expect_table_row_count_to_be_between"
	expectNotNull            = "expect_column_values_to_not_be_null"
	expectUnique             = "expect_column_values_to_be_unique"
	expectMatchRegex         = "expect_column_values_to_match_regex"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type expectation struct {
	Type     string
	Column   string
	Critical bool
}

// BasicExecutor is the built-in rule engine used by the CLI when no external
// engine is plugged in. It derives a small expectation suite from the
// dataset's schema: a row-count floor, not-null checks per column (critical
// for key-like columns), uniqueness for key-like columns, and an email
// format check for email-like columns. Deployments with a real evaluation
// framework provide their own Executor instead.
type BasicExecutor struct {
	log *zap.SugaredLogger

	timeNow   func() time.Time // Injectable for testing
	randFloat func() float64   // Injectable for testing
}

// NewBasicExecutor creates the built-in engine.
func NewBasicExecutor(log *zap.SugaredLogger) *BasicExecutor {
	return &BasicExecutor{
		log:       log,
		timeNow:   time.Now,
		randFloat: rand.Float64,
	}
}

// Execute evaluates the derived suite against src. Rows are materialized
// through SampleRows and thinned per the request's plan; the built-in engine
// trades streaming for simplicity, which is acceptable for the local CSV
// sources it is paired with.
func (e *BasicExecutor) Execute(ctx context.Context, src dataset.Source, req Request) (quality.Outcome, error) {
	started := e.timeNow()

	cols, err := src.Columns(ctx)
	if err != nil {
		return quality.Outcome{}, err
	}
	rowCount, err := src.RowCount(ctx)
	if err != nil {
		return quality.Outcome{}, err
	}
	rows, err := src.SampleRows(ctx, int(rowCount))
	if err != nil {
		return quality.Outcome{}, err
	}
	rows = e.selectRows(rows, cols, req.Plan)

	suite := shapeSuite(buildSuite(cols), req)

	failed := 0
	for _, exp := range suite {
		if err := ctx.Err(); err != nil {
			return quality.Outcome{}, err
		}
		ok, detail := evaluateExpectation(exp, cols, rows, rowCount)
		if !ok {
			failed++
			if e.log != nil {
				e.log.Debugw("Expectation failed",
					"dataset", req.Key.String(),
					"type", exp.Type,
					"column", exp.Column,
					"detail", detail)
			}
		}
	}

	successRate := 100.0
	if len(suite) > 0 {
		successRate = 100 * (1 - float64(failed)/float64(len(suite)))
	}
	fraction := 1.0
	if !req.Plan.UseFullData {
		fraction = req.Plan.Fraction
	}

	return quality.Outcome{
		Key:                req.Key,
		Suite:              req.SuiteName,
		Success:            failed == 0,
		SuccessRate:        successRate,
		TotalExpectations:  len(suite),
		FailedExpectations: failed,
		StartedAt:          started,
		Duration:           e.timeNow().Sub(started),
		Sampled:            !req.Plan.UseFullData,
		SampleFraction:     fraction,
		RowsValidated:      int64(len(rows)),
	}, nil
}

// buildSuite derives the expectation list from the schema. Order is stable:
// the table-level check first, then per-column checks in schema order.
func buildSuite(cols []dataset.Column) []expectation {
	suite := []expectation{{Type: expectRowCountAtLeastOne, Critical: true}}
	for _, col := range cols {
		suite = append(suite, expectation{
			Type:     expectNotNull,
			Column:   col.Name,
			Critical: isKeyColumn(col.Name),
		})
		if isKeyColumn(col.Name) {
			suite = append(suite, expectation{Type: expectUnique, Column: col.Name})
		}
		if strings.Contains(strings.ToLower(col.Name), "email") {
			suite = append(suite, expectation{Type: expectMatchRegex, Column: col.Name})
		}
	}
	return suite
}

func isKeyColumn(name string) bool {
	lower := strings.ToLower(name)
	return lower == "id" || strings.HasSuffix(lower, "_id") || strings.HasSuffix(lower, "_key")
}

// shapeSuite applies the request's lightweight filters.
func shapeSuite(suite []expectation, req Request) []expectation {
	skip := make(map[string]struct{}, len(req.SkipExpectationTypes))
	for _, t := range req.SkipExpectationTypes {
		skip[t] = struct{}{}
	}

	shaped := suite[:0:0]
	for _, exp := range suite {
		if _, drop := skip[exp.Type]; drop {
			continue
		}
		if req.CriticalOnly && !exp.Critical {
			continue
		}
		shaped = append(shaped, exp)
	}
	return shaped
}

// selectRows thins rows per the plan. Systematic and stratified selection
// are deterministic; random keeps each row independently at the plan's
// fraction.
func (e *BasicExecutor) selectRows(rows [][]string, cols []dataset.Column, plan sampling.Plan) [][]string {
	if plan.UseFullData || len(rows) == 0 {
		return rows
	}

	switch plan.Method {
	case sampling.MethodSystematic:
		step := plan.Step
		if step < 1 {
			step = 1
		}
		var out [][]string
		for i := int64(0); i < int64(len(rows)); i += step {
			out = append(out, rows[i])
		}
		return out

	case sampling.MethodStratified:
		idx := columnIndexes(cols, plan.StratifyColumns)
		if len(idx) == 0 {
			if e.log != nil {
				e.log.Warnw("Stratify columns not present in dataset, falling back to random sampling",
					"columns", plan.StratifyColumns)
			}
			return e.randomRows(rows, plan.Fraction)
		}
		return stratifiedRows(rows, idx, plan.Fraction)

	default:
		return e.randomRows(rows, plan.Fraction)
	}
}

func (e *BasicExecutor) randomRows(rows [][]string, fraction float64) [][]string {
	var out [][]string
	for _, row := range rows {
		if e.randFloat() < fraction {
			out = append(out, row)
		}
	}
	return out
}

// stratifiedRows keeps a proportional share of every group, at least one row
// per group, selecting at even intervals within the group.
func stratifiedRows(rows [][]string, idx []int, fraction float64) [][]string {
	groups := make(map[string][]int)
	var order []string
	for i, row := range rows {
		key := groupKey(row, idx)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	var out [][]string
	for _, key := range order {
		members := groups[key]
		target := int(fraction*float64(len(members)) + 0.5)
		if target < 1 {
			target = 1
		}
		step := len(members) / target
		if step < 1 {
			step = 1
		}
		for i := 0; i < len(members) && len(out) < len(rows); i += step {
			out = append(out, rows[members[i]])
		}
	}
	return out
}

func groupKey(row []string, idx []int) string {
	parts := make([]string, 0, len(idx))
	for _, i := range idx {
		if i < len(row) {
			parts = append(parts, row[i])
		} else {
			parts = append(parts, "")
		}
	}
	return strings.Join(parts, "\x1f")
}

func columnIndexes(cols []dataset.Column, names []string) []int {
	var idx []int
	for _, name := range names {
		for i, col := range cols {
			if strings.EqualFold(col.Name, name) {
				idx = append(idx, i)
				break
			}
		}
	}
	return idx
}

func evaluateExpectation(exp expectation, cols []dataset.Column, rows [][]string, rowCount int64) (bool, string) {
	switch exp.Type {
	case expectRowCountAtLeastOne:
		if rowCount < 1 {
			return false, "table is empty"
		}
		return true, ""

	case expectNotNull:
		col := columnIndexes(cols, []string{exp.Column})
		if len(col) == 0 {
			return true, ""
		}
		nulls := 0
		for _, row := range rows {
			if value(row, col[0]) == "" {
				nulls++
			}
		}
		if nulls > 0 {
			return false, "null values present"
		}
		return true, ""

	case expectUnique:
		col := columnIndexes(cols, []string{exp.Column})
		if len(col) == 0 {
			return true, ""
		}
		seen := make(map[string]struct{}, len(rows))
		for _, row := range rows {
			v := value(row, col[0])
			if v == "" {
				continue
			}
			if _, dup := seen[v]; dup {
				return false, "duplicate values present"
			}
			seen[v] = struct{}{}
		}
		return true, ""

	case expectMatchRegex:
		col := columnIndexes(cols, []string{exp.Column})
		if len(col) == 0 {
			return true, ""
		}
		for _, row := range rows {
			v := value(row, col[0])
			if v != "" && !emailPattern.MatchString(v) {
				return false, "value does not match pattern"
			}
		}
		return true, ""
	}
	return true, ""
}

func value(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
