// Package sampling builds sample plans for large datasets. Plans only
// describe how rows should be drawn; the validation executor does the
// actual row selection.
package sampling

import (
	"go.uber.org/zap"

	"github.com/stratalake/dqguard/config"
)

// Method selects how the executor draws rows
type Method string

const (
	// MethodRandom selects rows independently at the plan fraction.
	// Unbiased, non-deterministic row count.
	MethodRandom Method = "random"

	// MethodSystematic selects every step-th row by stable row index.
	// Deterministic across runs but vulnerable to periodic bias;
	// prefer random unless reproducibility is required.
	MethodSystematic Method = "systematic"

	// MethodStratified samples each group of the stratify columns at
	// the plan fraction so every group stays represented.
	MethodStratified Method = "stratified"
)

// Plan tells the executor how to draw rows for one validation run.
// Ephemeral; built per decision and never stored.
type Plan struct {
	UseFullData     bool     `json:"use_full_data"`
	Method          Method   `json:"method,omitempty"`
	Fraction        float64  `json:"fraction,omitempty"`
	MinRows         int64    `json:"min_rows,omitempty"`
	Step            int64    `json:"step,omitempty"` // systematic only
	StratifyColumns []string `json:"stratify_columns,omitempty"`
}

// FullData is the no-op plan: validate every row
func FullData() Plan {
	return Plan{UseFullData: true}
}

// Planner builds plans from the sampling configuration
type Planner struct {
	cfg config.SamplingConfig
	log *zap.SugaredLogger
}

// NewPlanner creates a planner with the given sampling config
func NewPlanner(cfg config.SamplingConfig, log *zap.SugaredLogger) *Planner {
	return &Planner{cfg: cfg, log: log}
}

// Plan builds the sample plan for a dataset of rowCount rows. Target
// stratify columns take precedence over the configured ones. Datasets
// at or below the row threshold, and datasets smaller than the minimum
// sample, are validated in full.
func (p *Planner) Plan(rowCount int64, stratifyColumns []string) Plan {
	if !p.cfg.Enabled || rowCount <= p.cfg.ThresholdRows {
		return FullData()
	}
	if p.cfg.MinSampleRows >= rowCount {
		return FullData()
	}

	// Target max(minSampleRows, rowCount*sampleSize) rows; integer
	// arithmetic keeps the systematic step exact.
	targetRows := int64(float64(rowCount) * p.cfg.SampleSize)
	if targetRows < p.cfg.MinSampleRows {
		targetRows = p.cfg.MinSampleRows
	}
	if targetRows > rowCount {
		targetRows = rowCount
	}
	fraction := float64(targetRows) / float64(rowCount)

	columns := stratifyColumns
	if len(columns) == 0 {
		columns = p.cfg.StratifyColumns
	}

	switch Method(p.cfg.Method) {
	case MethodStratified:
		if len(columns) == 0 {
			if p.log != nil {
				p.log.Warnw("Stratified sampling without stratify columns, falling back to random",
					"rows", rowCount)
			}
			return Plan{Method: MethodRandom, Fraction: fraction, MinRows: p.cfg.MinSampleRows}
		}
		return Plan{Method: MethodStratified, Fraction: fraction, MinRows: p.cfg.MinSampleRows, StratifyColumns: columns}

	case MethodSystematic:
		step := rowCount / targetRows
		if step < 1 {
			step = 1
		}
		return Plan{Method: MethodSystematic, Fraction: fraction, MinRows: p.cfg.MinSampleRows, Step: step}

	default:
		return Plan{Method: MethodRandom, Fraction: fraction, MinRows: p.cfg.MinSampleRows}
	}
}
