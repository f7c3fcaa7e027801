// Package detect decides whether datasets need revalidation by
// comparing fingerprints against the journal of last known state.
package detect

import (
	"github.com/stratalake/dqguard/config"
	"github.com/stratalake/dqguard/fingerprint"
	"github.com/stratalake/dqguard/internal/util"
)

// Decision reasons surfaced in logs and reports
const (
	ReasonColdStart      = "no previous fingerprint"
	ReasonDisabled       = "selective validation disabled"
	ReasonRowCount       = "row count changed beyond threshold"
	ReasonSchema         = "schema changed"
	ReasonSample         = "data sample changed"
	ReasonAlwaysValidate = "skipping unchanged data disabled"
	ReasonUnchanged      = "no changes detected"
)

// Decision is the detector's verdict for one dataset
type Decision struct {
	ShouldValidate bool     `json:"should_validate"`
	Reasons        []string `json:"reasons"`
}

// Detector compares fingerprints under the selective validation
// configuration. Each enabled probe is an independently sufficient
// condition to force validation.
type Detector struct {
	cfg config.SelectiveConfig
}

// NewDetector creates a detector with the given selective validation config
func NewDetector(cfg config.SelectiveConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Decide compares the previous fingerprint (hasPrevious=false on cold
// start) against the current one. All tripped probes are reported, not
// just the first.
func (d *Detector) Decide(previous fingerprint.Fingerprint, hasPrevious bool, current fingerprint.Fingerprint) Decision {
	if !d.cfg.Enabled {
		return Decision{ShouldValidate: true, Reasons: []string{ReasonDisabled}}
	}
	if !hasPrevious {
		return Decision{ShouldValidate: true, Reasons: []string{ReasonColdStart}}
	}

	var reasons []string
	if d.cfg.CheckRowCountChanges && rowCountChanged(previous.RowCount, current.RowCount, d.cfg.RowCountThreshold) {
		reasons = append(reasons, ReasonRowCount)
	}
	if d.cfg.CheckSchemaChanges && fingerprint.Changed(previous.SchemaSignature, current.SchemaSignature) {
		reasons = append(reasons, ReasonSchema)
	}
	if d.cfg.CheckDataHash && fingerprint.Changed(previous.SampleSignature, current.SampleSignature) {
		reasons = append(reasons, ReasonSample)
	}

	if len(reasons) > 0 {
		return Decision{ShouldValidate: true, Reasons: reasons}
	}
	if !d.cfg.SkipUnchangedData {
		return Decision{ShouldValidate: true, Reasons: []string{ReasonAlwaysValidate}}
	}
	return Decision{ShouldValidate: false, Reasons: []string{ReasonUnchanged}}
}

// rowCountChanged reports whether the relative row count change
// exceeds the threshold. A previous count of zero with any rows now is
// always a change.
func rowCountChanged(previous, current int64, threshold float64) bool {
	if previous == current {
		return false
	}
	if previous == 0 {
		return true
	}
	change := util.AbsFloat64(float64(current-previous)) / float64(previous)
	return change > threshold
}
