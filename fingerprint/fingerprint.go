// Package fingerprint derives cheap dataset signatures for change
// detection.
//
// A fingerprint covers three independent probes: a schema signature
// over the ordered (name, type, nullability) tuples, an exact row
// count, and a content signature over a bounded row sample. Sample
// rows are sorted by all columns before hashing so storage order
// cannot produce false change positives. Two fingerprints of identical
// data are byte-identical regardless of when or where they were
// computed.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/stratalake/dqguard/dataset"
	"github.com/stratalake/dqguard/errors"
	"github.com/stratalake/dqguard/quality"
)

const (
	// SignatureUnknown marks a signature that could not be computed.
	// It compares as changed against everything, including itself, so
	// detection fails toward revalidating.
	SignatureUnknown = "unknown"

	// DefaultSampleCap bounds how many rows feed the sample signature
	DefaultSampleCap = 1000
)

// Fingerprint is a point-in-time signature of a dataset. Immutable
// once computed; a new computation supersedes it.
type Fingerprint struct {
	SchemaSignature string    `json:"schema_signature"`
	RowCount        int64     `json:"row_count"`
	SampleSignature string    `json:"sample_signature"`
	ComputedAt      time.Time `json:"computed_at"`
}

// IsZero reports whether no fingerprint has been computed
func (f Fingerprint) IsZero() bool {
	return f.SchemaSignature == "" && f.SampleSignature == "" && f.ComputedAt.IsZero()
}

// Changed reports whether two signatures differ. The unknown sentinel
// always compares as changed, including against itself.
func Changed(a, b string) bool {
	if a == SignatureUnknown || b == SignatureUnknown {
		return true
	}
	return a != b
}

// Drifted reports whether two fingerprints describe different dataset
// states. Computation time is not part of the state. Unknown signatures
// drift against everything, so outcomes produced under them are never
// trusted across runs.
func Drifted(a, b Fingerprint) bool {
	return a.RowCount != b.RowCount ||
		Changed(a.SchemaSignature, b.SchemaSignature) ||
		Changed(a.SampleSignature, b.SampleSignature)
}

// Computer computes fingerprints from dataset sources
type Computer struct {
	sampleCap int
	log       *zap.SugaredLogger
	now       func() time.Time
}

// NewComputer creates a fingerprint computer with the default sample cap
func NewComputer(log *zap.SugaredLogger) *Computer {
	return &Computer{
		sampleCap: DefaultSampleCap,
		log:       log,
		now:       time.Now,
	}
}

// Compute fingerprints one dataset. Schema or row count failures are
// hard errors; a failed row sample degrades to the unknown sentinel so
// the cycle proceeds and the detector revalidates.
func (c *Computer) Compute(ctx context.Context, key quality.DatasetKey, src dataset.Source) (Fingerprint, error) {
	columns, err := src.Columns(ctx)
	if err != nil {
		return Fingerprint{}, errors.WrapFingerprint(err, "reading schema for "+key.String())
	}

	rowCount, err := src.RowCount(ctx)
	if err != nil {
		return Fingerprint{}, errors.WrapFingerprint(err, "counting rows for "+key.String())
	}

	fp := Fingerprint{
		SchemaSignature: schemaSignature(columns),
		RowCount:        rowCount,
		ComputedAt:      c.now().UTC(),
	}

	rows, err := src.SampleRows(ctx, c.sampleCap)
	if err != nil {
		fp.SampleSignature = SignatureUnknown
		if c.log != nil {
			c.log.Warnw("Sample signature unavailable, next detection revalidates",
				"layer", key.Layer,
				"dataset", key.Name,
				"error", err)
		}
		return fp, nil
	}
	fp.SampleSignature = sampleSignature(rows)

	return fp, nil
}

// schemaSignature hashes the ordered column tuples. Field and tuple
// separators prevent collisions between adjacent values (e.g. name
// "ab"+type "c" vs name "a"+type "bc").
func schemaSignature(columns []dataset.Column) string {
	h := sha256.New()
	for _, col := range columns {
		fmt.Fprintf(h, "%s\x1f%s\x1f%t\x1e", col.Name, col.Type, col.Nullable)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// sampleSignature hashes a row sample sorted by all columns. The sort
// ensures determinism regardless of storage order. A copy is made to
// avoid mutating the input.
func sampleSignature(rows [][]string) string {
	sorted := make([][]string, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		return lessRow(sorted[i], sorted[j])
	})

	h := sha256.New()
	for _, row := range sorted {
		for _, field := range row {
			h.Write([]byte(field))
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// lessRow orders rows by comparing columns left to right
func lessRow(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
