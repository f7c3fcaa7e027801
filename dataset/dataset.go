// Package dataset declares validation targets and the Source handle
// the pipeline reads dataset facts through.
//
// Targets come from a YAML manifest. A Source exposes just enough of a
// dataset for fingerprinting (columns, row count, a row sample); the
// orchestration layer never pulls full rows through it. Real
// deployments plug warehouse-backed Sources; a CSV-backed Source ships
// for local runs and tests.
package dataset

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stratalake/dqguard/errors"
	"github.com/stratalake/dqguard/quality"
)

// Column describes one dataset column
type Column struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
}

// Source is a dataset handle. Implementations must be safe for
// concurrent readers.
type Source interface {
	// Columns returns the dataset's columns in stable declared order
	Columns(ctx context.Context) ([]Column, error)

	// RowCount returns the exact number of data rows
	RowCount(ctx context.Context) (int64, error)

	// SampleRows returns up to limit rows in stable order for content
	// fingerprinting. Fewer rows than limit is not an error.
	SampleRows(ctx context.Context, limit int) ([][]string, error)
}

// Opener resolves a manifest target to a readable Source
type Opener func(Target) (Source, error)

// Target is one validation target declared in the manifest
type Target struct {
	Layer           string   `yaml:"layer"`
	Name            string   `yaml:"name"`
	Path            string   `yaml:"path"`
	Suite           string   `yaml:"suite"`
	StratifyColumns []string `yaml:"stratify_columns"`
}

// Key returns the target's dataset key
func (t Target) Key() quality.DatasetKey {
	return quality.DatasetKey{Layer: quality.Layer(t.Layer), Name: t.Name}
}

// SuiteName returns the expectation suite for the target. An empty
// suite defaults to <name>_<layer>_suite.
func (t Target) SuiteName() string {
	if t.Suite != "" {
		return t.Suite
	}
	return fmt.Sprintf("%s_%s_suite", t.Name, t.Layer)
}

// Manifest enumerates the validation targets for a run
type Manifest struct {
	Targets []Target `yaml:"targets"`
}

// LoadManifest reads and validates a YAML manifest from path
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapConfig(err, "failed to read dataset manifest")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.WrapConfig(err, "failed to parse dataset manifest "+path)
	}

	if len(m.Targets) == 0 {
		return nil, errors.NewConfigError("dataset manifest %s declares no targets", path)
	}

	seen := make(map[quality.DatasetKey]bool, len(m.Targets))
	for i, target := range m.Targets {
		if !quality.Layer(target.Layer).Valid() {
			return nil, errors.NewConfigError("target %d: unknown layer %q (want bronze, silver, or gold)", i, target.Layer)
		}
		if target.Name == "" {
			return nil, errors.NewConfigError("target %d: name cannot be empty", i)
		}
		if target.Path == "" {
			return nil, errors.NewConfigError("target %d (%s): path cannot be empty", i, target.Name)
		}
		key := target.Key()
		if seen[key] {
			return nil, errors.NewConfigError("target %d: duplicate dataset %s", i, key)
		}
		seen[key] = true
	}

	return &m, nil
}

// ByLayer returns the manifest's targets for one layer, in declaration order
func (m *Manifest) ByLayer(layer quality.Layer) []Target {
	var out []Target
	for _, t := range m.Targets {
		if quality.Layer(t.Layer) == layer {
			out = append(out, t)
		}
	}
	return out
}
