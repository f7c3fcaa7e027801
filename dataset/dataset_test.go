package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratalake/dqguard/errors"
	"github.com/stratalake/dqguard/quality"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "datasets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `
targets:
  - layer: bronze
    name: user_activity
    path: data/bronze/user_activity.csv
  - layer: silver
    name: orders
    path: data/silver/orders.csv
    suite: orders_custom_suite
  - layer: gold
    name: fact_sales
    path: data/gold/fact_sales.csv
    stratify_columns: [region, channel]
`)

	m, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, m.Targets, 3)

	assert.Equal(t, quality.DatasetKey{Layer: quality.LayerBronze, Name: "user_activity"}, m.Targets[0].Key())
	assert.Equal(t, []string{"region", "channel"}, m.Targets[2].StratifyColumns)
}

func TestSuiteNameDefaulting(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		want   string
	}{
		{
			name:   "empty suite defaults to name_layer_suite",
			target: Target{Layer: "bronze", Name: "user_activity"},
			want:   "user_activity_bronze_suite",
		},
		{
			name:   "explicit suite wins",
			target: Target{Layer: "silver", Name: "orders", Suite: "orders_custom_suite"},
			want:   "orders_custom_suite",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.target.SuiteName())
		})
	}
}

func TestLoadManifestRejectsBadTargets(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{
			name:     "no targets",
			manifest: "targets: []\n",
		},
		{
			name: "unknown layer",
			manifest: `
targets:
  - layer: platinum
    name: orders
    path: orders.csv
`,
		},
		{
			name: "missing name",
			manifest: `
targets:
  - layer: bronze
    name: ""
    path: orders.csv
`,
		},
		{
			name: "missing path",
			manifest: `
targets:
  - layer: bronze
    name: orders
`,
		},
		{
			name: "duplicate dataset",
			manifest: `
targets:
  - layer: bronze
    name: orders
    path: a.csv
  - layer: bronze
    name: orders
    path: b.csv
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadManifest(writeManifest(t, tt.manifest))
			require.Error(t, err)
			assert.True(t, errors.IsConfigError(err), "expected config error, got %v", err)
		})
	}
}

func TestLoadManifestMissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestManifestByLayer(t *testing.T) {
	path := writeManifest(t, `
targets:
  - layer: bronze
    name: a
    path: a.csv
  - layer: gold
    name: b
    path: b.csv
  - layer: bronze
    name: c
    path: c.csv
`)
	m, err := LoadManifest(path)
	require.NoError(t, err)

	bronze := m.ByLayer(quality.LayerBronze)
	require.Len(t, bronze, 2)
	assert.Equal(t, "a", bronze[0].Name)
	assert.Equal(t, "c", bronze[1].Name)
	assert.Empty(t, m.ByLayer(quality.LayerSilver))
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCSVSource(t *testing.T) {
	path := writeCSV(t, "id,region,amount\n1,eu,10.5\n2,us,3.0\n3,eu,7.25\n")
	src := NewCSVSource(path)
	ctx := context.Background()

	columns, err := src.Columns(ctx)
	require.NoError(t, err)
	require.Len(t, columns, 3)
	assert.Equal(t, "region", columns[1].Name)
	assert.Equal(t, "string", columns[1].Type)
	assert.True(t, columns[1].Nullable)

	count, err := src.RowCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	rows, err := src.SampleRows(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "eu", "10.5"}, rows[0])

	// Asking past the end returns what exists
	rows, err = src.SampleRows(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = src.SampleRows(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCSVSourceEmptyFile(t *testing.T) {
	src := NewCSVSource(writeCSV(t, ""))
	ctx := context.Background()

	_, err := src.Columns(ctx)
	assert.Error(t, err)

	_, err = src.RowCount(ctx)
	assert.Error(t, err)
}

func TestCSVSourceHeaderOnly(t *testing.T) {
	src := NewCSVSource(writeCSV(t, "id,name\n"))
	ctx := context.Background()

	count, err := src.RowCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	rows, err := src.SampleRows(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCSVOpener(t *testing.T) {
	path := writeCSV(t, "id\n1\n")
	src, err := CSVOpener(Target{Layer: "bronze", Name: "t", Path: path})
	require.NoError(t, err)
	require.NotNil(t, src)

	_, err = CSVOpener(Target{Layer: "bronze", Name: "t", Path: filepath.Join(t.TempDir(), "missing.csv")})
	assert.Error(t, err)
}
