package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratalake/dqguard/alert"
	"github.com/stratalake/dqguard/config"
	"github.com/stratalake/dqguard/errors"
	"github.com/stratalake/dqguard/quality"
)

// mockClock provides controllable time for testing
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock(start time.Time) *mockClock {
	return &mockClock{now: start}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func cycleOutcome(layer quality.Layer, name string, total, failed int) quality.Outcome {
	rate := 100.0
	if total > 0 {
		rate = 100 * (1 - float64(failed)/float64(total))
	}
	return quality.Outcome{
		Key:                quality.DatasetKey{Layer: layer, Name: name},
		Suite:              name + "_" + string(layer) + "_suite",
		Success:            failed == 0,
		SuccessRate:        rate,
		TotalExpectations:  total,
		FailedExpectations: failed,
	}
}

func TestAggregatorCountsByResult(t *testing.T) {
	clock := newMockClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	agg := NewAggregatorWithClock(nil, clock.Now)

	agg.AddOutcome(cycleOutcome(quality.LayerSilver, "orders", 20, 0))
	agg.AddOutcome(cycleOutcome(quality.LayerGold, "fact_sales", 30, 3))
	agg.AddReused(cycleOutcome(quality.LayerSilver, "inventory", 10, 0))
	agg.AddSkipped(quality.DatasetKey{Layer: quality.LayerGold, Name: "dim_customer"})
	agg.AddExecutionError(quality.DatasetKey{Layer: quality.LayerBronze, Name: "events"},
		"events_bronze_suite", errors.New("warehouse unreachable"))
	agg.AddExecutionError(quality.DatasetKey{Layer: quality.LayerBronze, Name: "user_activity"},
		"user_activity_bronze_suite", errors.Wrap(errors.ErrTimeout, "validating user_activity"))

	clock.Advance(250 * time.Millisecond)
	s := agg.Summarize(nil, nil, CacheStats{Hits: 3, Misses: 2}, ResourceStats{})

	assert.Equal(t, 2, s.TotalValidations)
	assert.Equal(t, 1, s.SuccessCount)
	assert.Equal(t, 1, s.FailureCount)
	assert.Equal(t, 2, s.SkippedCount)
	assert.Equal(t, 1, s.ReusedCount)
	assert.Equal(t, 2, s.ExecutionErrors)
	assert.Equal(t, int64(250), s.DurationMs)

	// 3 failed of 60 expectations across executed and reused outcomes.
	assert.InDelta(t, 95.0, s.SuccessRate, 1e-9)

	assert.Equal(t, Counts{Validated: 1, Succeeded: 1, Reused: 1}, s.PerLayer["silver"])
	assert.Equal(t, Counts{Validated: 1, Failed: 1, Skipped: 1}, s.PerLayer["gold"])
	assert.Equal(t, Counts{ExecutionErrors: 2}, s.PerLayer["bronze"])
	assert.Equal(t, Counts{Validated: 1, Succeeded: 1}, s.PerDataset["silver/orders"])
	assert.Equal(t, Counts{Reused: 1}, s.PerDataset["silver/inventory"])

	require.Len(t, s.Outcomes, 3)
	assert.Equal(t, "gold/fact_sales", s.Outcomes[0].Key.String())
	assert.Equal(t, "silver/inventory", s.Outcomes[1].Key.String())
	assert.Equal(t, "silver/orders", s.Outcomes[2].Key.String())

	require.Len(t, s.Failures, 2)
	assert.Equal(t, "bronze/events", s.Failures[0].Key.String())
	assert.False(t, s.Failures[0].TimedOut)
	assert.Equal(t, "bronze/user_activity", s.Failures[1].Key.String())
	assert.True(t, s.Failures[1].TimedOut)

	assert.Equal(t, uint64(3), s.Cache.Hits)
}

func TestAggregatorEmptyCycle(t *testing.T) {
	clock := newMockClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	agg := NewAggregatorWithClock(nil, clock.Now)

	s := agg.Summarize(nil, nil, CacheStats{}, ResourceStats{})

	assert.Zero(t, s.TotalValidations)
	assert.InDelta(t, 100.0, s.SuccessRate, 1e-9)
	assert.Empty(t, s.Outcomes)
	assert.Empty(t, s.PerLayer)
	assert.Empty(t, s.PerDataset)
}

func TestOutcomesIncludeReusedResults(t *testing.T) {
	agg := NewAggregator(nil)
	agg.AddOutcome(cycleOutcome(quality.LayerSilver, "orders", 20, 0))
	agg.AddReused(cycleOutcome(quality.LayerBronze, "events", 10, 1))

	outcomes := agg.Outcomes()
	require.Len(t, outcomes, 2)
	assert.Equal(t, "bronze/events", outcomes[0].Key.String())
	assert.Equal(t, "silver/orders", outcomes[1].Key.String())
}

func TestSummarizeBucketsAlertTransitions(t *testing.T) {
	agg := NewAggregator(nil)

	transitions := []alert.Transition{
		{Record: alert.Record{ID: "a"}, To: alert.StateOpen},
		{Record: alert.Record{ID: "b"}, From: alert.StateOpen, To: alert.StateEscalated},
		{Record: alert.Record{ID: "c"}, From: alert.StateEscalated, To: alert.StateResolved},
	}
	s := agg.Summarize(nil, transitions, CacheStats{}, ResourceStats{})

	require.Len(t, s.AlertsRaised, 1)
	assert.Equal(t, "a", s.AlertsRaised[0].ID)
	require.Len(t, s.AlertsEscalated, 1)
	assert.Equal(t, "b", s.AlertsEscalated[0].ID)
	require.Len(t, s.AlertsResolved, 1)
	assert.Equal(t, "c", s.AlertsResolved[0].ID)
}

func TestSummaryWriteJSONRoundTrip(t *testing.T) {
	agg := NewAggregator(nil)
	agg.AddOutcome(cycleOutcome(quality.LayerSilver, "orders", 20, 2))
	breach := quality.NewSuccessRateBreach(quality.GlobalScope(), 95, 90)

	s := agg.Summarize([]quality.Breach{breach}, nil, CacheStats{Hits: 1}, ResourceStats{})

	path := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, s.WriteJSON(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Summary
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NotEmpty(t, s.CycleID)
	assert.Equal(t, s.CycleID, decoded.CycleID)
	assert.Equal(t, s.TotalValidations, decoded.TotalValidations)
	assert.InDelta(t, s.SuccessRate, decoded.SuccessRate, 1e-9)
	require.Len(t, decoded.Breaches, 1)
	assert.Equal(t, quality.BreachSuccessRate, decoded.Breaches[0].Kind)
	assert.Equal(t, s.PerDataset["silver/orders"], decoded.PerDataset["silver/orders"])
}

func TestSnapshotResourcesWarnsOverAdvisoryLimit(t *testing.T) {
	stats := SnapshotResources(config.ResourceConfig{MaxMemoryMB: 1}, nil)
	if stats.MemoryTotalMB == 0 {
		t.Skip("memory stats unavailable on this host")
	}

	assert.Greater(t, stats.MemoryUsedMB, 1.0)
	require.NotEmpty(t, stats.Warnings)
	assert.Contains(t, stats.Warnings[0], "memory usage")
}

func TestSnapshotResourcesNoLimitsNoWarnings(t *testing.T) {
	stats := SnapshotResources(config.ResourceConfig{}, nil)
	assert.Empty(t, stats.Warnings)
}
