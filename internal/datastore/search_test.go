// search_test.go: integration tests for the composable event filters.
package datastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventIDs collects the ids of the given events, in order.
func eventIDs(events []ThermalEvent) []uint64 {
	ids := make([]uint64, len(events))
	for i := range events {
		ids[i] = events[i].ID
	}
	return ids
}

// makeSearchCorpus persists four events spanning two experiments, both
// cameras, both categories and three datasets:
//
//	a: experiment 100, camera A, hot spot on divertor view, annotator, 0.90
//	b: experiment 100, camera B, hot spot on wide angle, pipeline, 0.50
//	c: experiment 200, camera A, strike line on divertor view, annotator, 0.70
//	d: experiment 300, camera B, hot spot on divertor view, pipeline, 0.95
func makeSearchCorpus(t *testing.T, ds Interface) (a, b, c, d *ThermalEvent) {
	t.Helper()
	ctx := context.Background()

	a = makeTestEvent(t, 100, 1000, 2000)
	a.SetDatasets([]int{1, 2})

	b = makeTestEvent(t, 100, 3000, 4000)
	b.Device = "IR camera B"
	b.LineOfSight = "wide angle"
	b.User = "pipeline"
	b.Method = "manual annotation"
	b.Confidence = 0.5

	c = makeTestEvent(t, 200, 6000, 7000)
	c.Category = "strike line"
	c.Confidence = 0.7
	c.SetDatasets([]int{1, 3})

	d = makeTestEvent(t, 300, 1000, 5000)
	d.Device = "IR camera B"
	d.User = "pipeline"
	d.Confidence = 0.95
	severity := "high"
	d.Severity = &severity

	require.NoError(t, ds.SaveThermalEvents(ctx, a, b, c, d), "Failed to save search corpus")
	require.NoError(t, ds.ChangeAnalysisStatus(ctx, c.ID, "to analyze"), "Failed to set analysis status")

	return a, b, c, d
}

func TestSearchThermalEvents_Filters(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)
	ctx := context.Background()

	a, b, c, d := makeSearchCorpus(t, ds)

	search := func(t *testing.T, filters EventFilters, want ...uint64) {
		t.Helper()
		events, err := ds.SearchThermalEvents(ctx, filters)
		require.NoError(t, err, "Search failed")
		assert.Equal(t, want, eventIDs(events))
	}

	t.Run("ByExperiment", func(t *testing.T) {
		t.Parallel()
		search(t, NewEventFilters().WithExperimentID(100), a.ID, b.ID)
	})

	t.Run("ByExperimentRange", func(t *testing.T) {
		t.Parallel()
		search(t, NewEventFilters().WithExperimentIDRange(150, 300), c.ID, d.ID)
	})

	t.Run("ByDevice", func(t *testing.T) {
		t.Parallel()
		search(t, NewEventFilters().WithDevice("IR camera A"), a.ID, c.ID)
	})

	t.Run("ByCategory", func(t *testing.T) {
		t.Parallel()
		search(t, NewEventFilters().WithCategory("hot spot"), a.ID, b.ID, d.ID)
	})

	t.Run("ByLineOfSightSubstring", func(t *testing.T) {
		t.Parallel()
		search(t, NewEventFilters().WithLineOfSight("wide"), b.ID)
	})

	t.Run("ByUser", func(t *testing.T) {
		t.Parallel()
		search(t, NewEventFilters().WithUser("annotator"), a.ID, c.ID)
	})

	t.Run("ByMethodSubstring", func(t *testing.T) {
		t.Parallel()
		search(t, NewEventFilters().WithMethod("manual"), b.ID)
	})

	t.Run("BySeverity", func(t *testing.T) {
		t.Parallel()
		search(t, NewEventFilters().WithSeverity("high"), d.ID)
	})

	t.Run("ByAnalysisStatus", func(t *testing.T) {
		t.Parallel()
		search(t, NewEventFilters().WithAnalysisStatus("to analyze"), c.ID)
	})

	t.Run("ByConfidence", func(t *testing.T) {
		t.Parallel()
		search(t, NewEventFilters().WithConfidenceAbove(0.8), a.ID, d.ID)
	})

	t.Run("ByDataset", func(t *testing.T) {
		t.Parallel()
		search(t, NewEventFilters().WithDataset(2), a.ID)
	})

	t.Run("ByDatasetsCombineWithOr", func(t *testing.T) {
		t.Parallel()
		search(t, NewEventFilters().WithDatasets(2, 3), a.ID, c.ID)
	})

	t.Run("CombinedFilters", func(t *testing.T) {
		t.Parallel()
		search(t, NewEventFilters().WithExperimentID(100).WithDevice("IR camera B"), b.ID)
	})

	t.Run("NoMatch", func(t *testing.T) {
		t.Parallel()
		events, err := ds.SearchThermalEvents(ctx, NewEventFilters().WithExperimentID(999))
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("Pagination", func(t *testing.T) {
		t.Parallel()
		search(t, NewEventFilters().WithLimit(2), a.ID, b.ID)
		search(t, NewEventFilters().WithLimit(2).WithOffset(2), c.ID, d.ID)
	})
}

func TestSearchThermalEventIDs(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)
	ctx := context.Background()

	a, b, _, _ := makeSearchCorpus(t, ds)

	ids, err := ds.SearchThermalEventIDs(ctx, NewEventFilters().WithExperimentID(100))
	require.NoError(t, err, "Failed to search event ids")
	assert.Equal(t, []uint64{a.ID, b.ID}, ids)
}

// TestCountThermalEvents verifies that counting honors the filters but
// ignores pagination.
func TestCountThermalEvents(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)
	ctx := context.Background()

	makeSearchCorpus(t, ds)

	count, err := ds.CountThermalEvents(ctx, NewEventFilters())
	require.NoError(t, err, "Failed to count events")
	assert.EqualValues(t, 4, count)

	count, err = ds.CountThermalEvents(ctx, NewEventFilters().WithCategory("hot spot"))
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	count, err = ds.CountThermalEvents(ctx, NewEventFilters().WithLimit(1))
	require.NoError(t, err)
	assert.EqualValues(t, 4, count, "Counting must ignore the limit")
}

// TestSearchThermalEvents_ExcludingTimeIntervals verifies the interval
// exclusion semantics: an event is dropped when its whole time window lies
// inside an excluded interval, bounds included.
func TestSearchThermalEvents_ExcludingTimeIntervals(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)
	ctx := context.Background()

	early := makeTestEvent(t, 4242, 1000, 2000)
	middle := makeTestEvent(t, 4242, 3000, 4000)
	late := makeTestEvent(t, 4242, 6000, 7000)
	require.NoError(t, ds.SaveThermalEvents(ctx, early, middle, late), "Failed to save events")

	search := func(t *testing.T, intervals []TimeInterval, want ...uint64) {
		t.Helper()
		filters := NewEventFilters().ExcludingTimeIntervals(intervals...)
		events, err := ds.SearchThermalEvents(ctx, filters)
		require.NoError(t, err, "Search failed")
		assert.Equal(t, want, eventIDs(events))
	}

	t.Run("EnclosedEventExcluded", func(t *testing.T) {
		t.Parallel()
		search(t, []TimeInterval{Interval(2500, 5000)}, early.ID, late.ID)
	})

	t.Run("BoundsAreInclusive", func(t *testing.T) {
		t.Parallel()
		// The event spanning exactly [3000, 4000] counts as inside.
		search(t, []TimeInterval{Interval(3000, 4000)}, early.ID, late.ID)
	})

	t.Run("OverlappingEventsKept", func(t *testing.T) {
		t.Parallel()
		// Events reaching outside the interval on either side survive.
		search(t, []TimeInterval{Interval(1500, 3500)}, early.ID, middle.ID, late.ID)
	})

	t.Run("OpenLowerBound", func(t *testing.T) {
		t.Parallel()
		// Everything from 3000 onwards is excluded.
		search(t, []TimeInterval{IntervalFrom(3000)}, early.ID)
	})

	t.Run("OpenUpperBound", func(t *testing.T) {
		t.Parallel()
		// Everything up to 4000 is excluded.
		search(t, []TimeInterval{IntervalUntil(4000)}, late.ID)
	})

	t.Run("MultipleIntervals", func(t *testing.T) {
		t.Parallel()
		search(t, []TimeInterval{Interval(500, 2500), Interval(5500, 7500)}, middle.ID)
	})
}
