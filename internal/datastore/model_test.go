// model_test.go: unit tests for the thermal event model and its derived
// aggregate columns. These tests run against in-memory structs only.
package datastore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fusionvision/thermal-events-go/internal/errors"
	"github.com/fusionvision/thermal-events-go/internal/geometry"
)

// intPtr returns a pointer to the given int, for optional columns.
func intPtr(v int) *int {
	return &v
}

func TestNewThermalEvent_Defaults(t *testing.T) {
	t.Parallel()

	event := NewThermalEvent()

	assert.Equal(t, DefaultDataset, event.Dataset, "New events belong to the catch-all dataset")
	assert.Equal(t, DefaultAnalysisStatus, event.AnalysisStatus)
	assert.Empty(t, event.Instances)
	assert.Zero(t, event.InitialTimestampNs, "Aggregates stay zero until Compute is called")
}

func TestBeforeCreate_FillsDefaults(t *testing.T) {
	t.Parallel()

	t.Run("EmptyFields", func(t *testing.T) {
		t.Parallel()

		event := &ThermalEvent{}
		require.NoError(t, event.BeforeCreate(nil))

		assert.Equal(t, DefaultDataset, event.Dataset)
		assert.Equal(t, DefaultAnalysisStatus, event.AnalysisStatus)
	})

	t.Run("SetFieldsPreserved", func(t *testing.T) {
		t.Parallel()

		event := &ThermalEvent{Dataset: "1, 3", AnalysisStatus: "to analyze"}
		require.NoError(t, event.BeforeCreate(nil))

		assert.Equal(t, "1, 3", event.Dataset)
		assert.Equal(t, "to analyze", event.AnalysisStatus)
	})
}

// TestCompute_Aggregates verifies that Compute sorts instances by timestamp
// and derives the time window and maximum temperature columns.
func TestCompute_Aggregates(t *testing.T) {
	t.Parallel()

	event := NewThermalEvent()

	// Instances added out of order, hottest frame in the middle.
	for _, frame := range []struct {
		ts   int64
		maxT int
	}{
		{3000, 550},
		{1000, 480},
		{2000, 710},
	} {
		instance := NewInstanceFromRectangle(geometry.Rect{X: 1, Y: 1, Width: 4, Height: 4}, frame.ts)
		instance.MaxTemperatureC = intPtr(frame.maxT)
		event.AddInstance(instance)
	}

	require.NoError(t, event.Compute())

	assert.Equal(t, []int64{1000, 2000, 3000}, event.Timestamps(), "Instances must be sorted by timestamp")
	assert.Equal(t, int64(1000), event.InitialTimestampNs)
	assert.Equal(t, int64(3000), event.FinalTimestampNs)
	assert.Equal(t, int64(2000), event.DurationNs)

	require.NotNil(t, event.MaxTemperatureC)
	assert.Equal(t, 710, *event.MaxTemperatureC)
	require.NotNil(t, event.MaxTTimestampNs)
	assert.Equal(t, int64(2000), *event.MaxTTimestampNs)
}

// TestCompute_DuplicateTimestamps verifies that when several instances share
// a timestamp, the last one added wins.
func TestCompute_DuplicateTimestamps(t *testing.T) {
	t.Parallel()

	event := NewThermalEvent()

	first := NewInstanceFromRectangle(geometry.Rect{X: 1, Y: 1, Width: 2, Height: 2}, 1000)
	second := NewInstanceFromRectangle(geometry.Rect{X: 50, Y: 50, Width: 2, Height: 2}, 1000)
	event.AddInstance(first)
	event.AddInstance(second)

	require.NoError(t, event.Compute())

	require.Len(t, event.Instances, 1, "Duplicate timestamps must collapse to one instance")
	assert.Equal(t, 50, event.Instances[0].BboxX, "The last instance added must win")
}

// TestCompute_MaxTemperatureTies verifies that the earliest instance wins
// when several instances share the maximum temperature.
func TestCompute_MaxTemperatureTies(t *testing.T) {
	t.Parallel()

	event := NewThermalEvent()
	for _, ts := range []int64{1000, 2000, 3000} {
		instance := NewInstanceFromRectangle(geometry.Rect{X: 0, Y: 0, Width: 2, Height: 2}, ts)
		instance.MaxTemperatureC = intPtr(800)
		event.AddInstance(instance)
	}

	require.NoError(t, event.Compute())

	require.NotNil(t, event.MaxTTimestampNs)
	assert.Equal(t, int64(1000), *event.MaxTTimestampNs, "Ties must resolve to the earliest instance")
}

// TestCompute_NoTemperatures verifies that events without temperature
// measurements keep nil temperature columns.
func TestCompute_NoTemperatures(t *testing.T) {
	t.Parallel()

	event := NewThermalEvent()
	event.AddInstance(NewInstanceFromRectangle(geometry.Rect{X: 0, Y: 0, Width: 2, Height: 2}, 1000))

	require.NoError(t, event.Compute())

	assert.Nil(t, event.MaxTemperatureC)
	assert.Nil(t, event.MaxTTimestampNs)
}

func TestCompute_NoInstances(t *testing.T) {
	t.Parallel()

	event := NewThermalEvent()
	err := event.Compute()
	require.Error(t, err, "Compute must fail without instances")
	assert.True(t, errors.IsValidation(err), "expected a validation error, got %v", err)
}

// TestCompute_Staleness verifies that Compute is a no-op until AddInstance
// marks the aggregates stale again.
func TestCompute_Staleness(t *testing.T) {
	t.Parallel()

	event := NewThermalEvent()
	event.AddInstance(NewInstanceFromRectangle(geometry.Rect{X: 0, Y: 0, Width: 2, Height: 2}, 1000))
	require.NoError(t, event.Compute())
	require.NoError(t, event.Compute(), "Recomputing up-to-date aggregates must succeed")
	assert.Equal(t, int64(1000), event.FinalTimestampNs)

	event.AddInstance(NewInstanceFromRectangle(geometry.Rect{X: 0, Y: 0, Width: 2, Height: 2}, 5000))
	require.NoError(t, event.Compute())
	assert.Equal(t, int64(5000), event.FinalTimestampNs, "AddInstance must mark aggregates stale")
	assert.Equal(t, int64(4000), event.DurationNs)
}

func TestSetDatasets(t *testing.T) {
	t.Parallel()

	event := NewThermalEvent()

	event.SetDatasets([]int{5, 1, 3})
	assert.Equal(t, "1, 3, 5", event.Dataset, "Dataset ids must be sorted")

	event.SetDatasets([]int{7})
	assert.Equal(t, "7", event.Dataset)

	event.SetDatasets(nil)
	assert.Empty(t, event.Dataset)
}

func TestNewInstanceFromRectangle(t *testing.T) {
	t.Parallel()

	rect := geometry.Rect{X: 10, Y: 20, Width: 8, Height: 4}
	instance := NewInstanceFromRectangle(rect, 1234)

	assert.Equal(t, int64(1234), instance.TimestampNs)
	assert.Equal(t, rect, instance.Bbox())

	outline, err := instance.Outline()
	require.NoError(t, err)
	assert.Equal(t, geometry.Polygon{{X: 10, Y: 20}, {X: 17, Y: 20}, {X: 17, Y: 23}, {X: 10, Y: 23}},
		outline, "The polygon column must hold the rectangle corners")
}

func TestNewInstanceFromPolygon(t *testing.T) {
	t.Parallel()

	t.Run("RectangularPolygon", func(t *testing.T) {
		t.Parallel()

		polygon := geometry.Polygon{{X: 5, Y: 5}, {X: 9, Y: 5}, {X: 9, Y: 8}, {X: 5, Y: 8}}
		instance, err := NewInstanceFromPolygon(polygon, 1000)
		require.NoError(t, err)

		assert.Equal(t, geometry.Rect{X: 5, Y: 5, Width: 5, Height: 4}, instance.Bbox(),
			"A rectangular polygon must map to its exact rectangle")
	})

	t.Run("IrregularPolygon", func(t *testing.T) {
		t.Parallel()

		triangle := geometry.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 5, Y: 8}}
		instance, err := NewInstanceFromPolygon(triangle, 1000)
		require.NoError(t, err)

		assert.Equal(t, geometry.Rect{X: 0, Y: 0, Width: 11, Height: 9}, instance.Bbox(),
			"An irregular polygon must map to its bounding rectangle")

		outline, err := instance.Outline()
		require.NoError(t, err)
		assert.Equal(t, triangle, outline, "The polygon must survive the string encoding")
	})

	t.Run("EmptyPolygon", func(t *testing.T) {
		t.Parallel()

		_, err := NewInstanceFromPolygon(geometry.Polygon{}, 1000)
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err), "expected a validation error, got %v", err)
	})

	t.Run("OversizedPolygonSimplified", func(t *testing.T) {
		t.Parallel()

		// 100 vertices on a circle encode to far more than the column holds.
		polygon := make(geometry.Polygon, 0, 100)
		for i := range 100 {
			angle := 2 * math.Pi * float64(i) / 100
			polygon = append(polygon, geometry.Point{
				X: 600 + int(500*math.Cos(angle)),
				Y: 600 + int(500*math.Sin(angle)),
			})
		}

		instance, err := NewInstanceFromPolygon(polygon, 1000)
		require.NoError(t, err)

		assert.LessOrEqual(t, len(instance.Polygon), MaxPolygonStringLength,
			"The stored encoding must fit the polygon column")

		outline, err := instance.Outline()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(outline), 3, "Simplification must leave a usable polygon")
	})
}

// TestOutline_FallsBackToBbox verifies that instances without a stored
// polygon report their bounding box corners.
func TestOutline_FallsBackToBbox(t *testing.T) {
	t.Parallel()

	instance := ThermalEventInstance{BboxX: 1, BboxY: 2, BboxWidth: 3, BboxHeight: 2}

	outline, err := instance.Outline()
	require.NoError(t, err)
	assert.Equal(t, geometry.Polygon{{X: 1, Y: 2}, {X: 3, Y: 2}, {X: 3, Y: 3}, {X: 1, Y: 3}}, outline)
}

func TestStrikeLineDescriptor_SegmentedPoints(t *testing.T) {
	t.Parallel()

	line := geometry.Polygon{{X: 12, Y: 40}, {X: 18, Y: 44}, {X: 25, Y: 47}}
	descriptor := NewStrikeLineDescriptor(7, line, 12.5, 0.03)

	assert.Equal(t, uint64(7), descriptor.ThermalEventInstanceID)
	assert.InDelta(t, 12.5, descriptor.Angle, 1e-9)
	assert.InDelta(t, 0.03, descriptor.Curve, 1e-9)
	assert.False(t, descriptor.FlagRT)

	points, err := descriptor.SegmentedPointsList()
	require.NoError(t, err)
	assert.Equal(t, line, points, "Segmented points must survive the string encoding")
}
