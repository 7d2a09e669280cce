// lookups_test.go: integration tests for the lookup tables, their cache and
// the canonical seed rows.
package datastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fusionvision/thermal-events-go/internal/errors"
)

func TestListLookups(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)
	ctx := context.Background()

	t.Run("Devices", func(t *testing.T) {
		t.Parallel()
		names, err := ds.ListDevices(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"IR camera A", "IR camera B"}, names)
	})

	t.Run("Methods", func(t *testing.T) {
		t.Parallel()
		names, err := ds.ListMethods(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"detection pipeline", "manual annotation"}, names)
	})

	t.Run("SeverityTypes", func(t *testing.T) {
		t.Parallel()
		names, err := ds.ListSeverityTypes(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"high", "low"}, names)
	})

	t.Run("LinesOfSight", func(t *testing.T) {
		t.Parallel()
		names, err := ds.ListLinesOfSight(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"divertor view", "wide angle"}, names)
	})

	t.Run("Categories", func(t *testing.T) {
		t.Parallel()
		names, err := ds.ListCategories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"hot spot", "strike line"}, names)
	})

	t.Run("AnalysisStatuses", func(t *testing.T) {
		t.Parallel()
		names, err := ds.ListAnalysisStatuses(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"analyzed (follow-up required)",
			"analyzed (ok)",
			"detection error",
			"detection problem",
			"not analyzed",
			"to analyze",
		}, names, "The canonical analysis workflow must be seeded")
	})

	t.Run("DatasetIDs", func(t *testing.T) {
		t.Parallel()
		ids, err := ds.ListDatasetIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1}, ids, "The catch-all dataset must be seeded")
	})

	t.Run("CompatibleLinesOfSight", func(t *testing.T) {
		t.Parallel()
		names, err := ds.CompatibleLinesOfSight(ctx, "hot spot")
		require.NoError(t, err)
		assert.Equal(t, []string{"divertor view", "wide angle"}, names)
	})

	t.Run("CompatibleLinesOfSightUnknownCategory", func(t *testing.T) {
		t.Parallel()
		names, err := ds.CompatibleLinesOfSight(ctx, "no such category")
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("CompatibleLinesOfSightEmptyCategory", func(t *testing.T) {
		t.Parallel()
		_, err := ds.CompatibleLinesOfSight(ctx, "")
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err), "expected a validation error, got %v", err)
	})
}

// TestListUsers_CaseInsensitiveOrder verifies that user names sort without
// regard to case, so "Operator" lands between "annotator" and "pipeline".
func TestListUsers_CaseInsensitiveOrder(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)
	ctx := context.Background()

	require.NoError(t, ds.SeedLookups(ctx, LookupSeed{Users: []User{{Name: "Operator"}}}),
		"Failed to seed the extra user")

	names, err := ds.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"annotator", "Operator", "pipeline"}, names)
}

func TestUserHasWriteRights(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)
	ctx := context.Background()

	t.Run("KnownUser", func(t *testing.T) {
		ok, err := ds.UserHasWriteRights(ctx, "annotator")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		ok, err := ds.UserHasWriteRights(ctx, "stranger")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("EmptyNameResolvesToCurrentUser", func(t *testing.T) {
		name, err := CurrentUserName()
		if err != nil {
			t.Skipf("cannot resolve the current OS user: %v", err)
		}

		require.NoError(t, ds.SeedLookups(ctx, LookupSeed{Users: []User{{Name: name}}}),
			"Failed to seed the current user")

		ok, err := ds.UserHasWriteRights(ctx, "")
		require.NoError(t, err)
		assert.True(t, ok, "The current OS user should have been granted rights")
	})
}

// TestSeedLookups_Idempotent verifies that reseeding the same rows neither
// fails nor duplicates them.
func TestSeedLookups_Idempotent(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)
	ctx := context.Background()

	// createDatabase already seeded once; seed the same rows again.
	require.NoError(t, ds.SeedLookups(ctx, testSeed()), "Reseeding must succeed")

	db := storeDB(t, ds)
	var devices, statuses, datasets int64
	require.NoError(t, db.Model(&Device{}).Count(&devices).Error)
	require.NoError(t, db.Model(&AnalysisStatus{}).Count(&statuses).Error)
	require.NoError(t, db.Model(&Dataset{}).Count(&datasets).Error)

	assert.EqualValues(t, 2, devices, "Devices must not be duplicated")
	assert.EqualValues(t, 6, statuses, "The canonical statuses must not be duplicated")
	assert.EqualValues(t, 1, datasets, "The catch-all dataset must not be duplicated")
}

// TestLookupCaching verifies that lookup listings are served from the cache
// until seeding flushes it.
func TestLookupCaching(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)
	ctx := context.Background()

	names, err := ds.ListDevices(ctx)
	require.NoError(t, err)
	require.Len(t, names, 2)

	// Insert behind the cache's back: the listing must not see the row yet.
	db := storeDB(t, ds)
	require.NoError(t, db.Create(&Device{Name: "IR camera Z"}).Error)

	names, err = ds.ListDevices(ctx)
	require.NoError(t, err)
	assert.Len(t, names, 2, "The cached listing must survive a direct insert")

	// Seeding flushes the cache, so the next listing hits the database.
	require.NoError(t, ds.SeedLookups(ctx), "Failed to reseed")

	names, err = ds.ListDevices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"IR camera A", "IR camera B", "IR camera Z"}, names)
}

// TestProcessedMovies covers the detection bookkeeping falling alongside the
// thermal events.
func TestProcessedMovies(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)
	ctx := context.Background()

	first := &ProcessedMovie{ExperimentID: 61000, LineOfSight: "divertor view", Method: "detection pipeline"}
	second := &ProcessedMovie{
		ExperimentID: 61000,
		LineOfSight:  "wide angle",
		Method:       "detection pipeline",
		ProcessedAt:  time.Date(2026, 5, 12, 9, 30, 0, 0, time.UTC),
	}
	other := &ProcessedMovie{ExperimentID: 61001, LineOfSight: "divertor view", Method: "manual annotation"}

	require.NoError(t, ds.RecordProcessedMovie(ctx, first), "Failed to record movie")
	require.NoError(t, ds.RecordProcessedMovie(ctx, second), "Failed to record movie")
	require.NoError(t, ds.RecordProcessedMovie(ctx, other), "Failed to record movie")

	assert.False(t, first.ProcessedAt.IsZero(), "A missing processing time must be filled in")

	movies, err := ds.ProcessedMovies(ctx, 61000)
	require.NoError(t, err, "Failed to list processed movies")
	require.Len(t, movies, 2)
	assert.Equal(t, "divertor view", movies[0].LineOfSight)
	assert.Equal(t, "wide angle", movies[1].LineOfSight)

	none, err := ds.ProcessedMovies(ctx, 61002)
	require.NoError(t, err)
	assert.Empty(t, none, "An unprocessed experiment has no records")

	t.Run("NilMovie", func(t *testing.T) {
		err := ds.RecordProcessedMovie(ctx, nil)
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err), "expected a validation error, got %v", err)
	})

	t.Run("UnknownLineOfSight", func(t *testing.T) {
		movie := &ProcessedMovie{ExperimentID: 61003, LineOfSight: "no such view", Method: "detection pipeline"}
		err := ds.RecordProcessedMovie(ctx, movie)
		require.Error(t, err, "The line of sight foreign key must reject unknown values")
		assert.True(t, errors.IsIntegrity(err), "expected an integrity error, got %v", err)
	})
}
