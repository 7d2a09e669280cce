// mysql_integration_test.go: end-to-end tests of the MySQL backend against a
// disposable server. The tests are skipped when no container runtime is
// available.
package datastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/fusionvision/thermal-events-go/internal/conf"
	"github.com/fusionvision/thermal-events-go/internal/errors"
)

// startMySQLContainer runs a disposable MySQL server and returns settings
// pointing at it.
func startMySQLContainer(t *testing.T) *conf.Settings {
	t.Helper()

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := mysql.Run(ctx, "mysql:8.4",
		mysql.WithDatabase("thermal_events"),
		mysql.WithUsername("tester"),
		mysql.WithPassword("secret"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "Failed to start MySQL container")

	host, err := container.Host(ctx)
	require.NoError(t, err, "Failed to resolve container host")
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err, "Failed to resolve container port")

	settings := &conf.Settings{}
	settings.Database.MySQL.Host = host
	settings.Database.MySQL.Port = port.Int()
	settings.Database.MySQL.Database = "thermal_events"
	settings.Database.MySQL.Username = "tester"
	settings.Database.MySQL.Password = "secret"
	return settings
}

// TestMySQLStore_EndToEnd exercises the MySQL backend: migration, seeding,
// the event round trip, foreign key enforcement and the ANALYZE-based
// optimize pass. One container serves all subtests.
func TestMySQLStore_EndToEnd(t *testing.T) {
	settings := startMySQLContainer(t)

	dataStore := New(settings, nil)
	require.IsType(t, &MySQLStore{}, dataStore)

	require.NoError(t, dataStore.Open(), "Failed to open MySQL database")
	t.Cleanup(func() {
		assert.NoError(t, dataStore.Close(), "Failed to close datastore")
	})

	ctx := context.Background()
	require.NoError(t, dataStore.SeedLookups(ctx, testSeed()), "Failed to seed lookup tables")

	t.Run("RoundTrip", func(t *testing.T) {
		event := makeTestEvent(t, 56423, 1_000_000, 2_000_000)
		require.NoError(t, dataStore.SaveThermalEvents(ctx, event), "Failed to save event")
		require.NotZero(t, event.ID, "Event ID should be assigned after save")

		loaded, err := dataStore.GetThermalEvent(ctx, event.ID)
		require.NoError(t, err, "Failed to load event")
		assert.Equal(t, int64(56423), loaded.ExperimentID)
		assert.Equal(t, int64(1_000_000), loaded.InitialTimestampNs)
		assert.Equal(t, int64(2_000_000), loaded.FinalTimestampNs)
		require.Len(t, loaded.Instances, 2, "All instances should be loaded")
	})

	t.Run("ForeignKeysEnforced", func(t *testing.T) {
		event := makeTestEvent(t, 56423, 5_000_000)
		event.Device = "no such camera"

		err := dataStore.SaveThermalEvents(ctx, event)
		require.Error(t, err, "MySQL must reject an unknown device")
		assert.True(t, errors.IsIntegrity(err), "expected an integrity error, got %v", err)
	})

	t.Run("SearchAndStatus", func(t *testing.T) {
		events, err := dataStore.SearchThermalEvents(ctx, NewEventFilters().WithExperimentID(56423))
		require.NoError(t, err, "Failed to search events")
		require.Len(t, events, 1, "Only the committed event may match")

		require.NoError(t, dataStore.ChangeAnalysisStatus(ctx, events[0].ID, "to analyze"))

		// MySQL reports zero affected rows both for missing rows and no-op
		// updates; the store must tell them apart.
		require.NoError(t, dataStore.ChangeAnalysisStatus(ctx, events[0].ID, "to analyze"),
			"Re-applying the current status should succeed")
		err = dataStore.ChangeAnalysisStatus(ctx, 424242, "to analyze")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err), "expected a not found error, got %v", err)
	})

	t.Run("SeedIdempotent", func(t *testing.T) {
		assert.NoError(t, dataStore.SeedLookups(ctx, testSeed()), "Reseeding must succeed")
	})

	t.Run("Optimize", func(t *testing.T) {
		assert.NoError(t, dataStore.Optimize(ctx), "ANALYZE TABLE should succeed")
	})

	t.Run("Statistics", func(t *testing.T) {
		stats, err := dataStore.Statistics(ctx)
		require.NoError(t, err, "Failed to read database statistics")

		assert.Equal(t, "mysql", stats.Backend)
		assert.Positive(t, stats.SizeBytes, "A migrated schema occupies pages")
		assert.Contains(t, stats.RowCounts, "thermal_events")
	})
}

// TestMySQLValidation covers the fast-fail configuration checks that run
// before any connection attempt.
func TestMySQLValidation(t *testing.T) {
	t.Parallel()

	t.Run("MissingHost", func(t *testing.T) {
		t.Parallel()

		settings := &conf.Settings{}
		settings.Database.MySQL.Database = "thermal_events"

		err := New(settings, nil).Open()
		require.Error(t, err, "Open must fail without a host")
		assert.True(t, errors.IsValidation(err), "expected a validation error, got %v", err)
	})

	t.Run("MissingDatabase", func(t *testing.T) {
		t.Parallel()

		settings := &conf.Settings{}
		settings.Database.MySQL.Host = "db.example.org"

		err := New(settings, nil).Open()
		require.Error(t, err, "Open must fail without a database name")
		assert.True(t, errors.IsValidation(err), "expected a validation error, got %v", err)
	})
}
