// interfaces_test.go: shared fixtures and store construction tests.
package datastore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fusionvision/thermal-events-go/internal/conf"
	"github.com/fusionvision/thermal-events-go/internal/errors"
	"github.com/fusionvision/thermal-events-go/internal/geometry"
)

// createTestSettings creates minimal settings for database tests.
func createTestSettings(t *testing.T) *conf.Settings {
	t.Helper()
	settings := &conf.Settings{}
	settings.Database.SQLite.Enabled = true
	settings.Database.SQLite.Path = filepath.Join(t.TempDir(), "test.db")
	return settings
}

// createDatabase initializes a temporary database for testing purposes.
// It ensures the database connection is opened and handles potential errors.
// The lookup tables are seeded because the schema enforces them with foreign
// keys: an event referencing an unknown device would not save at all.
func createDatabase(t *testing.T, settings *conf.Settings) Interface {
	t.Helper()

	dataStore := New(settings, nil)

	// Attempt to open a database connection.
	require.NoError(t, dataStore.Open(), "Failed to open database")

	// Ensure the database is closed after the test completes.
	t.Cleanup(func() {
		assert.NoError(t, dataStore.Close(), "Failed to close datastore")
	})

	require.NoError(t, dataStore.SeedLookups(context.Background(), testSeed()),
		"Failed to seed lookup tables")

	return dataStore
}

// testSeed declares the lookup rows the test fixtures reference.
func testSeed() LookupSeed {
	return LookupSeed{
		Devices: []Device{
			{Name: "IR camera A"},
			{Name: "IR camera B"},
		},
		Methods: []Method{
			{Name: "detection pipeline"},
			{Name: "manual annotation"},
		},
		SeverityTypes: []Severity{
			{Name: "low"},
			{Name: "high"},
		},
		Users: []User{
			{Name: "annotator"},
			{Name: "pipeline"},
		},
		LinesOfSight: []LineOfSight{
			{Name: "divertor view"},
			{Name: "wide angle"},
		},
		Categories: []Category{
			{Name: "hot spot"},
			{Name: "strike line"},
		},
		CompatiblePairs: []CategoryLineOfSight{
			{ThermalEventCategory: "hot spot", LineOfSight: "divertor view"},
			{ThermalEventCategory: "hot spot", LineOfSight: "wide angle"},
			{ThermalEventCategory: "strike line", LineOfSight: "divertor view"},
		},
	}
}

// makeTestEvent builds a computed event on the given experiment with one
// rectangular instance per timestamp. Temperatures rise with each instance,
// so the hottest frame is always the last one.
func makeTestEvent(t *testing.T, experimentID int64, timestamps ...int64) *ThermalEvent {
	t.Helper()

	event := NewThermalEvent()
	event.ExperimentID = experimentID
	event.LineOfSight = "divertor view"
	event.Device = "IR camera A"
	event.Category = "hot spot"
	event.Method = "detection pipeline"
	event.User = "annotator"
	event.IsAutomaticDetection = true
	event.Confidence = 0.9

	for i, ts := range timestamps {
		instance := NewInstanceFromRectangle(geometry.Rect{X: 10, Y: 20, Width: 8, Height: 4}, ts)
		temperature := 600 + 25*i
		instance.MaxTemperatureC = &temperature
		event.AddInstance(instance)
	}
	require.NoError(t, event.Compute(), "Failed to compute event aggregates")

	return event
}

// storeDB exposes the GORM handle behind the interface for direct
// verification queries.
func storeDB(t *testing.T, ds Interface) *gorm.DB {
	t.Helper()

	// Type assert to SQLiteStore to access the embedded DataStore.DB
	sqliteStore, ok := ds.(*SQLiteStore)
	require.True(t, ok, "Interface must be *SQLiteStore for this test")

	return sqliteStore.DB
}

// TestNew_SelectsBackend verifies that the SQLite switch selects the
// file-backed store even when MySQL parameters are present.
func TestNew_SelectsBackend(t *testing.T) {
	t.Parallel()

	t.Run("SQLiteWhenEnabled", func(t *testing.T) {
		t.Parallel()

		settings := createTestSettings(t)
		settings.Database.MySQL.Host = "db.example.org"

		ds := New(settings, nil)
		assert.IsType(t, &SQLiteStore{}, ds, "SQLite switch must win over MySQL parameters")
	})

	t.Run("MySQLOtherwise", func(t *testing.T) {
		t.Parallel()

		settings := &conf.Settings{}
		settings.Database.MySQL.Host = "db.example.org"
		settings.Database.MySQL.Database = "thermal_events"

		ds := New(settings, nil)
		assert.IsType(t, &MySQLStore{}, ds)
	})
}

// TestOpen_CreatesDatabaseFile verifies that Open creates missing parent
// directories for the SQLite database file.
func TestOpen_CreatesDatabaseFile(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	settings.Database.SQLite.Path = filepath.Join(t.TempDir(), "nested", "dir", "events.db")

	createDatabase(t, settings)

	_, err := os.Stat(settings.Database.SQLite.Path)
	assert.NoError(t, err, "Open should create the database file and its directories")
}

// TestOpen_RejectsMissingPath verifies that the SQLite store refuses to open
// without a database path.
func TestOpen_RejectsMissingPath(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Database.SQLite.Enabled = true

	ds := New(settings, nil)
	err := ds.Open()
	require.Error(t, err, "Open must fail without a database path")
	assert.True(t, errors.IsValidation(err), "expected a validation error, got %v", err)
}

// TestMigrate_IsReentrant verifies that running the schema migration on an
// already migrated database is a no-op.
func TestMigrate_IsReentrant(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)

	require.NoError(t, ds.Migrate(), "Migrating an up-to-date schema should succeed")

	// The seeded lookups must survive a re-migration.
	devices, err := ds.ListDevices(context.Background())
	require.NoError(t, err, "Failed to list devices")
	assert.Len(t, devices, 2, "Re-migration must not touch existing rows")
}
