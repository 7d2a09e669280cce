package datastore

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fusionvision/thermal-events-go/internal/conf"
	"github.com/fusionvision/thermal-events-go/internal/errors"
)

// SQLiteStore implements the thermal event store on a local SQLite file.
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

// validateSQLiteConfig rejects configurations the backend cannot open.
func validateSQLiteConfig(settings *conf.Settings) error {
	if settings == nil || settings.Database.SQLite.Path == "" {
		return validationError("SQLite database path is not configured", "sqlite_database_file", "")
	}
	return nil
}

// Open sets up the SQLite database connection and migrates the schema.
func (store *SQLiteStore) Open() error {
	if err := validateSQLiteConfig(store.Settings); err != nil {
		return err
	}

	dbPath := store.Settings.Database.SQLite.Path
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(err).
				Component("datastore").
				Category(errors.CategoryFileIO).
				Context("operation", "create_database_directory").
				Context("path", dir).
				Build()
		}
	}

	// Foreign keys are off by default in SQLite. The schema relies on them
	// for lookup integrity and for the instance and descriptor cascades.
	dsn := dbPath + "?_foreign_keys=on"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: createGormLogger(store.metrics)})
	if err != nil {
		return criticalError(err, "open_database", "backend_unreachable",
			"db_type", "SQLite",
			"path", dbPath)
	}

	store.DB = db

	if err := performAutoMigration(db, "SQLite"); err != nil {
		return err
	}

	getLogger().Debug("SQLite database opened",
		"path", dbPath)

	return nil
}

// Migrate brings the schema up to date without touching existing rows.
func (store *SQLiteStore) Migrate() error {
	if store.DB == nil {
		return notInitializedError("migrate")
	}
	return performAutoMigration(store.DB, "SQLite")
}

// Optimize reclaims free pages and refreshes the query planner statistics.
// VACUUM rewrites the database file, so this is meant for quiet periods.
func (store *SQLiteStore) Optimize(ctx context.Context) error {
	if store.DB == nil {
		return notInitializedError("optimize")
	}

	start := time.Now()

	for _, statement := range []string{"VACUUM", "PRAGMA optimize"} {
		if err := store.DB.WithContext(ctx).Exec(statement).Error; err != nil {
			if store.metrics != nil {
				store.metrics.RecordMaintenanceOperation("optimize", "error")
			}
			return dbError(err, "optimize", errors.PriorityMedium,
				"db_type", "SQLite",
				"statement", statement)
		}
	}

	if store.metrics != nil {
		store.metrics.RecordMaintenanceOperation("optimize", "success")
		store.metrics.RecordMaintenanceDuration("optimize", time.Since(start).Seconds())
	}

	getLogger().Debug("SQLite database optimized",
		"duration", time.Since(start))

	return nil
}
