package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/fusionvision/thermal-events-go/internal/conf"
	"github.com/fusionvision/thermal-events-go/internal/errors"
)

// MySQL connection pool sizing. Detection pipelines open the store once per
// process, so the pool stays small; the lifetime cap keeps connections from
// outliving the server-side wait timeout.
const (
	mysqlMaxOpenConns    = 25
	mysqlMaxIdleConns    = 5
	mysqlConnMaxLifetime = 5 * time.Minute
)

// MySQLStore implements the thermal event store on a MySQL server.
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// validateMySQLConfig rejects configurations the backend cannot dial.
func validateMySQLConfig(settings *conf.Settings) error {
	if settings == nil {
		return validationError("settings are nil", "settings", nil)
	}
	if settings.Database.MySQL.Host == "" {
		return validationError("MySQL host is not configured", "mysql_host", "")
	}
	if settings.Database.MySQL.Database == "" {
		return validationError("MySQL database name is not configured", "mysql_database", "")
	}
	return nil
}

// Open sets up the MySQL database connection and migrates the schema.
func (store *MySQLStore) Open() error {
	if err := validateMySQLConfig(store.Settings); err != nil {
		return err
	}

	mysqlSettings := store.Settings.Database.MySQL

	// READ COMMITTED keeps concurrent annotation sessions from blocking each
	// other on gap locks during interval searches.
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&transaction_isolation=%%27READ-COMMITTED%%27",
		mysqlSettings.Username, mysqlSettings.Password,
		mysqlSettings.Host, mysqlSettings.Port,
		mysqlSettings.Database)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: createGormLogger(store.metrics)})
	if err != nil {
		getLogger().Error("Failed to open MySQL database",
			"host", mysqlSettings.Host,
			"port", mysqlSettings.Port,
			"database", mysqlSettings.Database,
			"dsn", redactSensitiveInfo(dsn),
			"error", err)
		return criticalError(err, "open_database", "backend_unreachable",
			"db_type", "MySQL",
			"host", mysqlSettings.Host,
			"database", mysqlSettings.Database)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "open_database", errors.PriorityHigh, "db_type", "MySQL")
	}
	sqlDB.SetMaxOpenConns(mysqlMaxOpenConns)
	sqlDB.SetMaxIdleConns(mysqlMaxIdleConns)
	sqlDB.SetConnMaxLifetime(mysqlConnMaxLifetime)

	// Fail now rather than on the first query if the server is unreachable.
	if err := sqlDB.Ping(); err != nil {
		return criticalError(err, "ping_database", "backend_unreachable",
			"db_type", "MySQL",
			"host", mysqlSettings.Host)
	}

	store.DB = db

	if err := performAutoMigration(db, "MySQL"); err != nil {
		return err
	}

	getLogger().Debug("MySQL database opened",
		"host", mysqlSettings.Host,
		"database", mysqlSettings.Database)

	return nil
}

// Migrate brings the schema up to date without touching existing rows.
func (store *MySQLStore) Migrate() error {
	if store.DB == nil {
		return notInitializedError("migrate")
	}
	return performAutoMigration(store.DB, "MySQL")
}

// Optimize refreshes the index statistics of the event tables.
func (store *MySQLStore) Optimize(ctx context.Context) error {
	if store.DB == nil {
		return notInitializedError("optimize")
	}

	start := time.Now()

	tables := []string{
		"thermal_events",
		"thermal_events_instances",
		"strike_line_descriptors",
		"parent_child_relationships",
	}
	for _, table := range tables {
		if err := store.DB.WithContext(ctx).Exec("ANALYZE TABLE " + table).Error; err != nil {
			if store.metrics != nil {
				store.metrics.RecordMaintenanceOperation("optimize", "error")
			}
			return dbError(err, "optimize", errors.PriorityMedium,
				"db_type", "MySQL",
				"table", table)
		}
	}

	if store.metrics != nil {
		store.metrics.RecordMaintenanceOperation("optimize", "success")
		store.metrics.RecordMaintenanceDuration("optimize", time.Since(start).Seconds())
	}

	getLogger().Debug("MySQL tables analyzed",
		"tables", len(tables),
		"duration", time.Since(start))

	return nil
}
