// Package datastore provides monitoring functions for database operations
package datastore

import (
	"context"
	"time"

	"github.com/fusionvision/thermal-events-go/internal/errors"
)

// monitoredTables are the tables whose row counts are exported as metrics.
var monitoredTables = []string{
	"thermal_events",
	"thermal_events_instances",
	"strike_line_descriptors",
	"parent_child_relationships",
	"processed_movies",
}

// startConnectionPoolMonitoring starts a goroutine that periodically samples
// the connection pool statistics until the context is cancelled.
func (ds *DataStore) startConnectionPoolMonitoring(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ds.sampleConnectionPool()
			}
		}
	}()
}

// sampleConnectionPool reads the sql.DB pool statistics once.
func (ds *DataStore) sampleConnectionPool() {
	sqlDB, err := ds.DB.DB()
	if err != nil {
		getLogger().Error("Failed to get SQL DB for monitoring",
			"error", err)
		return
	}

	stats := sqlDB.Stats()

	if ds.metrics != nil {
		ds.metrics.UpdateConnectionMetrics(
			stats.InUse,
			stats.Idle,
			stats.MaxOpenConnections,
		)
	}

	getLogger().Debug("Connection pool statistics",
		"open_connections", stats.OpenConnections,
		"in_use", stats.InUse,
		"idle", stats.Idle,
		"wait_count", stats.WaitCount,
		"wait_duration", stats.WaitDuration,
		"max_idle_closed", stats.MaxIdleClosed,
		"max_lifetime_closed", stats.MaxLifetimeClosed)

	// Warn if pool is exhausted
	if stats.WaitCount > 0 {
		getLogger().Warn("Connection pool experiencing waits",
			"wait_count", stats.WaitCount,
			"total_wait_duration", stats.WaitDuration)
	}
}

// startDatabaseMonitoring starts a goroutine that periodically samples the
// database size and table row counts until the context is cancelled.
func (ds *DataStore) startDatabaseMonitoring(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ds.sampleDatabaseStats(ctx)
			}
		}
	}()
}

// sampleDatabaseStats reads the database size and table row counts once.
func (ds *DataStore) sampleDatabaseStats(ctx context.Context) {
	if dbSize, err := ds.getDatabaseSize(ctx); err == nil && ds.metrics != nil {
		ds.metrics.UpdateDatabaseSize(dbSize)
	} else if err != nil {
		getLogger().Error("Failed to get database size",
			"error", err)
	}

	for _, table := range monitoredTables {
		if count, err := ds.getTableRowCount(ctx, table); err == nil && ds.metrics != nil {
			ds.metrics.UpdateTableRowCount(table, count)
		} else if err != nil {
			getLogger().Error("Failed to get table row count",
				"table", table,
				"error", err)
		}
	}
}

// getDatabaseSize returns the total size of the database in bytes
func (ds *DataStore) getDatabaseSize(ctx context.Context) (int64, error) {
	var size int64
	db := ds.DB.WithContext(ctx)

	switch ds.DB.Name() {
	case "sqlite":
		// For SQLite the size is page_count * page_size
		err := db.Raw("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()").Row().Scan(&size)
		if err != nil {
			return 0, dbError(err, "get_database_size", errors.PriorityLow, "db_type", "sqlite")
		}
		return size, nil
	case "mysql":
		var dbName string
		if err := db.Raw("SELECT DATABASE()").Scan(&dbName).Error; err != nil {
			return 0, dbError(err, "get_database_size", errors.PriorityLow, "db_type", "mysql")
		}

		err := db.Raw(`
			SELECT SUM(data_length + index_length)
			FROM information_schema.tables
			WHERE table_schema = ?
		`, dbName).Scan(&size).Error
		if err != nil {
			return 0, dbError(err, "get_database_size", errors.PriorityLow, "db_type", "mysql")
		}
		return size, nil
	default:
		return 0, errors.Newf("unsupported database type: %s", ds.DB.Name()).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get_database_size").
			Build()
	}
}

// getTableRowCount returns the number of rows in a specific table
func (ds *DataStore) getTableRowCount(ctx context.Context, table string) (int64, error) {
	var count int64
	if err := ds.DB.WithContext(ctx).Table(table).Count(&count).Error; err != nil {
		return 0, dbError(err, "get_table_row_count", errors.PriorityLow, "table", table)
	}
	return count, nil
}

// DatabaseStatistics summarizes the storage footprint of a database.
type DatabaseStatistics struct {
	Backend   string           `json:"backend"`
	SizeBytes int64            `json:"size_bytes"`
	RowCounts map[string]int64 `json:"row_counts"`
}

// Statistics reports the backend name, the database size in bytes and the
// row counts of the monitored tables.
func (ds *DataStore) Statistics(ctx context.Context) (*DatabaseStatistics, error) {
	size, err := ds.getDatabaseSize(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DatabaseStatistics{
		Backend:   ds.DB.Name(),
		SizeBytes: size,
		RowCounts: make(map[string]int64, len(monitoredTables)),
	}
	for _, table := range monitoredTables {
		count, err := ds.getTableRowCount(ctx, table)
		if err != nil {
			return nil, err
		}
		stats.RowCounts[table] = count
	}
	return stats, nil
}

// StartMonitoring initializes the monitoring routines for the datastore.
// A non-positive interval disables the corresponding routine; both routines
// stop when the context is cancelled.
func (ds *DataStore) StartMonitoring(ctx context.Context, connectionPoolInterval, databaseStatsInterval time.Duration) {
	if connectionPoolInterval > 0 {
		ds.startConnectionPoolMonitoring(ctx, connectionPoolInterval)
		getLogger().Info("Started connection pool monitoring",
			"interval", connectionPoolInterval)
	}

	if databaseStatsInterval > 0 {
		ds.startDatabaseMonitoring(ctx, databaseStatsInterval)
		getLogger().Info("Started database statistics monitoring",
			"interval", databaseStatsInterval)
	}
}
