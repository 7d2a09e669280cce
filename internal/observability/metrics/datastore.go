// Package metrics provides datastore metrics for observability
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics contains Prometheus metrics for datastore operations
type DatastoreMetrics struct {
	registry *prometheus.Registry

	// Database operation metrics
	dbOperationsTotal      *prometheus.CounterVec
	dbOperationDuration    *prometheus.HistogramVec
	dbOperationErrorsTotal *prometheus.CounterVec

	// Transaction metrics
	dbTransactionsTotal      *prometheus.CounterVec
	dbTransactionDuration    *prometheus.HistogramVec
	dbTransactionErrorsTotal *prometheus.CounterVec

	// Connection and performance metrics
	dbConnectionsActiveGauge prometheus.Gauge
	dbConnectionsIdleGauge   prometheus.Gauge
	dbConnectionsMaxGauge    prometheus.Gauge
	dbQueryResultSizeHist    *prometheus.HistogramVec

	// Thermal event operation metrics
	eventOperationsTotal   *prometheus.CounterVec
	eventOperationDuration *prometheus.HistogramVec
	eventInstanceCountHist *prometheus.HistogramVec

	// Search and query metrics
	searchOperationsTotal   *prometheus.CounterVec
	searchOperationDuration *prometheus.HistogramVec
	searchResultSizeHist    *prometheus.HistogramVec
	searchFilterComplexity  *prometheus.HistogramVec

	// Lookup cache metrics
	cacheOperationsTotal *prometheus.CounterVec
	cacheSizeGauge       prometheus.Gauge
	cacheHitRatio        prometheus.Gauge

	// Database size and growth metrics
	dbSizeBytesGauge     prometheus.Gauge
	dbTableRowCountGauge *prometheus.GaugeVec

	// Maintenance metrics
	maintenanceOperationsTotal *prometheus.CounterVec
	maintenanceDuration        *prometheus.HistogramVec

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// NewDatastoreMetrics creates and registers new datastore metrics
func NewDatastoreMetrics(registry *prometheus.Registry) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *DatastoreMetrics) initMetrics() error {
	// Database operation metrics
	m.dbOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_db_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "table", "status"}, // operation: db_query, db_insert, db_update, db_delete; status: success, error
	)

	m.dbOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_db_operation_duration_seconds",
			Help:    "Time taken for database operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15), // 1ms to ~32s
		},
		[]string{"operation", "table"},
	)

	m.dbOperationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_db_operation_errors_total",
			Help: "Total number of database operation errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	// Transaction metrics
	m.dbTransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_db_transactions_total",
			Help: "Total number of database transactions",
		},
		[]string{"status"}, // status: success, error
	)

	m.dbTransactionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_db_transaction_duration_seconds",
			Help:    "Time taken for database transactions",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15), // 1ms to ~32s
		},
		[]string{"operation"},
	)

	m.dbTransactionErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_db_transaction_errors_total",
			Help: "Total number of transaction errors",
		},
		[]string{"operation", "error_type"},
	)

	// Connection metrics
	m.dbConnectionsActiveGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "datastore_db_connections_active",
		Help: "Number of active database connections",
	})

	m.dbConnectionsIdleGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "datastore_db_connections_idle",
		Help: "Number of idle database connections",
	})

	m.dbConnectionsMaxGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "datastore_db_connections_max",
		Help: "Maximum number of database connections",
	})

	m.dbQueryResultSizeHist = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_db_query_result_size_rows",
			Help:    "Number of rows returned by database queries",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000, 10000, 50000},
		},
		[]string{"operation", "table"},
	)

	// Thermal event operation metrics
	m.eventOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_event_operations_total",
			Help: "Total number of thermal event operations",
		},
		[]string{"operation", "status"}, // operation: event_create, event_get, event_update, event_delete
	)

	m.eventOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_event_operation_duration_seconds",
			Help:    "Time taken for thermal event operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12), // 1ms to ~4s
		},
		[]string{"operation"},
	)

	m.eventInstanceCountHist = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_event_instances_per_event",
			Help:    "Number of instances attached to thermal events being stored",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
		},
		[]string{"operation"},
	)

	// Search and query metrics
	m.searchOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_search_operations_total",
			Help: "Total number of search operations",
		},
		[]string{"search_type", "status"},
	)

	m.searchOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_search_operation_duration_seconds",
			Help:    "Time taken for search operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12), // 10ms to ~40s
		},
		[]string{"search_type"},
	)

	m.searchResultSizeHist = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_search_result_size_rows",
			Help:    "Number of results returned by search operations",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000, 10000},
		},
		[]string{"search_type"},
	)

	m.searchFilterComplexity = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_search_filter_complexity",
			Help:    "Number of filter conditions applied to search operations",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21}, // Fibonacci sequence for complexity
		},
		[]string{"search_type"},
	)

	// Lookup cache metrics
	m.cacheOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_cache_operations_total",
			Help: "Total number of cache operations",
		},
		[]string{"cache_type", "operation", "result"}, // result: hit, miss
	)

	m.cacheSizeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "datastore_cache_size_entries",
		Help: "Current number of entries in caches",
	})

	m.cacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "datastore_cache_hit_ratio",
		Help: "Cache hit ratio (0.0 to 1.0)",
	})

	// Database size metrics
	m.dbSizeBytesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "datastore_db_size_bytes",
		Help: "Total database size in bytes",
	})

	m.dbTableRowCountGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "datastore_db_table_row_count",
		Help: "Number of rows in database tables",
	}, []string{"table"})

	// Maintenance metrics
	m.maintenanceOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_maintenance_operations_total",
			Help: "Total number of maintenance operations",
		},
		[]string{"operation", "status"},
	)

	m.maintenanceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_maintenance_duration_seconds",
			Help:    "Time taken for maintenance operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount15), // 100ms to ~54min
		},
		[]string{"operation"},
	)

	// Initialize collectors slice with all metrics
	m.collectors = []prometheus.Collector{
		m.dbOperationsTotal,
		m.dbOperationDuration,
		m.dbOperationErrorsTotal,
		m.dbTransactionsTotal,
		m.dbTransactionDuration,
		m.dbTransactionErrorsTotal,
		m.dbConnectionsActiveGauge,
		m.dbConnectionsIdleGauge,
		m.dbConnectionsMaxGauge,
		m.dbQueryResultSizeHist,
		m.eventOperationsTotal,
		m.eventOperationDuration,
		m.eventInstanceCountHist,
		m.searchOperationsTotal,
		m.searchOperationDuration,
		m.searchResultSizeHist,
		m.searchFilterComplexity,
		m.cacheOperationsTotal,
		m.cacheSizeGauge,
		m.cacheHitRatio,
		m.dbSizeBytesGauge,
		m.dbTableRowCountGauge,
		m.maintenanceOperationsTotal,
		m.maintenanceDuration,
	}

	return nil
}

// Describe implements the Collector interface
func (m *DatastoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *DatastoreMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// Database operation recording methods

// RecordDbOperation records a database operation
func (m *DatastoreMetrics) RecordDbOperation(operation, table, status string) {
	m.dbOperationsTotal.WithLabelValues(operation, table, status).Inc()
}

// RecordDbOperationDuration records the duration of a database operation
func (m *DatastoreMetrics) RecordDbOperationDuration(operation, table string, duration float64) {
	m.dbOperationDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordDbOperationError records a database operation error
func (m *DatastoreMetrics) RecordDbOperationError(operation, table, errorType string) {
	m.dbOperationErrorsTotal.WithLabelValues(operation, table, errorType).Inc()
}

// Transaction recording methods

// RecordTransaction records a database transaction
func (m *DatastoreMetrics) RecordTransaction(status string) {
	m.dbTransactionsTotal.WithLabelValues(status).Inc()
}

// RecordTransactionDuration records the duration of a transaction
func (m *DatastoreMetrics) RecordTransactionDuration(operation string, duration float64) {
	m.dbTransactionDuration.WithLabelValues(operation).Observe(duration)
}

// RecordTransactionError records a transaction error
func (m *DatastoreMetrics) RecordTransactionError(operation, errorType string) {
	m.dbTransactionErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// Connection metrics

// UpdateConnectionMetrics updates database connection metrics
func (m *DatastoreMetrics) UpdateConnectionMetrics(active, idle, maxConn int) {
	m.dbConnectionsActiveGauge.Set(float64(active))
	m.dbConnectionsIdleGauge.Set(float64(idle))
	m.dbConnectionsMaxGauge.Set(float64(maxConn))
}

// RecordQueryResultSize records the size of query results
func (m *DatastoreMetrics) RecordQueryResultSize(operation, table string, resultSize int) {
	m.dbQueryResultSizeHist.WithLabelValues(operation, table).Observe(float64(resultSize))
}

// Thermal event operation methods

// RecordEventOperation records a thermal event operation
func (m *DatastoreMetrics) RecordEventOperation(operation, status string) {
	m.eventOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordEventOperationDuration records the duration of a thermal event operation
func (m *DatastoreMetrics) RecordEventOperationDuration(operation string, duration float64) {
	m.eventOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordEventInstanceCount records the number of instances on a stored event
func (m *DatastoreMetrics) RecordEventInstanceCount(operation string, instanceCount int) {
	m.eventInstanceCountHist.WithLabelValues(operation).Observe(float64(instanceCount))
}

// Search operation methods

// RecordSearchOperation records a search operation
func (m *DatastoreMetrics) RecordSearchOperation(searchType, status string) {
	m.searchOperationsTotal.WithLabelValues(searchType, status).Inc()
}

// RecordSearchDuration records the duration of a search operation
func (m *DatastoreMetrics) RecordSearchDuration(searchType string, duration float64) {
	m.searchOperationDuration.WithLabelValues(searchType).Observe(duration)
}

// RecordSearchResultSize records the size of search results
func (m *DatastoreMetrics) RecordSearchResultSize(searchType string, resultSize int) {
	m.searchResultSizeHist.WithLabelValues(searchType).Observe(float64(resultSize))
}

// RecordSearchComplexity records the number of filter conditions of a search
func (m *DatastoreMetrics) RecordSearchComplexity(searchType string, complexity float64) {
	m.searchFilterComplexity.WithLabelValues(searchType).Observe(complexity)
}

// Cache operation methods

// RecordCacheOperation records a cache operation
func (m *DatastoreMetrics) RecordCacheOperation(cacheType, operation, result string) {
	m.cacheOperationsTotal.WithLabelValues(cacheType, operation, result).Inc()
}

// UpdateCacheMetrics updates cache size and hit ratio metrics
func (m *DatastoreMetrics) UpdateCacheMetrics(size int, hitRatio float64) {
	m.cacheSizeGauge.Set(float64(size))
	m.cacheHitRatio.Set(hitRatio)
}

// Database size methods

// UpdateDatabaseSize updates database size metrics
func (m *DatastoreMetrics) UpdateDatabaseSize(sizeBytes int64) {
	m.dbSizeBytesGauge.Set(float64(sizeBytes))
}

// UpdateTableRowCount updates table row count metrics
func (m *DatastoreMetrics) UpdateTableRowCount(table string, rowCount int64) {
	m.dbTableRowCountGauge.WithLabelValues(table).Set(float64(rowCount))
}

// Maintenance methods

// RecordMaintenanceOperation records a maintenance operation
func (m *DatastoreMetrics) RecordMaintenanceOperation(operation, status string) {
	m.maintenanceOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordMaintenanceDuration records maintenance operation duration
func (m *DatastoreMetrics) RecordMaintenanceDuration(operation string, duration float64) {
	m.maintenanceDuration.WithLabelValues(operation).Observe(duration)
}

// parseTableFromOperation extracts table name from operations like "db_query:thermal_events"
// Returns the operation and table separately, or "unknown" if no table specified
func parseTableFromOperation(operation string) (op, table string) {
	parts := strings.SplitN(operation, ":", SplitPartsCount)
	if len(parts) == SplitPartsCount {
		return parts[0], parts[1]
	}
	// Default table names for specific operations
	switch operation {
	case OpEventCreate, OpEventUpdate, OpEventDelete, OpEventGet:
		return operation, "thermal_events"
	default:
		return operation, "unknown"
	}
}

// RecordOperation implements the Recorder interface.
// It records various datastore operations with their status.
// For database operations, use format "operation:table" (e.g., "db_query:thermal_events")
// Supported operations: "db_query", "db_insert", "db_update", "db_delete", "transaction",
// "event_create", "event_update", "event_delete", "event_get", "search",
// "cache_get", "cache_set", "cache_delete", "maintenance"
// Status values: "success", "error"
func (m *DatastoreMetrics) RecordOperation(operation, status string) {
	// Parse table from operation for database operations
	op, table := parseTableFromOperation(operation)

	// Map generic operations to specific datastore operations
	switch op {
	case OpDbQuery, OpDbInsert, OpDbUpdate, OpDbDelete:
		m.dbOperationsTotal.WithLabelValues(op, table, status).Inc()
	case OpTransaction:
		m.dbTransactionsTotal.WithLabelValues(status).Inc()
	case OpEventCreate, OpEventUpdate, OpEventDelete, OpEventGet:
		m.eventOperationsTotal.WithLabelValues(op, status).Inc()
	case OpSearch:
		m.searchOperationsTotal.WithLabelValues(OpSearch, status).Inc()
	case OpCacheGet, OpCacheSet, OpCacheDelete:
		m.cacheOperationsTotal.WithLabelValues(LabelLookup, op, status).Inc()
	case OpMaintenance:
		m.maintenanceOperationsTotal.WithLabelValues(LabelVacuum, status).Inc()
	}
}

// RecordDuration implements the Recorder interface.
// It records the duration of various datastore operations.
// For database operations, use format "operation:table" (e.g., "db_query:thermal_events")
func (m *DatastoreMetrics) RecordDuration(operation string, seconds float64) {
	// Parse table from operation for database operations
	op, table := parseTableFromOperation(operation)

	switch op {
	case OpDbQuery, OpDbInsert, OpDbUpdate, OpDbDelete:
		m.dbOperationDuration.WithLabelValues(op, table).Observe(seconds)
	case OpTransaction:
		m.dbTransactionDuration.WithLabelValues(LabelCommit).Observe(seconds)
	case OpEventCreate, OpEventUpdate, OpEventDelete, OpEventGet:
		m.eventOperationDuration.WithLabelValues(op).Observe(seconds)
	case OpSearch:
		m.searchOperationDuration.WithLabelValues(LabelQuery).Observe(seconds)
	case OpMaintenance:
		m.maintenanceDuration.WithLabelValues(LabelVacuum).Observe(seconds)
	}
}

// RecordError implements the Recorder interface.
// It records errors for various datastore operations.
// For database operations, use format "operation:table" (e.g., "db_query:thermal_events")
func (m *DatastoreMetrics) RecordError(operation, errorType string) {
	// Parse table from operation for database operations
	op, table := parseTableFromOperation(operation)

	switch op {
	case OpDbQuery, OpDbInsert, OpDbUpdate, OpDbDelete:
		m.dbOperationErrorsTotal.WithLabelValues(op, table, errorType).Inc()
		// Also increment operation counter with error status
		m.dbOperationsTotal.WithLabelValues(op, table, "error").Inc()
	case OpTransaction:
		m.dbTransactionErrorsTotal.WithLabelValues(LabelCommit, errorType).Inc()
		// Also increment transaction counter with error status
		m.dbTransactionsTotal.WithLabelValues("error").Inc()
	case OpEventCreate, OpEventUpdate, OpEventDelete, OpEventGet:
		// Record as error in event operations
		m.eventOperationsTotal.WithLabelValues(op, "error").Inc()
	case OpSearch:
		// Record as error in search operations
		m.searchOperationsTotal.WithLabelValues(OpSearch, "error").Inc()
	case "cache", OpCacheGet, OpCacheSet, OpCacheDelete:
		// Record as error in cache operations
		m.cacheOperationsTotal.WithLabelValues(LabelLookup, op, "error").Inc()
	case OpMaintenance:
		// Record as error in maintenance operations
		m.maintenanceOperationsTotal.WithLabelValues(LabelVacuum, "error").Inc()
	}
}
