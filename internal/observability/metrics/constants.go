// Package metrics provides constants used across metric definitions.
package metrics

// Operation type constants used in switch statements across metrics.
// These constants define the categories of operations that can be recorded.
const (
	// OpDbQuery represents database query operations.
	OpDbQuery = "db_query"
	// OpDbInsert represents database insert operations.
	OpDbInsert = "db_insert"
	// OpDbUpdate represents database update operations.
	OpDbUpdate = "db_update"
	// OpDbDelete represents database delete operations.
	OpDbDelete = "db_delete"
	// OpTransaction represents database transaction operations.
	OpTransaction = "transaction"
	// OpEventCreate represents thermal event creation operations.
	OpEventCreate = "event_create"
	// OpEventUpdate represents thermal event update operations.
	OpEventUpdate = "event_update"
	// OpEventDelete represents thermal event deletion operations.
	OpEventDelete = "event_delete"
	// OpEventGet represents thermal event retrieval operations.
	OpEventGet = "event_get"
	// OpSearch represents search operations.
	OpSearch = "search"
	// OpCacheGet represents cache get operations.
	OpCacheGet = "cache_get"
	// OpCacheSet represents cache set operations.
	OpCacheSet = "cache_set"
	// OpCacheDelete represents cache delete operations.
	OpCacheDelete = "cache_delete"
	// OpFileRead represents events file read operations.
	OpFileRead = "file_read"
	// OpFileWrite represents events file write operations.
	OpFileWrite = "file_write"
	// OpValidation represents schema validation operations.
	OpValidation = "validation"
	// OpMaintenance represents maintenance operations.
	OpMaintenance = "maintenance"
)

// Label value constants used for metric labels.
const (
	// LabelQuery is the operation label for query operations.
	LabelQuery = "query"
	// LabelCommit is the operation label for commit operations.
	LabelCommit = "commit"
	// LabelGet is the operation label for get operations.
	LabelGet = "get"
	// LabelVacuum is the operation label for vacuum operations.
	LabelVacuum = "vacuum"
	// LabelLookup is the cache type label for the lookup table cache.
	LabelLookup = "lookup"
	// LabelThermalEvent is the entity label for thermal event validation.
	LabelThermalEvent = "thermal_event"
)

// Histogram bucket configuration constants.
// These define the base values and factors for exponential bucket generation.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~32s range).
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart100ms is the starting bucket for 100ms histograms (100ms to ~54min range).
	BucketStart100ms = 0.1
	// BucketStart1KB is the starting bucket for 1KB histograms (1KB to ~100MB range).
	BucketStart1KB = 1024.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2
	// BucketFactor10 is the exponential growth factor of 10 for larger ranges.
	BucketFactor10 = 10

	// BucketCount6 defines 6 exponential buckets.
	BucketCount6 = 6
	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
	// BucketCount15 defines 15 exponential buckets.
	BucketCount15 = 15
)

// String parsing constants.
const (
	// SplitPartsCount is the expected number of parts when splitting operation strings.
	SplitPartsCount = 2
)
