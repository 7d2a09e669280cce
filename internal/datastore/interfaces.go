// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"context"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/fusionvision/thermal-events-go/internal/conf"
	"github.com/fusionvision/thermal-events-go/internal/errors"
)

// Interface abstracts the underlying database implementation and defines the
// operations of the thermal event store.
type Interface interface {
	Open() error
	Close() error

	// Thermal events
	SaveThermalEvents(ctx context.Context, events ...*ThermalEvent) error
	GetThermalEvent(ctx context.Context, id uint64) (*ThermalEvent, error)
	GetThermalEvents(ctx context.Context, offset, limit int) ([]ThermalEvent, error)
	UpdateThermalEvent(ctx context.Context, event *ThermalEvent) error
	DeleteThermalEvents(ctx context.Context, ids ...uint64) error
	SearchThermalEvents(ctx context.Context, filters EventFilters) ([]ThermalEvent, error)
	SearchThermalEventIDs(ctx context.Context, filters EventFilters) ([]uint64, error)
	CountThermalEvents(ctx context.Context, filters EventFilters) (int64, error)
	ChangeAnalysisStatus(ctx context.Context, eventID uint64, status string) error

	// Genealogy across splits and merges
	LinkParentChild(ctx context.Context, parentID, childID uint64, timestampNs int64) error
	ParentsOf(ctx context.Context, eventID uint64) ([]ThermalEvent, error)
	ChildrenOf(ctx context.Context, eventID uint64) ([]ThermalEvent, error)

	// Strike-line descriptors
	SaveStrikeLineDescriptors(ctx context.Context, descriptors ...*StrikeLineDescriptor) error
	GetStrikeLineDescriptor(ctx context.Context, id uint64) (*StrikeLineDescriptor, error)
	SearchStrikeLineDescriptors(ctx context.Context, filters DescriptorFilters) ([]StrikeLineDescriptor, error)
	UpdateStrikeLineDescriptor(ctx context.Context, descriptor *StrikeLineDescriptor) error
	DeleteStrikeLineDescriptors(ctx context.Context, ids ...uint64) error

	// Lookups
	ListUsers(ctx context.Context) ([]string, error)
	ListDevices(ctx context.Context) ([]string, error)
	ListMethods(ctx context.Context) ([]string, error)
	ListSeverityTypes(ctx context.Context) ([]string, error)
	ListCategories(ctx context.Context) ([]string, error)
	ListLinesOfSight(ctx context.Context) ([]string, error)
	ListAnalysisStatuses(ctx context.Context) ([]string, error)
	ListDatasetIDs(ctx context.Context) ([]uint64, error)
	CompatibleLinesOfSight(ctx context.Context, category string) ([]string, error)
	UserHasWriteRights(ctx context.Context, name string) (bool, error)

	// Detection bookkeeping
	RecordProcessedMovie(ctx context.Context, movie *ProcessedMovie) error
	ProcessedMovies(ctx context.Context, experimentID int64) ([]ProcessedMovie, error)

	// Maintenance
	Migrate() error
	SeedLookups(ctx context.Context, seeds ...LookupSeed) error
	Optimize(ctx context.Context) error
	Statistics(ctx context.Context) (*DatabaseStatistics, error)
	StartMonitoring(ctx context.Context, connectionPoolInterval, databaseStatsInterval time.Duration)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB      *gorm.DB // GORM database instance
	metrics *Metrics
	lookups *lookupCache
}

// New creates a store for the backend selected by the settings. When the
// SQLite switch is set the file-backed store is used regardless of any MySQL
// parameters being present.
func New(settings *conf.Settings, dbMetrics *Metrics) Interface {
	base := DataStore{
		metrics: dbMetrics,
		lookups: newLookupCache(dbMetrics),
	}

	if settings.Database.SQLite.Enabled {
		return &SQLiteStore{
			DataStore: base,
			Settings:  settings,
		}
	}
	return &MySQLStore{
		DataStore: base,
		Settings:  settings,
	}
}

// preloadInstances loads the event instances ordered by id, with their
// strike-line descriptors.
func preloadInstances(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Instances", func(db *gorm.DB) *gorm.DB {
			return db.Order("id")
		}).
		Preload("Instances.Descriptors")
}

// SaveThermalEvents stores events with their instances in one transaction.
func (ds *DataStore) SaveThermalEvents(ctx context.Context, events ...*ThermalEvent) error {
	if len(events) == 0 {
		return nil
	}

	start := time.Now()

	tx := ds.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return stateError(tx.Error, "save_thermal_events", "transaction_begin")
	}

	// Roll back the transaction if a panic occurs
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, event := range events {
		if err := tx.Create(event).Error; err != nil {
			tx.Rollback()
			ds.recordTransaction("save_thermal_events", "error", err)
			if isConstraintViolation(err) || isForeignKeyViolation(err) {
				return integrityError(err, "save_thermal_events",
					"experiment_id", event.ExperimentID,
					"line_of_sight", event.LineOfSight)
			}
			return dbError(err, "save_thermal_events", errors.PriorityHigh,
				"experiment_id", event.ExperimentID)
		}
	}

	if err := tx.Commit().Error; err != nil {
		ds.recordTransaction("save_thermal_events", "error", err)
		return stateError(err, "save_thermal_events", "transaction_commit")
	}

	if ds.metrics != nil {
		ds.metrics.RecordTransaction("success")
		ds.metrics.RecordTransactionDuration("save_thermal_events", time.Since(start).Seconds())
		for _, event := range events {
			ds.metrics.RecordEventOperation("create", "success")
			ds.metrics.RecordEventInstanceCount("create", len(event.Instances))
		}
	}

	getLogger().Debug("Saved thermal events",
		"count", len(events),
		"duration", time.Since(start))

	return nil
}

// GetThermalEvent retrieves one event with its instances and descriptors.
func (ds *DataStore) GetThermalEvent(ctx context.Context, id uint64) (*ThermalEvent, error) {
	var event ThermalEvent
	err := preloadInstances(ds.DB.WithContext(ctx)).First(&event, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ds.recordEventOperation("get", "not_found")
			return nil, notFoundError("thermal event", strconv.FormatUint(id, 10))
		}
		ds.recordEventOperation("get", "error")
		return nil, dbError(err, "get_thermal_event", errors.PriorityMedium, "event_id", id)
	}

	ds.recordEventOperation("get", "success")
	return &event, nil
}

// GetThermalEvents retrieves events ordered by ascending id. A non-positive
// limit falls back to DefaultQueryLimit.
func (ds *DataStore) GetThermalEvents(ctx context.Context, offset, limit int) ([]ThermalEvent, error) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	var events []ThermalEvent
	err := preloadInstances(ds.DB.WithContext(ctx)).
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&events).Error
	if err != nil {
		ds.recordEventOperation("get", "error")
		return nil, dbError(err, "get_thermal_events", errors.PriorityMedium,
			"offset", offset, "limit", limit)
	}

	ds.recordEventOperation("get", "success")
	return events, nil
}

// UpdateThermalEvent saves the full event row and its instances. Instances
// missing from the event's slice are deleted from the database.
func (ds *DataStore) UpdateThermalEvent(ctx context.Context, event *ThermalEvent) error {
	if event == nil {
		return validationError("thermal event is nil", "event", nil)
	}
	if event.ID == 0 {
		return validationError("thermal event has no id", "id", event.ID)
	}

	start := time.Now()

	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existingIDs []uint64
		if err := tx.Model(&ThermalEventInstance{}).
			Where("thermal_event_id = ?", event.ID).
			Pluck("id", &existingIDs).Error; err != nil {
			return err
		}

		kept := make(map[uint64]struct{}, len(event.Instances))
		for i := range event.Instances {
			if event.Instances[i].ID != 0 {
				kept[event.Instances[i].ID] = struct{}{}
			}
		}

		var orphans []uint64
		for _, id := range existingIDs {
			if _, ok := kept[id]; !ok {
				orphans = append(orphans, id)
			}
		}
		if len(orphans) > 0 {
			if err := tx.Delete(&ThermalEventInstance{}, orphans).Error; err != nil {
				return err
			}
		}

		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(event).Error
	})
	if err != nil {
		ds.recordEventOperation("update", "error")
		if isConstraintViolation(err) || isForeignKeyViolation(err) {
			return integrityError(err, "update_thermal_event", "event_id", event.ID)
		}
		return dbError(err, "update_thermal_event", errors.PriorityHigh, "event_id", event.ID)
	}

	ds.recordEventOperation("update", "success")
	if ds.metrics != nil {
		ds.metrics.RecordEventOperationDuration("update", time.Since(start).Seconds())
		ds.metrics.RecordEventInstanceCount("update", len(event.Instances))
	}
	return nil
}

// DeleteThermalEvents removes events by id. Instances and descriptors follow
// through the cascading foreign keys. Missing ids are ignored.
func (ds *DataStore) DeleteThermalEvents(ctx context.Context, ids ...uint64) error {
	if len(ids) == 0 {
		return nil
	}

	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&ThermalEvent{}, ids).Error
	})
	if err != nil {
		ds.recordEventOperation("delete", "error")
		return dbError(err, "delete_thermal_events", errors.PriorityHigh, "event_count", len(ids))
	}

	ds.recordEventOperation("delete", "success")
	return nil
}

// SearchThermalEvents retrieves the events matching the filters, ordered by
// ascending id.
func (ds *DataStore) SearchThermalEvents(ctx context.Context, filters EventFilters) ([]ThermalEvent, error) {
	start := time.Now()

	query := filters.apply(ds.DB.WithContext(ctx).Model(&ThermalEvent{}))
	query = filters.paginate(query).Order("id")

	var events []ThermalEvent
	if err := preloadInstances(query).Find(&events).Error; err != nil {
		ds.recordSearch("events", "error", start, 0, &filters)
		return nil, dbError(err, "search_thermal_events", errors.PriorityMedium)
	}

	ds.recordSearch("events", "success", start, len(events), &filters)
	return events, nil
}

// SearchThermalEventIDs retrieves only the ids of the matching events,
// ordered ascending.
func (ds *DataStore) SearchThermalEventIDs(ctx context.Context, filters EventFilters) ([]uint64, error) {
	start := time.Now()

	query := filters.apply(ds.DB.WithContext(ctx).Model(&ThermalEvent{}))
	query = filters.paginate(query).Order("id")

	var ids []uint64
	if err := query.Pluck("id", &ids).Error; err != nil {
		ds.recordSearch("event_ids", "error", start, 0, &filters)
		return nil, dbError(err, "search_thermal_event_ids", errors.PriorityMedium)
	}

	ds.recordSearch("event_ids", "success", start, len(ids), &filters)
	return ids, nil
}

// CountThermalEvents counts the events matching the filters, ignoring limit
// and offset.
func (ds *DataStore) CountThermalEvents(ctx context.Context, filters EventFilters) (int64, error) {
	var count int64
	query := filters.apply(ds.DB.WithContext(ctx).Model(&ThermalEvent{}))
	if err := query.Count(&count).Error; err != nil {
		ds.recordSearch("count", "error", time.Now(), 0, &filters)
		return 0, dbError(err, "count_thermal_events", errors.PriorityMedium)
	}
	return count, nil
}

// ChangeAnalysisStatus updates the analysis status of one event.
func (ds *DataStore) ChangeAnalysisStatus(ctx context.Context, eventID uint64, status string) error {
	if status == "" {
		return validationError("analysis status is empty", "analysis_status", status)
	}

	result := ds.DB.WithContext(ctx).Model(&ThermalEvent{}).
		Where("id = ?", eventID).
		Update("analysis_status", status)
	if result.Error != nil {
		if isForeignKeyViolation(result.Error) {
			return integrityError(result.Error, "change_analysis_status",
				"event_id", eventID, "analysis_status", status)
		}
		return dbError(result.Error, "change_analysis_status", errors.PriorityMedium,
			"event_id", eventID, "analysis_status", status)
	}

	// MySQL reports zero affected rows for no-op updates, so a missing row
	// has to be told apart by looking for it.
	if result.RowsAffected == 0 {
		var count int64
		if err := ds.DB.WithContext(ctx).Model(&ThermalEvent{}).
			Where("id = ?", eventID).Count(&count).Error; err != nil {
			return dbError(err, "change_analysis_status", errors.PriorityMedium, "event_id", eventID)
		}
		if count == 0 {
			return notFoundError("thermal event", strconv.FormatUint(eventID, 10))
		}
	}

	ds.recordEventOperation("update", "success")
	return nil
}

// LinkParentChild records that the child event continues the parent event
// across a split or merge at the given timestamp.
func (ds *DataStore) LinkParentChild(ctx context.Context, parentID, childID uint64, timestampNs int64) error {
	if parentID == childID {
		return validationError("an event cannot be its own parent", "child", childID)
	}

	relation := ParentChildRelationship{
		Parent:      parentID,
		Child:       childID,
		TimestampNs: timestampNs,
	}
	if err := ds.DB.WithContext(ctx).Create(&relation).Error; err != nil {
		if isForeignKeyViolation(err) {
			return integrityError(err, "link_parent_child",
				"parent_id", parentID, "child_id", childID)
		}
		return dbError(err, "link_parent_child", errors.PriorityMedium,
			"parent_id", parentID, "child_id", childID)
	}
	return nil
}

// ParentsOf retrieves the parent events of one event, ordered by id.
func (ds *DataStore) ParentsOf(ctx context.Context, eventID uint64) ([]ThermalEvent, error) {
	var events []ThermalEvent
	query := ds.DB.WithContext(ctx).Model(&ThermalEvent{}).
		Joins("JOIN parent_child_relationships ON parent_child_relationships.parent = thermal_events.id").
		Where("parent_child_relationships.child = ?", eventID).
		Order("thermal_events.id")
	if err := preloadInstances(query).Find(&events).Error; err != nil {
		return nil, dbError(err, "parents_of", errors.PriorityMedium, "event_id", eventID)
	}
	return events, nil
}

// ChildrenOf retrieves the child events of one event, ordered by id.
func (ds *DataStore) ChildrenOf(ctx context.Context, eventID uint64) ([]ThermalEvent, error) {
	var events []ThermalEvent
	query := ds.DB.WithContext(ctx).Model(&ThermalEvent{}).
		Joins("JOIN parent_child_relationships ON parent_child_relationships.child = thermal_events.id").
		Where("parent_child_relationships.parent = ?", eventID).
		Order("thermal_events.id")
	if err := preloadInstances(query).Find(&events).Error; err != nil {
		return nil, dbError(err, "children_of", errors.PriorityMedium, "event_id", eventID)
	}
	return events, nil
}

// SaveStrikeLineDescriptors stores descriptors in one transaction.
func (ds *DataStore) SaveStrikeLineDescriptors(ctx context.Context, descriptors ...*StrikeLineDescriptor) error {
	if len(descriptors) == 0 {
		return nil
	}

	tx := ds.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return stateError(tx.Error, "save_strike_line_descriptors", "transaction_begin")
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, descriptor := range descriptors {
		if err := tx.Create(descriptor).Error; err != nil {
			tx.Rollback()
			ds.recordTransaction("save_strike_line_descriptors", "error", err)
			if isForeignKeyViolation(err) {
				return integrityError(err, "save_strike_line_descriptors",
					"instance_id", descriptor.ThermalEventInstanceID)
			}
			return dbError(err, "save_strike_line_descriptors", errors.PriorityHigh,
				"instance_id", descriptor.ThermalEventInstanceID)
		}
	}

	if err := tx.Commit().Error; err != nil {
		ds.recordTransaction("save_strike_line_descriptors", "error", err)
		return stateError(err, "save_strike_line_descriptors", "transaction_commit")
	}

	if ds.metrics != nil {
		ds.metrics.RecordTransaction("success")
	}
	return nil
}

// GetStrikeLineDescriptor retrieves one descriptor with its instance.
func (ds *DataStore) GetStrikeLineDescriptor(ctx context.Context, id uint64) (*StrikeLineDescriptor, error) {
	var descriptor StrikeLineDescriptor
	err := ds.DB.WithContext(ctx).Preload("InstanceRef").First(&descriptor, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("strike line descriptor", strconv.FormatUint(id, 10))
		}
		return nil, dbError(err, "get_strike_line_descriptor", errors.PriorityMedium, "descriptor_id", id)
	}
	return &descriptor, nil
}

// SearchStrikeLineDescriptors retrieves the descriptors matching the
// filters, ordered by ascending id.
func (ds *DataStore) SearchStrikeLineDescriptors(ctx context.Context, filters DescriptorFilters) ([]StrikeLineDescriptor, error) {
	start := time.Now()

	var descriptors []StrikeLineDescriptor
	query := filters.apply(ds.DB.WithContext(ctx).Model(&StrikeLineDescriptor{})).Order("id")
	if err := query.Find(&descriptors).Error; err != nil {
		if ds.metrics != nil {
			ds.metrics.RecordSearchOperation("descriptors", "error")
		}
		return nil, dbError(err, "search_strike_line_descriptors", errors.PriorityMedium)
	}

	if ds.metrics != nil {
		ds.metrics.RecordSearchOperation("descriptors", "success")
		ds.metrics.RecordSearchDuration("descriptors", time.Since(start).Seconds())
		ds.metrics.RecordSearchResultSize("descriptors", len(descriptors))
	}
	return descriptors, nil
}

// UpdateStrikeLineDescriptor saves the full descriptor row.
func (ds *DataStore) UpdateStrikeLineDescriptor(ctx context.Context, descriptor *StrikeLineDescriptor) error {
	if descriptor == nil {
		return validationError("strike line descriptor is nil", "descriptor", nil)
	}
	if descriptor.ID == 0 {
		return validationError("strike line descriptor has no id", "id", descriptor.ID)
	}

	if err := ds.DB.WithContext(ctx).Omit("InstanceRef").Save(descriptor).Error; err != nil {
		if isForeignKeyViolation(err) {
			return integrityError(err, "update_strike_line_descriptor", "descriptor_id", descriptor.ID)
		}
		return dbError(err, "update_strike_line_descriptor", errors.PriorityMedium,
			"descriptor_id", descriptor.ID)
	}
	return nil
}

// DeleteStrikeLineDescriptors removes descriptors by id. Missing ids are
// ignored.
func (ds *DataStore) DeleteStrikeLineDescriptors(ctx context.Context, ids ...uint64) error {
	if len(ids) == 0 {
		return nil
	}

	if err := ds.DB.WithContext(ctx).Delete(&StrikeLineDescriptor{}, ids).Error; err != nil {
		return dbError(err, "delete_strike_line_descriptors", errors.PriorityMedium,
			"descriptor_count", len(ids))
	}
	return nil
}

// RecordProcessedMovie records that a detection pass has covered one movie.
func (ds *DataStore) RecordProcessedMovie(ctx context.Context, movie *ProcessedMovie) error {
	if movie == nil {
		return validationError("processed movie is nil", "movie", nil)
	}
	if movie.ProcessedAt.IsZero() {
		movie.ProcessedAt = time.Now()
	}

	if err := ds.DB.WithContext(ctx).Create(movie).Error; err != nil {
		if isForeignKeyViolation(err) {
			return integrityError(err, "record_processed_movie",
				"experiment_id", movie.ExperimentID,
				"line_of_sight", movie.LineOfSight)
		}
		return dbError(err, "record_processed_movie", errors.PriorityMedium,
			"experiment_id", movie.ExperimentID)
	}
	return nil
}

// ProcessedMovies retrieves the processed movie records of one experiment,
// ordered by id.
func (ds *DataStore) ProcessedMovies(ctx context.Context, experimentID int64) ([]ProcessedMovie, error) {
	var movies []ProcessedMovie
	err := ds.DB.WithContext(ctx).
		Where("experiment_id = ?", experimentID).
		Order("id").
		Find(&movies).Error
	if err != nil {
		return nil, dbError(err, "processed_movies", errors.PriorityMedium,
			"experiment_id", experimentID)
	}
	return movies, nil
}

// Close closes the underlying database connection pool.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "close", errors.PriorityMedium)
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close", errors.PriorityMedium)
	}
	return nil
}

// recordEventOperation records an event operation metric when metrics are
// configured.
func (ds *DataStore) recordEventOperation(operation, status string) {
	if ds.metrics != nil {
		ds.metrics.RecordEventOperation(operation, status)
	}
}

// recordTransaction records a failed or rolled back transaction with its
// error category.
func (ds *DataStore) recordTransaction(operation, status string, err error) {
	if ds.metrics == nil {
		return
	}
	ds.metrics.RecordTransaction(status)
	if err != nil {
		ds.metrics.RecordTransactionError(operation, categorizeError(err))
	}
}

// recordSearch records search metrics and a debug log of the applied
// filters.
func (ds *DataStore) recordSearch(searchType, status string, start time.Time, results int, filters *EventFilters) {
	if ds.metrics != nil {
		ds.metrics.RecordSearchOperation(searchType, status)
		ds.metrics.RecordSearchDuration(searchType, time.Since(start).Seconds())
		if status == "success" {
			ds.metrics.RecordSearchResultSize(searchType, results)
			ds.metrics.RecordSearchComplexity(searchType, calculateFilterComplexity(filters))
		}
	}

	getLogger().Debug("Thermal event search",
		"search_type", searchType,
		"status", status,
		"results", results,
		"duration", time.Since(start),
		"filters", getAppliedFilters(filters))
}
