package datastore

import (
	"context"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fusionvision/thermal-events-go/internal/errors"
)

const (
	// DefaultSlowQueryThreshold defines the duration after which a query is
	// considered slow. 1 second accommodates interval-exclusion scans over
	// experiments with tens of thousands of events while still flagging
	// queries that genuinely miss an index.
	DefaultSlowQueryThreshold = 1 * time.Second

	// MaxColumnsForDetailedDisplay defines the maximum number of columns to
	// display in detailed logs. When more columns are present, only the count
	// is shown to keep log output concise and readable.
	MaxColumnsForDetailedDisplay = 5
)

// redactedMarker replaces passwords in connection strings before logging.
const redactedMarker = "[REDACTED]"

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger(dbMetrics *Metrics) gormlogger.Interface {
	return NewGormLogger(DefaultSlowQueryThreshold, gormlogger.Warn, dbMetrics)
}

// performAutoMigration migrates every table of the thermal event schema.
func performAutoMigration(db *gorm.DB, dbType string) error {
	migrationStart := time.Now()
	migrationLogger := getLogger().With("db_type", dbType)

	migrationLogger.Debug("Starting database migration")

	successCount, err := migrateTables(db, dbType, migrationLogger)
	if err != nil {
		return err
	}

	if err := createOptimizedIndexes(db, dbType, migrationLogger); err != nil {
		return err
	}

	migrationLogger.Debug("Database migration completed successfully",
		"total_duration", time.Since(migrationStart),
		"tables_migrated", successCount)

	return nil
}

// migrateTables performs the actual table migrations. Lookup tables come
// first: the event tables declare foreign keys against them, and the
// genealogy table references the event table in turn.
func migrateTables(db *gorm.DB, dbType string, log *slog.Logger) (int, error) {
	tableMappings := []struct {
		model any
		name  string
	}{
		{&Device{}, "devices"},
		{&Method{}, "methods"},
		{&Severity{}, "severity_types"},
		{&User{}, "users"},
		{&LineOfSight{}, "lines_of_sight"},
		{&Category{}, "thermal_event_categories"},
		{&CategoryLineOfSight{}, "thermal_event_category_lines_of_sight"},
		{&AnalysisStatus{}, "analysis_status"},
		{&Dataset{}, "datasets"},
		{&ThermalEvent{}, "thermal_events"},
		{&ThermalEventInstance{}, "thermal_events_instances"},
		{&StrikeLineDescriptor{}, "strike_line_descriptors"},
		{&ParentChildRelationship{}, "parent_child_relationships"},
		{&ProcessedMovie{}, "processed_movies"},
	}

	log.Debug("Starting table migrations",
		"table_count", len(tableMappings))

	// Migrate each table individually for better logging
	successCount := 0
	for _, table := range tableMappings {
		if err := migrateTable(db, table.model, table.name, dbType, log); err != nil {
			return successCount, err
		}
		successCount++
	}

	return successCount, nil
}

// migrateTable migrates a single table with detailed logging
func migrateTable(db *gorm.DB, model any, tableName, dbType string, log *slog.Logger) error {
	tableStart := time.Now()

	// Check if table exists before migration
	tableExists := db.Migrator().HasTable(model)

	log.Debug("Migrating table",
		"table", tableName,
		"exists", tableExists)

	// Get column information before migration (if table exists)
	columnsBefore := getTableColumns(db, model, tableExists)

	if err := db.AutoMigrate(model); err != nil {
		enhancedErr := criticalError(err, "auto_migrate_table", "schema_migration_failed",
			"db_type", dbType,
			"table", tableName,
			"action", "database_schema_setup")

		log.Error("Table migration failed",
			"table", tableName,
			"error", enhancedErr)
		return enhancedErr
	}

	// Determine what changed
	action, addedColumns := determineTableChanges(db, model, tableExists, columnsBefore)

	// Log migration result
	logTableMigration(log, tableName, action, addedColumns, time.Since(tableStart))

	return nil
}

// getTableColumns retrieves column names for a table
func getTableColumns(db *gorm.DB, model any, tableExists bool) []string {
	var columns []string
	if tableExists {
		if cols, err := db.Migrator().ColumnTypes(model); err == nil {
			for _, col := range cols {
				columns = append(columns, col.Name())
			}
		}
	}
	return columns
}

// determineTableChanges checks what changed after migration
func determineTableChanges(db *gorm.DB, model any, tableExists bool, columnsBefore []string) (action string, addedColumns []string) {
	action = "updated"

	if !tableExists {
		action = "created"
		// Get all columns for newly created table
		if cols, err := db.Migrator().ColumnTypes(model); err == nil {
			for _, col := range cols {
				addedColumns = append(addedColumns, col.Name())
			}
		}
	} else {
		// Check for new columns added
		addedColumns = findNewColumns(db, model, columnsBefore)
		if len(addedColumns) == 0 {
			action = "unchanged"
		}
	}

	return action, addedColumns
}

// findNewColumns identifies columns added during migration
func findNewColumns(db *gorm.DB, model any, columnsBefore []string) []string {
	var addedColumns []string

	if cols, err := db.Migrator().ColumnTypes(model); err == nil {
		for _, col := range cols {
			colName := col.Name()
			if !slices.Contains(columnsBefore, colName) {
				addedColumns = append(addedColumns, colName)
			}
		}
	}

	return addedColumns
}

// createOptimizedIndexes creates optimized database indexes for performance
func createOptimizedIndexes(db *gorm.DB, dbType string, log *slog.Logger) error {
	indexStart := time.Now()
	log.Debug("Creating optimized indexes")

	// Searches filter by experiment and exclude time windows, so the
	// composite (experiment_id, initial_timestamp_ns) index carries most of
	// the retrieval load on large databases.
	indexName := "idx_thermal_events_experiment_window"
	tableName := "thermal_events"

	// Check if index already exists using GORM's migrator
	if db.Migrator().HasIndex(&ThermalEvent{}, indexName) {
		log.Debug("Optimized index already exists, skipping creation",
			"index", indexName,
			"table", tableName)
		return nil
	}

	if err := db.Migrator().CreateIndex(&ThermalEvent{}, indexName); err != nil {
		// Handle duplicate index errors gracefully
		errMsg := strings.ToLower(err.Error())
		isDuplicateIndex := strings.Contains(errMsg, "duplicate key name") ||
			strings.Contains(errMsg, "already exists") ||
			strings.Contains(errMsg, "duplicate") ||
			strings.Contains(errMsg, "index") && strings.Contains(errMsg, "exist")

		if isDuplicateIndex {
			log.Debug("Index already exists, continuing",
				"index", indexName,
				"table", tableName)
			return nil
		}

		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "create_optimized_index").
			Context("db_type", dbType).
			Context("index_name", indexName).
			Context("table_name", tableName).
			Build()
	}

	log.Debug("Optimized index created successfully",
		"index", indexName,
		"table", tableName,
		"duration", time.Since(indexStart))

	return nil
}

// logTableMigration logs the result of a table migration
func logTableMigration(log *slog.Logger, tableName, action string, addedColumns []string, duration time.Duration) {
	logArgs := []any{
		"table", tableName,
		"action", action,
		"duration", duration,
	}

	if len(addedColumns) > 0 {
		logArgs = append(logArgs, "columns_added", len(addedColumns))
		if len(addedColumns) <= MaxColumnsForDetailedDisplay {
			logArgs = append(logArgs, "new_columns", addedColumns)
		}
	}

	log.Debug("Table migration completed", logArgs...)
}

// redactSensitiveInfo redacts the password from a MySQL DSN string.
func redactSensitiveInfo(dsn string) string {
	// Parse the DSN to extract components. Add a dummy scheme if needed for
	// parsing, focusing just on enabling url.Parse to locate the password.
	parseInput := dsn
	needsDummyScheme := false
	if !strings.Contains(parseInput, "://") {
		if strings.Contains(parseInput, "@") || (!strings.HasPrefix(parseInput, "/") && strings.Contains(parseInput, "(")) {
			parseInput = "dummy://" + parseInput
			needsDummyScheme = true
		} else if strings.HasPrefix(parseInput, "/") {
			parseInput = "dummy://dummyhost" + parseInput
			needsDummyScheme = true
		}
	}

	u, err := url.Parse(parseInput)
	if err != nil {
		// If parsing fails even with the added scheme, return a generic
		// redacted string as we cannot reliably locate the password.
		getLogger().Debug("Failed to parse DSN for redaction, returning generic redaction",
			"error", err)
		return "[REDACTED DSN]"
	}

	// Redact the password if present in the UserInfo
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), redactedMarker)
		}
	}

	// Reconstruct the string. If we added a dummy scheme/host, remove it.
	sanitized := u.String()
	if needsDummyScheme {
		if after, ok := strings.CutPrefix(sanitized, "dummy://dummyhost"); ok {
			sanitized = after
		} else if after, ok := strings.CutPrefix(sanitized, "dummy://"); ok {
			sanitized = after
		}
	}

	return sanitized
}

// LookupSeed declares rows to insert into the lookup tables. Rows that
// already exist are left untouched, so seeding is safe to repeat against a
// live database. JSON field names follow the table names so seed files read
// like the schema.
type LookupSeed struct {
	Devices          []Device              `json:"devices,omitempty"`
	Methods          []Method              `json:"methods,omitempty"`
	SeverityTypes    []Severity            `json:"severity_types,omitempty"`
	Users            []User                `json:"users,omitempty"`
	LinesOfSight     []LineOfSight         `json:"lines_of_sight,omitempty"`
	Categories       []Category            `json:"thermal_event_categories,omitempty"`
	CompatiblePairs  []CategoryLineOfSight `json:"thermal_event_category_lines_of_sight,omitempty"`
	Datasets         []Dataset             `json:"datasets,omitempty"`
	AnalysisStatuses []AnalysisStatus      `json:"analysis_status,omitempty"`
}

// CanonicalSeed returns the rows every deployment starts from: the analysis
// workflow statuses and the catch-all dataset that events reference by
// default.
func CanonicalSeed() LookupSeed {
	return LookupSeed{
		Datasets: []Dataset{
			{
				ID:             1,
				CreationDate:   time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC),
				AnnotationType: "all",
				Description:    "Catch-all dataset",
			},
		},
		AnalysisStatuses: []AnalysisStatus{
			{Name: "not analyzed", Description: "A thermal event not yet analyzed"},
			{Name: "to analyze", Description: "A thermal event that should be analyzed"},
			{Name: "analyzed (ok)", Description: "A thermal event that has been analyzed, and does not need follow-up analysis"},
			{Name: "analyzed (follow-up required)", Description: "A thermal event that has been analyzed, but which requires follow-up analysis"},
			{Name: "detection error", Description: "A false positive, a detection which is not a thermal event"},
			{Name: "detection problem", Description: "A thermal event which is detected, but not properly encompassed, classified and/or tracked"},
		},
	}
}

// SeedLookups inserts the canonical rows plus the given seeds into the
// lookup tables, skipping rows that already exist.
func (ds *DataStore) SeedLookups(ctx context.Context, seeds ...LookupSeed) error {
	seedStart := time.Now()

	all := append([]LookupSeed{CanonicalSeed()}, seeds...)

	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range all {
			if err := insertSeedRows(tx, &all[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if ds.metrics != nil {
			ds.metrics.RecordMaintenanceOperation("seed_lookups", "error")
		}
		return dbError(err, "seed_lookups", errors.PriorityHigh,
			"seed_count", len(all))
	}

	// Seeded rows invalidate any cached lookup listings.
	if ds.lookups != nil {
		ds.lookups.flush()
	}

	if ds.metrics != nil {
		ds.metrics.RecordMaintenanceOperation("seed_lookups", "success")
		ds.metrics.RecordMaintenanceDuration("seed_lookups", time.Since(seedStart).Seconds())
	}

	getLogger().Debug("Lookup tables seeded",
		"seed_count", len(all),
		"duration", time.Since(seedStart))

	return nil
}

// insertSeedRows inserts the non-empty slices of one seed in foreign key
// order, so compatibility pairs land after the categories and lines of sight
// they reference.
func insertSeedRows(tx *gorm.DB, seed *LookupSeed) error {
	insert := func(rows any) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(rows).Error
	}

	if len(seed.Devices) > 0 {
		if err := insert(&seed.Devices); err != nil {
			return err
		}
	}
	if len(seed.Methods) > 0 {
		if err := insert(&seed.Methods); err != nil {
			return err
		}
	}
	if len(seed.SeverityTypes) > 0 {
		if err := insert(&seed.SeverityTypes); err != nil {
			return err
		}
	}
	if len(seed.Users) > 0 {
		if err := insert(&seed.Users); err != nil {
			return err
		}
	}
	if len(seed.LinesOfSight) > 0 {
		if err := insert(&seed.LinesOfSight); err != nil {
			return err
		}
	}
	if len(seed.Categories) > 0 {
		if err := insert(&seed.Categories); err != nil {
			return err
		}
	}
	if len(seed.CompatiblePairs) > 0 {
		if err := insert(&seed.CompatiblePairs); err != nil {
			return err
		}
	}
	if len(seed.Datasets) > 0 {
		if err := insert(&seed.Datasets); err != nil {
			return err
		}
	}
	if len(seed.AnalysisStatuses) > 0 {
		if err := insert(&seed.AnalysisStatuses); err != nil {
			return err
		}
	}

	return nil
}
