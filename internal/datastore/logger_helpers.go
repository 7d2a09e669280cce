// Package datastore provides helper functions for logging and metrics
package datastore

import (
	"regexp"
	"strings"
)

// sqlUnknown is used when SQL operation or table cannot be determined.
const sqlUnknown = "unknown"

// SQL operation regex patterns
var (
	selectPattern = regexp.MustCompile(`(?i)^\s*SELECT\s+.*?\s+FROM\s+['"\x60]?(\w+)['"\x60]?`)
	insertPattern = regexp.MustCompile(`(?i)^\s*INSERT\s+INTO\s+['"\x60]?(\w+)['"\x60]?`)
	updatePattern = regexp.MustCompile(`(?i)^\s*UPDATE\s+['"\x60]?(\w+)['"\x60]?`)
	deletePattern = regexp.MustCompile(`(?i)^\s*DELETE\s+FROM\s+['"\x60]?(\w+)['"\x60]?`)
	createPattern = regexp.MustCompile(`(?i)^\s*CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?['"\x60]?(\w+)['"\x60]?`)
	dropPattern   = regexp.MustCompile(`(?i)^\s*DROP\s+TABLE\s+(?:IF\s+EXISTS\s+)?['"\x60]?(\w+)['"\x60]?`)
	alterPattern  = regexp.MustCompile(`(?i)^\s*ALTER\s+TABLE\s+['"\x60]?(\w+)['"\x60]?`)
)

// parseSQLOperation extracts the operation type and table name from SQL query
func parseSQLOperation(sql string) (operation, table string) {
	sql = strings.TrimSpace(sql)

	// Try to match against known patterns
	if matches := selectPattern.FindStringSubmatch(sql); len(matches) > 1 {
		return "select", matches[1]
	}
	if matches := insertPattern.FindStringSubmatch(sql); len(matches) > 1 {
		return "insert", matches[1]
	}
	if matches := updatePattern.FindStringSubmatch(sql); len(matches) > 1 {
		return "update", matches[1]
	}
	if matches := deletePattern.FindStringSubmatch(sql); len(matches) > 1 {
		return "delete", matches[1]
	}
	if matches := createPattern.FindStringSubmatch(sql); len(matches) > 1 {
		return "create", matches[1]
	}
	if matches := dropPattern.FindStringSubmatch(sql); len(matches) > 1 {
		return "drop", matches[1]
	}
	if matches := alterPattern.FindStringSubmatch(sql); len(matches) > 1 {
		return "alter", matches[1]
	}

	// Default for unrecognized patterns
	return sqlUnknown, sqlUnknown
}

// categorizeError categorizes database errors for metrics
func categorizeError(err error) string {
	if err == nil {
		return "none"
	}

	// Pattern matching keeps this database-agnostic: the MySQL driver and
	// the SQLite driver word their constraint errors differently.
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "unique constraint") ||
		strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "duplicate entry"):
		return "constraint_violation"
	case strings.Contains(errStr, "deadlock"):
		return "deadlock"
	case strings.Contains(errStr, "foreign key"):
		return "foreign_key_violation"
	case strings.Contains(errStr, "not null"):
		return "null_violation"
	case strings.Contains(errStr, "database is locked"):
		return "database_locked"
	case strings.Contains(errStr, "connection"):
		return "connection_error"
	case strings.Contains(errStr, "timeout"):
		return "timeout"
	case strings.Contains(errStr, "syntax"):
		return "syntax_error"
	case strings.Contains(errStr, "permission") || strings.Contains(errStr, "denied"):
		return "permission_denied"
	case strings.Contains(errStr, "disk full") || strings.Contains(errStr, "no space"):
		return "disk_full"
	default:
		return "other"
	}
}

// calculateFilterComplexity calculates a complexity score for event filters
func calculateFilterComplexity(filters *EventFilters) float64 {
	if filters == nil {
		return 0
	}

	complexity := 0.0

	// Equality filters
	if filters.experimentID != nil {
		complexity += 1
	}
	if filters.device != "" {
		complexity += 1
	}
	if filters.category != "" {
		complexity += 1
	}
	if filters.user != "" {
		complexity += 1
	}
	if filters.severity != "" {
		complexity += 1
	}
	if filters.analysisStatus != "" {
		complexity += 1
	}

	// Range and threshold filters
	if filters.experimentIDLow != nil || filters.experimentIDHigh != nil {
		complexity += 1
	}
	if filters.confidenceAbove != nil {
		complexity += 0.5
	}

	// LIKE filters cost more than equality
	if filters.lineOfSight != "" {
		complexity += 1.5
	}
	if filters.method != "" {
		complexity += 1.5
	}
	complexity += 1.5 * float64(len(filters.datasets))

	// Interval exclusion produces a composite NOT condition per interval
	complexity += 2 * float64(len(filters.excludedIntervals))

	return complexity
}

// isConstraintViolation checks if an error is a unique constraint violation
// in a database-agnostic way using the categorizeError helper
func isConstraintViolation(err error) bool {
	return categorizeError(err) == "constraint_violation"
}

// isForeignKeyViolation checks if an error is a foreign key violation
func isForeignKeyViolation(err error) bool {
	return categorizeError(err) == "foreign_key_violation"
}

// getAppliedFilters returns a summary of applied filters for logging
func getAppliedFilters(filters *EventFilters) map[string]any {
	if filters == nil {
		return map[string]any{"filters": "none"}
	}

	applied := make(map[string]any)

	if filters.experimentID != nil {
		applied["experiment_id"] = *filters.experimentID
	}
	if filters.experimentIDLow != nil {
		applied["experiment_id_low"] = *filters.experimentIDLow
	}
	if filters.experimentIDHigh != nil {
		applied["experiment_id_high"] = *filters.experimentIDHigh
	}
	if filters.lineOfSight != "" {
		applied["line_of_sight"] = filters.lineOfSight
	}
	if filters.device != "" {
		applied["device"] = filters.device
	}
	if filters.category != "" {
		applied["category"] = filters.category
	}
	if filters.user != "" {
		applied["user"] = filters.user
	}
	if filters.severity != "" {
		applied["severity"] = filters.severity
	}
	if filters.analysisStatus != "" {
		applied["analysis_status"] = filters.analysisStatus
	}
	if filters.method != "" {
		applied["method"] = filters.method
	}
	if len(filters.datasets) > 0 {
		applied["datasets"] = filters.datasets
	}
	if filters.confidenceAbove != nil {
		applied["confidence_above"] = *filters.confidenceAbove
	}
	if len(filters.excludedIntervals) > 0 {
		applied["excluded_intervals"] = len(filters.excludedIntervals)
	}

	return applied
}
