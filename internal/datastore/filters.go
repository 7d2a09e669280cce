// filters.go defines the composable search filters of the datastore
package datastore

import (
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// DefaultQueryLimit bounds result sets when the caller does not set a limit.
const DefaultQueryLimit = 100

// TimeInterval is a nanosecond time interval with optional bounds. A nil
// bound leaves that side open.
type TimeInterval struct {
	Lower *int64
	Upper *int64
}

// Interval returns a TimeInterval with both bounds set.
func Interval(lower, upper int64) TimeInterval {
	return TimeInterval{Lower: &lower, Upper: &upper}
}

// IntervalFrom returns a TimeInterval open on the upper side.
func IntervalFrom(lower int64) TimeInterval {
	return TimeInterval{Lower: &lower}
}

// IntervalUntil returns a TimeInterval open on the lower side.
func IntervalUntil(upper int64) TimeInterval {
	return TimeInterval{Upper: &upper}
}

// EventFilters selects thermal events in search, count and id queries.
// Filters are composed with the With methods and combine with AND; the
// dataset filters combine with OR among themselves. The zero value selects
// everything.
type EventFilters struct {
	experimentID      *int64
	experimentIDLow   *int64
	experimentIDHigh  *int64
	lineOfSight       string
	device            string
	category          string
	user              string
	severity          string
	analysisStatus    string
	method            string
	datasets          []string
	confidenceAbove   *float64
	excludedIntervals []TimeInterval
	limit             int
	offset            int
}

// NewEventFilters returns an empty filter set.
func NewEventFilters() EventFilters {
	return EventFilters{}
}

// WithExperimentID restricts results to a single experiment.
func (f EventFilters) WithExperimentID(id int64) EventFilters {
	f.experimentID = &id
	return f
}

// WithExperimentIDRange restricts results to experiments in [low, high],
// bounds included.
func (f EventFilters) WithExperimentIDRange(low, high int64) EventFilters {
	f.experimentIDLow = &low
	f.experimentIDHigh = &high
	return f
}

// WithLineOfSight restricts results to lines of sight containing the given
// substring.
func (f EventFilters) WithLineOfSight(lineOfSight string) EventFilters {
	f.lineOfSight = lineOfSight
	return f
}

// WithDevice restricts results to one device.
func (f EventFilters) WithDevice(device string) EventFilters {
	f.device = device
	return f
}

// WithCategory restricts results to one category.
func (f EventFilters) WithCategory(category string) EventFilters {
	f.category = category
	return f
}

// WithUser restricts results to events created by one user.
func (f EventFilters) WithUser(user string) EventFilters {
	f.user = user
	return f
}

// WithSeverity restricts results to one severity.
func (f EventFilters) WithSeverity(severity string) EventFilters {
	f.severity = severity
	return f
}

// WithAnalysisStatus restricts results to one analysis status.
func (f EventFilters) WithAnalysisStatus(status string) EventFilters {
	f.analysisStatus = status
	return f
}

// WithMethod restricts results to methods containing the given substring.
func (f EventFilters) WithMethod(method string) EventFilters {
	f.method = method
	return f
}

// WithDataset restricts results to events belonging to the given dataset.
// Membership is tested against the comma-separated dataset column.
func (f EventFilters) WithDataset(id int) EventFilters {
	return f.WithDatasets(id)
}

// WithDatasets restricts results to events belonging to any of the given
// datasets.
func (f EventFilters) WithDatasets(ids ...int) EventFilters {
	datasets := make([]string, 0, len(f.datasets)+len(ids))
	datasets = append(datasets, f.datasets...)
	for _, id := range ids {
		datasets = append(datasets, strconv.Itoa(id))
	}
	f.datasets = datasets
	return f
}

// WithConfidenceAbove restricts results to events with confidence at or
// above the given threshold.
func (f EventFilters) WithConfidenceAbove(confidence float64) EventFilters {
	f.confidenceAbove = &confidence
	return f
}

// ExcludingTimeIntervals drops events lying inside any of the given
// intervals, bounds included: an event starting exactly at Lower or ending
// exactly at Upper counts as inside. A nil bound leaves that side open.
func (f EventFilters) ExcludingTimeIntervals(intervals ...TimeInterval) EventFilters {
	excluded := make([]TimeInterval, 0, len(f.excludedIntervals)+len(intervals))
	excluded = append(excluded, f.excludedIntervals...)
	excluded = append(excluded, intervals...)
	f.excludedIntervals = excluded
	return f
}

// WithLimit caps the number of results. Without a limit, queries return at
// most DefaultQueryLimit events.
func (f EventFilters) WithLimit(limit int) EventFilters {
	f.limit = limit
	return f
}

// WithOffset skips the first offset results.
func (f EventFilters) WithOffset(offset int) EventFilters {
	f.offset = offset
	return f
}

// apply adds the filter conditions to a query on the thermal_events table.
// Pagination is applied separately so count queries stay unbounded.
func (f *EventFilters) apply(query *gorm.DB) *gorm.DB {
	if f.experimentID != nil {
		query = query.Where("experiment_id = ?", *f.experimentID)
	}
	if f.experimentIDLow != nil && f.experimentIDHigh != nil {
		query = query.Where("experiment_id BETWEEN ? AND ?", *f.experimentIDLow, *f.experimentIDHigh)
	}
	if f.lineOfSight != "" {
		query = query.Where("line_of_sight LIKE ?", "%"+f.lineOfSight+"%")
	}
	if f.device != "" {
		query = query.Where("device = ?", f.device)
	}
	if f.category != "" {
		query = query.Where("category = ?", f.category)
	}
	if f.user != "" {
		query = query.Where("user = ?", f.user)
	}
	if f.severity != "" {
		query = query.Where("severity = ?", f.severity)
	}
	if f.analysisStatus != "" {
		query = query.Where("analysis_status = ?", f.analysisStatus)
	}
	if f.method != "" {
		query = query.Where("method LIKE ?", "%"+f.method+"%")
	}
	if len(f.datasets) > 0 {
		clauses := make([]string, len(f.datasets))
		args := make([]interface{}, len(f.datasets))
		for i, dataset := range f.datasets {
			clauses[i] = "dataset LIKE ?"
			args[i] = "%" + dataset + "%"
		}
		query = query.Where(strings.Join(clauses, " OR "), args...)
	}
	if f.confidenceAbove != nil {
		query = query.Where("confidence >= ?", *f.confidenceAbove)
	}
	for _, interval := range f.excludedIntervals {
		switch {
		case interval.Lower != nil && interval.Upper != nil:
			query = query.Where("NOT (initial_timestamp_ns >= ? AND final_timestamp_ns <= ?)",
				*interval.Lower, *interval.Upper)
		case interval.Lower != nil:
			query = query.Where("initial_timestamp_ns < ?", *interval.Lower)
		case interval.Upper != nil:
			query = query.Where("final_timestamp_ns > ?", *interval.Upper)
		}
	}
	return query
}

// paginate applies the limit and offset, falling back to DefaultQueryLimit.
func (f *EventFilters) paginate(query *gorm.DB) *gorm.DB {
	limit := f.limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	query = query.Limit(limit)
	if f.offset > 0 {
		query = query.Offset(f.offset)
	}
	return query
}

// DescriptorFilters selects strike-line descriptors. The zero value selects
// everything.
type DescriptorFilters struct {
	instanceID   *uint64
	realTimeFlag *bool
	limit        int
	offset       int
}

// NewDescriptorFilters returns an empty filter set.
func NewDescriptorFilters() DescriptorFilters {
	return DescriptorFilters{}
}

// WithInstanceID restricts results to descriptors of one instance.
func (f DescriptorFilters) WithInstanceID(id uint64) DescriptorFilters {
	f.instanceID = &id
	return f
}

// WithRealTimeFlag restricts results by the flag_RT column.
func (f DescriptorFilters) WithRealTimeFlag(flag bool) DescriptorFilters {
	f.realTimeFlag = &flag
	return f
}

// WithLimit caps the number of results. Without a limit, queries return at
// most DefaultQueryLimit descriptors.
func (f DescriptorFilters) WithLimit(limit int) DescriptorFilters {
	f.limit = limit
	return f
}

// WithOffset skips the first offset results.
func (f DescriptorFilters) WithOffset(offset int) DescriptorFilters {
	f.offset = offset
	return f
}

// apply adds the filter conditions and pagination to a query on the
// strike_line_descriptors table.
func (f *DescriptorFilters) apply(query *gorm.DB) *gorm.DB {
	if f.instanceID != nil {
		query = query.Where("thermal_event_instance_id = ?", *f.instanceID)
	}
	if f.realTimeFlag != nil {
		query = query.Where("flag_RT = ?", *f.realTimeFlag)
	}
	limit := f.limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	query = query.Limit(limit)
	if f.offset > 0 {
		query = query.Offset(f.offset)
	}
	return query
}
