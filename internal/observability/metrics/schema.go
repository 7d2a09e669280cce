// Package metrics provides schema metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SchemaMetrics contains Prometheus metrics for events file serialization
// and thermal event validation
type SchemaMetrics struct {
	registry *prometheus.Registry

	// Events file metrics
	fileOperationsTotal   *prometheus.CounterVec
	fileOperationDuration *prometheus.HistogramVec
	fileSizeBytesHist     *prometheus.HistogramVec
	eventsPerFileHist     *prometheus.HistogramVec

	// Validation metrics
	validationsTotal        *prometheus.CounterVec
	validationFailuresTotal *prometheus.CounterVec

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// NewSchemaMetrics creates and registers new schema metrics
func NewSchemaMetrics(registry *prometheus.Registry) (*SchemaMetrics, error) {
	m := &SchemaMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *SchemaMetrics) initMetrics() error {
	// Events file metrics
	m.fileOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_file_operations_total",
			Help: "Total number of events file operations",
		},
		[]string{"operation", "status"}, // operation: file_read, file_write; status: success, error
	)

	m.fileOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schema_file_operation_duration_seconds",
			Help:    "Time taken for events file operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15), // 1ms to ~32s
		},
		[]string{"operation"},
	)

	m.fileSizeBytesHist = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schema_file_size_bytes",
			Help:    "Size of events files read or written",
			Buckets: prometheus.ExponentialBuckets(BucketStart1KB, BucketFactor10, BucketCount6), // 1KB to ~100MB
		},
		[]string{"operation"},
	)

	m.eventsPerFileHist = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schema_events_per_file",
			Help:    "Number of thermal events per events file",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000, 10000},
		},
		[]string{"operation"},
	)

	// Validation metrics
	m.validationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_validations_total",
			Help: "Total number of validation runs",
		},
		[]string{"entity", "status"}, // entity: thermal_event, instance, descriptor
	)

	m.validationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_validation_failures_total",
			Help: "Total number of field validation failures",
		},
		[]string{"entity", "field"},
	)

	// Initialize collectors slice with all metrics
	m.collectors = []prometheus.Collector{
		m.fileOperationsTotal,
		m.fileOperationDuration,
		m.fileSizeBytesHist,
		m.eventsPerFileHist,
		m.validationsTotal,
		m.validationFailuresTotal,
	}

	return nil
}

// Describe implements the Collector interface
func (m *SchemaMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *SchemaMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// Events file methods

// RecordFileOperation records an events file operation
func (m *SchemaMetrics) RecordFileOperation(operation, status string) {
	m.fileOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordFileOperationDuration records the duration of an events file operation
func (m *SchemaMetrics) RecordFileOperationDuration(operation string, duration float64) {
	m.fileOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordFileSize records the size of an events file
func (m *SchemaMetrics) RecordFileSize(operation string, sizeBytes int64) {
	m.fileSizeBytesHist.WithLabelValues(operation).Observe(float64(sizeBytes))
}

// RecordEventsPerFile records the number of events in an events file
func (m *SchemaMetrics) RecordEventsPerFile(operation string, eventCount int) {
	m.eventsPerFileHist.WithLabelValues(operation).Observe(float64(eventCount))
}

// Validation methods

// RecordValidation records a validation run
func (m *SchemaMetrics) RecordValidation(entity, status string) {
	m.validationsTotal.WithLabelValues(entity, status).Inc()
}

// RecordValidationFailure records a field validation failure
func (m *SchemaMetrics) RecordValidationFailure(entity, field string) {
	m.validationFailuresTotal.WithLabelValues(entity, field).Inc()
}

// RecordOperation implements the Recorder interface.
// Supported operations: "file_read", "file_write", "validation"
// Status values: "success", "error"
func (m *SchemaMetrics) RecordOperation(operation, status string) {
	switch operation {
	case OpFileRead, OpFileWrite:
		m.fileOperationsTotal.WithLabelValues(operation, status).Inc()
	case OpValidation:
		m.validationsTotal.WithLabelValues(LabelThermalEvent, status).Inc()
	}
}

// RecordDuration implements the Recorder interface.
func (m *SchemaMetrics) RecordDuration(operation string, seconds float64) {
	switch operation {
	case OpFileRead, OpFileWrite:
		m.fileOperationDuration.WithLabelValues(operation).Observe(seconds)
	}
}

// RecordError implements the Recorder interface.
func (m *SchemaMetrics) RecordError(operation, errorType string) {
	switch operation {
	case OpFileRead, OpFileWrite:
		m.fileOperationsTotal.WithLabelValues(operation, "error").Inc()
	case OpValidation:
		// errorType carries the failing field name for validation errors
		m.validationFailuresTotal.WithLabelValues(LabelThermalEvent, errorType).Inc()
	}
}
