// Package schema - metrics integration
package schema

import (
	"sync"

	"github.com/fusionvision/thermal-events-go/internal/observability/metrics"
)

// Global metrics instance (set by observability package)
var (
	globalMetrics *metrics.SchemaMetrics
	metricsMutex  sync.RWMutex
	metricsOnce   sync.Once
)

// SetMetrics sets the global metrics instance for the schema package.
// This function is thread-safe and ensures metrics are only set once per process lifetime.
// Subsequent calls to this function will be ignored (idempotent behavior).
func SetMetrics(m *metrics.SchemaMetrics) {
	metricsOnce.Do(func() {
		metricsMutex.Lock()
		defer metricsMutex.Unlock()
		globalMetrics = m
	})
}

// getMetrics returns the current metrics instance in a thread-safe manner
func getMetrics() *metrics.SchemaMetrics {
	metricsMutex.RLock()
	defer metricsMutex.RUnlock()
	return globalMetrics
}

// recordFileOperation records the outcome of one events-file read or write.
// All metric calls are no-ops until SetMetrics has been called.
func recordFileOperation(operation, status string, seconds float64) {
	m := getMetrics()
	if m == nil {
		return
	}
	m.RecordFileOperation(operation, status)
	m.RecordFileOperationDuration(operation, seconds)
}

// recordFilePayload records the size and event count of a successfully
// encoded or decoded payload.
func recordFilePayload(operation string, sizeBytes int64, eventCount int) {
	m := getMetrics()
	if m == nil {
		return
	}
	m.RecordFileSize(operation, sizeBytes)
	m.RecordEventsPerFile(operation, eventCount)
}
