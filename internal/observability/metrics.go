// Package observability provides metrics and monitoring capabilities for the thermal events library.
package observability

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fusionvision/thermal-events-go/internal/observability/metrics"
	"github.com/fusionvision/thermal-events-go/internal/schema"
)

// Metrics holds all the metric collectors for the library.
type Metrics struct {
	registry  *prometheus.Registry
	Datastore *metrics.DatastoreMetrics
	Schema    *metrics.SchemaMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric collectors.
// It returns an error if any metric collector fails to initialize.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	datastoreMetrics, err := metrics.NewDatastoreMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Datastore metrics: %w", err)
	}

	schemaMetrics, err := metrics.NewSchemaMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Schema metrics: %w", err)
	}

	m := &Metrics{
		registry:  registry,
		Datastore: datastoreMetrics,
		Schema:    schemaMetrics,
	}

	// Initialize events file serialization with metrics
	initializeSchema(schemaMetrics)

	return m, nil
}

// RegisterHandlers registers the metrics endpoint with the provided http.ServeMux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/metrics", m.metricsHandler)
}

// metricsHandler is the HTTP handler for the /metrics endpoint.
func (m *Metrics) metricsHandler(w http.ResponseWriter, r *http.Request) {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
	h.ServeHTTP(w, r)
}

// initializeSchema sets up the schema package with metrics
func initializeSchema(schemaMetrics *metrics.SchemaMetrics) {
	schema.SetMetrics(schemaMetrics)
}
