package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service
type Metrics struct {
	registry *prometheus.Registry

	// Edit endpoint metrics
	EditRequestsTotal *prometheus.CounterVec
	EditDuration      *prometheus.HistogramVec

	// File metrics
	ColumnsAddedTotal   prometheus.Counter
	SnapshotWritesTotal *prometheus.CounterVec
	FetchesTotal        prometheus.Counter
	FileEventsTotal     *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		EditRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csv_edit_requests_total",
				Help: "Total number of edit requests by operation and status",
			},
			[]string{"operation", "status"},
		),
		EditDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "csv_edit_duration_seconds",
				Help:    "Duration of edit requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		ColumnsAddedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "csv_columns_added_total",
				Help: "Total number of columns appended to the header",
			},
		),
		SnapshotWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csv_snapshot_writes_total",
				Help: "Total number of labeled snapshot refreshes",
			},
			[]string{"status"},
		),
		FetchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "csv_fetches_total",
				Help: "Total number of raw CSV downloads",
			},
		),
		FileEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csv_file_events_total",
				Help: "Total number of on-disk changes observed for the CSV file",
			},
			[]string{"op", "source"},
		),
	}

	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.EditRequestsTotal)
	m.registry.MustRegister(m.EditDuration)

	m.registry.MustRegister(m.ColumnsAddedTotal)
	m.registry.MustRegister(m.SnapshotWritesTotal)
	m.registry.MustRegister(m.FetchesTotal)
	m.registry.MustRegister(m.FileEventsTotal)
}

// ObserveEdit records one edit request outcome
func (m *Metrics) ObserveEdit(operation string, status string, seconds float64) {
	m.EditRequestsTotal.WithLabelValues(operation, status).Inc()
	m.EditDuration.WithLabelValues(operation).Observe(seconds)
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
