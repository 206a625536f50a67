// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
// Each instance owns a private registry so tests and commands never collide.
type Metrics struct {
	registry *prometheus.Registry

	// Computation metrics
	ComputationsTotal *prometheus.CounterVec
	MissingVariables  prometheus.Counter

	// Provider metrics
	ProviderCallLatency *prometheus.HistogramVec
	ProviderCallErrors  *prometheus.CounterVec

	// Storage metrics
	RowsStored *prometheus.CounterVec

	// Report metrics
	ReportDuration    prometheus.Histogram
	ReportsGenerated  prometheus.Counter
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a Metrics instance on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "policy_impact_lab"
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ComputationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "impact",
			Name:      "computations_total",
			Help:      "Total impact computations by kind and status",
		}, []string{"kind", "status"}),
		MissingVariables: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "impact",
			Name:      "missing_variables_total",
			Help:      "Variables the provider did not supply, treated as zero",
		}),

		ProviderCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Result provider call latency by scenario",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"scenario"}),
		ProviderCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_errors_total",
			Help:      "Failed result provider calls by scenario",
		}, []string{"scenario"}),

		RowsStored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "rows_stored_total",
			Help:      "Rows written by store",
		}, []string{"store"}),

		ReportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "duration_seconds",
			Help:      "End-to-end report run duration",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		ReportsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "generated_total",
			Help:      "Total reports generated",
		}),
		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful report run",
		}),
	}
}

// Registry returns the registry holding every metric of m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordComputation counts one impact computation.
func (m *Metrics) RecordComputation(kind string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ComputationsTotal.WithLabelValues(kind, status).Inc()
}

// ObserveProviderCall records a provider call.
func (m *Metrics) ObserveProviderCall(scenario string, d time.Duration, err error) {
	m.ProviderCallLatency.WithLabelValues(scenario).Observe(d.Seconds())
	if err != nil {
		m.ProviderCallErrors.WithLabelValues(scenario).Inc()
	}
}

// RecordMissingVariables adds n absent variables.
func (m *Metrics) RecordMissingVariables(n int) {
	m.MissingVariables.Add(float64(n))
}

// RecordRowsStored adds n rows written to store.
func (m *Metrics) RecordRowsStored(store string, n int) {
	m.RowsStored.WithLabelValues(store).Add(float64(n))
}

// RecordReport records a successful report run.
func (m *Metrics) RecordReport(d time.Duration) {
	m.ReportDuration.Observe(d.Seconds())
	m.ReportsGenerated.Inc()
	m.LastSuccessfulRun.SetToCurrentTime()
}

// WriteToTextfile writes every metric in the node-exporter textfile format.
func (m *Metrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
