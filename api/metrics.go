package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// =============================================================================
// METRICS - Prometheus collectors for the loan API
// =============================================================================

// Metrics holds the API collectors in a private registry.
type Metrics struct {
	registry *prometheus.Registry

	calculations   *prometheus.CounterVec
	calcDuration   *prometheus.HistogramVec
	scheduleLength prometheus.Histogram
	cacheLookups   *prometheus.CounterVec
	exports        *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	historyPruned  prometheus.Counter
}

// NewMetrics creates and registers every collector.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loancalc",
			Name:      "calculations_total",
			Help:      "Amortization calculations by loan type and outcome.",
		}, []string{"loan_type", "outcome"}),
		calcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "loancalc",
			Name:      "calculation_duration_seconds",
			Help:      "Time spent in the amortization engine.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"loan_type"}),
		scheduleLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "loancalc",
			Name:      "schedule_length_payments",
			Help:      "Number of rows in computed schedules.",
			Buckets:   []float64{12, 36, 60, 120, 180, 240, 360, 520, 1000, 5000},
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loancalc",
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loancalc",
			Name:      "exports_total",
			Help:      "Spreadsheet exports by source (request, history) and outcome.",
		}, []string{"source", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loancalc",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "loancalc",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		historyPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loancalc",
			Name:      "history_pruned_total",
			Help:      "Calculation records deleted by the retention scheduler.",
		}),
	}

	m.registry.MustRegister(
		m.calculations,
		m.calcDuration,
		m.scheduleLength,
		m.cacheLookups,
		m.exports,
		m.httpRequests,
		m.httpDuration,
		m.historyPruned,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
