// Package metrics defines the Prometheus metric collectors used across the
// directory services and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the directory.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   *prometheus.HistogramVec
	CacheRebuildsTotal   *prometheus.CounterVec
	CacheRebuildDuration prometheus.Histogram
	CacheRestaurants     prometheus.Gauge
	CacheResetsTotal     prometheus.Counter
	IndexUpsertsTotal    *prometheus.CounterVec
	AnalyticsEventsTotal *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all collectors and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "directory_queries_total",
				Help: "Directory queries by operation (suggest, search, nearby) and outcome (hit, zero_result, error).",
			},
			[]string{"operation", "result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "directory_query_latency_seconds",
				Help:    "Directory query latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"operation"},
		),
		SearchResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "directory_query_results_count",
				Help:    "Number of results returned per query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"operation"},
		),
		CacheRebuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "restaurant_cache_rebuilds_total",
				Help: "Cache rebuilds from the backing store by status.",
			},
			[]string{"status"},
		),
		CacheRebuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "restaurant_cache_rebuild_duration_seconds",
				Help:    "Time spent fetching records and building the index set.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		CacheRestaurants: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "restaurant_cache_records",
				Help: "Number of restaurants held in the cache.",
			},
		),
		CacheResetsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "restaurant_cache_resets_total",
				Help: "Number of times the cache was emptied.",
			},
		),
		IndexUpsertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "restaurant_index_upserts_total",
				Help: "Incremental upserts by outcome (applied, skipped, deferred, error).",
			},
			[]string{"status"},
		),
		AnalyticsEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_events_total",
				Help: "Analytics events by delivery outcome (published, failed, dropped).",
			},
			[]string{"status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheRebuildsTotal,
		m.CacheRebuildDuration,
		m.CacheRestaurants,
		m.CacheResetsTotal,
		m.IndexUpsertsTotal,
		m.AnalyticsEventsTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
