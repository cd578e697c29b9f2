package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API client metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinylink_api_requests_total",
			Help: "Total number of requests sent to the TinyLink API",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tinylink_api_request_duration_seconds",
			Help:    "TinyLink API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	APITransportErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinylink_api_transport_errors_total",
			Help: "Total number of API requests that failed without a response",
		},
		[]string{"method", "path"},
	)

	// Link operation metrics
	LinkOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinylink_link_operations_total",
			Help: "Total number of link operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	ValidationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinylink_validation_failures_total",
			Help: "Total number of create attempts rejected before reaching the API",
		},
		[]string{"reason"},
	)

	StaleResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinylink_stale_responses_total",
			Help: "Total number of responses discarded because a newer request superseded them",
		},
		[]string{"controller"},
	)

	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinylink_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinylink_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinylink_cache_fallbacks_total",
			Help: "Lookups answered from the cache because the API was unavailable",
		},
		[]string{"cache_type"},
	)

	// Dev backend HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
		},
		[]string{"method", "path", "status"},
	)

	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path", "status"},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinylink_rate_limited_total",
			Help: "Link mutations rejected by the dev backend rate limiter",
		},
		[]string{"method"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
	)
)

// RecordAPIRequest records the outcome of a request sent to the TinyLink API
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, path, status).Inc()
	APIRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordTransportError records an API request that never got a response
func RecordTransportError(method, path string) {
	APITransportErrorsTotal.WithLabelValues(method, path).Inc()
}

// RecordLinkOperation counts a list, create, delete, stats or health call by outcome
func RecordLinkOperation(operation, outcome string) {
	LinkOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordHTTPMetrics records metrics for a request served by the dev backend
func RecordHTTPMetrics(method, path, status string, duration time.Duration, responseSize int64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	HTTPResponseSize.WithLabelValues(method, path, status).Observe(float64(responseSize))
}
