package metrics

import "github.com/prometheus/client_golang/prometheus"

// Backend, cache and task adapter Prometheus metrics.
var (
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "factdex",
			Name:      "backend_requests_total",
			Help:      "Total number of search backend requests",
		},
		[]string{"op", "status"}, // status: "success" / "error"
	)

	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "factdex",
			Name:      "backend_request_duration_seconds",
			Help:      "Search backend request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"op"},
	)

	FactCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "factdex",
			Name:      "fact_cache_total",
			Help:      "Fact lookup cache hits and misses",
		},
		[]string{"tier", "result"}, // tier: "recency" / "remote"; result: "hit" / "miss"
	)

	CacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "factdex",
			Name:      "recency_cache_entries",
			Help:      "Entries held by the recency cache",
		},
	)

	CacheEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "factdex",
			Name:      "recency_cache_evictions_total",
			Help:      "Entries dropped by recency cache sweeps",
		},
	)

	BulkPagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "factdex",
			Name:      "bulk_pages_total",
			Help:      "Cursor pages handed to bulk mutations",
		},
		[]string{"op"},
	)

	TaskPollFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "factdex",
			Name:      "task_poll_failures_total",
			Help:      "Failed polls of the annotation task service",
		},
		[]string{"task_type"},
	)
)

var registered bool

// Register registers the HTTP, backend, cache and task metrics with the
// default registry. Library consumers that never call it register nothing.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPResponseBytes)
	prometheus.MustRegister(HTTPInFlight)
	prometheus.MustRegister(BackendRequestsTotal)
	prometheus.MustRegister(BackendRequestDuration)
	prometheus.MustRegister(FactCacheTotal)
	prometheus.MustRegister(CacheEntries)
	prometheus.MustRegister(CacheEvictionsTotal)
	prometheus.MustRegister(BulkPagesTotal)
	prometheus.MustRegister(TaskPollFailuresTotal)
	registered = true
}
