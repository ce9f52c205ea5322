package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled requests by method, route and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estate_http_requests_total",
			Help: "Handled HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration observes request latency by route.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "estate_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// ActiveListeners is the number of open collection listeners.
	ActiveListeners = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "estate_collection_listeners",
		Help: "Open collection snapshot listeners",
	})

	// ListenerOpens counts listener opens per collection; a subscribe that reuses one does not count.
	ListenerOpens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estate_collection_listener_opens_total",
			Help: "Collection listeners opened",
		},
		[]string{"collection"},
	)

	// ListenerErrors counts listener errors per collection.
	ListenerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estate_collection_listener_errors_total",
			Help: "Collection listener errors",
		},
		[]string{"collection"},
	)

	// SnapshotFanout counts snapshot deliveries to subscribers.
	SnapshotFanout = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estate_collection_snapshot_deliveries_total",
			Help: "Snapshots delivered to subscribers",
		},
		[]string{"collection"},
	)

	// OptimisticOutcomes counts optimistic mutations by final phase.
	OptimisticOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estate_optimistic_mutations_total",
			Help: "Optimistic mutations by outcome",
		},
		[]string{"collection", "outcome"},
	)

	// AdminCompensations counts identity cleanups after a failed admin profile write.
	AdminCompensations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estate_admin_create_compensations_total",
			Help: "Identity deletions after failed admin profile writes",
		},
		[]string{"outcome"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "estate_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	// UploadedBytes counts bytes written to object storage.
	UploadedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "estate_storage_uploaded_bytes_total",
		Help: "Bytes uploaded to object storage",
	})
)
