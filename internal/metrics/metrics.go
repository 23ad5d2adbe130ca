package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catio_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catio_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catio_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catio_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catio_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catio_db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catio_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"result"}, // "commit", "rollback"
	)
)

// Ingestion metrics
var (
	IngestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catio_ingests_total",
			Help: "Total number of upload ingestion attempts",
		},
		[]string{"status"}, // "success", "rejected", "too_large", "error"
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catio_ingest_duration_seconds",
			Help:    "Upload ingestion duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	IngestBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catio_ingest_bytes_total",
			Help: "Total bytes accepted into media storage",
		},
	)

	ProbeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catio_probes_total",
			Help: "Total number of media probe invocations",
		},
		[]string{"status"}, // "success", "failed"
	)

	ThumbnailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catio_thumbnails_total",
			Help: "Total number of thumbnail generations",
		},
		[]string{"result"}, // "frame", "placeholder"
	)
)

// Delivery metrics
var (
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catio_deliveries_total",
			Help: "Total number of media delivery responses",
		},
		[]string{"kind"}, // "full", "partial", "invalid_range", "not_found"
	)

	DeliveryBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catio_delivery_bytes_total",
			Help: "Total media bytes streamed to clients",
		},
	)
)

// Live hub metrics
var (
	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catio_live_connections",
			Help: "Number of currently connected notification sockets",
		},
	)

	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catio_broadcasts_total",
			Help: "Total number of broadcast events by type",
		},
		[]string{"type"},
	)

	BroadcastPrunesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catio_broadcast_prunes_total",
			Help: "Total number of connections pruned after a failed send",
		},
	)
)

// Janitor metrics
var (
	JanitorRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catio_janitor_runs_total",
			Help: "Total number of janitor sweeps",
		},
	)

	JanitorOrphansRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catio_janitor_orphans_removed_total",
			Help: "Total number of orphaned files removed by the janitor",
		},
	)
)
