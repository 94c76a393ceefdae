package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Build metrics
var (
	BuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_index_builds_total",
			Help: "Total number of index builds by mode and result",
		},
		[]string{"mode", "result"}, // mode: full|incremental, result: ok|unchanged|error|locked
	)

	BuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_index_build_duration_seconds",
			Help:    "Index build duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"mode"},
	)

	BuildsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_index_builds_in_progress",
			Help: "Number of index builds currently running in this process",
		},
	)

	IndexEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_index_entries",
			Help: "Number of usage rows in the last persisted index",
		},
		[]string{"site"},
	)

	LastBuildTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_index_last_build_timestamp",
			Help: "Unix timestamp of the last successful build",
		},
		[]string{"site"},
	)
)

// Source metrics
var (
	LogEntriesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_index_log_entries_fetched_total",
			Help: "Total number of log entries fetched",
		},
		[]string{"log"},
	)

	LogStreamsTruncated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_index_log_streams_truncated_total",
			Help: "Log streams that ended early on a failed follow-up page",
		},
		[]string{"log"},
	)

	PagesParsed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_index_pages_parsed_total",
			Help: "Total number of page sources parsed for linked content",
		},
	)

	PageFetchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_index_page_fetch_errors_total",
			Help: "Total number of page source fetches that failed",
		},
	)
)

// Lock metrics
var (
	LockContention = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_index_lock_contention_total",
			Help: "Build attempts rejected because another build holds the lock",
		},
	)

	StaleLocksCleared = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_index_stale_locks_cleared_total",
			Help: "Lock records replaced because they exceeded the staleness ceiling",
		},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_index_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_index_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_index_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)
