package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Action chat metrics
var (
	// Streams by terminal outcome
	StreamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "actions",
			Name:      "streams_total",
			Help:      "Total number of response streams by outcome",
		},
		[]string{"outcome"},
	)

	// Folded events by kind
	StreamEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "actions",
			Name:      "stream_events_total",
			Help:      "Total number of stream events received",
		},
		[]string{"kind"},
	)

	StreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "actions",
			Name:      "stream_duration_seconds",
			Help:      "Time from stream open to terminal state",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"outcome"},
	)

	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "jan",
			Subsystem: "actions",
			Name:      "active_streams",
			Help:      "Number of currently open response streams",
		},
	)

	AttachmentsSent = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "actions",
			Name:      "attachments_per_message",
			Help:      "Context attachments sent with each message",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		},
	)

	// Backend REST calls
	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "actions",
			Name:      "backend_requests_total",
			Help:      "Total number of backend API requests",
		},
		[]string{"operation", "status"},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "actions",
			Name:      "backend_request_duration_seconds",
			Help:      "Backend API request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"operation"},
	)

	// Query cache lookups
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "actions",
			Name:      "cache_lookups_total",
			Help:      "Query cache lookups by result",
		},
		[]string{"result"},
	)

	// Bridge HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "actions",
			Name:      "http_requests_total",
			Help:      "Total number of bridge HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "actions",
			Name:      "http_request_duration_seconds",
			Help:      "Bridge HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordStreamStart records a stream opening with n attachments.
func RecordStreamStart(attachments int) {
	ActiveStreams.Inc()
	AttachmentsSent.Observe(float64(attachments))
}

// RecordStreamEnd records a stream reaching a terminal outcome.
func RecordStreamEnd(outcome string, durationSec float64) {
	ActiveStreams.Dec()
	StreamsTotal.WithLabelValues(outcome).Inc()
	StreamDuration.WithLabelValues(outcome).Observe(durationSec)
}

// RecordStreamEvent records one received event.
func RecordStreamEvent(kind string) {
	StreamEventsTotal.WithLabelValues(kind).Inc()
}

// RecordBackendRequest records a backend API call
func RecordBackendRequest(operation, status string, durationSec float64) {
	BackendRequestsTotal.WithLabelValues(operation, status).Inc()
	BackendRequestDuration.WithLabelValues(operation).Observe(durationSec)
}

// RecordCacheLookup records a cache hit or miss
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordRequest records a bridge HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}
