package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scheduler poll cycle duration (seconds)
	SchedulerPollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_poll_duration_seconds",
			Help:    "Reminder scheduler poll cycle duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	// Reminders published per poll, by outcome
	RemindersPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_published_total",
			Help: "Total number of reminder events published by the scheduler",
		},
		[]string{"status"}, // status: success, failed
	)

	// Event handling latency (milliseconds), by handler and status
	EventHandleLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "event_handle_latency_ms",
			Help:    "Event handler latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1ms to ~4s
		},
		[]string{"handler", "status"},
	)

	// Backend task API call latency (milliseconds)
	BackendCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_call_latency_ms",
			Help:    "Backend task API call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"endpoint", "status"},
	)

	// Recurring task occurrences created
	RecurrenceCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recurrence_occurrences_created_total",
			Help: "Total number of successor tasks created for recurring tasks",
		},
	)

	// Recurrences skipped because no credential was attached
	RecurrenceSkippedNoAuth = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recurrence_skipped_no_credential_total",
			Help: "Recurring occurrences skipped because the delivery carried no credential",
		},
	)

	// Queries exceeding the slow-query threshold
	DBSlowQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_queries_total",
			Help: "Total number of database queries slower than the configured threshold",
		},
	)

	// HTTP request latency (seconds)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

// RecordPollDuration records one scheduler poll cycle.
func RecordPollDuration(duration time.Duration) {
	SchedulerPollDuration.Observe(duration.Seconds())
}

// RecordEventHandled records event handler latency.
func RecordEventHandled(handler, status string, duration time.Duration) {
	EventHandleLatency.WithLabelValues(handler, status).Observe(float64(duration.Milliseconds()))
}

// RecordBackendCall records backend task API call latency.
func RecordBackendCall(endpoint, status string, duration time.Duration) {
	BackendCallLatency.WithLabelValues(endpoint, status).Observe(float64(duration.Milliseconds()))
}

// RecordHTTPRequest records HTTP request latency.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
