package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	rosterChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "roster",
		Name:      "changes_total",
		Help:      "Number of successful roster changes, labeled by event type and activity.",
	}, []string{"event_type", "activity"})

	rosterSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "signup_service",
		Subsystem: "roster",
		Name:      "participants",
		Help:      "Current number of participants signed up for each activity.",
	}, []string{"activity"})

	publishFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "events",
		Name:      "publish_failures_total",
		Help:      "Number of roster events that could not be handed to the outbox.",
	}, []string{"event_type"})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of HTTP requests served, labeled by method and status code.",
	}, []string{"method", "code"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "signup_service",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Time spent serving HTTP requests.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"method"})
)

func init() {
	prometheus.MustRegister(rosterChanges, rosterSize, publishFailures, httpRequests, httpDuration)
}

// RecordRosterChange counts a roster change.
func RecordRosterChange(eventType, activity string) {
	rosterChanges.WithLabelValues(eventType, activity).Inc()
}

// SetRosterSize sets the roster size gauge. Callers hold the roster's lock so the gauge
// follows the order of changes.
func SetRosterSize(activity string, size int) {
	rosterSize.WithLabelValues(activity).Set(float64(size))
}

// RecordPublishFailure counts a roster event that never reached the outbox.
func RecordPublishFailure(eventType string) {
	publishFailures.WithLabelValues(eventType).Inc()
}

// RecordHTTPRequest observes a served request.
func RecordHTTPRequest(method string, code int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, statusLabel(code)).Inc()
	httpDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
