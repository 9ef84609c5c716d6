package outbox

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels for signup_service_outbox_events_total.
const (
	outcomeDelivered    = "delivered"
	outcomeFailed       = "failed"
	outcomeDeadLettered = "dead_lettered"
	outcomeEvicted      = "evicted"
	outcomeReplayed     = "replayed"
	outcomeQuarantined  = "quarantined"
)

var (
	eventOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "outbox",
		Name:      "events_total",
		Help:      "Outbox events by topic and what happened to them.",
	}, []string{"topic", "outcome"})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "signup_service",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent delivering one outbox batch.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	pendingEvents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "signup_service",
		Subsystem: "outbox",
		Name:      "pending_events",
		Help:      "Events waiting for delivery.",
	})

	retainedDeadLetters = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "signup_service",
		Subsystem: "outbox",
		Name:      "dead_letters",
		Help:      "Dead letters held for replay.",
	})
)

func init() {
	prometheus.MustRegister(eventOutcomes, batchDuration, pendingEvents, retainedDeadLetters)
}

func countOutcome(topic, outcome string) {
	eventOutcomes.WithLabelValues(topic, outcome).Inc()
}
