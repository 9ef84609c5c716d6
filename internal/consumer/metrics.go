package consumer

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels for signup_service_consumer_records_total.
const (
	outcomeHandled     = "handled"
	outcomeRejected    = "rejected"
	outcomeUndecodable = "undecodable"
)

var (
	consumedRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "consumer",
		Name:      "records_total",
		Help:      "Kafka records read by the consumer, labeled by topic, event type and outcome.",
	}, []string{"topic", "event_type", "outcome"})

	lastHandled = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "signup_service",
		Subsystem: "consumer",
		Name:      "last_handled_timestamp_seconds",
		Help:      "Producer timestamp of the newest handled record per topic.",
	}, []string{"topic"})

	auditEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roster_audit",
		Name:      "events_total",
		Help:      "Roster events seen by the audit consumer, labeled by activity and event type.",
	}, []string{"activity", "event_type"})

	auditRosterSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "roster_audit",
		Name:      "roster_size",
		Help:      "Roster size reported by the most recent event for each activity.",
	}, []string{"activity"})
)

func init() {
	prometheus.MustRegister(consumedRecords, lastHandled, auditEvents, auditRosterSize)
}

func countConsumed(topic, eventType, outcome string) {
	consumedRecords.WithLabelValues(topic, eventType, outcome).Inc()
}
