package outbox

import "github.com/prometheus/client_golang/prometheus"

var (
	deliveredCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "processmap",
		Subsystem: "outbox",
		Name:      "events_delivered_total",
		Help:      "Grid events published to Kafka, by event type.",
	}, []string{"event_type"})

	failedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "processmap",
		Subsystem: "outbox",
		Name:      "events_failed_total",
		Help:      "Grid events that failed to publish and were routed to the DLQ, by event type.",
	}, []string{"event_type"})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "processmap",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent delivering and marking one claimed outbox batch.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	dlqCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "processmap",
		Subsystem: "outbox",
		Name:      "events_dlq_total",
		Help:      "Outbox events routed to the dead-letter queue, by topic.",
	}, []string{"topic"})

	schemaLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "processmap",
		Subsystem: "outbox",
		Name:      "schema_lookups_total",
		Help:      "Schema Registry lookups made on a schema ID cache miss, by subject and result.",
	}, []string{"subject", "result"})
)

func init() {
	prometheus.MustRegister(deliveredCounter, failedCounter, batchDuration, dlqCounter, schemaLookups)
}

func recordBatch(counter *prometheus.CounterVec, messages []Message) {
	for _, msg := range messages {
		counter.WithLabelValues(msg.EventType).Inc()
	}
}
