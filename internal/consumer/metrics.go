package consumer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsSubsystem = "consumer"

var (
	eventsLogged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "processmap",
		Subsystem: metricsSubsystem,
		Name:      "events_logged_total",
		Help:      "Process-map events committed after a successful handler run.",
	}, []string{"topic", "event_type"})

	redeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "processmap",
		Subsystem: metricsSubsystem,
		Name:      "redeliveries_total",
		Help:      "Records skipped because their offset was already logged.",
	}, []string{"topic"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "processmap",
		Subsystem: metricsSubsystem,
		Name:      "handler_errors_total",
		Help:      "Handler failures left uncommitted for redelivery.",
	}, []string{"topic", "event_type"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "processmap",
		Subsystem: metricsSubsystem,
		Name:      "poison_records_total",
		Help:      "Records committed without handling because they could not be decoded.",
	}, []string{"topic"})

	endToEndLag = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "processmap",
		Subsystem: metricsSubsystem,
		Name:      "event_lag_seconds",
		Help:      "Delay between a record's Kafka timestamp and its commit.",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(eventsLogged, redeliveries, handlerErrorCounter, decodeErrorCounter, endToEndLag)
}

func recordProcessed(msg Message) {
	eventsLogged.WithLabelValues(msg.Topic, msg.EventType).Inc()
	if !msg.Timestamp.IsZero() {
		endToEndLag.WithLabelValues(msg.Topic).Observe(time.Since(msg.Timestamp).Seconds())
	}
}

func recordRedelivery(msg Message) {
	redeliveries.WithLabelValues(msg.Topic).Inc()
}

func recordHandlerError(msg Message) {
	handlerErrorCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}
