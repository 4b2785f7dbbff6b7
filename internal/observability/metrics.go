// Package observability registers the process-map Prometheus metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	rowShifts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "processmap",
		Subsystem: "grid",
		Name:      "row_shifts_total",
		Help:      "Row shifts that relocated at least one activity.",
	})
	relocatedActivities = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "processmap",
		Subsystem: "grid",
		Name:      "relocated_activities",
		Help:      "Activities relocated per row shift.",
		Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
	})
	malformedLinks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "processmap",
		Subsystem: "grid",
		Name:      "malformed_links_total",
		Help:      "Connection payloads that failed to decode and were treated as empty.",
	})
	placements = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "processmap",
		Subsystem: "placement",
		Name:      "activities_total",
		Help:      "Activity placements by conflict resolution.",
	}, []string{"resolution"})
	conflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "processmap",
		Subsystem: "placement",
		Name:      "conflicts_total",
		Help:      "Placements or moves rejected because the target cell was occupied.",
	})
	lastMutationGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "processmap",
		Subsystem: "persistence",
		Name:      "last_mutation_timestamp_seconds",
		Help:      "Unix timestamp of the most recent committed workflow mutation.",
	})
)

func init() {
	prometheus.MustRegister(rowShifts, relocatedActivities, malformedLinks, placements, conflicts, lastMutationGauge)
}

// RecordShift observes a shift that relocated n activities.
func RecordShift(n int) {
	if n <= 0 {
		return
	}
	rowShifts.Inc()
	relocatedActivities.Observe(float64(n))
}

// RecordMalformedLinks counts a connections payload that could not be decoded.
func RecordMalformedLinks() {
	malformedLinks.Inc()
}

// RecordPlacement counts a placement by resolution label.
func RecordPlacement(resolution string) {
	placements.WithLabelValues(resolution).Inc()
}

// RecordConflict counts an occupied-cell rejection.
func RecordConflict() {
	conflicts.Inc()
}

// RecordMutation updates the mutation watermark gauge.
func RecordMutation(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastMutationGauge.Set(float64(ts.Unix()))
}
