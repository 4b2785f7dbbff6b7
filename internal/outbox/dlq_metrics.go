package outbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// DLQ outcome label values.
const (
	outcomeRequeued    = "requeued"
	outcomeRetry       = "retry_scheduled"
	outcomeQuarantined = "quarantined"
)

var (
	dlqOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "processmap",
		Subsystem: "dlq",
		Name:      "entries_total",
		Help:      "DLQ entries handled by the manager, by outcome.",
	}, []string{"topic", "event_type", "outcome"})

	dlqEntries = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "processmap",
		Subsystem: "dlq",
		Name:      "entries",
		Help:      "Rows in outbox_dlq by state.",
	}, []string{"state"})

	dlqOldestPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "processmap",
		Subsystem: "dlq",
		Name:      "oldest_pending_age_seconds",
		Help:      "Age of the oldest DLQ entry still awaiting a retry.",
	})
)

func init() {
	prometheus.MustRegister(dlqOutcomes, dlqEntries, dlqOldestPending)
}

func recordDLQOutcome(entry dlqEntry, outcome string) {
	dlqOutcomes.WithLabelValues(entry.Topic, entry.EventType, outcome).Inc()
}

// refreshDLQGauges samples the table after a manager pass. Errors leave the
// previous values in place.
func refreshDLQGauges(ctx context.Context, pool *pgxpool.Pool) error {
	var pending, quarantined int
	var oldest float64
	err := pool.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE quarantined_at IS NULL),
                COUNT(*) FILTER (WHERE quarantined_at IS NOT NULL),
                COALESCE(EXTRACT(EPOCH FROM NOW() - MIN(created_at) FILTER (WHERE quarantined_at IS NULL)), 0)::float8
           FROM outbox_dlq`).Scan(&pending, &quarantined, &oldest)
	if err != nil {
		return err
	}
	dlqEntries.WithLabelValues("pending").Set(float64(pending))
	dlqEntries.WithLabelValues("quarantined").Set(float64(quarantined))
	dlqOldestPending.Set(oldest)
	return nil
}
