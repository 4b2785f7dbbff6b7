//go:build integration

package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"example.com/processmap/internal/domain"
	"example.com/processmap/internal/events"
	"example.com/processmap/internal/persistence/postgres"
	"example.com/processmap/internal/persistence/postgres/pgtest"
)

func TestDispatcherPublishesMessages(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Start(t)
	workflowID := placeActivity(t, ctx, pool)

	producer := &stubProducer{}
	registry := &stubRegistry{id: 42}
	dispatcher := NewDispatcher(pool, producer, registry, 10*time.Millisecond, 5)

	beforeDelivered := testutil.ToFloat64(deliveredCounter.WithLabelValues(events.TypeActivityCreated))
	beforeHistogram := histogramSampleCount(t)

	require.NoError(t, dispatcher.RunOnce(ctx))

	require.Len(t, producer.writes, 1)
	require.Equal(t, events.TopicActivityEvents, producer.writes[0].topic)
	require.Len(t, producer.writes[0].messages, 1)
	require.Equal(t, events.PartitionKey(workflowID), string(producer.writes[0].messages[0].Key))

	afterDelivered := testutil.ToFloat64(deliveredCounter.WithLabelValues(events.TypeActivityCreated))
	require.InDelta(t, beforeDelivered+1, afterDelivered, 0.0001)
	require.Greater(t, histogramSampleCount(t), beforeHistogram)

	var published int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NOT NULL`).Scan(&published))
	require.Equal(t, 1, published)

	require.NoError(t, dispatcher.RunOnce(ctx))
	require.Len(t, producer.writes, 1, "published events are not delivered twice")
}

func TestDispatcherRoutesMessagesToDLQOnFailure(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Start(t)
	workflowID := placeActivity(t, ctx, pool)

	producer := &stubProducer{err: errors.New("kafka write failed")}
	registry := &stubRegistry{id: 7}
	dispatcher := NewDispatcher(pool, producer, registry, 10*time.Millisecond, 5)

	beforeFailed := testutil.ToFloat64(failedCounter.WithLabelValues(events.TypeActivityCreated))
	beforeDLQ := testutil.ToFloat64(dlqCounter.WithLabelValues(events.TopicActivityEvents))

	require.NoError(t, dispatcher.RunOnce(ctx))

	require.InDelta(t, beforeFailed+1, testutil.ToFloat64(failedCounter.WithLabelValues(events.TypeActivityCreated)), 0.0001)
	require.InDelta(t, beforeDLQ+1, testutil.ToFloat64(dlqCounter.WithLabelValues(events.TopicActivityEvents)), 0.0001)

	var dlqCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE workflow_id = $1`, workflowID).Scan(&dlqCount))
	require.Equal(t, 1, dlqCount)

	var published int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NOT NULL`).Scan(&published))
	require.Equal(t, 1, published)
}

func TestDLQManagerRequeuesThenQuarantines(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Start(t)
	placeActivity(t, ctx, pool)

	failing := NewDispatcher(pool, &stubProducer{err: errors.New("broker unavailable")}, &stubRegistry{id: 3}, time.Millisecond, 10)
	require.NoError(t, failing.RunOnce(ctx))

	manager := NewDLQManager(pool, 1, time.Second)
	requeued, err := manager.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, requeued)

	var pending int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&pending))
	require.Equal(t, 1, pending)

	producer := &stubProducer{}
	require.NoError(t, NewDispatcher(pool, producer, &stubRegistry{id: 3}, time.Millisecond, 10).RunOnce(ctx))
	require.Len(t, producer.writes, 1)

	// An entry that already used its retries is quarantined instead.
	_, err = pool.Exec(ctx, `INSERT INTO outbox_dlq (event_id, workflow_id, event_type, topic, payload, reason, aggregate_type, aggregate_id, schema_subject, partition_key, retry_count)
        VALUES (99, 1, $1, $2, '{}', 'stuck', 'activity', 5, $3, 'workflow:1', 1)`,
		events.TypeActivityCreated, events.TopicActivityEvents, events.SubjectActivityEvents)
	require.NoError(t, err)

	requeued, err = manager.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Zero(t, requeued)

	var reason string
	require.NoError(t, pool.QueryRow(ctx, `SELECT quarantine_reason FROM outbox_dlq WHERE event_id = 99`).Scan(&reason))
	require.Equal(t, quarantineReason, reason)
	require.Equal(t, 1.0, testutil.ToFloat64(dlqEntries.WithLabelValues("quarantined")))
	require.Zero(t, testutil.ToFloat64(dlqEntries.WithLabelValues("pending")))
}

func placeActivity(t *testing.T, ctx context.Context, pool *pgxpool.Pool) int64 {
	t.Helper()

	svc := domain.NewService(postgres.NewRepository(pool))
	wf, err := svc.CreateWorkflow(ctx, "Dispatch", "")
	require.NoError(t, err)
	_, err = svc.PlaceActivity(ctx, domain.PlaceActivityInput{
		Activity: domain.Activity{WorkflowID: wf.ID, Name: "Receive claim", GridLocation: "A1"},
		Actor:    "tester",
	})
	require.NoError(t, err)
	return wf.ID
}

func histogramSampleCount(t *testing.T) uint64 {
	t.Helper()

	metric := &dto.Metric{}
	require.NoError(t, batchDuration.Write(metric))
	hist := metric.GetHistogram()
	require.NotNil(t, hist)
	return hist.GetSampleCount()
}
