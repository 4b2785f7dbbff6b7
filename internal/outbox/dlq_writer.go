package outbox

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxReasonBytes bounds the stored failure reason; broker errors can embed
// whole batches of metadata.
const maxReasonBytes = 1024

const insertDLQ = `INSERT INTO outbox_dlq (event_id, workflow_id, event_type, topic, payload, reason, aggregate_type, aggregate_id, schema_subject, partition_key, next_retry_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, NOW())`

// DLQWriter parks outbox messages that could not be delivered.
type DLQWriter struct {
	pool *pgxpool.Pool
}

// NewDLQWriter returns a writer backed by pool.
func NewDLQWriter(pool *pgxpool.Pool) *DLQWriter {
	return &DLQWriter{pool: pool}
}

// WriteBatch inserts one DLQ row per message in a single transaction, so a
// failed topic batch is parked entirely or not at all.
func (w *DLQWriter) WriteBatch(ctx context.Context, messages []Message, reason string) error {
	if len(messages) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, w.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, msg := range messages {
			batch.Queue(insertDLQ,
				msg.EventID, msg.WorkflowID, msg.EventType, msg.Topic, msg.Payload,
				dlqReason(reason, msg.Topic),
				msg.AggregateType, msg.AggregateID, msg.SchemaSubject, msg.PartitionKey,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func dlqReason(reason, topic string) string {
	full := fmt.Sprintf("%s (topic=%s)", reason, topic)
	if len(full) <= maxReasonBytes {
		return full
	}
	cut := maxReasonBytes
	for cut > 0 && !utf8.RuneStart(full[cut]) {
		cut--
	}
	return full[:cut]
}
