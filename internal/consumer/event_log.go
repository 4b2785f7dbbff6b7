package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// envelope holds the fields every process-map event payload shares. Shift and
// workflow events carry no activity_id.
type envelope struct {
	ActivityID *int64     `json:"activity_id"`
	WorkflowID *int64     `json:"workflow_id"`
	Actor      string     `json:"actor"`
	OccurredAt *time.Time `json:"occurred_at"`
}

// EventLogOption configures an EventLog.
type EventLogOption func(*EventLog)

// WithEventLogLogger sets the logger used for redelivery notices.
func WithEventLogLogger(logger zerolog.Logger) EventLogOption {
	return func(l *EventLog) {
		l.logger = logger
	}
}

// EventLog projects consumed events into the activity_event_log table so a
// workflow's history can be replayed without Kafka retention.
type EventLog struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewEventLog constructs an EventLog backed by pool.
func NewEventLog(pool *pgxpool.Pool, opts ...EventLogOption) *EventLog {
	l := &EventLog{pool: pool, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Handle stores one record. The record key is (topic, partition, offset), so a
// message redelivered after a missed commit is counted and skipped.
func (l *EventLog) Handle(ctx context.Context, msg Message) error {
	var env envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return errors.Join(ErrMalformedPayload, err)
	}
	workflowID := msg.WorkflowID
	if workflowID == nil {
		workflowID = env.WorkflowID
	}

	var id int64
	err := l.pool.QueryRow(ctx,
		`INSERT INTO activity_event_log (event_type, workflow_id, activity_id, actor, occurred_at, schema_id, schema_subject, topic, partition, record_offset, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
         ON CONFLICT (topic, partition, record_offset) DO NOTHING
         RETURNING id`,
		msg.EventType,
		workflowID,
		env.ActivityID,
		optional(env.Actor),
		env.OccurredAt,
		msg.SchemaID,
		optional(msg.SchemaSubject),
		msg.Topic,
		msg.Partition,
		msg.Offset,
		msg.Payload,
		msg.Timestamp,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		recordRedelivery(msg)
		l.logger.Debug().
			Str("topic", msg.Topic).
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("event already logged")
		return nil
	}
	return err
}

func optional(value string) any {
	if value == "" {
		return nil
	}
	return value
}
