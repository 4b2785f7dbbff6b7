// Package postgres implements domain.Repository on Postgres with pgx. Events
// recorded inside a transaction land in the outbox table in the same commit.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/processmap/internal/domain"
	"example.com/processmap/internal/events"
)

const (
	uniqueViolation    = "23505"
	locationConstraint = "activities_workflow_location_key"
)

type txKey struct{}

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides Postgres-backed persistence for workflows, activities,
// audit history and outbox events.
type Repository struct {
	pool     *pgxpool.Pool
	noOutbox bool
}

// Option configures a Repository.
type Option func(*Repository)

// WithoutOutbox turns RecordEvent into a no-op. Use it when no dispatcher
// will ever drain the outbox table.
func WithoutOutbox() Option {
	return func(r *Repository) {
		r.noOutbox = true
	}
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, opts ...Option) *Repository {
	r := &Repository{pool: pool}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Transaction implements domain.Repository. Nested calls join the outer
// transaction. A location collision surfacing at commit, where the deferred
// unique constraint is checked, is reported as domain.ErrCellOccupied.
func (r *Repository) Transaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return translate(fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (r *Repository) db(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return r.pool
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == locationConstraint {
		return fmt.Errorf("%w: %s", domain.ErrCellOccupied, pgErr.Detail)
	}
	return err
}

// RecordEvent implements domain.AuditLog by inserting into the outbox.
func (r *Repository) RecordEvent(ctx context.Context, event domain.Event) error {
	route, err := events.Lookup(event.Type)
	if err != nil {
		return err
	}
	if r.noOutbox {
		return nil
	}
	body, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event.Type, err)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, workflow_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	_, err = r.db(ctx).Exec(ctx, stmt,
		route.AggregateType,
		event.AggregateID,
		event.WorkflowID,
		event.Type,
		route.Topic,
		route.SchemaSubject,
		events.PartitionKey(event.WorkflowID),
		body,
		events.DedupeKey(event.Type, event.AggregateID, uuid.NewString()),
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox %s: %w", event.Type, err)
	}
	return nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
