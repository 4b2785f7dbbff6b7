package postgres

import (
	"context"
	"fmt"

	"example.com/processmap/internal/domain"
)

// AppendAuditEntry implements domain.AuditLog.
func (r *Repository) AppendAuditEntry(ctx context.Context, entry domain.AuditEntry) error {
	const stmt = `INSERT INTO activity_audit_log (activity_id, action, field_changed, old_value, new_value, changed_by, changed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err := r.db(ctx).Exec(ctx, stmt,
		entry.ActivityID,
		string(entry.Action),
		entry.Field,
		entry.OldValue,
		entry.NewValue,
		entry.Actor,
		entry.ChangedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit %s for activity %d: %w", entry.Action, entry.ActivityID, err)
	}
	return nil
}

// ListAuditEntries implements domain.AuditLog, newest first.
func (r *Repository) ListAuditEntries(ctx context.Context, activityID int64, cursor *domain.AuditCursor, limit int) ([]domain.AuditEntry, *domain.AuditCursor, error) {
	args := []any{activityID, limit}
	query := `SELECT id, activity_id, action, field_changed, old_value, new_value, changed_by, changed_at
        FROM activity_audit_log WHERE activity_id=$1`

	if cursor != nil {
		query += ` AND (changed_at, id) < ($3, $4)`
		args = append(args, cursor.ChangedAt, cursor.ID)
	}

	query += ` ORDER BY changed_at DESC, id DESC LIMIT $2`

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("list audit for activity %d: %w", activityID, err)
	}
	defer rows.Close()

	results := make([]domain.AuditEntry, 0, limit)
	for rows.Next() {
		var (
			e      domain.AuditEntry
			action string
		)
		if err := rows.Scan(&e.ID, &e.ActivityID, &action, &e.Field, &e.OldValue, &e.NewValue, &e.Actor, &e.ChangedAt); err != nil {
			return nil, nil, err
		}
		e.Action = domain.AuditAction(action)
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var next *domain.AuditCursor
	if len(results) == limit {
		last := results[len(results)-1]
		next = &domain.AuditCursor{ChangedAt: last.ChangedAt, ID: last.ID}
	}
	return results, next, nil
}
