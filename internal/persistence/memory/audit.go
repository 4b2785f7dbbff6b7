package memory

import (
	"cmp"
	"context"
	"slices"

	"example.com/processmap/internal/domain"
)

// AppendAuditEntry implements domain.AuditLog.
func (r *Repository) AppendAuditEntry(ctx context.Context, entry domain.AuditEntry) error {
	return r.write(ctx, func() error {
		r.st.nextAudit++
		entry.ID = r.st.nextAudit
		r.st.audit = append(r.st.audit, entry)
		return nil
	})
}

// ListAuditEntries implements domain.AuditLog, newest first.
func (r *Repository) ListAuditEntries(ctx context.Context, activityID int64, cursor *domain.AuditCursor, limit int) ([]domain.AuditEntry, *domain.AuditCursor, error) {
	defer r.lock(ctx)()

	matches := make([]domain.AuditEntry, 0)
	for _, e := range r.st.audit {
		if e.ActivityID != activityID {
			continue
		}
		if cursor != nil && !before(e, *cursor) {
			continue
		}
		matches = append(matches, e)
	}
	slices.SortFunc(matches, func(a, b domain.AuditEntry) int {
		return cmp.Or(b.ChangedAt.Compare(a.ChangedAt), cmp.Compare(b.ID, a.ID))
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	var next *domain.AuditCursor
	if limit > 0 && len(matches) == limit {
		last := matches[len(matches)-1]
		next = &domain.AuditCursor{ChangedAt: last.ChangedAt, ID: last.ID}
	}
	return matches, next, nil
}

func before(e domain.AuditEntry, c domain.AuditCursor) bool {
	if e.ChangedAt.Equal(c.ChangedAt) {
		return e.ID < c.ID
	}
	return e.ChangedAt.Before(c.ChangedAt)
}

// RecordEvent implements domain.AuditLog.
func (r *Repository) RecordEvent(ctx context.Context, event domain.Event) error {
	return r.write(ctx, func() error {
		r.st.events = append(r.st.events, event)
		return nil
	})
}

// Events returns every committed event in order.
func (r *Repository) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.st.events)
}
