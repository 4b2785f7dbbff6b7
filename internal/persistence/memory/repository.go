// Package memory is an in-process implementation of domain.Repository for
// local development and tests.
package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"example.com/processmap/internal/domain"
	"example.com/processmap/internal/grid"
)

// ErrDuplicateLocation mirrors the unique (workflow_id, grid_location)
// constraint, checked when a transaction commits.
var ErrDuplicateLocation = errors.New("duplicate grid location in workflow")

type txKey struct{}

type state struct {
	activities map[int64]domain.Activity
	workflows  map[int64]domain.Workflow
	swimlanes  map[int64]domain.Swimlane
	audit      []domain.AuditEntry
	events     []domain.Event
	tshirt     []domain.TshirtSize

	nextActivity int64
	nextWorkflow int64
	nextSwimlane int64
	nextAudit    int64
}

func (s state) clone() state {
	out := s
	out.activities = make(map[int64]domain.Activity, len(s.activities))
	for id, a := range s.activities {
		out.activities[id] = a
	}
	out.workflows = make(map[int64]domain.Workflow, len(s.workflows))
	for id, w := range s.workflows {
		out.workflows[id] = w
	}
	out.swimlanes = make(map[int64]domain.Swimlane, len(s.swimlanes))
	for id, l := range s.swimlanes {
		out.swimlanes[id] = l
	}
	out.audit = slices.Clone(s.audit)
	out.events = slices.Clone(s.events)
	return out
}

// Repository stores everything in maps guarded by one mutex. A transaction
// holds the mutex for its whole duration and restores a snapshot on error.
type Repository struct {
	mu sync.Mutex
	st state
}

// Option configures a Repository.
type Option func(*Repository)

// WithTshirtSizes sets the sizing configuration served by ListTshirtConfig.
func WithTshirtSizes(sizes []domain.TshirtSize) Option {
	return func(r *Repository) {
		r.st.tshirt = slices.Clone(sizes)
	}
}

// NewRepository constructs an empty Repository.
func NewRepository(opts ...Option) *Repository {
	r := &Repository{st: state{
		activities: make(map[int64]domain.Activity),
		workflows:  make(map[int64]domain.Workflow),
		swimlanes:  make(map[int64]domain.Swimlane),
	}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Transaction implements domain.Repository. Nested calls join the outer
// transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.st.clone()
	err := fn(context.WithValue(ctx, txKey{}, true))
	if err == nil {
		err = r.checkUnique()
	}
	if err != nil {
		r.st = snapshot
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// lock acquires the mutex unless ctx already runs inside a transaction.
func (r *Repository) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

// write runs a single mutation. Outside a transaction it is its own atomic
// unit and the uniqueness check applies immediately.
func (r *Repository) write(ctx context.Context, fn func() error) error {
	if inTx(ctx) {
		return fn()
	}
	return r.Transaction(ctx, func(context.Context) error { return fn() })
}

func (r *Repository) checkUnique() error {
	seen := make(map[string]int64, len(r.st.activities))
	for _, a := range r.st.activities {
		key := fmt.Sprintf("%d/%s", a.WorkflowID, a.GridLocation)
		if other, ok := seen[key]; ok {
			return fmt.Errorf("%w: %s held by %d and %d", ErrDuplicateLocation, a.GridLocation, other, a.ID)
		}
		seen[key] = a.ID
	}
	return nil
}

// ListActivities implements domain.ActivityStore, ordered by row then column.
func (r *Repository) ListActivities(ctx context.Context, workflowID int64) ([]domain.Activity, error) {
	defer r.lock(ctx)()

	out := make([]domain.Activity, 0)
	for _, a := range r.st.activities {
		if a.WorkflowID == workflowID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, compareByLocation)
	return out, nil
}

func compareByLocation(a, b domain.Activity) int {
	la, okA := grid.Parse(a.GridLocation)
	lb, okB := grid.Parse(b.GridLocation)
	switch {
	case okA && okB:
		return cmp.Or(cmp.Compare(la.Row, lb.Row), cmp.Compare(la.Column, lb.Column), cmp.Compare(a.ID, b.ID))
	case okA:
		return -1
	case okB:
		return 1
	default:
		return cmp.Or(cmp.Compare(a.GridLocation, b.GridLocation), cmp.Compare(a.ID, b.ID))
	}
}

// GetActivity implements domain.ActivityStore.
func (r *Repository) GetActivity(ctx context.Context, id int64) (*domain.Activity, error) {
	defer r.lock(ctx)()

	a, ok := r.st.activities[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// CreateActivity implements domain.ActivityStore and assigns the ID.
func (r *Repository) CreateActivity(ctx context.Context, activity *domain.Activity) error {
	return r.write(ctx, func() error {
		r.st.nextActivity++
		activity.ID = r.st.nextActivity
		r.st.activities[activity.ID] = *activity
		return nil
	})
}

// UpdateActivity implements domain.ActivityStore.
func (r *Repository) UpdateActivity(ctx context.Context, activity domain.Activity) error {
	return r.write(ctx, func() error {
		if _, ok := r.st.activities[activity.ID]; !ok {
			return domain.ErrActivityNotFound
		}
		r.st.activities[activity.ID] = activity
		return nil
	})
}

// UpdateGridLocationAndLinks implements domain.ActivityStore.
func (r *Repository) UpdateGridLocationAndLinks(ctx context.Context, id int64, location, connections, actor string) error {
	return r.write(ctx, func() error {
		a, ok := r.st.activities[id]
		if !ok {
			return domain.ErrActivityNotFound
		}
		a.GridLocation = location
		a.Connections = connections
		a.ModifiedBy = actor
		r.st.activities[id] = a
		return nil
	})
}

// DeleteActivity implements domain.ActivityStore.
func (r *Repository) DeleteActivity(ctx context.Context, id int64) error {
	return r.write(ctx, func() error {
		if _, ok := r.st.activities[id]; !ok {
			return domain.ErrActivityNotFound
		}
		delete(r.st.activities, id)
		return nil
	})
}
