package memory

import (
	"cmp"
	"context"
	"slices"

	"example.com/processmap/internal/domain"
)

// ListWorkflows implements domain.WorkflowStore, ordered by name.
func (r *Repository) ListWorkflows(ctx context.Context) ([]domain.Workflow, error) {
	defer r.lock(ctx)()

	out := make([]domain.Workflow, 0, len(r.st.workflows))
	for _, w := range r.st.workflows {
		out = append(out, w)
	}
	slices.SortFunc(out, func(a, b domain.Workflow) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// GetWorkflow implements domain.WorkflowStore.
func (r *Repository) GetWorkflow(ctx context.Context, id int64) (*domain.Workflow, error) {
	defer r.lock(ctx)()

	w, ok := r.st.workflows[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

// CreateWorkflow implements domain.WorkflowStore and assigns the ID.
func (r *Repository) CreateWorkflow(ctx context.Context, workflow *domain.Workflow) error {
	return r.write(ctx, func() error {
		r.st.nextWorkflow++
		workflow.ID = r.st.nextWorkflow
		r.st.workflows[workflow.ID] = *workflow
		return nil
	})
}

// UpdateWorkflow implements domain.WorkflowStore.
func (r *Repository) UpdateWorkflow(ctx context.Context, workflow domain.Workflow) error {
	return r.write(ctx, func() error {
		if _, ok := r.st.workflows[workflow.ID]; !ok {
			return domain.ErrWorkflowNotFound
		}
		r.st.workflows[workflow.ID] = workflow
		return nil
	})
}

// DeleteWorkflow implements domain.WorkflowStore. Remaining activities and
// swimlanes go with it, like the Postgres foreign keys.
func (r *Repository) DeleteWorkflow(ctx context.Context, id int64) error {
	return r.write(ctx, func() error {
		if _, ok := r.st.workflows[id]; !ok {
			return domain.ErrWorkflowNotFound
		}
		delete(r.st.workflows, id)
		for aid, a := range r.st.activities {
			if a.WorkflowID == id {
				delete(r.st.activities, aid)
			}
		}
		for lid, l := range r.st.swimlanes {
			if l.WorkflowID == id {
				delete(r.st.swimlanes, lid)
			}
		}
		return nil
	})
}

// ListSwimlanes implements domain.WorkflowStore, ordered by letter.
func (r *Repository) ListSwimlanes(ctx context.Context, workflowID int64) ([]domain.Swimlane, error) {
	defer r.lock(ctx)()

	out := make([]domain.Swimlane, 0)
	for _, l := range r.st.swimlanes {
		if l.WorkflowID == workflowID {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b domain.Swimlane) int {
		return cmp.Compare(a.Letter, b.Letter)
	})
	return out, nil
}

// UpsertSwimlane implements domain.WorkflowStore keyed by workflow and letter.
func (r *Repository) UpsertSwimlane(ctx context.Context, swimlane *domain.Swimlane) error {
	return r.write(ctx, func() error {
		for id, l := range r.st.swimlanes {
			if l.WorkflowID == swimlane.WorkflowID && l.Letter == swimlane.Letter {
				swimlane.ID = id
				r.st.swimlanes[id] = *swimlane
				return nil
			}
		}
		r.st.nextSwimlane++
		swimlane.ID = r.st.nextSwimlane
		r.st.swimlanes[swimlane.ID] = *swimlane
		return nil
	})
}

// DeleteSwimlanes implements domain.WorkflowStore.
func (r *Repository) DeleteSwimlanes(ctx context.Context, workflowID int64) (int, error) {
	removed := 0
	err := r.write(ctx, func() error {
		for id, l := range r.st.swimlanes {
			if l.WorkflowID == workflowID {
				delete(r.st.swimlanes, id)
				removed++
			}
		}
		return nil
	})
	return removed, err
}

// ListTshirtConfig implements domain.WorkflowStore.
func (r *Repository) ListTshirtConfig(ctx context.Context) ([]domain.TshirtSize, error) {
	defer r.lock(ctx)()
	return slices.Clone(r.st.tshirt), nil
}
