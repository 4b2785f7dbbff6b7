package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"example.com/processmap/internal/domain"
)

// ListWorkflows implements domain.WorkflowStore, ordered by name.
func (r *Repository) ListWorkflows(ctx context.Context) ([]domain.Workflow, error) {
	rows, err := r.db(ctx).Query(ctx, `SELECT id, workflow_name, COALESCE(description, ''), created_at
        FROM workflows ORDER BY workflow_name, id`)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	results := make([]domain.Workflow, 0)
	for rows.Next() {
		var w domain.Workflow
		if err := rows.Scan(&w.ID, &w.Name, &w.Description, &w.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, w)
	}
	return results, rows.Err()
}

// GetWorkflow implements domain.WorkflowStore.
func (r *Repository) GetWorkflow(ctx context.Context, id int64) (*domain.Workflow, error) {
	var w domain.Workflow
	err := r.db(ctx).QueryRow(ctx, `SELECT id, workflow_name, COALESCE(description, ''), created_at
        FROM workflows WHERE id=$1`, id).Scan(&w.ID, &w.Name, &w.Description, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get workflow %d: %w", id, err)
	}
	return &w, nil
}

// CreateWorkflow implements domain.WorkflowStore and assigns the ID.
func (r *Repository) CreateWorkflow(ctx context.Context, workflow *domain.Workflow) error {
	err := r.db(ctx).QueryRow(ctx, `INSERT INTO workflows (workflow_name, description, created_at)
        VALUES ($1,$2,$3) RETURNING id`,
		workflow.Name, nullIfEmpty(workflow.Description), workflow.CreatedAt).Scan(&workflow.ID)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

// UpdateWorkflow implements domain.WorkflowStore.
func (r *Repository) UpdateWorkflow(ctx context.Context, workflow domain.Workflow) error {
	tag, err := r.db(ctx).Exec(ctx, `UPDATE workflows SET workflow_name=$2, description=$3 WHERE id=$1`,
		workflow.ID, workflow.Name, nullIfEmpty(workflow.Description))
	if err != nil {
		return fmt.Errorf("update workflow %d: %w", workflow.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWorkflowNotFound
	}
	return nil
}

// DeleteWorkflow implements domain.WorkflowStore. Foreign keys cascade to any
// remaining activities and swimlanes.
func (r *Repository) DeleteWorkflow(ctx context.Context, id int64) error {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM workflows WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete workflow %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWorkflowNotFound
	}
	return nil
}

// ListSwimlanes implements domain.WorkflowStore, ordered by letter.
func (r *Repository) ListSwimlanes(ctx context.Context, workflowID int64) ([]domain.Swimlane, error) {
	rows, err := r.db(ctx).Query(ctx, `SELECT id, workflow_id, swimlane_letter, swimlane_name, display_order
        FROM swimlane_config WHERE workflow_id=$1 ORDER BY swimlane_letter`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list swimlanes: %w", err)
	}
	defer rows.Close()

	results := make([]domain.Swimlane, 0)
	for rows.Next() {
		var l domain.Swimlane
		if err := rows.Scan(&l.ID, &l.WorkflowID, &l.Letter, &l.Name, &l.DisplayOrder); err != nil {
			return nil, err
		}
		results = append(results, l)
	}
	return results, rows.Err()
}

// UpsertSwimlane implements domain.WorkflowStore keyed by workflow and letter.
func (r *Repository) UpsertSwimlane(ctx context.Context, swimlane *domain.Swimlane) error {
	const stmt = `INSERT INTO swimlane_config (workflow_id, swimlane_letter, swimlane_name, display_order)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (workflow_id, swimlane_letter)
        DO UPDATE SET swimlane_name=EXCLUDED.swimlane_name, display_order=EXCLUDED.display_order
        RETURNING id`

	err := r.db(ctx).QueryRow(ctx, stmt, swimlane.WorkflowID, swimlane.Letter, swimlane.Name, swimlane.DisplayOrder).Scan(&swimlane.ID)
	if err != nil {
		return fmt.Errorf("upsert swimlane %s: %w", swimlane.Letter, err)
	}
	return nil
}

// DeleteSwimlanes implements domain.WorkflowStore.
func (r *Repository) DeleteSwimlanes(ctx context.Context, workflowID int64) (int, error) {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM swimlane_config WHERE workflow_id=$1`, workflowID)
	if err != nil {
		return 0, fmt.Errorf("delete swimlanes: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListTshirtConfig implements domain.WorkflowStore with the global rows.
func (r *Repository) ListTshirtConfig(ctx context.Context) ([]domain.TshirtSize, error) {
	rows, err := r.db(ctx).Query(ctx, `SELECT category, size, label, min_value, max_value, midpoint, unit
        FROM tshirt_config WHERE engagement_id IS NULL ORDER BY category, min_value`)
	if err != nil {
		return nil, fmt.Errorf("list tshirt config: %w", err)
	}
	defer rows.Close()

	results := make([]domain.TshirtSize, 0)
	for rows.Next() {
		var t domain.TshirtSize
		if err := rows.Scan(&t.Category, &t.Size, &t.Label, &t.MinValue, &t.MaxValue, &t.Midpoint, &t.Unit); err != nil {
			return nil, err
		}
		results = append(results, t)
	}
	return results, rows.Err()
}
