package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"example.com/processmap/internal/domain"
)

const activityColumns = `id, workflow_id, activity_name, activity_type, COALESCE(description, ''), grid_location,
        COALESCE(connections, ''), status,
        COALESCE(task_time_size, ''), task_time_midpoint, task_time_custom,
        COALESCE(labor_rate_size, ''), labor_rate_midpoint, labor_rate_custom,
        COALESCE(volume_size, ''), volume_midpoint, volume_custom,
        target_cycle_time_hours, actual_cycle_time_hours,
        disposition_complete_pct, disposition_forwarded_pct, disposition_pended_pct,
        COALESCE(transformation_plan, ''), phase, cost_to_change, projected_annual_savings,
        COALESCE(comments, ''), COALESCE(data_confidence, ''), COALESCE(data_source, ''),
        COALESCE(engagement_id, ''), COALESCE(swimlane, ''), COALESCE(process_steps, ''),
        COALESCE(systems_touched, ''), COALESCE(constraints_rules, ''), COALESCE(opportunities, ''),
        COALESCE(next_steps, ''), COALESCE(attachments, ''),
        created_at, COALESCE(created_by, ''), modified_at, COALESCE(modified_by, '')`

func scanActivity(row pgx.Row) (domain.Activity, error) {
	var (
		a                                 domain.Activity
		activityType, status, plan, grade string
	)
	err := row.Scan(
		&a.ID, &a.WorkflowID, &a.Name, &activityType, &a.Description, &a.GridLocation,
		&a.Connections, &status,
		&a.TaskTime.Size, &a.TaskTime.Midpoint, &a.TaskTime.Custom,
		&a.LaborRate.Size, &a.LaborRate.Midpoint, &a.LaborRate.Custom,
		&a.Volume.Size, &a.Volume.Midpoint, &a.Volume.Custom,
		&a.TargetCycleTimeHours, &a.ActualCycleTimeHours,
		&a.DispositionCompletePct, &a.DispositionForwardedPct, &a.DispositionPendedPct,
		&plan, &a.Phase, &a.CostToChange, &a.ProjectedAnnualSavings,
		&a.Comments, &grade, &a.DataSource,
		&a.EngagementID, &a.Swimlane, &a.ProcessSteps,
		&a.SystemsTouched, &a.ConstraintsRules, &a.Opportunities,
		&a.NextSteps, &a.Attachments,
		&a.CreatedAt, &a.CreatedBy, &a.ModifiedAt, &a.ModifiedBy,
	)
	if err != nil {
		return domain.Activity{}, err
	}
	a.Type = domain.ActivityType(activityType)
	a.Status = domain.ActivityStatus(status)
	a.TransformationPlan = domain.TransformationPlan(plan)
	a.DataConfidence = domain.DataConfidence(grade)
	return a, nil
}

// writableArgs are the values of every column an update may change, in the
// order of the placeholders starting at $2.
func writableArgs(a domain.Activity) []any {
	return []any{
		a.Name,
		string(a.Type),
		nullIfEmpty(a.Description),
		a.GridLocation,
		nullIfEmpty(a.Connections),
		string(a.Status),
		nullIfEmpty(a.TaskTime.Size), a.TaskTime.Midpoint, a.TaskTime.Custom,
		nullIfEmpty(a.LaborRate.Size), a.LaborRate.Midpoint, a.LaborRate.Custom,
		nullIfEmpty(a.Volume.Size), a.Volume.Midpoint, a.Volume.Custom,
		a.TargetCycleTimeHours, a.ActualCycleTimeHours,
		a.DispositionCompletePct, a.DispositionForwardedPct, a.DispositionPendedPct,
		nullIfEmpty(string(a.TransformationPlan)), a.Phase, a.CostToChange, a.ProjectedAnnualSavings,
		nullIfEmpty(a.Comments), nullIfEmpty(string(a.DataConfidence)), nullIfEmpty(a.DataSource),
		nullIfEmpty(a.EngagementID), nullIfEmpty(a.Swimlane), nullIfEmpty(a.ProcessSteps),
		nullIfEmpty(a.SystemsTouched), nullIfEmpty(a.ConstraintsRules), nullIfEmpty(a.Opportunities),
		nullIfEmpty(a.NextSteps), nullIfEmpty(a.Attachments),
	}
}

// ListActivities implements domain.ActivityStore, ordered by row then column.
func (r *Repository) ListActivities(ctx context.Context, workflowID int64) ([]domain.Activity, error) {
	query := `SELECT ` + activityColumns + `
        FROM activities WHERE workflow_id=$1
        ORDER BY substring(grid_location from '^[A-Z]+'), NULLIF(substring(grid_location from '[0-9]+$'), '')::int, id`

	rows, err := r.db(ctx).Query(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	results := make([]domain.Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

// GetActivity implements domain.ActivityStore.
func (r *Repository) GetActivity(ctx context.Context, id int64) (*domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE id=$1`

	a, err := scanActivity(r.db(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get activity %d: %w", id, err)
	}
	return &a, nil
}

// CreateActivity implements domain.ActivityStore and assigns the ID.
func (r *Repository) CreateActivity(ctx context.Context, activity *domain.Activity) error {
	const stmt = `INSERT INTO activities (workflow_id, activity_name, activity_type, description, grid_location,
        connections, status,
        task_time_size, task_time_midpoint, task_time_custom,
        labor_rate_size, labor_rate_midpoint, labor_rate_custom,
        volume_size, volume_midpoint, volume_custom,
        target_cycle_time_hours, actual_cycle_time_hours,
        disposition_complete_pct, disposition_forwarded_pct, disposition_pended_pct,
        transformation_plan, phase, cost_to_change, projected_annual_savings,
        comments, data_confidence, data_source,
        engagement_id, swimlane, process_steps,
        systems_touched, constraints_rules, opportunities,
        next_steps, attachments,
        created_at, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
                $21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34,$35,$36,$37,$38)
        RETURNING id`

	args := append([]any{activity.WorkflowID}, writableArgs(*activity)...)
	args = append(args, activity.CreatedAt, nullIfEmpty(activity.CreatedBy))

	if err := r.db(ctx).QueryRow(ctx, stmt, args...).Scan(&activity.ID); err != nil {
		return translate(fmt.Errorf("insert activity at %s: %w", activity.GridLocation, err))
	}
	return nil
}

// UpdateActivity implements domain.ActivityStore.
func (r *Repository) UpdateActivity(ctx context.Context, activity domain.Activity) error {
	const stmt = `UPDATE activities SET
        activity_name=$2, activity_type=$3, description=$4, grid_location=$5,
        connections=$6, status=$7,
        task_time_size=$8, task_time_midpoint=$9, task_time_custom=$10,
        labor_rate_size=$11, labor_rate_midpoint=$12, labor_rate_custom=$13,
        volume_size=$14, volume_midpoint=$15, volume_custom=$16,
        target_cycle_time_hours=$17, actual_cycle_time_hours=$18,
        disposition_complete_pct=$19, disposition_forwarded_pct=$20, disposition_pended_pct=$21,
        transformation_plan=$22, phase=$23, cost_to_change=$24, projected_annual_savings=$25,
        comments=$26, data_confidence=$27, data_source=$28,
        engagement_id=$29, swimlane=$30, process_steps=$31,
        systems_touched=$32, constraints_rules=$33, opportunities=$34,
        next_steps=$35, attachments=$36,
        modified_at=COALESCE($37, NOW()), modified_by=$38
        WHERE id=$1`

	args := append([]any{activity.ID}, writableArgs(activity)...)
	args = append(args, activity.ModifiedAt, nullIfEmpty(activity.ModifiedBy))

	tag, err := r.db(ctx).Exec(ctx, stmt, args...)
	if err != nil {
		return translate(fmt.Errorf("update activity %d: %w", activity.ID, err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrActivityNotFound
	}
	return nil
}

// UpdateGridLocationAndLinks implements domain.ActivityStore.
func (r *Repository) UpdateGridLocationAndLinks(ctx context.Context, id int64, location, connections, actor string) error {
	const stmt = `UPDATE activities SET grid_location=$2, connections=$3, modified_at=NOW(), modified_by=$4 WHERE id=$1`

	tag, err := r.db(ctx).Exec(ctx, stmt, id, location, nullIfEmpty(connections), nullIfEmpty(actor))
	if err != nil {
		return translate(fmt.Errorf("relocate activity %d to %s: %w", id, location, err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrActivityNotFound
	}
	return nil
}

// DeleteActivity implements domain.ActivityStore.
func (r *Repository) DeleteActivity(ctx context.Context, id int64) error {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM activities WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete activity %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrActivityNotFound
	}
	return nil
}
