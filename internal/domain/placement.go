package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"example.com/processmap/internal/events"
	"example.com/processmap/internal/grid"
	"example.com/processmap/internal/observability"
)

// Resolution picks how a placement onto an occupied cell proceeds. Exactly
// one resolution applies per call.
type Resolution string

const (
	// ResolutionNone reports the conflict back to the caller.
	ResolutionNone    Resolution = ""
	ResolutionInsert  Resolution = "insert"
	ResolutionReplace Resolution = "replace"
	ResolutionCancel  Resolution = "cancel"
)

// ParseResolution validates a resolution supplied by a caller.
func ParseResolution(raw string) (Resolution, error) {
	switch r := Resolution(strings.ToLower(strings.TrimSpace(raw))); r {
	case ResolutionNone, ResolutionInsert, ResolutionReplace, ResolutionCancel:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidResolution, raw)
	}
}

// PlaceActivityInput captures a placement request.
type PlaceActivityInput struct {
	Activity   Activity
	Resolution Resolution
	Actor      string
}

// PlacementResult describes the outcome of PlaceActivity.
type PlacementResult struct {
	Activity   *Activity
	Resolution Resolution
	Shift      *ShiftOutcome
	Replaced   *Activity
	Cancelled  bool
}

// ShiftRowInput captures a standalone row shift.
type ShiftRowInput struct {
	WorkflowID int64
	Row        string
	FromColumn int
	Actor      string
}

// ShiftOutcome describes a persisted row shift.
type ShiftOutcome struct {
	WorkflowID  int64
	Row         string
	FromColumn  int
	Relocations []grid.Relocation
	Relinked    []int64
}

// Count is the number of relocated activities.
func (o ShiftOutcome) Count() int {
	return len(o.Relocations)
}

// PlaceActivity creates an activity at its grid location. When the cell is
// taken and no resolution is given it returns a *ConflictError; insert
// shifts the row right from that column first, replace deletes the occupant
// and cancel changes nothing.
func (s *Service) PlaceActivity(ctx context.Context, input PlaceActivityInput) (*PlacementResult, error) {
	if _, err := ParseResolution(string(input.Resolution)); err != nil {
		return nil, err
	}
	if input.Resolution == ResolutionCancel {
		observability.RecordPlacement(string(ResolutionCancel))
		return &PlacementResult{Resolution: ResolutionCancel, Cancelled: true}, nil
	}

	activity := input.Activity
	activity.ID = 0
	normalize(&activity)
	if err := validateActivity(activity); err != nil {
		return nil, err
	}
	loc, _ := ParsePlacement(activity.GridLocation)
	actor := actorOrDefault(input.Actor)
	result := &PlacementResult{Resolution: input.Resolution}

	err := s.mutateWorkflow(ctx, activity.WorkflowID, func(ctx context.Context) error {
		if _, err := s.requireWorkflow(ctx, activity.WorkflowID); err != nil {
			return err
		}
		existing, err := s.repo.ListActivities(ctx, activity.WorkflowID)
		if err != nil {
			return err
		}

		now := s.timestamp()
		if occupant := occupantAt(existing, activity.GridLocation, 0); occupant != nil {
			switch input.Resolution {
			case ResolutionInsert:
				outcome, err := s.shift(ctx, activity.WorkflowID, existing, loc.Row, loc.Column, actor, now)
				if err != nil {
					return err
				}
				result.Shift = outcome
			case ResolutionReplace:
				if err := s.removeActivity(ctx, *occupant, actor, events.ReasonReplaced, now); err != nil {
					return err
				}
				replaced := *occupant
				result.Replaced = &replaced
			default:
				observability.RecordConflict()
				return &ConflictError{Location: activity.GridLocation, Occupant: *occupant}
			}
		}

		if err := s.createActivity(ctx, &activity, input.Resolution, actor, now); err != nil {
			return err
		}
		result.Activity = &activity
		return nil
	})
	if err != nil {
		return nil, err
	}

	label := string(input.Resolution)
	if result.Shift == nil && result.Replaced == nil {
		label = "direct"
	}
	observability.RecordPlacement(label)
	s.logger.Info().
		Int64("workflow_id", activity.WorkflowID).
		Int64("activity_id", activity.ID).
		Str("grid_location", activity.GridLocation).
		Str("resolution", label).
		Str("actor", actor).
		Msg("activity placed")
	return result, nil
}

// ShiftRow moves every activity in row at or after fromColumn one column to
// the right and repoints links that targeted the moved cells.
func (s *Service) ShiftRow(ctx context.Context, input ShiftRowInput) (*ShiftOutcome, error) {
	row := strings.ToUpper(strings.TrimSpace(input.Row))
	if !ValidRow(row) || input.FromColumn < 1 {
		return nil, invalidLocation(grid.Format(row, input.FromColumn))
	}
	actor := actorOrDefault(input.Actor)

	var outcome *ShiftOutcome
	err := s.mutateWorkflow(ctx, input.WorkflowID, func(ctx context.Context) error {
		if _, err := s.requireWorkflow(ctx, input.WorkflowID); err != nil {
			return err
		}
		activities, err := s.repo.ListActivities(ctx, input.WorkflowID)
		if err != nil {
			return err
		}
		outcome, err = s.shift(ctx, input.WorkflowID, activities, row, input.FromColumn, actor, s.timestamp())
		return err
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// shift applies grid.Shift to the workflow and persists every relocation and
// rewritten link. It must run inside mutateWorkflow.
func (s *Service) shift(ctx context.Context, workflowID int64, activities []Activity, row string, fromColumn int, actor string, now time.Time) (*ShiftOutcome, error) {
	cells := make([]grid.Cell, len(activities))
	index := make(map[int64]int, len(activities))
	for i, activity := range activities {
		links, err := activity.Links()
		if err != nil {
			observability.RecordMalformedLinks()
			s.logger.Warn().
				Err(err).
				Int64("workflow_id", workflowID).
				Int64("activity_id", activity.ID).
				Msg("malformed connections treated as empty during shift")
			links = nil
		}
		cells[i] = grid.Cell{ID: activity.ID, Location: activity.GridLocation, Links: links}
		index[activity.ID] = i
	}

	result := grid.Shift(cells, row, fromColumn)
	outcome := &ShiftOutcome{
		WorkflowID:  workflowID,
		Row:         row,
		FromColumn:  fromColumn,
		Relocations: result.Relocations,
		Relinked:    result.Relinked,
	}
	if result.Count() == 0 {
		return outcome, nil
	}

	connections := make(map[int64]string, len(result.Relinked))
	for _, id := range result.Relinked {
		encoded, err := grid.EncodeLinks(cells[index[id]].Links)
		if err != nil {
			return nil, fmt.Errorf("encode links for activity %d: %w", id, err)
		}
		connections[id] = encoded
	}
	connectionsFor := func(id int64) string {
		if encoded, ok := connections[id]; ok {
			return encoded
		}
		return activities[index[id]].Connections
	}

	// Relocations arrive highest column first so no write lands on an
	// occupied cell.
	for _, rel := range result.Relocations {
		if err := s.repo.UpdateGridLocationAndLinks(ctx, rel.ActivityID, rel.To, connectionsFor(rel.ActivityID), actor); err != nil {
			return nil, fmt.Errorf("relocate activity %d to %s: %w", rel.ActivityID, rel.To, err)
		}
		if err := s.repo.AppendAuditEntry(ctx, auditEntry(rel.ActivityID, AuditShift, "grid_location", rel.From, rel.To, actor, now)); err != nil {
			return nil, err
		}
	}

	for _, id := range result.Relinked {
		before := activities[index[id]]
		if !result.Moved(id) {
			if err := s.repo.UpdateGridLocationAndLinks(ctx, id, before.GridLocation, connections[id], actor); err != nil {
				return nil, fmt.Errorf("relink activity %d: %w", id, err)
			}
		}
		if err := s.repo.AppendAuditEntry(ctx, auditEntry(id, AuditShift, "connections", before.Connections, connections[id], actor, now)); err != nil {
			return nil, err
		}
	}

	payload := events.ActivityShifted{
		WorkflowID: workflowID,
		Row:        row,
		FromColumn: fromColumn,
		Relinked:   result.Relinked,
		Actor:      actor,
		OccurredAt: now,
	}
	for _, rel := range result.Relocations {
		payload.Relocations = append(payload.Relocations, events.Relocation{ActivityID: rel.ActivityID, From: rel.From, To: rel.To})
	}
	if err := s.record(ctx, events.TypeActivityShifted, workflowID, workflowID, payload, now); err != nil {
		return nil, err
	}

	observability.RecordShift(result.Count())
	s.logger.Info().
		Int64("workflow_id", workflowID).
		Str("row", row).
		Int("from_column", fromColumn).
		Int("relocated", result.Count()).
		Int("relinked", len(result.Relinked)).
		Msg("row shifted")
	return outcome, nil
}

func (s *Service) createActivity(ctx context.Context, activity *Activity, resolution Resolution, actor string, now time.Time) error {
	if err := s.fillMidpoints(ctx, activity); err != nil {
		return err
	}
	activity.CreatedAt = now
	activity.CreatedBy = actor
	activity.ModifiedAt = nil
	activity.ModifiedBy = ""

	if err := s.repo.CreateActivity(ctx, activity); err != nil {
		return fmt.Errorf("create activity at %s: %w", activity.GridLocation, err)
	}
	if err := s.repo.AppendAuditEntry(ctx, auditEntry(activity.ID, AuditCreate, "", "", activity.GridLocation, actor, now)); err != nil {
		return err
	}
	return s.record(ctx, events.TypeActivityCreated, activity.WorkflowID, activity.ID, events.ActivityCreated{
		ActivityID:   activity.ID,
		WorkflowID:   activity.WorkflowID,
		Name:         activity.Name,
		ActivityType: string(activity.Type),
		GridLocation: activity.GridLocation,
		Resolution:   string(resolution),
		Actor:        actor,
		OccurredAt:   now,
	}, now)
}

func (s *Service) removeActivity(ctx context.Context, activity Activity, actor, reason string, now time.Time) error {
	if err := s.repo.AppendAuditEntry(ctx, auditEntry(activity.ID, AuditDelete, "", activity.GridLocation, "", actor, now)); err != nil {
		return err
	}
	if err := s.repo.DeleteActivity(ctx, activity.ID); err != nil {
		return fmt.Errorf("delete activity %d: %w", activity.ID, err)
	}
	return s.record(ctx, events.TypeActivityDeleted, activity.WorkflowID, activity.ID, events.ActivityDeleted{
		ActivityID:   activity.ID,
		WorkflowID:   activity.WorkflowID,
		GridLocation: activity.GridLocation,
		Reason:       reason,
		Actor:        actor,
		OccurredAt:   now,
	}, now)
}

// UpdateActivity replaces an activity's editable fields and audits every
// tracked field that changed. Moving onto an occupied cell is rejected.
func (s *Service) UpdateActivity(ctx context.Context, id int64, changes Activity, actor string) (*Activity, error) {
	current, err := s.requireActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	normalize(&changes)
	if err := validateActivity(changes); err != nil {
		return nil, err
	}
	actor = actorOrDefault(actor)

	var updated Activity
	err = s.mutateWorkflow(ctx, current.WorkflowID, func(ctx context.Context) error {
		before, err := s.requireActivity(ctx, id)
		if err != nil {
			return err
		}
		if changes.GridLocation != before.GridLocation {
			if err := s.ensureVacant(ctx, before.WorkflowID, changes.GridLocation, id); err != nil {
				return err
			}
		}

		now := s.timestamp()
		updated = changes
		updated.ID = before.ID
		updated.WorkflowID = before.WorkflowID
		updated.CreatedAt = before.CreatedAt
		updated.CreatedBy = before.CreatedBy
		updated.ModifiedAt = &now
		updated.ModifiedBy = actor
		if err := s.fillMidpoints(ctx, &updated); err != nil {
			return err
		}

		if err := s.repo.UpdateActivity(ctx, updated); err != nil {
			return fmt.Errorf("update activity %d: %w", id, err)
		}

		changed := trackedChanges(*before, updated)
		if len(changed) == 0 {
			return nil
		}
		fields := make([]string, 0, len(changed))
		for _, c := range changed {
			if err := s.repo.AppendAuditEntry(ctx, auditEntry(id, AuditUpdate, c.field, c.old, c.new, actor, now)); err != nil {
				return err
			}
			fields = append(fields, c.field)
		}
		return s.record(ctx, events.TypeActivityUpdated, updated.WorkflowID, id, events.ActivityUpdated{
			ActivityID:    id,
			WorkflowID:    updated.WorkflowID,
			GridLocation:  updated.GridLocation,
			ChangedFields: fields,
			Actor:         actor,
			OccurredAt:    now,
		}, now)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// MoveActivity changes only an activity's grid location.
func (s *Service) MoveActivity(ctx context.Context, id int64, location, actor string) (*Activity, error) {
	location = NormalizeLocation(location)
	if _, err := ParsePlacement(location); err != nil {
		return nil, err
	}
	current, err := s.requireActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	actor = actorOrDefault(actor)

	var moved Activity
	err = s.mutateWorkflow(ctx, current.WorkflowID, func(ctx context.Context) error {
		before, err := s.requireActivity(ctx, id)
		if err != nil {
			return err
		}
		moved = *before
		if before.GridLocation == location {
			return nil
		}
		if err := s.ensureVacant(ctx, before.WorkflowID, location, id); err != nil {
			return err
		}

		now := s.timestamp()
		if err := s.repo.UpdateGridLocationAndLinks(ctx, id, location, before.Connections, actor); err != nil {
			return fmt.Errorf("move activity %d to %s: %w", id, location, err)
		}
		moved.GridLocation = location
		moved.ModifiedAt = &now
		moved.ModifiedBy = actor

		if err := s.repo.AppendAuditEntry(ctx, auditEntry(id, AuditUpdatePosition, "grid_location", before.GridLocation, location, actor, now)); err != nil {
			return err
		}
		return s.record(ctx, events.TypeActivityUpdated, before.WorkflowID, id, events.ActivityUpdated{
			ActivityID:    id,
			WorkflowID:    before.WorkflowID,
			GridLocation:  location,
			ChangedFields: []string{"grid_location"},
			Actor:         actor,
			OccurredAt:    now,
		}, now)
	})
	if err != nil {
		return nil, err
	}
	return &moved, nil
}

// DeleteActivity audits and removes an activity.
func (s *Service) DeleteActivity(ctx context.Context, id int64, actor string) error {
	current, err := s.requireActivity(ctx, id)
	if err != nil {
		return err
	}
	actor = actorOrDefault(actor)

	return s.mutateWorkflow(ctx, current.WorkflowID, func(ctx context.Context) error {
		activity, err := s.requireActivity(ctx, id)
		if err != nil {
			return err
		}
		return s.removeActivity(ctx, *activity, actor, events.ReasonDeleted, s.timestamp())
	})
}

func (s *Service) ensureVacant(ctx context.Context, workflowID int64, location string, self int64) error {
	activities, err := s.repo.ListActivities(ctx, workflowID)
	if err != nil {
		return err
	}
	if occupant := occupantAt(activities, location, self); occupant != nil {
		observability.RecordConflict()
		return &ConflictError{Location: location, Occupant: *occupant}
	}
	return nil
}

func occupantAt(activities []Activity, location string, ignore int64) *Activity {
	for i := range activities {
		if activities[i].GridLocation == location && activities[i].ID != ignore {
			return &activities[i]
		}
	}
	return nil
}
