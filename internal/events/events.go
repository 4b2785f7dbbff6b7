// Package events defines the payloads published for process-map changes.
package events

import "time"

// Event type names carried in the outbox and the event_type Kafka header.
const (
	TypeActivityCreated = "activity.created"
	TypeActivityUpdated = "activity.updated"
	TypeActivityDeleted = "activity.deleted"
	TypeActivityShifted = "activity.shifted"
	TypeWorkflowDeleted = "workflow.deleted"
)

// ActivityCreated is emitted when an activity is placed on the grid.
type ActivityCreated struct {
	ActivityID   int64     `json:"activity_id"`
	WorkflowID   int64     `json:"workflow_id"`
	Name         string    `json:"activity_name"`
	ActivityType string    `json:"activity_type"`
	GridLocation string    `json:"grid_location"`
	Resolution   string    `json:"resolution,omitempty"`
	Actor        string    `json:"actor"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// ActivityUpdated lists the tracked fields an edit or move changed.
type ActivityUpdated struct {
	ActivityID    int64     `json:"activity_id"`
	WorkflowID    int64     `json:"workflow_id"`
	GridLocation  string    `json:"grid_location"`
	ChangedFields []string  `json:"changed_fields"`
	Actor         string    `json:"actor"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// ActivityDeleted is emitted for explicit deletes, replacements and cascades.
type ActivityDeleted struct {
	ActivityID   int64     `json:"activity_id"`
	WorkflowID   int64     `json:"workflow_id"`
	GridLocation string    `json:"grid_location"`
	Reason       string    `json:"reason"`
	Actor        string    `json:"actor"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Deletion reasons.
const (
	ReasonDeleted         = "deleted"
	ReasonReplaced        = "replaced"
	ReasonWorkflowDeleted = "workflow_deleted"
)

// Relocation is one activity moved by a row shift.
type Relocation struct {
	ActivityID int64  `json:"activity_id"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// ActivityShifted summarises a row shift.
type ActivityShifted struct {
	WorkflowID  int64        `json:"workflow_id"`
	Row         string       `json:"row"`
	FromColumn  int          `json:"from_column"`
	Relocations []Relocation `json:"relocations"`
	Relinked    []int64      `json:"relinked"`
	Actor       string       `json:"actor"`
	OccurredAt  time.Time    `json:"occurred_at"`
}

// WorkflowDeleted is emitted once the workflow and everything it owned is gone.
type WorkflowDeleted struct {
	WorkflowID        int64     `json:"workflow_id"`
	ActivitiesRemoved int       `json:"activities_removed"`
	SwimlanesRemoved  int       `json:"swimlanes_removed"`
	Actor             string    `json:"actor"`
	OccurredAt        time.Time `json:"occurred_at"`
}
