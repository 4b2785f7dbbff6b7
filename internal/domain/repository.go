package domain

import (
	"context"
	"time"
)

// Event is a domain event recorded alongside the mutation that caused it.
type Event struct {
	Type        string
	WorkflowID  int64
	AggregateID int64
	Payload     any
	OccurredAt  time.Time
}

// ActivityStore persists activities. Lookups return nil, nil when the row
// does not exist.
type ActivityStore interface {
	ListActivities(ctx context.Context, workflowID int64) ([]Activity, error)
	GetActivity(ctx context.Context, id int64) (*Activity, error)
	CreateActivity(ctx context.Context, activity *Activity) error
	UpdateActivity(ctx context.Context, activity Activity) error
	UpdateGridLocationAndLinks(ctx context.Context, id int64, location, connections, actor string) error
	DeleteActivity(ctx context.Context, id int64) error
}

// AuditLog is the append-only activity history plus the event sink.
type AuditLog interface {
	AppendAuditEntry(ctx context.Context, entry AuditEntry) error
	ListAuditEntries(ctx context.Context, activityID int64, cursor *AuditCursor, limit int) ([]AuditEntry, *AuditCursor, error)
	RecordEvent(ctx context.Context, event Event) error
}

// WorkflowStore persists workflows, swimlanes and the sizing configuration.
type WorkflowStore interface {
	ListWorkflows(ctx context.Context) ([]Workflow, error)
	GetWorkflow(ctx context.Context, id int64) (*Workflow, error)
	CreateWorkflow(ctx context.Context, workflow *Workflow) error
	UpdateWorkflow(ctx context.Context, workflow Workflow) error
	DeleteWorkflow(ctx context.Context, id int64) error

	ListSwimlanes(ctx context.Context, workflowID int64) ([]Swimlane, error)
	UpsertSwimlane(ctx context.Context, swimlane *Swimlane) error
	DeleteSwimlanes(ctx context.Context, workflowID int64) (int, error)

	ListTshirtConfig(ctx context.Context) ([]TshirtSize, error)
}

// Repository is the full persistence contract. Calls made with the context
// passed to fn by Transaction share one atomic unit of work.
type Repository interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	ActivityStore
	AuditLog
	WorkflowStore
}

// WorkflowLocker serialises mutations of one workflow. It must fail fast
// rather than wait when the key is held elsewhere.
type WorkflowLocker interface {
	NonBlockingSynchronized(ctx context.Context, key string, ttl time.Duration, f func(context.Context) error) error
}
