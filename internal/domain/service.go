package domain

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"example.com/processmap/internal/events"
	"example.com/processmap/internal/lock"
	"example.com/processmap/internal/observability"
)

// DefaultActor attributes changes when the caller supplies no identity.
const DefaultActor = "app_user"

const (
	defaultLockTTL    = 30 * time.Second
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// Service orchestrates process-map workflows.
type Service struct {
	repo    Repository
	locker  WorkflowLocker
	lockTTL time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithLocker replaces the in-process workflow lock, e.g. with a Redis lock
// shared by several API replicas.
func WithLocker(locker WorkflowLocker) Option {
	return func(s *Service) {
		if locker != nil {
			s.locker = locker
		}
	}
}

// WithLockTTL bounds how long a workflow lock may be held.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a Service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		locker:  lock.NewLocal(),
		lockTTL: defaultLockTTL,
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

func actorOrDefault(actor string) string {
	if strings.TrimSpace(actor) == "" {
		return DefaultActor
	}
	return actor
}

func workflowLockKey(workflowID int64) string {
	return fmt.Sprintf("workflow:%d", workflowID)
}

// mutateWorkflow runs fn under the workflow lock inside one transaction.
func (s *Service) mutateWorkflow(ctx context.Context, workflowID int64, fn func(ctx context.Context) error) error {
	err := s.locker.NonBlockingSynchronized(ctx, workflowLockKey(workflowID), s.lockTTL, func(ctx context.Context) error {
		return s.repo.Transaction(ctx, fn)
	})
	if errors.Is(err, lock.ErrLockFailed) {
		return fmt.Errorf("%w: workflow %d", ErrWorkflowBusy, workflowID)
	}
	if err == nil {
		observability.RecordMutation(s.timestamp())
	}
	return err
}

func (s *Service) requireWorkflow(ctx context.Context, id int64) (*Workflow, error) {
	workflow, err := s.repo.GetWorkflow(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load workflow %d: %w", id, err)
	}
	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}
	return workflow, nil
}

func (s *Service) requireActivity(ctx context.Context, id int64) (*Activity, error) {
	activity, err := s.repo.GetActivity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load activity %d: %w", id, err)
	}
	if activity == nil {
		return nil, ErrActivityNotFound
	}
	return activity, nil
}

func (s *Service) record(ctx context.Context, eventType string, workflowID, aggregateID int64, payload any, at time.Time) error {
	if err := s.repo.RecordEvent(ctx, Event{
		Type:        eventType,
		WorkflowID:  workflowID,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  at,
	}); err != nil {
		return fmt.Errorf("record %s: %w", eventType, err)
	}
	return nil
}

// GetActivity fetches by ID.
func (s *Service) GetActivity(ctx context.Context, id int64) (*Activity, error) {
	return s.requireActivity(ctx, id)
}

// ListActivities returns a workflow's activities ordered by grid location,
// narrowed by filter.
func (s *Service) ListActivities(ctx context.Context, workflowID int64, filter ActivityFilter) ([]Activity, error) {
	if _, err := s.requireWorkflow(ctx, workflowID); err != nil {
		return nil, err
	}
	activities, err := s.repo.ListActivities(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(activities, func(a Activity) bool { return !filter.matches(a) }), nil
}

// AuditTrail pages an activity's history newest first. The history remains
// readable after the activity is deleted.
func (s *Service) AuditTrail(ctx context.Context, activityID int64, cursor *AuditCursor, limit int) ([]AuditEntry, *AuditCursor, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	return s.repo.ListAuditEntries(ctx, activityID, cursor, limit)
}

// ListWorkflows returns every workflow ordered by name.
func (s *Service) ListWorkflows(ctx context.Context) ([]Workflow, error) {
	return s.repo.ListWorkflows(ctx)
}

// GetWorkflowMap loads a workflow with its activities and swimlanes.
func (s *Service) GetWorkflowMap(ctx context.Context, id int64) (*WorkflowMap, error) {
	workflow, err := s.requireWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	activities, err := s.repo.ListActivities(ctx, id)
	if err != nil {
		return nil, err
	}
	swimlanes, err := s.repo.ListSwimlanes(ctx, id)
	if err != nil {
		return nil, err
	}
	return &WorkflowMap{Workflow: *workflow, Activities: activities, Swimlanes: swimlanes}, nil
}

// CreateWorkflow stores a new workflow.
func (s *Service) CreateWorkflow(ctx context.Context, name, description string) (*Workflow, error) {
	workflow := Workflow{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		CreatedAt:   s.timestamp(),
	}
	if workflow.Name == "" {
		return nil, invalidField("name", "is required")
	}
	if err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		return s.repo.CreateWorkflow(ctx, &workflow)
	}); err != nil {
		return nil, err
	}
	return &workflow, nil
}

// UpdateWorkflow renames a workflow and replaces its description.
func (s *Service) UpdateWorkflow(ctx context.Context, id int64, name, description string) (*Workflow, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidField("name", "is required")
	}

	var updated Workflow
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		workflow, err := s.requireWorkflow(ctx, id)
		if err != nil {
			return err
		}
		updated = *workflow
		updated.Name = name
		updated.Description = strings.TrimSpace(description)
		return s.repo.UpdateWorkflow(ctx, updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// WorkflowDeletion reports what a cascading workflow delete removed.
type WorkflowDeletion struct {
	WorkflowID        int64
	ActivitiesRemoved int
	SwimlanesRemoved  int
}

// DeleteWorkflow removes a workflow together with its activities and
// swimlanes. Every removed activity gets a DELETE audit entry.
func (s *Service) DeleteWorkflow(ctx context.Context, id int64, actor string) (*WorkflowDeletion, error) {
	actor = actorOrDefault(actor)
	result := WorkflowDeletion{WorkflowID: id}

	err := s.mutateWorkflow(ctx, id, func(ctx context.Context) error {
		if _, err := s.requireWorkflow(ctx, id); err != nil {
			return err
		}
		activities, err := s.repo.ListActivities(ctx, id)
		if err != nil {
			return err
		}

		now := s.timestamp()
		for _, activity := range activities {
			if err := s.removeActivity(ctx, activity, actor, events.ReasonWorkflowDeleted, now); err != nil {
				return err
			}
		}
		result.ActivitiesRemoved = len(activities)

		if result.SwimlanesRemoved, err = s.repo.DeleteSwimlanes(ctx, id); err != nil {
			return fmt.Errorf("delete swimlanes: %w", err)
		}
		if err := s.repo.DeleteWorkflow(ctx, id); err != nil {
			return fmt.Errorf("delete workflow %d: %w", id, err)
		}

		return s.record(ctx, events.TypeWorkflowDeleted, id, id, events.WorkflowDeleted{
			WorkflowID:        id,
			ActivitiesRemoved: result.ActivitiesRemoved,
			SwimlanesRemoved:  result.SwimlanesRemoved,
			Actor:             actor,
			OccurredAt:        now,
		}, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("workflow_id", id).
		Int("activities_removed", result.ActivitiesRemoved).
		Int("swimlanes_removed", result.SwimlanesRemoved).
		Str("actor", actor).
		Msg("workflow deleted")
	return &result, nil
}

// ListSwimlanes returns a workflow's swimlanes ordered by letter.
func (s *Service) ListSwimlanes(ctx context.Context, workflowID int64) ([]Swimlane, error) {
	if _, err := s.requireWorkflow(ctx, workflowID); err != nil {
		return nil, err
	}
	return s.repo.ListSwimlanes(ctx, workflowID)
}

// SaveSwimlane creates or renames the swimlane for a row letter. Without an
// explicit display order the row's position in the alphabet is used.
func (s *Service) SaveSwimlane(ctx context.Context, swimlane Swimlane) (*Swimlane, error) {
	swimlane.Letter = strings.ToUpper(strings.TrimSpace(swimlane.Letter))
	swimlane.Name = strings.TrimSpace(swimlane.Name)
	if !ValidRow(swimlane.Letter) {
		return nil, invalidField("letter", "must be a single row letter A-J")
	}
	if swimlane.DisplayOrder <= 0 {
		swimlane.DisplayOrder = int(swimlane.Letter[0] - 'A')
	}

	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.requireWorkflow(ctx, swimlane.WorkflowID); err != nil {
			return err
		}
		return s.repo.UpsertSwimlane(ctx, &swimlane)
	})
	if err != nil {
		return nil, err
	}
	return &swimlane, nil
}

// TshirtConfig returns the global sizing configuration grouped by category.
func (s *Service) TshirtConfig(ctx context.Context) (TshirtConfig, error) {
	sizes, err := s.repo.ListTshirtConfig(ctx)
	if err != nil {
		return nil, err
	}
	config := make(TshirtConfig)
	for _, size := range sizes {
		config[size.Category] = append(config[size.Category], size)
	}
	return config, nil
}

// fillMidpoints copies configured midpoints onto sizings that name a size
// but carry no midpoint.
func (s *Service) fillMidpoints(ctx context.Context, activity *Activity) error {
	groups := []struct {
		category string
		sizing   *Sizing
	}{
		{CategoryTaskTime, &activity.TaskTime},
		{CategoryLaborRate, &activity.LaborRate},
		{CategoryVolume, &activity.Volume},
	}

	var config TshirtConfig
	for _, g := range groups {
		if g.sizing.Size == "" || g.sizing.Size == SizeOther || g.sizing.Midpoint != nil {
			continue
		}
		if config == nil {
			var err error
			if config, err = s.TshirtConfig(ctx); err != nil {
				return fmt.Errorf("load tshirt config: %w", err)
			}
		}
		if midpoint, ok := config.Midpoint(g.category, g.sizing.Size); ok {
			g.sizing.Midpoint = &midpoint
		}
	}
	return nil
}
