//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/processmap/internal/domain"
	"example.com/processmap/internal/events"
	"example.com/processmap/internal/grid"
	"example.com/processmap/internal/persistence/postgres"
	"example.com/processmap/internal/persistence/postgres/pgtest"
	"example.com/processmap/internal/seed"
)

func TestMigrateIsIdempotent(t *testing.T) {
	pool := pgtest.Start(t)

	applied, err := postgres.Migrate(context.Background(), pool)
	require.NoError(t, err)
	require.Empty(t, applied)
}

func TestRepositoryServesSeededTshirtConfig(t *testing.T) {
	repo := postgres.NewRepository(pgtest.Start(t))

	sizes, err := repo.ListTshirtConfig(context.Background())
	require.NoError(t, err)
	require.Len(t, sizes, len(seed.TshirtSizes()))
	require.Equal(t, domain.CategoryLaborRate, sizes[0].Category)
	require.Equal(t, "L", sizes[0].Size)
}

func TestShiftInsertPersistsAtomicallyWithOutbox(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Start(t)
	repo := postgres.NewRepository(pool)
	svc := domain.NewService(repo)

	wf, err := svc.CreateWorkflow(ctx, "Claims", "")
	require.NoError(t, err)

	report, err := seed.Load(ctx, svc, wf.ID, "tester")
	require.NoError(t, err)
	require.Equal(t, 26, report.Inserted)

	result, err := svc.PlaceActivity(ctx, domain.PlaceActivityInput{
		Activity:   domain.Activity{WorkflowID: wf.ID, Name: "Triage", GridLocation: "c4"},
		Resolution: domain.ResolutionInsert,
		Actor:      "tester",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Shift)
	require.Equal(t, 5, result.Shift.Count())
	require.Equal(t, "C4", result.Activity.GridLocation)

	activities, err := repo.ListActivities(ctx, wf.ID)
	require.NoError(t, err)
	rowC := make([]string, 0)
	for _, a := range activities {
		if loc, ok := grid.Parse(a.GridLocation); ok && loc.Row == "C" {
			rowC = append(rowC, a.GridLocation)
		}
	}
	require.Equal(t, []string{"C4", "C5", "C6", "C7", "C8", "C9"}, rowC)

	var shifted int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM outbox WHERE event_type=$1 AND workflow_id=$2`,
		events.TypeActivityShifted, wf.ID).Scan(&shifted))
	require.Equal(t, 1, shifted)

	var partitionKey string
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT partition_key FROM outbox WHERE event_type=$1 LIMIT 1`,
		events.TypeActivityShifted).Scan(&partitionKey))
	require.Equal(t, events.PartitionKey(wf.ID), partitionKey)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Start(t)
	repo := postgres.NewRepository(pool)

	wf := &domain.Workflow{Name: "Rollback", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateWorkflow(ctx, wf))

	boom := errors.New("boom")
	err := repo.Transaction(ctx, func(ctx context.Context) error {
		a := &domain.Activity{
			WorkflowID:   wf.ID,
			Name:         "Doomed",
			Type:         domain.ActivityTypeTask,
			Status:       domain.StatusNotStarted,
			GridLocation: "A1",
			CreatedAt:    time.Now().UTC(),
		}
		if err := repo.CreateActivity(ctx, a); err != nil {
			return err
		}
		if err := repo.RecordEvent(ctx, domain.Event{
			Type:        events.TypeActivityCreated,
			WorkflowID:  wf.ID,
			AggregateID: a.ID,
			Payload:     events.ActivityCreated{ActivityID: a.ID},
			OccurredAt:  time.Now().UTC(),
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	activities, err := repo.ListActivities(ctx, wf.ID)
	require.NoError(t, err)
	require.Empty(t, activities)

	var pending int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&pending))
	require.Zero(t, pending)
}

func TestWithoutOutboxSkipsEventRows(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Start(t)
	svc := domain.NewService(postgres.NewRepository(pool, postgres.WithoutOutbox()))

	wf, err := svc.CreateWorkflow(ctx, "Quiet", "")
	require.NoError(t, err)
	_, err = svc.PlaceActivity(ctx, domain.PlaceActivityInput{
		Activity: domain.Activity{WorkflowID: wf.ID, Name: "Intake", GridLocation: "B1"},
		Actor:    "tester",
	})
	require.NoError(t, err)

	var pending int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&pending))
	require.Zero(t, pending)

	activities, err := svc.ListActivities(ctx, wf.ID, domain.ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, activities, 1)
	entries, _, err := svc.AuditTrail(ctx, activities[0].ID, nil, 10)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
}

func TestDuplicateLocationReportedAsOccupied(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewRepository(pgtest.Start(t))

	wf := &domain.Workflow{Name: "Dupes", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateWorkflow(ctx, wf))

	insert := func(ctx context.Context, name string) error {
		return repo.CreateActivity(ctx, &domain.Activity{
			WorkflowID:   wf.ID,
			Name:         name,
			Type:         domain.ActivityTypeTask,
			Status:       domain.StatusNotStarted,
			GridLocation: "B2",
			CreatedAt:    time.Now().UTC(),
		})
	}

	require.NoError(t, insert(ctx, "first"))
	require.ErrorIs(t, insert(ctx, "second"), domain.ErrCellOccupied)

	err := repo.Transaction(ctx, func(ctx context.Context) error {
		return insert(ctx, "third")
	})
	require.ErrorIs(t, err, domain.ErrCellOccupied)
}

func TestAuditTrailPagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewRepository(pgtest.Start(t))

	base := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.AppendAuditEntry(ctx, domain.AuditEntry{
			ActivityID: 42,
			Action:     domain.AuditUpdate,
			Actor:      "tester",
			ChangedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	first, cursor, err := repo.ListAuditEntries(ctx, 42, nil, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)
	require.NotNil(t, cursor)
	require.True(t, first[0].ChangedAt.Equal(base.Add(4*time.Minute)))

	rest, next, err := repo.ListAuditEntries(ctx, 42, cursor, 3)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	require.Nil(t, next)
	require.True(t, rest[1].ChangedAt.Equal(base))
}

func TestDeleteWorkflowCascades(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewRepository(pgtest.Start(t))
	svc := domain.NewService(repo)

	wf, err := svc.CreateWorkflow(ctx, "Cascade", "")
	require.NoError(t, err)
	_, err = seed.Load(ctx, svc, wf.ID, "tester")
	require.NoError(t, err)

	deletion, err := svc.DeleteWorkflow(ctx, wf.ID, "tester")
	require.NoError(t, err)
	require.Equal(t, 26, deletion.ActivitiesRemoved)
	require.Equal(t, 7, deletion.SwimlanesRemoved)

	workflow, err := repo.GetWorkflow(ctx, wf.ID)
	require.NoError(t, err)
	require.Nil(t, workflow)
}

func TestActivityCardDetailsRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := domain.NewService(postgres.NewRepository(pgtest.Start(t)))

	wf, err := svc.CreateWorkflow(ctx, "Cards", "")
	require.NoError(t, err)

	result, err := svc.PlaceActivity(ctx, domain.PlaceActivityInput{
		Activity: domain.Activity{
			WorkflowID:       wf.ID,
			Name:             "Order MVR",
			GridLocation:     "C5",
			EngagementID:     "ENG-42",
			Swimlane:         "Underwriting",
			ProcessSteps:     "1. request\n2. file",
			SystemsTouched:   "Guidewire, LexisNexis",
			ConstraintsRules: "State consent rules",
			Opportunities:    "Batch orders",
			NextSteps:        "Confirm vendor SLA",
			Attachments:      `[{"name":"SOP","url":"https://example.com/sop"}]`,
		},
		Actor: "tester",
	})
	require.NoError(t, err)

	got, err := svc.GetActivity(ctx, result.Activity.ID)
	require.NoError(t, err)
	require.Equal(t, "ENG-42", got.EngagementID)
	require.Equal(t, "Underwriting", got.Swimlane)
	require.Equal(t, "1. request\n2. file", got.ProcessSteps)
	require.Equal(t, "Guidewire, LexisNexis", got.SystemsTouched)
	require.Equal(t, "State consent rules", got.ConstraintsRules)
	require.Equal(t, "Batch orders", got.Opportunities)
	require.Equal(t, "Confirm vendor SLA", got.NextSteps)
	require.JSONEq(t, `[{"name":"SOP","url":"https://example.com/sop"}]`, got.Attachments)

	changes := *got
	changes.Swimlane = "Claims"
	changes.Attachments = ""
	updated, err := svc.UpdateActivity(ctx, got.ID, changes, "editor")
	require.NoError(t, err)
	require.Equal(t, "Claims", updated.Swimlane)

	reloaded, err := svc.GetActivity(ctx, got.ID)
	require.NoError(t, err)
	require.Equal(t, "Claims", reloaded.Swimlane)
	require.Empty(t, reloaded.Attachments)

	scoped, err := svc.ListActivities(ctx, wf.ID, domain.ActivityFilter{EngagementID: "ENG-42"})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	none, err := svc.ListActivities(ctx, wf.ID, domain.ActivityFilter{EngagementID: "ENG-1"})
	require.NoError(t, err)
	require.Empty(t, none)
}
