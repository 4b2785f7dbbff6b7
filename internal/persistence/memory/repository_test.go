package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/processmap/internal/domain"
)

func TestTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	wf := &domain.Workflow{Name: "Underwriting"}
	require.NoError(t, repo.CreateWorkflow(ctx, wf))

	boom := errors.New("boom")
	err := repo.Transaction(ctx, func(ctx context.Context) error {
		require.NoError(t, repo.CreateActivity(ctx, &domain.Activity{WorkflowID: wf.ID, Name: "Review", GridLocation: "C4"}))
		require.NoError(t, repo.AppendAuditEntry(ctx, domain.AuditEntry{ActivityID: 1, Action: domain.AuditCreate}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	activities, err := repo.ListActivities(ctx, wf.ID)
	require.NoError(t, err)
	require.Empty(t, activities)

	entries, _, err := repo.ListAuditEntries(ctx, 1, nil, 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestUniqueLocationCheckedAtCommit(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	a := &domain.Activity{WorkflowID: 1, Name: "A", GridLocation: "C4"}
	b := &domain.Activity{WorkflowID: 1, Name: "B", GridLocation: "C5"}
	require.NoError(t, repo.CreateActivity(ctx, a))
	require.NoError(t, repo.CreateActivity(ctx, b))

	// Swapping through a transient duplicate is fine inside a transaction.
	err := repo.Transaction(ctx, func(ctx context.Context) error {
		require.NoError(t, repo.UpdateGridLocationAndLinks(ctx, a.ID, "C5", "", "tester"))
		require.NoError(t, repo.UpdateGridLocationAndLinks(ctx, b.ID, "C4", "", "tester"))
		return nil
	})
	require.NoError(t, err)

	err = repo.UpdateGridLocationAndLinks(ctx, a.ID, "C4", "", "tester")
	require.ErrorIs(t, err, ErrDuplicateLocation)

	stored, err := repo.GetActivity(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "C5", stored.GridLocation)

	require.NoError(t, repo.CreateActivity(ctx, &domain.Activity{WorkflowID: 2, Name: "Other map", GridLocation: "C4"}))
}

func TestListActivitiesOrdersByRowThenColumn(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	for _, loc := range []string{"C10", "B2", "C9", "A1"} {
		require.NoError(t, repo.CreateActivity(ctx, &domain.Activity{WorkflowID: 1, Name: loc, GridLocation: loc}))
	}

	activities, err := repo.ListActivities(ctx, 1)
	require.NoError(t, err)

	got := make([]string, 0, len(activities))
	for _, a := range activities {
		got = append(got, a.GridLocation)
	}
	require.Equal(t, []string{"A1", "B2", "C9", "C10"}, got)
}

func TestListAuditEntriesPagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	base := time.Date(2025, time.April, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.AppendAuditEntry(ctx, domain.AuditEntry{
			ActivityID: 9,
			Action:     domain.AuditUpdate,
			ChangedAt:  base.Add(time.Duration(i/2) * time.Minute),
		}))
	}

	page, next, err := repo.ListAuditEntries(ctx, 9, nil, 2)
	require.NoError(t, err)
	require.Equal(t, []int64{5, 4}, ids(page))
	require.NotNil(t, next)

	page, next, err = repo.ListAuditEntries(ctx, 9, next, 2)
	require.NoError(t, err)
	require.Equal(t, []int64{3, 2}, ids(page))

	page, next, err = repo.ListAuditEntries(ctx, 9, next, 2)
	require.NoError(t, err)
	require.Equal(t, []int64{1}, ids(page))
	require.Nil(t, next)
}

func TestDeleteWorkflowRemovesOwnedRows(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	wf := &domain.Workflow{Name: "Claims"}
	require.NoError(t, repo.CreateWorkflow(ctx, wf))
	require.NoError(t, repo.CreateActivity(ctx, &domain.Activity{WorkflowID: wf.ID, Name: "A", GridLocation: "A1"}))
	require.NoError(t, repo.UpsertSwimlane(ctx, &domain.Swimlane{WorkflowID: wf.ID, Letter: "A", Name: "Customer"}))

	require.NoError(t, repo.DeleteWorkflow(ctx, wf.ID))

	activities, err := repo.ListActivities(ctx, wf.ID)
	require.NoError(t, err)
	require.Empty(t, activities)
	lanes, err := repo.ListSwimlanes(ctx, wf.ID)
	require.NoError(t, err)
	require.Empty(t, lanes)
	require.ErrorIs(t, repo.DeleteWorkflow(ctx, wf.ID), domain.ErrWorkflowNotFound)
}

func TestUpsertSwimlaneKeepsIDForSameLetter(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	lane := &domain.Swimlane{WorkflowID: 1, Letter: "G", Name: "Mail"}
	require.NoError(t, repo.UpsertSwimlane(ctx, lane))
	renamed := &domain.Swimlane{WorkflowID: 1, Letter: "G", Name: "Outbound Correspondence", DisplayOrder: 6}
	require.NoError(t, repo.UpsertSwimlane(ctx, renamed))
	require.Equal(t, lane.ID, renamed.ID)

	lanes, err := repo.ListSwimlanes(ctx, 1)
	require.NoError(t, err)
	require.Len(t, lanes, 1)
	require.Equal(t, "Outbound Correspondence", lanes[0].Name)
}

func ids(entries []domain.AuditEntry) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}
