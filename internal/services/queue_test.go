package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/govairn/govairn-backend/internal/data/repos/testutil"
	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/platform/dbctx"
)

func TestQueueRetryOnlyFailed(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)
	dao := testutil.SeedDAO(t, fx.db, "safe.eth")
	prop := testutil.SeedProposal(t, fx.db, dao.ID, types.ProposalActive)
	if _, err := fx.repos.Queue.Enqueue(dbc, prop.ID); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	svc := NewQueueService(testutil.Logger(t), fx.repos.Queue)

	entry, err := fx.repos.Queue.ClaimNext(dbc, 3, time.Minute)
	if err != nil || entry == nil {
		t.Fatalf("ClaimNext: entry=%v err=%v", entry, err)
	}
	if _, err := svc.Retry(ctx, entry.ID); !errors.Is(err, ErrQueueEntryNotFailed) {
		t.Fatalf("retry processing entry: want=%v got=%v", ErrQueueEntryNotFailed, err)
	}
	if _, err := fx.repos.Queue.DeadLetter(dbc, entry.ID, "boom"); err != nil {
		t.Fatalf("DeadLetter: %v", err)
	}

	failed, err := svc.List(ctx, types.QueueFailed, 0)
	if err != nil || len(failed) != 1 {
		t.Fatalf("List(failed): n=%d err=%v", len(failed), err)
	}
	got, err := svc.Retry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if got.Status != types.QueuePending || got.Attempts != 0 {
		t.Fatalf("requeued entry: status=%q attempts=%d", got.Status, got.Attempts)
	}
	if _, err := svc.List(ctx, "bogus", 0); err == nil {
		t.Fatalf("unknown status should be rejected")
	}
}
