package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/govairn/govairn-backend/internal/data/repos"
	"github.com/govairn/govairn-backend/internal/data/repos/testutil"
	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/platform/dbctx"
	"github.com/govairn/govairn-backend/internal/services"
)

type scriptedProcessor struct {
	mu    sync.Mutex
	errs  []error
	calls int
	panic bool
}

func (p *scriptedProcessor) ProcessProposal(ctx context.Context, id uuid.UUID) (services.PrecomputeResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.panic {
		panic("boom")
	}
	if len(p.errs) == 0 {
		return services.PrecomputeResult{ProposalID: id, Personas: 1, Resolved: 1}, nil
	}
	err := p.errs[0]
	p.errs = p.errs[1:]
	return services.PrecomputeResult{ProposalID: id}, err
}

func setup(t *testing.T, proc Processor, policy RetryPolicy) (*Worker, repos.QueueRepo, *types.QueueEntry, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	queue := repos.NewSet(db, log).Queue
	dao := testutil.SeedDAO(t, db, "aave.eth")
	prop := testutil.SeedProposal(t, db, dao.ID, types.ProposalActive)
	dbc := dbctx.New(context.Background())
	if _, err := queue.Enqueue(dbc, prop.ID); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	entry, err := queue.GetByProposalID(dbc, prop.ID)
	if err != nil || entry == nil {
		t.Fatalf("GetByProposalID: %v", err)
	}
	return NewWorker(log, queue, proc, Config{Retry: policy}), queue, entry, db
}

func reload(t *testing.T, queue repos.QueueRepo, id uuid.UUID) *types.QueueEntry {
	t.Helper()
	e, err := queue.GetByID(dbctx.New(context.Background()), id)
	if err != nil || e == nil {
		t.Fatalf("GetByID: %v", err)
	}
	return e
}

func TestProcessOnceCompletes(t *testing.T) {
	proc := &scriptedProcessor{}
	w, queue, entry, _ := setup(t, proc, RetryPolicy{})

	claimed, err := w.ProcessOnce(context.Background(), 1)
	if err != nil || !claimed {
		t.Fatalf("ProcessOnce: claimed=%v err=%v", claimed, err)
	}
	if got := reload(t, queue, entry.ID); got.Status != types.QueueCompleted || got.ProcessedAt == nil {
		t.Fatalf("status: want=%q got=%q", types.QueueCompleted, got.Status)
	}
	claimed, err = w.ProcessOnce(context.Background(), 1)
	if err != nil || claimed {
		t.Fatalf("empty queue: claimed=%v err=%v", claimed, err)
	}
}

func TestProcessOnceRetriesThenDeadLetters(t *testing.T) {
	boom := errors.New("1 of 1 decisions degraded")
	proc := &scriptedProcessor{errs: []error{boom, boom}}
	w, queue, entry, db := setup(t, proc, RetryPolicy{MaxAttempts: 2, BaseBackoff: time.Minute, MaxBackoff: time.Hour})
	ctx := context.Background()

	before := time.Now().UTC()
	if _, err := w.ProcessOnce(ctx, 1); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	got := reload(t, queue, entry.ID)
	if got.Status != types.QueuePending || got.Attempts != 1 || got.ErrorMessage != boom.Error() {
		t.Fatalf("after first failure: status=%q attempts=%d msg=%q", got.Status, got.Attempts, got.ErrorMessage)
	}
	if !got.NextAttemptAt.After(before.Add(30 * time.Second)) {
		t.Fatalf("retry should be backed off: next_attempt_at=%s", got.NextAttemptAt)
	}

	// Not yet due.
	if claimed, _ := w.ProcessOnce(ctx, 1); claimed {
		t.Fatalf("entry claimed before next_attempt_at")
	}

	if err := db.Model(&types.QueueEntry{}).Where("id = ?", entry.ID).
		Update("next_attempt_at", time.Now().UTC().Add(-time.Second)).Error; err != nil {
		t.Fatalf("make entry due: %v", err)
	}
	if _, err := w.ProcessOnce(ctx, 1); err != nil {
		t.Fatalf("ProcessOnce (second): %v", err)
	}
	got = reload(t, queue, entry.ID)
	if got.Status != types.QueueFailed || got.Attempts != 2 {
		t.Fatalf("after exhausting attempts: status=%q attempts=%d", got.Status, got.Attempts)
	}
	if proc.calls != 2 {
		t.Fatalf("processor calls: want=2 got=%d", proc.calls)
	}
}

func TestProcessOnceRecoversPanic(t *testing.T) {
	w, queue, entry, _ := setup(t, &scriptedProcessor{panic: true}, RetryPolicy{MaxAttempts: 1})
	if _, err := w.ProcessOnce(context.Background(), 1); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	got := reload(t, queue, entry.ID)
	if got.Status != types.QueueFailed {
		t.Fatalf("status: want=%q got=%q", types.QueueFailed, got.Status)
	}
}

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{BaseBackoff: time.Second, MaxBackoff: 5 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := p.Delay(i + 1); got != w {
			t.Fatalf("Delay(%d): want=%s got=%s", i+1, w, got)
		}
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	proc := &scriptedProcessor{}
	w, queue, entry, _ := setup(t, proc, RetryPolicy{})
	w.cfg.PollInterval = 10 * time.Millisecond
	w.cfg.Concurrency = 2

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if reload(t, queue, entry.ID).Status == types.QueueCompleted {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	w.Wait()
	if got := reload(t, queue, entry.ID); got.Status != types.QueueCompleted {
		t.Fatalf("status: want=%q got=%q", types.QueueCompleted, got.Status)
	}
}

type cancellingProcessor struct{ cancel context.CancelFunc }

func (p *cancellingProcessor) ProcessProposal(ctx context.Context, id uuid.UUID) (services.PrecomputeResult, error) {
	p.cancel()
	return services.PrecomputeResult{ProposalID: id, Personas: 1, Resolved: 1}, nil
}

func TestProcessOnceCompletesAfterShutdownBegins(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w, queue, entry, _ := setup(t, &cancellingProcessor{cancel: cancel}, RetryPolicy{})

	claimed, err := w.ProcessOnce(ctx, 1)
	if err != nil || !claimed {
		t.Fatalf("ProcessOnce: claimed=%v err=%v", claimed, err)
	}
	if got := reload(t, queue, entry.ID); got.Status != types.QueueCompleted {
		t.Fatalf("status: want=%q got=%q", types.QueueCompleted, got.Status)
	}
}
