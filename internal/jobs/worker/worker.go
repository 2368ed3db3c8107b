package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/govairn/govairn-backend/internal/data/repos"
	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/platform/dbctx"
	"github.com/govairn/govairn-backend/internal/platform/httpx"
	"github.com/govairn/govairn-backend/internal/platform/logger"
	"github.com/govairn/govairn-backend/internal/services"
)

// Processor precomputes decisions for one queued proposal.
type Processor interface {
	ProcessProposal(ctx context.Context, proposalID uuid.UUID) (services.PrecomputeResult, error)
}

type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 5
	}
	if p.BaseBackoff <= 0 {
		p.BaseBackoff = 30 * time.Second
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 30 * time.Minute
	}
	return p
}

// Delay is the wait before the next attempt after attempts failures.
func (p RetryPolicy) Delay(attempts int) time.Duration {
	return httpx.Backoff(attempts, p.BaseBackoff, p.MaxBackoff)
}

type Config struct {
	Concurrency     int
	PollInterval    time.Duration
	StaleProcessing time.Duration
	Retry           RetryPolicy
}

type Worker struct {
	log       *logger.Logger
	queue     repos.QueueRepo
	processor Processor
	cfg       Config
	now       func() time.Time
	wg        sync.WaitGroup
}

func NewWorker(baseLog *logger.Logger, queue repos.QueueRepo, processor Processor, cfg Config) *Worker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.StaleProcessing <= 0 {
		cfg.StaleProcessing = 10 * time.Minute
	}
	cfg.Retry = cfg.Retry.withDefaults()
	return &Worker{
		log:       baseLog.With("component", "QueueWorker"),
		queue:     queue,
		processor: processor,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start launches the pool and returns; Wait blocks until ctx is done and
// every loop has exited.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting queue worker pool",
		"concurrency", w.cfg.Concurrency,
		"max_attempts", w.cfg.Retry.MaxAttempts,
	)
	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runLoop(ctx, workerID)
		}()
	}
}

func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			// Drain everything runnable before waiting for the next tick.
			for ctx.Err() == nil {
				claimed, err := w.ProcessOnce(ctx, workerID)
				if err != nil {
					w.log.Warn("Queue claim failed", "worker_id", workerID, "error", err)
					break
				}
				if !claimed {
					break
				}
			}
		}
	}
}

// ProcessOnce claims and handles at most one entry. It reports whether an
// entry was claimed; processing failures are recorded on the entry.
func (w *Worker) ProcessOnce(ctx context.Context, workerID int) (bool, error) {
	dbc := dbctx.New(ctx)
	entry, err := w.queue.ClaimNext(dbc, w.cfg.Retry.MaxAttempts, w.cfg.StaleProcessing)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}

	start := time.Now()
	res, runErr := w.run(ctx, entry)
	if runErr != nil {
		w.fail(ctx, workerID, entry, runErr)
		return true, nil
	}
	// The work is done; record it even if shutdown began meanwhile.
	if _, err := w.queue.Complete(dbctx.New(context.WithoutCancel(ctx)), entry.ID); err != nil {
		w.log.Error("Failed to complete queue entry", "worker_id", workerID, "queue_id", entry.ID, "error", err)
		return true, nil
	}
	w.log.Info("Queue entry processed",
		"worker_id", workerID,
		"queue_id", entry.ID,
		"proposal_id", entry.ProposalID,
		"personas", res.Personas,
		"resolved", res.Resolved,
		"skipped", res.Skipped,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return true, nil
}

func (w *Worker) run(ctx context.Context, entry *types.QueueEntry) (res services.PrecomputeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Queue processor panic", "queue_id", entry.ID, "proposal_id", entry.ProposalID, "panic", r)
			err = &panicError{Val: r}
		}
	}()
	return w.processor.ProcessProposal(ctx, entry.ProposalID)
}

func (w *Worker) fail(ctx context.Context, workerID int, entry *types.QueueEntry, cause error) {
	dbc := dbctx.New(context.WithoutCancel(ctx))
	msg := cause.Error()
	if entry.Attempts >= w.cfg.Retry.MaxAttempts {
		if _, err := w.queue.DeadLetter(dbc, entry.ID, msg); err != nil {
			w.log.Error("Failed to dead-letter queue entry", "queue_id", entry.ID, "error", err)
			return
		}
		w.log.Warn("Queue entry failed permanently",
			"worker_id", workerID,
			"queue_id", entry.ID,
			"proposal_id", entry.ProposalID,
			"attempts", entry.Attempts,
			"error", msg,
		)
		return
	}
	delay := w.cfg.Retry.Delay(entry.Attempts)
	if _, err := w.queue.Reschedule(dbc, entry.ID, msg, w.now().Add(delay)); err != nil {
		w.log.Error("Failed to reschedule queue entry", "queue_id", entry.ID, "error", err)
		return
	}
	w.log.Warn("Queue entry failed; retry scheduled",
		"worker_id", workerID,
		"queue_id", entry.ID,
		"attempts", entry.Attempts,
		"retry_in", delay.String(),
		"error", msg,
	)
}

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
