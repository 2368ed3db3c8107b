package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/govairn/govairn-backend/internal/data/repos"
	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/platform/apierr"
	"github.com/govairn/govairn-backend/internal/platform/dbctx"
	"github.com/govairn/govairn-backend/internal/platform/logger"
)

// QueueService is the operator surface of the processing queue.
type QueueService interface {
	List(ctx context.Context, status string, limit int) ([]*types.QueueEntry, error)
	Retry(ctx context.Context, id uuid.UUID) (*types.QueueEntry, error)
}

type queueService struct {
	log       *logger.Logger
	queueRepo repos.QueueRepo
}

func NewQueueService(log *logger.Logger, queueRepo repos.QueueRepo) QueueService {
	return &queueService{log: log.With("service", "QueueService"), queueRepo: queueRepo}
}

func (s *queueService) List(ctx context.Context, status string, limit int) ([]*types.QueueEntry, error) {
	switch status {
	case "", types.QueuePending, types.QueueProcessing, types.QueueCompleted, types.QueueFailed:
	default:
		return nil, apierr.Invalid("unknown queue status %q", status)
	}
	return s.queueRepo.List(dbctx.New(ctx), status, limit)
}

func (s *queueService) Retry(ctx context.Context, id uuid.UUID) (*types.QueueEntry, error) {
	dbc := dbctx.New(ctx)
	e, err := s.queueRepo.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("load queue entry: %w", err)
	}
	if e == nil {
		return nil, ErrQueueEntryNotFound
	}
	ok, err := s.queueRepo.Retry(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("retry queue entry: %w", err)
	}
	if !ok {
		return nil, ErrQueueEntryNotFailed
	}
	s.log.Info("Queue entry requeued", "queue_id", id, "proposal_id", e.ProposalID)
	return s.queueRepo.GetByID(dbc, id)
}
