package decision

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/platform/dbctx"
	"github.com/govairn/govairn-backend/internal/platform/logger"
)

type QueueRepo interface {
	// Enqueue is idempotent per proposal; it reports whether a new entry was created.
	Enqueue(dbc dbctx.Context, proposalID uuid.UUID) (bool, error)
	// ClaimNext takes the oldest due pending entry, or a processing entry whose
	// lock is older than staleProcessing, and marks it processing. Stale entries
	// that already used maxAttempts are dead-lettered instead of reclaimed.
	ClaimNext(dbc dbctx.Context, maxAttempts int, staleProcessing time.Duration) (*types.QueueEntry, error)
	Complete(dbc dbctx.Context, id uuid.UUID) (bool, error)
	// Reschedule puts a processing entry back to pending until retryAt.
	Reschedule(dbc dbctx.Context, id uuid.UUID, errMsg string, retryAt time.Time) (bool, error)
	// DeadLetter marks a processing entry terminally failed.
	DeadLetter(dbc dbctx.Context, id uuid.UUID, errMsg string) (bool, error)
	// Retry requeues a failed entry with a fresh attempt budget.
	Retry(dbc dbctx.Context, id uuid.UUID) (bool, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.QueueEntry, error)
	GetByProposalID(dbc dbctx.Context, proposalID uuid.UUID) (*types.QueueEntry, error)
	List(dbc dbctx.Context, status string, limit int) ([]*types.QueueEntry, error)
}

type queueRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQueueRepo(db *gorm.DB, baseLog *logger.Logger) QueueRepo {
	return &queueRepo{db: db, log: baseLog.With("repo", "QueueRepo")}
}

func (r *queueRepo) Enqueue(dbc dbctx.Context, proposalID uuid.UUID) (bool, error) {
	e := &types.QueueEntry{
		ProposalID:    proposalID,
		Status:        types.QueuePending,
		NextAttemptAt: time.Now().UTC(),
	}
	res := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "proposal_id"}},
			DoNothing: true,
		}).
		Create(e)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *queueRepo) ClaimNext(dbc dbctx.Context, maxAttempts int, staleProcessing time.Duration) (*types.QueueEntry, error) {
	now := time.Now().UTC()
	staleCutoff := now.Add(-staleProcessing)
	var claimed *types.QueueEntry
	err := dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&types.QueueEntry{}).
			Where("status = ? AND locked_at < ? AND attempts >= ?", types.QueueProcessing, staleCutoff, maxAttempts).
			Updates(map[string]interface{}{
				"status":        types.QueueFailed,
				"error_message": "processing timed out and attempts are exhausted",
				"updated_at":    now,
			}).Error; err != nil {
			return err
		}

		var e types.QueueEntry
		qErr := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
        (
          (status = ? AND next_attempt_at <= ?)
          OR (status = ? AND locked_at < ?)
        )
      `, types.QueuePending, now, types.QueueProcessing, staleCutoff).
			Order("next_attempt_at ASC").
			First(&e).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		if err := tx.Model(&types.QueueEntry{}).
			Where("id = ?", e.ID).
			Updates(map[string]interface{}{
				"status":     types.QueueProcessing,
				"attempts":   gorm.Expr("attempts + 1"),
				"locked_at":  now,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}
		e.Status = types.QueueProcessing
		e.Attempts++
		e.LockedAt = &now
		claimed = &e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *queueRepo) Complete(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	return r.transition(dbc, id, types.QueueProcessing, map[string]interface{}{
		"status":        types.QueueCompleted,
		"error_message": "",
		"processed_at":  now,
		"locked_at":     nil,
		"updated_at":    now,
	})
}

func (r *queueRepo) Reschedule(dbc dbctx.Context, id uuid.UUID, errMsg string, retryAt time.Time) (bool, error) {
	return r.transition(dbc, id, types.QueueProcessing, map[string]interface{}{
		"status":          types.QueuePending,
		"error_message":   errMsg,
		"next_attempt_at": retryAt.UTC(),
		"locked_at":       nil,
		"updated_at":      time.Now().UTC(),
	})
}

func (r *queueRepo) DeadLetter(dbc dbctx.Context, id uuid.UUID, errMsg string) (bool, error) {
	now := time.Now().UTC()
	return r.transition(dbc, id, types.QueueProcessing, map[string]interface{}{
		"status":        types.QueueFailed,
		"error_message": errMsg,
		"processed_at":  now,
		"locked_at":     nil,
		"updated_at":    now,
	})
}

func (r *queueRepo) Retry(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	return r.transition(dbc, id, types.QueueFailed, map[string]interface{}{
		"status":          types.QueuePending,
		"attempts":        0,
		"error_message":   "",
		"next_attempt_at": now,
		"processed_at":    nil,
		"updated_at":      now,
	})
}

func (r *queueRepo) transition(dbc dbctx.Context, id uuid.UUID, from string, updates map[string]interface{}) (bool, error) {
	res := dbc.DB(r.db).
		Model(&types.QueueEntry{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *queueRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.QueueEntry, error) {
	var e types.QueueEntry
	err := dbc.DB(r.db).Where("id = ?", id).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *queueRepo) GetByProposalID(dbc dbctx.Context, proposalID uuid.UUID) (*types.QueueEntry, error) {
	var e types.QueueEntry
	err := dbc.DB(r.db).Where("proposal_id = ?", proposalID).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *queueRepo) List(dbc dbctx.Context, status string, limit int) ([]*types.QueueEntry, error) {
	q := dbc.DB(r.db).Model(&types.QueueEntry{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []*types.QueueEntry
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
