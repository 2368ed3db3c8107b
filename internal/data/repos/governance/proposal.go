package governance

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/govairn/govairn-backend/internal/data/db"
	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/platform/dbctx"
	"github.com/govairn/govairn-backend/internal/platform/logger"
)

type ProposalFilter struct {
	Statuses []string
	DAOID    *uuid.UUID
	Limit    int
	Offset   int
}

type ProposalRepo interface {
	// UpsertByExternalID inserts p or overwrites the stored status and metadata.
	// created reports whether the row was new.
	UpsertByExternalID(dbc dbctx.Context, p *types.Proposal) (stored *types.Proposal, created bool, err error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Proposal, error)
	GetByExternalID(dbc dbctx.Context, externalID string) (*types.Proposal, error)
	List(dbc dbctx.Context, f ProposalFilter) ([]*types.Proposal, error)
}

type proposalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProposalRepo(db *gorm.DB, baseLog *logger.Logger) ProposalRepo {
	return &proposalRepo{db: db, log: baseLog.With("repo", "ProposalRepo")}
}

func (r *proposalRepo) UpsertByExternalID(dbc dbctx.Context, p *types.Proposal) (*types.Proposal, bool, error) {
	existing, err := r.GetByExternalID(dbc, p.ExternalID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		p.ID = uuid.Nil
		err := dbc.DB(r.db).Create(p).Error
		if err == nil {
			return p, true, nil
		}
		if !db.IsUniqueViolation(err) {
			return nil, false, err
		}
		// Lost a concurrent insert; fall through to overwrite the winner.
		existing, err = r.GetByExternalID(dbc, p.ExternalID)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, errors.New("proposal vanished after unique violation")
		}
	}

	updates := map[string]interface{}{
		"dao_id":      p.DAOID,
		"title":       p.Title,
		"description": p.Description,
		"choices":     p.Choices,
		"status":      p.Status,
		"start_time":  p.StartTime,
		"end_time":    p.EndTime,
		"url":         p.URL,
		"updated_at":  time.Now().UTC(),
	}
	if err := dbc.DB(r.db).
		Model(&types.Proposal{}).
		Where("id = ?", existing.ID).
		Updates(updates).Error; err != nil {
		return nil, false, err
	}
	out, err := r.GetByID(dbc, existing.ID)
	return out, false, err
}

func (r *proposalRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Proposal, error) {
	var p types.Proposal
	err := dbc.DB(r.db).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *proposalRepo) GetByExternalID(dbc dbctx.Context, externalID string) (*types.Proposal, error) {
	var p types.Proposal
	err := dbc.DB(r.db).Where("external_id = ?", externalID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *proposalRepo) List(dbc dbctx.Context, f ProposalFilter) ([]*types.Proposal, error) {
	q := dbc.DB(r.db).Model(&types.Proposal{})
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.DAOID != nil {
		q = q.Where("dao_id = ?", *f.DAOID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var out []*types.Proposal
	if err := q.Order("end_time DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
