package governance

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/platform/dbctx"
	"github.com/govairn/govairn-backend/internal/platform/logger"
)

type VoteRepo interface {
	// Create fails with a unique violation when the user already voted.
	Create(dbc dbctx.Context, v *types.Vote) error
	GetByUserProposal(dbc dbctx.Context, userID, proposalID uuid.UUID) (*types.Vote, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Vote, error)
	VotedProposalIDs(dbc dbctx.Context, userID uuid.UUID, proposalIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

type voteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVoteRepo(db *gorm.DB, baseLog *logger.Logger) VoteRepo {
	return &voteRepo{db: db, log: baseLog.With("repo", "VoteRepo")}
}

func (r *voteRepo) Create(dbc dbctx.Context, v *types.Vote) error {
	return dbc.DB(r.db).Create(v).Error
}

func (r *voteRepo) GetByUserProposal(dbc dbctx.Context, userID, proposalID uuid.UUID) (*types.Vote, error) {
	var v types.Vote
	err := dbc.DB(r.db).
		Where("user_id = ? AND proposal_id = ?", userID, proposalID).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *voteRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Vote, error) {
	var out []*types.Vote
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *voteRepo) VotedProposalIDs(dbc dbctx.Context, userID uuid.UUID, proposalIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := map[uuid.UUID]bool{}
	if len(proposalIDs) == 0 {
		return out, nil
	}
	var ids []uuid.UUID
	if err := dbc.DB(r.db).
		Model(&types.Vote{}).
		Where("user_id = ? AND proposal_id IN ?", userID, proposalIDs).
		Pluck("proposal_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
