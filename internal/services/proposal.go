package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/govairn/govairn-backend/internal/data/repos"
	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/platform/apierr"
	"github.com/govairn/govairn-backend/internal/platform/dbctx"
	"github.com/govairn/govairn-backend/internal/platform/logger"
)

// UserProposal is a proposal as seen by one user. Status is "missed" for
// executed proposals the user never voted on.
type UserProposal struct {
	*types.Proposal
	DAOName    string   `json:"dao_name"`
	DAOSpace   string   `json:"dao_space"`
	ChoiceList []string `json:"choice_list"`
	UserStatus string   `json:"user_status"`
	Voted      bool     `json:"voted"`
}

type ProposalService interface {
	ListForUser(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]UserProposal, error)
	Get(ctx context.Context, userID, proposalID uuid.UUID) (*UserProposal, error)
}

type proposalService struct {
	log          *logger.Logger
	proposalRepo repos.ProposalRepo
	daoRepo      repos.DAORepo
	voteRepo     repos.VoteRepo
}

func NewProposalService(log *logger.Logger, proposalRepo repos.ProposalRepo, daoRepo repos.DAORepo, voteRepo repos.VoteRepo) ProposalService {
	return &proposalService{
		log:          log.With("service", "ProposalService"),
		proposalRepo: proposalRepo,
		daoRepo:      daoRepo,
		voteRepo:     voteRepo,
	}
}

func storedStatusesFor(status string) ([]string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "", "all":
		return nil, nil
	case types.ProposalActive:
		return []string{types.ProposalActive}, nil
	case types.ProposalPending:
		return []string{types.ProposalPending}, nil
	case types.ProposalExecuted, types.ProposalMissed:
		return []string{types.ProposalExecuted}, nil
	default:
		return nil, apierr.Invalid("unknown proposal status %q", status)
	}
}

func (s *proposalService) ListForUser(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]UserProposal, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	stored, err := storedStatusesFor(status)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	dbc := dbctx.New(ctx)
	rows, err := s.proposalRepo.List(dbc, repos.ProposalFilter{Statuses: stored, Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch proposals: %w", err)
	}
	out, err := s.decorate(dbc, userID, rows)
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(strings.TrimSpace(status))
	if want == types.ProposalExecuted || want == types.ProposalMissed {
		out = lo.Filter(out, func(p UserProposal, _ int) bool { return p.UserStatus == want })
	}
	return out, nil
}

func (s *proposalService) Get(ctx context.Context, userID, proposalID uuid.UUID) (*UserProposal, error) {
	dbc := dbctx.New(ctx)
	p, err := s.proposalRepo.GetByID(dbc, proposalID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch proposal: %w", err)
	}
	if p == nil {
		return nil, ErrProposalNotFound
	}
	out, err := s.decorate(dbc, userID, []*types.Proposal{p})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *proposalService) decorate(dbc dbctx.Context, userID uuid.UUID, rows []*types.Proposal) ([]UserProposal, error) {
	ids := lo.Map(rows, func(p *types.Proposal, _ int) uuid.UUID { return p.ID })
	voted, err := s.voteRepo.VotedProposalIDs(dbc, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch votes: %w", err)
	}
	daoIDs := lo.Uniq(lo.Map(rows, func(p *types.Proposal, _ int) uuid.UUID { return p.DAOID }))
	daos, err := s.daoRepo.GetByIDs(dbc, daoIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch daos: %w", err)
	}
	byID := lo.KeyBy(daos, func(d *types.DAO) uuid.UUID { return d.ID })

	out := make([]UserProposal, 0, len(rows))
	for _, p := range rows {
		up := UserProposal{
			Proposal:   p,
			ChoiceList: p.ChoiceList(),
			UserStatus: p.Status,
			Voted:      voted[p.ID],
		}
		if d, ok := byID[p.DAOID]; ok {
			up.DAOName = d.Name
			up.DAOSpace = d.SnapshotSpace
		}
		if p.Status == types.ProposalExecuted && !up.Voted {
			up.UserStatus = types.ProposalMissed
		}
		out = append(out, up)
	}
	return out, nil
}
