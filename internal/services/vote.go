package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/govairn/govairn-backend/internal/data/db"
	"github.com/govairn/govairn-backend/internal/data/repos"
	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/domain/decision"
	"github.com/govairn/govairn-backend/internal/platform/apierr"
	"github.com/govairn/govairn-backend/internal/platform/dbctx"
	"github.com/govairn/govairn-backend/internal/platform/logger"
	"github.com/govairn/govairn-backend/internal/platform/wallet"
)

type VoteRequest struct {
	UserID           uuid.UUID
	ProposalID       uuid.UUID
	Choice           string
	IsAIDecided      bool
	IsManualOverride bool
	Wallet           string
	AIDecisionID     *uuid.UUID
}

type VoteService interface {
	CastVote(ctx context.Context, req VoteRequest) (*types.Vote, error)
	// CastFromDecision records the active persona's AI decision as the vote,
	// or override when it is non-nil.
	CastFromDecision(ctx context.Context, userID, proposalID uuid.UUID, override *string, walletAddr string) (*types.Vote, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.Vote, error)
}

type voteService struct {
	log          *logger.Logger
	voteRepo     repos.VoteRepo
	proposalRepo repos.ProposalRepo
	decisions    DecisionService
}

func NewVoteService(log *logger.Logger, voteRepo repos.VoteRepo, proposalRepo repos.ProposalRepo, decisions DecisionService) VoteService {
	return &voteService{
		log:          log.With("service", "VoteService"),
		voteRepo:     voteRepo,
		proposalRepo: proposalRepo,
		decisions:    decisions,
	}
}

func (s *voteService) CastVote(ctx context.Context, req VoteRequest) (*types.Vote, error) {
	if req.UserID == uuid.Nil {
		return nil, ErrMissingUser
	}
	if req.ProposalID == uuid.Nil {
		return nil, apierr.Invalid("proposal id is required")
	}
	if req.IsAIDecided == req.IsManualOverride {
		return nil, apierr.Invalid("exactly one of is_ai_decided and is_manual_override must be set")
	}
	choice, ok := decision.Normalize(req.Choice)
	if !ok {
		return nil, ErrInvalidChoice
	}
	dbc := dbctx.New(ctx)
	addr, err := s.validateTarget(dbc, req.ProposalID, req.Wallet)
	if err != nil {
		return nil, err
	}

	v := &types.Vote{
		UserID:           req.UserID,
		ProposalID:       req.ProposalID,
		AIDecisionID:     req.AIDecisionID,
		Choice:           choice,
		IsAIDecided:      req.IsAIDecided,
		IsManualOverride: req.IsManualOverride,
		WalletAddress:    addr,
	}
	if err := s.voteRepo.Create(dbc, v); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrAlreadyVoted
		}
		return nil, fmt.Errorf("failed to record vote: %w", err)
	}
	s.log.Info("Vote recorded",
		"user_id", v.UserID,
		"proposal_id", v.ProposalID,
		"choice", v.Choice,
		"ai_decided", v.IsAIDecided,
		"wallet", v.WalletAddress,
	)
	return v, nil
}

// validateTarget checks the wallet and that the proposal is open. It runs
// before any decision is resolved so rejected votes never reach the provider.
func (s *voteService) validateTarget(dbc dbctx.Context, proposalID uuid.UUID, walletAddr string) (string, error) {
	addr, err := wallet.Normalize(walletAddr)
	if err != nil {
		return "", ErrMissingWallet
	}
	p, err := s.proposalRepo.GetByID(dbc, proposalID)
	if err != nil {
		return "", fmt.Errorf("load proposal: %w", err)
	}
	if p == nil {
		return "", ErrProposalNotFound
	}
	if p.Status != types.ProposalActive {
		return "", ErrProposalClosed
	}
	return addr, nil
}

func (s *voteService) CastFromDecision(ctx context.Context, userID, proposalID uuid.UUID, override *string, walletAddr string) (*types.Vote, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	if proposalID == uuid.Nil {
		return nil, apierr.Invalid("proposal id is required")
	}
	if override != nil {
		if _, ok := decision.Normalize(*override); !ok {
			return nil, ErrInvalidChoice
		}
	}
	if _, err := s.validateTarget(dbctx.New(ctx), proposalID, walletAddr); err != nil {
		return nil, err
	}

	d, err := s.decisions.GetForActivePersona(ctx, userID, proposalID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, errors.New("decision unavailable")
	}
	req := VoteRequest{
		UserID:       userID,
		ProposalID:   proposalID,
		Wallet:       walletAddr,
		AIDecisionID: &d.ID,
	}
	if override != nil {
		req.Choice = *override
		req.IsManualOverride = true
	} else {
		req.Choice = d.Decision
		req.IsAIDecided = true
	}
	return s.CastVote(ctx, req)
}

func (s *voteService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.Vote, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	return s.voteRepo.ListByUser(dbctx.New(ctx), userID)
}
