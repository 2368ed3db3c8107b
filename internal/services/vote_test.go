package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/govairn/govairn-backend/internal/data/repos/testutil"
	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/platform/apierr"
)

const (
	testWallet         = "0x52908400098527886e0f7030069857d2e4169ee7"
	testWalletChecksum = "0x52908400098527886E0F7030069857D2E4169EE7"
)

func newVoteService(t *testing.T, fx *fixture) VoteService {
	t.Helper()
	return NewVoteService(testutil.Logger(t), fx.repos.Votes, fx.repos.Proposals, fx.decisions(t))
}

func TestCastFromDecisionUsesAIChoice(t *testing.T) {
	fx := newFixture(t)
	s := seedTriple(t, fx)
	d := testutil.SeedDecision(t, fx.db, s.user.ID, s.proposal.ID, s.persona.ID, types.DecisionAgainst)

	v, err := newVoteService(t, fx).CastFromDecision(context.Background(), s.user.ID, s.proposal.ID, nil, testWallet)
	if err != nil {
		t.Fatalf("CastFromDecision: %v", err)
	}
	if v.Choice != types.DecisionAgainst {
		t.Fatalf("choice: want=%q got=%q", types.DecisionAgainst, v.Choice)
	}
	if !v.IsAIDecided || v.IsManualOverride {
		t.Fatalf("flags: want ai=true override=false got ai=%v override=%v", v.IsAIDecided, v.IsManualOverride)
	}
	if v.AIDecisionID == nil || *v.AIDecisionID != d.ID {
		t.Fatalf("ai_decision_id: want=%s got=%v", d.ID, v.AIDecisionID)
	}
	if v.WalletAddress != testWalletChecksum {
		t.Fatalf("wallet: want=%q got=%q", testWalletChecksum, v.WalletAddress)
	}
	if fx.llm.Calls() != 0 {
		t.Fatalf("llm calls: want=0 got=%d", fx.llm.Calls())
	}
}

func TestCastFromDecisionOverride(t *testing.T) {
	fx := newFixture(t)
	s := seedTriple(t, fx)
	testutil.SeedDecision(t, fx.db, s.user.ID, s.proposal.ID, s.persona.ID, types.DecisionFor)

	override := "Against"
	v, err := newVoteService(t, fx).CastFromDecision(context.Background(), s.user.ID, s.proposal.ID, &override, testWallet)
	if err != nil {
		t.Fatalf("CastFromDecision: %v", err)
	}
	if v.Choice != types.DecisionAgainst {
		t.Fatalf("choice: want=%q got=%q", types.DecisionAgainst, v.Choice)
	}
	if v.IsAIDecided || !v.IsManualOverride {
		t.Fatalf("flags: want ai=false override=true got ai=%v override=%v", v.IsAIDecided, v.IsManualOverride)
	}
}

func TestCastVoteIsIrreversible(t *testing.T) {
	fx := newFixture(t)
	s := seedTriple(t, fx)
	svc := newVoteService(t, fx)
	ctx := context.Background()
	req := VoteRequest{UserID: s.user.ID, ProposalID: s.proposal.ID, Choice: "for", IsManualOverride: true, Wallet: testWallet}

	if _, err := svc.CastVote(ctx, req); err != nil {
		t.Fatalf("CastVote: %v", err)
	}
	req.Choice = "against"
	if _, err := svc.CastVote(ctx, req); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("second vote: want=%v got=%v", ErrAlreadyVoted, err)
	}
	votes, err := svc.ListForUser(ctx, s.user.ID)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(votes) != 1 || votes[0].Choice != "for" {
		t.Fatalf("votes: got=%+v", votes)
	}
}

func TestCastVoteValidation(t *testing.T) {
	fx := newFixture(t)
	s := seedTriple(t, fx)
	closed := testutil.SeedProposal(t, fx.db, s.proposal.DAOID, types.ProposalExecuted)
	svc := newVoteService(t, fx)
	base := VoteRequest{UserID: s.user.ID, ProposalID: s.proposal.ID, Choice: "for", IsAIDecided: true, Wallet: testWallet}

	cases := []struct {
		name string
		edit func(r *VoteRequest)
		want error
	}{
		{name: "both_flags", edit: func(r *VoteRequest) { r.IsManualOverride = true }, want: apierr.ErrInvalidArgument},
		{name: "no_flags", edit: func(r *VoteRequest) { r.IsAIDecided = false }, want: apierr.ErrInvalidArgument},
		{name: "bad_choice", edit: func(r *VoteRequest) { r.Choice = "yes" }, want: ErrInvalidChoice},
		{name: "bad_wallet", edit: func(r *VoteRequest) { r.Wallet = "0x123" }, want: ErrMissingWallet},
		{name: "closed_proposal", edit: func(r *VoteRequest) { r.ProposalID = closed.ID }, want: ErrProposalClosed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.edit(&req)
			if _, err := svc.CastVote(context.Background(), req); !errors.Is(err, tc.want) {
				t.Fatalf("want=%v got=%v", tc.want, err)
			}
		})
	}
}

func TestCastFromDecisionRejectsBeforeGenerating(t *testing.T) {
	fx := newFixture(t)
	s := seedTriple(t, fx)
	closed := testutil.SeedProposal(t, fx.db, s.proposal.DAOID, types.ProposalExecuted)
	svc := newVoteService(t, fx)
	maybe := "maybe"

	cases := []struct {
		name       string
		proposalID uuid.UUID
		override   *string
		wallet     string
		want       error
	}{
		{name: "invalid_override", proposalID: s.proposal.ID, override: &maybe, wallet: testWallet, want: ErrInvalidChoice},
		{name: "bad_wallet", proposalID: s.proposal.ID, wallet: "not-a-wallet", want: ErrMissingWallet},
		{name: "closed_proposal", proposalID: closed.ID, wallet: testWallet, want: ErrProposalClosed},
		{name: "unknown_proposal", proposalID: uuid.New(), wallet: testWallet, want: ErrProposalNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CastFromDecision(context.Background(), s.user.ID, tc.proposalID, tc.override, tc.wallet)
			if !errors.Is(err, tc.want) {
				t.Fatalf("want=%v got=%v", tc.want, err)
			}
		})
	}
	if fx.llm.Calls() != 0 {
		t.Fatalf("llm calls: want=0 got=%d", fx.llm.Calls())
	}
	var stored int64
	if err := fx.db.Model(&types.AIDecision{}).Where("user_id = ?", s.user.ID).Count(&stored).Error; err != nil {
		t.Fatalf("count decisions: %v", err)
	}
	if stored != 0 {
		t.Fatalf("decisions persisted: want=0 got=%d", stored)
	}
}
