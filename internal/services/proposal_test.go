package services

import (
	"context"
	"testing"

	"github.com/govairn/govairn-backend/internal/data/repos/testutil"
	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/platform/dbctx"
)

func TestListForUserDerivesMissed(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, fx.db)
	dao := testutil.SeedDAO(t, fx.db, "compound-governance.eth")
	active := testutil.SeedProposal(t, fx.db, dao.ID, types.ProposalActive)
	votedOn := testutil.SeedProposal(t, fx.db, dao.ID, types.ProposalExecuted)
	skipped := testutil.SeedProposal(t, fx.db, dao.ID, types.ProposalExecuted)
	if err := fx.repos.Votes.Create(dbctx.New(ctx), &types.Vote{UserID: u.ID, ProposalID: votedOn.ID, Choice: "for", IsManualOverride: true}); err != nil {
		t.Fatalf("seed vote: %v", err)
	}

	svc := NewProposalService(testutil.Logger(t), fx.repos.Proposals, fx.repos.DAOs, fx.repos.Votes)
	all, err := svc.ListForUser(ctx, u.ID, "", 0, 0)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	status := map[string]string{}
	for _, p := range all {
		status[p.ID.String()] = p.UserStatus
		if p.DAOName != "compound-governance.eth" {
			t.Fatalf("dao name: got=%q", p.DAOName)
		}
	}
	want := map[string]string{
		active.ID.String():  types.ProposalActive,
		votedOn.ID.String(): types.ProposalExecuted,
		skipped.ID.String(): types.ProposalMissed,
	}
	for id, w := range want {
		if status[id] != w {
			t.Fatalf("status of %s: want=%q got=%q", id, w, status[id])
		}
	}

	missed, err := svc.ListForUser(ctx, u.ID, types.ProposalMissed, 0, 0)
	if err != nil {
		t.Fatalf("ListForUser(missed): %v", err)
	}
	if len(missed) != 1 || missed[0].ID != skipped.ID {
		t.Fatalf("missed filter: got=%d rows", len(missed))
	}

	if _, err := svc.ListForUser(ctx, u.ID, "archived", 0, 0); err == nil {
		t.Fatalf("unknown status should be rejected")
	}
}
