package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/govairn/govairn-backend/internal/data/repos/testutil"
	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/platform/dbctx"
)

type decisionSeed struct {
	user     *types.User
	persona  *types.Persona
	proposal *types.Proposal
}

func seedTriple(t *testing.T, fx *fixture) decisionSeed {
	t.Helper()
	u := testutil.SeedUser(t, fx.db)
	p := testutil.SeedPersona(t, fx.db, u.ID, types.PersonaValues{Risk: 30, ESG: 60, Treasury: 80, Horizon: 70, Frequency: 50}, true)
	dao := testutil.SeedDAO(t, fx.db, "aave.eth")
	prop := testutil.SeedProposal(t, fx.db, dao.ID, types.ProposalActive)
	return decisionSeed{user: u, persona: p, proposal: prop}
}

func TestGetOrCreateCacheHitSkipsGenerator(t *testing.T) {
	fx := newFixture(t)
	s := seedTriple(t, fx)
	seeded := testutil.SeedDecision(t, fx.db, s.user.ID, s.proposal.ID, s.persona.ID, types.DecisionAgainst)

	svc := fx.decisions(t)
	got, err := svc.GetOrCreate(context.Background(), s.user.ID, s.proposal.ID, s.persona.ID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if got.ID != seeded.ID || got.Decision != types.DecisionAgainst {
		t.Fatalf("cached row: want id=%s decision=against got id=%s decision=%s", seeded.ID, got.ID, got.Decision)
	}
	if fx.llm.Calls() != 0 {
		t.Fatalf("llm calls: want=0 got=%d", fx.llm.Calls())
	}
}

func TestGetOrCreateMissGeneratesOnce(t *testing.T) {
	fx := newFixture(t)
	s := seedTriple(t, fx)
	svc := fx.decisions(t)
	ctx := context.Background()

	first, err := svc.GetOrCreate(ctx, s.user.ID, s.proposal.ID, s.persona.ID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if first.Decision != types.DecisionFor || first.Confidence != 82 || first.Degraded {
		t.Fatalf("generated row: got=%+v", first)
	}
	if len(first.Factors) != 2 || first.Factors[0].FactorName != "Treasury impact" {
		t.Fatalf("factors: got=%+v", first.Factors)
	}

	second, err := svc.GetOrCreate(ctx, s.user.ID, s.proposal.ID, s.persona.ID)
	if err != nil {
		t.Fatalf("GetOrCreate (second): %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second read should hit cache: want=%s got=%s", first.ID, second.ID)
	}
	if fx.llm.Calls() != 1 {
		t.Fatalf("llm calls: want=1 got=%d", fx.llm.Calls())
	}
}

func TestGetOrCreateRegeneratesFlaggedRowInPlace(t *testing.T) {
	fx := newFixture(t)
	s := seedTriple(t, fx)
	seeded := testutil.SeedDecision(t, fx.db, s.user.ID, s.proposal.ID, s.persona.ID, types.DecisionFor)
	if err := fx.repos.Decisions.SetRequiresRecalculation(dbctx.New(context.Background()), seeded.ID); err != nil {
		t.Fatalf("flag: %v", err)
	}
	fx.llm.set(replyAgainst, nil)

	got, err := fx.decisions(t).GetOrCreate(context.Background(), s.user.ID, s.proposal.ID, s.persona.ID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if got.ID != seeded.ID {
		t.Fatalf("row id should be stable: want=%s got=%s", seeded.ID, got.ID)
	}
	if got.Decision != types.DecisionAgainst || got.RequiresRecalculation {
		t.Fatalf("regenerated row: decision=%s flag=%v", got.Decision, got.RequiresRecalculation)
	}
	if len(got.Factors) != 1 || got.Factors[0].FactorName != "Risk" {
		t.Fatalf("factors should be replaced: got=%+v", got.Factors)
	}
	if fx.llm.Calls() != 1 {
		t.Fatalf("llm calls: want=1 got=%d", fx.llm.Calls())
	}
}

func TestGetOrCreateDegradedIsRetriedOnNextRead(t *testing.T) {
	fx := newFixture(t)
	s := seedTriple(t, fx)
	svc := fx.decisions(t)
	ctx := context.Background()

	fx.llm.set("", errors.New("connection refused"))
	first, err := svc.GetOrCreate(ctx, s.user.ID, s.proposal.ID, s.persona.ID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if !first.Degraded || !first.RequiresRecalculation || first.Decision != types.DecisionAbstain {
		t.Fatalf("degraded row: got degraded=%v flag=%v decision=%s", first.Degraded, first.RequiresRecalculation, first.Decision)
	}
	if !IsFallbackReasoning(first.Reasoning) {
		t.Fatalf("reasoning should be labeled fallback: %q", first.Reasoning)
	}

	fx.llm.set(replyFor, nil)
	second, err := svc.GetOrCreate(ctx, s.user.ID, s.proposal.ID, s.persona.ID)
	if err != nil {
		t.Fatalf("GetOrCreate (second): %v", err)
	}
	if second.ID != first.ID || second.Degraded || second.Decision != types.DecisionFor {
		t.Fatalf("retry should overwrite in place: got id=%s degraded=%v decision=%s", second.ID, second.Degraded, second.Decision)
	}
	if fx.llm.Calls() != 2 {
		t.Fatalf("llm calls: want=2 got=%d", fx.llm.Calls())
	}
}

func TestGetOrCreateConcurrentCallersShareOneRow(t *testing.T) {
	fx := newFixture(t)
	s := seedTriple(t, fx)
	fx.llm.delay = 20 * time.Millisecond

	// Two instances stand in for two processes; singleflight only dedupes within one.
	svcs := []DecisionService{fx.decisions(t), fx.decisions(t)}

	const callers = 8
	ids := make([]uuid.UUID, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := svcs[i%2].GetOrCreate(context.Background(), s.user.ID, s.proposal.ID, s.persona.ID)
			errs[i] = err
			if d != nil {
				ids[i] = d.ID
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
		if ids[i] != ids[0] {
			t.Fatalf("caller %d saw a different row: want=%s got=%s", i, ids[0], ids[i])
		}
	}
	n, err := fx.repos.Decisions.CountByTriple(dbctx.New(context.Background()), s.user.ID, s.proposal.ID, s.persona.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows for triple: want=1 got=%d", n)
	}
	stored, err := fx.repos.Decisions.GetByID(dbctx.New(context.Background()), ids[0])
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(stored.Factors) != 2 {
		t.Fatalf("factors should be written once: want=2 got=%d", len(stored.Factors))
	}
}

func TestGetOrCreateValidatesBeforeGenerating(t *testing.T) {
	fx := newFixture(t)
	s := seedTriple(t, fx)
	other := testutil.SeedUser(t, fx.db)
	svc := fx.decisions(t)
	ctx := context.Background()

	if _, err := svc.GetOrCreate(ctx, uuid.Nil, s.proposal.ID, s.persona.ID); !errors.Is(err, ErrMissingUser) {
		t.Fatalf("nil user: want=%v got=%v", ErrMissingUser, err)
	}
	if _, err := svc.GetOrCreate(ctx, other.ID, s.proposal.ID, s.persona.ID); !errors.Is(err, ErrPersonaNotFound) {
		t.Fatalf("foreign persona: want=%v got=%v", ErrPersonaNotFound, err)
	}
	if _, err := svc.GetOrCreate(ctx, s.user.ID, uuid.New(), s.persona.ID); !errors.Is(err, ErrProposalNotFound) {
		t.Fatalf("missing proposal: want=%v got=%v", ErrProposalNotFound, err)
	}
	if fx.llm.Calls() != 0 {
		t.Fatalf("llm calls: want=0 got=%d", fx.llm.Calls())
	}
}

func TestGetForActivePersonaRequiresPersona(t *testing.T) {
	fx := newFixture(t)
	u := testutil.SeedUser(t, fx.db)
	dao := testutil.SeedDAO(t, fx.db, "uniswap")
	prop := testutil.SeedProposal(t, fx.db, dao.ID, types.ProposalActive)

	_, err := fx.decisions(t).GetForActivePersona(context.Background(), u.ID, prop.ID)
	if !errors.Is(err, ErrNoActivePersona) {
		t.Fatalf("want=%v got=%v", ErrNoActivePersona, err)
	}
}

func TestRecalculateForcesRegeneration(t *testing.T) {
	fx := newFixture(t)
	s := seedTriple(t, fx)
	seeded := testutil.SeedDecision(t, fx.db, s.user.ID, s.proposal.ID, s.persona.ID, types.DecisionFor)
	fx.llm.set(replyAgainst, nil)

	got, err := fx.decisions(t).Recalculate(context.Background(), s.user.ID, s.proposal.ID)
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if got.ID != seeded.ID || got.Decision != types.DecisionAgainst {
		t.Fatalf("want in-place against got id=%s decision=%s", got.ID, got.Decision)
	}
}

func TestGetOrCreateCancelledCallerDoesNotDegradeSharedCall(t *testing.T) {
	fx := newFixture(t)
	s := seedTriple(t, fx)
	fx.llm.delay = 200 * time.Millisecond
	svc := fx.decisions(t)

	leaderCtx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	leaderErr := make(chan error, 1)
	go func() {
		_, err := svc.GetOrCreate(leaderCtx, s.user.ID, s.proposal.ID, s.persona.ID)
		leaderErr <- err
	}()

	time.Sleep(10 * time.Millisecond)
	got, err := svc.GetOrCreate(context.Background(), s.user.ID, s.proposal.ID, s.persona.ID)
	if err != nil {
		t.Fatalf("follower: %v", err)
	}
	if got.Degraded || got.Decision != types.DecisionFor {
		t.Fatalf("follower: want fresh for got degraded=%v decision=%s", got.Degraded, got.Decision)
	}
	if err := <-leaderErr; !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("leader: want=%v got=%v", context.DeadlineExceeded, err)
	}
	if fx.llm.Calls() != 1 {
		t.Fatalf("llm calls: want=1 got=%d", fx.llm.Calls())
	}
	n, err := fx.repos.Decisions.CountByTriple(dbctx.New(context.Background()), s.user.ID, s.proposal.ID, s.persona.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows for triple: want=1 got=%d", n)
	}
}
