package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/govairn/govairn-backend/internal/data/repos"
	"github.com/govairn/govairn-backend/internal/data/repos/testutil"
	"github.com/govairn/govairn-backend/internal/platform/snapshot"
)

const replyFor = `{"decision":"for","confidence":82,"persona_match":74,"reasoning":"Grows reserves.","chain_of_thought":"1. reserves 2. risk","factors":[{"factor_name":"Treasury impact","factor_value":60,"factor_weight":70,"explanation":"adds reserves"},{"factor_name":"Risk","factor_value":-10,"factor_weight":30,"explanation":"small rate change"}]}`

const replyAgainst = `{"decision":"against","confidence":64,"persona_match":58,"reasoning":"Too risky.","chain_of_thought":"risk outweighs","factors":[{"factor_name":"Risk","factor_value":-70,"factor_weight":80,"explanation":"new collateral"}]}`

type fakeLLM struct {
	calls int64

	mu    sync.Mutex
	reply string
	err   error
	delay time.Duration

	lastSystem string
	lastUser   string
}

func (f *fakeLLM) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	atomic.AddInt64(&f.calls, 1)
	f.mu.Lock()
	f.lastSystem, f.lastUser = system, user
	reply, err, delay := f.reply, f.err, f.delay
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return reply, err
}

func (f *fakeLLM) set(reply string, err error) {
	f.mu.Lock()
	f.reply, f.err = reply, err
	f.mu.Unlock()
}

func (f *fakeLLM) prompts() (system, user string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSystem, f.lastUser
}

func (f *fakeLLM) Calls() int { return int(atomic.LoadInt64(&f.calls)) }

type fakeSnapshot struct {
	mu      sync.Mutex
	space   snapshot.Space
	byState map[string][]snapshot.Proposal
	calls   []string
}

func (f *fakeSnapshot) Proposals(ctx context.Context, space, state string, first, skip int) ([]snapshot.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, state)
	all := f.byState[state]
	if skip >= len(all) {
		return nil, nil
	}
	end := skip + first
	if end > len(all) {
		end = len(all)
	}
	return append([]snapshot.Proposal(nil), all[skip:end]...), nil
}

func (f *fakeSnapshot) Space(ctx context.Context, space string) (snapshot.Space, error) {
	return f.space, nil
}

type fixture struct {
	db    *gorm.DB
	repos repos.Set
	llm   *fakeLLM
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	return &fixture{
		db:    db,
		repos: repos.NewSet(db, testutil.Logger(t)),
		llm:   &fakeLLM{reply: replyFor},
	}
}

func (fx *fixture) decisions(t *testing.T) DecisionService {
	t.Helper()
	log := testutil.Logger(t)
	gen := NewDecisionGenerator(log, fx.llm, GeneratorConfig{Timeout: 2 * time.Second})
	return NewDecisionService(fx.db, log, fx.repos.Decisions, fx.repos.Personas, fx.repos.Proposals, gen)
}
