package http

import (
	"bytes"
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/govairn/govairn-backend/internal/data/repos"
	"github.com/govairn/govairn-backend/internal/data/repos/testutil"
	types "github.com/govairn/govairn-backend/internal/domain"
	httpH "github.com/govairn/govairn-backend/internal/http/handlers"
	httpMW "github.com/govairn/govairn-backend/internal/http/middleware"
	"github.com/govairn/govairn-backend/internal/services"
)

const testWallet = "0x52908400098527886E0F7030069857D2E4169EE7"

type stubLLM struct{ calls int }

func (s *stubLLM) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	s.calls++
	return `{"decision":"against","confidence":67,"persona_match":71,"reasoning":"Spends too much of the treasury.","chain_of_thought":"cost vs benefit","factors":[{"factor_name":"Treasury impact","factor_value":-55,"factor_weight":80,"explanation":"large grant"}]}`, nil
}

type harness struct {
	t      *testing.T
	engine *gin.Engine
	db     *gorm.DB
	auth   services.AuthService
	llm    *stubLLM
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)
	rs := repos.NewSet(db, log)
	llm := &stubLLM{}

	auth := services.NewAuthService(log, "test-secret", time.Hour, "govairn-test")
	users := services.NewUserService(db, log, rs.Users)
	personas, err := services.NewPersonaService(db, log, rs.Personas, rs.Decisions)
	if err != nil {
		t.Fatalf("NewPersonaService: %v", err)
	}
	gen := services.NewDecisionGenerator(log, llm, services.GeneratorConfig{})
	decisions := services.NewDecisionService(db, log, rs.Decisions, rs.Personas, rs.Proposals, gen)
	votes := services.NewVoteService(log, rs.Votes, rs.Proposals, decisions)

	engine := NewRouter(RouterConfig{
		Log:             log,
		AuthMiddleware:  httpMW.NewAuthMiddleware(log, auth, users),
		HealthHandler:   httpH.NewHealthHandler(db),
		UserHandler:     httpH.NewUserHandler(log, users),
		PersonaHandler:  httpH.NewPersonaHandler(log, personas),
		ProposalHandler: httpH.NewProposalHandler(log, services.NewProposalService(log, rs.Proposals, rs.DAOs, rs.Votes)),
		DecisionHandler: httpH.NewDecisionHandler(log, decisions, votes),
		VoteHandler:     httpH.NewVoteHandler(log, votes),
		QueueHandler:    httpH.NewQueueHandler(log, services.NewQueueService(log, rs.Queue)),
	})
	return &harness{t: t, engine: engine, db: db, auth: auth, llm: llm}
}

func (h *harness) token(userID uuid.UUID) string {
	h.t.Helper()
	tok, err := h.auth.Issue(userID, testWallet)
	if err != nil {
		h.t.Fatalf("Issue: %v", err)
	}
	return tok
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func TestHealthcheckIsPublic(t *testing.T) {
	h := newHarness(t)
	rec := h.do(nethttp.MethodGet, "/healthcheck", "", nil)
	if rec.Code != nethttp.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: code=%d body=%q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing X-Request-Id header")
	}
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t)
	for _, tok := range []string{"", "not-a-jwt"} {
		rec := h.do(nethttp.MethodGet, "/api/me", tok, nil)
		if rec.Code != nethttp.StatusUnauthorized {
			t.Fatalf("token %q: want=401 got=%d", tok, rec.Code)
		}
		var eb errorBody
		decode(t, rec, &eb)
		if eb.Error.Code != "unauthorized" {
			t.Fatalf("error code: want=%q got=%q", "unauthorized", eb.Error.Code)
		}
	}
}

func TestMeUpsertsUserOnFirstRequest(t *testing.T) {
	h := newHarness(t)
	userID := uuid.New()
	rec := h.do(nethttp.MethodGet, "/api/me", h.token(userID), nil)
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("GET /api/me: code=%d body=%s", rec.Code, rec.Body.String())
	}
	var out struct {
		Me types.User `json:"me"`
	}
	decode(t, rec, &out)
	if out.Me.ID != userID || out.Me.WalletAddress != testWallet {
		t.Fatalf("me: want id=%s wallet=%s got id=%s wallet=%s", userID, testWallet, out.Me.ID, out.Me.WalletAddress)
	}
}

func TestDecisionAndVoteFlow(t *testing.T) {
	h := newHarness(t)
	userID := uuid.New()
	tok := h.token(userID)

	rec := h.do(nethttp.MethodGet, "/api/personas/active", tok, nil)
	if rec.Code != nethttp.StatusNotFound {
		t.Fatalf("no persona yet: want=404 got=%d", rec.Code)
	}

	rec = h.do(nethttp.MethodPost, "/api/personas/presets/conservative", tok, nil)
	if rec.Code != nethttp.StatusCreated {
		t.Fatalf("create from preset: code=%d body=%s", rec.Code, rec.Body.String())
	}

	dao := testutil.SeedDAO(t, h.db, "aave.eth")
	prop := testutil.SeedProposal(t, h.db, dao.ID, types.ProposalActive)
	base := "/api/proposals/" + prop.ID.String()

	rec = h.do(nethttp.MethodGet, base+"/decision?view=card", tok, nil)
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("decision card: code=%d body=%s", rec.Code, rec.Body.String())
	}
	var card struct {
		Decision struct {
			Available       bool   `json:"available"`
			Decision        string `json:"decision"`
			DisplayDecision string `json:"display_decision"`
			Confidence      int    `json:"confidence"`
		} `json:"decision"`
	}
	decode(t, rec, &card)
	if !card.Decision.Available || card.Decision.DisplayDecision != "AGAINST" || card.Decision.Confidence != 67 {
		t.Fatalf("card: got=%+v", card.Decision)
	}

	rec = h.do(nethttp.MethodGet, base+"/decision?view=factors", tok, nil)
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("decision factors: code=%d", rec.Code)
	}
	if h.llm.calls != 1 {
		t.Fatalf("llm calls: want=1 got=%d", h.llm.calls)
	}
	if rec = h.do(nethttp.MethodGet, base+"/decision?view=bogus", tok, nil); rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("bad view: want=400 got=%d", rec.Code)
	}

	rec = h.do(nethttp.MethodGet, base+"/decision?view=vote", tok, nil)
	var button struct {
		Decision struct {
			Disabled   bool   `json:"disabled"`
			VoteChoice string `json:"vote_choice"`
		} `json:"decision"`
	}
	decode(t, rec, &button)
	if button.Decision.Disabled || button.Decision.VoteChoice != types.DecisionAgainst {
		t.Fatalf("vote button: got=%+v", button.Decision)
	}

	rec = h.do(nethttp.MethodPost, base+"/vote", tok, nil)
	if rec.Code != nethttp.StatusCreated {
		t.Fatalf("vote: code=%d body=%s", rec.Code, rec.Body.String())
	}
	var voted struct {
		Vote types.Vote `json:"vote"`
	}
	decode(t, rec, &voted)
	if voted.Vote.Choice != types.DecisionAgainst || !voted.Vote.IsAIDecided {
		t.Fatalf("vote: got=%+v", voted.Vote)
	}

	rec = h.do(nethttp.MethodPost, base+"/vote", tok, map[string]string{"override": "for"})
	if rec.Code != nethttp.StatusConflict {
		t.Fatalf("second vote: want=409 got=%d", rec.Code)
	}
	var eb errorBody
	decode(t, rec, &eb)
	if eb.Error.Code != "already_voted" {
		t.Fatalf("error code: want=%q got=%q", "already_voted", eb.Error.Code)
	}

	rec = h.do(nethttp.MethodGet, "/api/votes", tok, nil)
	var list struct {
		Votes []types.Vote `json:"votes"`
	}
	decode(t, rec, &list)
	if len(list.Votes) != 1 {
		t.Fatalf("votes: want=1 got=%d", len(list.Votes))
	}
}

func TestPersonaValidationIs400(t *testing.T) {
	h := newHarness(t)
	tok := h.token(uuid.New())
	rec := h.do(nethttp.MethodPost, "/api/personas", tok, map[string]any{"name": "x", "risk": 150})
	if rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("want=400 got=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec = h.do(nethttp.MethodPatch, "/api/personas/not-a-uuid", tok, map[string]any{}); rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("bad id: want=400 got=%d", rec.Code)
	}
}

func TestQueueRetryUnknownIs404(t *testing.T) {
	h := newHarness(t)
	rec := h.do(nethttp.MethodPost, "/api/queue/"+uuid.NewString()+"/retry", h.token(uuid.New()), nil)
	if rec.Code != nethttp.StatusNotFound {
		t.Fatalf("want=404 got=%d", rec.Code)
	}
}
