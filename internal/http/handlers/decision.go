package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/http/response"
	"github.com/govairn/govairn-backend/internal/platform/apierr"
	"github.com/govairn/govairn-backend/internal/platform/logger"
	"github.com/govairn/govairn-backend/internal/presenter"
	"github.com/govairn/govairn-backend/internal/services"
)

type DecisionHandler struct {
	log       *logger.Logger
	decisions services.DecisionService
	votes     services.VoteService
}

func NewDecisionHandler(log *logger.Logger, decisions services.DecisionService, votes services.VoteService) *DecisionHandler {
	return &DecisionHandler{log: log.With("handler", "DecisionHandler"), decisions: decisions, votes: votes}
}

// project renders d for one dashboard surface. cast backs the vote button.
func project(view string, d *types.AIDecision, cast presenter.CastFunc) (any, error) {
	switch strings.ToLower(strings.TrimSpace(view)) {
	case "", "detail":
		return presenter.Detail(d, false), nil
	case "card":
		return presenter.Card(d, false), nil
	case "factors":
		return presenter.FactorChart(d, false), nil
	case "reasoning":
		return presenter.Reasoning(d, false), nil
	case "vote":
		return presenter.VoteButton(d, false, cast, ""), nil
	default:
		return nil, apierr.Invalid("unknown view %q", view)
	}
}

// GET /api/proposals/:id/decision?view=detail|card|factors|reasoning|vote
func (h *DecisionHandler) Get(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	view := c.Query("view")
	if _, err := project(view, nil, nil); err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	d, err := h.decisions.GetForActivePersona(c.Request.Context(), rd.UserID, id)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	out, _ := project(view, d, h.castFor(rd.UserID, rd.Wallet, d))
	response.RespondOK(c, gin.H{"decision": out})
}

// POST /api/proposals/:id/decision/recalculate
func (h *DecisionHandler) Recalculate(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	d, err := h.decisions.Recalculate(c.Request.Context(), rd.UserID, id)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"decision": presenter.Detail(d, false)})
}

// castFor binds the vote button to the caller. A choice that differs from the
// AI decision is cast as a manual override.
func (h *DecisionHandler) castFor(userID uuid.UUID, wallet string, d *types.AIDecision) presenter.CastFunc {
	if h.votes == nil || d == nil {
		return nil
	}
	return func(ctx context.Context, choice string) error {
		var override *string
		if choice != d.Decision {
			override = &choice
		}
		_, err := h.votes.CastFromDecision(ctx, userID, d.ProposalID, override, wallet)
		return err
	}
}
