package handlers

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/govairn/govairn-backend/internal/http/response"
	"github.com/govairn/govairn-backend/internal/platform/apierr"
	"github.com/govairn/govairn-backend/internal/platform/logger"
	"github.com/govairn/govairn-backend/internal/services"
)

type VoteHandler struct {
	log   *logger.Logger
	votes services.VoteService
}

func NewVoteHandler(log *logger.Logger, votes services.VoteService) *VoteHandler {
	return &VoteHandler{log: log.With("handler", "VoteHandler"), votes: votes}
}

// POST /api/proposals/:id/vote
// body (optional): { "override": "for" | "against" | "abstain" }
func (h *VoteHandler) Cast(c *gin.Context) {
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
	var req struct {
		Override *string `json:"override"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondErr(c, h.log, apierr.Invalid("invalid request body: %v", err))
		return
	}
	if req.Override != nil && *req.Override == "" {
		req.Override = nil
	}
	v, err := h.votes.CastFromDecision(c.Request.Context(), rd.UserID, id, req.Override, rd.Wallet)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"vote": v})
}

// GET /api/votes
func (h *VoteHandler) List(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	out, err := h.votes.ListForUser(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"votes": out})
}
