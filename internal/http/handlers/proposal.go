package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/govairn/govairn-backend/internal/http/response"
	"github.com/govairn/govairn-backend/internal/platform/logger"
	"github.com/govairn/govairn-backend/internal/services"
)

type ProposalHandler struct {
	log       *logger.Logger
	proposals services.ProposalService
}

func NewProposalHandler(log *logger.Logger, proposals services.ProposalService) *ProposalHandler {
	return &ProposalHandler{log: log.With("handler", "ProposalHandler"), proposals: proposals}
}

// GET /api/proposals?status=active|pending|executed|missed&limit=&offset=
func (h *ProposalHandler) List(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	out, err := h.proposals.ListForUser(c.Request.Context(), rd.UserID, c.Query("status"), queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"proposals": out})
}

// GET /api/proposals/:id
func (h *ProposalHandler) Get(c *gin.Context) {
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
	p, err := h.proposals.Get(c.Request.Context(), rd.UserID, id)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"proposal": p})
}
