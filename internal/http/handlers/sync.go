package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/govairn/govairn-backend/internal/http/response"
	"github.com/govairn/govairn-backend/internal/platform/logger"
	"github.com/govairn/govairn-backend/internal/services"
)

type SyncHandler struct {
	log  *logger.Logger
	sync services.ProposalSync
}

func NewSyncHandler(log *logger.Logger, sync services.ProposalSync) *SyncHandler {
	return &SyncHandler{log: log.With("handler", "SyncHandler"), sync: sync}
}

// POST /api/sync?space=&state=
// Without space every configured space is synced.
func (h *SyncHandler) Sync(c *gin.Context) {
	if space := c.Query("space"); space != "" {
		r, err := h.sync.SyncSpace(c.Request.Context(), space, c.Query("state"))
		if err != nil {
			response.RespondErr(c, h.log, err)
			return
		}
		response.RespondOK(c, gin.H{"reports": []services.SyncReport{r}})
		return
	}
	reports, err := h.sync.SyncAll(c.Request.Context())
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"reports": reports})
}
