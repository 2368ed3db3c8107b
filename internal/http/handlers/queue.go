package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/govairn/govairn-backend/internal/http/response"
	"github.com/govairn/govairn-backend/internal/platform/logger"
	"github.com/govairn/govairn-backend/internal/services"
)

type QueueHandler struct {
	log   *logger.Logger
	queue services.QueueService
}

func NewQueueHandler(log *logger.Logger, queue services.QueueService) *QueueHandler {
	return &QueueHandler{log: log.With("handler", "QueueHandler"), queue: queue}
}

// GET /api/queue?status=&limit=
func (h *QueueHandler) List(c *gin.Context) {
	out, err := h.queue.List(c.Request.Context(), c.Query("status"), queryInt(c, "limit", 100))
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"entries": out})
}

// POST /api/queue/:id/retry
func (h *QueueHandler) Retry(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	e, err := h.queue.Retry(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"entry": e})
}
