package handlers

import (
	"github.com/gin-gonic/gin"

	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/http/response"
	"github.com/govairn/govairn-backend/internal/platform/apierr"
	"github.com/govairn/govairn-backend/internal/platform/logger"
	"github.com/govairn/govairn-backend/internal/services"
)

type PersonaHandler struct {
	log      *logger.Logger
	personas services.PersonaService
}

func NewPersonaHandler(log *logger.Logger, personas services.PersonaService) *PersonaHandler {
	return &PersonaHandler{log: log.With("handler", "PersonaHandler"), personas: personas}
}

type personaRequest struct {
	Name string `json:"name"`
	types.PersonaValues
}

// GET /api/personas
func (h *PersonaHandler) List(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	out, err := h.personas.List(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"personas": out})
}

// GET /api/personas/active
func (h *PersonaHandler) GetActive(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	p, err := h.personas.GetActive(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"persona": p})
}

// POST /api/personas
// body: { "name": "...", "risk": 0-100, "esg": ..., "treasury": ..., "horizon": ..., "frequency": ... }
func (h *PersonaHandler) Create(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	var req personaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, h.log, apierr.Invalid("invalid request body: %v", err))
		return
	}
	p, err := h.personas.Create(c.Request.Context(), rd.UserID, req.Name, req.PersonaValues)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"persona": p})
}

// POST /api/personas/presets/:name
func (h *PersonaHandler) CreateFromPreset(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	p, err := h.personas.CreateFromPreset(c.Request.Context(), rd.UserID, c.Param("name"))
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"persona": p})
}

// PATCH /api/personas/:id
func (h *PersonaHandler) Update(c *gin.Context) {
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
	var req personaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, h.log, apierr.Invalid("invalid request body: %v", err))
		return
	}
	p, err := h.personas.Update(c.Request.Context(), rd.UserID, id, req.Name, req.PersonaValues)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"persona": p})
}

// POST /api/personas/:id/activate
func (h *PersonaHandler) Activate(c *gin.Context) {
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
	p, err := h.personas.Activate(c.Request.Context(), rd.UserID, id)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"persona": p})
}

// GET /api/persona-presets
func (h *PersonaHandler) Presets(c *gin.Context) {
	response.RespondOK(c, gin.H{"presets": h.personas.Presets()})
}
