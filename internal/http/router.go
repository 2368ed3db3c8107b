package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/govairn/govairn-backend/internal/http/handlers"
	httpMW "github.com/govairn/govairn-backend/internal/http/middleware"
	"github.com/govairn/govairn-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler   *httpH.HealthHandler
	UserHandler     *httpH.UserHandler
	PersonaHandler  *httpH.PersonaHandler
	ProposalHandler *httpH.ProposalHandler
	DecisionHandler *httpH.DecisionHandler
	VoteHandler     *httpH.VoteHandler
	SyncHandler     *httpH.SyncHandler
	QueueHandler    *httpH.QueueHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	protected := r.Group("/api")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// User (Me)
		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
		}

		// Personas
		if cfg.PersonaHandler != nil {
			protected.GET("/personas", cfg.PersonaHandler.List)
			protected.GET("/personas/active", cfg.PersonaHandler.GetActive)
			protected.POST("/personas", cfg.PersonaHandler.Create)
			protected.POST("/personas/presets/:name", cfg.PersonaHandler.CreateFromPreset)
			protected.PATCH("/personas/:id", cfg.PersonaHandler.Update)
			protected.POST("/personas/:id/activate", cfg.PersonaHandler.Activate)
			protected.GET("/persona-presets", cfg.PersonaHandler.Presets)
		}

		// Proposals
		if cfg.ProposalHandler != nil {
			protected.GET("/proposals", cfg.ProposalHandler.List)
			protected.GET("/proposals/:id", cfg.ProposalHandler.Get)
		}

		// Decisions
		if cfg.DecisionHandler != nil {
			protected.GET("/proposals/:id/decision", cfg.DecisionHandler.Get)
			protected.POST("/proposals/:id/decision/recalculate", cfg.DecisionHandler.Recalculate)
		}

		// Votes
		if cfg.VoteHandler != nil {
			protected.POST("/proposals/:id/vote", cfg.VoteHandler.Cast)
			protected.GET("/votes", cfg.VoteHandler.List)
		}

		// Operator
		if cfg.SyncHandler != nil {
			protected.POST("/sync", cfg.SyncHandler.Sync)
		}
		if cfg.QueueHandler != nil {
			protected.GET("/queue", cfg.QueueHandler.List)
			protected.POST("/queue/:id/retry", cfg.QueueHandler.Retry)
		}
	}

	return r
}
