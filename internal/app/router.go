package app

import (
	"github.com/govairn/govairn-backend/internal/http"
	"github.com/govairn/govairn-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware) *http.Server {
	log.Info("Wiring router...")
	return http.NewServer(http.RouterConfig{
		Log:            log,
		ServiceName:    cfg.OtelServiceName,
		AllowedOrigins: cfg.CORSOrigins,

		AuthMiddleware: middleware.Auth,

		HealthHandler:   handlers.Health,
		UserHandler:     handlers.User,
		PersonaHandler:  handlers.Persona,
		ProposalHandler: handlers.Proposal,
		DecisionHandler: handlers.Decision,
		VoteHandler:     handlers.Vote,
		SyncHandler:     handlers.Sync,
		QueueHandler:    handlers.Queue,
	})
}
