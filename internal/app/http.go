package app

import (
	"gorm.io/gorm"

	httpH "github.com/govairn/govairn-backend/internal/http/handlers"
	httpMW "github.com/govairn/govairn-backend/internal/http/middleware"
	"github.com/govairn/govairn-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	User     *httpH.UserHandler
	Persona  *httpH.PersonaHandler
	Proposal *httpH.ProposalHandler
	Decision *httpH.DecisionHandler
	Vote     *httpH.VoteHandler
	Sync     *httpH.SyncHandler
	Queue    *httpH.QueueHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(db),
		User:     httpH.NewUserHandler(log, services.User),
		Persona:  httpH.NewPersonaHandler(log, services.Persona),
		Proposal: httpH.NewProposalHandler(log, services.Proposal),
		Decision: httpH.NewDecisionHandler(log, services.Decision, services.Vote),
		Vote:     httpH.NewVoteHandler(log, services.Vote),
		Sync:     httpH.NewSyncHandler(log, services.Sync),
		Queue:    httpH.NewQueueHandler(log, services.Queue),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth, services.User),
	}
}
