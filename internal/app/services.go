package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/govairn/govairn-backend/internal/data/repos"
	"github.com/govairn/govairn-backend/internal/jobs/worker"
	"github.com/govairn/govairn-backend/internal/platform/logger"
	"github.com/govairn/govairn-backend/internal/services"
)

type Services struct {
	Auth        services.AuthService
	User        services.UserService
	Persona     services.PersonaService
	Proposal    services.ProposalService
	Decision    services.DecisionService
	Vote        services.VoteService
	Queue       services.QueueService
	Sync        services.ProposalSync
	Precomputer services.Precomputer
	Worker      *worker.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repoSet repos.Set, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	authService := services.NewAuthService(log, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.JWTIssuer)
	userService := services.NewUserService(db, log, repoSet.Users)

	personaService, err := services.NewPersonaService(db, log, repoSet.Personas, repoSet.Decisions)
	if err != nil {
		return Services{}, fmt.Errorf("init persona service: %w", err)
	}

	generator := services.NewDecisionGenerator(log, clients.OpenAI, services.GeneratorConfig{
		Timeout:          cfg.GenerationTimeout,
		DescriptionLimit: cfg.DescriptionTruncateChars,
	})
	decisionService := services.NewDecisionService(db, log, repoSet.Decisions, repoSet.Personas, repoSet.Proposals, generator)

	proposalService := services.NewProposalService(log, repoSet.Proposals, repoSet.DAOs, repoSet.Votes)
	voteService := services.NewVoteService(log, repoSet.Votes, repoSet.Proposals, decisionService)
	queueService := services.NewQueueService(log, repoSet.Queue)

	syncService := services.NewProposalSync(log, clients.Snapshot, repoSet.DAOs, repoSet.Proposals, repoSet.Queue, services.SyncConfig{
		Spaces:   cfg.SnapshotSpaces,
		State:    cfg.SnapshotState,
		PageSize: cfg.SnapshotPageSize,
		MaxPages: cfg.SnapshotMaxPages,
	})

	precomputer := services.NewPrecomputer(log, decisionService, repoSet.Personas, repoSet.Proposals, cfg.PrecomputeParallelism)
	queueWorker := worker.NewWorker(log, repoSet.Queue, precomputer, worker.Config{
		Concurrency:     cfg.WorkerConcurrency,
		PollInterval:    cfg.WorkerPollInterval,
		StaleProcessing: cfg.QueueStaleProcessing,
		Retry: worker.RetryPolicy{
			MaxAttempts: cfg.QueueMaxAttempts,
			BaseBackoff: cfg.QueueBaseBackoff,
			MaxBackoff:  cfg.QueueMaxBackoff,
		},
	})

	return Services{
		Auth:        authService,
		User:        userService,
		Persona:     personaService,
		Proposal:    proposalService,
		Decision:    decisionService,
		Vote:        voteService,
		Queue:       queueService,
		Sync:        syncService,
		Precomputer: precomputer,
		Worker:      queueWorker,
	}, nil
}
