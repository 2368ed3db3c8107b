package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/govairn/govairn-backend/internal/data/repos"
	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/platform/apierr"
	"github.com/govairn/govairn-backend/internal/platform/dbctx"
	"github.com/govairn/govairn-backend/internal/platform/logger"
)

type DecisionService interface {
	// GetOrCreate returns the cached decision for the triple, generating it on
	// a miss or when the row is flagged for recalculation.
	GetOrCreate(ctx context.Context, userID, proposalID, personaID uuid.UUID) (*types.AIDecision, error)
	GetForActivePersona(ctx context.Context, userID, proposalID uuid.UUID) (*types.AIDecision, error)
	// Recalculate forces regeneration of the active persona's decision.
	Recalculate(ctx context.Context, userID, proposalID uuid.UUID) (*types.AIDecision, error)
	MarkPersonaForRecalculation(ctx context.Context, personaID uuid.UUID) (int64, error)
}

type decisionService struct {
	db           *gorm.DB
	log          *logger.Logger
	decisionRepo repos.DecisionRepo
	personaRepo  repos.PersonaRepo
	proposalRepo repos.ProposalRepo
	generator    DecisionGenerator
	inflight     singleflight.Group
}

func NewDecisionService(
	db *gorm.DB,
	log *logger.Logger,
	decisionRepo repos.DecisionRepo,
	personaRepo repos.PersonaRepo,
	proposalRepo repos.ProposalRepo,
	generator DecisionGenerator,
) DecisionService {
	return &decisionService{
		db:           db,
		log:          log.With("service", "DecisionService"),
		decisionRepo: decisionRepo,
		personaRepo:  personaRepo,
		proposalRepo: proposalRepo,
		generator:    generator,
	}
}

func (s *decisionService) GetOrCreate(ctx context.Context, userID, proposalID, personaID uuid.UUID) (*types.AIDecision, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	if proposalID == uuid.Nil || personaID == uuid.Nil {
		return nil, apierr.Invalid("proposal and persona ids are required")
	}
	key := userID.String() + ":" + proposalID.String() + ":" + personaID.String()
	// The shared call outlives any one caller; the generator timeout bounds it.
	ch := s.inflight.DoChan(key, func() (interface{}, error) {
		return s.getOrCreate(context.WithoutCancel(ctx), userID, proposalID, personaID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*types.AIDecision), nil
	}
}

func (s *decisionService) getOrCreate(ctx context.Context, userID, proposalID, personaID uuid.UUID) (*types.AIDecision, error) {
	dbc := dbctx.New(ctx)

	existing, err := s.decisionRepo.GetByTriple(dbc, userID, proposalID, personaID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch decision: %w", err)
	}
	if existing != nil && !existing.RequiresRecalculation {
		return existing, nil
	}

	persona, proposal, err := s.loadInputs(dbc, userID, proposalID, personaID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		won, err := s.decisionRepo.ClaimRecalculation(dbc, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("claim recalculation: %w", err)
		}
		if !won {
			// Another caller is regenerating; serve what is stored.
			return s.decisionRepo.GetByID(dbc, existing.ID)
		}
		return s.regenerate(ctx, existing, persona, proposal)
	}

	outcome := s.generator.Generate(ctx, persona.Values(), proposal)
	d := &types.AIDecision{
		UserID:     userID,
		ProposalID: proposalID,
		PersonaID:  personaID,
	}
	applyOutcome(d, outcome)
	inserted, err := s.decisionRepo.InsertIfAbsent(dbc, d)
	if err != nil {
		return nil, fmt.Errorf("failed to store decision: %w", err)
	}
	if !inserted {
		s.log.Debug("Lost decision insert race; returning stored row",
			"user_id", userID, "proposal_id", proposalID, "persona_id", personaID)
	}
	stored, err := s.decisionRepo.GetByTriple(dbc, userID, proposalID, personaID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch decision: %w", err)
	}
	if stored == nil {
		return nil, fmt.Errorf("decision missing after insert: %w", apierr.ErrNotFound)
	}
	return stored, nil
}

func (s *decisionService) regenerate(ctx context.Context, d *types.AIDecision, persona *types.Persona, proposal *types.Proposal) (*types.AIDecision, error) {
	dbc := dbctx.New(ctx)
	outcome := s.generator.Generate(ctx, persona.Values(), proposal)
	applyOutcome(d, outcome)
	if err := s.decisionRepo.Overwrite(dbc, d); err != nil {
		// Put the flag back so the stale content is not served as fresh.
		if rErr := s.decisionRepo.SetRequiresRecalculation(dbctx.New(context.WithoutCancel(ctx)), d.ID); rErr != nil {
			s.log.Error("Failed to restore recalculation flag", "decision_id", d.ID, "error", rErr)
		}
		return nil, fmt.Errorf("failed to store regenerated decision: %w", err)
	}
	s.log.Info("Decision regenerated", "decision_id", d.ID, "degraded", outcome.Degraded)
	return s.decisionRepo.GetByID(dbc, d.ID)
}

func (s *decisionService) loadInputs(dbc dbctx.Context, userID, proposalID, personaID uuid.UUID) (*types.Persona, *types.Proposal, error) {
	persona, err := s.personaRepo.GetByID(dbc, personaID)
	if err != nil {
		return nil, nil, fmt.Errorf("load persona: %w", err)
	}
	if persona == nil || persona.UserID != userID {
		return nil, nil, ErrPersonaNotFound
	}
	proposal, err := s.proposalRepo.GetByID(dbc, proposalID)
	if err != nil {
		return nil, nil, fmt.Errorf("load proposal: %w", err)
	}
	if proposal == nil {
		return nil, nil, ErrProposalNotFound
	}
	return persona, proposal, nil
}

// applyOutcome copies generated content onto d. Degraded outcomes stay flagged
// so the next read retries the provider.
func applyOutcome(d *types.AIDecision, o Outcome) {
	g := Resolve(o)
	d.Decision = g.Decision
	d.Confidence = g.Confidence
	d.PersonaMatch = g.PersonaMatch
	d.Reasoning = g.Reasoning
	d.ChainOfThought = g.ChainOfThought
	d.Degraded = o.Degraded
	d.RequiresRecalculation = o.Degraded
	d.Factors = lo.Map(g.Factors, func(f GeneratedFactor, _ int) types.AIDecisionFactor {
		return types.AIDecisionFactor{
			FactorName:   f.Name,
			FactorValue:  f.Value,
			FactorWeight: f.Weight,
			Explanation:  f.Explanation,
		}
	})
}

func (s *decisionService) GetForActivePersona(ctx context.Context, userID, proposalID uuid.UUID) (*types.AIDecision, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	persona, err := s.personaRepo.GetActive(dbctx.New(ctx), userID)
	if err != nil {
		return nil, fmt.Errorf("load active persona: %w", err)
	}
	if persona == nil {
		return nil, ErrNoActivePersona
	}
	return s.GetOrCreate(ctx, userID, proposalID, persona.ID)
}

func (s *decisionService) Recalculate(ctx context.Context, userID, proposalID uuid.UUID) (*types.AIDecision, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	dbc := dbctx.New(ctx)
	persona, err := s.personaRepo.GetActive(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("load active persona: %w", err)
	}
	if persona == nil {
		return nil, ErrNoActivePersona
	}
	existing, err := s.decisionRepo.GetByTriple(dbc, userID, proposalID, persona.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch decision: %w", err)
	}
	if existing != nil {
		if err := s.decisionRepo.SetRequiresRecalculation(dbc, existing.ID); err != nil {
			return nil, fmt.Errorf("flag decision: %w", err)
		}
	}
	return s.GetOrCreate(ctx, userID, proposalID, persona.ID)
}

func (s *decisionService) MarkPersonaForRecalculation(ctx context.Context, personaID uuid.UUID) (int64, error) {
	if personaID == uuid.Nil {
		return 0, apierr.Invalid("persona id is required")
	}
	return s.decisionRepo.MarkPersonaForRecalculation(dbctx.New(ctx), personaID)
}
