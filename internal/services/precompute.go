package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/govairn/govairn-backend/internal/data/repos"
	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/platform/dbctx"
	"github.com/govairn/govairn-backend/internal/platform/logger"
)

// Precomputer warms the decision cache for a proposal across every user's
// active persona.
type Precomputer interface {
	ProcessProposal(ctx context.Context, proposalID uuid.UUID) (PrecomputeResult, error)
}

type PrecomputeResult struct {
	ProposalID uuid.UUID `json:"proposal_id"`
	Personas   int       `json:"personas"`
	Resolved   int       `json:"resolved"`
	Degraded   int       `json:"degraded"`
	Skipped    bool      `json:"skipped"`
}

type precomputer struct {
	log          *logger.Logger
	decisions    DecisionService
	personaRepo  repos.PersonaRepo
	proposalRepo repos.ProposalRepo
	parallelism  int
}

func NewPrecomputer(log *logger.Logger, decisions DecisionService, personaRepo repos.PersonaRepo, proposalRepo repos.ProposalRepo, parallelism int) Precomputer {
	if parallelism <= 0 {
		parallelism = 4
	}
	return &precomputer{
		log:          log.With("service", "Precomputer"),
		decisions:    decisions,
		personaRepo:  personaRepo,
		proposalRepo: proposalRepo,
		parallelism:  parallelism,
	}
}

func (p *precomputer) ProcessProposal(ctx context.Context, proposalID uuid.UUID) (PrecomputeResult, error) {
	res := PrecomputeResult{ProposalID: proposalID}
	dbc := dbctx.New(ctx)
	prop, err := p.proposalRepo.GetByID(dbc, proposalID)
	if err != nil {
		return res, fmt.Errorf("load proposal: %w", err)
	}
	if prop == nil {
		return res, ErrProposalNotFound
	}
	if prop.Status != types.ProposalActive {
		res.Skipped = true
		return res, nil
	}
	personas, err := p.personaRepo.ListActive(dbc)
	if err != nil {
		return res, fmt.Errorf("list active personas: %w", err)
	}
	res.Personas = len(personas)

	results := make([]*types.AIDecision, len(personas))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallelism)
	for i, persona := range personas {
		g.Go(func() error {
			d, err := p.decisions.GetOrCreate(gctx, persona.UserID, proposalID, persona.ID)
			if err != nil {
				return fmt.Errorf("persona %s: %w", persona.ID, err)
			}
			results[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	for _, d := range results {
		res.Resolved++
		if d.Degraded {
			res.Degraded++
		}
	}
	if res.Degraded > 0 {
		return res, fmt.Errorf("%d of %d decisions degraded", res.Degraded, res.Personas)
	}
	p.log.Info("Proposal decisions precomputed", "proposal_id", proposalID, "personas", res.Personas)
	return res, nil
}
