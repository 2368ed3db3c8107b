package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/observability"
	"github.com/govairn/govairn-backend/internal/platform/logger"
	"github.com/govairn/govairn-backend/internal/platform/openai"
)

type DecisionGenerator interface {
	// Generate never fails; provider and parse failures come back as a
	// degraded Outcome.
	Generate(ctx context.Context, persona types.PersonaValues, proposal *types.Proposal) Outcome
}

type GeneratorConfig struct {
	Timeout          time.Duration
	DescriptionLimit int
}

type decisionGenerator struct {
	log *logger.Logger
	llm openai.Client
	cfg GeneratorConfig
}

func NewDecisionGenerator(log *logger.Logger, llm openai.Client, cfg GeneratorConfig) DecisionGenerator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.DescriptionLimit <= 0 {
		cfg.DescriptionLimit = DefaultDescriptionLimit
	}
	return &decisionGenerator{
		log: log.With("service", "DecisionGenerator"),
		llm: llm,
		cfg: cfg,
	}
}

func (g *decisionGenerator) Generate(ctx context.Context, persona types.PersonaValues, proposal *types.Proposal) Outcome {
	if g.llm == nil {
		return g.degraded(proposal, ReasonProviderError, errors.New("no LLM client configured"))
	}
	if proposal == nil {
		return g.degraded(nil, ReasonProviderError, errors.New("nil proposal"))
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()
	callCtx, span := observability.StartSpan(callCtx, "decision.generate",
		attribute.String("proposal.id", proposal.ID.String()))
	defer span.End()

	start := time.Now()
	raw, err := g.llm.CompleteJSON(callCtx,
		buildSystemPrompt(persona),
		buildUserPrompt(proposal.Title, proposal.Description, g.cfg.DescriptionLimit),
	)
	if err != nil {
		reason := ReasonProviderError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			reason = ReasonTimeout
		}
		span.SetAttributes(attribute.String("decision.degraded_reason", string(reason)))
		return g.degraded(proposal, reason, err)
	}

	d, reason, err := ParseDecision(raw)
	if err != nil {
		span.SetAttributes(attribute.String("decision.degraded_reason", string(reason)))
		return g.degraded(proposal, reason, err)
	}
	g.log.Debug("Decision generated",
		"proposal_id", proposal.ID,
		"decision", d.Decision,
		"confidence", d.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return Outcome{Decision: d}
}

func (g *decisionGenerator) degraded(proposal *types.Proposal, reason DegradedReason, err error) Outcome {
	kv := []interface{}{"reason", string(reason), "error", err}
	if proposal != nil {
		kv = append(kv, "proposal_id", proposal.ID)
	}
	g.log.Warn("Decision generation degraded; using fallback", kv...)
	return Outcome{
		Decision: FallbackDecision(reason),
		Degraded: true,
		Reason:   reason,
		Err:      err,
	}
}
