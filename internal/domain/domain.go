package domain

import (
	"github.com/govairn/govairn-backend/internal/domain/decision"
	"github.com/govairn/govairn-backend/internal/domain/governance"
	"github.com/govairn/govairn-backend/internal/domain/user"
)

type (
	User          = user.User
	Persona       = user.Persona
	PersonaValues = user.PersonaValues

	DAO      = governance.DAO
	Proposal = governance.Proposal
	Vote     = governance.Vote

	AIDecision       = decision.AIDecision
	AIDecisionFactor = decision.AIDecisionFactor
	QueueEntry       = decision.QueueEntry
)

const (
	DecisionFor     = decision.For
	DecisionAgainst = decision.Against
	DecisionAbstain = decision.Abstain

	ProposalPending  = governance.ProposalPending
	ProposalActive   = governance.ProposalActive
	ProposalExecuted = governance.ProposalExecuted
	ProposalMissed   = governance.ProposalMissed

	QueuePending    = decision.QueuePending
	QueueProcessing = decision.QueueProcessing
	QueueCompleted  = decision.QueueCompleted
	QueueFailed     = decision.QueueFailed
)

// Models lists every persisted model in migration order.
func Models() []any {
	return []any{
		&User{},
		&Persona{},
		&DAO{},
		&Proposal{},
		&AIDecision{},
		&AIDecisionFactor{},
		&QueueEntry{},
		&Vote{},
	}
}
