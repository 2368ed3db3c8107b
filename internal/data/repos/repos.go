package repos

import (
	"gorm.io/gorm"

	"github.com/govairn/govairn-backend/internal/data/repos/decision"
	"github.com/govairn/govairn-backend/internal/data/repos/governance"
	"github.com/govairn/govairn-backend/internal/data/repos/user"
	"github.com/govairn/govairn-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type PersonaRepo = user.PersonaRepo

type DAORepo = governance.DAORepo
type ProposalRepo = governance.ProposalRepo
type ProposalFilter = governance.ProposalFilter
type VoteRepo = governance.VoteRepo

type DecisionRepo = decision.DecisionRepo
type QueueRepo = decision.QueueRepo

// Set bundles every repository over one connection.
type Set struct {
	Users     UserRepo
	Personas  PersonaRepo
	DAOs      DAORepo
	Proposals ProposalRepo
	Votes     VoteRepo
	Decisions DecisionRepo
	Queue     QueueRepo
}

func NewSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Users:     user.NewUserRepo(db, log),
		Personas:  user.NewPersonaRepo(db, log),
		DAOs:      governance.NewDAORepo(db, log),
		Proposals: governance.NewProposalRepo(db, log),
		Votes:     governance.NewVoteRepo(db, log),
		Decisions: decision.NewDecisionRepo(db, log),
		Queue:     decision.NewQueueRepo(db, log),
	}
}
