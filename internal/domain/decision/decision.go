package decision

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	For     = "for"
	Against = "against"
	Abstain = "abstain"
)

// Normalize lower-cases and trims a decision value; ok is false for anything
// outside for/against/abstain.
func Normalize(s string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case For, Against, Abstain:
		return v, true
	default:
		return "", false
	}
}

// AIDecision is unique per (user, proposal, persona).
type AIDecision struct {
	ID                    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                uuid.UUID `gorm:"type:uuid;column:user_id;not null;uniqueIndex:idx_ai_decisions_triple" json:"user_id"`
	ProposalID            uuid.UUID `gorm:"type:uuid;column:proposal_id;not null;uniqueIndex:idx_ai_decisions_triple;index" json:"proposal_id"`
	PersonaID             uuid.UUID `gorm:"type:uuid;column:persona_id;not null;uniqueIndex:idx_ai_decisions_triple;index" json:"persona_id"`
	Decision              string    `gorm:"column:decision;not null" json:"decision"`
	Confidence            int       `gorm:"column:confidence;not null" json:"confidence"`
	PersonaMatch          int       `gorm:"column:persona_match;not null" json:"persona_match"`
	Reasoning             string    `gorm:"column:reasoning" json:"reasoning"`
	ChainOfThought        string    `gorm:"column:chain_of_thought" json:"chain_of_thought,omitempty"`
	RequiresRecalculation bool      `gorm:"column:requires_recalculation;not null;default:false;index" json:"requires_recalculation"`
	Degraded              bool      `gorm:"column:degraded;not null;default:false" json:"degraded"`
	CreatedAt             time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`

	Factors []AIDecisionFactor `gorm:"foreignKey:AIDecisionID;constraint:OnDelete:CASCADE" json:"factors"`
}

func (AIDecision) TableName() string { return "ai_decisions" }

func (d *AIDecision) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// AIDecisionFactor values are signed: negative leans against, positive leans for.
type AIDecisionFactor struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AIDecisionID uuid.UUID `gorm:"type:uuid;column:ai_decision_id;not null;index" json:"ai_decision_id"`
	FactorName   string    `gorm:"column:factor_name;not null" json:"factor_name"`
	FactorValue  int       `gorm:"column:factor_value;not null" json:"factor_value"`
	FactorWeight int       `gorm:"column:factor_weight;not null" json:"factor_weight"`
	Explanation  string    `gorm:"column:explanation" json:"explanation"`
	Position     int       `gorm:"column:position;not null;default:0" json:"-"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (AIDecisionFactor) TableName() string { return "ai_decision_factors" }

func (f *AIDecisionFactor) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
