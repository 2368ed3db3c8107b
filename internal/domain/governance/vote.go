package governance

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vote is irreversible: one per (user, proposal).
type Vote struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID  `gorm:"type:uuid;column:user_id;not null;uniqueIndex:idx_votes_user_proposal" json:"user_id"`
	ProposalID       uuid.UUID  `gorm:"type:uuid;column:proposal_id;not null;uniqueIndex:idx_votes_user_proposal;index" json:"proposal_id"`
	AIDecisionID     *uuid.UUID `gorm:"type:uuid;column:ai_decision_id" json:"ai_decision_id,omitempty"`
	Choice           string     `gorm:"column:choice;not null" json:"choice"`
	IsAIDecided      bool       `gorm:"column:is_ai_decided;not null;default:false" json:"is_ai_decided"`
	IsManualOverride bool       `gorm:"column:is_manual_override;not null;default:false" json:"is_manual_override"`
	WalletAddress    string     `gorm:"column:wallet_address" json:"wallet_address"`
	CreatedAt        time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Vote) TableName() string { return "votes" }

func (v *Vote) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
