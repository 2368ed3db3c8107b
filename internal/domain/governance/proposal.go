package governance

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ProposalPending  = "pending"
	ProposalActive   = "active"
	ProposalExecuted = "executed"
	// ProposalMissed is never stored; it is derived per user for executed
	// proposals the user did not vote on.
	ProposalMissed = "missed"
)

// StatusFromSnapshot maps a Snapshot state onto the stored proposal status.
func StatusFromSnapshot(state string) string {
	switch state {
	case "active":
		return ProposalActive
	case "closed":
		return ProposalExecuted
	default:
		return ProposalPending
	}
}

type Proposal struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalID  string         `gorm:"column:external_id;not null;uniqueIndex" json:"external_id"`
	DAOID       uuid.UUID      `gorm:"type:uuid;column:dao_id;not null;index" json:"dao_id"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Description string         `gorm:"column:description" json:"description"`
	Choices     datatypes.JSON `gorm:"column:choices" json:"choices"`
	Status      string         `gorm:"column:status;not null;index" json:"status"`
	StartTime   time.Time      `gorm:"column:start_time" json:"start_time"`
	EndTime     time.Time      `gorm:"column:end_time;index" json:"end_time"`
	URL         string         `gorm:"column:url" json:"url"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Proposal) TableName() string { return "proposals" }

func (p *Proposal) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p Proposal) ChoiceList() []string {
	var out []string
	if len(p.Choices) == 0 {
		return out
	}
	_ = json.Unmarshal(p.Choices, &out)
	return out
}

func EncodeChoices(choices []string) datatypes.JSON {
	if choices == nil {
		choices = []string{}
	}
	raw, _ := json.Marshal(choices)
	return datatypes.JSON(raw)
}
