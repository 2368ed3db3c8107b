package decision

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	QueuePending    = "pending"
	QueueProcessing = "processing"
	QueueCompleted  = "completed"
	QueueFailed     = "failed"
)

// QueueEntry schedules decision pre-computation for one proposal.
type QueueEntry struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProposalID    uuid.UUID  `gorm:"type:uuid;column:proposal_id;not null;uniqueIndex" json:"proposal_id"`
	Status        string     `gorm:"column:status;not null;index" json:"status"`
	Attempts      int        `gorm:"column:attempts;not null;default:0" json:"attempts"`
	ErrorMessage  string     `gorm:"column:error_message" json:"error_message,omitempty"`
	NextAttemptAt time.Time  `gorm:"column:next_attempt_at;not null;index" json:"next_attempt_at"`
	LockedAt      *time.Time `gorm:"column:locked_at" json:"locked_at,omitempty"`
	CreatedAt     time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
	ProcessedAt   *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`
}

func (QueueEntry) TableName() string { return "ai_processing_queue" }

func (q *QueueEntry) BeforeCreate(*gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
