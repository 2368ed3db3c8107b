package governance

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DAO is a Snapshot space.
type DAO struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SnapshotSpace string    `gorm:"column:snapshot_space;not null;uniqueIndex" json:"snapshot_space"`
	Name          string    `gorm:"column:name;not null" json:"name"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (DAO) TableName() string { return "daos" }

func (d *DAO) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
