package user

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PersonaValues is the five-parameter governance preference vector, each in 0..100.
type PersonaValues struct {
	Risk      int `json:"risk" yaml:"risk"`
	ESG       int `json:"esg" yaml:"esg"`
	Treasury  int `json:"treasury" yaml:"treasury"`
	Horizon   int `json:"horizon" yaml:"horizon"`
	Frequency int `json:"frequency" yaml:"frequency"`
}

func (v PersonaValues) Validate() error {
	fields := []struct {
		name string
		val  int
	}{
		{"risk", v.Risk},
		{"esg", v.ESG},
		{"treasury", v.Treasury},
		{"horizon", v.Horizon},
		{"frequency", v.Frequency},
	}
	for _, f := range fields {
		if f.val < 0 || f.val > 100 {
			return fmt.Errorf("%s must be between 0 and 100, got %d", f.name, f.val)
		}
	}
	return nil
}

// Persona is never hard-deleted; a new active persona supersedes the old one.
type Persona struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Risk      int       `gorm:"column:risk;not null" json:"risk"`
	ESG       int       `gorm:"column:esg;not null" json:"esg"`
	Treasury  int       `gorm:"column:treasury;not null" json:"treasury"`
	Horizon   int       `gorm:"column:horizon;not null" json:"horizon"`
	Frequency int       `gorm:"column:frequency;not null" json:"frequency"`
	IsActive  bool      `gorm:"column:is_active;not null;default:false" json:"is_active"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Persona) TableName() string { return "personas" }

func (p *Persona) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p Persona) Values() PersonaValues {
	return PersonaValues{
		Risk:      p.Risk,
		ESG:       p.ESG,
		Treasury:  p.Treasury,
		Horizon:   p.Horizon,
		Frequency: p.Frequency,
	}
}

func (p *Persona) SetValues(v PersonaValues) {
	p.Risk = v.Risk
	p.ESG = v.ESG
	p.Treasury = v.Treasury
	p.Horizon = v.Horizon
	p.Frequency = v.Frequency
}
