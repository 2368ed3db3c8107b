package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/platform/dbctx"
	"github.com/govairn/govairn-backend/internal/platform/logger"
)

type PersonaRepo interface {
	Create(dbc dbctx.Context, p *types.Persona) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Persona, error)
	GetActive(dbc dbctx.Context, userID uuid.UUID) (*types.Persona, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Persona, error)
	ListActive(dbc dbctx.Context) ([]*types.Persona, error)
	DeactivateAll(dbc dbctx.Context, userID uuid.UUID) error
	Activate(dbc dbctx.Context, id uuid.UUID) error
	UpdateValues(dbc dbctx.Context, id uuid.UUID, name string, v types.PersonaValues) error
}

type personaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPersonaRepo(db *gorm.DB, baseLog *logger.Logger) PersonaRepo {
	return &personaRepo{db: db, log: baseLog.With("repo", "PersonaRepo")}
}

func (r *personaRepo) Create(dbc dbctx.Context, p *types.Persona) error {
	return dbc.DB(r.db).Create(p).Error
}

func (r *personaRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Persona, error) {
	var p types.Persona
	err := dbc.DB(r.db).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetActive returns nil, nil when the user has no active persona.
func (r *personaRepo) GetActive(dbc dbctx.Context, userID uuid.UUID) (*types.Persona, error) {
	var p types.Persona
	err := dbc.DB(r.db).
		Where("user_id = ? AND is_active = ?", userID, true).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *personaRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Persona, error) {
	var out []*types.Persona
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *personaRepo) ListActive(dbc dbctx.Context) ([]*types.Persona, error) {
	var out []*types.Persona
	if err := dbc.DB(r.db).
		Where("is_active = ?", true).
		Order("user_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *personaRepo) DeactivateAll(dbc dbctx.Context, userID uuid.UUID) error {
	return dbc.DB(r.db).
		Model(&types.Persona{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *personaRepo) Activate(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.DB(r.db).
		Model(&types.Persona{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  true,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *personaRepo) UpdateValues(dbc dbctx.Context, id uuid.UUID, name string, v types.PersonaValues) error {
	updates := map[string]interface{}{
		"risk":       v.Risk,
		"esg":        v.ESG,
		"treasury":   v.Treasury,
		"horizon":    v.Horizon,
		"frequency":  v.Frequency,
		"updated_at": time.Now().UTC(),
	}
	if name != "" {
		updates["name"] = name
	}
	return dbc.DB(r.db).
		Model(&types.Persona{}).
		Where("id = ?", id).
		Updates(updates).Error
}
