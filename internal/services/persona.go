package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/govairn/govairn-backend/internal/data/db"
	"github.com/govairn/govairn-backend/internal/data/repos"
	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/platform/apierr"
	"github.com/govairn/govairn-backend/internal/platform/dbctx"
	"github.com/govairn/govairn-backend/internal/platform/logger"
)

type PersonaService interface {
	GetActive(ctx context.Context, userID uuid.UUID) (*types.Persona, error)
	List(ctx context.Context, userID uuid.UUID) ([]*types.Persona, error)
	// Create supersedes the user's active persona with a new one.
	Create(ctx context.Context, userID uuid.UUID, name string, v types.PersonaValues) (*types.Persona, error)
	CreateFromPreset(ctx context.Context, userID uuid.UUID, key string) (*types.Persona, error)
	// Update rewrites the persona and, when any value changed, flags all of
	// its decisions for recalculation in the same transaction.
	Update(ctx context.Context, userID, personaID uuid.UUID, name string, v types.PersonaValues) (*types.Persona, error)
	Activate(ctx context.Context, userID, personaID uuid.UUID) (*types.Persona, error)
	Presets() []PersonaPreset
}

type personaService struct {
	db           *gorm.DB
	log          *logger.Logger
	personaRepo  repos.PersonaRepo
	decisionRepo repos.DecisionRepo
	presets      []PersonaPreset
}

func NewPersonaService(db *gorm.DB, log *logger.Logger, personaRepo repos.PersonaRepo, decisionRepo repos.DecisionRepo) (PersonaService, error) {
	presets, err := loadPresets(presetsYAML)
	if err != nil {
		return nil, err
	}
	return &personaService{
		db:           db,
		log:          log.With("service", "PersonaService"),
		personaRepo:  personaRepo,
		decisionRepo: decisionRepo,
		presets:      presets,
	}, nil
}

func (ps *personaService) GetActive(ctx context.Context, userID uuid.UUID) (*types.Persona, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	p, err := ps.personaRepo.GetActive(dbctx.New(ctx), userID)
	if err != nil {
		return nil, fmt.Errorf("load active persona: %w", err)
	}
	if p == nil {
		return nil, ErrNoActivePersona
	}
	return p, nil
}

func (ps *personaService) List(ctx context.Context, userID uuid.UUID) ([]*types.Persona, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	return ps.personaRepo.ListByUser(dbctx.New(ctx), userID)
}

func (ps *personaService) Create(ctx context.Context, userID uuid.UUID, name string, v types.PersonaValues) (*types.Persona, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	if err := v.Validate(); err != nil {
		return nil, apierr.Invalid("%s", err.Error())
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "My persona"
	}
	p := &types.Persona{UserID: userID, Name: name, IsActive: true}
	p.SetValues(v)

	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := ps.personaRepo.DeactivateAll(dbc, userID); err != nil {
			return err
		}
		return ps.personaRepo.Create(dbc, p)
	})
	if db.IsUniqueViolation(err) {
		return nil, fmt.Errorf("%w: concurrent persona activation", apierr.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("create persona: %w", err)
	}
	ps.log.Info("Persona created", "user_id", userID, "persona_id", p.ID)
	return p, nil
}

func (ps *personaService) CreateFromPreset(ctx context.Context, userID uuid.UUID, key string) (*types.Persona, error) {
	preset, ok := lo.Find(ps.presets, func(p PersonaPreset) bool {
		return strings.EqualFold(p.Key, strings.TrimSpace(key))
	})
	if !ok {
		return nil, ErrUnknownPreset
	}
	return ps.Create(ctx, userID, preset.Name, preset.Values)
}

func (ps *personaService) Update(ctx context.Context, userID, personaID uuid.UUID, name string, v types.PersonaValues) (*types.Persona, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	if err := v.Validate(); err != nil {
		return nil, apierr.Invalid("%s", err.Error())
	}
	var flagged int64
	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		current, err := ps.owned(dbc, userID, personaID)
		if err != nil {
			return err
		}
		if err := ps.personaRepo.UpdateValues(dbc, personaID, strings.TrimSpace(name), v); err != nil {
			return err
		}
		if current.Values() == v {
			return nil
		}
		flagged, err = ps.decisionRepo.MarkPersonaForRecalculation(dbc, personaID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if flagged > 0 {
		ps.log.Info("Persona edited; decisions flagged for recalculation", "persona_id", personaID, "decisions", flagged)
	}
	return ps.personaRepo.GetByID(dbctx.New(ctx), personaID)
}

func (ps *personaService) Activate(ctx context.Context, userID, personaID uuid.UUID) (*types.Persona, error) {
	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := ps.owned(dbc, userID, personaID); err != nil {
			return err
		}
		if err := ps.personaRepo.DeactivateAll(dbc, userID); err != nil {
			return err
		}
		return ps.personaRepo.Activate(dbc, personaID)
	})
	if err != nil {
		return nil, err
	}
	return ps.personaRepo.GetByID(dbctx.New(ctx), personaID)
}

func (ps *personaService) Presets() []PersonaPreset {
	return append([]PersonaPreset(nil), ps.presets...)
}

func (ps *personaService) owned(dbc dbctx.Context, userID, personaID uuid.UUID) (*types.Persona, error) {
	p, err := ps.personaRepo.GetByID(dbc, personaID)
	if err != nil {
		return nil, fmt.Errorf("load persona: %w", err)
	}
	if p == nil || p.UserID != userID {
		return nil, ErrPersonaNotFound
	}
	return p, nil
}
