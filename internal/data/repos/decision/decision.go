package decision

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/platform/dbctx"
	"github.com/govairn/govairn-backend/internal/platform/logger"
)

type DecisionRepo interface {
	GetByTriple(dbc dbctx.Context, userID, proposalID, personaID uuid.UUID) (*types.AIDecision, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AIDecision, error)
	// InsertIfAbsent inserts d with its factors unless a row for the triple
	// already exists. inserted is false when another writer got there first.
	InsertIfAbsent(dbc dbctx.Context, d *types.AIDecision) (inserted bool, err error)
	// ClaimRecalculation clears requires_recalculation on id only if it is set.
	// Exactly one concurrent caller observes true.
	ClaimRecalculation(dbc dbctx.Context, id uuid.UUID) (bool, error)
	// Overwrite replaces the generated content and factors of an existing row in place.
	Overwrite(dbc dbctx.Context, d *types.AIDecision) error
	SetRequiresRecalculation(dbc dbctx.Context, id uuid.UUID) error
	MarkPersonaForRecalculation(dbc dbctx.Context, personaID uuid.UUID) (int64, error)
	CountByTriple(dbc dbctx.Context, userID, proposalID, personaID uuid.UUID) (int64, error)
}

type decisionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDecisionRepo(db *gorm.DB, baseLog *logger.Logger) DecisionRepo {
	return &decisionRepo{db: db, log: baseLog.With("repo", "DecisionRepo")}
}

func withFactors(q *gorm.DB) *gorm.DB {
	return q.Preload("Factors", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

func (r *decisionRepo) GetByTriple(dbc dbctx.Context, userID, proposalID, personaID uuid.UUID) (*types.AIDecision, error) {
	var d types.AIDecision
	err := withFactors(dbc.DB(r.db)).
		Where("user_id = ? AND proposal_id = ? AND persona_id = ?", userID, proposalID, personaID).
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *decisionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AIDecision, error) {
	var d types.AIDecision
	err := withFactors(dbc.DB(r.db)).Where("id = ?", id).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *decisionRepo) InsertIfAbsent(dbc dbctx.Context, d *types.AIDecision) (bool, error) {
	inserted := false
	err := r.inTx(dbc, func(tx *gorm.DB) error {
		res := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "user_id"},
					{Name: "proposal_id"},
					{Name: "persona_id"},
				},
				DoNothing: true,
			}).
			Create(d)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		inserted = true
		return insertFactors(tx, d)
	})
	return inserted, err
}

func (r *decisionRepo) ClaimRecalculation(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	res := dbc.DB(r.db).
		Model(&types.AIDecision{}).
		Where("id = ? AND requires_recalculation = ?", id, true).
		Updates(map[string]interface{}{
			"requires_recalculation": false,
			"updated_at":             time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *decisionRepo) Overwrite(dbc dbctx.Context, d *types.AIDecision) error {
	return r.inTx(dbc, func(tx *gorm.DB) error {
		if err := tx.Model(&types.AIDecision{}).
			Where("id = ?", d.ID).
			Updates(map[string]interface{}{
				"decision":               d.Decision,
				"confidence":             d.Confidence,
				"persona_match":          d.PersonaMatch,
				"reasoning":              d.Reasoning,
				"chain_of_thought":       d.ChainOfThought,
				"degraded":               d.Degraded,
				"requires_recalculation": d.RequiresRecalculation,
				"updated_at":             time.Now().UTC(),
			}).Error; err != nil {
			return err
		}
		if err := tx.Where("ai_decision_id = ?", d.ID).Delete(&types.AIDecisionFactor{}).Error; err != nil {
			return err
		}
		return insertFactors(tx, d)
	})
}

func (r *decisionRepo) SetRequiresRecalculation(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.DB(r.db).
		Model(&types.AIDecision{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"requires_recalculation": true,
			"updated_at":             time.Now().UTC(),
		}).Error
}

// MarkPersonaForRecalculation flags every decision of the persona in one statement.
func (r *decisionRepo) MarkPersonaForRecalculation(dbc dbctx.Context, personaID uuid.UUID) (int64, error) {
	res := dbc.DB(r.db).
		Model(&types.AIDecision{}).
		Where("persona_id = ?", personaID).
		Updates(map[string]interface{}{
			"requires_recalculation": true,
			"updated_at":             time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *decisionRepo) CountByTriple(dbc dbctx.Context, userID, proposalID, personaID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.DB(r.db).
		Model(&types.AIDecision{}).
		Where("user_id = ? AND proposal_id = ? AND persona_id = ?", userID, proposalID, personaID).
		Count(&n).Error
	return n, err
}

func (r *decisionRepo) inTx(dbc dbctx.Context, fn func(tx *gorm.DB) error) error {
	if dbc.Tx != nil {
		return fn(dbc.DB(r.db))
	}
	return dbc.DB(r.db).Transaction(fn)
}

func insertFactors(tx *gorm.DB, d *types.AIDecision) error {
	if len(d.Factors) == 0 {
		return nil
	}
	for i := range d.Factors {
		d.Factors[i].ID = uuid.Nil
		d.Factors[i].AIDecisionID = d.ID
		d.Factors[i].Position = i
	}
	return tx.Create(&d.Factors).Error
}
