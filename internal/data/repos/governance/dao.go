package governance

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/platform/dbctx"
	"github.com/govairn/govairn-backend/internal/platform/logger"
)

type DAORepo interface {
	UpsertBySpace(dbc dbctx.Context, space, name string) (*types.DAO, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.DAO, error)
}

type daoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDAORepo(db *gorm.DB, baseLog *logger.Logger) DAORepo {
	return &daoRepo{db: db, log: baseLog.With("repo", "DAORepo")}
}

func (r *daoRepo) UpsertBySpace(dbc dbctx.Context, space, name string) (*types.DAO, error) {
	if name == "" {
		name = space
	}
	q := dbc.DB(r.db)
	d := &types.DAO{SnapshotSpace: space, Name: name}
	if err := q.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "snapshot_space"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"name":       name,
			"updated_at": time.Now().UTC(),
		}),
	}).Create(d).Error; err != nil {
		return nil, err
	}
	var out types.DAO
	if err := dbc.DB(r.db).Where("snapshot_space = ?", space).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *daoRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.DAO, error) {
	var out []*types.DAO
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
