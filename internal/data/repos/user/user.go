package user

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/platform/dbctx"
	"github.com/govairn/govairn-backend/internal/platform/logger"
)

type UserRepo interface {
	UpsertByWallet(dbc dbctx.Context, wallet string) (*types.User, error)
	// Ensure creates the user with the given id and wallet unless it exists.
	Ensure(dbc dbctx.Context, id uuid.UUID, wallet string) (*types.User, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error)
	GetByWallet(dbc dbctx.Context, wallet string) (*types.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

// UpsertByWallet returns the user owning wallet, creating it on first sight.
// wallet must already be normalized.
func (r *userRepo) UpsertByWallet(dbc dbctx.Context, wallet string) (*types.User, error) {
	q := dbc.DB(r.db)
	u := &types.User{WalletAddress: wallet}
	if err := q.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "wallet_address"}},
		DoNothing: true,
	}).Create(u).Error; err != nil {
		return nil, err
	}
	return r.GetByWallet(dbc, wallet)
}

func (r *userRepo) Ensure(dbc dbctx.Context, id uuid.UUID, wallet string) (*types.User, error) {
	u := &types.User{ID: id, WalletAddress: wallet}
	if err := dbc.DB(r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(u).Error; err != nil {
		return nil, err
	}
	return r.GetByID(dbc, id)
}

func (r *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	var u types.User
	err := dbc.DB(r.db).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetByWallet(dbc dbctx.Context, wallet string) (*types.User, error) {
	var u types.User
	err := dbc.DB(r.db).Where("wallet_address = ?", wallet).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
