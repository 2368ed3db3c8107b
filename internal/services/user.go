package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/govairn/govairn-backend/internal/data/repos"
	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/platform/apierr"
	"github.com/govairn/govairn-backend/internal/platform/ctxutil"
	"github.com/govairn/govairn-backend/internal/platform/dbctx"
	"github.com/govairn/govairn-backend/internal/platform/logger"
	"github.com/govairn/govairn-backend/internal/platform/wallet"
)

type UserService interface {
	// EnsureUser upserts the authenticated caller on first sight.
	EnsureUser(ctx context.Context, id uuid.UUID, addr string) (*types.User, error)
	GetMe(ctx context.Context) (*types.User, error)
	// FindOrCreateByWallet is used by operator tooling that mints tokens.
	FindOrCreateByWallet(ctx context.Context, addr string) (*types.User, error)
}

type userService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo) UserService {
	return &userService{
		db:       db,
		log:      log.With("service", "UserService"),
		userRepo: userRepo,
	}
}

func (us *userService) EnsureUser(ctx context.Context, id uuid.UUID, addr string) (*types.User, error) {
	if id == uuid.Nil {
		return nil, ErrMissingUser
	}
	normalized, err := wallet.Normalize(addr)
	if err != nil {
		return nil, ErrMissingWallet
	}
	u, err := us.userRepo.Ensure(dbctx.New(ctx), id, normalized)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	if u == nil {
		// The wallet is already bound to a different user id.
		return nil, fmt.Errorf("%w: wallet already registered to another user", apierr.ErrConflict)
	}
	if !wallet.Equal(u.WalletAddress, normalized) {
		return nil, fmt.Errorf("%w: token wallet does not match user", apierr.ErrUnauthorized)
	}
	return u, nil
}

func (us *userService) GetMe(ctx context.Context) (*types.User, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil {
		us.log.Warn("Request data not set in context")
		return nil, ErrMissingUser
	}
	u, err := us.userRepo.GetByID(dbctx.New(ctx), rd.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("user: %w", apierr.ErrNotFound)
	}
	return u, nil
}

func (us *userService) FindOrCreateByWallet(ctx context.Context, addr string) (*types.User, error) {
	normalized, err := wallet.Normalize(addr)
	if err != nil {
		return nil, ErrMissingWallet
	}
	u, err := us.userRepo.UpsertByWallet(dbctx.New(ctx), normalized)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}
