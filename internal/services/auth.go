package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/govairn/govairn-backend/internal/platform/apierr"
	"github.com/govairn/govairn-backend/internal/platform/logger"
	"github.com/govairn/govairn-backend/internal/platform/wallet"
)

// JWTClaims is the session token minted by the wallet sign-in flow.
type JWTClaims struct {
	Wallet string `json:"wallet"`
	jwt.RegisteredClaims
}

type Identity struct {
	UserID uuid.UUID
	Wallet string
}

type AuthService interface {
	Verify(tokenString string) (*Identity, error)
	Issue(userID uuid.UUID, wallet string) (string, error)
}

type authService struct {
	log    *logger.Logger
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewAuthService(log *logger.Logger, secret string, ttl time.Duration, issuer string) AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &authService{
		log:    log.With("service", "AuthService"),
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
	}
}

func (as *authService) Verify(tokenString string) (*Identity, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, fmt.Errorf("%w: missing token", apierr.ErrUnauthorized)
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return as.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apierr.ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid or expired token", apierr.ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id in token", apierr.ErrUnauthorized)
	}
	addr, err := wallet.Normalize(claims.Wallet)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid wallet claim", apierr.ErrUnauthorized)
	}
	return &Identity{UserID: userID, Wallet: addr}, nil
}

func (as *authService) Issue(userID uuid.UUID, addr string) (string, error) {
	normalized, err := wallet.Normalize(addr)
	if err != nil {
		return "", ErrMissingWallet
	}
	now := time.Now()
	claims := JWTClaims{
		Wallet: normalized,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    as.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(as.secret)
}
