package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/govairn/govairn-backend/internal/http/response"
	"github.com/govairn/govairn-backend/internal/platform/apierr"
	"github.com/govairn/govairn-backend/internal/platform/ctxutil"
	"github.com/govairn/govairn-backend/internal/platform/logger"
	"github.com/govairn/govairn-backend/internal/services"
)

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
	userService services.UserService
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService, userService services.UserService) *AuthMiddleware {
	return &AuthMiddleware{
		log:         log.With("middleware", "AuthMiddleware"),
		authService: authService,
		userService: userService,
	}
}

// RequireAuth verifies the bearer token, upserts the caller and attaches
// ctxutil.RequestData to the request context.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearer(c)
		if tokenString == "" {
			c.Abort()
			response.RespondErr(c, am.log, apierr.ErrUnauthorized)
			return
		}
		id, err := am.authService.Verify(tokenString)
		if err != nil {
			am.log.Debug("Token rejected", "error", err)
			c.Abort()
			response.RespondErr(c, am.log, err)
			return
		}
		u, err := am.userService.EnsureUser(c.Request.Context(), id.UserID, id.Wallet)
		if err != nil {
			c.Abort()
			response.RespondErr(c, am.log, err)
			return
		}
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{
			UserID: u.ID,
			Wallet: u.WalletAddress,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Set("user_id", u.ID.String())
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
