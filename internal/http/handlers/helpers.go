package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/govairn/govairn-backend/internal/platform/apierr"
	"github.com/govairn/govairn-backend/internal/platform/ctxutil"
	"github.com/govairn/govairn-backend/internal/services"
)

func pathUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, apierr.Invalid("invalid %s", name)
	}
	return id, nil
}

func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(c.Query(name)))
	if err != nil {
		return def
	}
	return v
}

// caller returns the authenticated user attached by the auth middleware.
func caller(c *gin.Context) (*ctxutil.RequestData, error) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, services.ErrMissingUser
	}
	return rd, nil
}
