package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/govairn/govairn-backend/internal/platform/apierr"
	"github.com/govairn/govairn-backend/internal/platform/logger"
)

const internalMessage = "Something went wrong while processing your request. Please try again."

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondErr maps err through apierr.From. Internal errors are logged and
// replaced with a generic message.
func RespondErr(c *gin.Context, log *logger.Logger, err error) {
	ae := apierr.From(err)
	if ae.Status >= http.StatusInternalServerError {
		if log != nil {
			log.Error("Request failed", "path", c.FullPath(), "error", err)
		}
		RespondError(c, ae.Status, ae.Code, errors.New(internalMessage))
		return
	}
	RespondError(c, ae.Status, ae.Code, ae)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
