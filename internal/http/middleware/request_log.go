package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/govairn/govairn-backend/internal/platform/ctxutil"
	"github.com/govairn/govairn-backend/internal/platform/logger"
)

// RequestLogger writes one access line per request. Health probes are logged
// at debug so they do not drown the decision and vote traffic.
func RequestLogger(baseLog *logger.Logger) gin.HandlerFunc {
	if baseLog == nil {
		return func(c *gin.Context) { c.Next() }
	}
	log := baseLog.With("middleware", "RequestLogger")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		kv := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", c.Writer.Size(),
		}
		ctx := c.Request.Context()
		if td := ctxutil.GetTraceData(ctx); td != nil {
			kv = append(kv, "trace_id", td.TraceID, "request_id", td.RequestID)
		}
		if rd := ctxutil.GetRequestData(ctx); rd != nil {
			kv = append(kv, "user_id", rd.UserID, "wallet", rd.Wallet)
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			kv = append(kv, "errors", errs.String())
		}

		switch {
		case status >= http.StatusInternalServerError:
			log.Error("HTTP request failed", kv...)
		case status >= http.StatusBadRequest:
			log.Warn("HTTP request rejected", kv...)
		case route == "/healthcheck":
			log.Debug("HTTP request", kv...)
		default:
			log.Info("HTTP request", kv...)
		}
	}
}
