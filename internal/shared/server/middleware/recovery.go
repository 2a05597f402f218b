package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/shared/server/respond"
	"resume-builder/internal/shared/telemetry"
)

// Recovery recovers from panics and returns a standardized error response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				telemetry.Error("panic", map[string]any{
					"request_id": RequestIDFromContext(c),
					"error":      rec,
					"stack":      string(debug.Stack()),
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
				})
				if c.Writer.Written() {
					c.Abort()
					return
				}
				respond.Error(c, http.StatusInternalServerError, "internal_error", "Unexpected server error", nil)
			}
		}()
		c.Next()
	}
}
