package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response and aborts the handler chain.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Info("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// Internal logs cause and sends a 500 with message. The cause never reaches the client.
func Internal(c *gin.Context, op string, cause error, message string) {
	telemetry.Error("http.internal", map[string]any{
		"op":         op,
		"err":        cause,
		"request_id": c.GetString("requestId"),
		"user_id":    c.GetString("userId"),
	})
	if message == "" {
		message = "Internal server error."
	}
	Error(c, http.StatusInternalServerError, "internal_error", message, nil)
}
