package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/identity"
	"resume-builder/internal/shared/metrics"
	"resume-builder/internal/shared/server/respond"
	"resume-builder/internal/shared/telemetry"
)

const (
	userIDKey        = "userId"
	userEmailKey     = "userEmail"
	userNameKey      = "userName"
	emailVerifiedKey = "userEmailVerified"
)

// Auth verifies the bearer token on every request and stores the principal in context.
// Rejections end the request with 401 before any handler runs.
func Auth(verifier identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			reject(c, identity.ErrMissingToken)
			return
		}

		id, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			reject(c, err)
			return
		}

		c.Set(userIDKey, id.SubjectID)
		c.Set(userEmailKey, id.Email)
		c.Set(userNameKey, id.Name)
		c.Set(emailVerifiedKey, id.EmailVerified)
		c.Request = c.Request.WithContext(identity.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func reject(c *gin.Context, err error) {
	reason := identity.Reason(err)
	metrics.IncAuthRejection(reason)
	telemetry.Warn("auth.rejected", map[string]any{
		"reason":     reason,
		"err":        err,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": RequestIDFromContext(c),
	})
	respond.Error(c, http.StatusUnauthorized, "unauthorized", identity.Message(err), nil)
}

// UserIDFromContext fetches the subject id set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	return stringFromContext(c, userIDKey)
}

// UserEmailFromContext fetches the verified email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	return stringFromContext(c, userEmailKey)
}

// UserNameFromContext fetches the display name set by the auth middleware.
func UserNameFromContext(c *gin.Context) string {
	return stringFromContext(c, userNameKey)
}

// IdentityFromContext rebuilds the verified principal for handlers.
func IdentityFromContext(c *gin.Context) identity.Identity {
	if c == nil {
		return identity.Identity{}
	}
	if id, ok := identity.FromContext(c.Request.Context()); ok {
		return id
	}
	return identity.Identity{
		SubjectID:     UserIDFromContext(c),
		Email:         UserEmailFromContext(c),
		Name:          UserNameFromContext(c),
		EmailVerified: c.GetBool(emailVerifiedKey),
	}
}

func stringFromContext(c *gin.Context, key string) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(key)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
