package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pixelspace/views-core/internal/pkg/jwt"
	"github.com/pixelspace/views-core/internal/pkg/response"
)

const (
	// ContextKeyViewerID carries the authenticated viewer id, when present.
	ContextKeyViewerID = "viewer_id"
)

// Auth returns a middleware that enforces JWT authentication on the
// admin/query surface (dashboards, job triggers, event listing).
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := jwt.Parse(extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeyViewerID, claims.Subject)
		c.Next()
	}
}

// OptionalAuth sets the viewer id if a valid token is present, but never
// blocks the request. The ingestion path uses it to attribute authenticated
// views without requiring sign-in.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := jwt.Parse(extractToken(c)); err == nil && claims.Subject != "" {
			c.Set(ContextKeyViewerID, claims.Subject)
		}
		c.Next()
	}
}

// ViewerID returns the authenticated viewer id from the context, or "".
func ViewerID(c *gin.Context) string {
	if v, ok := c.Get(ContextKeyViewerID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func extractToken(c *gin.Context) string {
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[len("bearer "):])
	}
	return raw
}
