package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hongyu-crm/crm-backend/internal/crm/policy"
	"github.com/rs/zerolog"
)

// RequireSession resolves the bearer token into the acting user.
func RequireSession(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			c.Abort()
			return
		}

		u, err := m.Resolve(c.Request.Context(), token)
		if errors.Is(err, ErrNoSession) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			c.Abort()
			return
		}
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("session lookup failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			c.Abort()
			return
		}

		c.Set(CtxActor, u)
		c.Set(CtxToken, token)
		c.Next()
	}
}

// RequireUserManager rejects actors that may not manage accounts.
func RequireUserManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := Actor(c)
		if !ok || !policy.CanManageUsers(u) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not permitted"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return strings.TrimSpace(bearerToken[7:])
	}
	return ""
}
