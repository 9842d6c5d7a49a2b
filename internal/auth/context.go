package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
)

const (
	CtxActor = "crm_actor"
	CtxToken = "crm_session_token"
)

// Actor returns the user attached by RequireSession.
func Actor(c *gin.Context) (domain.User, bool) {
	v, ok := c.Get(CtxActor)
	if !ok {
		return domain.User{}, false
	}
	u, ok := v.(domain.User)
	return u, ok
}

// SessionToken returns the raw bearer token of the current request.
func SessionToken(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxToken))
}
