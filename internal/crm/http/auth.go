package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hongyu-crm/crm-backend/internal/auth"
	"github.com/hongyu-crm/crm-backend/internal/crm/policy"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var body loginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sess, err := h.sessions.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	sess.User = policy.Effective(sess.User)
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) Logout(c *gin.Context) {
	h.sessions.Logout(auth.SessionToken(c))
	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": policy.Effective(actor(c))})
}
