package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context(), actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) CreateUser(c *gin.Context) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	u, err := h.users.Create(c.Request.Context(), actor(c), body.Username, body.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": u})
}

// PatchUser only accepts can_view_all; it is the one mutable user field.
func (h *Handler) PatchUser(c *gin.Context) {
	var body struct {
		CanViewAll *bool `json:"can_view_all"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.CanViewAll == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "can_view_all is required"})
		return
	}
	u, err := h.users.SetCanViewAll(c.Request.Context(), actor(c), c.Param("id"), *body.CanViewAll)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
