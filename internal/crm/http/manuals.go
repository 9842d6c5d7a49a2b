package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
)

func (h *Handler) ListManuals(c *gin.Context) {
	platform := domain.Platform(c.DefaultQuery("platform", string(domain.PlatformXiaohongshu)))
	sections, err := h.manuals.List(c.Request.Context(), platform)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sections": sections})
}

func (h *Handler) CreateManual(c *gin.Context) {
	var body domain.ManualSection
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	body.ID = ""
	h.upsertManual(c, body, http.StatusCreated)
}

func (h *Handler) UpdateManual(c *gin.Context) {
	var body domain.ManualSection
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	body.ID = c.Param("id")
	h.upsertManual(c, body, http.StatusOK)
}

func (h *Handler) upsertManual(c *gin.Context, sec domain.ManualSection, code int) {
	saved, err := h.manuals.Upsert(c.Request.Context(), sec)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(code, gin.H{"section": saved})
}

func (h *Handler) DeleteManual(c *gin.Context) {
	if err := h.manuals.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
