package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
	"github.com/hongyu-crm/crm-backend/internal/crm/service"
	"github.com/hongyu-crm/crm-backend/internal/crm/status"
	"github.com/hongyu-crm/crm-backend/internal/genai"
)

func (h *Handler) ListCustomers(c *gin.Context) {
	q := service.ListQuery{
		Platform: domain.Platform(c.Query("platform")),
		Search:   c.Query("q"),
	}
	views, err := h.customers.List(c.Request.Context(), actor(c), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customers": views, "count": len(views)})
}

func (h *Handler) GetCustomer(c *gin.Context) {
	view, err := h.customers.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": view})
}

func (h *Handler) CreateCustomer(c *gin.Context) {
	var body domain.Customer
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	body.ID = ""
	h.saveCustomer(c, body, http.StatusCreated)
}

// UpdateCustomer overwrites the whole record with the request body.
func (h *Handler) UpdateCustomer(c *gin.Context) {
	var body domain.Customer
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	body.ID = c.Param("id")
	h.saveCustomer(c, body, http.StatusOK)
}

func (h *Handler) saveCustomer(c *gin.Context, body domain.Customer, code int) {
	saved, err := h.customers.Save(c.Request.Context(), actor(c), body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(code, gin.H{"customer": service.CustomerView{
		Customer: saved,
		Badges:   status.Derive(saved, saved.LastTrackedDate),
	}})
}

func (h *Handler) DeleteCustomer(c *gin.Context) {
	if err := h.customers.Delete(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AddImage(c *gin.Context) {
	var body struct {
		DataURL string `json:"data_url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "data_url is required"})
		return
	}
	img, err := h.customers.AddImage(c.Request.Context(), actor(c), c.Param("id"), body.DataURL)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"image": img})
}

func (h *Handler) RemoveImage(c *gin.Context) {
	if err := h.customers.RemoveImage(c.Request.Context(), actor(c), c.Param("id"), c.Param("assetId")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AddCopy(c *gin.Context) {
	var body struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	cw, err := h.customers.AddCopy(c.Request.Context(), actor(c), c.Param("id"), body.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"copywriting": cw})
}

func (h *Handler) RemoveCopy(c *gin.Context) {
	if err := h.customers.RemoveCopy(c.Request.Context(), actor(c), c.Param("id"), c.Param("assetId")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GenerateCopy(c *gin.Context) {
	var body struct {
		Prompt string `json:"prompt"`
		Model  string `json:"model"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	model, ok := genai.ParseTextModel(body.Model)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown model"})
		return
	}

	cw, err := h.generation.GenerateCopy(c.Request.Context(), actor(c), c.Param("id"), body.Prompt, model)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"copywriting": cw})
}

func (h *Handler) GenerateImage(c *gin.Context) {
	var body struct {
		Prompt string `json:"prompt"`
		Style  string `json:"style"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	style, ok := genai.ParseImageStyle(body.Style)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown style"})
		return
	}

	img, err := h.generation.GenerateImage(c.Request.Context(), actor(c), c.Param("id"), body.Prompt, style)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"image": img})
}
