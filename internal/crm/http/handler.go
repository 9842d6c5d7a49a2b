package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hongyu-crm/crm-backend/internal/auth"
	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
	"github.com/hongyu-crm/crm-backend/internal/crm/service"
	"github.com/hongyu-crm/crm-backend/internal/manuals"
	"github.com/rs/zerolog"
)

// Handler serves the CRM API.
type Handler struct {
	sessions   *auth.Manager
	customers  *service.CustomerService
	generation *service.GenerationService
	users      *service.UserService
	manuals    *manuals.Service
}

func New(
	sessions *auth.Manager,
	customers *service.CustomerService,
	generation *service.GenerationService,
	users *service.UserService,
	manualSvc *manuals.Service,
) *Handler {
	return &Handler{
		sessions:   sessions,
		customers:  customers,
		generation: generation,
		users:      users,
		manuals:    manualSvc,
	}
}

// Register mounts every CRM route on rg. Everything except login requires a
// session.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/auth/login", h.Login)

	authed := rg.Group("")
	authed.Use(auth.RequireSession(h.sessions))

	authed.POST("/auth/logout", h.Logout)
	authed.GET("/auth/me", h.Me)

	authed.GET("/customers", h.ListCustomers)
	authed.POST("/customers", h.CreateCustomer)
	authed.GET("/customers/:id", h.GetCustomer)
	authed.PUT("/customers/:id", h.UpdateCustomer)
	authed.DELETE("/customers/:id", h.DeleteCustomer)
	authed.POST("/customers/:id/images", h.AddImage)
	authed.POST("/customers/:id/images/generate", h.GenerateImage)
	authed.DELETE("/customers/:id/images/:assetId", h.RemoveImage)
	authed.POST("/customers/:id/copywritings", h.AddCopy)
	authed.POST("/customers/:id/copywritings/generate", h.GenerateCopy)
	authed.DELETE("/customers/:id/copywritings/:assetId", h.RemoveCopy)

	authed.GET("/manuals", h.ListManuals)
	authed.POST("/manuals", h.CreateManual)
	authed.PUT("/manuals/:id", h.UpdateManual)
	authed.DELETE("/manuals/:id", h.DeleteManual)

	users := authed.Group("/users")
	users.GET("", auth.RequireUserManager(), h.ListUsers)
	users.POST("", auth.RequireUserManager(), h.CreateUser)
	users.PATCH("/:id", auth.RequireUserManager(), h.PatchUser)
	// Deleting the seed account is a no-op for any caller, so the service
	// decides the outcome here.
	users.DELETE("/:id", h.DeleteUser)
}

func actor(c *gin.Context) domain.User {
	u, _ := auth.Actor(c)
	return u
}

// writeError maps service errors onto status codes. Messages stay terse.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "not permitted"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrDuplicateUsername):
		c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
	case errors.Is(err, domain.ErrUnauthenticated):
		c.JSON(http.StatusBadGateway, gin.H{"error": "generation backend rejected credentials"})
	case errors.Is(err, domain.ErrServiceUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
	default:
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
