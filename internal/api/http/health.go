package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hongyu-crm/crm-backend/internal/genai"
)

// Pinger is any backend that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Store     string                 `json:"store"`
	DB        string                 `json:"db,omitempty"`
	GenAI     *genai.MetricsSnapshot `json:"genai,omitempty"`
}

type HealthHandler struct {
	serviceName string
	version     string
	storeName   string
	store       Pinger
	genMetrics  *genai.Metrics
}

// NewHealthHandler builds the handler. store may be nil for the in-memory
// backend, metrics may be nil when generation is not wired.
func NewHealthHandler(serviceName, version, storeName string, store Pinger, metrics *genai.Metrics) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		storeName:   storeName,
		store:       store,
		genMetrics:  metrics,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	dbStatus := "disabled"
	status := "healthy"
	if h.store != nil {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := h.store.Ping(pingCtx); err != nil {
			dbStatus = "down"
			status = "degraded"
		} else {
			dbStatus = "up"
		}
	}

	resp := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Store:     h.storeName,
		DB:        dbStatus,
	}
	if h.genMetrics != nil {
		snap := h.genMetrics.Snapshot()
		resp.GenAI = &snap
	}

	c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
