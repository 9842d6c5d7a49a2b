package bootstrap

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	httpapi "github.com/hongyu-crm/crm-backend/internal/api/http"
	"github.com/hongyu-crm/crm-backend/internal/api/http/middleware"
	"github.com/hongyu-crm/crm-backend/internal/auth"
	crmhttp "github.com/hongyu-crm/crm-backend/internal/crm/http"
	"github.com/hongyu-crm/crm-backend/internal/storage"
	"github.com/rs/zerolog"
)

type RouterDeps struct {
	App      *App
	Sessions *auth.Manager
	Logger   zerolog.Logger
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	cfg := dep.App.Config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(dep.Logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", middleware.HeaderRequestID},
		ExposeHeaders:    []string{middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	var pinger httpapi.Pinger
	if dep.App.StorePinger != nil {
		pinger = dep.App.StorePinger
	}
	healthHandler := httpapi.NewHealthHandler(
		cfg.App.ServiceName,
		cfg.App.Version,
		cfg.Store.Driver,
		pinger,
		dep.App.Generator.Metrics(),
	)
	healthHandler.RegisterRoutes(r)

	if local, ok := dep.App.Blobs.(*storage.LocalStorage); ok && strings.HasPrefix(local.PublicBase(), "/") {
		r.Static(local.PublicBase(), local.Root())
	}

	api := r.Group("/api/v1")
	crm := crmhttp.New(
		dep.Sessions,
		dep.App.Customers,
		dep.App.Generation,
		dep.App.Users,
		dep.App.Manuals,
	)
	crm.Register(api)

	return r
}
