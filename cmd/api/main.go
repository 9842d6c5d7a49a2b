package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hongyu-crm/crm-backend/config"
	"github.com/hongyu-crm/crm-backend/internal/auth"
	"github.com/hongyu-crm/crm-backend/internal/bootstrap"
	"github.com/hongyu-crm/crm-backend/internal/platform/logger"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	l := logger.New(cfg.App.Environment, cfg.App.LogLevel)
	logger.SetDefault(l)
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewApp(ctx, cfg, l)
	if err != nil {
		l.Fatal().Err(err).Msg("init backends")
	}
	defer func() {
		if err := app.Close(); err != nil {
			l.Error().Err(err).Msg("close backends")
		}
	}()

	if err := app.EnsureSeed(ctx, l); err != nil {
		l.Fatal().Err(err).Msg("seed super admin")
	}

	sessions, err := auth.NewManager(app.Store, cfg.Session.Secret, cfg.Session.TTL)
	if err != nil {
		l.Fatal().Err(err).Msg("init sessions")
	}
	if cfg.Session.Secret == "" {
		l.Warn().Msg("SESSION_SECRET not set, using a random key for this process")
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		App:      app,
		Sessions: sessions,
		Logger:   l,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		l.Info().Str("addr", srv.Addr).Str("env", cfg.App.Environment).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	l.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("graceful shutdown failed")
	}
}
