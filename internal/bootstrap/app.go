package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/hongyu-crm/crm-backend/config"
	"github.com/hongyu-crm/crm-backend/internal/crm/repository"
	"github.com/hongyu-crm/crm-backend/internal/crm/service"
	"github.com/hongyu-crm/crm-backend/internal/crm/status"
	"github.com/hongyu-crm/crm-backend/internal/genai"
	"github.com/hongyu-crm/crm-backend/internal/manuals"
	"github.com/hongyu-crm/crm-backend/internal/media"
	"github.com/hongyu-crm/crm-backend/internal/storage"
	"github.com/rs/zerolog"
)

// Pinger reports backend liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// App holds every long-lived dependency of the process.
type App struct {
	Config *config.Config

	Store       repository.Store
	StorePinger Pinger
	Blobs       storage.Driver
	Generator   *genai.GeminiClient

	Users      *service.UserService
	Customers  *service.CustomerService
	Generation *service.GenerationService
	Manuals    *manuals.Service

	closers []func() error
}

// OpenStore builds the record store selected by STORE_DRIVER. The returned
// pinger is nil for the in-memory store.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, Pinger, func() error, error) {
	switch cfg.Store.Driver {
	case config.StoreMemory, "":
		return repository.NewMemoryStore(), nil, func() error { return nil }, nil

	case config.StorePostgres:
		db, err := repository.NewPostgresConnection(cfg.Database)
		if err != nil {
			return nil, nil, nil, err
		}
		s := repository.NewPostgresStore(db)
		if err := s.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return s, s, db.Close, nil

	case config.StoreRedis:
		client, err := repository.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		s := repository.NewRedisStore(client)
		return s, s, client.Close, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// NewApp opens the configured backends and builds the services. The caller
// must Close the app.
func NewApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg}

	store, pinger, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	a.Store, a.StorePinger = store, pinger
	a.closers = append(a.closers, closeStore)

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open blob storage: %w", err)
	}
	a.Blobs = blobs

	gen, err := genai.NewGeminiClient(ctx, genai.GeminiConfig{
		APIKey:      cfg.GenAI.APIKey,
		TextModel:   cfg.GenAI.TextModel,
		ImageModel:  cfg.GenAI.ImageModel,
		Temperature: cfg.GenAI.Temperature,
		RatePerSec:  cfg.GenAI.RatePerSec,
		Burst:       cfg.GenAI.Burst,
		Timeout:     cfg.GenAI.Timeout,
		BaseURL:     cfg.GenAI.Endpoint,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	if !gen.Configured() {
		log.Warn().Msg("GEMINI_API_KEY not set, generation requests will fail")
	}
	a.Generator = gen

	manualRepo, err := a.openManuals(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	clock := status.SystemClock{}
	processor := media.NewProcessor(blobs, media.Options{
		MaxDimension: cfg.Media.MaxDimension,
		JPEGQuality:  cfg.Media.JPEGQuality,
	})

	a.Users = service.NewUserService(store, clock)
	a.Customers = service.NewCustomerService(store, processor, clock)
	a.Generation = service.NewGenerationService(a.Customers, gen)
	a.Manuals = manuals.NewService(manualRepo)

	log.Info().
		Str("store", cfg.Store.Driver).
		Str("storage", cfg.Storage.Driver).
		Str("manuals", cfg.Manuals.Driver).
		Msg("backends ready")
	return a, nil
}

func (a *App) openManuals(ctx context.Context, cfg *config.Config) (manuals.Repository, error) {
	seed, err := manuals.DefaultSections()
	if err != nil {
		return nil, err
	}
	if cfg.Manuals.Driver != config.StorePostgres {
		return manuals.NewMemoryRepository(seed), nil
	}

	pool, err := OpenDB(ctx, DBOptions{DSN: cfg.Database.DSN()})
	if err != nil {
		return nil, fmt.Errorf("open manuals database: %w", err)
	}
	a.closers = append(a.closers, func() error { pool.Close(); return nil })

	repo := manuals.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx, seed); err != nil {
		return nil, err
	}
	return repo, nil
}

// EnsureSeed creates the configured super admin if it is missing.
func (a *App) EnsureSeed(ctx context.Context, log zerolog.Logger) error {
	created, err := a.Users.EnsureSeed(ctx, a.Config.Seed.Username, a.Config.Seed.Password)
	if err != nil {
		return err
	}
	if created {
		log.Info().Str("username", a.Config.Seed.Username).Msg("seed super admin created")
	}
	return nil
}

// Close releases backends in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
