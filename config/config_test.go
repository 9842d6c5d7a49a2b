package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("SESSION_TTL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, StorageInline, cfg.Storage.Driver)
	assert.Equal(t, "admin", cfg.Seed.Username)
	assert.Equal(t, "admin123", cfg.Seed.Password)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "gemini-2.5-flash", cfg.GenAI.TextModel)
	assert.InDelta(t, 0.8, cfg.GenAI.Temperature, 1e-9)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", StoreRedis)
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MEDIA_MAX_DIMENSION", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreRedis, cfg.Store.Driver)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 1600, cfg.Media.MaxDimension)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: "8080"},
			Store:   StoreConfig{Driver: StoreMemory},
			Manuals: ManualsConfig{Driver: StoreMemory},
			Storage: StorageConfig{Driver: StorageInline},
			Seed:    SeedConfig{Username: "admin", Password: "pw"},
			Session: SessionConfig{TTL: time.Hour},
			Media:   MediaConfig{MaxDimension: 100},
		}
	}

	require.NoError(t, base().Validate())

	c := base()
	c.Store.Driver = "mongo"
	assert.Error(t, c.Validate())

	c = base()
	c.Storage.Driver = StorageS3
	assert.Error(t, c.Validate())

	c = base()
	c.Seed.Password = ""
	assert.Error(t, c.Validate())

	c = base()
	c.Store.Driver = StorePostgres
	c.Database.Host = "db"
	assert.NoError(t, c.Validate())
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5433 user=u password=p dbname=n sslmode=disable", d.DSN())

	d.URL = "postgres://x"
	assert.Equal(t, "postgres://x", d.DSN())
}
