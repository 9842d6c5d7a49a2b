package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Store    StoreConfig
	Redis    RedisConfig
	Session  SessionConfig
	Seed     SeedConfig
	GenAI    GenAIConfig
	Storage  StorageConfig
	Media    MediaConfig
	Manuals  ManualsConfig
}

type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	// URL overrides the discrete fields when set (DB_DSN).
	URL string
}

type AppConfig struct {
	ServiceName string
	Environment string
	LogLevel    string
	Version     string
}

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type StoreConfig struct {
	Driver string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SessionConfig struct {
	// Secret signs session tokens. Empty means a random per-process key.
	Secret string
	TTL    time.Duration
}

type SeedConfig struct {
	Username string
	Password string
}

type GenAIConfig struct {
	APIKey      string
	Endpoint    string
	TextModel   string
	ImageModel  string
	Temperature float64
	RatePerSec  float64
	Burst       int
	Timeout     time.Duration
}

const (
	StorageInline = "inline"
	StorageLocal  = "local"
	StorageS3     = "s3"
)

type StorageConfig struct {
	Driver        string
	UploadsPath   string
	PublicBaseURL string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
}

type MediaConfig struct {
	MaxDimension int
	JPEGQuality  int
}

type ManualsConfig struct {
	Driver string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "crm"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			URL:      getEnv("DB_DSN", ""),
		},
		App: AppConfig{
			ServiceName: getEnv("SERVICE_NAME", "crm-backend"),
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", StoreMemory),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Session: SessionConfig{
			Secret: getEnv("SESSION_SECRET", ""),
			TTL:    getEnvAsDuration("SESSION_TTL", 12*time.Hour),
		},
		Seed: SeedConfig{
			Username: getEnv("SEED_ADMIN_USERNAME", "admin"),
			Password: getEnv("SEED_ADMIN_PASSWORD", "admin123"),
		},
		GenAI: GenAIConfig{
			APIKey:      getEnv("GEMINI_API_KEY", ""),
			Endpoint:    getEnv("GEMINI_ENDPOINT", ""),
			TextModel:   getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
			ImageModel:  getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
			Temperature: getEnvAsFloat("GEMINI_TEMPERATURE", 0.8),
			RatePerSec:  getEnvAsFloat("GEMINI_RATE_PER_SEC", 1),
			Burst:       getEnvAsInt("GEMINI_BURST", 3),
			Timeout:     getEnvAsDuration("GEMINI_TIMEOUT", 60*time.Second),
		},
		Storage: StorageConfig{
			Driver:        getEnv("STORAGE_DRIVER", StorageInline),
			UploadsPath:   getEnv("UPLOADS_PATH", "./uploads"),
			PublicBaseURL: getEnv("UPLOADS_PUBLIC_URL", "/uploads"),
			S3Bucket:      getEnv("AWS_S3_BUCKET", ""),
			S3Region:      getEnv("AWS_REGION", "us-east-1"),
			S3Endpoint:    getEnv("AWS_S3_ENDPOINT", ""),
			S3AccessKey:   getEnv("AWS_ACCESS_KEY_ID", ""),
			S3SecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3PublicURL:   getEnv("AWS_S3_PUBLIC_URL", ""),
		},
		Media: MediaConfig{
			MaxDimension: getEnvAsInt("MEDIA_MAX_DIMENSION", 1600),
			JPEGQuality:  getEnvAsInt("MEDIA_JPEG_QUALITY", 85),
		},
		Manuals: ManualsConfig{
			Driver: getEnv("MANUALS_DRIVER", StoreMemory),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Store.Driver {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if c.Database.URL == "" && c.Database.Host == "" {
			return fmt.Errorf("DB_HOST or DB_DSN is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	switch c.Manuals.Driver {
	case StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("unknown MANUALS_DRIVER %q", c.Manuals.Driver)
	}

	switch c.Storage.Driver {
	case StorageInline, StorageLocal:
	case StorageS3:
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("AWS_S3_BUCKET is required for the s3 storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if c.Seed.Username == "" || c.Seed.Password == "" {
		return fmt.Errorf("SEED_ADMIN_USERNAME and SEED_ADMIN_PASSWORD must not be empty")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.Media.MaxDimension <= 0 {
		return fmt.Errorf("MEDIA_MAX_DIMENSION must be positive")
	}

	return nil
}

// DSN returns a lib/pq and pgx compatible connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Int("default", defaultValue).Msg("invalid integer, using default")
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Warn().Str("key", key).Float64("default", defaultValue).Msg("invalid float, using default")
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Dur("default", defaultValue).Msg("invalid duration, using default")
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
