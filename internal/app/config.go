package app

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"

	"github.com/govairn/govairn-backend/internal/data/db"
	"github.com/govairn/govairn-backend/internal/http/middleware"
	"github.com/govairn/govairn-backend/internal/platform/envutil"
	"github.com/govairn/govairn-backend/internal/platform/logger"
)

type Config struct {
	Env      string
	Version  string
	HTTPAddr string

	DB db.Config

	JWTSecretKey   string
	AccessTokenTTL time.Duration
	JWTIssuer      string

	OpenAIBaseURL            string
	OpenAIAPIKey             string
	OpenAIModel              string
	OpenAITemperature        float64
	OpenAIDisableTemperature bool
	OpenAITimeout            time.Duration
	OpenAIMaxRetries         int

	GenerationTimeout        time.Duration
	DescriptionTruncateChars int

	SnapshotEndpoint string
	SnapshotAPIKey   string
	SnapshotTimeout  time.Duration
	SnapshotSpaces   []string
	SnapshotState    string
	SnapshotPageSize int
	SnapshotMaxPages int
	SnapshotCacheTTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	WorkerEnabled         bool
	WorkerConcurrency     int
	WorkerPollInterval    time.Duration
	QueueMaxAttempts      int
	QueueBaseBackoff      time.Duration
	QueueMaxBackoff       time.Duration
	QueueStaleProcessing  time.Duration
	PrecomputeParallelism int

	CORSOrigins     []string
	OtelServiceName string
}

// LoadEnvFile loads .env into the process environment when present. Values
// already set in the environment win.
func LoadEnvFile(log *logger.Logger) {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		log.Warn("Failed to load .env", "error", err)
		return
	}
	log.Debug("Loaded .env")
}

func LoadConfig(log *logger.Logger) Config {
	LoadEnvFile(log)

	addr := envutil.String("HTTP_ADDR", "")
	if addr == "" {
		addr = ":" + envutil.String("PORT", "8080")
	}

	cfg := Config{
		Env:      envutil.String("APP_ENV", "development"),
		Version:  envutil.String("APP_VERSION", "dev"),
		HTTPAddr: addr,

		DB: db.Config{
			Driver:   envutil.String("DB_DRIVER", "postgres"),
			DSN:      envutil.String("DATABASE_URL", ""),
			Host:     envutil.String("POSTGRES_HOST", "localhost"),
			Port:     envutil.String("POSTGRES_PORT", "5432"),
			User:     envutil.String("POSTGRES_USER", "postgres"),
			Password: envutil.String("POSTGRES_PASSWORD", "postgres"),
			Name:     envutil.String("POSTGRES_DB", "govairn"),
			SSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
		},

		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", "defaultsecret"),
		AccessTokenTTL: envutil.Duration("ACCESS_TOKEN_TTL", time.Hour),
		JWTIssuer:      envutil.String("JWT_ISSUER", "govairn"),

		OpenAIBaseURL:            envutil.String("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIAPIKey:             envutil.String("OPENAI_API_KEY", ""),
		OpenAIModel:              envutil.String("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITemperature:        envutil.Float("OPENAI_TEMPERATURE", 0.2),
		OpenAIDisableTemperature: envutil.Bool("OPENAI_DISABLE_TEMPERATURE", false),
		OpenAITimeout:            envutil.Duration("OPENAI_TIMEOUT", 60*time.Second),
		OpenAIMaxRetries:         envutil.Int("OPENAI_MAX_RETRIES", 2),

		GenerationTimeout:        envutil.Duration("GENERATION_TIMEOUT", 30*time.Second),
		DescriptionTruncateChars: envutil.Int("DESCRIPTION_TRUNCATE_CHARS", 1000),

		SnapshotEndpoint: envutil.String("SNAPSHOT_ENDPOINT", "https://hub.snapshot.org/graphql"),
		SnapshotAPIKey:   envutil.String("SNAPSHOT_API_KEY", ""),
		SnapshotTimeout:  envutil.Duration("SNAPSHOT_TIMEOUT", 15*time.Second),
		SnapshotSpaces:   envutil.Strings("SNAPSHOT_SPACES", nil),
		SnapshotState:    envutil.String("SNAPSHOT_STATE", "all"),
		SnapshotPageSize: envutil.Int("SNAPSHOT_PAGE_SIZE", 100),
		SnapshotMaxPages: envutil.Int("SNAPSHOT_MAX_PAGES", 20),
		SnapshotCacheTTL: envutil.Duration("SNAPSHOT_CACHE_TTL", time.Minute),

		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisPassword: envutil.String("REDIS_PASSWORD", ""),
		RedisDB:       envutil.Int("REDIS_DB", 0),
		RedisPrefix:   envutil.String("REDIS_PREFIX", "govairn"),

		WorkerEnabled:         envutil.Bool("WORKER_ENABLED", true),
		WorkerConcurrency:     envutil.Int("WORKER_CONCURRENCY", 4),
		WorkerPollInterval:    envutil.Duration("WORKER_POLL_INTERVAL", time.Second),
		QueueMaxAttempts:      envutil.Int("QUEUE_MAX_ATTEMPTS", 5),
		QueueBaseBackoff:      envutil.Duration("QUEUE_BASE_BACKOFF", 30*time.Second),
		QueueMaxBackoff:       envutil.Duration("QUEUE_MAX_BACKOFF", 30*time.Minute),
		QueueStaleProcessing:  envutil.Duration("QUEUE_STALE_PROCESSING", 10*time.Minute),
		PrecomputeParallelism: envutil.Int("PRECOMPUTE_PARALLELISM", 4),

		CORSOrigins:     envutil.Strings("CORS_ORIGINS", middleware.DefaultAllowedOrigins),
		OtelServiceName: envutil.String("OTEL_SERVICE_NAME", "govairn-backend"),
	}

	if cfg.JWTSecretKey == "defaultsecret" {
		log.Warn("JWT_SECRET_KEY not set; using insecure default")
	}
	if cfg.OpenAIAPIKey == "" {
		log.Warn("OPENAI_API_KEY not set; decisions will be degraded")
	}
	log.Debug("Config loaded",
		"env", cfg.Env,
		"http_addr", cfg.HTTPAddr,
		"db_driver", cfg.DB.Driver,
		"openai_model", cfg.OpenAIModel,
		"snapshot_spaces", cfg.SnapshotSpaces,
		"redis", cfg.RedisAddr != "",
		"worker_concurrency", cfg.WorkerConcurrency,
	)
	return cfg
}
