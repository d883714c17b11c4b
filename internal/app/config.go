package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr    string   `env:"HTTP_ADDR" envDefault:":8080"`
	LogMode     string   `env:"LOG_MODE" envDefault:"development"`
	ServiceName string   `env:"SERVICE_NAME" envDefault:"devjourney-backend"`
	Environment string   `env:"APP_ENV" envDefault:"development"`
	Version     string   `env:"APP_VERSION" envDefault:"dev"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	JWTSecretKey string `env:"JWT_SECRET_KEY" envDefault:"defaultsecret"`

	RemoteStoreEnabled bool          `env:"REMOTE_STORE_ENABLED" envDefault:"true"`
	RemoteTimeout      time.Duration `env:"REMOTE_TIMEOUT" envDefault:"2s"`
	RemoteConnectTries uint          `env:"REMOTE_CONNECT_TRIES" envDefault:"3"`
	PostgresHost       string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort       string        `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser       string        `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword   string        `env:"POSTGRES_PASSWORD"`
	PostgresName       string        `env:"POSTGRES_NAME" envDefault:"devjourney"`

	LocalStorePath string `env:"LOCAL_STORE_PATH" envDefault:"devjourney_local.db"`

	CacheBackend string        `env:"CACHE_BACKEND" envDefault:"memory"`
	CacheSize    int           `env:"CACHE_SIZE" envDefault:"1024"`
	CacheTTL     time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	RedisAddr    string        `env:"REDIS_ADDR"`
	RedisChannel string        `env:"REDIS_CHANNEL" envDefault:"devjourney:invalidate"`

	CatalogPath  string        `env:"CATALOG_PATH"`
	SyncInterval time.Duration `env:"SYNC_INTERVAL" envDefault:"1m"`

	MetricsEnabled     bool              `env:"METRICS_ENABLED" envDefault:"true"`
	StoreProbeInterval time.Duration     `env:"STORE_PROBE_INTERVAL" envDefault:"15s"`
	OtelEnabled        bool              `env:"OTEL_ENABLED"`
	OtelEndpoint       string            `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelHeaders        map[string]string `env:"OTEL_EXPORTER_OTLP_HEADERS" envSeparator:"," envKeyValSeparator:"="`
	OtelInsecure       bool              `env:"OTEL_EXPORTER_OTLP_INSECURE"`
	OtelSampleRatio    float64           `env:"OTEL_SAMPLER_RATIO" envDefault:"1"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.CacheBackend = strings.ToLower(strings.TrimSpace(cfg.CacheBackend))
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if (c.LogMode == "production" || c.LogMode == "prod") && (c.JWTSecretKey == "" || c.JWTSecretKey == "defaultsecret") {
		return fmt.Errorf("JWT_SECRET_KEY must be set in production")
	}
	switch c.CacheBackend {
	case "memory", "none":
	case "redis":
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("CACHE_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("CACHE_SIZE must be >= 0, got %d", c.CacheSize)
	}
	if c.SyncInterval < 0 {
		return fmt.Errorf("SYNC_INTERVAL must be >= 0, got %s", c.SyncInterval)
	}
	if c.OtelSampleRatio < 0 || c.OtelSampleRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLER_RATIO must be within [0,1], got %g", c.OtelSampleRatio)
	}
	return nil
}
