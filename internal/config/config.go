package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Database
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"dashboard"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	// DatabaseURL overrides the DB_* parts when set.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Session (JWT carried in the session cookie or a bearer header)
	JWTSecret    string        `envconfig:"JWT_SECRET"`
	SessionTTL   time.Duration `envconfig:"SESSION_TTL" default:"12h"`
	CookieName   string        `envconfig:"COOKIE_NAME" default:"session"`
	CookieSecure bool          `envconfig:"COOKIE_SECURE" default:"false"`

	// Object storage (S3 compatible)
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"character"`
	S3UseSSL    bool   `envconfig:"S3_USE_SSL" default:"false"`
	S3PublicURL string `envconfig:"S3_PUBLIC_URL"`

	// Optional infrastructure
	RedisURL    string `envconfig:"REDIS_URL"`
	AMQPURL     string `envconfig:"AMQP_URL"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	DashboardTZ string `envconfig:"DASHBOARD_TZ" default:"UTC"`

	// Logging
	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding      string `envconfig:"LOG_ENCODING" default:"json"`
	LogRetentionDays int    `envconfig:"LOG_RETENTION_DAYS" default:"30"`

	// Server
	Port               string        `envconfig:"PORT" default:"8080"`
	CORSOrigins        string        `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	RateLimitPerMinute int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// StoreConfigured reports whether enough is set to reach the record store.
// Without it the server boots in a degraded, health-only mode.
func (c *Config) StoreConfigured() bool {
	return c.DatabaseURL != "" || c.DBPassword != ""
}

func (c *Config) ObjectStoreConfigured() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// PublicObjectURL is the base that uploaded file names are appended to.
func (c *Config) PublicObjectURL() string {
	if c.S3PublicURL != "" {
		return strings.TrimRight(c.S3PublicURL, "/")
	}
	scheme := "http"
	if c.S3UseSSL {
		scheme = "https"
	}
	return scheme + "://" + c.S3Endpoint + "/" + c.S3Bucket
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DashboardTZ)
	if err != nil {
		return time.UTC
	}
	return loc
}
