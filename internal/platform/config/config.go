// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Audit store backends selectable with AUDIT_STORE.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
)

const devSigningKey = "dev-secret-key-change-in-production"

// Config is the full process configuration.
type Config struct {
	Server Server
	Audit  Audit
	Redis  RedisConfig
	Log    Log
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	JWTSigningKey   string
	JWTIssuer       string
	JWTAudience     string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Audit selects and configures the audit store and redaction policy.
type Audit struct {
	Store       string
	DatabaseURL string
	SQLitePath  string
	// PolicyFile is a YAML redaction policy; empty keeps the built-in defaults.
	PolicyFile string
}

// RedisConfig configures the shared Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Log configures the slog handler.
type Log struct {
	Level  string
	Format string
}

// Load reads an optional .env file (missing is fine) and then the environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:            getEnv("HRCORE_ADDR", ":8080"),
			JWTSigningKey:   getEnv("JWT_SIGNING_KEY", devSigningKey),
			JWTIssuer:       getEnv("JWT_ISSUER", "hrcore"),
			JWTAudience:     getEnv("JWT_AUDIENCE", "hrcore-api"),
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Audit: Audit{
			Store:       strings.ToLower(getEnv("AUDIT_STORE", StoreMemory)),
			DatabaseURL: os.Getenv("DATABASE_URL"),
			SQLitePath:  getEnv("SQLITE_PATH", "data/audit.db"),
			PolicyFile:  os.Getenv("REDACTION_POLICY_FILE"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Log: Log{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	var err error
	if cfg.Server.RequestTimeout, err = getDuration("HTTP_REQUEST_TIMEOUT", cfg.Server.RequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.Redis.PoolSize, err = getInt("REDIS_POOL_SIZE", cfg.Redis.PoolSize); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the selected store has what it needs.
func (c Config) Validate() error {
	switch c.Audit.Store {
	case StoreMemory:
	case StorePostgres:
		if c.Audit.DatabaseURL == "" {
			return fmt.Errorf("AUDIT_STORE=postgres requires DATABASE_URL")
		}
	case StoreSQLite:
		if c.Audit.SQLitePath == "" {
			return fmt.Errorf("AUDIT_STORE=sqlite requires SQLITE_PATH")
		}
	case StoreRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("AUDIT_STORE=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown AUDIT_STORE %q", c.Audit.Store)
	}
	return nil
}

// UsesDevSigningKey reports whether JWT_SIGNING_KEY was left unset.
func (c Config) UsesDevSigningKey() bool {
	return c.Server.JWTSigningKey == devSigningKey
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
