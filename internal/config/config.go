// Package config reads the service configuration from the environment.
//
// Load is called once from main and the resulting *Config is passed down
// explicitly; nothing else in the module reads environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server and the manage CLI need.
type Config struct {
	// Server
	Port               int
	CORSAllowedOrigins []string
	LogLevel           slog.Level

	// Database. A postgres:// or postgresql:// URL selects the gorm store;
	// anything else is treated as a SQLite path (an optional sqlite:// prefix is stripped).
	DatabaseURL string

	// Auth
	JWTSecret   string
	TokenTTL    time.Duration
	TokenHeader string
	BcryptCost  int

	// Listing
	PageSize int
}

// LoadDotEnv loads a .env file into the process environment if one exists.
// Variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("config: loading %s: %w", p, err)
		}
	}
	return nil
}

// Load builds a Config from environment variables.
//
// DATABASE_URL and JWT_SECRET are required. Every missing or malformed
// variable is collected so the operator sees all of them in one error.
func Load() (*Config, error) {
	var errs []string

	cfg := &Config{
		DatabaseURL: getRequiredEnv("DATABASE_URL", &errs),
		JWTSecret:   getRequiredEnv("JWT_SECRET", &errs),
		Port:        getOptionalEnvInt("PORT", 8080, &errs),
		TokenTTL:    getOptionalEnvDuration("TOKEN_TTL", time.Hour, &errs),
		TokenHeader: getOptionalEnv("TOKEN_HEADER", "X-Auth-Token"),
		BcryptCost:  getOptionalEnvInt("BCRYPT_COST", 12, &errs),
		PageSize:    getOptionalEnvInt("PAGE_SIZE", 2, &errs),
		LogLevel:    parseLevel(getOptionalEnv("LOG_LEVEL", "info"), &errs),
	}

	for _, o := range strings.Split(getOptionalEnv("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	if cfg.JWTSecret != "" && len(cfg.JWTSecret) < 16 {
		errs = append(errs, "JWT_SECRET must be at least 16 characters")
	}
	if cfg.TokenTTL <= 0 {
		errs = append(errs, "TOKEN_TTL must be positive")
	}
	if cfg.PageSize <= 0 {
		errs = append(errs, "PAGE_SIZE must be positive")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// IsPostgres reports whether DatabaseURL points at a Postgres server.
func (c *Config) IsPostgres() bool {
	return IsPostgresURL(c.DatabaseURL)
}

// IsPostgresURL reports whether dsn uses a postgres URL scheme.
func IsPostgresURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func getRequiredEnv(key string, errs *[]string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		*errs = append(*errs, fmt.Sprintf("missing required environment variable: %s", key))
	}
	return value
}

func getOptionalEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getOptionalEnvInt(key string, defaultValue int, errs *[]string) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected integer, got %q", key, raw))
		return defaultValue
	}
	return v
}

func getOptionalEnvDuration(key string, defaultValue time.Duration, errs *[]string) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected duration like 30m, got %q", key, raw))
		return defaultValue
	}
	return d
}

func parseLevel(raw string, errs *[]string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(raw)); err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for LOG_LEVEL: %q", raw))
		return slog.LevelInfo
	}
	return lvl
}
