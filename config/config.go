/*
Package config loads server and CLI settings.

SOURCES (later wins):
  1. Built-in defaults
  2. .env file in the working directory (optional)
  3. Environment variables
  4. Command-line flags

KEYS:
  PORT              -port              HTTP port (8080)
  DB_DRIVER         -driver            sqlite | postgres | memory (sqlite)
  DB_PATH           -db                SQLite path, ":memory:" allowed (certs.db)
  DATABASE_URL      -database-url      PostgreSQL URL, required for postgres
  SCORING_POLICY    -scoring           balanced | tenure-weighted | path/to/policy.json
  REFRESH_INTERVAL  -refresh-interval  status refresh period, 0 disables (0)
  CORS_ORIGINS      -cors-origins      comma separated origins
  MAX_BODY_BYTES    -max-body-bytes    request body limit (32 MiB)
  APP_ENV           -env               development | production (production)
*/
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port            int
	Driver          string
	DBPath          string
	DatabaseURL     string
	ScoringPolicy   string
	RefreshInterval time.Duration
	CORSOrigins     []string
	MaxBodyBytes    int64
	Environment     string
}

// IsDevelopment reports whether development logging and defaults apply.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Load reads .env, the environment and then args (without the program name).
// extra registers command-specific flags on the same flag set.
func Load(args []string, extra ...func(*flag.FlagSet)) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return Parse(args, extra...)
}

// Parse is Load without the .env file.
func Parse(args []string, extra ...func(*flag.FlagSet)) (Config, error) {
	var cfg Config
	var origins string

	flags := flag.NewFlagSet("cert-tracker", flag.ContinueOnError)
	flags.IntVar(&cfg.Port, "port", getEnvInt("PORT", 8080), "HTTP server port")
	flags.StringVar(&cfg.Driver, "driver", getEnv("DB_DRIVER", DriverSQLite), "storage driver: sqlite, postgres or memory")
	flags.StringVar(&cfg.DBPath, "db", getEnv("DB_PATH", "certs.db"), "SQLite database path")
	flags.StringVar(&cfg.DatabaseURL, "database-url", getEnv("DATABASE_URL", ""), "PostgreSQL connection URL")
	flags.StringVar(&cfg.ScoringPolicy, "scoring", getEnv("SCORING_POLICY", "balanced"), "scoring policy preset or JSON file")
	flags.DurationVar(&cfg.RefreshInterval, "refresh-interval", getEnvDuration("REFRESH_INTERVAL", 0), "status refresh period (0 disables)")
	flags.StringVar(&origins, "cors-origins", getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:8080"), "allowed CORS origins")
	flags.Int64Var(&cfg.MaxBodyBytes, "max-body-bytes", int64(getEnvInt("MAX_BODY_BYTES", 32<<20)), "request body limit in bytes")
	flags.StringVar(&cfg.Environment, "env", getEnv("APP_ENV", "production"), "development or production")
	for _, register := range extra {
		register(flags)
	}

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.CORSOrigins = splitList(origins)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects inconsistent settings.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			return errors.New("sqlite driver needs a database path")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return errors.New("postgres driver needs DATABASE_URL")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown driver %q (sqlite, postgres, memory)", c.Driver)
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("invalid refresh interval %s", c.RefreshInterval)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid max body bytes %d", c.MaxBodyBytes)
	}
	switch c.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("unknown environment %q", c.Environment)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
