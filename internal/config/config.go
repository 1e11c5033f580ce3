// Package config loads runtime settings from the environment.
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

type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
	Test        Environment = "test"
)

// ParseEnvironment accepts the full names and the dev/prod aliases.
func ParseEnvironment(raw string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "development", "dev":
		return Development, nil
	case "production", "prod":
		return Production, nil
	case "test":
		return Test, nil
	default:
		return "", fmt.Errorf("invalid environment: %s", raw)
	}
}

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Addr        string
	Environment Environment
	LogLevel    slog.Level

	DBDriver    string
	DBDSN       string
	SQLitePath  string
	DBTimeout   time.Duration
	AutoMigrate bool

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	MaxBodyBytes       int64
	EnableHSTS         bool

	MirrorAPIURL  string
	MirrorTimeout time.Duration
}

func (c Config) IsDevelopment() bool {
	return c.Environment == Development
}

// LoadEnvFiles reads .env and .env.local if present. Variables already set in
// the process environment win.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	var errs []error
	env := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Addr:         env("APP_ADDR", ":8080"),
		DBDSN:        os.Getenv("DB_DSN"),
		SQLitePath:   env("SQLITE_PATH", "data/booknotes.db"),
		MirrorAPIURL: strings.TrimRight(os.Getenv("MIRROR_API_URL"), "/"),
	}

	var err error
	if cfg.Environment, err = ParseEnvironment(env("ENVIRONMENT", "development")); err != nil {
		errs = append(errs, fmt.Errorf("ENVIRONMENT: %w", err))
	}
	if cfg.LogLevel, err = ParseLogLevel(env("LOG_LEVEL", "info")); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	cfg.DBDriver = strings.ToLower(env("DB_DRIVER", DriverMemory))
	switch cfg.DBDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if cfg.DBDSN == "" {
			errs = append(errs, errors.New("DB_DSN: required when DB_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: unknown driver %q", cfg.DBDriver))
	}

	cfg.DBTimeout = parseDuration(&errs, "DB_TIMEOUT", env("DB_TIMEOUT", "5s"))
	cfg.MirrorTimeout = parseDuration(&errs, "MIRROR_TIMEOUT", env("MIRROR_TIMEOUT", "10s"))
	cfg.AutoMigrate = parseBool(&errs, "AUTO_MIGRATE", env("AUTO_MIGRATE", strconv.FormatBool(cfg.IsDevelopment())))
	cfg.EnableHSTS = parseBool(&errs, "ENABLE_HSTS", env("ENABLE_HSTS", "false"))

	for _, origin := range strings.Split(env("CORS_ALLOWED_ORIGINS", "http://localhost:5173"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	if cfg.RateLimitRPS, err = strconv.ParseFloat(env("RATE_LIMIT_RPS", "10"), 64); err != nil || cfg.RateLimitRPS <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS: must be a positive number"))
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(env("RATE_LIMIT_BURST", "20")); err != nil || cfg.RateLimitBurst <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST: must be a positive integer"))
	}
	if cfg.MaxBodyBytes, err = strconv.ParseInt(env("MAX_BODY_BYTES", "1048576"), 10, 64); err != nil || cfg.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_BODY_BYTES: must be a positive integer"))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", raw)
	}
	return level, nil
}

func parseDuration(errs *[]error, key, raw string) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		*errs = append(*errs, fmt.Errorf("%s: must be a positive duration", key))
		return 0
	}
	return d
}

func parseBool(errs *[]error, key, raw string) bool {
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: must be true or false", key))
		return false
	}
	return v
}

// RedactDSN hides the credentials part of a connection string.
func RedactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
