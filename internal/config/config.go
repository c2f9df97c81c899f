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

type Config struct {
	DatabaseURL          string
	DBName               string
	HTTPAddr             string
	RequestTimeout       time.Duration
	NATSURL              string
	NATSSubjectPrefix    string
	LogNATSSubjects      bool
	MetricsAddr          string
	GraphCache           bool
	GraphRefreshInterval time.Duration
	LogLevel             string
	LogFormat            string
	SeedFile             string
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	// DATABASE_URL selects the backend by scheme; PG* vars build a postgres DSN.
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" {
		host := getenvDefault("PGHOST", "127.0.0.1")
		port := getenvDefault("PGPORT", "5432")
		user := getenvDefault("PGUSER", "postgres")
		pass := os.Getenv("PGPASSWORD")
		db := os.Getenv("PGDATABASE")
		if db == "" {
			return nil, errors.New("PGDATABASE or DATABASE_URL must be set (DATABASE_URL=memory for a throwaway store)")
		}
		sslmode := getenvDefault("PGSSLMODE", "disable")
		if pass != "" {
			cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
		} else {
			cfg.DatabaseURL = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
		}
	} else {
		cfg.DatabaseURL = dsn
	}

	// Optional database name override for postgres DSNs
	cfg.DBName = strings.TrimSpace(os.Getenv("SUBWAY_DB_NAME"))

	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", ":8080")

	if v := os.Getenv("REQUEST_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid REQUEST_TIMEOUT_MS: %q", v)
		}
		cfg.RequestTimeout = time.Duration(ms) * time.Millisecond
	} else {
		cfg.RequestTimeout = 5 * time.Second
	}

	// Empty NATS_URL disables change events.
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSSubjectPrefix = getenvDefault("NATS_SUBJECT_PREFIX", "subway")
	cfg.LogNATSSubjects = truthy(os.Getenv("LOG_NATS_SUBJECTS"), false)

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	cfg.GraphCache = truthy(os.Getenv("GRAPH_CACHE"), true)

	if v := os.Getenv("GRAPH_REFRESH_INTERVAL_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec < 0 {
			return nil, fmt.Errorf("invalid GRAPH_REFRESH_INTERVAL_SEC: %q", v)
		}
		cfg.GraphRefreshInterval = time.Duration(sec) * time.Second
	}

	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q", cfg.LogLevel)
	}
	cfg.LogFormat = strings.ToLower(getenvDefault("LOG_FORMAT", "json"))
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("invalid LOG_FORMAT: %q", cfg.LogFormat)
	}

	cfg.SeedFile = os.Getenv("SEED_FILE")

	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truthy(v string, def bool) bool {
	if strings.TrimSpace(v) == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
