package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"resume-builder/internal/shared/telemetry"
)

const (
	DeletePolicyRetain  = "retain"
	DeletePolicyCascade = "cascade"
)

// Config holds application configuration.
type Config struct {
	Port            string   `envconfig:"PORT" default:"8080"`
	Env             string   `envconfig:"ENV" default:"dev"`
	DatabaseURL     string   `envconfig:"DATABASE_URL"`
	CORSAllowOrigin []string `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000"`
	ServiceName     string   `envconfig:"SERVICE_NAME" default:"resume-builder-api"`
	LogFile         string   `envconfig:"LOG_FILE"`

	FirebaseProjectID          string        `envconfig:"FIREBASE_PROJECT_ID"`
	FirebaseJWKSURL            string        `envconfig:"FIREBASE_JWKS_URL" default:"https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"`
	FirebaseServiceAccountPath string        `envconfig:"FIREBASE_SERVICE_ACCOUNT_PATH"`
	JWKSRefreshInterval        time.Duration `envconfig:"JWKS_REFRESH_INTERVAL" default:"1h"`
	JWTSecret                  string        `envconfig:"JWT_SECRET"`

	AdminSubjects    []string `envconfig:"ADMIN_SUBJECTS"`
	UserDeletePolicy string   `envconfig:"USER_DELETE_POLICY" default:"retain"`

	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"10"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"20"`

	DBMaxOpenConns  int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	DBWriteTimeout  time.Duration `envconfig:"DB_WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		telemetry.Warn("config.invalid", map[string]any{"err": err})
	}
	return Normalize(cfg)
}

// Normalize canonicalizes free-form values so callers can compare them directly.
func Normalize(cfg Config) Config {
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.UserDeletePolicy = normalizeDeletePolicy(cfg.UserDeletePolicy)
	cfg.CORSAllowOrigin = trimAll(cfg.CORSAllowOrigin)
	cfg.AdminSubjects = trimAll(cfg.AdminSubjects)
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.DBMaxOpenConns <= 0 {
		cfg.DBMaxOpenConns = 10
	}
	if cfg.DBWriteTimeout <= 0 {
		cfg.DBWriteTimeout = 10 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}
	if cfg.JWKSRefreshInterval <= 0 {
		cfg.JWKSRefreshInterval = time.Hour
	}

	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		telemetry.Warn("config.missing", map[string]any{"key": "DATABASE_URL"})
	}
	if cfg.Env == "production" && cfg.FirebaseProjectID == "" {
		telemetry.Warn("config.missing", map[string]any{"key": "FIREBASE_PROJECT_ID"})
	}
	return cfg
}

// IsDevLike reports whether the environment tolerates in-memory fallbacks.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}

func trimAll(in []string) []string {
	var out []string
	for _, p := range in {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeDeletePolicy(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case DeletePolicyCascade:
		return DeletePolicyCascade
	default:
		return DeletePolicyRetain
	}
}
