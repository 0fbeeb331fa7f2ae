// Package config loads process configuration from the environment, after an
// optional .env file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is shared by the API server and the worker.
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	DatabaseURL        string        `env:"DATABASE_URL,required"`
	DBMaxConns         int32         `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns         int32         `env:"DB_MIN_CONNS" envDefault:"5"`
	DBStatementTimeout time.Duration `env:"DB_STATEMENT_TIMEOUT" envDefault:"30s"`

	JWTSecret            string `env:"JWT_SECRET,required"`
	JWTIssuer            string `env:"JWT_ISSUER" envDefault:"stockflow"`
	PermissionPolicyFile string `env:"PERMISSION_POLICY_FILE"`

	IdempotencyTTL         time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	AuditCompressThreshold int           `env:"AUDIT_COMPRESS_THRESHOLD" envDefault:"8192"`

	OutboxInterval   time.Duration `env:"OUTBOX_INTERVAL" envDefault:"2s"`
	OutboxBatchSize  int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
	OutboxMaxRetries int           `env:"OUTBOX_MAX_RETRIES" envDefault:"5"`
	OutboxRetention  time.Duration `env:"OUTBOX_RETENTION" envDefault:"168h"`
	CleanupInterval  time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Development reports whether the process runs with development defaults.
func (c Config) Development() bool {
	return c.AppEnv == "development"
}

// Load reads .env when present and parses the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse parses the environment without touching .env.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.DBMinConns > c.DBMaxConns:
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	case c.OutboxBatchSize <= 0:
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be positive")
	case len(c.JWTSecret) < 16:
		return fmt.Errorf("JWT_SECRET must be at least 16 bytes")
	}
	return nil
}

// PermissionPolicies reads the optional policy file: a JSON object mapping
// "resource:action" to a CEL expression. No file means no policies.
func (c Config) PermissionPolicies() (map[string]string, error) {
	if c.PermissionPolicyFile == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(c.PermissionPolicyFile)
	if err != nil {
		return nil, fmt.Errorf("read permission policy file: %w", err)
	}
	rules := map[string]string{}
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("parse permission policy file: %w", err)
	}
	return rules, nil
}
