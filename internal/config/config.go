// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

// Package config loads layered configuration: struct defaults, then an
// optional YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/medianest/internal/validation"
)

// DefaultConfigPaths lists where config files are searched, first hit wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/medianest/config.yaml",
	"/etc/medianest/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Config is the full application configuration.
type Config struct {
	Server ServerConfig `koanf:"server"`
	Store  StoreConfig  `koanf:"store"`
	Auth   AuthConfig   `koanf:"auth"`
	Log    LogConfig    `koanf:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=1s"`

	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// RateLimit caps API requests per IP per minute. Zero disables.
	RateLimit int `koanf:"rate_limit" validate:"min=0"`
}

// StoreConfig selects and configures the credential store backend.
type StoreConfig struct {
	// Backend is one of memory, postgres, badger. Memory is for
	// development only; it loses all sessions on restart.
	Backend string `koanf:"backend" validate:"oneof=memory postgres badger"`

	// PostgresDSN is required when backend is postgres.
	PostgresDSN string `koanf:"postgres_dsn" validate:"required_if=Backend postgres"`

	// BadgerPath is required when backend is badger.
	BadgerPath string `koanf:"badger_path" validate:"required_if=Backend badger"`

	// CircuitBreaker wraps the backend in a circuit breaker.
	CircuitBreaker bool `koanf:"circuit_breaker"`
}

// AuthConfig holds the session and login policy.
type AuthConfig struct {
	SessionDuration time.Duration `koanf:"session_duration" validate:"min=1m"`
	MaxSessions     int           `koanf:"max_sessions" validate:"min=1"`

	// ReapInterval is how often expired sessions are purged.
	ReapInterval time.Duration `koanf:"reap_interval" validate:"min=1m"`

	// LoginBurst login attempts are allowed per IP, refilling one per
	// LoginWindow.
	LoginBurst  int           `koanf:"login_burst" validate:"min=1"`
	LoginWindow time.Duration `koanf:"login_window" validate:"min=1s"`

	// DefaultRole, when non-empty, is assigned to newly registered
	// principals. It must exist in the store.
	DefaultRole string `koanf:"default_role"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// defaultConfig returns the defaults applied before file and env layers.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8480,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimit:       600,
		},
		Store: StoreConfig{
			Backend:        "memory",
			BadgerPath:     "/data/medianest/auth",
			CircuitBreaker: true,
		},
		Auth: AuthConfig{
			SessionDuration: 24 * time.Hour,
			MaxSessions:     5,
			ReapInterval:    time.Hour,
			LoginBurst:      5,
			LoginWindow:     time.Minute,
			DefaultRole:     "viewer",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration: defaults, then the config file when one
// exists, then environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps environment variable names to config paths. Variables
// use the MEDIANEST_ prefix with a double underscore between section and
// key: MEDIANEST_AUTH__MAX_SESSIONS -> auth.max_sessions. A few short
// aliases are kept for the common knobs.
func envTransform(key string) string {
	switch key {
	case "SESSION_DURATION":
		return "auth.session_duration"
	case "MAX_SESSIONS":
		return "auth.max_sessions"
	case "DATABASE_URL":
		return "store.postgres_dsn"
	case "HTTP_PORT":
		return "server.port"
	case "LOG_LEVEL":
		return "log.level"
	}

	if !strings.HasPrefix(key, "MEDIANEST_") {
		return ""
	}
	key = strings.ToLower(strings.TrimPrefix(key, "MEDIANEST_"))
	return strings.Replace(key, "__", ".", 1)
}

// Validate checks the struct tags plus the cross-field rules tags cannot
// express.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	// The memory backend forgets sessions on restart; refuse obviously
	// contradictory setups where persistence was clearly intended.
	if c.Store.Backend == "memory" && c.Store.PostgresDSN != "" {
		return fmt.Errorf("store.postgres_dsn is set but store.backend is memory")
	}
	return nil
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
