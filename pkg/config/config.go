// Package config loads the server configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	// TrustedRoot limits workspace grants to this directory tree. Empty disables the check.
	TrustedRoot string `env:"HOME"`

	// ScopeFile persists granted directories. Empty keeps them in memory only.
	ScopeFile string `env:"NEO_SCOPE_FILE"`

	LogLevel string `env:"NEO_LOG_LEVEL" envDefault:"INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
	LogFile  string `env:"NEO_LOG_FILE"`

	IconSize int `env:"NEO_ICON_SIZE" envDefault:"32" validate:"min=1,max=1024"`

	// CommandTimeout bounds each external utility run. Zero means no timeout.
	CommandTimeout time.Duration `env:"NEO_COMMAND_TIMEOUT" envDefault:"0s" validate:"gte=0"`
}

// Load parses and validates the configuration.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.LogLevel = strings.ToUpper(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks field constraints. Call it again after applying flag overrides.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// SlogLevel maps LogLevel to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
