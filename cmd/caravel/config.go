package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/avelar/caravel/internal/core/config"
)

// =============================================================================
// Config Loading
// =============================================================================

// AppConfig holds everything one invocation reads from file and environment.
// Deployment fields left empty here are collected interactively.
type AppConfig struct {
	Deploy config.Deployment `mapstructure:"deploy"`
	Log    LogConfig         `mapstructure:"log"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig loads configuration from an optional file and the environment.
func LoadConfig(configPath string) (*AppConfig, error) {
	v := viper.New()

	// Set defaults. Every key needs one registered so environment
	// overrides reach Unmarshal; empty deploy values are prompted later.
	v.SetDefault("deploy.repo_url", "")
	v.SetDefault("deploy.token", "")
	v.SetDefault("deploy.branch", "")
	v.SetDefault("deploy.ssh_user", "")
	v.SetDefault("deploy.server", "")
	v.SetDefault("deploy.key_path", "")
	v.SetDefault("deploy.app_port", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, everything gets prompted
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("CARAVEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger writing to the run log (console plus file)
// with the configured level and format.
func SetupLogger(cfg LogConfig, out io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}
