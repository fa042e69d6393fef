// Package config holds the bot configuration and the durable-file helpers.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Publish modes for the verification message (see Config.PublishMode).
const (
	PublishAlways = "always" // every /setup-verify sends a fresh message
	PublishOnce   = "once"   // refuse a re-publish while this process remembers one
)

// Config is the bot configuration, read from the environment.
// An optional .env file is loaded by main before this is processed.
type Config struct {
	Token           string        `envconfig:"DISCORD_TOKEN"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	GuildConfigPath string        `envconfig:"GUILD_CONFIG" default:"guild_config.json"`
	APITimeout      time.Duration `envconfig:"API_TIMEOUT" default:"10s"`
	PublishMode     string        `envconfig:"PUBLISH_MODE" default:"always"`
	WatchConfig     bool          `envconfig:"WATCH_CONFIG" default:"false"`
	ConfigBackups   int           `envconfig:"CONFIG_BACKUPS" default:"3"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("alterra", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if cfg.Token == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN is not set")
	}

	switch cfg.PublishMode {
	case PublishAlways, PublishOnce:
	default:
		return nil, fmt.Errorf("invalid PUBLISH_MODE %q (want %q or %q)", cfg.PublishMode, PublishAlways, PublishOnce)
	}

	return cfg, nil
}
