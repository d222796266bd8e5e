// Package config loads match-sync settings from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"match-sync/internal/analysis"
	"match-sync/internal/riot"
)

// Config is the root configuration.
type Config struct {
	Riot      RiotConfig      `koanf:"riot"`
	Sync      SyncConfig      `koanf:"sync"`
	Analysis  analysis.Config `koanf:"analysis"`
	Database  DatabaseConfig  `koanf:"database"`
	Cache     CacheConfig     `koanf:"cache"`
	Server    ServerConfig    `koanf:"server"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Discord   DiscordConfig   `koanf:"discord"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// RiotConfig configures the Riot API client and its request pacing.
type RiotConfig struct {
	APIKey      string `koanf:"api_key"`
	RegionalURL string `koanf:"regional_url" validate:"required,url"`
	PlatformURL string `koanf:"platform_url" validate:"required,url"`

	MaxAttempts int           `koanf:"max_attempts" validate:"gte=1,lte=10"`
	BaseDelay   time.Duration `koanf:"base_delay" validate:"gt=0"`
	Timeout     time.Duration `koanf:"timeout" validate:"gt=0"`

	// 0 disables the corresponding limiter
	RequestsPerSecond     int `koanf:"requests_per_second" validate:"gte=0"`
	RequestsPerTwoMinutes int `koanf:"requests_per_two_minutes" validate:"gte=0"`

	MatchHistoryCount int `koanf:"match_history_count" validate:"gte=1,lte=100"`
	QueueID           int `koanf:"queue_id" validate:"gte=0"`
}

type SyncConfig struct {
	AccountWorkers     int           `koanf:"account_workers" validate:"gte=1"`
	MatchWorkers       int           `koanf:"match_workers" validate:"gte=1"`
	CursorFlushTimeout time.Duration `koanf:"cursor_flush_timeout" validate:"gt=0"`
}

// DatabaseConfig selects the store. URL may be a postgres:// DSN, a libsql://
// Turso URL, or a SQLite path.
type DatabaseConfig struct {
	URL       string `koanf:"url" validate:"required"`
	AuthToken string `koanf:"auth_token"`
}

// CacheConfig configures the on-disk cache of raw match payloads.
type CacheConfig struct {
	Enabled bool          `koanf:"enabled"`
	Path    string        `koanf:"path" validate:"required_if=Enabled true"`
	TTL     time.Duration `koanf:"ttl" validate:"gte=0"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required,hostname_port"`
	SyncCooldown    time.Duration `koanf:"sync_cooldown" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

type SchedulerConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval" validate:"gte=0"`
}

type DiscordConfig struct {
	WebhookURL string `koanf:"webhook_url" validate:"omitempty,url"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error off disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// ErrMissingAPIKey is returned by RequireAPIKey when no key is configured.
var ErrMissingAPIKey = errors.New("riot.api_key is not set (RIOT_API_KEY)")

func defaultConfig() *Config {
	return &Config{
		Riot: RiotConfig{
			RegionalURL:           riot.DefaultRegionalURL,
			PlatformURL:           riot.DefaultPlatformURL,
			MaxAttempts:           3,
			BaseDelay:             time.Second,
			Timeout:               30 * time.Second,
			RequestsPerSecond:     15,
			RequestsPerTwoMinutes: 90,
			MatchHistoryCount:     riot.DefaultMatchHistoryCount,
		},
		Sync: SyncConfig{
			AccountWorkers:     5,
			MatchWorkers:       4,
			CursorFlushTimeout: 30 * time.Second,
		},
		Analysis: analysis.DefaultConfig(),
		Database: DatabaseConfig{
			URL: "match-sync.db",
		},
		Cache: CacheConfig{
			Enabled: false,
			Path:    "data/payload-cache",
			TTL:     7 * 24 * time.Hour,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			SyncCooldown:    time.Minute,
			ShutdownTimeout: 15 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Interval: 30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks struct tags and the few rules tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive when the scheduler is enabled")
	}
	return nil
}

// RequireAPIKey fails for commands that talk to Riot without a key.
func (c *Config) RequireAPIKey() error {
	if c.Riot.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}
