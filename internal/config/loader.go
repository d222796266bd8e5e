package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/match-sync/config.yaml",
}

// DotEnvPaths are tried in order; the first .env that loads wins.
var DotEnvPaths = []string{".env", "../.env", "../../.env"}

// LoadDotEnv loads the first .env file found and returns its path, or "" when
// none exists. Variables already set in the environment are kept.
func LoadDotEnv() string {
	for _, path := range DotEnvPaths {
		if err := godotenv.Load(path); err == nil {
			return path
		}
	}
	return ""
}

// Load layers defaults, the config file (explicit path, CONFIG_PATH, or the
// first of DefaultConfigPaths) and environment variables, then validates.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.Riot.APIKey = strings.Trim(cfg.Riot.APIKey, "\"")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps environment variables to config keys. Unlisted variables
// are ignored.
var envMappings = map[string]string{
	"riot_api_key":                  "riot.api_key",
	"riot_regional_url":             "riot.regional_url",
	"riot_platform_url":             "riot.platform_url",
	"riot_max_attempts":             "riot.max_attempts",
	"riot_base_delay":               "riot.base_delay",
	"riot_timeout":                  "riot.timeout",
	"riot_requests_per_second":      "riot.requests_per_second",
	"riot_requests_per_two_minutes": "riot.requests_per_two_minutes",
	"riot_match_history_count":      "riot.match_history_count",
	"riot_queue_id":                 "riot.queue_id",

	"sync_account_workers":      "sync.account_workers",
	"sync_match_workers":        "sync.match_workers",
	"sync_cursor_flush_timeout": "sync.cursor_flush_timeout",

	"analysis_teamfight_window":         "analysis.teamfight_window",
	"analysis_teamfight_radius":         "analysis.teamfight_radius",
	"analysis_teamfight_min_kills":      "analysis.teamfight_min_kills",
	"analysis_vision_window":            "analysis.vision_window",
	"analysis_kill_context_window":      "analysis.kill_context_window",
	"analysis_grouped_push_radius":      "analysis.grouped_push_radius",
	"analysis_grouped_push_min_players": "analysis.grouped_push_min_players",
	"analysis_curve_kill_window":        "analysis.curve_kill_window",
	"analysis_laning_minute":            "analysis.laning_minute",
	"analysis_turning_point_threshold":  "analysis.turning_point_threshold",
	"analysis_frame_interval":           "analysis.frame_interval",

	"database_url":     "database.url",
	"turso_auth_token": "database.auth_token",

	"cache_enabled": "cache.enabled",
	"cache_path":    "cache.path",
	"cache_ttl":     "cache.ttl",

	"server_addr":             "server.addr",
	"server_sync_cooldown":    "server.sync_cooldown",
	"server_shutdown_timeout": "server.shutdown_timeout",

	"scheduler_enabled":  "scheduler.enabled",
	"scheduler_interval": "scheduler.interval",

	"discord_webhook": "discord.webhook_url",

	"log_level":  "logging.level",
	"log_format": "logging.format",
}

func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
