// Package config loads runtime configuration in three layers: built-in
// defaults, an optional YAML file, and MCZ_WATCHER_* environment variables
// (highest priority, "__" for nesting, e.g. MCZ_WATCHER_TELEGRAM__BOT_TOKEN
// -> telegram.bot_token).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "MCZ_WATCHER_"

// DefaultConfigPaths are searched in order when no explicit path is given.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

type Config struct {
	Timezone string `koanf:"timezone" validate:"required"`
	DataDir  string `koanf:"data_dir" validate:"required"`

	Ingresso IngressoConfig `koanf:"ingresso"`
	Cache    CacheConfig    `koanf:"cache"`
	Upcoming UpcomingConfig `koanf:"upcoming"`
	Telegram TelegramConfig `koanf:"telegram"`
	TMDB     TMDBConfig     `koanf:"tmdb"`
	Browser  BrowserConfig  `koanf:"browser"`
}

type IngressoConfig struct {
	BaseURL   string `koanf:"base_url" validate:"required,url"`
	CityID    int    `koanf:"city_id" validate:"gt=0"`
	TheaterID int    `koanf:"theater_id" validate:"gt=0"`
}

type CacheConfig struct {
	// TTL bounds the in-process source memoization; the durable cache
	// expires on the venue-local day rollover regardless.
	TTL        time.Duration `koanf:"ttl"`
	MaxEntries int           `koanf:"max_entries"`
}

type UpcomingConfig struct {
	HorizonDays int `koanf:"horizon_days" validate:"gt=0"`
}

type TelegramConfig struct {
	BotToken string `koanf:"bot_token"`
	ChatID   int64  `koanf:"chat_id"`
}

type TMDBConfig struct {
	APIKey string `koanf:"api_key"`
}

type BrowserConfig struct {
	// Headless routes listings fetches through a headless browser instead
	// of plain HTTP. Needed when the API starts rejecting plain clients.
	Headless bool `koanf:"headless"`
}

func defaults() *Config {
	return &Config{
		Timezone: "America/Maceio",
		DataDir:  "data",
		Ingresso: IngressoConfig{
			BaseURL:   "https://api-content.ingresso.com",
			CityID:    53,   // Maceió
			TheaterID: 1162, // Cinesystem Maceió
		},
		Cache: CacheConfig{
			TTL:        5 * time.Minute,
			MaxEntries: 64,
		},
		Upcoming: UpcomingConfig{
			HorizonDays: 14,
		},
	}
}

// Load layers defaults, the config file (explicit path, or the first
// default path that exists), and environment variables, then validates.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Location resolves the configured venue timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// envTransform maps MCZ_WATCHER_TELEGRAM__BOT_TOKEN to telegram.bot_token.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func findConfigFile() string {
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
