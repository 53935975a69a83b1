// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig            `yaml:"server"`
	Control  ControlConfig           `yaml:"control"`
	Playback PlaybackConfig          `yaml:"playback"`
	Reciters []ReciterConfig         `yaml:"reciters" validate:"required,min=1,dive"`
	Audio    AudioConfig             `yaml:"audio"`
	Catalog  CatalogConfig           `yaml:"catalog"`
	Store    StoreConfig             `yaml:"store"`
	Filters  map[string]FilterConfig `yaml:"filters"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr     string      `yaml:"addr" default:":8080"`
	ShareURL string      `yaml:"share_url" default:"http://localhost:8080/"`
	Hooks    HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// ControlConfig represents control API configuration.
type ControlConfig struct {
	Token string `yaml:"token" validate:"required"`
}

// PlaybackConfig represents sequencer configuration.
type PlaybackConfig struct {
	RetryDelayMs   int    `yaml:"retry_delay_ms" default:"1000" validate:"gte=1,lte=30000"`
	DefaultSpan    int    `yaml:"default_span" default:"5" validate:"gte=1,lte=286"`
	DefaultRepeat  int    `yaml:"default_repeat" validate:"gte=0"` // 0 loops forever
	MaxRepeat      int    `yaml:"max_repeat" default:"100" validate:"gte=1"`
	DefaultReciter string `yaml:"default_reciter"`
	Language       string `yaml:"language" default:"en"`
	EventBuffer    int    `yaml:"event_buffer" default:"64" validate:"gte=1"`
	NotifyTimeout  int    `yaml:"notify_timeout_ms" default:"1000" validate:"gte=1"`
}

// RetryDelay returns the retry delay as a duration.
func (p PlaybackConfig) RetryDelay() time.Duration {
	return time.Duration(p.RetryDelayMs) * time.Millisecond
}

// NotifyTimeoutDuration returns the per-subscriber send timeout.
func (p PlaybackConfig) NotifyTimeoutDuration() time.Duration {
	return time.Duration(p.NotifyTimeout) * time.Millisecond
}

// ReciterConfig represents a selectable reciter.
type ReciterConfig struct {
	Name        string `yaml:"name" validate:"required"`
	DisplayName string `yaml:"display_name"`
}

// AudioConfig represents audio output configuration.
type AudioConfig struct {
	SampleRate int            `yaml:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	BufferMs   int            `yaml:"buffer_ms" default:"100" validate:"gte=10,lte=2000"`
	Sources    []SourceConfig `yaml:"sources" validate:"required,min=1,dive"`
}

// SourceConfig represents a single audio source configuration.
type SourceConfig struct {
	Type     string         `yaml:"type" validate:"required"`
	Settings map[string]any `yaml:"settings"`
}

// CatalogConfig represents chapter text catalog configuration.
type CatalogConfig struct {
	BaseURL          string `yaml:"base_url" default:"https://cdn.jsdelivr.net/npm/quran-json@3.1.2/dist" validate:"url"`
	TimeoutSec       int    `yaml:"timeout_sec" default:"10" validate:"gte=1,lte=120"`
	FallbackLanguage string `yaml:"fallback_language" default:"en"`
}

// StoreConfig represents session storage configuration.
type StoreConfig struct {
	Path string `yaml:"path" default:"hifzbox.db"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses, defaults and validates YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if cfg.Playback.DefaultReciter == "" && len(cfg.Reciters) > 0 {
		cfg.Playback.DefaultReciter = cfg.Reciters[0].Name
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("HIFZBOX_CONTROL_TOKEN"); v != "" {
		c.Control.Token = v
	}
	if v := os.Getenv("HIFZBOX_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("HIFZBOX_ADDR"); v != "" {
		c.Server.Addr = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Playback.DefaultReciter != "" && !c.IsReciter(c.Playback.DefaultReciter) {
		return errors.Newf("default_reciter %q is not listed in reciters", c.Playback.DefaultReciter)
	}
	if c.Playback.DefaultRepeat > c.Playback.MaxRepeat {
		return errors.Newf("default_repeat (%d) exceeds max_repeat (%d)", c.Playback.DefaultRepeat, c.Playback.MaxRepeat)
	}
	return nil
}

// ReciterNames returns the configured reciter names in order.
func (c *Config) ReciterNames() []string {
	names := make([]string, 0, len(c.Reciters))
	for _, r := range c.Reciters {
		names = append(names, r.Name)
	}
	return names
}

// IsReciter checks if name is a configured reciter.
func (c *Config) IsReciter(name string) bool {
	return slices.Contains(c.ReciterNames(), name)
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// FilterSettings returns the settings for a filter.
func (c *Config) FilterSettings(filterName string) map[string]any {
	if f, ok := c.Filters[filterName]; ok {
		return f.Settings
	}
	return nil
}
