package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
control:
  token: secret
reciters:
  - name: Alafasy_128kbps
  - name: Husary_64kbps
audio:
  sources:
    - type: http
      settings:
        base_url: https://everyayah.com/data
`

func validConfig() Config {
	return Config{
		Control:  ControlConfig{Token: "secret"},
		Playback: PlaybackConfig{RetryDelayMs: 1000, DefaultSpan: 5, DefaultRepeat: 1, MaxRepeat: 10, EventBuffer: 64, NotifyTimeout: 1000},
		Reciters: []ReciterConfig{{Name: "Alafasy_128kbps"}},
		Audio: AudioConfig{
			SampleRate: 44100,
			BufferMs:   100,
			Sources:    []SourceConfig{{Type: "http"}},
		},
		Catalog: CatalogConfig{BaseURL: "https://cdn.example.org/quran", TimeoutSec: 10},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing control token",
			mutate:  func(c *Config) { c.Control.Token = "" },
			wantErr: true,
			errMsg:  "Token",
		},
		{
			name:    "no reciters",
			mutate:  func(c *Config) { c.Reciters = nil },
			wantErr: true,
			errMsg:  "Reciters",
		},
		{
			name:    "reciter without name",
			mutate:  func(c *Config) { c.Reciters = []ReciterConfig{{DisplayName: "Mishary"}} },
			wantErr: true,
			errMsg:  "Name",
		},
		{
			name:    "no audio sources",
			mutate:  func(c *Config) { c.Audio.Sources = nil },
			wantErr: true,
			errMsg:  "Sources",
		},
		{
			name:    "zero retry delay",
			mutate:  func(c *Config) { c.Playback.RetryDelayMs = 0 },
			wantErr: true,
			errMsg:  "RetryDelayMs",
		},
		{
			name:    "negative retry delay",
			mutate:  func(c *Config) { c.Playback.RetryDelayMs = -1 },
			wantErr: true,
			errMsg:  "RetryDelayMs",
		},
		{
			name:    "unknown default reciter",
			mutate:  func(c *Config) { c.Playback.DefaultReciter = "Nobody" },
			wantErr: true,
			errMsg:  "default_reciter",
		},
		{
			name:    "default repeat above max",
			mutate:  func(c *Config) { c.Playback.DefaultRepeat = 20 },
			wantErr: true,
			errMsg:  "max_repeat",
		},
		{
			name:    "catalog url invalid",
			mutate:  func(c *Config) { c.Catalog.BaseURL = "not a url" },
			wantErr: true,
			errMsg:  "BaseURL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, time.Second, cfg.Playback.RetryDelay())
	assert.Equal(t, 5, cfg.Playback.DefaultSpan)
	assert.Equal(t, 0, cfg.Playback.DefaultRepeat)
	assert.Equal(t, "en", cfg.Playback.Language)
	assert.Equal(t, "Alafasy_128kbps", cfg.Playback.DefaultReciter)
	assert.Equal(t, 44100, cfg.Audio.SampleRate)
	assert.Equal(t, "https://cdn.jsdelivr.net/npm/quran-json@3.1.2/dist", cfg.Catalog.BaseURL)
	assert.Equal(t, "hifzbox.db", cfg.Store.Path)
	assert.Equal(t, []string{"Alafasy_128kbps", "Husary_64kbps"}, cfg.ReciterNames())
}

func TestParse_EnvOverride(t *testing.T) {
	t.Setenv("HIFZBOX_CONTROL_TOKEN", "from-env")
	t.Setenv("HIFZBOX_STORE_PATH", "/tmp/hifz.db")

	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Control.Token)
	assert.Equal(t, "/tmp/hifz.db", cfg.Store.Path)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("control: [unterminated"))
	assert.Error(t, err)

	_, err = Parse([]byte("reciters: []"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Control.Token)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_Filters(t *testing.T) {
	cfg := Config{Filters: map[string]FilterConfig{
		"repeat_limit_filter": {Enabled: true, Settings: map[string]any{"max": 10}},
		"reciter_filter":      {Enabled: false},
	}}

	assert.True(t, cfg.IsFilterEnabled("repeat_limit_filter"))
	assert.False(t, cfg.IsFilterEnabled("reciter_filter"))
	assert.False(t, cfg.IsFilterEnabled("unknown"))
	assert.Equal(t, 10, cfg.FilterSettings("repeat_limit_filter")["max"])
	assert.Nil(t, cfg.FilterSettings("unknown"))
}
