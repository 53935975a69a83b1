package asset

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

// HTTPSourceConfig represents HTTP source settings.
type HTTPSourceConfig struct {
	BaseURL    string            `mapstructure:"base_url" default:"https://everyayah.com/data" validate:"required,url"`
	Reciters   map[string]string `mapstructure:"reciters"`
	TimeoutSec int               `mapstructure:"timeout_sec" default:"30" validate:"gte=1,lte=300"`
	CacheDir   string            `mapstructure:"cache_dir"`
}

// HTTPSource downloads verse audio from an everyayah-style CDN laid out as
// <base>/<reciter>/<CCC><VVV>.mp3. Per-reciter base URLs override the layout.
type HTTPSource struct {
	config     *HTTPSourceConfig
	httpClient *http.Client
}

// NewHTTPSource creates a new HTTPSource from raw settings.
func NewHTTPSource(settings map[string]any) (*HTTPSource, error) {
	var config HTTPSourceConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	zlog.Debug().Msgf("http source config: %+v", config)
	if err := validator.New().Struct(config); err != nil {
		zlog.Error().Msgf("http source validation failed: %v", err)
		return nil, errors.Wrap(err, "validation failed")
	}

	return &HTTPSource{
		config:     &config,
		httpClient: &http.Client{Timeout: time.Duration(config.TimeoutSec) * time.Second},
	}, nil
}

// URL returns the download URL for key.
func (s *HTTPSource) URL(key Key) string {
	if base, ok := s.config.Reciters[key.Reciter]; ok && base != "" {
		return strings.TrimRight(base, "/") + "/" + key.FileName()
	}
	return strings.TrimRight(s.config.BaseURL, "/") + "/" + key.Reciter + "/" + key.FileName()
}

// Open downloads the verse audio, writing it to the cache directory when one is configured.
func (s *HTTPSource) Open(ctx context.Context, key Key) (io.ReadCloser, error) {
	url := s.URL(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to download %s", url)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.Wrapf(ErrNotFound, "GET %s", url)
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Newf("GET %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", url)
	}
	zlog.Debug().Msgf("downloaded verse audio: key=%s bytes=%d", key, len(body))

	if s.config.CacheDir != "" {
		if err := s.store(key, body); err != nil {
			zlog.Warn().Msgf("failed to cache verse audio: key=%s: %v", key, err)
		}
	}

	return io.NopCloser(bytes.NewReader(body)), nil
}

// store writes body into the cache directory using the FileSource layout.
func (s *HTTPSource) store(key Key, body []byte) error {
	path := filepath.Join(s.config.CacheDir, key.Reciter, key.FileName())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create cache directory")
	}
	tmp := path + ".part"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return errors.Wrap(err, "failed to write cache file")
	}
	return errors.Wrap(os.Rename(tmp, path), "failed to finalize cache file")
}

// Name returns the source name.
func (s *HTTPSource) Name() string {
	return "http"
}
