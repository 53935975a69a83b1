package asset

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

// FileSourceConfig represents local mirror settings.
type FileSourceConfig struct {
	Root string `mapstructure:"root" validate:"required"`
}

// FileSource opens verse audio from a local mirror laid out as
// <root>/<reciter>/<CCC><VVV>.mp3.
type FileSource struct {
	config *FileSourceConfig
}

// NewFileSource creates a new FileSource from raw settings.
func NewFileSource(settings map[string]any) (*FileSource, error) {
	var config FileSourceConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		zlog.Error().Msgf("file source validation failed: %v", err)
		return nil, errors.Wrap(err, "validation failed")
	}
	return &FileSource{config: &config}, nil
}

// Path returns the file path for key.
func (s *FileSource) Path(key Key) string {
	return filepath.Join(s.config.Root, key.Reciter, key.FileName())
}

// Open opens the mirrored file.
func (s *FileSource) Open(ctx context.Context, key Key) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(ErrNotFound, "file %s", s.Path(key))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", s.Path(key))
	}
	return f, nil
}

// Name returns the source name.
func (s *FileSource) Name() string {
	return "file"
}
