package filter

import (
	"context"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

// NameLengthConfig represents the configuration for NameLengthFilter.
type NameLengthConfig struct {
	MaxRunes int `yaml:"max_runes" mapstructure:"max_runes" default:"64" validate:"gte=1,lte=1024"`
}

// NameLengthFilter checks that session names are not overly long.
type NameLengthFilter struct {
	config *NameLengthConfig
}

// NewNameLengthFilter creates a new name length filter.
func NewNameLengthFilter() *NameLengthFilter {
	return &NameLengthFilter{}
}

func (f *NameLengthFilter) Name() string {
	return "name_length_filter"
}

func (f *NameLengthFilter) Description() string {
	return "Checks that session names do not exceed a maximum length"
}

func (f *NameLengthFilter) ReturnCodes() []string {
	return []string{"name_too_long"}
}

func (f *NameLengthFilter) ValidateConfig(settings map[string]any) error {
	var config NameLengthConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	f.config = &config
	zlog.Info().Msgf("name length filter config: %+v", config)
	return nil
}

func (f *NameLengthFilter) AppliesTo(origin Origin) bool {
	return origin.External()
}

func (f *NameLengthFilter) Check(ctx context.Context, req Request) Result {
	if f.config == nil {
		return Accept()
	}
	if utf8.RuneCountInString(req.Session.Name) > f.config.MaxRunes {
		return Reject("name_too_long")
	}
	return Accept()
}

func init() {
	Register("name_length_filter", func() Filter {
		return &NameLengthFilter{}
	})
}
