package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

// RepeatLimitConfig represents the configuration for RepeatLimitFilter.
type RepeatLimitConfig struct {
	Max            int  `yaml:"max" mapstructure:"max" default:"100" validate:"gte=1"`
	ForbidInfinite bool `yaml:"forbid_infinite" mapstructure:"forbid_infinite"`
}

// RepeatLimitFilter checks that the repeat count stays within limits.
type RepeatLimitFilter struct {
	config *RepeatLimitConfig
}

// NewRepeatLimitFilter creates a new repeat limit filter.
func NewRepeatLimitFilter() *RepeatLimitFilter {
	return &RepeatLimitFilter{}
}

func (f *RepeatLimitFilter) Name() string {
	return "repeat_limit_filter"
}

func (f *RepeatLimitFilter) Description() string {
	return "Checks that the repeat count is within allowed limits"
}

func (f *RepeatLimitFilter) ReturnCodes() []string {
	return []string{"repeat_limit_exceeded"}
}

func (f *RepeatLimitFilter) ValidateConfig(settings map[string]any) error {
	var config RepeatLimitConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &config,
		TagName: "mapstructure",
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}

	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}

	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}

	f.config = &config
	zlog.Info().Msgf("repeat limit filter config: %+v", config)
	return nil
}

func (f *RepeatLimitFilter) AppliesTo(origin Origin) bool {
	return true
}

func (f *RepeatLimitFilter) Check(ctx context.Context, req Request) Result {
	if f.config == nil {
		return Accept()
	}

	repeat := req.Session.Repeat
	if repeat == 0 {
		if f.config.ForbidInfinite {
			return Reject("repeat_limit_exceeded")
		}
		return Accept()
	}
	if repeat > f.config.Max {
		return Reject("repeat_limit_exceeded")
	}
	return Accept()
}

func init() {
	Register("repeat_limit_filter", func() Filter {
		return &RepeatLimitFilter{}
	})
}
