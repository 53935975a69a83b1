package asset

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/hifzbox/internal/infra/config"
)

// NewChainFromConfig creates a source chain from configuration.
func NewChainFromConfig(cfgs []config.SourceConfig) (*Chain, error) {
	if len(cfgs) == 0 {
		return nil, errors.New("no audio sources configured")
	}

	sources := make([]Source, 0, len(cfgs))
	for i, scfg := range cfgs {
		var src Source
		var err error
		zlog.Debug().Msgf("creating audio source: index=%d type=%s settings=%+v", i+1, scfg.Type, scfg.Settings)
		switch scfg.Type {
		case "http":
			src, err = NewHTTPSource(scfg.Settings)
		case "file":
			src, err = NewFileSource(scfg.Settings)
		default:
			return nil, errors.Newf("unsupported source type: %s (source index %d)", scfg.Type, i)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create source (index %d, type %s)", i, scfg.Type)
		}

		sources = append(sources, src)
		zlog.Info().Msgf("registered audio source: index=%d type=%s", i+1, scfg.Type)
	}

	return NewChain(sources...), nil
}
