package asset

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Chain tries multiple sources in order until one opens the asset.
type Chain struct {
	sources []Source
}

// NewChain creates a new source chain.
func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

// Open returns the first stream any source can open. When every source fails
// the combined error is returned; it matches ErrNotFound only if all sources
// reported the asset missing.
func (c *Chain) Open(ctx context.Context, key Key) (io.ReadCloser, error) {
	if len(c.sources) == 0 {
		return nil, errors.New("no audio sources configured")
	}

	var combined error
	missing := 0
	for i, src := range c.sources {
		zlog.Debug().Msgf("trying source: index=%d total=%d source=%s key=%s", i+1, len(c.sources), src.Name(), key)

		rc, err := src.Open(ctx, key)
		if err == nil {
			return rc, nil
		}
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "open cancelled")
		}
		zlog.Debug().Msgf("source failed, trying next: source=%s key=%s error=%v", src.Name(), key, err)
		if errors.Is(err, ErrNotFound) {
			missing++
			continue
		}
		combined = errors.CombineErrors(combined, err)
	}

	if missing == len(c.sources) {
		return nil, errors.Wrapf(ErrNotFound, "key=%s", key)
	}
	return nil, errors.Wrapf(combined, "all sources failed: key=%s", key)
}

// Name returns the chain name.
func (c *Chain) Name() string {
	return "source_chain"
}
