package sequencer

import (
	"github.com/cockroachdb/errors"

	"github.com/osa030/hifzbox/internal/domain/verse"
)

// Errors
var (
	ErrResourceLoad      = errors.New("resource load failed")
	ErrResourcePlay      = errors.New("resource play failed")
	ErrInvalidRange      = verse.ErrInvalidRange
	ErrInvalidRepeat     = errors.New("repeat count must be >= 0")
	ErrInvalidCollection = errors.New("collection must contain at least one item")
	ErrClosed            = errors.New("sequencer is closed")
)

// loadError wraps a provider failure so errors.Is(err, ErrResourceLoad) holds.
func loadError(cause error, req Request) error {
	if cause == nil {
		cause = errors.New("unknown load failure")
	}
	return errors.Mark(
		errors.Wrapf(cause, "load chapter=%d verse=%d voice=%s", req.Collection, req.Item, req.Voice),
		ErrResourceLoad,
	)
}

// playError wraps a provider failure so errors.Is(err, ErrResourcePlay) holds.
func playError(cause error, req Request) error {
	if cause == nil {
		cause = errors.New("unknown play failure")
	}
	return errors.Mark(
		errors.Wrapf(cause, "play chapter=%d verse=%d voice=%s", req.Collection, req.Item, req.Voice),
		ErrResourcePlay,
	)
}
