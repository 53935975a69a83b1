// Package asset locates and opens recitation audio for a verse.
package asset

import (
	"context"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned when a source has no audio for the key.
var ErrNotFound = errors.New("audio asset not found")

// Key identifies the audio for one verse by one reciter.
type Key struct {
	Chapter int
	Verse   int
	Reciter string
}

// FileName returns the everyayah-style file name, e.g. "002255.mp3".
func (k Key) FileName() string {
	return fmt.Sprintf("%03d%03d.mp3", k.Chapter, k.Verse)
}

// String returns a compact representation for logs.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Reciter, k.FileName())
}

// Source is the interface for audio sources.
// Different implementations fetch audio from various places
// (e.g., a CDN over HTTP, a local mirror on disk).
type Source interface {
	// Open returns the encoded audio stream for key. The caller closes it.
	Open(ctx context.Context, key Key) (io.ReadCloser, error)

	// Name returns the source type name (used in config).
	Name() string
}
