// Package audio plays verse recitations through beep.
package audio

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/hifzbox/internal/app/asset"
	"github.com/osa030/hifzbox/internal/app/sequencer"
)

// Opener opens encoded verse audio.
type Opener interface {
	Open(ctx context.Context, key asset.Key) (io.ReadCloser, error)
}

// Decoder decodes an encoded stream. It takes ownership of rc.
type Decoder func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

// Config represents audio provider configuration.
type Config struct {
	SampleRate  int
	LoadTimeout time.Duration
	Decoder     Decoder // mp3.Decode if nil
}

// Provider loads and plays one verse per acquisition.
type Provider struct {
	opener Opener
	output Output
	decode Decoder
	rate   beep.SampleRate

	loadTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new audio provider.
func New(opener Opener, output Output, cfg Config) *Provider {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = 30 * time.Second
	}
	if cfg.Decoder == nil {
		cfg.Decoder = mp3.Decode
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Provider{
		opener:      opener,
		output:      output,
		decode:      cfg.Decoder,
		rate:        beep.SampleRate(cfg.SampleRate),
		loadTimeout: cfg.LoadTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Acquire starts loading the verse in the background and returns its handle immediately.
func (p *Provider) Acquire(req sequencer.Request, events sequencer.Events) sequencer.Handle {
	ctx, cancel := context.WithTimeout(p.ctx, p.loadTimeout)
	h := &handle{
		p:      p,
		key:    asset.Key{Chapter: req.Collection, Verse: req.Item, Reciter: req.Voice},
		events: events,
		cancel: cancel,
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		h.load(ctx)
	}()
	return h
}

// Close cancels pending loads and waits for them to finish.
func (p *Provider) Close() {
	p.cancel()
	p.wg.Wait()
}

// handle is one acquisition. Callbacks stop once it is stopped or released.
type handle struct {
	p      *Provider
	key    asset.Key
	events sequencer.Events
	cancel context.CancelFunc

	stopped  atomic.Bool
	released atomic.Bool
	finished atomic.Bool // the queued sequence ran past its callback

	mu     sync.Mutex
	stream beep.StreamSeekCloser
	format beep.Format
	ctrl   *beep.Ctrl
}

func (h *handle) load(ctx context.Context) {
	defer h.cancel()

	rc, err := h.p.opener.Open(ctx, h.key)
	if err != nil {
		h.loadFailed(errors.Wrapf(err, "open %s", h.key))
		return
	}

	stream, format, err := h.p.decode(rc)
	if err != nil {
		_ = rc.Close()
		h.loadFailed(errors.Wrapf(err, "decode %s", h.key))
		return
	}

	h.mu.Lock()
	if h.released.Load() {
		h.mu.Unlock()
		_ = stream.Close()
		return
	}
	h.stream = stream
	h.format = format
	h.mu.Unlock()

	zlog.Debug().Msgf("verse loaded: key=%s rate=%d duration=%v", h.key, format.SampleRate, format.SampleRate.D(stream.Len()))
	if !h.stopped.Load() {
		h.events.Loaded()
	}
}

func (h *handle) loadFailed(err error) {
	if h.released.Load() || h.stopped.Load() {
		zlog.Debug().Msgf("load failure after release ignored: key=%s: %v", h.key, err)
		return
	}
	h.events.LoadFailed(err)
}

// Play starts the stream, or resumes it when paused. Once the stream has
// ended or failed, Play rewinds it and queues it again.
func (h *handle) Play() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped.Load() || h.stream == nil {
		return
	}

	if h.ctrl != nil {
		if !h.finished.Load() {
			h.p.output.Lock()
			h.ctrl.Paused = false
			h.p.output.Unlock()
			return
		}
		if err := h.stream.Seek(0); err != nil {
			h.events.PlayFailed(errors.Wrapf(err, "rewind %s", h.key))
			return
		}
		zlog.Debug().Msgf("replaying finished stream: key=%s", h.key)
		h.ctrl = nil
		h.finished.Store(false)
	}

	if err := h.p.output.Init(); err != nil {
		h.events.PlayFailed(err)
		return
	}

	var s beep.Streamer = h.stream
	if h.format.SampleRate != h.p.rate {
		s = beep.Resample(4, h.format.SampleRate, h.p.rate, s)
	}
	h.ctrl = &beep.Ctrl{Streamer: s}

	stream := h.stream
	h.p.output.Play(beep.Seq(h.ctrl, beep.Callback(func() {
		// Runs on the speaker goroutine with the mix locked.
		h.finished.Store(true)
		if h.stopped.Load() {
			return
		}
		if err := stream.Err(); err != nil {
			go h.events.PlayFailed(errors.Wrapf(err, "stream %s", h.key))
			return
		}
		go h.events.PlaybackEnded()
	})))
}

// Pause pauses the stream in place.
func (h *handle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctrl == nil {
		return
	}
	h.p.output.Lock()
	h.ctrl.Paused = true
	h.p.output.Unlock()
}

// Stop silences the stream and suppresses further callbacks.
func (h *handle) Stop() {
	h.stopped.Store(true)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctrl == nil {
		return
	}
	h.p.output.Lock()
	h.ctrl.Streamer = nil
	h.p.output.Unlock()
}

// Release stops the stream, cancels a pending load and closes the decoder.
func (h *handle) Release() {
	h.Stop()
	h.released.Store(true)
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stream != nil {
		if err := h.stream.Close(); err != nil {
			zlog.Debug().Msgf("failed to close stream: key=%s: %v", h.key, err)
		}
		h.stream = nil
	}
}
