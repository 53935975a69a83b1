package audio

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Output is the audio device streams are mixed into.
type Output interface {
	// Init prepares the device. It is called before every Play and must be idempotent.
	Init() error
	Play(s beep.Streamer)
	Lock()
	Unlock()
	Close()
}

// SpeakerOutput plays through the system speaker at a fixed sample rate.
type SpeakerOutput struct {
	rate   beep.SampleRate
	buffer time.Duration

	once   sync.Once
	err    error
	opened atomic.Bool
}

// NewSpeakerOutput creates a speaker output. The device is opened lazily on first play.
func NewSpeakerOutput(rate beep.SampleRate, buffer time.Duration) *SpeakerOutput {
	return &SpeakerOutput{rate: rate, buffer: buffer}
}

// Init opens the speaker once; later calls return the first result.
func (o *SpeakerOutput) Init() error {
	o.once.Do(func() {
		if err := speaker.Init(o.rate, o.rate.N(o.buffer)); err != nil {
			o.err = errors.Wrap(err, "failed to initialize speaker")
			return
		}
		o.opened.Store(true)
	})
	return o.err
}

// Play adds s to the speaker mix.
func (o *SpeakerOutput) Play(s beep.Streamer) {
	speaker.Play(s)
}

// Lock locks the speaker mix.
func (o *SpeakerOutput) Lock() {
	speaker.Lock()
}

// Unlock unlocks the speaker mix.
func (o *SpeakerOutput) Unlock() {
	speaker.Unlock()
}

// Close clears the mix and closes the device if it was opened.
func (o *SpeakerOutput) Close() {
	if !o.opened.Load() {
		return
	}
	speaker.Clear()
	speaker.Close()
}
