package sequencer

import (
	"sync"
	"sync/atomic"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/hifzbox/internal/domain/verse"
)

// Config holds sequencer configuration.
type Config struct {
	RetryDelay  time.Duration // Delay before the single load/play retry
	DefaultSpan int           // Verses selected when a collection is opened
	EventBuffer int           // Capacity of the event channel
	Scheduler   Scheduler     // Retry scheduler (wall clock if nil)
}

// resource is the live sound handle together with the generation it was issued under.
type resource struct {
	gen         uint64
	req         Request
	handle      Handle
	loadAttempt int // 0 for the first acquisition, 1 for the retry
	playRetried bool
}

type retryTask struct {
	id     uint64
	cancel func()
}

// Sequencer owns the playback state, the selected range and the live sound resource.
//
// Every transition runs on a single event loop goroutine. Public commands are
// queued and block until their transition completes; provider callbacks are
// queued without blocking and are processed after the transition in progress.
type Sequencer struct {
	provider  Provider
	scheduler Scheduler
	config    Config

	// Event loop
	qmu    sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
	once   sync.Once

	// Events
	eventCh chan Event

	// Snapshot taken by Close, served by Status afterwards.
	final atomic.Pointer[Status]

	// Fields below are only touched on the event loop.
	state      State
	collection int
	itemCount  int
	rng        verse.Range
	position   int
	progress   int
	repeat     RepeatPolicy
	voice      string
	generation uint64
	live       *resource
	retry      *retryTask
	retrySeq   uint64
}

// New creates a sequencer and starts its event loop.
func New(provider Provider, config Config) *Sequencer {
	if config.Scheduler == nil {
		config.Scheduler = WallClock{}
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}
	if config.DefaultSpan <= 0 {
		config.DefaultSpan = 5
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 64
	}

	s := &Sequencer{
		provider:  provider,
		scheduler: config.Scheduler,
		config:    config,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		eventCh:   make(chan Event, config.EventBuffer),
		state:     StateIdle,
		repeat:    RepeatPolicy{Count: 0},
	}
	go s.run()
	return s
}

// Events returns the event channel. It is closed by Close.
func (s *Sequencer) Events() <-chan Event {
	return s.eventCh
}

// SelectCollection opens a collection: playback stops, the range resets to the
// first DefaultSpan items and the position moves to the first item.
func (s *Sequencer) SelectCollection(collection, itemCount int) error {
	if collection < 1 || itemCount < 1 {
		return ErrInvalidCollection
	}
	return s.call(func() {
		s.stopLocked()
		s.collection = collection
		s.itemCount = itemCount
		s.setRangeLocked(verse.DefaultRange(itemCount, s.config.DefaultSpan))
		zlog.Debug().Msgf("sequencer: collection selected: chapter=%d verses=%d range=%d-%d",
			collection, itemCount, s.rng.Start, s.rng.End)
	})
}

// PlayPause pauses when playing; otherwise it (re)acquires the verse at the
// current position and starts playing it.
func (s *Sequencer) PlayPause() error {
	return s.call(func() {
		if s.collection == 0 {
			zlog.Debug().Msg("sequencer: play/pause ignored: no collection selected")
			return
		}

		switch s.state {
		case StatePlaying:
			s.cancelRetryLocked()
			if s.live != nil && s.live.handle != nil {
				s.live.handle.Pause()
			}
			s.setStateLocked(StatePaused)
		case StateLoading:
			// Keep the loading handle; loaded will not auto-play while paused.
			s.cancelRetryLocked()
			s.setStateLocked(StatePaused)
		default:
			s.acquireLocked()
		}
	})
}

// Stop releases the live resource and resets the repeat progress.
// It is a no-op when already stopped or idle.
func (s *Sequencer) Stop() error {
	return s.call(s.stopLocked)
}

// SkipPrevious moves one verse back and starts playing it.
func (s *Sequencer) SkipPrevious() error {
	return s.call(func() {
		if s.collection == 0 || s.position <= s.rng.Start {
			return
		}
		s.setPositionLocked(s.position - 1)
		s.acquireLocked()
	})
}

// SkipNext moves one verse forward and starts playing it.
func (s *Sequencer) SkipNext() error {
	return s.call(func() {
		if s.collection == 0 || s.position >= s.rng.End {
			return
		}
		s.setPositionLocked(s.position + 1)
		s.acquireLocked()
	})
}

// SetRange replaces the range atomically: the live resource is released, the
// state forced to Stopped and the position moved to start. Playback does not resume.
// Without a selected collection the call is a no-op.
func (s *Sequencer) SetRange(start, end int) error {
	var err error
	if callErr := s.call(func() {
		if s.collection == 0 {
			zlog.Debug().Msgf("sequencer: range edit ignored: no collection selected: range=%d-%d", start, end)
			return
		}
		r := verse.Range{Start: start, End: end}
		if err = r.Validate(s.itemCount); err != nil {
			return
		}
		s.releaseLocked()
		s.setStateLocked(StateStopped)
		s.setRangeLocked(r)
	}); callErr != nil {
		return callErr
	}
	return err
}

// SetPosition moves the current verse, clamped into the range. Active playback
// restarts at the new position with a fresh resource.
func (s *Sequencer) SetPosition(item int) error {
	return s.call(func() {
		if s.collection == 0 {
			return
		}
		target := s.rng.Clamp(item)
		if target == s.position {
			return
		}
		s.setPositionLocked(target)
		if s.state.IsActive() {
			s.acquireLocked()
		}
	})
}

// SetRepeatPolicy updates the repeat count. In-flight playback and counters are untouched.
func (s *Sequencer) SetRepeatPolicy(count int) error {
	p, err := NewRepeatPolicy(count)
	if err != nil {
		return err
	}
	return s.call(func() {
		s.repeat = p
	})
}

// SetVoice selects the reciter used for the next acquisition.
func (s *Sequencer) SetVoice(voice string) error {
	return s.call(func() {
		s.voice = voice
	})
}

// Status returns a snapshot of the sequencer. Callbacks queued before the call
// are processed first.
func (s *Sequencer) Status() Status {
	var st Status
	if err := s.call(func() { st = s.statusLocked() }); err != nil {
		if final := s.final.Load(); final != nil {
			return *final
		}
		return Status{State: StateIdle}
	}
	return st
}

// State returns the current playback state.
func (s *Sequencer) State() State {
	return s.Status().State
}

// Position returns the current verse.
func (s *Sequencer) Position() int {
	return s.Status().Position
}

// Range returns the selected range.
func (s *Sequencer) Range() verse.Range {
	return s.Status().Range
}

// RepeatPolicy returns the configured repeat policy.
func (s *Sequencer) RepeatPolicy() RepeatPolicy {
	return s.Status().Repeat
}

// Close releases the live resource, cancels pending retries and stops the event loop.
func (s *Sequencer) Close() {
	s.once.Do(func() {
		_ = s.call(func() {
			s.releaseLocked()
			if s.state != StateIdle {
				s.setStateLocked(StateStopped)
			}
			final := s.statusLocked()
			s.final.Store(&final)
		})

		s.qmu.Lock()
		s.closed = true
		s.qmu.Unlock()
		s.signal()

		<-s.done
		close(s.eventCh)
	})
}

// run processes queued transitions until the sequencer is closed.
func (s *Sequencer) run() {
	defer close(s.done)
	for {
		fn, ok := s.next()
		if !ok {
			return
		}
		fn()
	}
}

func (s *Sequencer) next() (func(), bool) {
	for {
		s.qmu.Lock()
		if len(s.queue) > 0 {
			fn := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.qmu.Unlock()
			return fn, true
		}
		if s.closed {
			s.qmu.Unlock()
			return nil, false
		}
		s.qmu.Unlock()
		<-s.wake
	}
}

// post queues fn on the event loop without waiting for it.
func (s *Sequencer) post(fn func()) bool {
	s.qmu.Lock()
	if s.closed {
		s.qmu.Unlock()
		return false
	}
	s.queue = append(s.queue, fn)
	s.qmu.Unlock()
	s.signal()
	return true
}

// call queues fn on the event loop and waits until it has run.
// Must not be called from the event loop itself.
func (s *Sequencer) call(fn func()) error {
	done := make(chan struct{})
	if !s.post(func() {
		defer close(done)
		fn()
	}) {
		return ErrClosed
	}
	<-done
	return nil
}

func (s *Sequencer) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// statusLocked builds a snapshot. Must be called on the event loop.
func (s *Sequencer) statusLocked() Status {
	return Status{
		State:          s.state,
		Collection:     s.collection,
		ItemCount:      s.itemCount,
		Range:          s.rng,
		Position:       s.position,
		Repeat:         s.repeat,
		RepeatProgress: s.progress,
		Voice:          s.voice,
		Generation:     s.generation,
	}
}

// emitLocked sends an event without blocking.
func (s *Sequencer) emitLocked(t EventType, err error) {
	e := Event{Type: t, Status: s.statusLocked(), Err: err}
	select {
	case s.eventCh <- e:
	default:
		zlog.Warn().Msgf("sequencer: event dropped, channel full: type=%s", t)
	}
}

func (s *Sequencer) setStateLocked(st State) {
	if s.state == st {
		return
	}
	zlog.Debug().Msgf("sequencer: state changed: from=%s to=%s chapter=%d verse=%d", s.state, st, s.collection, s.position)
	s.state = st
	s.emitLocked(EventStateChanged, nil)
}

// setPositionLocked moves the position, clamped into the range. The repeat
// progress resets whenever the position actually changes.
func (s *Sequencer) setPositionLocked(p int) {
	p = s.rng.Clamp(p)
	if p == s.position {
		return
	}
	s.position = p
	s.progress = 0
	s.emitLocked(EventPositionChanged, nil)
}

func (s *Sequencer) setRangeLocked(r verse.Range) {
	s.rng = r
	s.progress = 0
	if s.position == r.Start {
		s.emitLocked(EventRangeChanged, nil)
		return
	}
	s.position = r.Start
	s.emitLocked(EventRangeChanged, nil)
	s.emitLocked(EventPositionChanged, nil)
}

func (s *Sequencer) stopLocked() {
	if s.state == StateStopped || s.state == StateIdle {
		return
	}
	s.releaseLocked()
	s.progress = 0
	s.setStateLocked(StateStopped)
}

func (s *Sequencer) currentRequestLocked() Request {
	return Request{Collection: s.collection, Item: s.position, Voice: s.voice}
}

// acquireLocked replaces the live resource with a fresh one for the current position.
func (s *Sequencer) acquireLocked() {
	s.acquireRequestLocked(s.currentRequestLocked(), 0)
}

// acquireRequestLocked stops and releases the old resource before requesting the new one.
func (s *Sequencer) acquireRequestLocked(req Request, attempt int) {
	s.releaseLocked()

	s.generation++
	res := &resource{gen: s.generation, req: req, loadAttempt: attempt}
	s.live = res
	s.setStateLocked(StateLoading)

	zlog.Debug().Msgf("sequencer: acquiring: chapter=%d verse=%d voice=%s generation=%d attempt=%d",
		req.Collection, req.Item, req.Voice, res.gen, attempt)
	res.handle = s.provider.Acquire(req, &sink{s: s, gen: res.gen})
}

// releaseLocked cancels pending retries, then stops and releases the live resource.
func (s *Sequencer) releaseLocked() {
	s.cancelRetryLocked()
	if s.live == nil {
		return
	}
	if h := s.live.handle; h != nil {
		h.Stop()
		h.Release()
	}
	s.live = nil
}

// currentLocked returns the live resource if it still belongs to gen.
func (s *Sequencer) currentLocked(gen uint64) (*resource, bool) {
	if s.live == nil || s.live.gen != gen {
		return nil, false
	}
	return s.live, true
}

// sink routes provider callbacks for one generation onto the event loop.
type sink struct {
	s   *Sequencer
	gen uint64
}

func (k *sink) Loaded() {
	k.s.post(func() { k.s.onLoaded(k.gen) })
}

func (k *sink) LoadFailed(err error) {
	k.s.post(func() { k.s.onLoadFailed(k.gen, err) })
}

func (k *sink) PlaybackEnded() {
	k.s.post(func() { k.s.onPlaybackEnded(k.gen) })
}

func (k *sink) PlayFailed(err error) {
	k.s.post(func() { k.s.onPlayFailed(k.gen, err) })
}
