package sequencer

import (
	zlog "github.com/rs/zerolog/log"
)

func (s *Sequencer) onLoaded(gen uint64) {
	res, ok := s.currentLocked(gen)
	if !ok {
		zlog.Debug().Msgf("sequencer: stale loaded ignored: generation=%d current=%d", gen, s.generation)
		return
	}

	switch s.state {
	case StateLoading:
		if res.handle == nil {
			return
		}
		res.handle.Play()
		s.setStateLocked(StatePlaying)
		zlog.Debug().Msgf("sequencer: verse started: chapter=%d verse=%d progress=%d",
			res.req.Collection, res.req.Item, s.progress)
		s.emitLocked(EventItemStarted, nil)
	case StatePaused:
		zlog.Debug().Msgf("sequencer: loaded while paused, waiting for play: verse=%d", res.req.Item)
	}
}

func (s *Sequencer) onLoadFailed(gen uint64, cause error) {
	res, ok := s.currentLocked(gen)
	if !ok {
		zlog.Debug().Msgf("sequencer: stale load failure ignored: generation=%d current=%d", gen, s.generation)
		return
	}

	err := loadError(cause, res.req)
	req := res.req
	s.releaseLocked()

	if s.state != StateLoading {
		// Paused while loading: the next play acquires a fresh resource anyway.
		zlog.Warn().Msgf("sequencer: load failed while %s: %v", s.state, err)
		return
	}

	if res.loadAttempt == 0 {
		zlog.Warn().Msgf("sequencer: load failed, retrying in %v: %v", s.config.RetryDelay, err)
		s.scheduleRetryLocked(func() {
			if s.state != StateLoading || s.live != nil {
				return
			}
			s.acquireRequestLocked(req, res.loadAttempt+1)
		})
		s.emitLocked(EventRetryScheduled, err)
		return
	}

	zlog.Error().Msgf("sequencer: load failed after retry: %v", err)
	s.setStateLocked(StateIdle)
	s.emitLocked(EventError, err)
}

func (s *Sequencer) onPlaybackEnded(gen uint64) {
	if _, ok := s.currentLocked(gen); !ok {
		zlog.Debug().Msgf("sequencer: stale playback end ignored: generation=%d current=%d", gen, s.generation)
		return
	}
	if s.state != StatePlaying {
		zlog.Debug().Msgf("sequencer: playback end ignored while %s", s.state)
		return
	}
	s.advanceLocked()
}

func (s *Sequencer) onPlayFailed(gen uint64, cause error) {
	res, ok := s.currentLocked(gen)
	if !ok {
		zlog.Debug().Msgf("sequencer: stale play failure ignored: generation=%d current=%d", gen, s.generation)
		return
	}
	if s.state != StatePlaying {
		zlog.Debug().Msgf("sequencer: play failure ignored while %s", s.state)
		return
	}

	err := playError(cause, res.req)
	if !res.playRetried {
		res.playRetried = true
		zlog.Warn().Msgf("sequencer: play failed, retrying in %v: %v", s.config.RetryDelay, err)
		s.scheduleRetryLocked(func() {
			cur, ok := s.currentLocked(gen)
			if !ok || s.state != StatePlaying || cur.handle == nil {
				return
			}
			cur.handle.Play()
		})
		s.emitLocked(EventRetryScheduled, err)
		return
	}

	zlog.Error().Msgf("sequencer: play failed after retry: %v", err)
	s.releaseLocked()
	s.progress = 0
	s.setStateLocked(StateIdle)
	s.emitLocked(EventError, err)
}

// advanceLocked decides what plays after the current verse ended.
func (s *Sequencer) advanceLocked() {
	next := s.progress + 1
	single := s.rng.IsSingle()

	if s.repeat.LoopsItem(single) || next < s.repeat.PlaysPerItem(single) {
		s.progress = next
		s.acquireLocked()
		return
	}
	if single {
		s.completeLocked()
		return
	}
	s.proceedLocked()
}

// proceedLocked moves to the next verse, wraps an unbounded range, or completes.
func (s *Sequencer) proceedLocked() {
	if s.position < s.rng.End {
		s.setPositionLocked(s.position + 1)
		s.acquireLocked()
		return
	}

	if s.repeat.LoopsRange(false) {
		s.progress = 0
		s.setPositionLocked(s.rng.Start)
		s.emitLocked(EventRangeWrapped, nil)
		s.acquireLocked()
		return
	}
	s.completeLocked()
}

func (s *Sequencer) completeLocked() {
	zlog.Debug().Msgf("sequencer: sequence completed: range=%d-%d repeat=%d", s.rng.Start, s.rng.End, s.repeat.Count)
	s.stopLocked()
	s.emitLocked(EventSequenceCompleted, nil)
}

// scheduleRetryLocked replaces any pending retry with fn, run on the event loop
// after the retry delay. A retry cancelled or superseded before it runs is a no-op.
func (s *Sequencer) scheduleRetryLocked(fn func()) {
	s.cancelRetryLocked()

	s.retrySeq++
	id := s.retrySeq
	cancel := s.scheduler.AfterFunc(s.config.RetryDelay, func() {
		s.post(func() {
			if s.retry == nil || s.retry.id != id {
				return
			}
			s.retry = nil
			fn()
		})
	})
	s.retry = &retryTask{id: id, cancel: cancel}
}

func (s *Sequencer) cancelRetryLocked() {
	if s.retry == nil {
		return
	}
	s.retry.cancel()
	s.retry = nil
}
