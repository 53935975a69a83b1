package studio

import (
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/hifzbox/internal/app/notification"
	"github.com/osa030/hifzbox/internal/app/sequencer"
)

// eventLoop republishes player events until the player closes its event channel.
func (m *Manager) eventLoop() {
	defer close(m.done)

	for event := range m.player.Events() {
		m.handlePlayerEvent(event)
	}
}

// handlePlayerEvent converts a player event into a notification.
func (m *Manager) handlePlayerEvent(event sequencer.Event) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("player event handler panicked: type=%s: %v", event.Type, r)
		}
	}()

	var (
		t       notification.Type
		message string
	)
	switch event.Type {
	case sequencer.EventStateChanged:
		t, message = notification.TypeStateChanged, "state changed to "+event.Status.State.String()
	case sequencer.EventPositionChanged:
		t, message = notification.TypePositionChanged, "position changed"
	case sequencer.EventRangeChanged:
		t, message = notification.TypeRangeChanged, "range changed"
	case sequencer.EventItemStarted:
		t, message = notification.TypeVerseStarted, "verse started"
	case sequencer.EventRangeWrapped:
		t, message = notification.TypeRangeWrapped, "range restarted"
	case sequencer.EventRetryScheduled:
		t, message = notification.TypeRetryScheduled, "retrying audio"
	case sequencer.EventSequenceCompleted:
		t, message = notification.TypeSequenceCompleted, "repetition completed"
	case sequencer.EventError:
		t, message = notification.TypeError, "playback failed"
	default:
		return
	}
	if event.Err != nil {
		message = message + ": " + event.Err.Error()
	}

	st := event.Status
	switch event.Type {
	case sequencer.EventItemStarted:
		zlog.Info().Msgf("verse started: chapter=%d verse=%d reciter=%s progress=%d",
			st.Collection, st.Position, st.Voice, st.RepeatProgress)
	case sequencer.EventError:
		zlog.Error().Msgf("playback failed: chapter=%d verse=%d: %v", st.Collection, st.Position, event.Err)
	default:
		zlog.Debug().Msgf("player event: type=%s state=%s position=%d", event.Type, st.State, st.Position)
	}

	m.notification.Broadcast(notification.New(t, message, m.statusFields(st)))
}
