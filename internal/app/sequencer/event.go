package sequencer

import "github.com/osa030/hifzbox/internal/domain/verse"

// EventType represents a sequencer event type.
type EventType int

const (
	EventStateChanged      EventType = iota // Playback state changed
	EventPositionChanged                    // Current verse changed
	EventRangeChanged                       // Selected range replaced
	EventItemStarted                        // A verse started playing
	EventRangeWrapped                       // Unbounded repeat looped back to range start
	EventRetryScheduled                     // A load/play retry was scheduled
	EventSequenceCompleted                  // Repeat policy satisfied, playback stopped
	EventError                              // Non-fatal error after retries were exhausted
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStateChanged:
		return "state_changed"
	case EventPositionChanged:
		return "position_changed"
	case EventRangeChanged:
		return "range_changed"
	case EventItemStarted:
		return "item_started"
	case EventRangeWrapped:
		return "range_wrapped"
	case EventRetryScheduled:
		return "retry_scheduled"
	case EventSequenceCompleted:
		return "sequence_completed"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event represents a sequencer event. Status is a snapshot taken when the event was emitted.
type Event struct {
	Type   EventType
	Status Status
	Err    error // Set for EventError and EventRetryScheduled
}

// Status is a read-only snapshot of the sequencer.
type Status struct {
	State          State
	Collection     int
	ItemCount      int
	Range          verse.Range
	Position       int
	Repeat         RepeatPolicy
	RepeatProgress int
	Voice          string
	Generation     uint64
}

// HasCollection returns true once a collection has been selected.
func (s Status) HasCollection() bool {
	return s.Collection > 0
}
