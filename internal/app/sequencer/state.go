// Package sequencer drives verse-by-verse audio playback across a selected range.
package sequencer

// State represents the playback state.
type State int

const (
	StateIdle    State = iota // No live resource
	StateLoading              // Resource requested, waiting for it to load
	StatePlaying              // Resource is playing
	StatePaused               // Playback paused, position retained
	StateStopped              // Resource released, position retained
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// IsActive returns true if the sequencer expects audio to come out (or be about to).
func (s State) IsActive() bool {
	return s == StateLoading || s == StatePlaying
}
