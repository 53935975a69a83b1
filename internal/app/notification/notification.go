package notification

import "time"

// Type represents a notification type.
type Type string

const (
	TypeStatus            Type = "status"             // Full status snapshot
	TypeStateChanged      Type = "state_changed"      // Playback state changed
	TypePositionChanged   Type = "position_changed"   // Current verse changed
	TypeRangeChanged      Type = "range_changed"      // Verse range replaced
	TypeVerseStarted      Type = "verse_started"      // A verse started playing
	TypeRangeWrapped      Type = "range_wrapped"      // Infinite repeat looped the range
	TypeRetryScheduled    Type = "retry_scheduled"    // Audio load/play is being retried
	TypeSequenceCompleted Type = "sequence_completed" // Repeat count satisfied
	TypeChapterChanged    Type = "chapter_changed"    // Another chapter was selected
	TypeLanguageChanged   Type = "language_changed"   // Translation language changed
	TypeMarkChanged       Type = "mark_changed"       // A verse mark was set or cleared
	TypeSessionLoaded     Type = "session_loaded"     // A saved or imported session was applied
	TypeError             Type = "error"              // Playback gave up after retries
)

var knownTypes = map[Type]struct{}{
	TypeStatus: {}, TypeStateChanged: {}, TypePositionChanged: {}, TypeRangeChanged: {},
	TypeVerseStarted: {}, TypeRangeWrapped: {}, TypeRetryScheduled: {}, TypeSequenceCompleted: {},
	TypeChapterChanged: {}, TypeLanguageChanged: {}, TypeMarkChanged: {}, TypeSessionLoaded: {},
	TypeError: {},
}

// Valid reports whether t is a type the studio broadcasts.
func (t Type) Valid() bool {
	_, ok := knownTypes[t]
	return ok
}

// Notification is a single broadcast message.
type Notification struct {
	SequenceNo uint64
	Type       Type
	Time       time.Time
	Message    string
	Fields     map[string]any // JSON-compatible values only
}

// New creates a notification stamped with the current time.
func New(t Type, message string, fields map[string]any) *Notification {
	return &Notification{
		Type:    t,
		Time:    time.Now(),
		Message: message,
		Fields:  fields,
	}
}
