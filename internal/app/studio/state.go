package studio

import (
	"sync"

	"github.com/osa030/hifzbox/internal/domain/session"
	"github.com/osa030/hifzbox/internal/domain/verse"
)

// selection holds what the user is looking at, with thread-safe access.
// Playback position and range live in the sequencer.
type selection struct {
	mu sync.RWMutex

	chapter  *verse.Chapter // nil until a chapter is selected or when its text could not be fetched
	number   int
	language string
	mode     session.Mode
	name     string // current session name, empty when unsaved
	marks    session.Marks
}

func newSelection(language string, marks session.Marks) *selection {
	if marks == nil {
		marks = session.Marks{}
	}
	return &selection{
		language: language,
		mode:     session.ModeStudent,
		marks:    marks,
	}
}

// Chapter returns the selected chapter number and its text, if loaded.
func (s *selection) Chapter() (int, *verse.Chapter) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.number, s.chapter
}

// SetChapter sets the selected chapter.
func (s *selection) SetChapter(number int, chapter *verse.Chapter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.number = number
	s.chapter = chapter
}

// Language returns the translation language.
func (s *selection) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language
}

// SetLanguage sets the translation language.
func (s *selection) SetLanguage(language string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = language
}

// Mode returns the studio mode.
func (s *selection) Mode() session.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode sets the studio mode.
func (s *selection) SetMode(mode session.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

// Name returns the current session name.
func (s *selection) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// SetName sets the current session name.
func (s *selection) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

// Mark returns the comment for a verse.
func (s *selection) Mark(chapter, verseNo int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.marks.Get(chapter, verseNo)
}

// SetMark records or clears a mark.
func (s *selection) SetMark(chapter, verseNo int, comment string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks.Set(chapter, verseNo, comment)
}

// Marks returns a copy of all marks.
func (s *selection) Marks() session.Marks {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.marks.Clone()
}

// ReplaceMarks replaces all marks.
func (s *selection) ReplaceMarks(marks session.Marks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if marks == nil {
		marks = session.Marks{}
	}
	s.marks = marks.Clone()
}
