package studio

import (
	"github.com/osa030/hifzbox/internal/app/sequencer"
	"github.com/osa030/hifzbox/internal/domain/session"
	"github.com/osa030/hifzbox/internal/domain/verse"
)

// VerseInfo describes the verse at the current position.
type VerseInfo struct {
	Number          int
	Text            string
	Transliteration string
	Translation     string
	Mark            string
}

// Status is a snapshot of the studio.
type Status struct {
	Playback    sequencer.Status
	Chapter     int
	ChapterName string
	Language    string
	Mode        session.Mode
	SessionName string
	Verse       *VerseInfo // nil when no chapter is selected
}

// Status returns the current studio status.
func (m *Manager) Status() *Status {
	return m.buildStatus(m.player.Status())
}

func (m *Manager) buildStatus(pb sequencer.Status) *Status {
	n, chapter := m.selection.Chapter()
	language := m.selection.Language()

	st := &Status{
		Playback:    pb,
		Chapter:     n,
		Language:    language,
		Mode:        m.selection.Mode(),
		SessionName: m.selection.Name(),
	}
	if n == 0 || pb.Position == 0 {
		return st
	}

	info := &VerseInfo{Number: pb.Position}
	if chapter != nil {
		st.ChapterName = chapter.Transliteration
		if v, ok := chapter.VerseAt(pb.Position); ok {
			info.Text = v.Text
			info.Transliteration = v.Transliteration
			info.Translation = v.Translation(language)
			if info.Translation == "" {
				info.Translation = v.Translation(m.config.Catalog.FallbackLanguage)
			}
		}
	}
	if mark, ok := m.selection.Mark(n, pb.Position); ok {
		info.Mark = mark
	}
	st.Verse = info
	return st
}

// Fields flattens the status into JSON-compatible values.
func (s *Status) Fields() map[string]any {
	pb := s.Playback
	fields := map[string]any{
		"state":            pb.State.String(),
		"chapter":          s.Chapter,
		"chapter_name":     s.ChapterName,
		"verse_count":      pb.ItemCount,
		"range_start":      pb.Range.Start,
		"range_end":        pb.Range.End,
		"position":         pb.Position,
		"repeat":           pb.Repeat.Count,
		"repeat_progress":  pb.RepeatProgress,
		"repeat_mode":      pb.Repeat.Describe(pb.Range.IsSingle()),
		"repeat_unbounded": pb.Repeat.Unbounded(),
		"plays_per_verse":  pb.Repeat.PlaysPerItem(pb.Range.IsSingle()),
		"loops_verse":      pb.Repeat.LoopsItem(pb.Range.IsSingle()),
		"loops_range":      pb.Repeat.LoopsRange(pb.Range.IsSingle()),
		"global_verse":     verse.GlobalNumber(s.Chapter, pb.Position),
		"reciter":          pb.Voice,
		"language":         s.Language,
		"mode":             string(s.Mode),
		"session":          s.SessionName,
	}
	if s.Verse != nil {
		fields["verse_text"] = s.Verse.Text
		fields["verse_transliteration"] = s.Verse.Transliteration
		fields["verse_translation"] = s.Verse.Translation
		fields["verse_mark"] = s.Verse.Mark
	}
	return fields
}

func (m *Manager) statusFields(pb sequencer.Status) map[string]any {
	return m.buildStatus(pb).Fields()
}
