// Package studio provides the studio manager tying playback, chapter text,
// marks and saved sessions together.
package studio

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/hifzbox/internal/app/filter"
	"github.com/osa030/hifzbox/internal/app/notification"
	"github.com/osa030/hifzbox/internal/app/sequencer"
	"github.com/osa030/hifzbox/internal/domain/session"
	"github.com/osa030/hifzbox/internal/domain/verse"
	"github.com/osa030/hifzbox/internal/infra/config"
	"github.com/osa030/hifzbox/internal/infra/store"
)

var (
	ErrNoChapter      = errors.New("no chapter selected")
	ErrInvalidChapter = errors.New("chapter must be between 1 and 114")
	ErrInvalidVerse   = errors.New("verse is outside the selected chapter")
	ErrUnknownReciter = errors.New("unknown reciter")
	ErrRepeatTooLarge = errors.New("repeat count exceeds the configured maximum")
	ErrInvalidMode    = errors.New("mode must be student or teacher")
	ErrInvalidLang    = errors.New("invalid language code")
	ErrNotTeacher     = errors.New("marking verses requires teacher mode")
)

// RejectedError is returned when the filter chain rejects a session.
type RejectedError struct {
	Code string
}

func (e *RejectedError) Error() string {
	return "session rejected: " + e.Code
}

// Player is the playback engine driven by the studio.
type Player interface {
	Events() <-chan sequencer.Event
	SelectCollection(collection, itemCount int) error
	PlayPause() error
	Stop() error
	SkipPrevious() error
	SkipNext() error
	SetRange(start, end int) error
	SetPosition(item int) error
	SetRepeatPolicy(count int) error
	SetVoice(voice string) error
	Status() sequencer.Status
	Close()
}

// Catalog provides chapter text.
type Catalog interface {
	Chapters(ctx context.Context) ([]verse.Chapter, error)
	Chapter(ctx context.Context, id int, language string) (*verse.Chapter, error)
}

// Store persists sessions and marks.
type Store interface {
	SaveSession(ctx context.Context, d *session.Data) (*store.Summary, error)
	GetSession(ctx context.Context, name string) (*session.Data, error)
	HasSession(ctx context.Context, name string) (bool, error)
	ListSessions(ctx context.Context) ([]store.Summary, error)
	DeleteSession(ctx context.Context, name string) error
	SetMark(ctx context.Context, chapter, verseNo int, comment string) error
	Marks(ctx context.Context) (session.Marks, error)
	ReplaceMarks(ctx context.Context, marks session.Marks) error
}

// Manager manages the studio.
type Manager struct {
	// Serializes commands so multi-step edits apply atomically.
	mu sync.Mutex

	// Configuration
	config *config.Config

	// Components
	player       Player
	catalog      Catalog
	store        Store
	selection    *selection
	filterChain  *filter.Chain
	notification *notification.Manager
	validate     *validator.Validate

	// Channels
	done chan struct{}
	once sync.Once
}

// NewManager creates a studio manager and starts republishing player events.
func NewManager(ctx context.Context, cfg *config.Config, player Player, catalog Catalog, st Store) (*Manager, error) {
	marks, err := st.Marks(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load marks")
	}

	m := &Manager{
		config:       cfg,
		player:       player,
		catalog:      catalog,
		store:        st,
		selection:    newSelection(cfg.Playback.Language, marks),
		filterChain:  filter.NewChain(),
		notification: notification.NewManager(cfg.Playback.NotifyTimeoutDuration()),
		validate:     validator.New(),
		done:         make(chan struct{}),
	}

	if err := player.SetRepeatPolicy(cfg.Playback.DefaultRepeat); err != nil {
		return nil, errors.Wrap(err, "failed to set default repeat")
	}
	if err := player.SetVoice(cfg.Playback.DefaultReciter); err != nil {
		return nil, errors.Wrap(err, "failed to set default reciter")
	}

	m.setupFilters()

	go m.eventLoop()

	return m, nil
}

// setupFilters initializes the filter chain.
func (m *Manager) setupFilters() {
	cfg := m.config

	// ChapterBoundsFilter
	m.filterChain.Add(filter.NewChapterBoundsFilter())

	// ReciterFilter
	m.filterChain.Add(filter.NewReciterFilter(cfg.ReciterNames()))

	// RepeatLimitFilter
	if cfg.IsFilterEnabled("repeat_limit_filter") {
		f := filter.NewRepeatLimitFilter()
		if err := f.ValidateConfig(cfg.FilterSettings("repeat_limit_filter")); err != nil {
			zlog.Error().Msgf("failed to validate repeat limit filter config: %v", err)
		} else {
			m.filterChain.Add(f)
		}
	}

	// NameLengthFilter
	if cfg.IsFilterEnabled("name_length_filter") {
		f := filter.NewNameLengthFilter()
		if err := f.ValidateConfig(cfg.FilterSettings("name_length_filter")); err != nil {
			zlog.Error().Msgf("failed to validate name length filter config: %v", err)
		} else {
			m.filterChain.Add(f)
		}
	}
}

// Chapters returns the chapter index. When the catalog is unreachable the
// index is built from the verse count table, without names.
func (m *Manager) Chapters(ctx context.Context) []verse.Chapter {
	chapters, err := m.catalog.Chapters(ctx)
	if err != nil || len(chapters) == 0 {
		zlog.Warn().Msgf("chapter index unavailable, using verse counts: %v", err)
		return verse.Index()
	}
	return chapters
}

// SelectChapter opens a chapter: playback stops and the default range is selected.
// Missing chapter text does not prevent playback.
func (m *Manager) SelectChapter(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.selectChapterLocked(ctx, id); err != nil {
		return err
	}
	m.broadcast(notification.TypeChapterChanged, "chapter selected")
	return nil
}

func (m *Manager) selectChapterLocked(ctx context.Context, id int) error {
	count := verse.VerseCount(id)
	if count == 0 {
		return errors.Wrapf(ErrInvalidChapter, "chapter=%d", id)
	}

	chapter, err := m.catalog.Chapter(ctx, id, m.selection.Language())
	if err != nil {
		zlog.Warn().Msgf("chapter text unavailable: chapter=%d: %v", id, err)
		chapter = nil
	}

	if err := m.player.SelectCollection(id, count); err != nil {
		return errors.Wrapf(err, "failed to select chapter %d", id)
	}
	m.selection.SetChapter(id, chapter)
	zlog.Info().Msgf("chapter selected: chapter=%d verses=%d", id, count)
	return nil
}

// PlayPause toggles playback at the current verse.
func (m *Manager) PlayPause() error {
	return m.player.PlayPause()
}

// Stop stops playback.
func (m *Manager) Stop() error {
	return m.player.Stop()
}

// SkipNext moves to the next verse in the range and plays it.
func (m *Manager) SkipNext() error {
	return m.player.SkipNext()
}

// SkipPrevious moves to the previous verse in the range and plays it.
func (m *Manager) SkipPrevious() error {
	return m.player.SkipPrevious()
}

// SetRange replaces the verse range. Playback stops at the new start.
func (m *Manager) SetRange(start, end int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n, _ := m.selection.Chapter(); n == 0 {
		return ErrNoChapter
	}
	return m.player.SetRange(start, end)
}

// SetPosition moves the current verse within the range.
func (m *Manager) SetPosition(item int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n, _ := m.selection.Chapter(); n == 0 {
		return ErrNoChapter
	}
	return m.player.SetPosition(item)
}

// SetRepeat sets the repeat count. 0 repeats forever.
func (m *Manager) SetRepeat(count int) error {
	if count > m.config.Playback.MaxRepeat {
		return errors.Wrapf(ErrRepeatTooLarge, "repeat=%d max=%d", count, m.config.Playback.MaxRepeat)
	}
	return m.player.SetRepeatPolicy(count)
}

// SetVoice selects the reciter for the next verse played.
func (m *Manager) SetVoice(name string) error {
	if !m.config.IsReciter(name) {
		return errors.Wrapf(ErrUnknownReciter, "reciter=%s", name)
	}
	return m.player.SetVoice(name)
}

// SetLanguage switches the translation language. The chapter text is fetched
// again; playback is not touched.
func (m *Manager) SetLanguage(ctx context.Context, language string) error {
	if err := m.validate.Var(language, "required,alpha,lowercase,min=2,max=8"); err != nil {
		return errors.Wrapf(ErrInvalidLang, "language=%q", language)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if n, _ := m.selection.Chapter(); n > 0 {
		chapter, err := m.catalog.Chapter(ctx, n, language)
		if err != nil {
			return errors.Wrapf(err, "failed to fetch chapter %d in %s", n, language)
		}
		m.selection.SetChapter(n, chapter)
	}
	m.selection.SetLanguage(language)
	zlog.Info().Msgf("language changed: language=%s", language)
	m.broadcast(notification.TypeLanguageChanged, "language changed")
	return nil
}

// SetMode switches between student and teacher mode.
func (m *Manager) SetMode(mode session.Mode) error {
	switch mode {
	case session.ModeStudent, session.ModeTeacher:
	default:
		return errors.Wrapf(ErrInvalidMode, "mode=%q", mode)
	}
	m.selection.SetMode(mode)
	zlog.Info().Msgf("mode changed: mode=%s", mode)
	m.broadcast(notification.TypeStatus, "mode changed")
	return nil
}

// MarkVerse records a comment on a verse of the selected chapter.
// An empty comment clears the mark.
func (m *Manager) MarkVerse(ctx context.Context, verseNo int, comment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.selection.Mode() != session.ModeTeacher {
		return ErrNotTeacher
	}
	n, _ := m.selection.Chapter()
	if n == 0 {
		return ErrNoChapter
	}
	if verseNo < 1 || verseNo > verse.VerseCount(n) {
		return errors.Wrapf(ErrInvalidVerse, "chapter=%d verse=%d", n, verseNo)
	}

	if err := m.store.SetMark(ctx, n, verseNo, comment); err != nil {
		return err
	}
	m.selection.SetMark(n, verseNo, comment)
	zlog.Info().Msgf("verse marked: chapter=%d verse=%d cleared=%v", n, verseNo, comment == "")

	fields := m.statusFields(m.player.Status())
	fields["marked_verse"] = verseNo
	fields["comment"] = comment
	m.notification.Broadcast(notification.New(notification.TypeMarkChanged, "verse marked", fields))
	return nil
}

// Marks returns all verse marks.
func (m *Manager) Marks() session.Marks {
	return m.selection.Marks()
}

// Subscribe registers a notification stream and sends it the current status.
// types restricts the broadcasts the stream receives; none means all.
func (m *Manager) Subscribe(stream notification.Stream, types ...notification.Type) string {
	id := m.notification.Subscribe(stream, types...)
	snapshot := notification.New(notification.TypeStatus, "subscribed", m.statusFields(m.player.Status()))
	if err := m.notification.Send(id, snapshot); err != nil {
		zlog.Debug().Msgf("failed to send initial status: id=%s: %v", id, err)
	}
	return id
}

// Unsubscribe removes a notification stream.
func (m *Manager) Unsubscribe(id string) {
	m.notification.Unsubscribe(id)
}

// Done returns a channel that is closed when the studio is closed.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Close stops playback, waits for pending events and drops all subscribers.
func (m *Manager) Close() {
	m.once.Do(func() {
		m.player.Close()
		<-m.done
		m.notification.Close()
	})
}

// broadcast sends a notification carrying the current status.
func (m *Manager) broadcast(t notification.Type, message string) {
	m.notification.Broadcast(notification.New(t, message, m.statusFields(m.player.Status())))
}
