package studio

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/hifzbox/internal/app/filter"
	"github.com/osa030/hifzbox/internal/app/notification"
	"github.com/osa030/hifzbox/internal/domain/session"
	"github.com/osa030/hifzbox/internal/infra/store"
)

// untitled names a session that was never saved.
const untitled = "Untitled session"

// SaveSession stores the current chapter, range, reciter, repeat count and marks under name.
// Saving under an existing name replaces that session.
func (m *Manager) SaveSession(ctx context.Context, name string) (*store.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.snapshotLocked(strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	summary, err := m.store.SaveSession(ctx, d)
	if err != nil {
		return nil, err
	}
	m.selection.SetName(d.Name)
	zlog.Info().Msgf("session saved: name=%q chapter=%d range=%d-%d", d.Name, d.Chapter, d.StartVerse, d.EndVerse)
	return summary, nil
}

// LoadSession applies a saved session. Playback stops.
func (m *Manager) LoadSession(ctx context.Context, name string) (*session.Data, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.store.GetSession(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := m.check(ctx, d, filter.OriginLoad); err != nil {
		return nil, err
	}
	if err := m.applyLocked(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// ListSessions returns saved sessions, most recently updated first.
func (m *Manager) ListSessions(ctx context.Context) ([]store.Summary, error) {
	return m.store.ListSessions(ctx)
}

// DeleteSession removes a saved session.
func (m *Manager) DeleteSession(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.DeleteSession(ctx, name); err != nil {
		return err
	}
	if m.selection.Name() == name {
		m.selection.SetName("")
	}
	zlog.Info().Msgf("session deleted: name=%q", name)
	return nil
}

// ExportSession returns a saved session as JSON. An empty name exports the
// current, possibly unsaved, state.
func (m *Manager) ExportSession(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		d   *session.Data
		err error
	)
	if name == "" {
		d, err = m.snapshotLocked(m.currentNameLocked())
	} else {
		d, err = m.store.GetSession(ctx, name)
	}
	if err != nil {
		return "", err
	}
	return d.Export()
}

// ImportSession validates an exported session and saves it. A session whose
// name is taken is saved as "<name> (Imported)".
func (m *Manager) ImportSession(ctx context.Context, payload string) (*store.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := session.Import(payload)
	if err != nil {
		return nil, err
	}
	if err := m.check(ctx, d, filter.OriginImport); err != nil {
		return nil, err
	}

	var lookupErr error
	d.Name = session.ImportedName(d.Name, func(name string) bool {
		exists, err := m.store.HasSession(ctx, name)
		if err != nil {
			lookupErr = err
		}
		return exists
	})
	if lookupErr != nil {
		return nil, lookupErr
	}

	summary, err := m.store.SaveSession(ctx, d)
	if err != nil {
		return nil, err
	}
	zlog.Info().Msgf("session imported: name=%q chapter=%d", d.Name, d.Chapter)
	return summary, nil
}

// ShareSession returns a link embedding the current state.
func (m *Manager) ShareSession(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.snapshotLocked(m.currentNameLocked())
	if err != nil {
		return "", err
	}
	return d.ShareURL(m.config.Server.ShareURL)
}

// OpenShared applies the session embedded in a share link without saving it.
func (m *Manager) OpenShared(ctx context.Context, link string) (*session.Data, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := session.FromShareURL(link)
	if err != nil {
		return nil, err
	}
	if err := m.check(ctx, d, filter.OriginShare); err != nil {
		return nil, err
	}
	if err := m.applyLocked(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// check normalizes the session and runs it through the filter chain.
func (m *Manager) check(ctx context.Context, d *session.Data, origin filter.Origin) error {
	d.Normalize(m.config.Playback.DefaultReciter)
	result := m.filterChain.Execute(ctx, filter.Request{Origin: origin, Session: d})
	if !result.Accepted {
		return &RejectedError{Code: result.Code}
	}
	return nil
}

// applyLocked replaces the studio state with d. Playback stops.
func (m *Manager) applyLocked(ctx context.Context, d *session.Data) error {
	m.selection.SetLanguage(d.Language)
	m.selection.SetMode(d.Mode)

	if err := m.selectChapterLocked(ctx, d.Chapter); err != nil {
		return err
	}
	if err := m.player.SetRange(d.StartVerse, d.EndVerse); err != nil {
		return errors.Wrapf(err, "failed to apply range %d-%d", d.StartVerse, d.EndVerse)
	}
	if err := m.player.SetRepeatPolicy(d.Repeat); err != nil {
		return errors.Wrapf(err, "failed to apply repeat %d", d.Repeat)
	}

	reciter := d.Reciter
	if !m.config.IsReciter(reciter) {
		zlog.Warn().Msgf("session reciter not configured, using default: reciter=%s default=%s",
			reciter, m.config.Playback.DefaultReciter)
		reciter = m.config.Playback.DefaultReciter
	}
	if err := m.player.SetVoice(reciter); err != nil {
		return err
	}

	if err := m.store.ReplaceMarks(ctx, d.MarkedVerses); err != nil {
		return err
	}
	m.selection.ReplaceMarks(d.MarkedVerses)
	m.selection.SetName(d.Name)

	zlog.Info().Msgf("session applied: name=%q chapter=%d range=%d-%d repeat=%d reciter=%s",
		d.Name, d.Chapter, d.StartVerse, d.EndVerse, d.Repeat, reciter)
	m.broadcast(notification.TypeSessionLoaded, "session loaded: "+d.Name)
	return nil
}

// snapshotLocked captures the current state as session data.
func (m *Manager) snapshotLocked(name string) (*session.Data, error) {
	pb := m.player.Status()
	if !pb.HasCollection() {
		return nil, ErrNoChapter
	}
	d := &session.Data{
		Name:         name,
		Chapter:      pb.Collection,
		StartVerse:   pb.Range.Start,
		EndVerse:     pb.Range.End,
		Mode:         m.selection.Mode(),
		Language:     m.selection.Language(),
		Reciter:      pb.Voice,
		Repeat:       pb.Repeat.Count,
		MarkedVerses: m.selection.Marks(),
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (m *Manager) currentNameLocked() string {
	if name := m.selection.Name(); name != "" {
		return name
	}
	return untitled
}
