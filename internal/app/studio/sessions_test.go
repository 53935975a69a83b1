package studio

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/hifzbox/internal/domain/session"
	"github.com/osa030/hifzbox/internal/domain/verse"
	"github.com/osa030/hifzbox/internal/infra/store"
)

// prepare selects Al-Baqarah 10-14, repeat 3, Husary, teacher mode with one mark.
func prepare(t *testing.T, h *harness) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.manager.SelectChapter(ctx, 2))
	require.NoError(t, h.manager.SetRange(10, 14))
	require.NoError(t, h.manager.SetRepeat(3))
	require.NoError(t, h.manager.SetVoice("Husary_64kbps"))
	require.NoError(t, h.manager.SetMode(session.ModeTeacher))
	require.NoError(t, h.manager.MarkVerse(ctx, 12, "stop here"))
}

func TestManager_SaveSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.manager.SaveSession(ctx, "Nothing yet")
	assert.ErrorIs(t, err, ErrNoChapter)

	prepare(t, h)

	_, err = h.manager.SaveSession(ctx, "   ")
	assert.True(t, errors.Is(err, session.ErrInvalidSession), "got %v", err)

	sum, err := h.manager.SaveSession(ctx, "Baqarah review")
	require.NoError(t, err)
	assert.Equal(t, "Baqarah review", sum.Name)
	assert.Equal(t, 2, sum.Chapter)
	assert.Equal(t, 10, sum.StartVerse)
	assert.Equal(t, 14, sum.EndVerse)
	assert.Equal(t, "Husary_64kbps", sum.Reciter)
	assert.Equal(t, 3, sum.Repeat)
	assert.Equal(t, "Baqarah review", h.manager.Status().SessionName)

	d, err := h.store.GetSession(ctx, "Baqarah review")
	require.NoError(t, err)
	assert.Equal(t, session.ModeTeacher, d.Mode)
	assert.Equal(t, "en", d.Language)
	assert.Equal(t, session.Marks{2: {12: "stop here"}}, d.MarkedVerses)
}

func TestManager_LoadSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	prepare(t, h)
	_, err := h.manager.SaveSession(ctx, "Baqarah review")
	require.NoError(t, err)

	// Move somewhere else before loading.
	require.NoError(t, h.manager.SelectChapter(ctx, 36))
	require.NoError(t, h.manager.SetRepeat(0))
	require.NoError(t, h.manager.SetVoice("Alafasy_128kbps"))
	require.NoError(t, h.manager.MarkVerse(ctx, 1, "ya sin"))
	require.NoError(t, h.manager.SetMode(session.ModeStudent))
	require.NoError(t, h.manager.PlayPause())

	d, err := h.manager.LoadSession(ctx, "Baqarah review")
	require.NoError(t, err)
	assert.Equal(t, "Baqarah review", d.Name)

	st := h.manager.Status()
	assert.Equal(t, 2, st.Chapter)
	assert.Equal(t, verse.Range{Start: 10, End: 14}, st.Playback.Range)
	assert.Equal(t, 10, st.Playback.Position)
	assert.Equal(t, 3, st.Playback.Repeat.Count)
	assert.Equal(t, "Husary_64kbps", st.Playback.Voice)
	assert.Equal(t, session.ModeTeacher, st.Mode)
	assert.Equal(t, "Baqarah review", st.SessionName)
	assert.False(t, st.Playback.State.IsActive())
	assert.Equal(t, session.Marks{2: {12: "stop here"}}, h.manager.Marks())

	stored, err := h.store.Marks(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Marks{2: {12: "stop here"}}, stored)

	_, err = h.manager.LoadSession(ctx, "missing")
	assert.True(t, errors.Is(err, store.ErrSessionNotFound), "got %v", err)
}

func TestManager_LoadSession_UnknownReciterFallsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.store.SaveSession(ctx, &session.Data{
		Name:       "Old reciter",
		Chapter:    1,
		StartVerse: 1,
		EndVerse:   7,
		Reciter:    "Retired_32kbps",
		Repeat:     1,
	})
	require.NoError(t, err)

	_, err = h.manager.LoadSession(ctx, "Old reciter")
	require.NoError(t, err)
	assert.Equal(t, "Alafasy_128kbps", h.manager.Status().Playback.Voice)
}

func TestManager_ListAndDeleteSessions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	prepare(t, h)
	_, err := h.manager.SaveSession(ctx, "One")
	require.NoError(t, err)
	_, err = h.manager.SaveSession(ctx, "Two")
	require.NoError(t, err)

	list, err := h.manager.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, h.manager.DeleteSession(ctx, "Two"))
	assert.Empty(t, h.manager.Status().SessionName)

	list, err = h.manager.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "One", list[0].Name)

	err = h.manager.DeleteSession(ctx, "Two")
	assert.True(t, errors.Is(err, store.ErrSessionNotFound), "got %v", err)
}

func TestManager_ExportSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.manager.ExportSession(ctx, "")
	assert.ErrorIs(t, err, ErrNoChapter)

	prepare(t, h)

	payload, err := h.manager.ExportSession(ctx, "")
	require.NoError(t, err)
	var current session.Data
	require.NoError(t, json.Unmarshal([]byte(payload), &current))
	assert.Equal(t, untitled, current.Name)
	assert.Equal(t, 2, current.Chapter)
	assert.Equal(t, 10, current.StartVerse)

	_, err = h.manager.SaveSession(ctx, "Saved")
	require.NoError(t, err)
	payload, err = h.manager.ExportSession(ctx, "Saved")
	require.NoError(t, err)
	var saved session.Data
	require.NoError(t, json.Unmarshal([]byte(payload), &saved))
	assert.Equal(t, "Saved", saved.Name)
	assert.Equal(t, 3, saved.Repeat)
}

func TestManager_ImportSession(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantName string
		wantCode string
		wantErr  error
	}{
		{
			name:     "new session",
			payload:  `{"name":"Fresh","chapter":1,"startVerse":1,"endVerse":7,"reciter":"Husary_64kbps","repeat":2}`,
			wantName: "Fresh",
		},
		{
			name:     "name taken",
			payload:  `{"name":"Existing","chapter":1,"startVerse":1,"endVerse":3,"repeat":1}`,
			wantName: "Existing (Imported)",
		},
		{
			name:     "unknown reciter",
			payload:  `{"name":"Other","chapter":1,"startVerse":1,"endVerse":3,"reciter":"Nobody","repeat":1}`,
			wantCode: "unknown_reciter",
		},
		{
			name:     "range beyond chapter",
			payload:  `{"name":"Long","chapter":1,"startVerse":1,"endVerse":8,"repeat":1}`,
			wantCode: "range_out_of_bounds",
		},
		{
			name:     "repeat over limit",
			payload:  `{"name":"Many","chapter":1,"startVerse":1,"endVerse":3,"repeat":50}`,
			wantCode: "repeat_limit_exceeded",
		},
		{
			name:    "malformed",
			payload: `{"name":`,
			wantErr: session.ErrInvalidSession,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			_, err := h.store.SaveSession(ctx, &session.Data{Name: "Existing", Chapter: 2, StartVerse: 1, EndVerse: 5})
			require.NoError(t, err)

			sum, err := h.manager.ImportSession(ctx, tt.payload)
			switch {
			case tt.wantCode != "":
				var rejected *RejectedError
				require.True(t, errors.As(err, &rejected), "got %v", err)
				assert.Equal(t, tt.wantCode, rejected.Code)
			case tt.wantErr != nil:
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantName, sum.Name)
				ok, err := h.store.HasSession(ctx, tt.wantName)
				require.NoError(t, err)
				assert.True(t, ok)
				// Importing does not change what is playing.
				assert.Equal(t, 0, h.manager.Status().Chapter)
			}
		})
	}
}

func TestManager_ShareAndOpen(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.manager.ShareSession(ctx)
	assert.ErrorIs(t, err, ErrNoChapter)

	prepare(t, h)
	link, err := h.manager.ShareSession(ctx)
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "hifz.example", u.Host)
	assert.NotEmpty(t, u.Query().Get(session.ShareParam))

	other := newHarness(t)
	d, err := other.manager.OpenShared(ctx, link)
	require.NoError(t, err)
	assert.Equal(t, untitled, d.Name)

	st := other.manager.Status()
	assert.Equal(t, 2, st.Chapter)
	assert.Equal(t, verse.Range{Start: 10, End: 14}, st.Playback.Range)
	assert.Equal(t, "Husary_64kbps", st.Playback.Voice)
	assert.Equal(t, session.Marks{2: {12: "stop here"}}, other.manager.Marks())

	list, err := other.manager.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestManager_OpenShared_Rejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.manager.OpenShared(ctx, "https://hifz.example/app")
	assert.True(t, errors.Is(err, session.ErrNoSharedData), "got %v", err)

	bad := &session.Data{Name: "Bad", Chapter: 1, StartVerse: 2, EndVerse: 9, Repeat: 1}
	link, err := bad.ShareURL("https://hifz.example/app")
	require.NoError(t, err)

	_, err = h.manager.OpenShared(ctx, link)
	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected), "got %v", err)
	assert.Equal(t, "range_out_of_bounds", rejected.Code)
	assert.Equal(t, 0, h.manager.Status().Chapter)
}
