package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/hifzbox/internal/domain/session"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func baqarah(name string) *session.Data {
	return &session.Data{
		Name:       name,
		Chapter:    2,
		StartVerse: 1,
		EndVerse:   5,
		Mode:       session.ModeTeacher,
		Language:   "en",
		Reciter:    "Alafasy_128kbps",
		Repeat:     3,
		MarkedVerses: session.Marks{
			2: {3: "watch the madd"},
		},
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	sum, err := s.SaveSession(ctx, baqarah("Morning review"))
	require.NoError(t, err)
	assert.NotEmpty(t, sum.ID)
	assert.Equal(t, "Morning review", sum.Name)
	assert.Equal(t, 2, sum.Chapter)
	assert.Equal(t, 3, sum.Repeat)
	assert.False(t, sum.UpdatedAt.IsZero())

	got, err := s.GetSession(ctx, "Morning review")
	require.NoError(t, err)
	assert.Equal(t, baqarah("Morning review"), got)
}

func TestStore_SaveReplacesByName(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	first, err := s.SaveSession(ctx, baqarah("Daily"))
	require.NoError(t, err)

	d := baqarah("Daily")
	d.StartVerse, d.EndVerse = 6, 10
	second, err := s.SaveSession(ctx, d)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	list, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 6, list[0].StartVerse)
}

func TestStore_SaveRejectsInvalid(t *testing.T) {
	s := setupStore(t)

	_, err := s.SaveSession(context.Background(), &session.Data{Name: "", Chapter: 1, StartVerse: 1, EndVerse: 1})
	assert.True(t, errors.Is(err, session.ErrInvalidSession))
}

func TestStore_NotFound(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.GetSession(ctx, "missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	err = s.DeleteSession(ctx, "missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	ok, err := s.HasSession(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ListAndDelete(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C"} {
		_, err := s.SaveSession(ctx, baqarah(name))
		require.NoError(t, err)
	}

	list, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	require.NoError(t, s.DeleteSession(ctx, "B"))
	ok, err := s.HasSession(ctx, "B")
	require.NoError(t, err)
	assert.False(t, ok)

	list, err = s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestStore_Marks(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetMark(ctx, 1, 2, "pronunciation"))
	require.NoError(t, s.SetMark(ctx, 1, 3, "stop sign"))
	require.NoError(t, s.SetMark(ctx, 1, 2, "makharij"))
	require.NoError(t, s.SetMark(ctx, 1, 3, ""))

	marks, err := s.Marks(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Marks{1: {2: "makharij"}}, marks)

	require.NoError(t, s.ReplaceMarks(ctx, session.Marks{
		2:  {255: "ayat al-kursi"},
		36: {1: "ya sin", 2: ""},
	}))
	marks, err = s.Marks(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Marks{2: {255: "ayat al-kursi"}, 36: {1: "ya sin"}}, marks)
}

func TestStore_ReopenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "hifzbox.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.SaveSession(ctx, baqarah("Persisted"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetSession(ctx, "Persisted")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Chapter)
}
