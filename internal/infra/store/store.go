// Package store persists study sessions and verse marks in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/osa030/hifzbox/internal/domain/session"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ErrSessionNotFound is returned when no session has the requested name.
var ErrSessionNotFound = errors.New("session not found")

// Store manages session persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Summary describes a saved session without its payload.
type Summary struct {
	ID         string
	Name       string
	Chapter    int
	StartVerse int
	EndVerse   int
	Reciter    string
	Repeat     int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Open initializes or connects to the session database.
func Open(path string) (*Store, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sqlite db")
	}
	if path == MemoryPath {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if path != MemoryPath {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.Wrapf(err, "failed to apply %q", pragma)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	zlog.Debug().Msgf("session store opened: path=%s", path)
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id          TEXT NOT NULL UNIQUE,
			name        TEXT PRIMARY KEY,
			chapter     INTEGER NOT NULL,
			start_verse INTEGER NOT NULL,
			end_verse   INTEGER NOT NULL,
			reciter     TEXT NOT NULL DEFAULT '',
			repeat_count INTEGER NOT NULL DEFAULT 0,
			payload     TEXT NOT NULL,
			created_at  INTEGER NOT NULL,
			updated_at  INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS marks (
			chapter    INTEGER NOT NULL,
			verse      INTEGER NOT NULL,
			comment    TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (chapter, verse)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to initialize schema")
		}
	}
	return nil
}

// SaveSession inserts or replaces the session with the same name.
func (s *Store) SaveSession(ctx context.Context, d *session.Data) (*Summary, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(d)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode session")
	}

	now := time.Now().UTC()
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, name, chapter, start_verse, end_verse, reciter, repeat_count, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			chapter = excluded.chapter,
			start_verse = excluded.start_verse,
			end_verse = excluded.end_verse,
			reciter = excluded.reciter,
			repeat_count = excluded.repeat_count,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		id, d.Name, d.Chapter, d.StartVerse, d.EndVerse, d.Reciter, d.Repeat, string(payload),
		now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to save session %q", d.Name)
	}

	zlog.Debug().Msgf("session saved: name=%q chapter=%d range=%d-%d", d.Name, d.Chapter, d.StartVerse, d.EndVerse)
	return s.summary(ctx, d.Name)
}

// GetSession returns the session with the given name.
func (s *Store) GetSession(ctx context.Context, name string) (*session.Data, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM sessions WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrSessionNotFound, "name=%q", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load session %q", name)
	}

	var d session.Data
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return nil, errors.Wrapf(err, "failed to decode session %q", name)
	}
	return &d, nil
}

// HasSession reports whether a session with the given name exists.
func (s *Store) HasSession(ctx context.Context, name string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions WHERE name = ?`, name).Scan(&n); err != nil {
		return false, errors.Wrap(err, "failed to query session")
	}
	return n > 0, nil
}

// ListSessions returns all sessions, most recently updated first.
func (s *Store) ListSessions(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, chapter, start_verse, end_verse, reciter, repeat_count, created_at, updated_at
		FROM sessions ORDER BY updated_at DESC, name ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sessions")
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sum)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate sessions")
}

// DeleteSession removes a session by name.
func (s *Store) DeleteSession(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE name = ?`, name)
	if err != nil {
		return errors.Wrapf(err, "failed to delete session %q", name)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrSessionNotFound, "name=%q", name)
	}
	return nil
}

// SetMark records a comment for a verse. An empty comment removes the mark.
func (s *Store) SetMark(ctx context.Context, chapter, verseNo int, comment string) error {
	if comment == "" {
		_, err := s.db.ExecContext(ctx, `DELETE FROM marks WHERE chapter = ? AND verse = ?`, chapter, verseNo)
		return errors.Wrap(err, "failed to delete mark")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO marks (chapter, verse, comment, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(chapter, verse) DO UPDATE SET comment = excluded.comment, updated_at = excluded.updated_at`,
		chapter, verseNo, comment, time.Now().UnixMilli())
	return errors.Wrap(err, "failed to save mark")
}

// Marks returns every stored mark.
func (s *Store) Marks(ctx context.Context) (session.Marks, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chapter, verse, comment FROM marks ORDER BY chapter, verse`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load marks")
	}
	defer rows.Close()

	marks := session.Marks{}
	for rows.Next() {
		var chapter, verseNo int
		var comment string
		if err := rows.Scan(&chapter, &verseNo, &comment); err != nil {
			return nil, errors.Wrap(err, "failed to scan mark")
		}
		marks.Set(chapter, verseNo, comment)
	}
	return marks, errors.Wrap(rows.Err(), "failed to iterate marks")
}

// ReplaceMarks replaces all stored marks in one transaction.
func (s *Store) ReplaceMarks(ctx context.Context, marks session.Marks) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM marks`); err != nil {
		return errors.Wrap(err, "failed to clear marks")
	}
	now := time.Now().UnixMilli()
	for chapter, verses := range marks {
		for verseNo, comment := range verses {
			if comment == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO marks (chapter, verse, comment, updated_at) VALUES (?, ?, ?, ?)`,
				chapter, verseNo, comment, now); err != nil {
				return errors.Wrap(err, "failed to insert mark")
			}
		}
	}
	return errors.Wrap(tx.Commit(), "failed to commit marks")
}

func (s *Store) summary(ctx context.Context, name string) (*Summary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, chapter, start_verse, end_verse, reciter, repeat_count, created_at, updated_at
		FROM sessions WHERE name = ?`, name)
	sum, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrSessionNotFound, "name=%q", name)
	}
	return sum, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(sc scanner) (*Summary, error) {
	var sum Summary
	var created, updated int64
	if err := sc.Scan(&sum.ID, &sum.Name, &sum.Chapter, &sum.StartVerse, &sum.EndVerse,
		&sum.Reciter, &sum.Repeat, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to scan session")
	}
	sum.CreatedAt = time.UnixMilli(created).UTC()
	sum.UpdatedAt = time.UnixMilli(updated).UTC()
	return &sum, nil
}
