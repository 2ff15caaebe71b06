// Package session persists the last book/chapter/verse selection per
// project in a small SQLite database, so reopening a project lands on
// the verse the user left off at.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/FocuswithJustin/JuniperScribe/core/errors"
)

// DBFileName is the on-disk name of the session database.
const DBFileName = "session.db"

// Selection is the last position within a project.
type Selection struct {
	Project   string
	Book      string
	Chapter   int
	Verse     int
	UpdatedAt time.Time
}

// Store manages session persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the session database under baseDir.
func Open(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(baseDir, DBFileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	const schema = `
CREATE TABLE IF NOT EXISTS selections (
	project    TEXT PRIMARY KEY,
	book       TEXT NOT NULL,
	chapter    INTEGER NOT NULL,
	verse      INTEGER NOT NULL,
	updated_at TEXT NOT NULL
)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Save upserts the selection for its project.
func (s *Store) Save(ctx context.Context, sel Selection) error {
	if sel.Project == "" {
		return errors.NewValidation("project", "must not be empty")
	}
	const stmt = `
INSERT INTO selections (project, book, chapter, verse, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(project) DO UPDATE SET
	book = excluded.book,
	chapter = excluded.chapter,
	verse = excluded.verse,
	updated_at = excluded.updated_at`
	_, err := s.db.ExecContext(ctx, stmt,
		sel.Project, sel.Book, sel.Chapter, sel.Verse,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save selection: %w", err)
	}
	return nil
}

// Load returns the stored selection for a project.
func (s *Store) Load(ctx context.Context, project string) (*Selection, error) {
	const stmt = `
SELECT book, chapter, verse, updated_at FROM selections WHERE project = ?`
	sel := &Selection{Project: project}
	var updatedAt string
	err := s.db.QueryRowContext(ctx, stmt, project).
		Scan(&sel.Book, &sel.Chapter, &sel.Verse, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("selection", project)
	}
	if err != nil {
		return nil, fmt.Errorf("load selection: %w", err)
	}
	if t, perr := time.Parse(time.RFC3339, updatedAt); perr == nil {
		sel.UpdatedAt = t
	}
	return sel, nil
}

// Delete drops the stored selection for a project. Deleting a project
// that has no selection is a no-op.
func (s *Store) Delete(ctx context.Context, project string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM selections WHERE project = ?`, project)
	if err != nil {
		return fmt.Errorf("delete selection: %w", err)
	}
	return nil
}
