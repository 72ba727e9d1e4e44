// Package store persists goals, tasks and preferences in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput wraps validation failures on write.
	ErrInvalidInput = errors.New("invalid input")
)

// Store is the SQLite-backed persistence layer. It is safe for concurrent
// use; database/sql pools connections.
type Store struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(path, 0o600)

	return &Store{db: db, now: time.Now, newID: uuid.NewString}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return fmt.Errorf("failed to get user_version: %w", err)
	}

	// Migration 0 -> 1: initial schema
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS goals (
		  id           TEXT PRIMARY KEY,
		  title        TEXT NOT NULL,
		  description  TEXT,
		  created_at   INTEGER NOT NULL,
		  completed_at INTEGER
		);

		CREATE TABLE IF NOT EXISTS tasks (
		  id         TEXT PRIMARY KEY,
		  goal_id    TEXT REFERENCES goals(id),
		  title      TEXT NOT NULL,
		  type       TEXT NOT NULL,
		  date       TEXT,
		  start_time TEXT,
		  end_time   TEXT,
		  completed  INTEGER NOT NULL DEFAULT 0,
		  notes      TEXT,
		  created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_date_start
		ON tasks(date, start_time);

		CREATE INDEX IF NOT EXISTS idx_tasks_goal
		ON tasks(goal_id)
		WHERE goal_id IS NOT NULL;

		CREATE TABLE IF NOT EXISTS preferences (
		  id               TEXT PRIMARY KEY,
		  preferences_text TEXT NOT NULL,
		  created_at       INTEGER NOT NULL,
		  updated_at       INTEGER NOT NULL
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", 1)); err != nil {
			return fmt.Errorf("failed to set user_version: %w", err)
		}
	}

	return nil
}

func toUnix(t time.Time) int64 {
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func checkAffected(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
