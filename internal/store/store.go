package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"deskhand/internal/logging"
)

// ============================================================================
// STORE
// ============================================================================

// Store is the single persistence layer behind the assistant: the
// append-only event log, the session snapshot, the undo ledger,
// scheduled workflow plans, and vocabulary usage counters all live in
// one SQLite file.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// Open initializes the SQLite database at the given path, creating the
// parent directory and the schema if needed.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	log := logging.Get(logging.CategoryStore)

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer. SQLite serializes writes anyway; one connection
	// avoids SQLITE_BUSY between our own goroutines.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		log.Debugw("failed to set busy_timeout", "error", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		log.Debugw("failed to set journal_mode", "error", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		log.Debugw("failed to set synchronous", "error", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	log.Infow("store ready", "path", path)
	return s, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.dbPath }

func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id         TEXT PRIMARY KEY,
			ts         INTEGER NOT NULL,
			kind       TEXT NOT NULL,
			raw        TEXT NOT NULL DEFAULT '',
			params     TEXT NOT NULL DEFAULT '{}',
			outcome    TEXT NOT NULL DEFAULT '',
			tags       TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id       TEXT PRIMARY KEY,
			saved_at INTEGER NOT NULL,
			state    TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS ledger (
			id       TEXT PRIMARY KEY,
			ts       INTEGER NOT NULL,
			kind     TEXT NOT NULL,
			params   TEXT NOT NULL DEFAULT '{}',
			inverse  TEXT NOT NULL DEFAULT '',
			status   TEXT NOT NULL DEFAULT 'pending',
			stash    TEXT NOT NULL DEFAULT '',
			origin   TEXT NOT NULL DEFAULT 'user'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_ts ON ledger(ts)`,

		`CREATE TABLE IF NOT EXISTS plans (
			id       TEXT PRIMARY KEY,
			name     TEXT NOT NULL,
			saved_at INTEGER NOT NULL,
			next_step INTEGER NOT NULL DEFAULT 0,
			spec     TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS vocab_usage (
			word  TEXT PRIMARY KEY,
			count INTEGER NOT NULL DEFAULT 0
		)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}
