package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ============================================================================
// SESSION SNAPSHOT + VOCAB USAGE
// ============================================================================

// ErrSessionNotFound is returned when no snapshot exists for the id.
var ErrSessionNotFound = errors.New("session not found")

// SaveSession persists a JSON session snapshot under the given id,
// replacing any previous snapshot.
func (s *Store) SaveSession(id, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO sessions (id, saved_at, state) VALUES (?, ?, ?)`,
		id, time.Now().UnixNano(), state,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadSession fetches the snapshot for the id.
func (s *Store) LoadSession(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var state string
	err := s.db.QueryRow(`SELECT state FROM sessions WHERE id = ?`, id).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	return state, nil
}

// Bump increments the usage counter for a vocabulary word. Counters
// feed typo-correction tie-breaks: between equally close corrections
// the more used word wins.
func (s *Store) Bump(word string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO vocab_usage (word, count) VALUES (?, 1)
		 ON CONFLICT(word) DO UPDATE SET count = count + 1`, word)
	if err != nil {
		return fmt.Errorf("bump vocab usage: %w", err)
	}
	return nil
}

// Frequency returns the usage count for a word, 0 when never seen.
func (s *Store) Frequency(word string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRow(`SELECT count FROM vocab_usage WHERE word = ?`, word).Scan(&n)
	if err != nil {
		return 0
	}
	return n
}
