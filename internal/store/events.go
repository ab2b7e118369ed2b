package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"deskhand/internal/logging"
)

// ============================================================================
// EVENT LOG
// ============================================================================

// Event is one entry in the append-only activity log. Events are never
// updated or deleted; corrections are new events.
type Event struct {
	ID        string
	Timestamp time.Time
	Kind      string
	Raw       string
	Params    map[string]string
	Outcome   string
	Tags      []string
}

// Filter narrows an event query. Zero fields are ignored.
type Filter struct {
	Since     time.Time
	Until     time.Time
	Kind      string
	Tag       string
	Substring string
	Limit     int
}

// Record appends an event to the log. The ID and timestamp are filled
// in when empty.
func (s *Store) Record(ev Event) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	params, err := json.Marshal(ev.Params)
	if err != nil {
		return Event{}, fmt.Errorf("marshal event params: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO events (id, ts, kind, raw, params, outcome, tags) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Timestamp.UnixNano(), ev.Kind, ev.Raw, string(params), ev.Outcome, strings.Join(ev.Tags, ","),
	)
	if err != nil {
		return Event{}, fmt.Errorf("record event: %w", err)
	}

	logging.Get(logging.CategoryStore).Debugw("event recorded", "id", ev.ID, "kind", ev.Kind)
	return ev, nil
}

// Recent returns the n most recent events, newest first.
func (s *Store) Recent(n int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, ts, kind, raw, params, outcome, tags FROM events ORDER BY ts DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// Find returns events matching the filter, newest first.
func (s *Store) Find(f Filter) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		where []string
		args  []interface{}
	)
	if !f.Since.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, f.Since.UnixNano())
	}
	if !f.Until.IsZero() {
		where = append(where, "ts <= ?")
		args = append(args, f.Until.UnixNano())
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.Tag != "" {
		where = append(where, "(',' || tags || ',') LIKE ?")
		args = append(args, "%,"+f.Tag+",%")
	}
	if f.Substring != "" {
		where = append(where, "(raw LIKE ? OR params LIKE ?)")
		pat := "%" + f.Substring + "%"
		args = append(args, pat, pat)
	}

	q := `SELECT id, ts, kind, raw, params, outcome, tags FROM events`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY ts DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var out []Event
	for rows.Next() {
		var (
			ev     Event
			ts     int64
			params string
			tags   string
		)
		if err := rows.Scan(&ev.ID, &ts, &ev.Kind, &ev.Raw, &params, &ev.Outcome, &tags); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Timestamp = time.Unix(0, ts)
		if err := json.Unmarshal([]byte(params), &ev.Params); err != nil {
			ev.Params = map[string]string{}
		}
		if tags != "" {
			ev.Tags = strings.Split(tags, ",")
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
