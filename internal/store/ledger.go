package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// UNDO LEDGER
// ============================================================================

// Ledger row statuses. An action is recorded as pending before the
// mutation runs, then flipped to ok or failed. Undone marks rows whose
// inverse has been applied.
const (
	StatusPending = "pending"
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusUndone  = "undone"
)

// Ledger row origins. Rows written while replaying an inverse are tagged
// OriginUndo so a windowed undo never picks up its own output and turns
// into a redo.
const (
	OriginUser = "user"
	OriginUndo = "undo"
)

// ActionRow is one entry in the transactional undo ledger.
type ActionRow struct {
	ID        string
	Timestamp time.Time
	Kind      string
	Params    map[string]string
	Inverse   map[string]string
	Status    string
	Stash     string
	Origin    string
}

// AppendAction writes a pending ledger row. Call before performing the
// mutation so a crash mid-action still leaves a trace.
func (s *Store) AppendAction(a ActionRow) (ActionRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	if a.Origin == "" {
		a.Origin = OriginUser
	}

	params, err := json.Marshal(a.Params)
	if err != nil {
		return ActionRow{}, fmt.Errorf("marshal action params: %w", err)
	}
	inverse := ""
	if a.Inverse != nil {
		b, err := json.Marshal(a.Inverse)
		if err != nil {
			return ActionRow{}, fmt.Errorf("marshal action inverse: %w", err)
		}
		inverse = string(b)
	}

	_, err = s.db.Exec(
		`INSERT INTO ledger (id, ts, kind, params, inverse, status, stash, origin) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Timestamp.UnixNano(), a.Kind, string(params), inverse, a.Status, a.Stash, a.Origin,
	)
	if err != nil {
		return ActionRow{}, fmt.Errorf("append ledger row: %w", err)
	}
	return a, nil
}

// SetActionStatus flips a ledger row to its terminal status.
func (s *Store) SetActionStatus(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE ledger SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update ledger status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ledger row %s not found", id)
	}
	return nil
}

// UndoCandidates returns completed rows newer than since, newest first.
// That ordering is the undo order. A zero since means the whole ledger.
// When includeUndos is false, rows written by an undo replay are left
// out, so sweeping the same window twice is a no-op rather than a redo.
func (s *Store) UndoCandidates(since time.Time, includeUndos bool) ([]ActionRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := `SELECT id, ts, kind, params, inverse, status, stash, origin FROM ledger WHERE status = ?`
	args := []interface{}{StatusOK}
	if !since.IsZero() {
		q += " AND ts >= ?"
		args = append(args, since.UnixNano())
	}
	if !includeUndos {
		q += " AND origin != ?"
		args = append(args, OriginUndo)
	}
	q += " ORDER BY ts DESC"

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query undo candidates: %w", err)
	}
	defer rows.Close()
	return scanActions(rows)
}

// Timeline returns the n most recent ledger rows of any status, newest
// first, for display.
func (s *Store) Timeline(n int) ([]ActionRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, ts, kind, params, inverse, status, stash, origin FROM ledger ORDER BY ts DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query ledger timeline: %w", err)
	}
	defer rows.Close()
	return scanActions(rows)
}

func scanActions(rows *sql.Rows) ([]ActionRow, error) {
	var out []ActionRow
	for rows.Next() {
		var (
			a       ActionRow
			ts      int64
			params  string
			inverse string
		)
		if err := rows.Scan(&a.ID, &ts, &a.Kind, &params, &inverse, &a.Status, &a.Stash, &a.Origin); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		a.Timestamp = time.Unix(0, ts)
		if err := json.Unmarshal([]byte(params), &a.Params); err != nil {
			a.Params = map[string]string{}
		}
		if inverse != "" {
			if err := json.Unmarshal([]byte(inverse), &a.Inverse); err != nil {
				a.Inverse = nil
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
