package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ============================================================================
// WORKFLOW PLANS
// ============================================================================

// ErrPlanNotFound is returned when resuming a plan id with no saved row.
var ErrPlanNotFound = errors.New("plan not found")

// PlanRow is a persisted workflow: its compiled spec plus the index of
// the next step to run, so interrupted or scheduled workflows survive a
// restart.
type PlanRow struct {
	ID       string
	Name     string
	SavedAt  time.Time
	NextStep int
	Spec     string
}

// SavePlan inserts or replaces a plan row.
func (s *Store) SavePlan(p PlanRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.SavedAt.IsZero() {
		p.SavedAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO plans (id, name, saved_at, next_step, spec) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.SavedAt.UnixNano(), p.NextStep, p.Spec,
	)
	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

// LoadPlan fetches a plan by id.
func (s *Store) LoadPlan(id string) (PlanRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`SELECT id, name, saved_at, next_step, spec FROM plans WHERE id = ?`, id)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return PlanRow{}, ErrPlanNotFound
	}
	return p, err
}

// ListPlans returns all saved plans, newest first.
func (s *Store) ListPlans() ([]PlanRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id, name, saved_at, next_step, spec FROM plans ORDER BY saved_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []PlanRow
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePlan removes a completed plan.
func (s *Store) DeletePlan(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlan(r rowScanner) (PlanRow, error) {
	var (
		p  PlanRow
		ts int64
	)
	if err := r.Scan(&p.ID, &p.Name, &ts, &p.NextStep, &p.Spec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PlanRow{}, err
		}
		return PlanRow{}, fmt.Errorf("scan plan: %w", err)
	}
	p.SavedAt = time.Unix(0, ts)
	return p, nil
}
