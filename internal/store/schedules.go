package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/CosmoTheDev/ctrlgrade/models"
)

// CreateSchedule persists sched and returns it with ID and CreatedAt set.
func (s *Store) CreateSchedule(ctx context.Context, sched models.Schedule) (*models.Schedule, error) {
	sched.ID = 0
	sched.CreatedAt = s.timestamp()
	id, err := s.db.Insert(ctx, "analysis_schedules", sched)
	if err != nil {
		return nil, fmt.Errorf("creating schedule %q: %w", sched.Name, err)
	}
	sched.ID = id
	return &sched, nil
}

// ListSchedules returns all schedules ordered by id. enabledOnly skips
// disabled entries.
func (s *Store) ListSchedules(ctx context.Context, enabledOnly bool) ([]models.Schedule, error) {
	q := `SELECT * FROM analysis_schedules`
	if enabledOnly {
		q += ` WHERE enabled = 1`
	}
	q += ` ORDER BY id`
	var out []models.Schedule
	if err := s.db.Select(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("listing schedules: %w", err)
	}
	return out, nil
}

// GetSchedule returns one schedule by id.
func (s *Store) GetSchedule(ctx context.Context, id int64) (*models.Schedule, error) {
	var sched models.Schedule
	err := s.db.Get(ctx, &sched, `SELECT * FROM analysis_schedules WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading schedule %d: %w", id, err)
	}
	return &sched, nil
}

// DeleteSchedule removes a schedule. Deleting a missing id is ErrNotFound.
func (s *Store) DeleteSchedule(ctx context.Context, id int64) error {
	n, err := s.db.Exec(ctx, `DELETE FROM analysis_schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting schedule %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchSchedule records that a schedule fired now.
func (s *Store) TouchSchedule(ctx context.Context, id int64) error {
	if _, err := s.db.Exec(ctx,
		`UPDATE analysis_schedules SET last_run_at = ? WHERE id = ?`, s.timestamp(), id); err != nil {
		return fmt.Errorf("updating schedule %d: %w", id, err)
	}
	return nil
}
