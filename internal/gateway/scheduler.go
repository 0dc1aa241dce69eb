package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/CosmoTheDev/ctrlgrade/internal/store"
	"github.com/CosmoTheDev/ctrlgrade/models"
)

// Scheduler loads analysis_schedules from the store and registers them with
// robfig/cron. When a schedule fires it calls enqueueFn for the schedule's
// URL and records last_run_at.
type Scheduler struct {
	store     *store.Store
	cron      *cron.Cron
	enqueueFn func(ctx context.Context, sched models.Schedule) error
	broadcast func(SSEEvent)

	mu      sync.Mutex
	entries map[int64]cron.EntryID // schedule id → cron entry id
}

func newScheduler(st *store.Store, enqueueFn func(context.Context, models.Schedule) error, broadcast func(SSEEvent)) *Scheduler {
	return &Scheduler{
		store:     st,
		cron:      cron.New(),
		enqueueFn: enqueueFn,
		broadcast: broadcast,
		entries:   make(map[int64]cron.EntryID),
	}
}

// Start loads all enabled schedules and starts the cron runner.
func (s *Scheduler) Start(ctx context.Context) error {
	schedules, err := s.store.ListSchedules(ctx, true)
	if err != nil {
		return fmt.Errorf("loading schedules: %w", err)
	}
	for _, sched := range schedules {
		if err := s.register(sched); err != nil {
			slog.Warn("scheduler: skipping schedule with invalid expression",
				"id", sched.ID, "name", sched.Name, "expr", sched.Expr, "error", err)
		}
	}
	s.cron.Start()
	slog.Info("gateway scheduler started", "schedules_loaded", len(schedules))
	return nil
}

// Stop halts the cron runner gracefully.
func (s *Scheduler) Stop() { s.cron.Stop() }

func (s *Scheduler) register(sched models.Schedule) error {
	entryID, err := s.cron.AddFunc(sched.Expr, func() {
		if err := s.runSchedule(context.Background(), sched, EventScheduleFired); err != nil {
			slog.Warn("scheduler: firing schedule failed",
				"id", sched.ID, "name", sched.Name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", sched.Expr, err)
	}
	s.mu.Lock()
	s.entries[sched.ID] = entryID
	s.mu.Unlock()
	return nil
}

// validateExpr checks that expr is parseable by robfig/cron without adding
// it to any runner.
func validateExpr(expr string) error {
	_, err := cron.ParseStandard(expr)
	return err
}

// Add validates, persists, and registers a new schedule.
func (s *Scheduler) Add(ctx context.Context, sched models.Schedule) (*models.Schedule, error) {
	if err := validateExpr(sched.Expr); err != nil {
		return nil, fmt.Errorf("invalid schedule expression %q: %w", sched.Expr, err)
	}
	created, err := s.store.CreateSchedule(ctx, sched)
	if err != nil {
		return nil, err
	}
	if created.Enabled {
		if err := s.register(*created); err != nil {
			slog.Warn("scheduler: persisted but could not register schedule",
				"id", created.ID, "error", err)
		}
	}
	return created, nil
}

// Delete removes a schedule from cron and the store.
func (s *Scheduler) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	if entryID, ok := s.entries[id]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
	s.mu.Unlock()
	return s.store.DeleteSchedule(ctx, id)
}

// List returns all schedules ordered by id.
func (s *Scheduler) List(ctx context.Context) ([]models.Schedule, error) {
	return s.store.ListSchedules(ctx, false)
}

// Registered reports how many schedules are live in the cron runner.
func (s *Scheduler) Registered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// TriggerNow enqueues the schedule's analysis immediately.
func (s *Scheduler) TriggerNow(ctx context.Context, id int64) error {
	sched, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return err
	}
	return s.runSchedule(ctx, *sched, EventScheduleTriggered)
}

func (s *Scheduler) runSchedule(ctx context.Context, sched models.Schedule, eventType string) error {
	if err := s.store.TouchSchedule(ctx, sched.ID); err != nil {
		return err
	}
	if err := s.enqueueFn(ctx, sched); err != nil {
		return err
	}
	payload := map[string]any{"id": sched.ID, "name": sched.Name, "url": sched.URL}
	if eventType == EventScheduleTriggered {
		payload["manual"] = true
	}
	s.broadcast(SSEEvent{Type: eventType, Payload: payload})
	return nil
}
