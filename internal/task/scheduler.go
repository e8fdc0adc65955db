package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Entry is one periodic task.
type Entry struct {
	// Name is the registered task name to publish.
	Name string

	// Spec is a standard five-field cron expression.
	Spec string

	// Expires is how long a published message stays runnable.
	Expires time.Duration

	Payload any
}

// Scheduler publishes periodic tasks to the broker on a cron schedule.
type Scheduler struct {
	cron      *cron.Cron
	publisher *Publisher
	logger    *slog.Logger
}

// NewScheduler creates a scheduler evaluating schedules in loc.
func NewScheduler(publisher *Publisher, loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		publisher: publisher,
		logger:    logger,
	}
}

// Add registers an entry. It fails on an invalid cron expression.
func (s *Scheduler) Add(e Entry) error {
	id, err := s.cron.AddFunc(e.Spec, func() { s.fire(e) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", e.Spec, e.Name, err)
	}

	s.logger.Info("scheduled task",
		"task_name", e.Name,
		"spec", e.Spec,
		"next_run", s.cron.Entry(id).Schedule.Next(time.Now().In(s.cron.Location())))
	return nil
}

func (s *Scheduler) fire(e Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := s.publisher.Publish(ctx, e.Name, e.Payload, e.Expires); err != nil {
		s.logger.Error("failed to publish scheduled task", "task_name", e.Name, "error", err)
	}
}

// Start begins firing entries in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "entries", len(s.cron.Entries()))
}

// Stop stops the schedule and waits for a publish in progress, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
