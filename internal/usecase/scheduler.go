package usecase

import (
	"context"
	"log/slog"
	"time"

	"ThreatIngest/internal/ports"
)

// Job is a recurring unit of work, e.g. one news export.
type Job func(ctx context.Context, trigger time.Time) error

// Scheduler wires the cron-like driver with a job.
type Scheduler struct {
	driver ports.Scheduler
	job    Job
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, job Job, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, job: job, logger: logger}
}

// Start registers the job with the provided scheduler. Job errors are logged, not propagated.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.job == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if err := s.job(ctx, trigger); err != nil && s.logger != nil {
			s.logger.Error("scheduled run failed", "trigger", trigger.Format(time.RFC3339), "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
