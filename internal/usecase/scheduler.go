package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsRelay/internal/ports"
)

// Scheduler wires the interval driver with the pipeline use case.
type Scheduler struct {
	base     context.Context
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs. Runs use base
// as their context, so a start triggered by a short-lived request does not
// cancel them.
func NewScheduler(base context.Context, driver ports.Scheduler, pipeline *Pipeline, log *slog.Logger) *Scheduler {
	if base == nil {
		base = context.Background()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		base:     base,
		driver:   driver,
		pipeline: pipeline,
		logger:   log.With("component", "scheduler"),
	}
}

// Start registers the pipeline with the driver. Starting twice is a logged no-op.
func (s *Scheduler) Start(_ context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}
	if s.driver.Running() {
		s.logger.Info("scheduler is already running")
		return nil
	}

	job := func(trigger time.Time) {
		s.logger.Debug("tick", "at", trigger)
		s.pipeline.Run(s.base)
	}

	if err := s.driver.Start(s.base, job); err != nil {
		return err
	}
	s.logger.Info("scheduler started")
	return nil
}

// Stop prevents future runs; a run in progress completes on its own.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	if !s.driver.Running() {
		s.logger.Info("scheduler is already stopped")
		return nil
	}

	if err := s.driver.Stop(ctx); err != nil {
		return err
	}
	s.logger.Info("scheduler stopped")
	return nil
}

// Running reports whether recurring runs are active.
func (s *Scheduler) Running() bool {
	return s.driver != nil && s.driver.Running()
}
