// Package scheduler runs the periodic background jobs: the reconciliation
// sweep and the scheduled-session trigger.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/livemanager/livemanager/internal/config"
)

// LiveController is the subset of the live session service the scheduler
// drives.
type LiveController interface {
	Sweep(ctx context.Context) (int, error)
	StartDueScheduled(ctx context.Context, now time.Time) (int, error)
}

// Scheduler owns the cron runner. Both jobs are idempotent and safe to
// overlap with API-driven operations; the service serializes per-session
// work internally.
type Scheduler struct {
	cron   *cron.Cron
	live   LiveController
	cfg    config.SchedulerConfig
	logger *slog.Logger
}

// New creates a Scheduler with the given controller and intervals.
func New(live LiveController, cfg config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		live:   live,
		cfg:    cfg,
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger.
func (s *Scheduler) WithLogger(logger *slog.Logger) *Scheduler {
	s.logger = logger
	return s
}

// Start registers the jobs and starts the cron runner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(everySpec(s.cfg.SweepInterval), s.runSweep); err != nil {
		return fmt.Errorf("registering sweep job: %w", err)
	}
	if _, err := s.cron.AddFunc(everySpec(s.cfg.TriggerInterval), s.runTrigger); err != nil {
		return fmt.Errorf("registering scheduled-start job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		slog.Duration("sweep_interval", s.cfg.SweepInterval),
		slog.Duration("trigger_interval", s.cfg.TriggerInterval),
	)
	return nil
}

// Stop stops the cron runner and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// runSweep reconciles running sessions against the process table.
func (s *Scheduler) runSweep() {
	reconciled, err := s.live.Sweep(context.Background())
	if err != nil {
		s.logger.Error("reconciliation sweep failed", slog.Any("error", err))
		return
	}
	if reconciled > 0 {
		s.logger.Info("reconciliation sweep corrected sessions",
			slog.Int("reconciled", reconciled),
		)
	}
}

// runTrigger starts pending scheduled sessions whose time has come.
func (s *Scheduler) runTrigger() {
	started, err := s.live.StartDueScheduled(context.Background(), time.Now())
	if err != nil {
		s.logger.Error("scheduled-start trigger failed", slog.Any("error", err))
		return
	}
	if started > 0 {
		s.logger.Info("scheduled sessions started", slog.Int("started", started))
	}
}

// everySpec renders a duration as a cron @every spec.
func everySpec(d time.Duration) string {
	return fmt.Sprintf("@every %s", d)
}
