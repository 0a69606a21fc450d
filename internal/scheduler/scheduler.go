// Package scheduler runs the periodic maintenance jobs: event decay
// refresh and the batch recompute sweep.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/shxuryaaz/BlackSwan-Credit-system/pkg/logger"
)

// Maintainer is the subset of the application service the scheduler
// drives.
type Maintainer interface {
	RefreshDecay(ctx context.Context) (int64, error)
	RecomputeAll(ctx context.Context) (int, error)
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron       *cron.Cron
	maintainer Maintainer
	ctx        context.Context
	logger     logger.Logger
}

// New creates a scheduler bound to the given maintainer.
func New(ctx context.Context, m Maintainer) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		maintainer: m,
		ctx:        ctx,
		logger:     logger.Get().Named("scheduler"),
	}
}

// Register installs the recompute sweep and decay refresh jobs. Specs use
// the standard five-field cron format.
func (s *Scheduler) Register(recomputeSpec, decaySpec string) error {
	if _, err := s.cron.AddFunc(recomputeSpec, s.recomputeSweep); err != nil {
		return fmt.Errorf("register recompute sweep: %w", err)
	}
	if _, err := s.cron.AddFunc(decaySpec, s.decayRefresh); err != nil {
		return fmt.Errorf("register decay refresh: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info(s.ctx, "scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info(s.ctx, "scheduler stopped")
}

// RunSweepNow executes the recompute sweep immediately, for manual
// triggering at startup.
func (s *Scheduler) RunSweepNow() {
	s.recomputeSweep()
}

// recomputeSweep refreshes decay factors first so the sweep scores
// against current event weights, then enqueues every issuer.
func (s *Scheduler) recomputeSweep() {
	s.logger.Info(s.ctx, "running recompute sweep")

	if _, err := s.maintainer.RefreshDecay(s.ctx); err != nil {
		s.logger.Error(s.ctx, "decay refresh before sweep failed", logger.Error(err))
	}

	accepted, err := s.maintainer.RecomputeAll(s.ctx)
	if err != nil {
		s.logger.Error(s.ctx, "recompute sweep failed", logger.Error(err))
		return
	}
	s.logger.Info(s.ctx, "recompute sweep enqueued", logger.Int("jobs", accepted))
}

func (s *Scheduler) decayRefresh() {
	updated, err := s.maintainer.RefreshDecay(s.ctx)
	if err != nil {
		s.logger.Error(s.ctx, "decay refresh failed", logger.Error(err))
		return
	}
	s.logger.Info(s.ctx, "decay refresh complete", logger.Int64("updated", updated))
}
