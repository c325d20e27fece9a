package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/pagekeeper/internal/cycle"
	"github.com/hamed0406/pagekeeper/internal/domain"
)

// Cycler runs one cycle; *cycle.Runner satisfies it.
type Cycler interface {
	Run(ctx context.Context, targets []domain.Target) (domain.CycleSummary, error)
}

// Scheduler drives the cycle runner: once after StartupDelay, then every
// Interval, plus manual triggers. Cycles run inline so they never overlap.
type Scheduler struct {
	Logger       *zap.Logger
	Runner       Cycler
	Targets      []domain.Target
	Interval     time.Duration
	StartupDelay time.Duration

	trigger chan struct{}
}

func New(
	logger *zap.Logger,
	runner Cycler,
	targets []domain.Target,
	interval time.Duration,
	startupDelay time.Duration,
) *Scheduler {
	if interval < 0 {
		interval = 0
	}
	if startupDelay < 0 {
		startupDelay = 0
	}
	return &Scheduler{
		Logger:       logger,
		Runner:       runner,
		Targets:      targets,
		Interval:     interval,
		StartupDelay: startupDelay,
		trigger:      make(chan struct{}, 1),
	}
}

// Trigger queues one manual cycle without waiting for it. It returns false
// when a manual cycle is already pending.
func (s *Scheduler) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Logger.Info("scheduler_started",
		zap.Duration("startup_delay", s.StartupDelay),
		zap.Duration("interval", s.Interval),
		zap.Int("targets", len(s.Targets)),
	)

	delay := time.NewTimer(s.StartupDelay)
	defer delay.Stop()
	select {
	case <-ctx.Done():
		s.Logger.Info("scheduler_stopped")
		return nil
	case <-delay.C:
		s.runOnce(ctx, "startup")
	case <-s.trigger:
		s.runOnce(ctx, "manual")
	}

	var tick <-chan time.Time
	if s.Interval > 0 {
		t := time.NewTicker(s.Interval)
		defer t.Stop()
		tick = t.C
	} else {
		// periodic runs disabled; manual triggers only
		s.Logger.Info("scheduler_interval_disabled")
	}

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("scheduler_stopped")
			return nil
		case <-tick:
			s.runOnce(ctx, "interval")
		case <-s.trigger:
			s.runOnce(ctx, "manual")
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, reason string) {
	sum, err := s.Runner.Run(ctx, s.Targets)
	s.report(reason, sum, err)
}

// report is the one place cycle errors end up.
func (s *Scheduler) report(reason string, sum domain.CycleSummary, err error) {
	switch {
	case err == nil:
		s.Logger.Debug("scheduler_cycle_done",
			zap.String("reason", reason),
			zap.String("cycle_id", sum.CycleID),
			zap.String("status", sum.LastStatus),
		)
	case errors.Is(err, cycle.ErrCycleInProgress):
		s.Logger.Info("scheduler_cycle_skipped", zap.String("reason", reason))
	case errors.Is(err, context.Canceled):
		s.Logger.Info("scheduler_cycle_cancelled", zap.String("reason", reason), zap.String("cycle_id", sum.CycleID))
	default:
		s.Logger.Error("scheduler_cycle_error",
			zap.String("reason", reason),
			zap.String("cycle_id", sum.CycleID),
			zap.Error(err),
		)
	}
}
