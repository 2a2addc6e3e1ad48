// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule sweeps at the top of every hour.
const DefaultSchedule = "0 * * * *"

// TokenSweeper clears password-reset tokens that expired before now.
type TokenSweeper interface {
	SweepExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// ParseSchedule validates a standard five-field cron expression.
func ParseSchedule(spec string) (cron.Schedule, error) {
	return parser().Parse(spec)
}

func parser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
}

// ResetTokenSweeper periodically removes expired password-reset tokens.
type ResetTokenSweeper struct {
	sweeper  TokenSweeper
	schedule string
	logger   *slog.Logger
	now      func() time.Time

	cron       *cron.Cron
	mu         sync.Mutex
	isRunning  bool
	isSweeping bool
}

// NewResetTokenSweeper returns a stopped sweeper. An empty schedule means
// DefaultSchedule.
func NewResetTokenSweeper(sweeper TokenSweeper, schedule string, logger *slog.Logger) *ResetTokenSweeper {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &ResetTokenSweeper{
		sweeper:  sweeper,
		schedule: schedule,
		logger:   logger.With(slog.String("job", "reset_token_sweep")),
		now:      time.Now,
		cron:     cron.New(cron.WithParser(parser())),
	}
}

// Start registers the sweep and starts the cron scheduler.
func (s *ResetTokenSweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if _, err := ParseSchedule(s.schedule); err != nil {
		return fmt.Errorf("scheduler: invalid cron schedule %q: %w", s.schedule, err)
	}
	if _, err := s.cron.AddFunc(s.schedule, func() {
		_, _ = s.RunOnce(context.Background())
	}); err != nil {
		return fmt.Errorf("scheduler: scheduling sweep: %w", err)
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.Info("reset token sweeper started", slog.String("schedule", s.schedule))
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *ResetTokenSweeper) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("reset token sweeper stopped")
}

// RunOnce performs one sweep. Overlapping calls are skipped and report 0.
func (s *ResetTokenSweeper) RunOnce(ctx context.Context) (int64, error) {
	s.mu.Lock()
	if s.isSweeping {
		s.mu.Unlock()
		s.logger.Debug("sweep skipped, previous run still active")
		return 0, nil
	}
	s.isSweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSweeping = false
		s.mu.Unlock()
	}()

	n, err := s.sweeper.SweepExpiredResetTokens(ctx, s.now())
	if err != nil {
		s.logger.Error("reset token sweep failed", slog.String("error", err.Error()))
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired reset tokens cleared", slog.Int64("count", n))
	}
	return n, nil
}
