package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const rollForwardTimeout = 5 * time.Minute

// Scheduler runs the daily activity roll-forward on a cron schedule.
// Roll-forward is idempotent, so an extra run (e.g. after a restart)
// is harmless.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler wires the roll-forward job onto the given cron spec
// (standard five-field syntax, server local time).
func NewScheduler(spec string, activity ActivityService, logger *zap.Logger) (*Scheduler, error) {
	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), rollForwardTimeout)
		defer cancel()

		if _, err := activity.RollForwardAll(ctx); err != nil {
			logger.Error("Scheduled roll-forward failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid roll-forward schedule %q: %w", spec, err)
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

// Start launches the schedule in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Roll-forward scheduler started")
}

// Stop cancels the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Roll-forward scheduler stopped")
}
