// Package jobs runs scheduled background maintenance.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"booking/internal/logger"
)

// sweepTimeout bounds one run of the invitation sweep.
const sweepTimeout = time.Minute

// InvitationExpirer expires overdue invitations.
type InvitationExpirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

// Scheduler wraps a cron runner with the application's jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler creates an empty scheduler. Overlapping runs of one job are skipped.
func NewScheduler(log *zap.Logger) *Scheduler {
	log = logger.OrNop(log)
	cronLogger := cron.PrintfLogger(zap.NewStdLog(log))
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		)),
		logger: log,
	}
}

// AddInvitationSweep registers the expiry sweep on spec, a standard cron
// expression or descriptor such as "@every 15m".
func (s *Scheduler) AddInvitationSweep(spec string, expirer InvitationExpirer) error {
	_, err := s.cron.AddFunc(spec, func() {
		RunInvitationSweep(context.Background(), expirer, s.logger)
	})
	return err
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

// RunInvitationSweep performs one sweep.
func RunInvitationSweep(ctx context.Context, expirer InvitationExpirer, log *zap.Logger) {
	log = logger.OrNop(log)
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	n, err := expirer.ExpireStale(ctx)
	if err != nil {
		log.Error("invitation sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("expired stale invitations", zap.Int64("count", n))
	}
}
