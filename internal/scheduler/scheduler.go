package scheduler

import (
	"context"
	"fmt"
	"time"

	"stockcount-backend/internal/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SessionCloser is the part of the counting service the sweeper needs.
type SessionCloser interface {
	CloseStaleSessions(ctx context.Context, actor models.Actor, idleFor time.Duration) (int, error)
}

// Scheduler runs background housekeeping on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	sessions SessionCloser
	spec     string
	idleFor  time.Duration
	logger   *zap.Logger
}

func NewScheduler(sessions SessionCloser, spec string, idleFor time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:     cron.New(),
		sessions: sessions,
		spec:     spec,
		idleFor:  idleFor,
		logger:   logger,
	}
}

// Start registers the jobs and starts the cron loop. An invalid schedule is
// returned instead of being silently skipped.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("session_sweep", s.spec))

	if _, err := s.cron.AddFunc(s.spec, s.sweepSessions); err != nil {
		return fmt.Errorf("schedule session sweep %q: %w", s.spec, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sweepSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	closed, err := s.sessions.CloseStaleSessions(ctx, models.SystemActor, s.idleFor)
	if err != nil {
		s.logger.Error("session sweep failed", zap.Int("closed", closed), zap.Error(err))
		return
	}
	if closed > 0 {
		s.logger.Info("closed idle scanning sessions", zap.Int("closed", closed))
	}
}
