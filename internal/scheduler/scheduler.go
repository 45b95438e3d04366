package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reaper is the part of the session store the scheduler needs.
type Reaper interface {
	ReapIdle(now time.Time, ttl time.Duration) int
}

// Scheduler periodically ends sessions that have gone idle.
type Scheduler struct {
	cron   *cron.Cron
	reaper Reaper
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// New creates a scheduler; call Start to begin running jobs.
func New(reaper Reaper, ttl time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		reaper: reaper,
		ttl:    ttl,
		logger: logger.Named("scheduler"),
		now:    time.Now,
	}
}

// Start registers the reap job under spec (standard cron or "@every 10m").
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.reap); err != nil {
		return fmt.Errorf("invalid reap schedule %q: %w", spec, err)
	}
	s.cron.Start()
	s.logger.Info("session reaper started", zap.String("spec", spec), zap.Duration("idle_ttl", s.ttl))
	return nil
}

// Stop waits for a running job to finish and stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("session reaper stopped")
}

// IsRunning reports whether any job is registered.
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}

func (s *Scheduler) reap() {
	removed := s.reaper.ReapIdle(s.now().UTC(), s.ttl)
	if removed > 0 {
		s.logger.Info("reaped idle sessions", zap.Int("count", removed))
	}
}
