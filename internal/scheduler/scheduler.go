package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/finance-service/internal/config"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const jobTimeout = 5 * time.Minute

// Jobs are the periodic service operations
type Jobs interface {
	MaterializeDue(ctx context.Context) (int, error)
	SweepPastDue(ctx context.Context) (int, error)
	SendCartReminders(ctx context.Context) (int, error)
}

// Scheduler runs Jobs on their cron specs. A run still in progress makes the next one skip.
type Scheduler struct {
	cron *cron.Cron
	jobs Jobs
	log  *logrus.Logger
}

func New(jobs Jobs, cfg *config.Config, log *logrus.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(log)), cron.SkipIfStillRunning(cron.PrintfLogger(log)))),
		jobs: jobs,
		log:  log,
	}

	entries := []struct {
		name string
		spec string
		fn   func(ctx context.Context) (int, error)
	}{
		{"scheduled-transactions", cfg.CronScheduledTx, jobs.MaterializeDue},
		{"subscription-past-due", cfg.CronPastDue, jobs.SweepPastDue},
		{"cart-reminders", cfg.CronCartReminder, jobs.SendCartReminders},
	}
	for _, e := range entries {
		if _, err := s.cron.AddFunc(e.spec, s.run(e.name, e.fn)); err != nil {
			return nil, fmt.Errorf("failed to schedule %s (%q): %w", e.name, e.spec, err)
		}
	}
	return s, nil
}

func (s *Scheduler) run(name string, fn func(ctx context.Context) (int, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		started := time.Now()
		n, err := fn(ctx)
		if err != nil {
			s.log.Errorf("Job %s failed: %v", name, err)
			return
		}
		s.log.WithFields(logrus.Fields{
			"job":         name,
			"processed":   n,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("Job finished")
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Infof("Scheduler started with %d jobs", len(s.cron.Entries()))
}

// Stop prevents new runs; the returned context is done once running jobs finish
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
