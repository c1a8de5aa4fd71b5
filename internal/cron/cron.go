package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// InvitationExpirer marks stale pending invitations as expired.
type InvitationExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// Scheduler handles scheduled tasks
type Scheduler struct {
	cron        *cron.Cron
	invitations InvitationExpirer
	schedule    string
	timeout     time.Duration
	log         *zap.SugaredLogger
}

// NewScheduler creates a scheduler that runs the invitation expiry sweep on
// schedule, a standard cron expression or descriptor such as "@hourly".
func NewScheduler(invitations InvitationExpirer, schedule string, log *zap.SugaredLogger) *Scheduler {
	if schedule == "" {
		schedule = "@hourly"
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scheduler{
		cron:        cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		invitations: invitations,
		schedule:    schedule,
		timeout:     time.Minute,
		log:         log,
	}
}

// Every adds a housekeeping job. It must be called before Start.
func (s *Scheduler) Every(schedule, name string, job func()) error {
	if _, err := s.cron.AddFunc(schedule, job); err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, schedule, err)
	}
	s.log.Debugw("Job scheduled", "job", name, "schedule", schedule)
	return nil
}

// Start registers the expiry sweep and starts the scheduler
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.expireInvitations); err != nil {
		return fmt.Errorf("schedule invitation expiry %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.log.Infow("Scheduler started", "invitation_expiry", s.schedule)
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped")
}

// expireInvitations keeps pending listings accurate. Accept checks expiry on
// its own, so a missed run only delays the status change.
func (s *Scheduler) expireInvitations() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.invitations.ExpireStale(ctx)
	if err != nil {
		s.log.Errorw("Invitation expiry sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Infow("Expired stale invitations", "count", n)
	}
}
