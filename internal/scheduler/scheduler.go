// Package scheduler runs the periodic background jobs: availability
// reconciliation and the expired refresh token purge.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/iliyamo/car-rental-booking/internal/inventory"
)

// Reconciler is the reconciliation job body.
type Reconciler interface {
	Reconcile(ctx context.Context) (inventory.Report, error)
}

// TokenPurger deletes refresh tokens that expired or were revoked before
// cutoff.
type TokenPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Jobs selects what the scheduler runs.  A job with a nil body or a zero
// interval is not registered.
type Jobs struct {
	Reconciler     Reconciler
	ReconcileEvery time.Duration

	Tokens     TokenPurger
	TokenGrace time.Duration // revoked tokens are kept this long before purge
	SweepEvery time.Duration
}

// Scheduler wraps a gocron scheduler whose jobs run in singleton mode, so a
// slow pass is never overlapped by the next tick.  With no jobs registered
// Start and Stop do nothing.
type Scheduler struct {
	sched gocron.Scheduler
	log   *zap.Logger
	now   func() time.Time
}

func New(jobs Jobs, log *zap.Logger) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scheduler{log: log.Named("scheduler"), now: time.Now}

	type job struct {
		name  string
		every time.Duration
		run   func(context.Context)
	}
	var planned []job
	if jobs.Reconciler != nil && jobs.ReconcileEvery > 0 {
		planned = append(planned, job{"reconcile-availability", jobs.ReconcileEvery, func(ctx context.Context) { s.reconcile(ctx, jobs.Reconciler) }})
	} else {
		s.log.Info("scheduled reconciliation disabled")
	}
	if jobs.Tokens != nil && jobs.SweepEvery > 0 {
		planned = append(planned, job{"purge-expired-tokens", jobs.SweepEvery, func(ctx context.Context) { s.sweep(ctx, jobs.Tokens, jobs.TokenGrace) }})
	}
	if len(planned) == 0 {
		return s, nil
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	for _, j := range planned {
		j := j
		timeout := max(j.every, 30*time.Second)
		_, err = sched.NewJob(
			gocron.DurationJob(j.every),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), timeout)
				defer cancel()
				j.run(ctx)
			}),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = sched.Shutdown()
			return nil, err
		}
	}
	s.sched = sched
	return s, nil
}

func (s *Scheduler) reconcile(ctx context.Context, rec Reconciler) {
	rep, err := rec.Reconcile(ctx)
	if err != nil {
		s.log.Warn("scheduled reconciliation finished with errors",
			zap.Int("checked", rep.Checked), zap.Int("corrected", rep.Corrected), zap.Int("failed", rep.Failed), zap.Error(err))
		return
	}
	s.log.Debug("scheduled reconciliation done", zap.Int("checked", rep.Checked), zap.Int("corrected", rep.Corrected))
}

func (s *Scheduler) sweep(ctx context.Context, tokens TokenPurger, grace time.Duration) {
	n, err := tokens.PurgeExpired(ctx, s.now().UTC().Add(-grace))
	if err != nil {
		s.log.Warn("token purge failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("purged refresh tokens", zap.Int64("count", n))
	}
}

func (s *Scheduler) Start() {
	if s.sched != nil {
		s.sched.Start()
	}
}

// Stop waits for running passes and stops the scheduler.
func (s *Scheduler) Stop() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}
