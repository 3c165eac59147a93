// Package scheduler runs periodic background jobs.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/quizstats/internal/usecase"
)

// DefaultReconcileInterval is used when no positive interval is configured.
const DefaultReconcileInterval = 5 * time.Minute

// ErrAlreadyStarted is returned by Start on a running reconciler.
var ErrAlreadyStarted = errors.New("reconciler already started")

// Reconcilable is the part of the sync usecase driven by the reconciler.
type Reconcilable interface {
	Reconcile(ctx context.Context) []usecase.SyncReport
}

// Reconciler periodically re-replicates XP and lives for every user with a
// live progress subscription, repairing writes missed while a watch was down.
type Reconciler struct {
	target   Reconcilable
	interval time.Duration
	logger   logrus.FieldLogger

	mu        sync.Mutex
	scheduler *gocron.Scheduler
	cancel    context.CancelFunc
}

// NewReconciler builds a stopped reconciler.
func NewReconciler(target Reconcilable, interval time.Duration, logger logrus.FieldLogger) *Reconciler {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	return &Reconciler{
		target:   target,
		interval: interval,
		logger:   logger.WithField("component", "reconciler"),
	}
}

// Start schedules the job. The first pass runs one interval after start and
// runs never overlap. Jobs stop when ctx ends or Stop is called.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scheduler != nil {
		return ErrAlreadyStarted
	}

	jobCtx, cancel := context.WithCancel(ctx)
	s := gocron.NewScheduler(time.UTC)
	_, err := s.Every(r.interval).WaitForSchedule().SingletonMode().Do(func() {
		r.RunOnce(jobCtx)
	})
	if err != nil {
		cancel()
		return err
	}
	s.StartAsync()
	r.scheduler, r.cancel = s, cancel
	r.logger.WithField("interval", r.interval.String()).Info("reconciler started")
	return nil
}

// RunOnce performs a single reconciliation pass.
func (r *Reconciler) RunOnce(ctx context.Context) []usecase.SyncReport {
	if ctx.Err() != nil {
		return nil
	}
	start := time.Now()
	reports := r.target.Reconcile(ctx)

	failed := 0
	for _, rep := range reports {
		if rep.XPOutcome == usecase.SyncFailed || rep.HeartsOutcome == usecase.SyncFailed {
			failed++
		}
	}
	log := r.logger.WithFields(logrus.Fields{
		"users":    len(reports),
		"failed":   failed,
		"duration": time.Since(start).String(),
	})
	if failed > 0 {
		log.Warn("reconciliation pass finished with failures")
	} else {
		log.Debug("reconciliation pass finished")
	}
	return reports
}

// Stop cancels a running pass and removes the job. It is safe to call more than once.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scheduler == nil {
		return
	}
	r.cancel()
	r.scheduler.Stop()
	r.scheduler, r.cancel = nil, nil
	r.logger.Info("reconciler stopped")
}
