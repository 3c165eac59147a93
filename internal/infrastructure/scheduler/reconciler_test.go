package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eslsoft/quizstats/internal/usecase"
)

type countingTarget struct {
	calls   atomic.Int32
	reports []usecase.SyncReport
}

func (c *countingTarget) Reconcile(context.Context) []usecase.SyncReport {
	c.calls.Add(1)
	return c.reports
}

func TestReconcilerRunsPeriodically(t *testing.T) {
	logger, _ := test.NewNullLogger()
	target := &countingTarget{}
	r := NewReconciler(target, 20*time.Millisecond, logger)

	require.NoError(t, r.Start(context.Background()))
	assert.ErrorIs(t, r.Start(context.Background()), ErrAlreadyStarted)

	require.Eventually(t, func() bool { return target.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	r.Stop()
	r.Stop()
	after := target.calls.Load()
	time.Sleep(80 * time.Millisecond)
	assert.LessOrEqual(t, target.calls.Load(), after+1, "no passes are scheduled after Stop")
}

func TestReconcilerRunOnceLogsFailures(t *testing.T) {
	logger, hook := test.NewNullLogger()
	target := &countingTarget{reports: []usecase.SyncReport{
		{UserID: "a", XPOutcome: usecase.SyncApplied, HeartsOutcome: usecase.SyncApplied},
		{UserID: "b", XPOutcome: usecase.SyncFailed, HeartsOutcome: usecase.SyncApplied},
	}}
	r := NewReconciler(target, 0, logger)
	assert.Equal(t, DefaultReconcileInterval, r.interval)

	reports := r.RunOnce(context.Background())
	assert.Len(t, reports, 2)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, 1, hook.LastEntry().Data["failed"])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Nil(t, r.RunOnce(ctx))
	assert.Equal(t, int32(1), target.calls.Load())
}
