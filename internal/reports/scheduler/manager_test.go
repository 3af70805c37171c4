package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"top-posts-report/report-backend/internal/reports"
)

type countingRunner struct {
	calls atomic.Int32
	err   error
}

func (r *countingRunner) Run(ctx context.Context, opts reports.RunOptions) (*reports.RunResult, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return &reports.RunResult{RunID: uuid.New(), Status: reports.RunStatusCompleted}, nil
}

func TestNewScheduleManagerRejectsBadExpression(t *testing.T) {
	cfg := DefaultScheduleManagerConfig()
	cfg.CronExpression = "every morning"

	_, err := NewScheduleManager(&countingRunner{}, zap.NewNop(), cfg)

	assert.Error(t, err)
}

func TestScheduleManagerRunsOnSchedule(t *testing.T) {
	runner := &countingRunner{}
	cfg := DefaultScheduleManagerConfig()
	cfg.CronExpression = "@every 1s"

	m, err := NewScheduleManager(runner, zap.NewNop(), cfg)
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	assert.False(t, m.NextRun().IsZero())
	assert.Eventually(t, func() bool { return runner.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduleManagerSurvivesRunInProgress(t *testing.T) {
	runner := &countingRunner{err: reports.ErrRunInProgress}
	cfg := DefaultScheduleManagerConfig()
	cfg.CronExpression = "@every 1s"

	m, err := NewScheduleManager(runner, zap.NewNop(), cfg)
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background()))

	assert.Eventually(t, func() bool { return runner.calls.Load() >= 2 }, 4*time.Second, 50*time.Millisecond)
	m.Stop()
}

func TestScheduleManagerStartTwice(t *testing.T) {
	m, err := NewScheduleManager(&countingRunner{}, zap.NewNop(), DefaultScheduleManagerConfig())
	require.NoError(t, err)

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	assert.Error(t, m.Start(context.Background()))
}
