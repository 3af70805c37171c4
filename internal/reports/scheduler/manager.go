package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"top-posts-report/report-backend/internal/reports"
)

// ReportRunner runs one report
type ReportRunner interface {
	Run(ctx context.Context, opts reports.RunOptions) (*reports.RunResult, error)
}

// ScheduleManagerConfig configuration for the schedule manager
type ScheduleManagerConfig struct {
	CronExpression string        `json:"cron_expression"`
	RunTimeout     time.Duration `json:"run_timeout"`
}

// DefaultScheduleManagerConfig returns default configuration
func DefaultScheduleManagerConfig() ScheduleManagerConfig {
	return ScheduleManagerConfig{
		CronExpression: "0 0 9 * * *",
		RunTimeout:     30 * time.Minute,
	}
}

// ScheduleManager runs the report on a cron schedule. A tick that fires while
// the previous run is still going is skipped.
type ScheduleManager struct {
	cron    *cron.Cron
	entry   cron.EntryID
	runner  ReportRunner
	config  ScheduleManagerConfig
	logger  *zap.Logger
	mu      sync.RWMutex
	running bool
	ctx     context.Context
}

// NewScheduleManager creates a new schedule manager. The cron expression
// carries a leading seconds field.
func NewScheduleManager(runner ReportRunner, logger *zap.Logger, config ScheduleManagerConfig) (*ScheduleManager, error) {
	cronLogger := zapCronLogger{logger: logger}
	m := &ScheduleManager{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		runner: runner,
		config: config,
		logger: logger,
		ctx:    context.Background(),
	}

	entry, err := m.cron.AddFunc(config.CronExpression, m.executeScheduled)
	if err != nil {
		return nil, fmt.Errorf("failed to add cron job: %w", err)
	}
	m.entry = entry

	return m, nil
}

// Start starts the schedule manager. Runs it starts are cancelled with ctx.
func (m *ScheduleManager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("schedule manager already running")
	}
	m.running = true
	m.ctx = ctx
	m.mu.Unlock()

	m.cron.Start()

	m.logger.Info("Started schedule manager",
		zap.String("cron", m.config.CronExpression),
		zap.Time("next_run", m.NextRun()))
	return nil
}

// Stop stops the schedule manager and waits for a run in progress.
func (m *ScheduleManager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	m.logger.Info("Stopping schedule manager")

	ctx := m.cron.Stop()
	<-ctx.Done()
}

// NextRun returns the next scheduled run time; zero until started.
func (m *ScheduleManager) NextRun() time.Time {
	return m.cron.Entry(m.entry).Next
}

// executeScheduled runs one scheduled report for today's date
func (m *ScheduleManager) executeScheduled() {
	m.mu.RLock()
	parent := m.ctx
	m.mu.RUnlock()

	ctx, cancel := context.WithTimeout(parent, m.config.RunTimeout)
	defer cancel()

	m.logger.Info("Executing scheduled report")

	result, err := m.runner.Run(ctx, reports.RunOptions{})
	if errors.Is(err, reports.ErrRunInProgress) {
		m.logger.Warn("Skipping scheduled report, a run is already in progress")
		return
	}
	if err != nil {
		m.logger.Error("Scheduled report failed",
			zap.String("error_kind", reports.ErrorKind(err)),
			zap.Error(err))
		return
	}

	m.logger.Info("Scheduled report execution completed",
		zap.String("run_id", result.RunID.String()),
		zap.String("status", string(result.Status)),
		zap.Time("next_run", m.NextRun()))
}

// zapCronLogger adapts zap to cron.Logger
type zapCronLogger struct {
	logger *zap.Logger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw("cron: "+msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
