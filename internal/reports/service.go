package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"top-posts-report/report-backend/internal/reports/export"
)

// Trigger gates a run on the scraping API
type Trigger interface {
	Trigger(ctx context.Context) (bool, error)
}

// BatchExtractor loads a batch
type BatchExtractor interface {
	Extract(ctx context.Context, date time.Time, rankCutoff int) (Batch, error)
}

// BatchRenderer renders a batch to a file staged for outputPath
type BatchRenderer interface {
	RenderStaged(ctx context.Context, batch Batch, outputPath string, stage *export.Staging) (*RenderResult, error)
}

// ServiceConfig holds the run defaults
type ServiceConfig struct {
	RankCutoff   int      `json:"rank_cutoff"`
	OutputPath   string   `json:"output_path"`
	ExtraFormats []string `json:"extra_formats,omitempty"`
}

// Service runs the trigger, extract and render steps in sequence.
type Service struct {
	trigger   Trigger
	extractor BatchExtractor
	renderer  BatchRenderer
	config    ServiceConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new report service. A nil trigger runs unconditionally.
func NewService(trigger Trigger, extractor BatchExtractor, renderer BatchRenderer, config ServiceConfig, logger *zap.Logger) *Service {
	return &Service{
		trigger:   trigger,
		extractor: extractor,
		renderer:  renderer,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes one report run. The date defaults to today and the output path
// to the configured one.
func (s *Service) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	startTime := s.now()
	date := opts.Date
	if date.IsZero() {
		date = startTime
	}
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())

	outputPath := opts.OutputPath
	if outputPath == "" {
		outputPath = s.config.OutputPath
	}

	result := &RunResult{
		RunID:     uuid.New(),
		Date:      date.Format(time.DateOnly),
		StartedAt: startTime,
	}
	logger := s.logger.With(zap.String("run_id", result.RunID.String()), zap.String("date", result.Date))
	logger.Info("Starting report run", zap.String("output_path", outputPath))

	finish := func(status RunStatus, err error) (*RunResult, error) {
		result.Status = status
		result.CompletedAt = s.now()
		result.Duration = result.CompletedAt.Sub(startTime)
		if err != nil {
			result.Error = err.Error()
			logger.Error("Report run failed",
				zap.String("error_kind", ErrorKind(err)),
				zap.Error(err),
				zap.Duration("duration", result.Duration))
			return result, err
		}
		logger.Info("Report run finished",
			zap.String("status", string(status)),
			zap.Int("records", result.RecordCount),
			zap.Duration("duration", result.Duration))
		return result, nil
	}

	if s.trigger != nil && !opts.SkipTrigger {
		ok, err := s.trigger.Trigger(ctx)
		if err != nil {
			return finish(RunStatusFailed, fmt.Errorf("trigger failed: %w", err))
		}
		if !ok {
			return finish(RunStatusSkipped, nil)
		}
	}

	batch, err := s.extractor.Extract(ctx, date, s.config.RankCutoff)
	if err != nil {
		return finish(RunStatusFailed, err)
	}
	result.RecordCount = batch.Len()

	// The PDF and its companions replace the previous run's files together,
	// only once all of them have been written.
	stage := export.NewStaging()
	defer stage.Discard()

	rendered, err := s.renderer.RenderStaged(ctx, batch, outputPath, stage)
	if err != nil {
		return finish(RunStatusFailed, err)
	}

	var extra []string
	if len(s.config.ExtraFormats) > 0 {
		if extra, err = StageCompanions(batch, outputPath, s.config.ExtraFormats, stage); err != nil {
			return finish(RunStatusFailed, err)
		}
	}

	if err := stage.Commit(); err != nil {
		return finish(RunStatusFailed, &DocumentWriteError{Path: outputPath, Err: err})
	}
	result.OutputPath = rendered.OutputPath
	result.MediaEmbedded = rendered.MediaEmbedded
	result.MediaFallbacks = rendered.MediaFallbacks
	result.ExtraOutputs = extra

	return finish(RunStatusCompleted, nil)
}
