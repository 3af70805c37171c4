package reports

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"top-posts-report/report-backend/internal/reports/export"
)

// MockTrigger is a mock implementation of Trigger
type MockTrigger struct {
	mock.Mock
}

func (m *MockTrigger) Trigger(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// MockExtractor is a mock implementation of BatchExtractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, date time.Time, rankCutoff int) (Batch, error) {
	args := m.Called(ctx, date, rankCutoff)
	return args.Get(0).(Batch), args.Error(1)
}

// MockRenderer is a mock implementation of BatchRenderer
type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) RenderStaged(ctx context.Context, batch Batch, outputPath string, stage *export.Staging) (*RenderResult, error) {
	args := m.Called(ctx, batch, outputPath)
	result, _ := args.Get(0).(*RenderResult)
	return result, args.Error(1)
}

func newTestService(tr Trigger, ex BatchExtractor, re BatchRenderer, cfg ServiceConfig) *Service {
	s := NewService(tr, ex, re, cfg, zap.NewNop())
	s.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestRunCompletes(t *testing.T) {
	tr, ex, re := new(MockTrigger), new(MockExtractor), new(MockRenderer)
	batch := batchOf(Record{Rank: 1, Title: "cat"}, Record{Rank: 2, Title: "dog"})

	tr.On("Trigger", mock.Anything).Return(true, nil)
	ex.On("Extract", mock.Anything, batchDate, 3).Return(batch, nil)
	re.On("RenderStaged", mock.Anything, batch, "report.pdf").Return(&RenderResult{
		OutputPath: "report.pdf", Records: 2, Tables: 4, MediaEmbedded: 1, MediaFallbacks: 1,
	}, nil)

	s := newTestService(tr, ex, re, ServiceConfig{RankCutoff: 3, OutputPath: "report.pdf"})
	result, err := s.Run(context.Background(), RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, result.Status)
	assert.Equal(t, "2024-05-01", result.Date)
	assert.Equal(t, 2, result.RecordCount)
	assert.Equal(t, 1, result.MediaEmbedded)
	assert.Equal(t, 1, result.MediaFallbacks)
	assert.Equal(t, "report.pdf", result.OutputPath)
	assert.NotEqual(t, uuid.Nil, result.RunID)
	assert.Empty(t, result.Error)
	tr.AssertExpectations(t)
	ex.AssertExpectations(t)
	re.AssertExpectations(t)
}

func TestRunSkippedWhenTriggerDeclines(t *testing.T) {
	tr, ex, re := new(MockTrigger), new(MockExtractor), new(MockRenderer)
	tr.On("Trigger", mock.Anything).Return(false, nil)

	s := newTestService(tr, ex, re, ServiceConfig{RankCutoff: 3, OutputPath: "report.pdf"})
	result, err := s.Run(context.Background(), RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, RunStatusSkipped, result.Status)
	ex.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything)
	re.AssertNotCalled(t, "RenderStaged", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunTriggerTransportError(t *testing.T) {
	tr, ex, re := new(MockTrigger), new(MockExtractor), new(MockRenderer)
	tr.On("Trigger", mock.Anything).Return(false, errors.New("connection refused"))

	s := newTestService(tr, ex, re, ServiceConfig{RankCutoff: 3, OutputPath: "report.pdf"})
	result, err := s.Run(context.Background(), RunOptions{})

	require.Error(t, err)
	assert.Equal(t, RunStatusFailed, result.Status)
	assert.Contains(t, result.Error, "connection refused")
	ex.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunSkipTriggerAndOverrides(t *testing.T) {
	tr, ex, re := new(MockTrigger), new(MockExtractor), new(MockRenderer)
	date := time.Date(2023, 12, 31, 18, 45, 0, 0, time.UTC)
	day := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)

	ex.On("Extract", mock.Anything, day, 5).Return(batchOf(), nil)
	re.On("RenderStaged", mock.Anything, mock.Anything, "custom.pdf").Return(&RenderResult{OutputPath: "custom.pdf"}, nil)

	s := newTestService(tr, ex, re, ServiceConfig{RankCutoff: 5, OutputPath: "report.pdf"})
	result, err := s.Run(context.Background(), RunOptions{Date: date, OutputPath: "custom.pdf", SkipTrigger: true})

	require.NoError(t, err)
	assert.Equal(t, "2023-12-31", result.Date)
	assert.Equal(t, "custom.pdf", result.OutputPath)
	tr.AssertNotCalled(t, "Trigger", mock.Anything)
}

func TestRunWithoutTrigger(t *testing.T) {
	ex, re := new(MockExtractor), new(MockRenderer)
	ex.On("Extract", mock.Anything, batchDate, 3).Return(batchOf(), nil)
	re.On("RenderStaged", mock.Anything, mock.Anything, "report.pdf").Return(&RenderResult{OutputPath: "report.pdf"}, nil)

	s := newTestService(nil, ex, re, ServiceConfig{RankCutoff: 3, OutputPath: "report.pdf"})
	result, err := s.Run(context.Background(), RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, result.Status)
}

func TestRunExtractFailureStopsRun(t *testing.T) {
	tr, ex, re := new(MockTrigger), new(MockExtractor), new(MockRenderer)
	tr.On("Trigger", mock.Anything).Return(true, nil)
	ex.On("Extract", mock.Anything, batchDate, 3).Return(Batch{}, &DataShapeError{Column: "rank", Row: 2, Reason: "is null"})

	s := newTestService(tr, ex, re, ServiceConfig{RankCutoff: 3, OutputPath: "report.pdf"})
	result, err := s.Run(context.Background(), RunOptions{})

	assert.Equal(t, "DataShapeError", ErrorKind(err))
	assert.Equal(t, RunStatusFailed, result.Status)
	re.AssertNotCalled(t, "RenderStaged", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunRenderFailure(t *testing.T) {
	ex, re := new(MockExtractor), new(MockRenderer)
	ex.On("Extract", mock.Anything, batchDate, 3).Return(batchOf(), nil)
	re.On("RenderStaged", mock.Anything, mock.Anything, "report.pdf").
		Return(nil, &DocumentWriteError{Path: "report.pdf", Err: os.ErrPermission})

	s := newTestService(nil, ex, re, ServiceConfig{RankCutoff: 3, OutputPath: "report.pdf"})
	result, err := s.Run(context.Background(), RunOptions{})

	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Equal(t, RunStatusFailed, result.Status)
}

func TestRunWritesCompanionExports(t *testing.T) {
	ex, re := new(MockExtractor), new(MockRenderer)
	out := filepath.Join(t.TempDir(), "report.pdf")
	ex.On("Extract", mock.Anything, batchDate, 3).Return(batchOf(Record{Rank: 1, Title: "cat"}), nil)
	re.On("RenderStaged", mock.Anything, mock.Anything, out).Return(&RenderResult{OutputPath: out}, nil)

	s := newTestService(nil, ex, re, ServiceConfig{RankCutoff: 3, OutputPath: out, ExtraFormats: []string{FormatCSV, FormatXLSX}})
	result, err := s.Run(context.Background(), RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, []string{CompanionPath(out, FormatCSV), CompanionPath(out, FormatXLSX)}, result.ExtraOutputs)
	for _, p := range result.ExtraOutputs {
		assert.FileExists(t, p)
	}
}

func TestRunCompanionFailureKeepsPreviousReport(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(out, []byte("previous run"), 0o600))
	require.NoError(t, os.Mkdir(CompanionPath(out, FormatCSV), 0o755))

	ex := new(MockExtractor)
	ex.On("Extract", mock.Anything, batchDate, 3).Return(batchOf(Record{Rank: 1, Title: "cat"}), nil)
	opts := DefaultRendererOptions()
	opts.PDF.Compress = false
	renderer := NewRenderer(&stubResolver{}, opts, zap.NewNop())

	s := newTestService(nil, ex, renderer, ServiceConfig{RankCutoff: 3, OutputPath: out, ExtraFormats: []string{FormatCSV}})
	result, err := s.Run(context.Background(), RunOptions{})

	assert.Equal(t, "DocumentWriteError", ErrorKind(err))
	assert.Equal(t, RunStatusFailed, result.Status)
	assert.Empty(t, result.ExtraOutputs)

	data, readErr := os.ReadFile(out)
	require.NoError(t, readErr)
	assert.Equal(t, "previous run", string(data))

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Len(t, entries, 2)
}

func TestRunCommitsReportAndCompanionsTogether(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(out, []byte("previous run"), 0o600))

	ex := new(MockExtractor)
	ex.On("Extract", mock.Anything, batchDate, 3).Return(batchOf(Record{Rank: 1, Title: "cat"}), nil)
	renderer := NewRenderer(&stubResolver{}, DefaultRendererOptions(), zap.NewNop())

	s := newTestService(nil, ex, renderer, ServiceConfig{RankCutoff: 3, OutputPath: out, ExtraFormats: []string{FormatCSV, FormatXLSX}})
	result, err := s.Run(context.Background(), RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, result.Status)
	data, readErr := os.ReadFile(out)
	require.NoError(t, readErr)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
	assert.FileExists(t, CompanionPath(out, FormatCSV))
	assert.FileExists(t, CompanionPath(out, FormatXLSX))
}
