package reports

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRunService returns canned results and can block until released
type fakeRunService struct {
	mu      sync.Mutex
	opts    []RunOptions
	result  *RunResult
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeRunService) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	f.mu.Lock()
	f.opts = append(f.opts, opts)
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

func completedResult() *RunResult {
	return &RunResult{RunID: uuid.New(), Status: RunStatusCompleted, Date: "2024-05-01", RecordCount: 3}
}

func setupRouter(runner *Runner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(runner, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestRunnerRejectsConcurrentRun(t *testing.T) {
	svc := &fakeRunService{result: completedResult(), started: make(chan struct{}), release: make(chan struct{})}
	runner := NewRunner(svc)

	done := make(chan error, 1)
	go func() {
		_, err := runner.Run(context.Background(), RunOptions{})
		done <- err
	}()
	<-svc.started
	assert.True(t, runner.Running())

	_, err := runner.Run(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(svc.release)
	require.NoError(t, <-done)
	assert.False(t, runner.Running())
	assert.Equal(t, svc.result, runner.Last())
}

func TestRunnerKeepsFailedResult(t *testing.T) {
	failed := &RunResult{Status: RunStatusFailed, Error: "boom"}
	runner := NewRunner(&fakeRunService{result: failed, err: errors.New("boom")})

	_, err := runner.Run(context.Background(), RunOptions{})

	assert.Error(t, err)
	assert.Equal(t, failed, runner.Last())
}

func TestRunReportEndpoint(t *testing.T) {
	svc := &fakeRunService{result: completedResult()}
	router := setupRouter(NewRunner(svc))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/run",
		strings.NewReader(`{"date":"2024-04-30","skip_trigger":true}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body RunResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, RunStatusCompleted, body.Status)
	assert.Equal(t, 3, body.RecordCount)

	require.Len(t, svc.opts, 1)
	assert.True(t, svc.opts[0].SkipTrigger)
	assert.Equal(t, "2024-04-30", svc.opts[0].Date.Format(time.DateOnly))
}

func TestRunReportEndpointWithoutBody(t *testing.T) {
	svc := &fakeRunService{result: completedResult()}
	router := setupRouter(NewRunner(svc))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/reports/run", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.opts, 1)
	assert.True(t, svc.opts[0].Date.IsZero())
}

func TestRunReportEndpointBadDate(t *testing.T) {
	svc := &fakeRunService{result: completedResult()}
	router := setupRouter(NewRunner(svc))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/run", strings.NewReader(`{"date":"yesterday"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.opts)
}

func TestRunReportEndpointFailure(t *testing.T) {
	svc := &fakeRunService{
		result: &RunResult{Status: RunStatusFailed},
		err:    &DataAccessError{Op: "connect", Err: errors.New("refused")},
	}
	router := setupRouter(NewRunner(svc))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/reports/run", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "DataAccessError", body["kind"])
}

func TestRunReportEndpointConflict(t *testing.T) {
	svc := &fakeRunService{result: completedResult(), started: make(chan struct{}), release: make(chan struct{})}
	runner := NewRunner(svc)
	router := setupRouter(runner)

	go runner.Run(context.Background(), RunOptions{})
	<-svc.started
	defer close(svc.release)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/reports/run", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLastRunEndpoint(t *testing.T) {
	svc := &fakeRunService{result: completedResult()}
	runner := NewRunner(svc)
	router := setupRouter(runner)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/reports/last", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, err := runner.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/reports/last", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body RunResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, svc.result.RunID, body.RunID)
}
