package reports

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("report run already in progress")

// RunService executes a single report run
type RunService interface {
	Run(ctx context.Context, opts RunOptions) (*RunResult, error)
}

// Runner serialises runs coming from the schedule and the HTTP API and keeps
// the most recent result.
type Runner struct {
	service RunService
	running atomic.Bool

	mu   sync.RWMutex
	last *RunResult
}

// NewRunner creates a new runner
func NewRunner(service RunService) *Runner {
	return &Runner{service: service}
}

// Run starts a run unless one is already active, in which case it returns
// ErrRunInProgress without waiting.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer r.running.Store(false)

	result, err := r.service.Run(ctx, opts)
	if result != nil {
		r.mu.Lock()
		r.last = result
		r.mu.Unlock()
	}
	return result, err
}

// Running reports whether a run is active
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Last returns the result of the most recent run, or nil.
func (r *Runner) Last() *RunResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}
