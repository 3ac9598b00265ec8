// Package jobs runs scans in the background for the web API.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/buemura/zapscan/internal/remediation"
	"github.com/buemura/zapscan/internal/scanner"
	"github.com/buemura/zapscan/pkg/scanerr"
	"github.com/buemura/zapscan/pkg/types"
	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown job IDs.
var ErrNotFound = errors.New("job not found")

// newUUID generates job IDs. Extracted as a variable for testing.
var newUUID = uuid.NewString

// Runner executes one scan.
type Runner interface {
	Scan(ctx context.Context, cfg scanner.ScanConfig) (*types.ScanResult, error)
}

// RunnerFactory builds the runner for one job. onTransition must be
// called for every state change of the scan.
type RunnerFactory func(onTransition func(scanner.Transition)) Runner

// OrchestratorFactory returns a RunnerFactory that builds an orchestrator
// per job on top of engine.
func OrchestratorFactory(engine scanner.Engine, opts ...scanner.Option) RunnerFactory {
	return func(onTransition func(scanner.Transition)) Runner {
		all := append(append([]scanner.Option(nil), opts...), scanner.OnTransition(onTransition))
		return scanner.New(engine, all...)
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMapper sets the mapper used to derive suggestions for finished scans.
func WithMapper(mapper *remediation.Mapper) Option {
	return func(m *Manager) { m.mapper = mapper }
}

// WithConcurrency sets how many scans may run at once. Scans share the
// engine's global state, so the default is one.
func WithConcurrency(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.sem = make(chan struct{}, n)
		}
	}
}

// WithMaxJobs bounds the number of retained jobs; the oldest finished jobs
// are dropped first. Zero keeps everything.
func WithMaxJobs(n int) Option {
	return func(m *Manager) { m.maxJobs = n }
}

// WithRunningGauge registers a callback receiving the number of running jobs.
func WithRunningGauge(fn func(int)) Option {
	return func(m *Manager) { m.gauge = fn }
}

// Manager manages scan job lifecycle: create, execute, track, store results.
type Manager struct {
	mu      sync.RWMutex
	jobs    map[string]*Job
	cancels map[string]context.CancelFunc
	running int

	newRunner RunnerFactory
	mapper    *remediation.Mapper
	logger    *slog.Logger
	sem       chan struct{}
	maxJobs   int
	gauge     func(int)

	wg sync.WaitGroup
}

// NewManager creates a job manager that runs scans built by newRunner.
func NewManager(newRunner RunnerFactory, opts ...Option) *Manager {
	m := &Manager{
		jobs:      make(map[string]*Job),
		cancels:   make(map[string]context.CancelFunc),
		newRunner: newRunner,
		logger:    slog.Default(),
		sem:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.mapper == nil {
		m.mapper = remediation.NewMapper(nil, remediation.WithLogger(m.logger))
	}
	return m
}

// Create creates a new pending scan job for a validated config.
func (m *Manager) Create(cfg scanner.ScanConfig) Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &Job{
		ID:        newUUID(),
		Target:    cfg.TargetURL,
		Config:    cfg,
		Status:    StatusPending,
		State:     scanner.StateInit.String(),
		CreatedAt: time.Now(),
	}
	m.jobs[job.ID] = job
	m.prune()
	return job.snapshot()
}

// Start launches the scan job in a background goroutine. The job stays
// pending until a scan slot is free.
func (m *Manager) Start(jobID string) error {
	m.mu.Lock()
	job, ok := m.jobs[jobID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("job %q: %w", jobID, ErrNotFound)
	}
	if _, started := m.cancels[jobID]; started || job.Status != StatusPending {
		m.mu.Unlock()
		return fmt.Errorf("job %q already started", jobID)
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancels[jobID] = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go m.execute(ctx, job)
	return nil
}

func (m *Manager) execute(ctx context.Context, job *Job) {
	defer m.wg.Done()
	defer m.release(job.ID)

	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	case <-ctx.Done():
		m.finish(job, nil, ctx.Err())
		return
	}

	m.mu.Lock()
	job.Status = StatusRunning
	job.StartedAt = time.Now()
	m.running++
	m.reportRunning()
	cfg := job.Config
	m.mu.Unlock()

	m.logger.Info("scan job started", "job", job.ID, "target", cfg.TargetURL)
	result, err := m.run(ctx, job, cfg)

	m.mu.Lock()
	m.running--
	m.reportRunning()
	m.mu.Unlock()
	m.finish(job, result, err)
}

func (m *Manager) run(ctx context.Context, job *Job, cfg scanner.ScanConfig) (result *types.ScanResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	runner := m.newRunner(func(t scanner.Transition) {
		m.mu.Lock()
		job.State = t.To.String()
		job.History = append(job.History, t.To.String())
		m.mu.Unlock()
	})
	return runner.Scan(ctx, cfg)
}

func (m *Manager) finish(job *Job, result *types.ScanResult, err error) {
	var suggestions []remediation.Suggestion
	if err == nil && result != nil {
		suggestions = m.mapper.Generate(result)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	job.CompletedAt = time.Now()
	job.Result = result
	switch {
	case err == nil:
		job.Status = StatusCompleted
		job.Suggestions = suggestions
	case errors.Is(err, context.Canceled):
		job.Status = StatusCancelled
		job.Error = err.Error()
	default:
		job.Status = StatusFailed
		job.Error = err.Error()
		job.ErrorKind = scanerr.Kind(err)
		var se *scanerr.ScannerError
		if errors.As(err, &se) {
			job.FailedPhase = se.Phase
		}
	}
	m.logger.Info("scan job finished", "job", job.ID, "status", job.Status, "alerts", job.AlertCount())
}

func (m *Manager) release(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cancel, ok := m.cancels[jobID]; ok {
		cancel()
		delete(m.cancels, jobID)
	}
}

// reportRunning must be called with m.mu held.
func (m *Manager) reportRunning() {
	if m.gauge != nil {
		m.gauge(m.running)
	}
}

// prune must be called with m.mu held.
func (m *Manager) prune() {
	if m.maxJobs <= 0 || len(m.jobs) <= m.maxJobs {
		return
	}
	finished := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if j.Status.Finished() {
			finished = append(finished, j)
		}
	}
	sort.Slice(finished, func(i, k int) bool {
		return finished[i].CreatedAt.Before(finished[k].CreatedAt)
	})
	for _, j := range finished {
		if len(m.jobs) <= m.maxJobs {
			return
		}
		delete(m.jobs, j.ID)
	}
}

// Get returns a snapshot of a job by ID.
func (m *Manager) Get(jobID string) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return Job{}, fmt.Errorf("job %q: %w", jobID, ErrNotFound)
	}
	return job.snapshot(), nil
}

// List returns snapshots of all jobs sorted by CreatedAt descending.
func (m *Manager) List() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		result = append(result, j.snapshot())
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.After(result[k].CreatedAt)
	})
	return result
}

// Cancel stops a pending or running job. The scan unwinds in the
// background and the job ends up cancelled.
func (m *Manager) Cancel(jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[jobID]; !ok {
		return fmt.Errorf("job %q: %w", jobID, ErrNotFound)
	}
	if cancel, ok := m.cancels[jobID]; ok {
		cancel()
	}
	return nil
}

// Delete cancels a job if it is still active and removes it from the manager.
func (m *Manager) Delete(jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[jobID]; !ok {
		return fmt.Errorf("job %q: %w", jobID, ErrNotFound)
	}
	if cancel, ok := m.cancels[jobID]; ok {
		cancel()
	}
	delete(m.jobs, jobID)
	return nil
}

// Shutdown cancels every active job and waits for their scans to unwind
// or for ctx to end.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	for _, cancel := range m.cancels {
		cancel()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
