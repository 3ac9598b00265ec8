package jobs

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/buemura/zapscan/internal/scanner"
	"github.com/buemura/zapscan/pkg/scanerr"
	"github.com/buemura/zapscan/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRunner walks the happy path of the state machine and returns a
// result with one alert, or err when set.
type mockRunner struct {
	onTransition func(scanner.Transition)
	delay        time.Duration
	block        bool
	err          error
	panic        bool

	mu      *sync.Mutex
	active  *int
	maxSeen *int
}

func (m *mockRunner) Scan(ctx context.Context, cfg scanner.ScanConfig) (*types.ScanResult, error) {
	if m.mu != nil {
		m.mu.Lock()
		*m.active++
		if *m.active > *m.maxSeen {
			*m.maxSeen = *m.active
		}
		m.mu.Unlock()
		defer func() {
			m.mu.Lock()
			*m.active--
			m.mu.Unlock()
		}()
	}
	if m.panic {
		panic("boom")
	}
	m.onTransition(scanner.Transition{From: scanner.StateInit, To: scanner.StateContextCreated})
	if m.block {
		<-ctx.Done()
		return nil, &scanerr.ScannerError{Phase: scanner.PhaseSpider, Err: fmt.Errorf("waiting for spider: %w", ctx.Err())}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		m.onTransition(scanner.Transition{From: scanner.StateContextCreated, To: scanner.StateFailed, Err: m.err})
		return nil, m.err
	}
	m.onTransition(scanner.Transition{From: scanner.StateContextCreated, To: scanner.StateComplete})
	result := types.NewScanResult(cfg.TargetURL, time.Now())
	result.AddAlert(types.Alert{ID: "1", Name: "SQL Injection", Severity: types.SeverityHigh})
	return result, nil
}

func factory(tmpl mockRunner) RunnerFactory {
	return func(onTransition func(scanner.Transition)) Runner {
		r := tmpl
		r.onTransition = onTransition
		return &r
	}
}

func testConfig(t *testing.T) scanner.ScanConfig {
	t.Helper()
	cfg, err := scanner.NewScanConfig("https://example.com")
	require.NoError(t, err)
	return cfg
}

func waitStatus(t *testing.T, m *Manager, id string, want JobStatus) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		var err error
		job, err = m.Get(id)
		return err == nil && job.Status == want
	}, 5*time.Second, 5*time.Millisecond)
	return job
}

func TestCreate_ReturnsPendingJob(t *testing.T) {
	m := NewManager(factory(mockRunner{}))

	job := m.Create(testConfig(t))

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, "https://example.com", job.Target)
	assert.Equal(t, "init", job.State)
	assert.False(t, job.CreatedAt.IsZero())
}

func TestStartAndComplete(t *testing.T) {
	var running []int
	var mu sync.Mutex
	m := NewManager(factory(mockRunner{}), WithRunningGauge(func(n int) {
		mu.Lock()
		running = append(running, n)
		mu.Unlock()
	}))

	job := m.Create(testConfig(t))
	require.NoError(t, m.Start(job.ID))

	done := waitStatus(t, m, job.ID, StatusCompleted)
	assert.Equal(t, "complete", done.State)
	assert.Equal(t, []string{"context_created", "complete"}, done.History)
	assert.Equal(t, 1, done.AlertCount())
	require.Len(t, done.Suggestions, 1)
	assert.Equal(t, "SQL Injection", done.Suggestions[0].AlertType)
	assert.False(t, done.StartedAt.IsZero())
	assert.False(t, done.CompletedAt.IsZero())

	require.NoError(t, m.Shutdown(context.Background()))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 0}, running)
}

func TestStart_Failure(t *testing.T) {
	scanErr := &scanerr.ScannerError{Phase: scanner.PhaseActive, Err: &scanerr.TimeoutError{Phase: scanner.PhaseActive}}
	m := NewManager(factory(mockRunner{err: scanErr}))

	job := m.Create(testConfig(t))
	require.NoError(t, m.Start(job.ID))

	failed := waitStatus(t, m, job.ID, StatusFailed)
	assert.Equal(t, "timeout", failed.ErrorKind)
	assert.Equal(t, scanner.PhaseActive, failed.FailedPhase)
	assert.Contains(t, failed.Error, "active")
	assert.Empty(t, failed.Suggestions)
}

func TestStart_PanicFailsJob(t *testing.T) {
	m := NewManager(factory(mockRunner{panic: true}))
	job := m.Create(testConfig(t))
	require.NoError(t, m.Start(job.ID))

	failed := waitStatus(t, m, job.ID, StatusFailed)
	assert.Contains(t, failed.Error, "panic: boom")
}

func TestStart_Twice(t *testing.T) {
	m := NewManager(factory(mockRunner{block: true}))
	job := m.Create(testConfig(t))
	require.NoError(t, m.Start(job.ID))
	assert.Error(t, m.Start(job.ID))
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestStart_InvalidJobID(t *testing.T) {
	m := NewManager(factory(mockRunner{}))
	err := m.Start("nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancel_RunningJob(t *testing.T) {
	m := NewManager(factory(mockRunner{block: true}))
	job := m.Create(testConfig(t))
	require.NoError(t, m.Start(job.ID))
	waitStatus(t, m, job.ID, StatusRunning)

	require.NoError(t, m.Cancel(job.ID))
	cancelled := waitStatus(t, m, job.ID, StatusCancelled)
	assert.NotEmpty(t, cancelled.Error)
}

func TestCancel_PendingJob(t *testing.T) {
	m := NewManager(factory(mockRunner{block: true}))
	first := m.Create(testConfig(t))
	second := m.Create(testConfig(t))
	require.NoError(t, m.Start(first.ID))
	waitStatus(t, m, first.ID, StatusRunning)
	require.NoError(t, m.Start(second.ID))

	require.NoError(t, m.Cancel(second.ID))
	waitStatus(t, m, second.ID, StatusCancelled)

	got, err := m.Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestScansAreSerialized(t *testing.T) {
	var mu sync.Mutex
	active, maxSeen := 0, 0
	m := NewManager(factory(mockRunner{delay: 20 * time.Millisecond, mu: &mu, active: &active, maxSeen: &maxSeen}))

	var ids []string
	for i := 0; i < 3; i++ {
		job := m.Create(testConfig(t))
		require.NoError(t, m.Start(job.ID))
		ids = append(ids, job.ID)
	}
	for _, id := range ids {
		waitStatus(t, m, id, StatusCompleted)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxSeen)
}

func TestGet_ReturnsSnapshot(t *testing.T) {
	m := NewManager(factory(mockRunner{}))
	job := m.Create(testConfig(t))

	got, err := m.Get(job.ID)
	require.NoError(t, err)
	got.History = append(got.History, "mutated")

	again, err := m.Get(job.ID)
	require.NoError(t, err)
	assert.Empty(t, again.History)
}

func TestGet_NotFound(t *testing.T) {
	m := NewManager(factory(mockRunner{}))
	_, err := m.Get("nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "not found")
}

func TestList_SortedByCreatedAtDesc(t *testing.T) {
	m := NewManager(factory(mockRunner{}))

	// Override UUID generator for deterministic IDs.
	counter := 0
	origUUID := newUUID
	newUUID = func() string {
		counter++
		return fmt.Sprintf("job-%d", counter)
	}
	defer func() { newUUID = origUUID }()

	j1 := m.Create(testConfig(t))
	time.Sleep(time.Millisecond)
	j2 := m.Create(testConfig(t))

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, "job-2", list[0].ID) // most recent first
	assert.Equal(t, j2.ID, list[0].ID)
	assert.Equal(t, j1.ID, list[1].ID)
}

func TestMaxJobs_PrunesOldestFinished(t *testing.T) {
	m := NewManager(factory(mockRunner{}), WithMaxJobs(2))

	first := m.Create(testConfig(t))
	require.NoError(t, m.Start(first.ID))
	waitStatus(t, m, first.ID, StatusCompleted)

	time.Sleep(time.Millisecond)
	pending := m.Create(testConfig(t))
	time.Sleep(time.Millisecond)
	m.Create(testConfig(t))

	assert.Len(t, m.List(), 2)
	_, err := m.Get(first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get(pending.ID)
	assert.NoError(t, err, "unfinished jobs are never pruned")
}

func TestDelete_RemovesJob(t *testing.T) {
	m := NewManager(factory(mockRunner{}))
	job := m.Create(testConfig(t))

	require.NoError(t, m.Delete(job.ID))

	_, err := m.Get(job.ID)
	assert.Error(t, err)
}

func TestDelete_NotFound(t *testing.T) {
	m := NewManager(factory(mockRunner{}))
	err := m.Delete("nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrchestratorFactory(t *testing.T) {
	f := OrchestratorFactory(nil)
	r := f(func(scanner.Transition) {})
	assert.IsType(t, &scanner.Orchestrator{}, r)
}
