package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/portprowler/internal/metrics"
)

// MockJob implements the Job interface for testing
type MockJob struct {
	id       string
	jobType  string
	duration time.Duration
	err      error
	executed int32
	onRun    func()
}

func NewMockJob(id, jobType string, duration time.Duration, err error) *MockJob {
	return &MockJob{
		id:       id,
		jobType:  jobType,
		duration: duration,
		err:      err,
	}
}

func (m *MockJob) Execute(ctx context.Context) error {
	atomic.AddInt32(&m.executed, 1)
	if m.onRun != nil {
		m.onRun()
	}
	if m.duration > 0 {
		select {
		case <-time.After(m.duration):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.err
}

func (m *MockJob) ID() string {
	return m.id
}

func (m *MockJob) Type() string {
	return m.jobType
}

func (m *MockJob) ExecutedCount() int32 {
	return atomic.LoadInt32(&m.executed)
}

// runAll submits jobs from a separate goroutine and drains results, the way
// the scan runner uses the pool.
func runAll(t *testing.T, pool *Pool, ctx context.Context, jobs []Job) []Result {
	t.Helper()

	pool.Start(ctx)
	go func() {
		defer pool.Shutdown()
		for _, job := range jobs {
			if err := pool.Submit(ctx, job); err != nil {
				return
			}
		}
	}()

	var results []Result
	for r := range pool.Results() {
		results = append(results, r)
	}
	return results
}

func TestNewPool(t *testing.T) {
	t.Run("creates pool with valid configuration", func(t *testing.T) {
		pool := New(Config{Size: 3, QueueSize: 10}, nil)
		require.NotNil(t, pool)
		assert.Equal(t, 3, pool.config.Size)
		assert.Equal(t, 10, pool.config.QueueSize)
	})

	t.Run("normalizes invalid sizes", func(t *testing.T) {
		pool := New(Config{Size: 0, QueueSize: -1}, nil)
		assert.Equal(t, 1, pool.config.Size)
		assert.Equal(t, 0, pool.config.QueueSize)
	})

	t.Run("default config is sequential", func(t *testing.T) {
		assert.Equal(t, 1, DefaultConfig().Size)
	})
}

func TestPool_RunsEveryJob(t *testing.T) {
	pool := New(Config{Size: 4, QueueSize: 2}, nil)

	jobs := make([]Job, 0, 20)
	mocks := make([]*MockJob, 0, 20)
	for i := 0; i < 20; i++ {
		m := NewMockJob(fmt.Sprintf("job-%d", i), "test", time.Millisecond, nil)
		mocks = append(mocks, m)
		jobs = append(jobs, m)
	}

	results := runAll(t, pool, context.Background(), jobs)

	require.Len(t, results, 20)
	for _, m := range mocks {
		assert.Equal(t, int32(1), m.ExecutedCount(), "job %s", m.id)
	}
	for _, r := range results {
		assert.NoError(t, r.Error)
		assert.Equal(t, "test", r.JobType)
	}
}

func TestPool_SizeOneIsSequential(t *testing.T) {
	pool := New(Config{Size: 1}, nil)

	var (
		mu    sync.Mutex
		order []string
	)
	jobs := make([]Job, 0, 5)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("job-%d", i)
		m := NewMockJob(id, "test", 0, nil)
		m.onRun = func() {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
		}
		jobs = append(jobs, m)
	}

	runAll(t, pool, context.Background(), jobs)

	assert.Equal(t, []string{"job-0", "job-1", "job-2", "job-3", "job-4"}, order)
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const size = 3
	pool := New(Config{Size: size}, nil)

	var current, peak int32
	jobs := make([]Job, 0, 12)
	for i := 0; i < 12; i++ {
		jobs = append(jobs, NewFuncJob(fmt.Sprintf("job-%d", i), "test", func(ctx context.Context) error {
			n := atomic.AddInt32(&current, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return nil
		}))
	}

	runAll(t, pool, context.Background(), jobs)

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(size))
}

func TestPool_ReportsErrorsAndMetrics(t *testing.T) {
	pm := metrics.NewPrometheusMetrics()
	pool := New(Config{Size: 2}, pm)

	boom := errors.New("boom")
	jobs := []Job{
		NewMockJob("ok", "host_scan", 0, nil),
		NewMockJob("bad", "host_scan", 0, boom),
	}

	results := runAll(t, pool, context.Background(), jobs)
	require.Len(t, results, 2)

	byID := map[string]Result{}
	for _, r := range results {
		byID[r.JobID] = r
	}
	assert.NoError(t, byID["ok"].Error)
	assert.ErrorIs(t, byID["bad"].Error, boom)

	series, err := testutil.GatherAndCount(pm.GetRegistry(), "portprowler_worker_jobs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series)
}

func TestPool_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := New(Config{Size: 1, QueueSize: 4}, nil)
	pool.Start(ctx)

	job := NewMockJob("late", "test", 0, nil)
	// The queue has room, so Submit may win the race against ctx.Done.
	_ = pool.Submit(context.Background(), job)
	pool.Shutdown()

	for r := range pool.Results() {
		assert.ErrorIs(t, r.Error, context.Canceled)
	}
	assert.Equal(t, int32(0), job.ExecutedCount())
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool := New(Config{Size: 1}, nil)
	pool.Start(context.Background())
	pool.Shutdown()
	pool.Shutdown()

	err := pool.Submit(context.Background(), NewMockJob("x", "test", 0, nil))
	assert.Error(t, err)
}

func TestFuncJob(t *testing.T) {
	called := false
	job := NewFuncJob("id-1", "host_scan", func(ctx context.Context) error {
		called = true
		return nil
	})

	assert.Equal(t, "id-1", job.ID())
	assert.Equal(t, "host_scan", job.Type())
	require.NoError(t, job.Execute(context.Background()))
	assert.True(t, called)
}
