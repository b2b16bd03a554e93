// Package workers provides a worker pool for running independent jobs with a
// fixed number of goroutines. portprowler uses it to scan hosts; with a size
// of one the jobs run strictly in submission order.
package workers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anstrom/portprowler/internal/logging"
	"github.com/anstrom/portprowler/internal/metrics"
)

// Job represents a unit of work to be executed by a worker.
type Job interface {
	// Execute performs the job and returns an error if it fails.
	Execute(ctx context.Context) error
	// ID returns a unique identifier for the job.
	ID() string
	// Type returns the job type for metrics and logging.
	Type() string
}

// Result represents the result of executing a job.
type Result struct {
	JobID    string
	JobType  string
	Error    error
	Duration time.Duration
	Worker   int
}

// Config holds configuration for the worker pool.
type Config struct {
	// Size is the number of worker goroutines to create.
	Size int
	// QueueSize is the maximum number of jobs that can be queued.
	QueueSize int
}

// DefaultConfig returns a default worker pool configuration.
func DefaultConfig() Config {
	return Config{
		Size:      1,
		QueueSize: 64,
	}
}

// Pool manages a pool of worker goroutines for concurrent job execution.
type Pool struct {
	config   Config
	jobs     chan Job
	results  chan Result
	wg       sync.WaitGroup
	ctx      context.Context
	logger   *logging.Logger
	metrics  metrics.Recorder
	started  sync.Once
	closed   atomic.Bool
	shutdown sync.Once
}

// New creates a new worker pool with the given configuration.
func New(config Config, recorder metrics.Recorder) *Pool {
	if config.Size <= 0 {
		config.Size = 1
	}
	if config.QueueSize < 0 {
		config.QueueSize = 0
	}

	return &Pool{
		config:  config,
		jobs:    make(chan Job, config.QueueSize),
		results: make(chan Result, config.QueueSize),
		logger:  logging.Default().WithComponent("workers"),
		metrics: metrics.OrNoop(recorder),
	}
}

// Start launches the workers. Jobs run with ctx; cancelling it makes idle
// workers exit and is passed through to running jobs.
func (p *Pool) Start(ctx context.Context) {
	p.started.Do(func() {
		p.ctx = ctx
		p.logger.Debug("Starting worker pool",
			"worker_count", p.config.Size,
			"queue_size", p.config.QueueSize)

		for i := 0; i < p.config.Size; i++ {
			p.wg.Add(1)
			go p.run(i)
		}
	})
}

// Submit queues a job, blocking while the queue is full. It must not be
// called concurrently with Shutdown.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	if p.closed.Load() {
		return fmt.Errorf("worker pool is shut down")
	}

	select {
	case p.jobs <- job:
		p.logger.Debug("Job submitted to worker pool",
			"job_id", job.ID(),
			"job_type", job.Type())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results returns the channel of job results. It is closed by Shutdown once
// every worker has exited, so callers must drain it.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Shutdown stops accepting jobs, waits for queued jobs to finish and closes
// the results channel. Must be called after Start; it is safe to call twice.
func (p *Pool) Shutdown() {
	p.shutdown.Do(func() {
		p.closed.Store(true)
		close(p.jobs)
		p.wg.Wait()
		close(p.results)
		p.logger.Debug("Worker pool shutdown completed")
	})
}

// run executes the worker loop.
func (p *Pool) run(id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		if p.ctx.Err() != nil {
			p.results <- Result{JobID: job.ID(), JobType: job.Type(), Error: p.ctx.Err(), Worker: id}
			p.metrics.IncrementJobs(job.Type(), "canceled")
			continue
		}
		p.execute(id, job)
	}
}

// execute runs a single job. Jobs are not retried.
func (p *Pool) execute(id int, job Job) {
	start := time.Now()
	err := job.Execute(p.ctx)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		p.logger.Warn("Job failed",
			"job_id", job.ID(),
			"job_type", job.Type(),
			"worker_id", id,
			"error", err)
	} else {
		p.logger.Debug("Job completed successfully",
			"job_id", job.ID(),
			"job_type", job.Type(),
			"duration", duration,
			"worker_id", id)
	}
	p.metrics.IncrementJobs(job.Type(), status)

	p.results <- Result{
		JobID:    job.ID(),
		JobType:  job.Type(),
		Error:    err,
		Duration: duration,
		Worker:   id,
	}
}

// FuncJob adapts a function to the Job interface.
type FuncJob struct {
	id      string
	jobType string
	fn      func(ctx context.Context) error
}

// NewFuncJob creates a job that runs fn.
func NewFuncJob(id, jobType string, fn func(ctx context.Context) error) *FuncJob {
	return &FuncJob{id: id, jobType: jobType, fn: fn}
}

// Execute implements the Job interface.
func (j *FuncJob) Execute(ctx context.Context) error {
	return j.fn(ctx)
}

// ID implements the Job interface.
func (j *FuncJob) ID() string {
	return j.id
}

// Type implements the Job interface.
func (j *FuncJob) Type() string {
	return j.jobType
}
