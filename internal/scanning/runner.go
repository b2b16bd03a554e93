package scanning

//go:generate mockgen -destination=mocks/mock_runner.go -package=mocks github.com/anstrom/portprowler/internal/scanning Expander,Presenter

import (
	"context"
	"net/netip"
	"time"

	"github.com/google/uuid"

	"github.com/anstrom/portprowler/internal/errors"
	"github.com/anstrom/portprowler/internal/logging"
	"github.com/anstrom/portprowler/internal/metrics"
	"github.com/anstrom/portprowler/internal/workers"
)

const (
	jobTypeHostScan = "host_scan"

	hostStatusCompleted = "completed"
	hostStatusFailed    = "failed"
	hostStatusCanceled  = "canceled"
)

// Expander turns a target argument (IP, CIDR block or hostname) into the
// addresses to scan.
type Expander interface {
	Expand(ctx context.Context, target string) ([]netip.Addr, error)
}

// Presenter is everything the runner shows to the user.
type Presenter interface {
	DisplayScanStart(summary ScanSummary)
	ReportProgress(p Progress)
	DisplayResults(results *ScanResultSet)
	DisplayError(err error)
}

// ScanSummary describes a host scan that is about to start.
type ScanSummary struct {
	Target      netip.Addr
	Range       PortRange
	Probes      int
	Timeout     time.Duration
	Concurrency int
	Started     time.Time
}

// Plan is the part of a scan shared by every host.
type Plan struct {
	// Range is probed in full unless Ports is set.
	Range PortRange
	// Ports, when non-empty, replaces Range with an explicit port list.
	Ports []uint16
	// Keep filters the open ports reported per host. Nil keeps all.
	Keep        func(port uint16) bool
	Timeout     time.Duration
	Concurrency int
}

// Validate checks the plan without scanning anything.
func (p Plan) Validate() error {
	_, err := p.request(netip.IPv4Unspecified())
	return err
}

func (p Plan) request(host netip.Addr) (ScanRequest, error) {
	if len(p.Ports) > 0 {
		return NewScanRequestForPorts(host, p.Ports, p.Timeout, p.Concurrency)
	}
	return NewScanRequest(host, p.Range, p.Timeout, p.Concurrency)
}

// Runner scans a list of targets and aggregates the results.
type Runner struct {
	engine    *Engine
	expander  Expander
	presenter Presenter
	logger    *logging.Logger
	metrics   metrics.Recorder

	// ParallelHosts is the number of hosts scanned at once. Values below
	// one mean one.
	ParallelHosts int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the runner logger.
func WithRunnerLogger(logger *logging.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRunnerMetrics sets the metrics recorder used for hosts, targets and jobs.
func WithRunnerMetrics(recorder metrics.Recorder) RunnerOption {
	return func(r *Runner) {
		r.metrics = metrics.OrNoop(recorder)
	}
}

// WithParallelHosts sets how many hosts are scanned at once.
func WithParallelHosts(n int) RunnerOption {
	return func(r *Runner) {
		r.ParallelHosts = n
	}
}

// NewRunner creates a runner.
func NewRunner(engine *Engine, expander Expander, presenter Presenter, opts ...RunnerOption) *Runner {
	r := &Runner{
		engine:        engine,
		expander:      expander,
		presenter:     presenter,
		logger:        logging.Default(),
		metrics:       metrics.Noop{},
		ParallelHosts: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("runner")
	return r
}

// Run expands targets in order, scans every resulting host and returns the
// open ports per host in resolution order.
//
// Targets that cannot be expanded are reported through the presenter and
// skipped. An invalid plan is rejected before anything is expanded. A
// cancelled ctx aborts the run with a CANCELED error.
func (r *Runner) Run(ctx context.Context, targets []string, plan Plan) (*ScanResultSet, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := r.logger.WithRunID(runID)
	logger.Info("Starting scan run", "targets", len(targets), "parallel_hosts", r.parallelHosts())

	hosts, err := r.expand(ctx, logger, targets)
	if err != nil {
		return nil, err
	}

	results, err := r.scanHosts(ctx, logger, hosts, plan)
	if err != nil {
		return nil, err
	}

	set := NewScanResultSet()
	for _, res := range results {
		if res != nil {
			set.Add(*res)
		}
	}

	logger.Info("Scan run completed",
		"hosts", set.Len(),
		"open_ports", set.OpenPortCount())
	return set, nil
}

func (r *Runner) parallelHosts() int {
	if r.ParallelHosts < 1 {
		return 1
	}
	return r.ParallelHosts
}

// expand resolves every target, dropping repeated addresses.
func (r *Runner) expand(ctx context.Context, logger *logging.Logger, targets []string) ([]netip.Addr, error) {
	var hosts []netip.Addr
	seen := make(map[netip.Addr]bool)

	for _, target := range targets {
		addrs, err := r.expander.Expand(ctx, target)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.WrapScanErrorWithTarget(errors.CodeCanceled, "scan aborted", target, ctx.Err())
			}
			if errors.IsFatal(err) {
				return nil, err
			}
			code := errors.GetCode(err)
			if !errors.IsSkippable(err) {
				code = errors.CodeTargetInvalid
				err = errors.NewTargetError(code, "Target could not be expanded", target, err)
			}
			logger.Warn("Skipping target", "target", target, "reason", code, "error", err)
			r.metrics.IncrementTargetsSkipped(string(code))
			r.presenter.DisplayError(err)
			continue
		}

		for _, addr := range addrs {
			if seen[addr] {
				continue
			}
			seen[addr] = true
			hosts = append(hosts, addr)
		}
	}
	return hosts, nil
}

// scanHosts runs one pool job per host. The returned slice is indexed like
// hosts.
func (r *Runner) scanHosts(ctx context.Context, logger *logging.Logger, hosts []netip.Addr, plan Plan) ([]*TargetResult, error) {
	results := make([]*TargetResult, len(hosts))
	if len(hosts) == 0 {
		return results, nil
	}

	poolConfig := workers.DefaultConfig()
	poolConfig.Size = r.parallelHosts()
	poolConfig.QueueSize = len(hosts)
	pool := workers.New(poolConfig, r.metrics)
	pool.Start(ctx)

	go func() {
		defer pool.Shutdown()
		for i, host := range hosts {
			job := workers.NewFuncJob(uuid.NewString(), jobTypeHostScan, func(ctx context.Context) error {
				res, err := r.scanHost(ctx, logger, host, plan)
				if err != nil {
					return err
				}
				results[i] = &res
				return nil
			})
			if err := pool.Submit(ctx, job); err != nil {
				return
			}
		}
	}()

	var firstErr error
	for res := range pool.Results() {
		if res.Error != nil && firstErr == nil {
			firstErr = res.Error
		}
	}

	if ctx.Err() != nil {
		return nil, errors.WrapScanErrorWithTarget(errors.CodeCanceled, "scan aborted", "", ctx.Err())
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

func (r *Runner) scanHost(ctx context.Context, logger *logging.Logger, host netip.Addr, plan Plan) (TargetResult, error) {
	logger = logger.WithTarget(host.String())

	req, err := plan.request(host)
	if err != nil {
		return TargetResult{}, err
	}

	start := time.Now()
	r.presenter.DisplayScanStart(ScanSummary{
		Target:      host,
		Range:       req.Range(),
		Probes:      req.Total(),
		Timeout:     req.Timeout(),
		Concurrency: req.Concurrency(),
		Started:     start,
	})

	outcomes, err := r.engine.Scan(ctx, req, r.presenter.ReportProgress)
	if err != nil {
		status := hostStatusFailed
		if errors.IsCode(err, errors.CodeCanceled) {
			status = hostStatusCanceled
		}
		r.metrics.ObserveHostScan(status, time.Since(start))
		return TargetResult{}, err
	}
	r.metrics.ObserveHostScan(hostStatusCompleted, time.Since(start))

	result := NewTargetResult(host, outcomes, plan.Keep)
	logger.Debug("Host scan finished",
		"open_ports", len(result.OpenPorts),
		"duration", time.Since(start))
	return result, nil
}
