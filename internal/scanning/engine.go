package scanning

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anstrom/portprowler/internal/errors"
	"github.com/anstrom/portprowler/internal/logging"
	"github.com/anstrom/portprowler/internal/metrics"
)

// Engine fans a port list out over a bounded set of concurrent probes.
type Engine struct {
	prober  Prober
	logger  *logging.Logger
	metrics metrics.Recorder

	// newLimiter is replaceable so tests can observe the limiter.
	newLimiter func(capacity int) ResourceManager
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *logging.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder metrics.Recorder) EngineOption {
	return func(e *Engine) {
		e.metrics = metrics.OrNoop(recorder)
	}
}

// NewEngine creates an engine that probes with prober.
func NewEngine(prober Prober, opts ...EngineOption) *Engine {
	e := &Engine{
		prober:  prober,
		logger:  logging.Default(),
		metrics: metrics.Noop{},
		newLimiter: func(capacity int) ResourceManager {
			return NewFixedResourceManager(capacity)
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithComponent("engine")
	return e
}

// Scan probes every port of req and returns one outcome per port, sorted
// ascending. At most req.Concurrency() probes are in flight at any time.
// progress, if non-nil, is called once per completed probe.
//
// If ctx is cancelled the engine stops scheduling, waits for the probes
// already running and returns a CANCELED scan error without results.
func (e *Engine) Scan(ctx context.Context, req ScanRequest, progress ProgressFunc) ([]PortOutcome, error) {
	target := req.Target()
	ports := req.Ports()
	total := len(ports)
	start := time.Now()

	e.logger.InfoScan("Starting port scan", target.String(),
		"ports", req.Range().String(),
		"probes", total,
		"timeout", req.Timeout(),
		"concurrency", req.Concurrency())

	limiter := e.newLimiter(req.Concurrency())

	var (
		mu        sync.Mutex
		outcomes  = make([]PortOutcome, 0, total)
		completed atomic.Int64
		wg        sync.WaitGroup
		schedErr  error
	)

	for _, port := range ports {
		if err := limiter.Acquire(ctx); err != nil {
			schedErr = err
			break
		}
		e.metrics.SetInFlight(limiter.Active())

		wg.Add(1)
		go func(port uint16) {
			defer wg.Done()

			probeStart := time.Now()
			outcome := e.prober.Probe(ctx, target, port, req.Timeout())
			if !outcome.Open {
				outcome.Service = ""
			}
			e.metrics.ObserveProbe(outcome.Open, time.Since(probeStart))

			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()

			// Progress runs outside the slot.
			limiter.Release()

			done := completed.Add(1)
			if progress != nil {
				progress(Progress{
					Target:    target,
					Port:      port,
					Open:      outcome.Open,
					Completed: int(done),
					Total:     total,
				})
			}
		}(port)
	}

	wg.Wait()
	e.metrics.SetInFlight(0)

	if schedErr == nil {
		schedErr = ctx.Err()
	}
	if schedErr != nil {
		e.logger.ErrorScan("Port scan aborted", target.String(), schedErr,
			"completed", completed.Load(),
			"probes", total)
		return nil, errors.WrapScanErrorWithTarget(errors.CodeCanceled, "scan aborted", target.String(), schedErr)
	}

	slices.SortFunc(outcomes, comparePorts)

	open := 0
	for _, o := range outcomes {
		if o.Open {
			open++
		}
	}
	e.logger.InfoScan("Port scan completed", target.String(),
		"probes", len(outcomes),
		"open", open,
		"duration", time.Since(start),
		"peak_in_flight", limiter.Peak())

	return outcomes, nil
}
