// Package metrics provides interfaces for metrics collection and monitoring.
package metrics

import "time"

// Recorder is what the scanning code reports to. It is satisfied by
// PrometheusMetrics and by Noop, which tests use when they don't care.
type Recorder interface {
	// ObserveProbe records one completed probe and how long it took.
	ObserveProbe(open bool, duration time.Duration)

	// SetInFlight reports the number of probes currently running.
	SetInFlight(count int)

	// ObserveHostScan records a finished host scan.
	ObserveHostScan(status string, duration time.Duration)

	// IncrementTargetsSkipped counts a target that could not be expanded.
	IncrementTargetsSkipped(reason string)

	// IncrementJobs counts a worker pool job by type and status.
	IncrementJobs(jobType, status string)
}

// Noop discards everything.
type Noop struct{}

func (Noop) ObserveProbe(bool, time.Duration) {}
func (Noop) SetInFlight(int) {}
func (Noop) ObserveHostScan(string, time.Duration) {}
func (Noop) IncrementTargetsSkipped(string) {}
func (Noop) IncrementJobs(string, string) {}

// Ensure that both implementations satisfy Recorder.
var (
	_ Recorder = (*PrometheusMetrics)(nil)
	_ Recorder = Noop{}
)

// OrNoop returns r, or Noop when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return Noop{}
	}
	return r
}
