// Package metrics provides Prometheus-based metrics collection for portprowler.
// A CLI run has no scrape endpoint, so the registry is written out in the
// node_exporter textfile format when the run finishes.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// Namespace for all portprowler metrics
	namespace = "portprowler"

	// Subsystems
	subsystemProbe  = "probe"
	subsystemHost   = "host"
	subsystemTarget = "targets"
	subsystemWorker = "worker"
)

// Probe states used as label values.
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// PrometheusMetrics holds all Prometheus metric collectors
type PrometheusMetrics struct {
	// Probe metrics
	probesTotal   *prometheus.CounterVec
	probeDuration prometheus.Histogram
	inFlight      prometheus.Gauge

	// Host metrics
	hostScans    *prometheus.CounterVec
	hostDuration prometheus.Histogram

	// Target metrics
	targetsSkipped *prometheus.CounterVec

	// Worker metrics
	jobsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance with all collectors
func NewPrometheusMetrics() *PrometheusMetrics {
	pm := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
	}

	pm.initProbeMetrics()
	pm.initHostMetrics()

	pm.targetsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemTarget,
			Name:      "skipped_total",
			Help:      "Targets that could not be expanded into addresses, by reason",
		},
		[]string{"reason"},
	)

	pm.jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemWorker,
			Name:      "jobs_total",
			Help:      "Worker pool jobs completed by type and status",
		},
		[]string{"job_type", "status"},
	)

	pm.registerMetrics()

	return pm
}

// initProbeMetrics initializes probe-related metrics
func (pm *PrometheusMetrics) initProbeMetrics() {
	pm.probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "total",
			Help:      "Total number of TCP connect probes by resulting state",
		},
		[]string{"state"},
	)

	pm.probeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "duration_seconds",
			Help:      "Duration of individual TCP connect probes in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
	)

	pm.inFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "in_flight",
			Help:      "Number of probes currently in flight",
		},
	)
}

// initHostMetrics initializes host-scan metrics
func (pm *PrometheusMetrics) initHostMetrics() {
	pm.hostScans = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemHost,
			Name:      "scans_total",
			Help:      "Host scans by status",
		},
		[]string{"status"},
	)

	pm.hostDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemHost,
			Name:      "scan_duration_seconds",
			Help:      "Wall time spent scanning a single host",
			Buckets:   []float64{0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 300.0},
		},
	)
}

// registerMetrics registers all metrics with the Prometheus registry
func (pm *PrometheusMetrics) registerMetrics() {
	pm.registry.MustRegister(pm.probesTotal)
	pm.registry.MustRegister(pm.probeDuration)
	pm.registry.MustRegister(pm.inFlight)
	pm.registry.MustRegister(pm.hostScans)
	pm.registry.MustRegister(pm.hostDuration)
	pm.registry.MustRegister(pm.targetsSkipped)
	pm.registry.MustRegister(pm.jobsTotal)
}

// GetRegistry returns the Prometheus registry
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

// ObserveProbe records a completed probe
func (pm *PrometheusMetrics) ObserveProbe(open bool, duration time.Duration) {
	state := StateClosed
	if open {
		state = StateOpen
	}
	pm.probesTotal.WithLabelValues(state).Inc()
	pm.probeDuration.Observe(duration.Seconds())
}

// SetInFlight sets the in-flight probe gauge
func (pm *PrometheusMetrics) SetInFlight(count int) {
	pm.inFlight.Set(float64(count))
}

// ObserveHostScan records a finished host scan
func (pm *PrometheusMetrics) ObserveHostScan(status string, duration time.Duration) {
	pm.hostScans.WithLabelValues(status).Inc()
	pm.hostDuration.Observe(duration.Seconds())
}

// IncrementTargetsSkipped counts a skipped target
func (pm *PrometheusMetrics) IncrementTargetsSkipped(reason string) {
	pm.targetsSkipped.WithLabelValues(reason).Inc()
}

// IncrementJobs counts a completed worker job
func (pm *PrometheusMetrics) IncrementJobs(jobType, status string) {
	pm.jobsTotal.WithLabelValues(jobType, status).Inc()
}

// WriteTextfile writes every collected metric to path in the textfile
// collector format.
func (pm *PrometheusMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, pm.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
