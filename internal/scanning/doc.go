// Package scanning provides the port scanning core of portprowler.
//
// It turns a list of resolved hosts and a port plan into per-host sets of
// open ports. Nothing in this package writes to the console; everything the
// user sees goes through the Presenter interface.
//
// # Overview
//
// A scan is described by a ScanRequest, which is validated when it is built
// and immutable afterwards. The Engine probes every port of a request with a
// Prober, keeping at most Concurrency probes in flight through a
// ResourceManager. The Runner drives the engine across targets: it expands
// each target with an Expander, scans the resulting hosts on a worker pool
// and collects the open ports into a ScanResultSet.
//
// # Main Components
//
//   - PortRange, ParsePortRange: inclusive port ranges
//   - ScanRequest: the validated description of one host scan
//   - Prober, TCPProber: single TCP connect probes
//   - ResourceManager, FixedResourceManager: the in-flight probe bound
//   - Engine: bounded fan-out of probes with progress reporting
//   - Runner, Plan: multi-target orchestration
//   - TargetResult, ScanResultSet: the aggregated results
//
// # Usage Example
//
//	engine := scanning.NewEngine(scanning.NewTCPProber(logger))
//	runner := scanning.NewRunner(engine, expander, presenter)
//
//	plan := scanning.Plan{
//		Range:       scanning.PortRange{Low: 1, High: 1024},
//		Timeout:     time.Second,
//		Concurrency: 100,
//	}
//	results, err := runner.Run(ctx, []string{"192.168.1.0/30"}, plan)
//
// # Concurrency
//
// The engine never runs more than Concurrency probes for one host at once.
// Hosts are scanned one after another unless Runner.ParallelHosts is raised,
// in which case each host still gets its own probe limit. Results keep the
// order in which hosts were resolved regardless of which host finishes first.
//
// # Cancellation
//
// Cancelling the context stops scheduling new probes. Probes already running
// finish or hit their own timeout, and the scan returns a CANCELED error
// without partial results.
package scanning
