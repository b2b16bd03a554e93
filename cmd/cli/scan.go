package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anstrom/portprowler/internal/errors"
	"github.com/anstrom/portprowler/internal/export"
	"github.com/anstrom/portprowler/internal/logging"
	"github.com/anstrom/portprowler/internal/metrics"
	"github.com/anstrom/portprowler/internal/scanning"
	"github.com/anstrom/portprowler/internal/targets"
)

// runScan scans every target, prints the results and saves them when an
// output file is configured.
func (a *app) runScan(cmd *cobra.Command, args []string) error {
	cfg := a.cfg

	plan, err := cfg.Plan()
	if err != nil {
		return errors.WrapConfigError(errors.CodeConfiguration, err.Error(), err)
	}
	if err := plan.Validate(); err != nil {
		return errors.WrapConfigError(errors.CodeConfiguration, fmt.Sprintf("invalid scan settings: %v", err), err)
	}
	format, err := cfg.ExportFormat()
	if err != nil {
		return err
	}

	expander, err := a.newExpander()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.Default()
	recorder := metrics.NewPrometheusMetrics()
	console := a.console()

	engine := scanning.NewEngine(scanning.NewTCPProber(logger),
		scanning.WithLogger(logger),
		scanning.WithMetrics(recorder))
	runner := scanning.NewRunner(engine, expander, console,
		scanning.WithRunnerLogger(logger),
		scanning.WithRunnerMetrics(recorder),
		scanning.WithParallelHosts(cfg.Scan.ParallelHosts))

	console.DisplayBanner()

	results, err := runner.Run(ctx, args, plan)
	if err != nil {
		console.DisplayError(err)
		return &reportedError{err: err}
	}
	console.DisplayResults(results)

	var exportErr error
	if cfg.Output.File != "" {
		if err := export.WriteFile(cfg.Output.File, results, format); err != nil {
			console.DisplayError(err)
			exportErr = &reportedError{err: err}
		} else {
			console.DisplaySaved(cfg.Output.File)
		}
	}

	if cfg.Metrics.Textfile != "" {
		if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("Failed to write metrics", "path", cfg.Metrics.Textfile, "error", err)
		}
	}

	if exportErr != nil {
		return exportErr
	}
	console.DisplayCompleted()
	return nil
}

// newExpander builds the target expander, using a dedicated DNS server when
// one is configured.
func (a *app) newExpander() (*targets.Expander, error) {
	opts := []targets.Option{
		targets.WithMaxHosts(a.cfg.Scan.MaxCIDRHosts),
		targets.WithLogger(logging.Default()),
	}
	if server := a.cfg.Resolver.Server; server != "" {
		resolver, err := targets.NewDNSResolver(server, a.cfg.ResolverTimeout())
		if err != nil {
			return nil, errors.WrapConfigError(errors.CodeConfiguration, err.Error(), err)
		}
		opts = append(opts, targets.WithResolver(resolver))
	}
	return targets.NewExpander(opts...), nil
}
