// Package cli provides the command-line interface for the portprowler port
// scanner. The root command scans the targets given as arguments; the
// services and config subcommands print reference information.
package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/anstrom/portprowler/internal/config"
	"github.com/anstrom/portprowler/internal/errors"
	"github.com/anstrom/portprowler/internal/logging"
	"github.com/anstrom/portprowler/internal/output"
)

const (
	defaultConfigName = "portprowler"

	exitFailure   = 1
	exitCancelled = 130
)

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// app holds the state of one command-line invocation.
type app struct {
	v       *viper.Viper
	cfg     *config.Config
	cfgFile string
	verbose bool

	out    io.Writer
	errOut io.Writer
}

// reportedError marks an error that has already been shown to the user.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// flagBinding ties a command-line flag to a configuration key.
type flagBinding struct {
	flag string
	key  string
}

var flagBindings = []flagBinding{
	{"ports", config.KeyPorts},
	{"timeout", config.KeyTimeout},
	{"threads", config.KeyThreads},
	{"top-ports", config.KeyTopPorts},
	{"parallel-hosts", config.KeyParallelHosts},
	{"max-cidr-hosts", config.KeyMaxCIDRHosts},
	{"output", config.KeyOutputFile},
	{"format", config.KeyOutputFormat},
	{"quiet", config.KeyQuiet},
	{"no-color", config.KeyNoColor},
	{"resolver", config.KeyResolverServer},
	{"resolver-timeout", config.KeyResolverTimeout},
	{"metrics-file", config.KeyMetricsTextfile},
	{"log-level", config.KeyLogLevel},
	{"log-format", config.KeyLogFormat},
}

// newRootCmd builds the command tree for one invocation.
func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "portprowler [targets...]",
		Short: "Stealthy and swift TCP port scanner",
		Long: `PortProwler scans one or more targets for open TCP ports.

Targets may be IPv4 or IPv6 addresses, hostnames or CIDR blocks. Each host
is probed with full TCP connects across the selected port range and the open
ports are reported with their well-known service names. Results can be saved
as JSON, CSV or YAML.`,
		Example: `  portprowler example.com
  portprowler 192.168.1.1 10.0.0.1 -p 80-443
  portprowler 192.168.1.0/24 --top-ports
  portprowler example.com -t 0.5 -T 50 -o results.json
  portprowler example.com 10.0.0.0/28 -o results.csv -f csv`,
		Version:           getVersion(),
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.initConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				console := a.console()
				console.DisplayBanner()
				console.DisplayUsage()
				return nil
			}
			return a.runScan(cmd, args)
		},
	}
	rootCmd.SetOut(a.out)
	rootCmd.SetErr(a.errOut)
	rootCmd.SetVersionTemplate("portprowler {{.Version}}\n")

	defaults := config.Default()

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./portprowler.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output (debug logging)")

	// Scan flags
	flags.StringP("ports", "p", defaults.Scan.Ports,
		"port range to scan: LOW-HIGH, LOW,HIGH or a single port (write -p 80-443, not -p 80 443)")
	flags.Float64P("timeout", "t", defaults.Scan.Timeout, "timeout for each port probe in seconds")
	flags.IntP("threads", "T", defaults.Scan.Threads, "maximum number of concurrent probes per host")
	flags.Bool("top-ports", defaults.Scan.TopPorts, "scan only the top 20 most common ports")
	flags.Int("parallel-hosts", defaults.Scan.ParallelHosts, "number of hosts scanned at the same time")
	flags.Int("max-cidr-hosts", defaults.Scan.MaxCIDRHosts, "largest number of hosts a CIDR block may expand to")

	// Output flags
	flags.StringP("output", "o", defaults.Output.File, "save results to this file")
	flags.StringP("format", "f", defaults.Output.Format, "output file format: json, csv or yaml")
	flags.BoolP("quiet", "q", defaults.Output.Quiet, "hide the progress line")
	flags.Bool("no-color", defaults.Output.NoColor, "disable colored output")

	// Resolver, metrics and logging flags
	flags.String("resolver", defaults.Resolver.Server, "DNS server used to resolve hostnames (default is the system resolver)")
	flags.Float64("resolver-timeout", defaults.Resolver.Timeout, "DNS query timeout in seconds")
	flags.String("metrics-file", defaults.Metrics.Textfile, "write Prometheus metrics to this file after the scan")
	flags.String("log-level", defaults.Logging.Level, "log level: debug, info, warn or error")
	flags.String("log-format", defaults.Logging.Format, "log format: text or json")

	bindFlags(a.v, flags)

	rootCmd.AddCommand(newServicesCmd(a), newConfigCmd(a))
	return rootCmd
}

// bindFlags binds every scan flag to its viper key.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	for _, b := range flagBindings {
		if err := v.BindPFlag(b.key, flags.Lookup(b.flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind %s flag: %v\n", b.flag, err)
		}
	}
}

// initConfig reads in the config file and ENV variables, then validates the
// resulting configuration and initializes logging.
func (a *app) initConfig(_ *cobra.Command, _ []string) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigType("yaml")
		a.v.SetConfigName(defaultConfigName)
	}

	config.SetDefaults(a.v)
	config.ConfigureEnv(a.v)

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !stderrors.As(err, &notFound) {
			return errors.WrapConfigError(errors.CodeConfiguration,
				fmt.Sprintf("failed to read config file %s: %v", a.configFileName(), err), err)
		}
	}

	if a.verbose {
		a.v.Set(config.KeyLogLevel, string(logging.LevelDebug))
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	initLogging(cfg)
	if used := a.v.ConfigFileUsed(); used != "" {
		logging.Debug("Using config file", "path", used)
	}
	return nil
}

func (a *app) configFileName() string {
	if a.cfgFile != "" {
		return a.cfgFile
	}
	return a.v.ConfigFileUsed()
}

// initLogging initializes structured logging based on configuration.
func initLogging(cfg *config.Config) {
	logConfig := cfg.LoggerConfig()
	logConfig.AddSource = logConfig.Level == logging.LevelDebug

	logger, err := logging.New(logConfig)
	if err != nil {
		logger = logging.NewDefault()
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	logging.SetDefault(logger)
}

// console returns a console for the current configuration.
func (a *app) console() *output.Console {
	opts := output.DefaultOptions(a.out, a.errOut)
	if a.cfg != nil {
		opts.NoColor = a.cfg.Output.NoColor
		opts.ShowProgress = opts.ShowProgress && !a.cfg.Output.Quiet
	}
	return output.NewConsole(opts)
}

// run executes the command line and returns the process exit code.
func run(args []string, out, errOut io.Writer) int {
	a := &app{
		v:      viper.New(),
		out:    out,
		errOut: errOut,
	}

	cmd := newRootCmd(a)
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err == nil {
		return 0
	}

	var reported *reportedError
	if !stderrors.As(err, &reported) {
		output.NewConsole(output.Options{Out: out, Err: errOut, NoColor: true}).DisplayError(err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	if errors.IsCode(err, errors.CodeCanceled) {
		return exitCancelled
	}
	return exitFailure
}

// Execute runs the CLI with the process arguments and exits on failure.
// This is called by main.main().
func Execute() {
	if code := run(os.Args[1:], os.Stdout, os.Stderr); code != 0 {
		os.Exit(code)
	}
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
}
