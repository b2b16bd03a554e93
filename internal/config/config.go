// Package config defines portprowler's configuration: defaults, loading
// through viper (flags, PORTPROWLER_* environment variables and an optional
// YAML file) and validation.
package config

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/anstrom/portprowler/internal/errors"
	"github.com/anstrom/portprowler/internal/export"
	"github.com/anstrom/portprowler/internal/logging"
	"github.com/anstrom/portprowler/internal/scanning"
	"github.com/anstrom/portprowler/internal/services"
	"github.com/anstrom/portprowler/internal/targets"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "PORTPROWLER"

// Viper keys.
const (
	KeyPorts         = "scan.ports"
	KeyTimeout       = "scan.timeout"
	KeyThreads       = "scan.threads"
	KeyTopPorts      = "scan.top_ports"
	KeyParallelHosts = "scan.parallel_hosts"
	KeyMaxCIDRHosts  = "scan.max_cidr_hosts"

	KeyOutputFile   = "output.file"
	KeyOutputFormat = "output.format"
	KeyQuiet        = "output.quiet"
	KeyNoColor      = "output.no_color"

	KeyResolverServer  = "resolver.server"
	KeyResolverTimeout = "resolver.timeout"

	KeyMetricsTextfile = "metrics.textfile"

	KeyLogLevel  = "logging.level"
	KeyLogFormat = "logging.format"
	KeyLogOutput = "logging.output"
)

// Config represents the complete portprowler configuration
type Config struct {
	Scan     ScanConfig     `mapstructure:"scan" yaml:"scan"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Resolver ResolverConfig `mapstructure:"resolver" yaml:"resolver"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// ScanConfig holds scanning-related settings
type ScanConfig struct {
	// Port range, "LOW-HIGH", "LOW,HIGH" or a single port
	Ports string `mapstructure:"ports" yaml:"ports" validate:"required"`

	// Per-probe timeout in seconds
	Timeout float64 `mapstructure:"timeout" yaml:"timeout" validate:"gt=0,lte=3600"`

	// Maximum probes in flight per host
	Threads int `mapstructure:"threads" yaml:"threads" validate:"min=1"`

	// Probe only the top 20 well-known ports
	TopPorts bool `mapstructure:"top_ports" yaml:"top_ports"`

	// Number of hosts scanned at once
	ParallelHosts int `mapstructure:"parallel_hosts" yaml:"parallel_hosts" validate:"min=1"`

	// Largest CIDR block expansion accepted
	MaxCIDRHosts int `mapstructure:"max_cidr_hosts" yaml:"max_cidr_hosts" validate:"min=1"`
}

// OutputConfig holds result output settings
type OutputConfig struct {
	File    string `mapstructure:"file" yaml:"file"`
	Format  string `mapstructure:"format" yaml:"format" validate:"oneof=json csv yaml yml"`
	Quiet   bool   `mapstructure:"quiet" yaml:"quiet"`
	NoColor bool   `mapstructure:"no_color" yaml:"no_color"`
}

// ResolverConfig selects how hostnames are resolved. An empty server uses
// the system resolver.
type ResolverConfig struct {
	Server  string  `mapstructure:"server" yaml:"server" validate:"omitempty,hostname_port|ip|hostname_rfc1123"`
	Timeout float64 `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`
}

// MetricsConfig holds metrics export settings
type MetricsConfig struct {
	// Write Prometheus metrics to this file after the run
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// Default returns a configuration with the built-in defaults
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Ports:         "1-1024",
			Timeout:       1.0,
			Threads:       100,
			TopPorts:      false,
			ParallelHosts: 1,
			MaxCIDRHosts:  targets.DefaultMaxHosts,
		},
		Output: OutputConfig{
			Format: string(export.FormatJSON),
		},
		Resolver: ResolverConfig{
			Timeout: 5.0,
		},
		Logging: LoggingConfig{
			Level:  string(logging.LevelWarn),
			Format: string(logging.FormatText),
			Output: "stderr",
		},
	}
}

// SetDefaults registers every default with v.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault(KeyPorts, d.Scan.Ports)
	v.SetDefault(KeyTimeout, d.Scan.Timeout)
	v.SetDefault(KeyThreads, d.Scan.Threads)
	v.SetDefault(KeyTopPorts, d.Scan.TopPorts)
	v.SetDefault(KeyParallelHosts, d.Scan.ParallelHosts)
	v.SetDefault(KeyMaxCIDRHosts, d.Scan.MaxCIDRHosts)

	v.SetDefault(KeyOutputFile, d.Output.File)
	v.SetDefault(KeyOutputFormat, d.Output.Format)
	v.SetDefault(KeyQuiet, d.Output.Quiet)
	v.SetDefault(KeyNoColor, d.Output.NoColor)

	v.SetDefault(KeyResolverServer, d.Resolver.Server)
	v.SetDefault(KeyResolverTimeout, d.Resolver.Timeout)

	v.SetDefault(KeyMetricsTextfile, d.Metrics.Textfile)

	v.SetDefault(KeyLogLevel, d.Logging.Level)
	v.SetDefault(KeyLogFormat, d.Logging.Format)
	v.SetDefault(KeyLogOutput, d.Logging.Output)
}

// ConfigureEnv makes v read PORTPROWLER_SCAN_THREADS and friends.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration, "failed to decode configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func configValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks field constraints and that the port range parses.
func (c *Config) Validate() error {
	if err := configValidator().Struct(c); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			field := strings.TrimPrefix(fe.Namespace(), "Config.")
			cfgErr := errors.NewConfigFieldError(errors.CodeConfiguration,
				fmt.Sprintf("invalid value for %s (%s)", field, describeTag(fe)), field, fe.Value())
			cfgErr.Cause = err
			return cfgErr
		}
		return errors.WrapConfigError(errors.CodeConfiguration, "invalid configuration", err)
	}

	if _, err := scanning.ParsePortRange(c.Scan.Ports); err != nil {
		return errors.WrapConfigError(errors.CodeConfiguration, fmt.Sprintf("invalid value for %s", KeyPorts), err)
	}
	if c.Timeout() <= 0 {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			fmt.Sprintf("invalid value for %s (must be at least 1ns)", KeyTimeout), KeyTimeout, c.Scan.Timeout)
	}
	return nil
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must be set"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "failed " + fe.Tag()
	}
}

// Timeout returns the per-probe timeout.
func (c *Config) Timeout() time.Duration {
	return secondsToDuration(c.Scan.Timeout)
}

// ResolverTimeout returns the DNS query timeout.
func (c *Config) ResolverTimeout() time.Duration {
	return secondsToDuration(c.Resolver.Timeout)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Plan builds the scan plan. With top ports enabled only the well-known
// ports are probed and reported.
func (c *Config) Plan() (scanning.Plan, error) {
	r, err := scanning.ParsePortRange(c.Scan.Ports)
	if err != nil {
		return scanning.Plan{}, err
	}

	plan := scanning.Plan{
		Range:       r,
		Timeout:     c.Timeout(),
		Concurrency: c.Scan.Threads,
	}
	if c.Scan.TopPorts {
		top := services.TopPorts()
		set := make(map[uint16]bool, len(top))
		for _, p := range top {
			set[p] = true
		}
		plan.Ports = top
		plan.Keep = func(port uint16) bool { return set[port] }
	}
	return plan, nil
}

// ExportFormat returns the parsed output format.
func (c *Config) ExportFormat() (export.Format, error) {
	return export.ParseFormat(c.Output.Format)
}

// LoggerConfig returns the logger configuration.
func (c *Config) LoggerConfig() logging.Config {
	return logging.Config{
		Level:  logging.LogLevel(c.Logging.Level),
		Format: logging.LogFormat(c.Logging.Format),
		Output: c.Logging.Output,
	}
}

// WriteYAML writes the configuration as YAML.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return enc.Close()
}
