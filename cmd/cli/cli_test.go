package cli

import (
	"bytes"
	stderrors "errors"
	"encoding/csv"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/anstrom/portprowler/internal/config"
	"github.com/anstrom/portprowler/internal/errors"
	"github.com/anstrom/portprowler/internal/export"
)

func execute(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

// listen starts a loopback listener that accepts and closes connections.
func listen(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()
	return strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)
}

func TestRootFlagDefaults(t *testing.T) {
	a := &app{out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	a.v = viper.New()
	cmd := newRootCmd(a)

	tests := []struct {
		flag      string
		shorthand string
		value     string
	}{
		{"ports", "p", "1-1024"},
		{"timeout", "t", "1"},
		{"threads", "T", "100"},
		{"top-ports", "", "false"},
		{"parallel-hosts", "", "1"},
		{"max-cidr-hosts", "", "65536"},
		{"output", "o", ""},
		{"format", "f", "json"},
		{"quiet", "q", "false"},
		{"no-color", "", "false"},
		{"resolver", "", ""},
		{"metrics-file", "", ""},
		{"log-level", "", "warn"},
		{"verbose", "v", "false"},
		{"config", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			f := cmd.PersistentFlags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.value, f.DefValue)
			assert.Equal(t, tt.shorthand, f.Shorthand)
		})
	}
}

func TestPortsFlagUsage(t *testing.T) {
	a := &app{v: viper.New(), out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	usage := newRootCmd(a).PersistentFlags().Lookup("ports").Usage

	assert.Contains(t, usage, "LOW-HIGH")
	assert.Contains(t, usage, "-p 80-443")
}

func TestRun_NoArgsShowsUsage(t *testing.T) {
	code, out, errOut := execute(t)

	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Welcome to PortProwler")
	assert.Contains(t, out, "Usage Examples:")
	assert.Contains(t, out, "portprowler --help")
	assert.Empty(t, errOut)
}

func TestRun_Version(t *testing.T) {
	oldVersion, oldCommit, oldBuild := version, commit, buildTime
	defer SetVersion(oldVersion, oldCommit, oldBuild)

	SetVersion("1.2.3", "abc123", "2024-01-01")
	code, out, _ := execute(t, "--version")

	assert.Equal(t, 0, code)
	assert.Equal(t, "portprowler 1.2.3 (commit: abc123, built: 2024-01-01)\n", out)
}

func TestRun_ScanLoopback(t *testing.T) {
	port := listen(t)
	path := filepath.Join(t.TempDir(), "results", "scan.csv")
	metricsPath := filepath.Join(t.TempDir(), "portprowler.prom")

	code, out, errOut := execute(t, "127.0.0.1", "-p", port, "-t", "0.5",
		"-o", path, "-f", "csv", "--metrics-file", metricsPath, "--no-color")

	require.Equal(t, 0, code, errOut)
	assert.NotContains(t, errOut, "Scanning ports", "no progress line without a terminal")
	assert.Contains(t, out, "Scanning target: 127.0.0.1")
	assert.Contains(t, out, "Port range: "+port+"-"+port)
	assert.Contains(t, out, "Timeout: 0.5 seconds")
	assert.Contains(t, out, "Scan Results for 127.0.0.1:")
	assert.Contains(t, out, port)
	assert.Contains(t, out, "Results saved to "+path)
	assert.True(t, strings.HasSuffix(out, "Scan completed.\n"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"IP", "Port", "Service"}, records[0])
	assert.Equal(t, "127.0.0.1", records[1][0])
	assert.Equal(t, port, records[1][1])

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "portprowler_probe_total")
	assert.Contains(t, string(prom), "portprowler_host_scans_total")
}

func TestRun_ScanWritesJSON(t *testing.T) {
	port := listen(t)
	path := filepath.Join(t.TempDir(), "scan.json")

	code, _, errOut := execute(t, "127.0.0.1", "-p", port, "-o", path)
	require.Equal(t, 0, code, errOut)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	set, err := export.ReadJSON(f)
	require.NoError(t, err)
	res, ok := set.Get("127.0.0.1")
	require.True(t, ok)
	require.Len(t, res.OpenPorts, 1)
	assert.Equal(t, port, strconv.Itoa(int(res.OpenPorts[0].Port)))
}

func TestRun_SkipsUnresolvableTarget(t *testing.T) {
	port := listen(t)

	code, out, errOut := execute(t, "nosuchhost.invalid", "127.0.0.1", "-p", port,
		"--resolver", "127.0.0.1:1", "--resolver-timeout", "0.5", "--no-color")

	assert.Equal(t, 0, code)
	assert.Contains(t, errOut, "Error: Hostname nosuchhost.invalid could not be resolved.")
	assert.NotContains(t, out, "Scanning target: nosuchhost.invalid")
	assert.Contains(t, out, "Scan Results for 127.0.0.1:")
	assert.Contains(t, out, "Scan completed.")
}

func TestRun_ExportFailure(t *testing.T) {
	port := listen(t)

	code, out, errOut := execute(t, "127.0.0.1", "-p", port, "-o", t.TempDir(), "--no-color")

	assert.Equal(t, exitFailure, code)
	assert.Contains(t, out, "Scan Results for 127.0.0.1:")
	assert.Contains(t, errOut, "Error: Could not write results to")
	assert.NotContains(t, out, "Results saved to")
	assert.NotContains(t, out, "Scan completed.")
}

func TestRun_InvalidConfiguration(t *testing.T) {
	badFile := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(badFile, []byte("scan: [unclosed"), 0600))

	tests := []struct {
		name string
		args []string
		env  map[string]string
		want string
	}{
		{name: "zero threads", args: []string{"127.0.0.1", "-T", "0"}, want: "scan.threads"},
		{name: "bad timeout", args: []string{"127.0.0.1", "-t", "0"}, want: "scan.timeout"},
		{name: "tiny timeout", args: []string{"127.0.0.1", "-t", "1e-12"}, want: "scan.timeout"},
		{name: "huge timeout", args: []string{"127.0.0.1", "-t", "1e11"}, want: "scan.timeout"},
		{name: "bad ports", args: []string{"127.0.0.1", "-p", "9000-80"}, want: "scan.ports"},
		{name: "bad format", args: []string{"127.0.0.1", "-f", "xml"}, want: "output.format"},
		{name: "env override", args: []string{"127.0.0.1"}, env: map[string]string{"PORTPROWLER_SCAN_PARALLEL_HOSTS": "0"}, want: "scan.parallel_hosts"},
		{name: "missing config file", args: []string{"127.0.0.1", "--config", filepath.Join(t.TempDir(), "nope.yaml")}, want: "failed to read config file"},
		{name: "malformed config file", args: []string{"127.0.0.1", "--config", badFile}, want: "failed to read config file"},
		{name: "unknown flag", args: []string{"127.0.0.1", "--bogus"}, want: "unknown flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			code, out, errOut := execute(t, tt.args...)
			assert.Equal(t, exitFailure, code)
			assert.Contains(t, errOut, "Error: ")
			assert.Contains(t, errOut, tt.want)
			assert.NotContains(t, out, "Scanning target")
			assert.NotContains(t, out, "Welcome to PortProwler", "nothing is printed before the configuration is accepted")
		})
	}
}

func TestRun_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portprowler.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scan:\n  threads: 42\n  ports: \"20-30\"\n"), 0600))

	code, out, errOut := execute(t, "config", "--config", path, "-p", "80")
	require.Equal(t, 0, code, errOut)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, 42, cfg.Scan.Threads)
	assert.Equal(t, "80", cfg.Scan.Ports, "flags override the file")
}

func TestRun_ConfigCommand(t *testing.T) {
	code, out, errOut := execute(t, "config", "-T", "50", "--top-ports", "-f", "yaml")
	require.Equal(t, 0, code, errOut)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, 50, cfg.Scan.Threads)
	assert.True(t, cfg.Scan.TopPorts)
	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.Equal(t, "1-1024", cfg.Scan.Ports)
}

func TestRun_ServicesCommand(t *testing.T) {
	t.Run("all", func(t *testing.T) {
		code, out, _ := execute(t, "services", "--no-color")
		assert.Equal(t, 0, code)
		assert.Contains(t, out, "ssh")
		assert.Contains(t, out, "echo")
	})

	t.Run("top", func(t *testing.T) {
		code, out, _ := execute(t, "services", "--top", "--no-color")
		assert.Equal(t, 0, code)
		assert.Contains(t, out, "ssh")
		assert.Contains(t, out, "3389")
		assert.NotContains(t, out, "echo")
	})

	t.Run("rejects arguments", func(t *testing.T) {
		code, _, errOut := execute(t, "services", "extra")
		assert.Equal(t, exitFailure, code)
		assert.Contains(t, errOut, "Error: ")
	})
}

func TestExitCode(t *testing.T) {
	canceled := errors.WrapScanErrorWithTarget(errors.CodeCanceled, "scan aborted", "", stderrors.New("context canceled"))

	assert.Equal(t, exitCancelled, exitCode(canceled))
	assert.Equal(t, exitCancelled, exitCode(&reportedError{err: canceled}))
	assert.Equal(t, exitFailure, exitCode(stderrors.New("boom")))
	assert.Equal(t, exitFailure, exitCode(errors.NewConfigFieldError(errors.CodeConfiguration, "bad", "scan.threads", 0)))
}
