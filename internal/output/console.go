// Package output renders portprowler's human-facing console output: the
// banner, per-target scan headers, the progress line, result tables and
// error messages.
package output

import (
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"

	"github.com/anstrom/portprowler/internal/errors"
	"github.com/anstrom/portprowler/internal/scanning"
	"github.com/anstrom/portprowler/internal/services"
)

const (
	separatorWidth   = 60
	progressBarWidth = 30
	startedLayout    = "2006-01-02 15:04:05.000000"
)

const banner = `
    ____            _   ____                    _
   |  _ \ ___  _ __| |_|  _ \ _ __ _____      _| | ___ _ __
   | |_) / _ \| '__| __| |_) | '__/ _ \ \ /\ / / |/ _ \ '__|
   |  __/ (_) | |  | |_|  __/| | | (_) \ V  V /| |  __/ |
   |_|   \___/|_|   \__|_|   |_|  \___/ \_/\_/ |_|\___|_|
`

var usageExamples = []struct {
	title   string
	command string
}{
	{"Scan a single host:", "portprowler example.com"},
	{"Scan multiple hosts for a specific port range:", "portprowler 192.168.1.1 10.0.0.1 -p 80-443"},
	{"Scan an IP range for top 20 common ports:", "portprowler 192.168.1.0/24 --top-ports"},
	{"Scan with custom timeout and thread count, save results to a JSON file:", "portprowler example.com -t 0.5 -T 50 -o results.json"},
	{"Scan multiple targets and save results in CSV format:", "portprowler example.com 192.168.1.1 10.0.0.0/28 -o results.csv -f csv"},
	{"Perform a quick scan of top ports on multiple hosts:", "portprowler example.com 192.168.1.1 --top-ports -T 100"},
}

// Options configures a Console.
type Options struct {
	// Out receives banners, scan headers and results.
	Out io.Writer
	// Err receives errors and the progress line.
	Err io.Writer
	// NoColor disables styling.
	NoColor bool
	// ShowProgress enables the progress line.
	ShowProgress bool
}

// DefaultOptions writes to out and errOut and shows progress when errOut is
// a terminal.
func DefaultOptions(out, errOut io.Writer) Options {
	opts := Options{Out: out, Err: errOut}
	if f, ok := errOut.(*os.File); ok {
		opts.ShowProgress = IsTerminal(f)
	}
	return opts
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type styles struct {
	banner    *color.Color
	title     *color.Color
	hint      *color.Color
	separator *color.Color
	heading   *color.Color
	success   *color.Color
	failure   *color.Color
}

func newStyles(noColor bool) styles {
	s := styles{
		banner:    color.New(color.FgCyan, color.Bold),
		title:     color.New(color.FgGreen, color.Bold),
		hint:      color.New(color.FgYellow),
		separator: color.New(color.FgBlue),
		heading:   color.New(color.FgCyan, color.Bold),
		success:   color.New(color.FgGreen, color.Bold),
		failure:   color.New(color.FgRed, color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{s.banner, s.title, s.hint, s.separator, s.heading, s.success, s.failure} {
			c.DisableColor()
		}
	}
	return s
}

// Console writes scan output to a terminal or any pair of writers. It is
// safe for concurrent use.
type Console struct {
	out      io.Writer
	errOut   io.Writer
	style    styles
	progress bool

	// writeMu serialises everything except progress rendering.
	writeMu sync.Mutex
	// progressMu guards the progress line.
	progressMu sync.Mutex
	// highest completion count seen per target
	completed sync.Map
}

var _ scanning.Presenter = (*Console)(nil)

// NewConsole creates a console.
func NewConsole(opts Options) *Console {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	return &Console{
		out:      opts.Out,
		errOut:   opts.Err,
		style:    newStyles(opts.NoColor),
		progress: opts.ShowProgress,
	}
}

// DisplayBanner prints the banner and tagline.
func (c *Console) DisplayBanner() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.style.banner.Fprint(c.out, banner)
	c.style.title.Fprintln(c.out, "Welcome to PortProwler")
	c.style.hint.Fprintln(c.out, "Stealthy and Swift Port Scanning")
	c.style.separator.Fprintln(c.out, strings.Repeat("=", separatorWidth))
}

// DisplayUsage prints usage examples.
func (c *Console) DisplayUsage() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.style.title.Fprintln(c.out, "Usage Examples:")
	for i, ex := range usageExamples {
		if i > 0 {
			fmt.Fprintln(c.out)
		}
		c.style.hint.Fprintf(c.out, "%d. %s\n", i+1, ex.title)
		fmt.Fprintf(c.out, "   %s\n", ex.command)
	}
	fmt.Fprintln(c.out)
	c.style.title.Fprintln(c.out, "For more information on available options, use:")
	fmt.Fprintln(c.out, "portprowler --help")
}

// DisplayScanStart prints the header for one host scan.
func (c *Console) DisplayScanStart(summary scanning.ScanSummary) {
	c.completed.Store(summary.Target, new(atomic.Int64))

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	fmt.Fprintln(c.out)
	c.style.title.Fprintf(c.out, "Scanning target: %s\n", summary.Target)
	fmt.Fprintf(c.out, "Port range: %s\n", summary.Range)
	fmt.Fprintf(c.out, "Timeout: %s seconds\n", formatSeconds(summary.Timeout.Seconds()))
	fmt.Fprintf(c.out, "Max threads: %d\n", summary.Concurrency)
	fmt.Fprintf(c.out, "Time started: %s\n", summary.Started.Format(startedLayout))
	c.style.separator.Fprintln(c.out, strings.Repeat("=", separatorWidth))
}

// ReportProgress updates the progress line. Reports older than one already
// shown are dropped, and a report that finds the line busy is skipped unless
// it is the last one for its target.
func (c *Console) ReportProgress(p scanning.Progress) {
	if !c.progress || p.Total <= 0 {
		return
	}
	if !c.advance(p.Target, int64(p.Completed)) {
		return
	}

	if p.Completed >= p.Total {
		c.progressMu.Lock()
	} else if !c.progressMu.TryLock() {
		return
	}
	defer c.progressMu.Unlock()

	// Re-check under the lock so an older report can't overwrite a newer one.
	if c.highest(p.Target) > int64(p.Completed) {
		return
	}
	fmt.Fprint(c.errOut, renderProgress(p))
	if p.Completed >= p.Total {
		fmt.Fprintln(c.errOut)
	}
}

// advance raises the stored completion count for target and reports
// whether completed is the new maximum.
func (c *Console) advance(target netip.Addr, completed int64) bool {
	v, _ := c.completed.LoadOrStore(target, new(atomic.Int64))
	counter := v.(*atomic.Int64)
	for {
		cur := counter.Load()
		if completed <= cur {
			return false
		}
		if counter.CompareAndSwap(cur, completed) {
			return true
		}
	}
}

func (c *Console) highest(target netip.Addr) int64 {
	v, ok := c.completed.Load(target)
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}

func renderProgress(p scanning.Progress) string {
	filled := p.Completed * progressBarWidth / p.Total
	bar := strings.Repeat("#", filled) + strings.Repeat("-", progressBarWidth-filled)
	pct := p.Completed * 100 / p.Total
	return fmt.Sprintf("\rScanning ports  [%s]  %3d%%  %d/%d  Port %-5d", bar, pct, p.Completed, p.Total, p.Port)
}

// DisplayResults prints a table of open ports for every host.
func (c *Console) DisplayResults(results *scanning.ScanResultSet) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	for _, res := range results.Results() {
		fmt.Fprintln(c.out)
		c.style.heading.Fprintf(c.out, "Scan Results for %s:\n", res.Host)
		if len(res.OpenPorts) == 0 {
			c.style.hint.Fprintln(c.out, "No open ports found.")
			continue
		}

		table := tablewriter.NewWriter(c.out)
		table.Header("Port", "Service")
		for _, port := range res.OpenPorts {
			_ = table.Append([]string{strconv.Itoa(int(port.Port)), port.Service})
		}
		_ = table.Render()
	}
}

// DisplayServices prints the well-known service table.
func (c *Console) DisplayServices(entries []services.Entry) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	table := tablewriter.NewWriter(c.out)
	table.Header("Port", "Service", "Top 20")
	top := make(map[uint16]bool)
	for _, p := range services.TopPorts() {
		top[p] = true
	}
	for _, e := range entries {
		mark := ""
		if top[e.Port] {
			mark = "yes"
		}
		_ = table.Append([]string{strconv.Itoa(int(e.Port)), e.Name, mark})
	}
	_ = table.Render()
}

// DisplayError prints err on the error stream.
func (c *Console) DisplayError(err error) {
	if err == nil {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.style.failure.Fprintf(c.errOut, "Error: %s\n", userMessage(err))
}

// DisplaySaved reports where results were written.
func (c *Console) DisplaySaved(path string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	fmt.Fprintln(c.out)
	c.style.success.Fprintf(c.out, "Results saved to %s\n", path)
}

// DisplayCompleted prints the final line of a scan.
func (c *Console) DisplayCompleted() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	fmt.Fprintln(c.out)
	c.style.success.Fprintln(c.out, "Scan completed.")
}

// userMessage turns typed errors into short sentences.
func userMessage(err error) string {
	var targetErr *errors.TargetError
	if stderrors.As(err, &targetErr) {
		switch targetErr.Code {
		case errors.CodeTargetUnresolvable:
			return fmt.Sprintf("Hostname %s could not be resolved.", targetErr.Target)
		default:
			return fmt.Sprintf("%s: %s", targetErr.Message, targetErr.Target)
		}
	}

	var exportErr *errors.ExportError
	if stderrors.As(err, &exportErr) {
		return fmt.Sprintf("Could not write results to %s: %v", exportErr.Path, exportErr.Cause)
	}

	var scanErr *errors.ScanError
	if stderrors.As(err, &scanErr) && scanErr.Code == errors.CodeCanceled {
		return "Scan interrupted."
	}

	var cfgErr *errors.ConfigError
	if stderrors.As(err, &cfgErr) {
		return cfgErr.Message
	}
	return err.Error()
}

// formatSeconds prints whole numbers with one decimal, like "1.0".
func formatSeconds(s float64) string {
	if s == math.Trunc(s) {
		return strconv.FormatFloat(s, 'f', 1, 64)
	}
	return strconv.FormatFloat(s, 'f', -1, 64)
}
