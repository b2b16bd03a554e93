package scanning

import (
	"fmt"
	"net/netip"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/anstrom/portprowler/internal/errors"
)

const (
	// Port validation constants.
	minPort                = 1
	maxPort                = 65535
	expectedPortRangeParts = 2
)

// PortRange is an inclusive range of TCP ports.
type PortRange struct {
	Low  uint16
	High uint16
}

// Size returns the number of ports in the range.
func (r PortRange) Size() int {
	if r.High < r.Low {
		return 0
	}
	return int(r.High) - int(r.Low) + 1
}

// Contains reports whether port lies within the range.
func (r PortRange) Contains(port uint16) bool {
	return port >= r.Low && port <= r.High
}

func (r PortRange) String() string {
	return fmt.Sprintf("%d-%d", r.Low, r.High)
}

// ParsePortRange parses "LOW-HIGH", "LOW,HIGH" or a single port "N".
func ParsePortRange(spec string) (PortRange, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return PortRange{}, errors.NewConfigFieldError(errors.CodeValidation, "empty port specification", "ports", spec)
	}

	sep := "-"
	if strings.Contains(spec, ",") {
		sep = ","
	}

	parts := strings.Split(spec, sep)
	if len(parts) == 1 {
		port, err := parsePort(parts[0])
		if err != nil {
			return PortRange{}, err
		}
		return PortRange{Low: port, High: port}, nil
	}
	if len(parts) != expectedPortRangeParts {
		return PortRange{}, errors.NewConfigFieldError(errors.CodeValidation,
			fmt.Sprintf("invalid port range format: %s", spec), "ports", spec)
	}

	low, err := parsePort(parts[0])
	if err != nil {
		return PortRange{}, err
	}
	high, err := parsePort(parts[1])
	if err != nil {
		return PortRange{}, err
	}
	if low > high {
		return PortRange{}, errors.NewConfigFieldError(errors.CodeValidation,
			fmt.Sprintf("invalid port range: start port %d is greater than end port %d", low, high), "ports", spec)
	}
	return PortRange{Low: low, High: high}, nil
}

func parsePort(s string) (uint16, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < minPort || n > maxPort {
		return 0, errors.NewConfigFieldError(errors.CodeValidation,
			fmt.Sprintf("invalid port: %s (must be %d-%d)", strings.TrimSpace(s), minPort, maxPort), "ports", s)
	}
	return uint16(n), nil
}

// requestSpec carries the validation rules for a ScanRequest.
type requestSpec struct {
	Target      string        `validate:"required,ip"`
	Low         int           `validate:"min=1,max=65535"`
	High        int           `validate:"min=1,max=65535,gtefield=Low"`
	Timeout     time.Duration `validate:"gt=0"`
	Concurrency int           `validate:"min=1"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ScanRequest describes the scan of a single host. It is immutable once
// constructed; use NewScanRequest or NewScanRequestForPorts.
type ScanRequest struct {
	target      netip.Addr
	portRange   PortRange
	ports       []uint16
	timeout     time.Duration
	concurrency int
}

// NewScanRequest builds a request probing every port of r.
func NewScanRequest(target netip.Addr, r PortRange, timeout time.Duration, concurrency int) (ScanRequest, error) {
	if err := validateRequest(target, int(r.Low), int(r.High), timeout, concurrency); err != nil {
		return ScanRequest{}, err
	}
	return ScanRequest{
		target:      target,
		portRange:   r,
		timeout:     timeout,
		concurrency: concurrency,
	}, nil
}

// NewScanRequestForPorts builds a request probing exactly the given ports.
// Duplicates are dropped and the list is sorted.
func NewScanRequestForPorts(target netip.Addr, ports []uint16, timeout time.Duration, concurrency int) (ScanRequest, error) {
	if len(ports) == 0 {
		return ScanRequest{}, errors.NewConfigFieldError(errors.CodeValidation, "no ports to scan", "ports", ports)
	}

	list := slices.Clone(ports)
	slices.Sort(list)
	list = slices.Compact(list)

	low, high := list[0], list[len(list)-1]
	if err := validateRequest(target, int(low), int(high), timeout, concurrency); err != nil {
		return ScanRequest{}, err
	}
	return ScanRequest{
		target:      target,
		portRange:   PortRange{Low: low, High: high},
		ports:       list,
		timeout:     timeout,
		concurrency: concurrency,
	}, nil
}

func validateRequest(target netip.Addr, low, high int, timeout time.Duration, concurrency int) error {
	spec := requestSpec{
		Low:         low,
		High:        high,
		Timeout:     timeout,
		Concurrency: concurrency,
	}
	if target.IsValid() {
		spec.Target = target.String()
	}

	if err := requestValidator().Struct(spec); err != nil {
		var field string
		var value interface{}
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			field = strings.ToLower(fieldErrs[0].Field())
			value = fieldErrs[0].Value()
		}
		cfgErr := errors.NewConfigFieldError(errors.CodeValidation, "invalid scan request", field, value)
		cfgErr.Cause = err
		return cfgErr
	}
	return nil
}

// Target returns the address being scanned.
func (r ScanRequest) Target() netip.Addr { return r.target }

// Range returns the lowest and highest port probed.
func (r ScanRequest) Range() PortRange { return r.portRange }

// Timeout returns the per-probe timeout.
func (r ScanRequest) Timeout() time.Duration { return r.timeout }

// Concurrency returns the maximum number of probes in flight.
func (r ScanRequest) Concurrency() int { return r.concurrency }

// Total returns the number of probes the request schedules.
func (r ScanRequest) Total() int {
	if r.ports != nil {
		return len(r.ports)
	}
	return r.portRange.Size()
}

// Ports returns every port to probe in ascending order.
func (r ScanRequest) Ports() []uint16 {
	if r.ports != nil {
		return slices.Clone(r.ports)
	}
	ports := make([]uint16, 0, r.portRange.Size())
	for p := int(r.portRange.Low); p <= int(r.portRange.High); p++ {
		ports = append(ports, uint16(p))
	}
	return ports
}

// PortOutcome is the result of probing a single port. Service is empty
// unless Open is true.
type PortOutcome struct {
	Port    uint16
	Open    bool
	Service string
}

// HasService reports whether the outcome carries a service name.
func (o PortOutcome) HasService() bool {
	return o.Service != ""
}

// Progress is emitted once per completed probe.
type Progress struct {
	Target    netip.Addr
	Port      uint16
	Open      bool
	Completed int
	Total     int
}

// ProgressFunc receives progress notifications. It is called concurrently
// from probe goroutines and must not block for long.
type ProgressFunc func(Progress)

// TargetResult holds the open ports of one host, ascending by port.
type TargetResult struct {
	Host      netip.Addr
	OpenPorts []PortOutcome
}

// NewTargetResult keeps the open outcomes for which keep returns true (all
// open outcomes when keep is nil) and sorts them by port.
func NewTargetResult(host netip.Addr, outcomes []PortOutcome, keep func(uint16) bool) TargetResult {
	open := make([]PortOutcome, 0)
	for _, o := range outcomes {
		if !o.Open {
			continue
		}
		if keep != nil && !keep(o.Port) {
			continue
		}
		open = append(open, o)
	}
	slices.SortFunc(open, comparePorts)
	return TargetResult{Host: host, OpenPorts: open}
}

func comparePorts(a, b PortOutcome) int {
	return int(a.Port) - int(b.Port)
}

// ScanResultSet maps host addresses to their results, remembering the
// order in which hosts were first added.
type ScanResultSet struct {
	order []string
	hosts map[string]TargetResult
}

// NewScanResultSet creates an empty result set.
func NewScanResultSet() *ScanResultSet {
	return &ScanResultSet{hosts: make(map[string]TargetResult)}
}

// Add stores result under its host. A host that is already present keeps
// its original position and gets the new value.
func (s *ScanResultSet) Add(result TargetResult) {
	key := result.Host.String()
	if _, exists := s.hosts[key]; !exists {
		s.order = append(s.order, key)
	}
	s.hosts[key] = result
}

// Get returns the result for host.
func (s *ScanResultSet) Get(host string) (TargetResult, bool) {
	r, ok := s.hosts[host]
	return r, ok
}

// Hosts returns host keys in insertion order.
func (s *ScanResultSet) Hosts() []string {
	return slices.Clone(s.order)
}

// Results returns every result in insertion order.
func (s *ScanResultSet) Results() []TargetResult {
	results := make([]TargetResult, 0, len(s.order))
	for _, host := range s.order {
		results = append(results, s.hosts[host])
	}
	return results
}

// Len returns the number of hosts.
func (s *ScanResultSet) Len() int {
	return len(s.order)
}

// OpenPortCount returns the number of open ports across all hosts.
func (s *ScanResultSet) OpenPortCount() int {
	n := 0
	for _, r := range s.hosts {
		n += len(r.OpenPorts)
	}
	return n
}
