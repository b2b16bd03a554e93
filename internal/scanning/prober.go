package scanning

import (
	"context"
	"net"
	"net/netip"
	"strconv"
	"time"

	"github.com/anstrom/portprowler/internal/logging"
	"github.com/anstrom/portprowler/internal/services"
)

// Prober attempts a single connection to one host and port.
type Prober interface {
	// Probe returns within timeout (plus scheduling slack) whatever the
	// network does. Failures of any kind are reported as a closed port.
	Probe(ctx context.Context, host netip.Addr, port uint16, timeout time.Duration) PortOutcome
}

// TCPProber performs TCP connect probes.
type TCPProber struct {
	lookup func(uint16) string
	logger *logging.Logger
}

var _ Prober = (*TCPProber)(nil)

// NewTCPProber creates a prober that names open ports with services.Lookup.
func NewTCPProber(logger *logging.Logger) *TCPProber {
	if logger == nil {
		logger = logging.Default()
	}
	return &TCPProber{
		lookup: services.Lookup,
		logger: logger.WithComponent("prober"),
	}
}

// Probe dials host:port, closing the connection as soon as it is established.
func (p *TCPProber) Probe(ctx context.Context, host netip.Addr, port uint16, timeout time.Duration) PortOutcome {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := net.Dialer{Timeout: timeout}
	address := net.JoinHostPort(host.String(), strconv.Itoa(int(port)))

	conn, err := dialer.DialContext(probeCtx, "tcp", address)
	if err != nil {
		p.logger.Debug("Probe failed", "address", address, "error", err)
		return PortOutcome{Port: port}
	}

	if err := conn.Close(); err != nil {
		p.logger.Debug("Failed to close probe connection", "address", address, "error", err)
	}

	return PortOutcome{
		Port:    port,
		Open:    true,
		Service: p.lookup(port),
	}
}
