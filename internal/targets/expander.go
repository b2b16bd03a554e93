// Package targets turns target arguments into the addresses portprowler scans.
// A target is an IP literal, a CIDR block or a hostname.
package targets

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"github.com/anstrom/portprowler/internal/errors"
	"github.com/anstrom/portprowler/internal/logging"
)

const (
	// DefaultMaxHosts bounds how many addresses a single CIDR block may expand to.
	DefaultMaxHosts = 65536

	ipv4Bits = 32
	ipv6Bits = 128

	// Prefixes longer than these keep every address of the block.
	ipv4PointToPoint = 31
	ipv6PointToPoint = 127

	// Blocks with more host bits than this are always too large.
	maxHostBits = 62
)

// Resolver resolves a hostname to a single IPv4 address.
type Resolver interface {
	LookupIPv4(ctx context.Context, host string) (netip.Addr, error)
}

// Expander expands targets. The zero value is not usable; use NewExpander.
type Expander struct {
	resolver Resolver
	maxHosts int
	logger   *logging.Logger
}

// Option configures an Expander.
type Option func(*Expander)

// WithResolver sets the hostname resolver.
func WithResolver(r Resolver) Option {
	return func(e *Expander) {
		if r != nil {
			e.resolver = r
		}
	}
}

// WithMaxHosts sets the CIDR expansion limit.
func WithMaxHosts(n int) Option {
	return func(e *Expander) {
		if n > 0 {
			e.maxHosts = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(e *Expander) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExpander creates an expander that resolves hostnames with the system
// resolver unless WithResolver is given.
func NewExpander(opts ...Option) *Expander {
	e := &Expander{
		resolver: NewSystemResolver(),
		maxHosts: DefaultMaxHosts,
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithComponent("targets")
	return e
}

// MaxHosts returns the CIDR expansion limit.
func (e *Expander) MaxHosts() int {
	return e.maxHosts
}

// Expand returns the addresses for target in ascending order. Errors are
// *errors.TargetError values.
func (e *Expander) Expand(ctx context.Context, target string) ([]netip.Addr, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.NewTargetError(errors.CodeTargetInvalid, "Empty target", target, nil)
	}

	if strings.Contains(target, "/") {
		prefix, err := netip.ParsePrefix(target)
		if err != nil {
			return nil, errors.NewTargetError(errors.CodeTargetInvalid, "Invalid CIDR block", target, err)
		}
		return e.expandPrefix(target, prefix)
	}

	if addr, err := netip.ParseAddr(target); err == nil {
		return []netip.Addr{addr.Unmap()}, nil
	}

	addr, err := e.resolver.LookupIPv4(ctx, target)
	if err != nil {
		e.logger.Debug("Hostname lookup failed", "target", target, "error", err)
		return nil, errors.ErrUnresolvable(target, err)
	}
	e.logger.Debug("Resolved hostname", "target", target, "address", addr.String())
	return []netip.Addr{addr}, nil
}

// expandPrefix lists the usable hosts of prefix. Host bits set in the
// input are ignored.
func (e *Expander) expandPrefix(target string, prefix netip.Prefix) ([]netip.Addr, error) {
	if prefix.Addr().Is4In6() {
		bits := prefix.Bits() - (ipv6Bits - ipv4Bits)
		if bits < 0 {
			return nil, errors.NewTargetError(errors.CodeTargetInvalid, "Invalid CIDR block", target, nil)
		}
		prefix = netip.PrefixFrom(prefix.Addr().Unmap(), bits)
	}
	prefix = prefix.Masked()

	total := ipv4Bits
	pointToPoint := ipv4PointToPoint
	if prefix.Addr().Is6() {
		total = ipv6Bits
		pointToPoint = ipv6PointToPoint
	}

	hostBits := total - prefix.Bits()
	if hostBits > maxHostBits {
		return nil, errors.NewTargetError(errors.CodeTargetTooLarge,
			fmt.Sprintf("CIDR block exceeds the limit of %d hosts", e.maxHosts), target, nil)
	}

	size := uint64(1) << hostBits
	skipFirst, skipLast := false, false
	if prefix.Bits() < pointToPoint {
		skipFirst = true
		skipLast = prefix.Addr().Is4()
	}

	usable := size
	if skipFirst {
		usable--
	}
	if skipLast {
		usable--
	}
	if usable > uint64(e.maxHosts) {
		return nil, errors.NewTargetError(errors.CodeTargetTooLarge,
			fmt.Sprintf("CIDR block has %d hosts, limit is %d", usable, e.maxHosts), target, nil)
	}

	hosts := make([]netip.Addr, 0, usable)
	addr := prefix.Addr()
	for i := uint64(0); i < size; i++ {
		last := i == size-1
		if !(skipFirst && i == 0) && !(skipLast && last) {
			hosts = append(hosts, addr)
		}
		addr = addr.Next()
	}

	e.logger.Debug("Expanded CIDR block", "target", target, "hosts", len(hosts))
	return hosts, nil
}
