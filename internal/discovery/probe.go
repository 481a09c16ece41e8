package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/muurk/wemo/internal/logging"
	"github.com/muurk/wemo/internal/wemo"
)

// DefaultProbeTimeout bounds each port attempt while probing a host
const DefaultProbeTimeout = 3 * time.Second

// Prober looks for a WeMo description on a host without broadcasting
type Prober struct {
	Fetcher Fetcher
	Parser  Parser

	// Ports are tried in order when the host has no explicit port
	Ports []int

	// Timeout bounds each port attempt
	Timeout time.Duration
}

// NewProber creates a prober using the WeMo default ports
func NewProber() *Prober {
	return &Prober{
		Fetcher: NewHTTPFetcher(),
		Parser:  DefaultParser,
		Ports:   wemo.DefaultPorts,
		Timeout: DefaultProbeTimeout,
	}
}

// Probe tries http://host:port/setup.xml on each candidate port and returns
// an entry for the first description that parses. A host given as
// "host:port" is only tried on that port.
func (p *Prober) Probe(ctx context.Context, host string) (*Entry, error) {
	if host == "" {
		return nil, errors.New("empty host")
	}

	hostname := host
	ports := p.Ports
	if h, portStr, err := net.SplitHostPort(host); err == nil {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid port in %q: %w", host, err)
		}
		hostname = h
		ports = []int{port}
	}

	var lastErr error
	for _, port := range ports {
		location := fmt.Sprintf("http://%s%s", net.JoinHostPort(hostname, strconv.Itoa(port)), wemo.SetupPath)

		attemptCtx := ctx
		cancel := func() {}
		if p.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		}
		desc, err := loadDescription(attemptCtx, p.Fetcher, p.Parser, location)
		cancel()

		if err == nil {
			return &Entry{Location: location, Description: desc}, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("no description found on %s: %w", host, lastErr)
}

// ProbeHost probes a single host with default settings
func ProbeHost(ctx context.Context, host string) (*Entry, error) {
	return NewProber().Probe(ctx, host)
}

// HostScanner returns entries for a fixed list of hosts by probing each one.
// Hosts that do not answer are skipped.
type HostScanner struct {
	Hosts  []string
	Prober *Prober
}

// NewHostScanner creates a scanner for the given hosts
func NewHostScanner(hosts []string) *HostScanner {
	return &HostScanner{
		Hosts:  hosts,
		Prober: NewProber(),
	}
}

// Scan probes every host in order. The search target is not used.
func (s *HostScanner) Scan(ctx context.Context, _ string) ([]*Entry, error) {
	logging.LogScanEvent("hosts", "", "scan_started")

	entries := make([]*Entry, 0, len(s.Hosts))
	for _, host := range s.Hosts {
		if err := ctx.Err(); err != nil {
			return entries, err
		}
		entry, err := s.Prober.Probe(ctx, host)
		if err != nil {
			logging.LogCandidateSkipped(host, err)
			continue
		}
		entries = append(entries, entry)
	}

	logging.LogScanEvent("hosts", "", "scan_finished")
	return entries, nil
}
