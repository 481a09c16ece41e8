package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/muurk/wemo/internal/wemo"
)

// Scan methods accepted by NewScanner
const (
	MethodSSDP = "ssdp"
	MethodMDNS = "mdns"
)

// ScannerConfig selects and configures a Scanner
type ScannerConfig struct {
	Method    string        // MethodSSDP (default) or MethodMDNS
	Timeout   time.Duration // Scan window (0 = DefaultScanTimeout)
	LocalAddr string        // SSDP only: local address to bind
	Hosts     []string      // When set, probe these hosts instead of scanning
}

// NewScanner builds the scanner described by cfg
func NewScanner(cfg ScannerConfig) (Scanner, error) {
	if len(cfg.Hosts) > 0 {
		return NewHostScanner(cfg.Hosts), nil
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}

	switch cfg.Method {
	case "", MethodSSDP:
		s := NewSSDPScanner()
		s.Timeout = timeout
		s.LocalAddr = cfg.LocalAddr
		return s, nil
	case MethodMDNS:
		s := NewMDNSScanner()
		s.Timeout = timeout
		return s, nil
	default:
		return nil, fmt.Errorf("unknown scan method %q (expected %s or %s)", cfg.Method, MethodSSDP, MethodMDNS)
	}
}

// ProbeDevice probes a single host and classifies it through the same
// filter and fetch steps as Discover.
func (d *Discoverer) ProbeDevice(ctx context.Context, prober *Prober, host string) (*wemo.Device, error) {
	entry, err := prober.Probe(ctx, host)
	if err != nil {
		return nil, err
	}
	if !entry.MatchDescription(DescriptionFilter("")) {
		return nil, fmt.Errorf("%s: manufacturer %q: %w", host, entry.Description.Device.Manufacturer, ErrUnrecognizedDevice)
	}
	return d.Resolve(ctx, entry.Location, entry.MAC())
}

// ProbeDevice probes host with default settings
func ProbeDevice(ctx context.Context, host string) (*wemo.Device, error) {
	return NewDiscoverer(nil).ProbeDevice(ctx, NewProber(), host)
}
