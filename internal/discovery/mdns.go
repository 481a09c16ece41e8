package discovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/wemo/internal/logging"
)

const (
	// MDNSServiceType is the service HomeKit-enabled WeMo firmware advertises
	MDNSServiceType = "_hap._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."
)

// MDNSScanner finds candidate hosts with mDNS and probes each one for a
// WeMo description
type MDNSScanner struct {
	// Timeout is the maximum time to browse for services
	Timeout time.Duration

	// Service is the mDNS service type to browse
	Service string

	// Prober checks each host for a description
	Prober *Prober
}

// NewMDNSScanner creates a new mDNS scanner with default settings
func NewMDNSScanner() *MDNSScanner {
	return &MDNSScanner{
		Timeout: DefaultScanTimeout,
		Service: MDNSServiceType,
		Prober:  NewProber(),
	}
}

// Scan browses for services, then probes every distinct host found.
// The SSDP search target is not used.
func (s *MDNSScanner) Scan(ctx context.Context, _ string) ([]*Entry, error) {
	hosts, err := s.browse(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]*Entry, 0, len(hosts))
	for _, host := range hosts {
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

	logging.LogScanEvent("mdns", s.Service, "scan_finished",
		zap.Int("hosts", len(hosts)),
		zap.Int("entries", len(entries)),
	)
	return entries, nil
}

// browse collects distinct host addresses until the timeout elapses
func (s *MDNSScanner) browse(ctx context.Context) ([]string, error) {
	browseCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	logging.LogScanEvent("mdns", s.Service, "scan_started")

	var mu sync.Mutex
	seen := make(map[string]bool)
	hosts := make([]string, 0)

	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		for entry := range entries {
			host := hostFromServiceEntry(entry)
			if host == "" {
				continue
			}
			mu.Lock()
			if !seen[host] {
				seen[host] = true
				hosts = append(hosts, host)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(browseCtx, s.Service, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-browseCtx.Done()

	// Parent cancellation is an abort; our own timeout is the normal end.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]string(nil), hosts...), nil
}

// hostFromServiceEntry returns the address to probe for an entry, preferring
// IPv4. Returns "" if the entry carries no address.
func hostFromServiceEntry(entry *zeroconf.ServiceEntry) string {
	if entry == nil {
		return ""
	}
	if len(entry.AddrIPv4) > 0 {
		return entry.AddrIPv4[0].String()
	}
	if len(entry.AddrIPv6) > 0 {
		return entry.AddrIPv6[0].String()
	}
	return ""
}
