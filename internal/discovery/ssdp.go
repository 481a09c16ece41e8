package discovery

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/koron/go-ssdp"
	"go.uber.org/zap"

	"github.com/muurk/wemo/internal/logging"
	"github.com/muurk/wemo/internal/wemo"
)

const (
	// DefaultSearchTarget is the generic root device search type
	DefaultSearchTarget = ssdp.RootDevice

	// DefaultScanTimeout is how long an SSDP search listens for responses
	DefaultScanTimeout = 5 * time.Second
)

// searchFunc matches ssdp.Search
type searchFunc func(searchType string, waitSec int, localAddr string) ([]ssdp.Service, error)

// SSDPScanner discovers devices with an SSDP M-SEARCH
type SSDPScanner struct {
	// Timeout is how long to listen for responses (rounded up to whole seconds)
	Timeout time.Duration

	// LocalAddr binds the search socket to a local address ("" = any)
	LocalAddr string

	// Fetcher and Parser load each entry's description
	Fetcher Fetcher
	Parser  Parser

	search searchFunc
}

// NewSSDPScanner creates an SSDP scanner with default settings
func NewSSDPScanner() *SSDPScanner {
	return &SSDPScanner{
		Timeout: DefaultScanTimeout,
		Fetcher: NewHTTPFetcher(),
		Parser:  DefaultParser,
		search:  ssdp.Search,
	}
}

// waitSeconds converts Timeout into the MX wait the library expects
func (s *SSDPScanner) waitSeconds() int {
	wait := int(math.Ceil(s.Timeout.Seconds()))
	if wait < 1 {
		wait = 1
	}
	return wait
}

// Scan broadcasts a search for searchTarget and returns one entry per
// distinct description location. A failure to search is returned.
// Descriptions are not fetched here: each entry loads its own the first time
// it is matched, so callers that stop early never fetch the rest. A failed
// load leaves that entry's Description nil.
func (s *SSDPScanner) Scan(ctx context.Context, searchTarget string) ([]*Entry, error) {
	if searchTarget == "" {
		searchTarget = DefaultSearchTarget
	}

	logging.LogScanEvent("ssdp", searchTarget, "scan_started", zap.Int("wait_sec", s.waitSeconds()))

	type searchResult struct {
		services []ssdp.Service
		err      error
	}
	resultChan := make(chan searchResult, 1)

	go func() {
		services, err := s.search(searchTarget, s.waitSeconds(), s.LocalAddr)
		resultChan <- searchResult{services: services, err: err}
	}()

	var services []ssdp.Service
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.err != nil {
			return nil, fmt.Errorf("SSDP search failed: %w", res.err)
		}
		services = res.services
	}

	seen := make(map[string]bool)
	entries := make([]*Entry, 0, len(services))
	for _, svc := range services {
		if svc.Location == "" || seen[svc.Location] {
			continue
		}
		seen[svc.Location] = true

		location := svc.Location
		entry := newLazyEntry(location, func() (*wemo.Description, error) {
			return loadDescription(ctx, s.Fetcher, s.Parser, location)
		})
		entry.SearchTarget = svc.Type
		entry.USN = svc.USN
		entry.Server = svc.Server

		entries = append(entries, entry)
	}

	logging.LogScanEvent("ssdp", searchTarget, "scan_finished",
		zap.Int("responses", len(services)),
		zap.Int("entries", len(entries)),
	)

	return entries, nil
}
