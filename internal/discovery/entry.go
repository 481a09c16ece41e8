package discovery

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/wemo/internal/logging"
	"github.com/muurk/wemo/internal/wemo"
)

// Entry is a single scan response
type Entry struct {
	// Location is the URL of the device description (SSDP LOCATION header)
	Location string

	// SearchTarget is the ST the device answered with
	SearchTarget string

	// USN is the unique service name the device answered with
	USN string

	// Server is the SERVER header, if any
	Server string

	// Description is the parsed description document. For entries built with
	// a loader it stays nil until first needed, and remains nil when the load
	// fails.
	Description *wemo.Description

	load     func() (*wemo.Description, error)
	loadOnce sync.Once
}

// newLazyEntry returns an entry whose description is fetched with load the
// first time it is matched or its MAC is read
func newLazyEntry(location string, load func() (*wemo.Description, error)) *Entry {
	return &Entry{Location: location, load: load}
}

// LoadDescription returns the entry's description, running the loader at
// most once. Returns nil when there is no description.
func (e *Entry) LoadDescription() *wemo.Description {
	e.loadOnce.Do(func() {
		if e.load == nil || e.Description != nil {
			return
		}
		desc, err := e.load()
		if err != nil {
			logging.Debug("Description unavailable",
				zap.String("location", e.Location),
				zap.Error(err),
			)
			return
		}
		e.Description = desc
	})
	return e.Description
}

// MatchDescription reports whether the entry's description matches every
// field of filter. Entries without a description never match.
func (e *Entry) MatchDescription(filter map[string]string) bool {
	return e.LoadDescription().Match(filter)
}

// MAC returns the hardware address from the description, or "" without one
func (e *Entry) MAC() string {
	desc := e.LoadDescription()
	if desc == nil {
		return ""
	}
	return desc.Device.MacAddress
}

// Scanner produces discovery entries for a search target
type Scanner interface {
	Scan(ctx context.Context, searchTarget string) ([]*Entry, error)
}

// ScannerFunc adapts a function to the Scanner interface
type ScannerFunc func(ctx context.Context, searchTarget string) ([]*Entry, error)

// Scan calls f
func (f ScannerFunc) Scan(ctx context.Context, searchTarget string) ([]*Entry, error) {
	return f(ctx, searchTarget)
}

// Parser decodes a description document
type Parser interface {
	Parse(data []byte) (*wemo.Description, error)
}

// ParserFunc adapts a function to the Parser interface
type ParserFunc func(data []byte) (*wemo.Description, error)

// Parse calls f
func (f ParserFunc) Parse(data []byte) (*wemo.Description, error) {
	return f(data)
}

// DefaultParser parses description documents with wemo.ParseDescription
var DefaultParser Parser = ParserFunc(wemo.ParseDescription)

// loadDescription fetches and parses the description at location
func loadDescription(ctx context.Context, fetcher Fetcher, parser Parser, location string) (*wemo.Description, error) {
	body, err := fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	return parser.Parse(body)
}
