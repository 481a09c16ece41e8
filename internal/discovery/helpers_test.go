package discovery

import (
	"context"
	"fmt"
	"sync"

	"github.com/muurk/wemo/internal/wemo"
)

// fakeFetcher serves description bodies from memory and records every call
type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	errs   map[string]error
	calls  []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		bodies: make(map[string]string),
		errs:   make(map[string]error),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)

	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	body, ok := f.bodies[url]
	if !ok {
		return nil, NewHTTPError(url, 404)
	}
	return []byte(body), nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func setupXML(manufacturer, udn, mac string) string {
	return fmt.Sprintf(`<?xml version="1.0"?>
<root xmlns="urn:Belkin:device-1-0">
  <device>
    <deviceType>urn:Belkin:device:controllee:1</deviceType>
    <friendlyName>Test Device</friendlyName>
    <manufacturer>%s</manufacturer>
    <UDN>%s</UDN>
    <macAddress>%s</macAddress>
  </device>
</root>`, manufacturer, udn, mac)
}

// entryFor builds a scan entry whose description mapping is parsed from body
func entryFor(location, body string) *Entry {
	desc, err := wemo.ParseDescription([]byte(body))
	if err != nil {
		panic(err)
	}
	return &Entry{Location: location, SearchTarget: DefaultSearchTarget, Description: desc}
}

func staticScanner(entries ...*Entry) ScannerFunc {
	return func(context.Context, string) ([]*Entry, error) {
		return entries, nil
	}
}
