package discovery

import (
	"context"
	"fmt"

	"github.com/muurk/wemo/internal/logging"
	"github.com/muurk/wemo/internal/wemo"
)

// Options controls a discovery run. Zero values select the defaults.
type Options struct {
	// SearchTarget is the SSDP search type ("" = DefaultSearchTarget)
	SearchTarget string

	// MaxDevices stops discovery once this many devices are found (0 = no limit)
	MaxDevices int

	// MatchMAC keeps only the device with this hardware address ("" = any).
	// Compared exactly against the description's macAddress.
	MatchMAC string
}

// Discoverer runs the scan, filter & fetch and classify pipeline
type Discoverer struct {
	Scanner Scanner
	Fetcher Fetcher
	Parser  Parser
}

// NewDiscoverer creates a discoverer around scanner with the default HTTP
// fetcher and XML parser
func NewDiscoverer(scanner Scanner) *Discoverer {
	return &Discoverer{
		Scanner: scanner,
		Fetcher: NewHTTPFetcher(),
		Parser:  DefaultParser,
	}
}

// DescriptionFilter returns the description filter for a run: the Belkin
// manufacturer, plus the hardware address when matchMAC is set
func DescriptionFilter(matchMAC string) map[string]string {
	filter := map[string]string{"manufacturer": wemo.Manufacturer}
	if matchMAC != "" {
		filter["macAddress"] = matchMAC
	}
	return filter
}

// Discover scans, keeps the Belkin entries matching opts, fetches and
// classifies each of them in order. Devices are returned in the order they
// were classified. Only a scan failure (or cancellation of ctx) is returned
// as an error; candidates that fail are skipped, as are nil entries.
// Descriptions of entries past the MaxDevices-th device are never loaded.
func (d *Discoverer) Discover(ctx context.Context, opts Options) ([]*wemo.Device, error) {
	searchTarget := opts.SearchTarget
	if searchTarget == "" {
		searchTarget = DefaultSearchTarget
	}

	entries, err := d.Scanner.Scan(ctx, searchTarget)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	filter := DescriptionFilter(opts.MatchMAC)
	devices := make([]*wemo.Device, 0)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return devices, err
		}

		if entry == nil || !entry.MatchDescription(filter) {
			continue
		}

		device, err := d.Resolve(ctx, entry.Location, entry.MAC())
		if err != nil {
			logging.LogCandidateSkipped(entry.Location, err)
			continue
		}

		logging.LogDeviceFound(device.Kind.String(), device.Location, device.MAC)
		devices = append(devices, device)

		if opts.MaxDevices > 0 && len(devices) >= opts.MaxDevices {
			break
		}
	}

	return devices, nil
}

// Resolve fetches the description at location and classifies it.
// Any error means "no device here".
func (d *Discoverer) Resolve(ctx context.Context, location, mac string) (*wemo.Device, error) {
	desc, err := loadDescription(ctx, d.Fetcher, d.Parser, location)
	if err != nil {
		return nil, err
	}

	device, ok := wemo.DeviceFromDescription(desc, mac, location)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnrecognizedDevice, desc.Device.UDN)
	}
	return device, nil
}

// DiscoverDevices runs an SSDP discovery with default settings
func DiscoverDevices(ctx context.Context, opts Options) ([]*wemo.Device, error) {
	return NewDiscoverer(NewSSDPScanner()).Discover(ctx, opts)
}
