package config

import (
	"net/url"
	"sort"
	"time"

	"github.com/muurk/wemo/internal/wemo"
)

// Discovery methods accepted in Preferences.Method
const (
	MethodSSDP = "ssdp"
	MethodMDNS = "mdns"
)

// Registry represents the entire user configuration file.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by MAC address
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device is what the registry remembers about one WeMo device
type Device struct {
	Nickname     string    `yaml:"nickname,omitempty"`      // User-friendly name
	Kind         wemo.Kind `yaml:"kind"`                    // Last classified kind
	UDN          string    `yaml:"udn,omitempty"`           // Unique device name
	FriendlyName string    `yaml:"friendly_name,omitempty"` // Name the device reports
	LastLocation string    `yaml:"last_location,omitempty"` // Last description URL
	LastSeen     time.Time `yaml:"last_seen,omitempty"`     // Last discovery time
}

// Preferences holds discovery defaults. Command-line flags override them.
type Preferences struct {
	SearchTarget string `yaml:"search_target,omitempty"` // SSDP ST ("" = upnp:rootdevice)
	ScanTimeout  int    `yaml:"scan_timeout"`            // Scan window in seconds
	MaxDevices   int    `yaml:"max_devices,omitempty"`   // 0 = no limit
	Method       string `yaml:"method"`                  // "ssdp" or "mdns"
}

// DefaultPreferences returns the preferences of a fresh registry
func DefaultPreferences() *Preferences {
	return &Preferences{
		ScanTimeout: 5,
		Method:      MethodSSDP,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Devices:     make(map[string]*Device),
		Preferences: DefaultPreferences(),
	}
}

// GetDevice retrieves device metadata by MAC address.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(mac string) *Device {
	return r.Devices[mac]
}

// EnsureDevice returns the entry for mac, creating it if needed.
func (r *Registry) EnsureDevice(mac string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}

	if device, exists := r.Devices[mac]; exists {
		return device
	}

	device := &Device{}
	r.Devices[mac] = device
	return device
}

// RecordDevice stores the result of a discovery. Devices without a MAC
// address cannot be keyed and are ignored.
func (r *Registry) RecordDevice(d *wemo.Device) {
	if d == nil || d.MAC == "" {
		return
	}
	device := r.EnsureDevice(d.MAC)
	device.Kind = d.Kind
	device.UDN = d.UDN
	device.LastLocation = d.Location
	if d.FriendlyName != "" {
		device.FriendlyName = d.FriendlyName
	}
	device.LastSeen = d.DiscoveredAt
	if device.LastSeen.IsZero() {
		device.LastSeen = time.Now()
	}
}

// SetDeviceNickname sets a user-friendly nickname for a device.
func (r *Registry) SetDeviceNickname(mac, nickname string) {
	device := r.EnsureDevice(mac)
	device.Nickname = nickname
}

// MACs returns the registered MAC addresses in sorted order
func (r *Registry) MACs() []string {
	macs := make([]string, 0, len(r.Devices))
	for mac := range r.Devices {
		macs = append(macs, mac)
	}
	sort.Strings(macs)
	return macs
}

// KnownHosts returns host:port of every device's last location, sorted and
// without duplicates. These can be probed directly when broadcast discovery
// is unavailable.
func (r *Registry) KnownHosts() []string {
	seen := make(map[string]bool)
	hosts := make([]string, 0, len(r.Devices))
	for _, mac := range r.MACs() {
		u, err := url.Parse(r.Devices[mac].LastLocation)
		if err != nil || u.Host == "" || seen[u.Host] {
			continue
		}
		seen[u.Host] = true
		hosts = append(hosts, u.Host)
	}
	sort.Strings(hosts)
	return hosts
}
