package wemo

import (
	"fmt"
	"net/url"
	"time"
)

const (
	// Manufacturer is the manufacturer string every WeMo description carries
	Manufacturer = "Belkin International Inc."

	// SetupPath is the path of the description document on a WeMo device
	SetupPath = "/setup.xml"
)

// DefaultPorts lists the HTTP ports WeMo firmware serves setup.xml on,
// most common first.
var DefaultPorts = []int{49153, 49152, 49154, 49151, 49155}

// Device is a discovered WeMo device
type Device struct {
	// Kind is the hardware line, derived from the UDN prefix
	Kind Kind `json:"kind" yaml:"kind"`

	// Location is the URL of the device's description document
	// (e.g., "http://10.0.0.5:49153/setup.xml")
	Location string `json:"location" yaml:"location"`

	// MAC is the hardware address as reported by the device (e.g., "AABBCCDDEEFF")
	MAC string `json:"mac" yaml:"mac"`

	// UDN is the unique device name from the description document
	UDN string `json:"udn" yaml:"udn"`

	// FriendlyName, SerialNumber and FirmwareVersion are copied from the
	// description when present
	FriendlyName    string `json:"friendly_name,omitempty" yaml:"friendly_name,omitempty"`
	SerialNumber    string `json:"serial_number,omitempty" yaml:"serial_number,omitempty"`
	FirmwareVersion string `json:"firmware_version,omitempty" yaml:"firmware_version,omitempty"`

	// DiscoveredAt is when the device was classified
	DiscoveredAt time.Time `json:"discovered_at" yaml:"discovered_at"`
}

// NewDevice creates a device handle of the given kind
func NewDevice(kind Kind, location, mac string) *Device {
	return &Device{
		Kind:         kind,
		Location:     location,
		MAC:          mac,
		DiscoveredAt: time.Now(),
	}
}

// DeviceFromUDN classifies udn and builds the matching device handle.
// Returns false when the UDN does not belong to a known WeMo line.
func DeviceFromUDN(udn, mac, location string) (*Device, bool) {
	kind := ClassifyUDN(udn)
	if kind == KindUnknown {
		return nil, false
	}
	device := NewDevice(kind, location, mac)
	device.UDN = udn
	return device, true
}

// DeviceFromDescription builds a device handle from a parsed description,
// copying its descriptive fields.
func DeviceFromDescription(desc *Description, mac, location string) (*Device, bool) {
	if desc == nil {
		return nil, false
	}
	device, ok := DeviceFromUDN(desc.Device.UDN, mac, location)
	if !ok {
		return nil, false
	}
	device.FriendlyName = desc.Device.FriendlyName
	device.SerialNumber = desc.Device.SerialNumber
	device.FirmwareVersion = desc.Device.FirmwareVersion
	return device, true
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	name := d.FriendlyName
	if name == "" {
		name = d.MAC
	}
	return fmt.Sprintf("WeMo %s %q at %s", d.Kind, name, d.Host())
}

// Host returns host:port taken from Location, or Location itself if it
// cannot be parsed
func (d *Device) Host() string {
	u, err := url.Parse(d.Location)
	if err != nil || u.Host == "" {
		return d.Location
	}
	return u.Host
}

// BaseURL returns the scheme and host of the device (e.g., "http://10.0.0.5:49153")
func (d *Device) BaseURL() string {
	u, err := url.Parse(d.Location)
	if err != nil || u.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host)
}
