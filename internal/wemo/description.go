package wemo

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingUDN is returned when a description document has no UDN element
var ErrMissingUDN = errors.New("description has no UDN")

// Description is a UPnP device description document (setup.xml)
type Description struct {
	XMLName xml.Name          `xml:"root"`
	Device  DescriptionDevice `xml:"device"`
}

// DescriptionDevice is the <device> element of a description document.
// Only the fields needed for discovery and display are decoded.
type DescriptionDevice struct {
	DeviceType       string `xml:"deviceType"`
	FriendlyName     string `xml:"friendlyName"`
	Manufacturer     string `xml:"manufacturer"`
	ModelName        string `xml:"modelName"`
	ModelDescription string `xml:"modelDescription"`
	SerialNumber     string `xml:"serialNumber"`
	UDN              string `xml:"UDN"`
	MacAddress       string `xml:"macAddress"`
	FirmwareVersion  string `xml:"firmwareVersion"`
}

// ParseDescription decodes a description document.
// Surrounding whitespace in element text is trimmed.
func ParseDescription(data []byte) (*Description, error) {
	var desc Description
	if err := xml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("failed to parse description: %w", err)
	}

	d := &desc.Device
	for _, field := range []*string{
		&d.DeviceType, &d.FriendlyName, &d.Manufacturer, &d.ModelName,
		&d.ModelDescription, &d.SerialNumber, &d.UDN, &d.MacAddress,
		&d.FirmwareVersion,
	} {
		*field = strings.TrimSpace(*field)
	}

	if d.UDN == "" {
		return nil, ErrMissingUDN
	}
	return &desc, nil
}

// Field returns a device field by its XML element name (e.g., "macAddress")
func (d *Description) Field(name string) (string, bool) {
	if d == nil {
		return "", false
	}
	dev := d.Device
	switch name {
	case "deviceType":
		return dev.DeviceType, true
	case "friendlyName":
		return dev.FriendlyName, true
	case "manufacturer":
		return dev.Manufacturer, true
	case "modelName":
		return dev.ModelName, true
	case "modelDescription":
		return dev.ModelDescription, true
	case "serialNumber":
		return dev.SerialNumber, true
	case "UDN":
		return dev.UDN, true
	case "macAddress":
		return dev.MacAddress, true
	case "firmwareVersion":
		return dev.FirmwareVersion, true
	default:
		return "", false
	}
}

// Match reports whether every filter entry equals the corresponding device
// field. Comparison is exact. A nil description or an unknown field never
// matches.
func (d *Description) Match(filter map[string]string) bool {
	if d == nil {
		return false
	}
	for name, want := range filter {
		got, ok := d.Field(name)
		if !ok || got != want {
			return false
		}
	}
	return true
}
