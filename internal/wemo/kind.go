package wemo

import (
	"fmt"
	"strings"
)

// Kind identifies the WeMo hardware line of a device
type Kind int

const (
	KindUnknown Kind = iota
	KindSwitch
	KindLightSwitch
	KindInsight
	KindMotion
	KindMaker
	KindBridge
)

var kindNames = map[Kind]string{
	KindUnknown:     "Unknown",
	KindSwitch:      "Switch",
	KindLightSwitch: "LightSwitch",
	KindInsight:     "Insight",
	KindMotion:      "Motion",
	KindMaker:       "Maker",
	KindBridge:      "Bridge",
}

// udnPrefixes is checked in order; the first matching prefix wins.
var udnPrefixes = []struct {
	prefix string
	kind   Kind
}{
	{"uuid:Socket", KindSwitch},
	{"uuid:Lightswitch", KindLightSwitch},
	{"uuid:Insight", KindInsight},
	{"uuid:Sensor", KindMotion},
	{"uuid:Maker", KindMaker},
	{"uuid:Bridge", KindBridge},
}

// String returns the variant name (e.g. "Switch")
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText encodes the kind by name for YAML and JSON
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind previously encoded with MarshalText
func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown device kind %q", string(text))
}

// Kinds returns every recognized kind in classification order
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(udnPrefixes))
	for _, p := range udnPrefixes {
		kinds = append(kinds, p.kind)
	}
	return kinds
}

// ClassifyUDN maps a UDN to its device kind.
// Returns KindUnknown when no known prefix matches.
func ClassifyUDN(udn string) Kind {
	for _, p := range udnPrefixes {
		if strings.HasPrefix(udn, p.prefix) {
			return p.kind
		}
	}
	return KindUnknown
}
