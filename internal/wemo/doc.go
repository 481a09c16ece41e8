// Package wemo models Belkin WeMo devices and classifies them from their
// UPnP description documents.
//
// Every WeMo device serves a description document (setup.xml) whose UDN
// element identifies the hardware line:
//
//	uuid:Socket-1_0-221636K0101A2      -> Switch
//	uuid:Lightswitch-1_0-221417K1200... -> LightSwitch
//	uuid:Insight-1_0-231440K1200...     -> Insight
//	uuid:Sensor-1_0-221517K0101...      -> Motion
//	uuid:Maker-1_0-221439K1200...       -> Maker
//	uuid:Bridge-1_0-231437B0100...      -> Bridge
//
// # Usage Example
//
//	desc, err := wemo.ParseDescription(body)
//	if err != nil {
//	    return err
//	}
//
//	device, ok := wemo.DeviceFromUDN(desc.Device.UDN, desc.Device.MacAddress, location)
//	if !ok {
//	    // not a WeMo device we know how to drive
//	}
//
// Classification is a pure function of the UDN string, so it is safe for
// concurrent use.
package wemo
