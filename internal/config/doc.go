// Package config provides user configuration for the WeMo discovery tools.
//
// This package manages a YAML file that remembers devices seen by previous
// discovery runs (keyed by MAC address) together with user nicknames and
// discovery preferences. The file location follows OS conventions:
//   - Linux: $XDG_CONFIG_HOME/wemo/config.yaml or $HOME/.config/wemo/config.yaml
//   - macOS: $HOME/.config/wemo/config.yaml
//   - Windows: %LOCALAPPDATA%\wemo\config.yaml
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, device := range devices {
//	    registry.RecordDevice(device)
//	}
//	registry.SetDeviceNickname("AABBCCDDEEFF", "Kitchen Kettle")
//
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File writes are serialized by a mutex and performed atomically.
package config
