// Package ui provides terminal output components for the wemo-discover CLI.
//
// These components follow a "render once and print" pattern: they style
// discovery results for the terminal but never wait for user input. The
// interactive browser lives in package tui.
//
// # Components
//
//   - Header: command banner showing the operation and its parameters
//   - DeviceTable: one row per classified device
//   - Result: success, failure and warning boxes
//
// Example:
//
//	fmt.Println(ui.RenderCommandHeader(ui.HeaderConfig{
//	    Title:   "WeMo Discovery",
//	    Command: "wemo-discover discover",
//	    Params:  map[string]string{"Search target": "upnp:rootdevice"},
//	}))
//	fmt.Println(ui.RenderDeviceTable(devices, ui.GetTerminalWidth()))
//
// # Logging Integration
//
// Logging is controlled via the WEMO_LOG_LEVEL environment variable. When it
// is unset, zap logging is silent and only the styled output is shown.
package ui
