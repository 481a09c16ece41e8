// Package logging provides structured logging for the WeMo discovery tools.
//
// This package wraps a global zap logger with convenience functions for the
// events discovery produces: scan cycles, description fetches, candidates that
// were skipped and devices that were classified.
//
// # Log Levels
//
//   - Debug: Skipped candidates, raw description bodies, fetch timings
//   - Info: Scan cycles, classified devices, server lifecycle
//   - Warn: Non-fatal issues (publish failures, client drops)
//   - Error: Fatal issues (startup failures, scan failures)
//
// # Silent By Default
//
// Logging is silent unless a level is passed to Initialize or the
// WEMO_LOG_LEVEL environment variable is set. CLI output therefore stays
// clean while discovery internals remain inspectable:
//
//	WEMO_LOG_LEVEL=debug wemo-discover discover
//
// # Structured Logging
//
//	logging.LogDeviceFound(device.Kind.String(), device.Location, device.MAC)
//	logging.LogCandidateSkipped(entry.Location, err)
//
// All logging functions are safe for concurrent use.
package logging
