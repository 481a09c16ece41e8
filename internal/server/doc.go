// Package server implements the wemo-watch daemon.
//
// The server runs WeMo discovery on a fixed interval and keeps the latest
// result as a Snapshot. Clients read it over HTTP or subscribe to updates
// over a WebSocket; optional Publishers (such as the MQTT announcer) receive
// every successful result.
//
// # Endpoints
//
//	GET /devices           latest snapshot as JSON (?kind=Insight filters)
//	GET /ws                WebSocket; current snapshot on connect, then one per cycle
//	GET /healthz           liveness probe
//
// # Snapshot Semantics
//
// A failed discovery cycle keeps the previous device list and records the
// error in the snapshot. Publishers are only invoked for successful cycles.
//
// # Usage Example
//
//	srv, err := server.New(&server.Config{
//	    Host:     "0.0.0.0",
//	    Port:     8080,
//	    Interval: time.Minute,
//	}, discoverFunc, mqttPublisher)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// Start blocks until SIGINT or SIGTERM, then shuts down gracefully: the
// discovery loop stops, WebSocket clients receive a close frame, and in-flight
// HTTP requests are allowed to finish.
package server
