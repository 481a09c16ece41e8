// Wemo-watch keeps watching the network for Belkin WeMo devices.
//
// It runs discovery on a fixed interval and serves the latest result over
// HTTP and WebSocket. Results can also be published retained to an MQTT
// broker so home automation systems learn device addresses as they change.
//
// Usage:
//
//	wemo-watch serve [flags]
//
// See 'wemo-watch serve --help' for available options.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/wemo/internal/announce"
	"github.com/muurk/wemo/internal/config"
	"github.com/muurk/wemo/internal/discovery"
	"github.com/muurk/wemo/internal/logging"
	"github.com/muurk/wemo/internal/server"
	"github.com/muurk/wemo/internal/version"
	"github.com/muurk/wemo/internal/wemo"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wemo-watch",
	Short: "WeMo discovery daemon",
	Long: `A daemon that repeatedly discovers WeMo devices and shares the results.

The latest device list is served at GET /devices and pushed to WebSocket
clients on GET /ws after every discovery cycle. With --mqtt-broker each
device is also published retained to <prefix>/<MAC>.

For one-off scans, use the separate 'wemo-discover' utility.`,
	Version:      version.Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command flags
var (
	host       string
	port       int
	interval   time.Duration
	certPath   string
	keyPath    string
	logLevel   string
	configPath string

	scanMethod   string
	scanTimeout  time.Duration
	searchTarget string
	localAddr    string
	probeHosts   []string
	recordSeen   bool

	mqttBroker      string
	mqttPrefix      string
	mqttUsername    string
	mqttPassword    string
	mqttQoS         int
	mqttHomeAssist  bool
	mqttDiscoveryNS string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the discovery daemon",
	Long: `Start discovering WeMo devices on an interval and serve the results.

A discovery runs immediately on start. A failed cycle keeps the previous
device list and reports the error in the snapshot. SIGINT or SIGTERM shuts
the daemon down gracefully.`,
	Example: `  # Scan every minute, serve on :8080
  wemo-watch serve

  # Scan every 5 minutes and announce to a local broker
  wemo-watch serve --interval 5m --mqtt-broker tcp://localhost:1883

  # Also publish Home Assistant discovery configs
  wemo-watch serve --mqtt-broker tcp://localhost:1883 --mqtt-homeassistant

  # Serve over HTTPS
  wemo-watch serve --cert cert.pem --key key.pem --port 8443`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&host, "host", "", "Listen address (empty = all interfaces)")
	f.IntVar(&port, "port", 8080, "Listen port")
	f.DurationVar(&interval, "interval", server.DefaultInterval, "Time between discovery cycles")
	f.StringVar(&certPath, "cert", "", "TLS certificate file (serve HTTPS when set with --key)")
	f.StringVar(&keyPath, "key", "", "TLS private key file")
	f.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	f.StringVar(&configPath, "config", "", "Config file (default is the OS config directory)")

	f.StringVar(&scanMethod, "method", discovery.MethodSSDP, "Scan method (ssdp, mdns)")
	f.DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "Scan window per cycle")
	f.StringVar(&searchTarget, "st", "", "SSDP search target (default upnp:rootdevice)")
	f.StringVar(&localAddr, "local-addr", "", "Local address to send SSDP searches from")
	f.StringSliceVar(&probeHosts, "probe", nil, "Probe these hosts instead of scanning (repeatable)")
	f.BoolVar(&recordSeen, "record", false, "Record discovered devices in the config file each cycle")

	f.StringVar(&mqttBroker, "mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883 (disabled if empty)")
	f.StringVar(&mqttPrefix, "mqtt-prefix", announce.DefaultTopicPrefix, "MQTT topic prefix")
	f.StringVar(&mqttUsername, "mqtt-username", "", "MQTT username")
	f.StringVar(&mqttPassword, "mqtt-password", "", "MQTT password")
	f.IntVar(&mqttQoS, "mqtt-qos", 0, "MQTT QoS level (0, 1, 2)")
	f.BoolVar(&mqttHomeAssist, "mqtt-homeassistant", false, "Publish Home Assistant discovery configs")
	f.StringVar(&mqttDiscoveryNS, "mqtt-discovery-prefix", announce.DefaultDiscoveryPrefix, "Home Assistant discovery prefix")
}

func runServe(cmd *cobra.Command, args []string) error {
	if (certPath == "") != (keyPath == "") {
		return fmt.Errorf("both --cert and --key must be provided together, or neither")
	}
	if mqttQoS < 0 || mqttQoS > 2 {
		return fmt.Errorf("invalid --mqtt-qos %d (expected 0, 1 or 2)", mqttQoS)
	}

	if err := logging.Initialize(logLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	registry, err := loadRegistry()
	if err != nil {
		return err
	}

	scanner, err := discovery.NewScanner(discovery.ScannerConfig{
		Method:    scanMethod,
		Timeout:   scanTimeout,
		LocalAddr: localAddr,
		Hosts:     probeHosts,
	})
	if err != nil {
		return err
	}
	discoverer := discovery.NewDiscoverer(scanner)
	opts := discovery.Options{SearchTarget: searchTarget}

	discover := func(ctx context.Context) ([]*wemo.Device, error) {
		devices, err := discoverer.Discover(ctx, opts)
		if err == nil && recordSeen {
			for _, d := range devices {
				registry.RecordDevice(d)
			}
			if serr := saveRegistry(registry); serr != nil {
				return devices, serr
			}
		}
		return devices, err
	}

	var publishers []server.Publisher
	if mqttBroker != "" {
		pub, err := announce.NewMQTTPublisher(announce.Config{
			Broker:          mqttBroker,
			Username:        mqttUsername,
			Password:        mqttPassword,
			TopicPrefix:     mqttPrefix,
			QoS:             byte(mqttQoS),
			HomeAssistant:   mqttHomeAssist,
			DiscoveryPrefix: mqttDiscoveryNS,
		})
		if err != nil {
			return err
		}
		if err := pub.Connect(cmd.Context()); err != nil {
			return err
		}
		defer pub.Close()
		publishers = append(publishers, pub)
	}

	srv, err := server.New(&server.Config{
		Host:     host,
		Port:     port,
		Interval: interval,
		CertPath: certPath,
		KeyPath:  keyPath,
		LogLevel: logLevel,
	}, discover, publishers...)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

func loadRegistry() (*config.Registry, error) {
	var (
		registry *config.Registry
		err      error
	)
	if configPath != "" {
		registry, err = config.LoadRegistryFrom(configPath)
	} else {
		registry, err = config.LoadRegistry()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return registry, nil
}

func saveRegistry(registry *config.Registry) error {
	if configPath != "" {
		return registry.SaveTo(configPath)
	}
	return registry.Save()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "wemo-watch %s\n", version.Full())
	},
}
