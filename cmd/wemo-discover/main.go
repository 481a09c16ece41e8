// Wemo-discover finds Belkin WeMo devices on the local network.
//
// It sends an SSDP search (or browses mDNS), reads each responder's
// setup.xml description and classifies Belkin devices by the prefix of
// their UDN: Switch, LightSwitch, Insight, Motion, Maker or Bridge.
//
// Usage:
//
//	wemo-discover [command] [flags]
//
// Running without arguments performs a discovery with the saved preferences.
// See 'wemo-discover --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wemo/internal/config"
	"github.com/muurk/wemo/internal/logging"
	"github.com/muurk/wemo/internal/version"
)

func main() {
	defer logging.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	logLevel   string
	configPath string

	// registry is loaded before every command runs
	registry *config.Registry
)

var rootCmd = &cobra.Command{
	Use:   "wemo-discover",
	Short: "Discover Belkin WeMo devices on the local network",
	Long: `Discover Belkin WeMo devices on the local network.

Sends an SSDP M-SEARCH, reads each responder's setup.xml and lists the
Belkin devices it can classify (Switch, LightSwitch, Insight, Motion,
Maker, Bridge).

If no command is specified, a discovery runs with the saved preferences.`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiscover(cmd, args)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides "+logging.LogLevelEnvVar)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is the OS config directory)")

	rootCmd.AddCommand(versionCmd)
}

// setup initializes logging and loads the device registry
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if logLevel != "" {
		err = logging.Initialize(logLevel)
	} else {
		err = logging.InitializeFromEnv()
	}
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	if configPath != "" {
		registry, err = config.LoadRegistryFrom(configPath)
	} else {
		registry, err = config.LoadRegistry()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

// saveRegistry writes the registry back to where it was loaded from
func saveRegistry() error {
	if configPath != "" {
		return registry.SaveTo(configPath)
	}
	return registry.Save()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "wemo-discover %s\n", version.Full())
	},
}
