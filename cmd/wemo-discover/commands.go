package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/muurk/wemo/internal/discovery"
	"github.com/muurk/wemo/internal/tui"
	"github.com/muurk/wemo/internal/ui"
	"github.com/muurk/wemo/internal/wemo"
)

// Output formats
const (
	formatTable   = "table"
	formatCompact = "compact"
	formatJSON    = "json"
)

// Discovery command flags
var (
	searchTarget string
	maxDevices   int
	matchMAC     string
	scanTimeout  int
	scanMethod   string
	localAddr    string
	hosts        []string
	knownHosts   bool
	outputFormat string
	saveResults  bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", formatTable, "Output format (table, compact, json)")
	rootCmd.PersistentFlags().BoolVar(&saveResults, "save", false, "Record discovered devices in the config file")

	addDiscoveryFlags(rootCmd)
	addDiscoveryFlags(discoverCmd)
	addScanFlags(browseCmd)

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(nameCmd)
	rootCmd.AddCommand(browseCmd)
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Scan window in seconds")
	cmd.Flags().StringVar(&scanMethod, "method", discovery.MethodSSDP, "Scan method (ssdp, mdns)")
	cmd.Flags().StringVar(&localAddr, "local-addr", "", "Local address to send SSDP searches from")
	cmd.Flags().StringVar(&searchTarget, "st", "", "SSDP search target (default upnp:rootdevice)")
}

func addDiscoveryFlags(cmd *cobra.Command) {
	addScanFlags(cmd)
	cmd.Flags().IntVar(&maxDevices, "max", 0, "Stop after this many devices (0 = no limit)")
	cmd.Flags().StringVar(&matchMAC, "mac", "", "Only return the device with this MAC address")
	cmd.Flags().StringSliceVar(&hosts, "host", nil, "Probe these hosts instead of scanning (repeatable)")
	cmd.Flags().BoolVar(&knownHosts, "known", false, "Probe the last known address of every saved device")
}

// discoverCmd runs the scan, filter & fetch and classify pipeline
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover WeMo devices on the network",
	Long: `Discover WeMo devices using SSDP (default) or mDNS.

Every responder's setup.xml is fetched; Belkin devices with a recognised
UDN prefix are listed. Candidates that fail to answer are skipped silently
(set --log-level debug to see why).`,
	Example: `  # Scan for 5 seconds (default)
  wemo-discover discover

  # Stop at the first device
  wemo-discover discover --max 1

  # Find one device by MAC address
  wemo-discover discover --mac 94103E2B1C7A

  # Skip multicast and probe known addresses
  wemo-discover discover --host 192.168.1.20 --host 192.168.1.21:49153

  # JSON output for scripting
  wemo-discover discover --format json`,
	RunE: runDiscover,
}

// applyPreferences fills unset flags from the saved preferences
func applyPreferences(cmd *cobra.Command) {
	prefs := registry.Preferences
	if prefs == nil {
		return
	}
	flags := cmd.Flags()
	if !flags.Changed("st") && prefs.SearchTarget != "" {
		searchTarget = prefs.SearchTarget
	}
	if !flags.Changed("timeout") && prefs.ScanTimeout > 0 {
		scanTimeout = prefs.ScanTimeout
	}
	if flags.Lookup("max") != nil && !flags.Changed("max") && prefs.MaxDevices > 0 {
		maxDevices = prefs.MaxDevices
	}
	if !flags.Changed("method") && prefs.Method != "" {
		scanMethod = prefs.Method
	}
}

func newScanner() (discovery.Scanner, error) {
	targets := hosts
	if knownHosts {
		targets = append(targets, registry.KnownHosts()...)
		if len(targets) == 0 {
			return nil, errors.New("no saved devices to probe; run a discovery with --save first")
		}
	}
	return discovery.NewScanner(discovery.ScannerConfig{
		Method:    scanMethod,
		Timeout:   time.Duration(scanTimeout) * time.Second,
		LocalAddr: localAddr,
		Hosts:     targets,
	})
}

func runDiscover(cmd *cobra.Command, args []string) error {
	applyPreferences(cmd)

	scanner, err := newScanner()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	if outputFormat == formatTable && ui.IsTerminal() {
		fmt.Fprintln(out, ui.RenderCommandHeader(ui.HeaderConfig{
			Title:   "WeMo Discovery",
			Command: cmd.CommandPath(),
			Params:  scanParams(),
		}))
	}

	start := time.Now()
	devices, err := discovery.NewDiscoverer(scanner).Discover(ctx, discovery.Options{
		SearchTarget: searchTarget,
		MaxDevices:   maxDevices,
		MatchMAC:     matchMAC,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		if outputFormat == formatTable {
			fmt.Fprintln(out, ui.RenderFailure("Discovery failed", err, ui.DiscoveryTroubleshooting))
		}
		return err
	}

	if err := printDevices(out, devices); err != nil {
		return err
	}

	if saveResults {
		if err := recordDevices(devices); err != nil {
			return err
		}
	}

	if outputFormat == formatTable {
		printSummary(out, devices, time.Since(start))
	}
	return nil
}

func scanParams() map[string]string {
	params := map[string]string{
		"Method":  scanMethod,
		"Timeout": fmt.Sprintf("%ds", scanTimeout),
	}
	if len(hosts) > 0 || knownHosts {
		params["Method"] = "probe"
	}
	if searchTarget != "" {
		params["Search target"] = searchTarget
	}
	if maxDevices > 0 {
		params["Max devices"] = fmt.Sprint(maxDevices)
	}
	if matchMAC != "" {
		params["MAC"] = matchMAC
	}
	return params
}

func printDevices(out io.Writer, devices []*wemo.Device) error {
	switch outputFormat {
	case formatJSON:
		data, err := json.MarshalIndent(devices, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
	case formatCompact:
		fmt.Fprint(out, ui.RenderDeviceCompact(devices))
	case formatTable:
		if len(devices) > 0 {
			fmt.Fprint(out, ui.RenderDeviceTable(devices, ui.GetTerminalWidth()))
		}
	default:
		return fmt.Errorf("unknown format %q (expected table, compact or json)", outputFormat)
	}
	return nil
}

func printSummary(out io.Writer, devices []*wemo.Device, elapsed time.Duration) {
	if len(devices) == 0 {
		fmt.Fprintln(out, ui.NewWarningResult("No WeMo devices found", ui.DiscoveryTroubleshooting).Render())
		return
	}

	result := ui.NewSuccessResult(fmt.Sprintf("%d device(s) found", len(devices))).
		AddDetail("Elapsed", elapsed.Round(100*time.Millisecond).String())
	if saveResults {
		result.AddDetail("Saved to", savedPath())
	}
	fmt.Fprintln(out, result.Render())
}

func savedPath() string {
	if configPath != "" {
		return configPath
	}
	return "config file"
}

func recordDevices(devices []*wemo.Device) error {
	for _, d := range devices {
		registry.RecordDevice(d)
	}
	if err := saveRegistry(); err != nil {
		return fmt.Errorf("failed to save devices: %w", err)
	}
	return nil
}

// probeCmd classifies a single host without scanning
var probeCmd = &cobra.Command{
	Use:   "probe <host>",
	Short: "Probe one host for a WeMo description",
	Long: `Fetch setup.xml from a single host and classify it.

Without a port, the usual WeMo ports are tried in order (49153, 49152,
49154, 49151, 49155).`,
	Example: `  wemo-discover probe 192.168.1.20
  wemo-discover probe 192.168.1.20:49153 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func runProbe(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	device, err := discovery.ProbeDevice(cmd.Context(), args[0])
	if err != nil {
		if outputFormat == formatTable {
			fmt.Fprintln(out, ui.RenderFailure("Probe failed", err, []string{
				"Check the address and that the device is powered on",
				"WeMo firmware moves between ports 49151-49155 after reboots",
			}))
		}
		return err
	}

	devices := []*wemo.Device{device}
	if err := printDevices(out, devices); err != nil {
		return err
	}
	if saveResults {
		return recordDevices(devices)
	}
	return nil
}

// listCmd shows the devices saved in the config file
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List devices saved in the config file",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if outputFormat == formatJSON {
		data, err := json.MarshalIndent(registry.Devices, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	macs := registry.MACs()
	if len(macs) == 0 {
		fmt.Fprintln(out, "No saved devices. Run 'wemo-discover discover --save' first.")
		return nil
	}

	devices := make([]*wemo.Device, 0, len(macs))
	for _, mac := range macs {
		saved := registry.GetDevice(mac)
		name := saved.Nickname
		if name == "" {
			name = saved.FriendlyName
		}
		devices = append(devices, &wemo.Device{
			Kind:         saved.Kind,
			MAC:          mac,
			UDN:          saved.UDN,
			FriendlyName: name,
			Location:     saved.LastLocation,
			DiscoveredAt: saved.LastSeen,
		})
	}
	sort.SliceStable(devices, func(i, j int) bool { return devices[i].Kind < devices[j].Kind })

	return printDevices(out, devices)
}

// nameCmd sets a nickname on a saved device
var nameCmd = &cobra.Command{
	Use:     "name <mac> <nickname>",
	Short:   "Give a saved device a nickname",
	Example: `  wemo-discover name 94103E2B1C7A "Kitchen Kettle"`,
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mac := strings.ToUpper(args[0])
		if registry.GetDevice(mac) == nil {
			return fmt.Errorf("no saved device with MAC %s", mac)
		}
		registry.SetDeviceNickname(mac, strings.Join(args[1:], " "))
		if err := saveRegistry(); err != nil {
			return fmt.Errorf("failed to save nickname: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %q\n", mac, registry.GetDevice(mac).Nickname)
		return nil
	},
}

// browseCmd launches the interactive device browser
var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse devices interactively",
	Long: `Launch an interactive browser that scans for WeMo devices, lets you
probe addresses by hand and prints the device you select.`,
	RunE: runBrowse,
}

func runBrowse(cmd *cobra.Command, args []string) error {
	applyPreferences(cmd)

	scanner, err := newScanner()
	if err != nil {
		return err
	}
	discoverer := discovery.NewDiscoverer(scanner)

	scan := func(ctx context.Context) ([]*wemo.Device, error) {
		return discoverer.Discover(ctx, discovery.Options{SearchTarget: searchTarget})
	}
	probe := func(ctx context.Context, host string) (*wemo.Device, error) {
		return discoverer.ProbeDevice(ctx, discovery.NewProber(), host)
	}

	model := tui.NewDiscoveryModel(scan, probe, time.Duration(scanTimeout)*time.Second)
	final, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	if err != nil {
		return fmt.Errorf("browser failed: %w", err)
	}

	m, ok := final.(tui.DiscoveryModel)
	if !ok {
		return nil
	}
	device := m.SelectedDevice()
	if device == nil {
		return nil
	}

	if err := printDevices(cmd.OutOrStdout(), []*wemo.Device{device}); err != nil {
		return err
	}
	if saveResults {
		return recordDevices([]*wemo.Device{device})
	}
	return nil
}
