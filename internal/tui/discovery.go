package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/wemo/internal/wemo"
)

// ScanFunc runs one discovery pass
type ScanFunc func(ctx context.Context) ([]*wemo.Device, error)

// ProbeFunc resolves a single host entered by the user
type ProbeFunc func(ctx context.Context, host string) (*wemo.Device, error)

// probeTimeout bounds a manual probe across all candidate ports
const probeTimeout = 20 * time.Second

// Messages for async operations
type scanStartMsg struct{}
type scanCompleteMsg struct {
	devices []*wemo.Device
	err     error
}
type probeCompleteMsg struct {
	host   string
	device *wemo.Device
	err    error
}

// discoveryKeyMap defines key bindings for the device list
type discoveryKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Rescan key.Binding
	Manual key.Binding
	Quit   key.Binding
}

func (k discoveryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Rescan, k.Manual, k.Quit}
}

func (k discoveryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Rescan, k.Manual, k.Quit},
	}
}

// manualModeKeyMap defines key bindings for manual host entry
type manualModeKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

func (m manualModeKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{m.Confirm, m.Cancel}
}

func (m manualModeKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{m.Confirm, m.Cancel}}
}

// scanningKeyMap defines key bindings while a scan runs
type scanningKeyMap struct {
	Quit key.Binding
}

func (s scanningKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{s.Quit}
}

func (s scanningKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{s.Quit}}
}

// deviceItem wraps a Device for use with bubbles/list
type deviceItem struct {
	device *wemo.Device
}

func (d deviceItem) FilterValue() string {
	return d.device.Kind.String() + " " + d.device.FriendlyName + " " + d.device.MAC + " " + d.device.Host()
}

func (d deviceItem) Title() string {
	if d.device.FriendlyName != "" {
		return d.device.FriendlyName
	}
	return "WeMo " + d.device.Kind.String()
}

func (d deviceItem) Description() string {
	return fmt.Sprintf("%s • %s • %s", d.device.Kind, d.device.MAC, d.device.Host())
}

// deviceDelegate renders each device as a card
type deviceDelegate struct {
	width int
}

func (d deviceDelegate) Height() int { return 7 }

func (d deviceDelegate) Spacing() int { return 1 }

func (d deviceDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d deviceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	di, ok := item.(deviceItem)
	if !ok {
		return
	}

	device := di.device
	selected := index == m.Index()

	var content strings.Builder
	if selected {
		content.WriteString(SelectedItemStyle.Render("→ " + di.Title()))
	} else {
		content.WriteString("  " + di.Title())
	}
	content.WriteString("\n\n")

	kindStyle := lipgloss.NewStyle().Foreground(SecondaryColor).Bold(true)
	content.WriteString(fmt.Sprintf("  Kind:     %s\n", kindStyle.Render(device.Kind.String())))
	content.WriteString(fmt.Sprintf("  MAC:      %s\n", device.MAC))
	content.WriteString(fmt.Sprintf("  Location: %s", device.Location))

	cardWidth := d.width - 6 // margin, border and padding
	if cardWidth < MinTerminalWidth-6 {
		cardWidth = MinTerminalWidth - 6
	}
	if cardWidth > MaxContentWidth-6 {
		cardWidth = MaxContentWidth - 6
	}

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 2).
		MarginLeft(2).
		Width(cardWidth)
	if selected {
		cardStyle = cardStyle.BorderForeground(HighlightColor)
	}

	fmt.Fprint(w, cardStyle.Render(content.String()))
}

// DiscoveryModel is the device browser screen state
type DiscoveryModel struct {
	Scanning    bool
	Probing     bool
	DeviceList  list.Model
	Selected    bool
	Err         error
	ScanTimeout time.Duration

	ManualMode bool
	HostInput  textinput.Model

	Width         int
	Height        int
	Spinner       spinner.Model
	ProgressBar   progress.Model
	ScanStartTime time.Time
	Help          help.Model
	Keys          discoveryKeyMap
	ManualKeys    manualModeKeyMap
	ScanningKeys  scanningKeyMap

	scan  ScanFunc
	probe ProbeFunc
}

// NewDiscoveryModel creates the browser. scanTimeout only drives the
// progress bar; scan is expected to bound itself.
func NewDiscoveryModel(scan ScanFunc, probe ProbeFunc, scanTimeout time.Duration) DiscoveryModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	hostInput := textinput.New()
	hostInput.Placeholder = "192.168.1.20 or 192.168.1.20:49153"
	hostInput.CharLimit = 64
	hostInput.Width = 40

	progressBar := progress.New(progress.WithDefaultGradient())
	progressBar.Width = 40

	deviceList := list.New([]list.Item{}, deviceDelegate{width: MinTerminalWidth}, 0, 0)
	deviceList.Title = "Discovered WeMo Devices"
	deviceList.SetShowStatusBar(false)
	deviceList.SetFilteringEnabled(true)
	deviceList.Styles.Title = TitleStyle

	keys := discoveryKeyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
		Enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Rescan: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
		Manual: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "probe host")),
		Quit:   key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
	}

	manualKeys := manualModeKeyMap{
		Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "probe")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}

	scanningKeys := scanningKeyMap{
		Quit: key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	}

	return DiscoveryModel{
		DeviceList:   deviceList,
		ScanTimeout:  scanTimeout,
		HostInput:    hostInput,
		Spinner:      s,
		ProgressBar:  progressBar,
		Help:         help.New(),
		Keys:         keys,
		ManualKeys:   manualKeys,
		ScanningKeys: scanningKeys,
		scan:         scan,
		probe:        probe,
	}
}

// Init starts the first scan
func (m DiscoveryModel) Init() tea.Cmd {
	return m.startScan()
}

func (m DiscoveryModel) startScan() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return scanStartMsg{} },
		m.scanCmd(),
		m.Spinner.Tick,
	)
}

func (m DiscoveryModel) scanCmd() tea.Cmd {
	scan := m.scan
	return func() tea.Msg {
		devices, err := scan(context.Background())
		return scanCompleteMsg{devices: devices, err: err}
	}
}

func (m DiscoveryModel) probeCmd(host string) tea.Cmd {
	probe := m.probe
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()
		device, err := probe(ctx, host)
		return probeCompleteMsg{host: host, device: device, err: err}
	}
}

// Update handles messages and updates the model
func (m DiscoveryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.ManualMode {
			return m.updateManualMode(msg)
		}
		if m.Scanning || m.Probing {
			if msg.String() == "q" {
				return m, tea.Quit
			}
			return m, nil
		}
		return m.updateNormalMode(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.DeviceList.SetDelegate(deviceDelegate{width: msg.Width})
		m.DeviceList.SetWidth(msg.Width - 4)
		m.DeviceList.SetHeight(msg.Height - 8) // header and footer
		return m, nil

	case scanStartMsg:
		m.Scanning = true
		m.ScanStartTime = time.Now()
		return m, nil

	case scanCompleteMsg:
		m.Scanning = false
		m.Err = msg.err
		items := make([]list.Item, 0, len(msg.devices))
		for _, dev := range msg.devices {
			items = append(items, deviceItem{device: dev})
		}
		cmd = m.DeviceList.SetItems(items)
		return m, cmd

	case probeCompleteMsg:
		m.Probing = false
		if msg.err != nil {
			m.Err = fmt.Errorf("probe %s: %w", msg.host, msg.err)
			return m, nil
		}
		m.Err = nil
		items := append([]list.Item{deviceItem{device: msg.device}}, m.DeviceList.Items()...)
		cmd = m.DeviceList.SetItems(items)
		m.DeviceList.Select(0)
		return m, cmd

	case spinner.TickMsg:
		if !m.Scanning && !m.Probing {
			return m, nil
		}
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	m.DeviceList, cmd = m.DeviceList.Update(msg)
	return m, cmd
}

// updateNormalMode handles keyboard input on the device list
func (m DiscoveryModel) updateNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if m.DeviceList.FilterState() == list.Filtering {
		m.DeviceList, cmd = m.DeviceList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Enter):
		if m.DeviceList.SelectedItem() != nil {
			m.Selected = true
			return m, tea.Quit
		}
		return m, nil

	case key.Matches(msg, m.Keys.Rescan):
		m.Err = nil
		cmd = m.DeviceList.SetItems([]list.Item{})
		return m, tea.Batch(cmd, m.startScan())

	case key.Matches(msg, m.Keys.Manual):
		m.ManualMode = true
		m.HostInput.SetValue("")
		return m, m.HostInput.Focus()
	}

	m.DeviceList, cmd = m.DeviceList.Update(msg)
	return m, cmd
}

// updateManualMode handles keyboard input while entering a host
func (m DiscoveryModel) updateManualMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch {
	case key.Matches(msg, m.ManualKeys.Cancel):
		m.ManualMode = false
		m.HostInput.SetValue("")
		m.HostInput.Blur()
		return m, nil

	case key.Matches(msg, m.ManualKeys.Confirm):
		host := strings.TrimSpace(m.HostInput.Value())
		if host == "" {
			return m, nil
		}
		m.ManualMode = false
		m.Probing = true
		m.HostInput.SetValue("")
		m.HostInput.Blur()
		return m, tea.Batch(m.probeCmd(host), m.Spinner.Tick)
	}

	m.HostInput, cmd = m.HostInput.Update(msg)
	return m, cmd
}

// View renders the browser
func (m DiscoveryModel) View() string {
	width := m.Width
	if width == 0 {
		width = MinTerminalWidth
	}

	var content, helpText string
	switch {
	case m.ManualMode:
		content = m.renderManualEntry()
		helpText = m.Help.View(m.ManualKeys)
	case m.Scanning:
		content = m.renderScanning(width)
		helpText = m.Help.View(m.ScanningKeys)
	case m.Probing:
		content = "\n  " + SpinnerStyle.Render(m.Spinner.View()+" Probing host...") + "\n"
		helpText = m.Help.View(m.ScanningKeys)
	default:
		content = m.renderDeviceResults()
		helpText = m.Help.View(m.Keys)
	}

	return RenderApplicationContainer(content, helpText, m.Width, m.Height)
}

// renderScanning renders a centered scanning progress display
func (m DiscoveryModel) renderScanning(width int) string {
	elapsed := time.Since(m.ScanStartTime)

	percent := 0.0
	if m.ScanTimeout > 0 {
		percent = min(1, float64(elapsed)/float64(m.ScanTimeout))
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		TitleStyle.Render(m.Spinner.View()+" SEARCHING FOR DEVICES"),
		SubtitleStyle.Render("Sending SSDP M-SEARCH and reading device descriptions..."),
		"",
		m.ProgressBar.ViewAs(percent),
		"",
		SubtitleStyle.Render(fmt.Sprintf("Elapsed: %ds", int(elapsed.Seconds()))),
		"",
	)

	return lipgloss.Place(width, 0, lipgloss.Center, lipgloss.Top, content)
}

// renderDeviceResults renders the device list or an empty/error notice
func (m DiscoveryModel) renderDeviceResults() string {
	var b strings.Builder
	b.WriteString("\n")

	if m.Err != nil {
		b.WriteString(RenderError(m.Err.Error()))
		b.WriteString("\n\n")
	}

	if len(m.DeviceList.Items()) > 0 {
		b.WriteString(m.DeviceList.View())
		return b.String()
	}

	if m.Err == nil {
		warningStyle := lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
		b.WriteString("  " + warningStyle.Render("⚠ No WeMo devices found on your network"))
		b.WriteString("\n\n")
	}

	b.WriteString("  Troubleshooting:\n")
	b.WriteString("    • Ensure the device is powered on and on this network\n")
	b.WriteString("    • Multicast discovery does not cross subnets or VPNs\n")
	b.WriteString("    • Press 'm' to probe a known address directly\n")
	b.WriteString("    • Press 'r' to rescan\n")

	return b.String()
}

// renderManualEntry renders the manual host entry prompt
func (m DiscoveryModel) renderManualEntry() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(RenderSubtitle("Enter a device address to probe"))
	b.WriteString("\n\n  Host: ")
	b.WriteString(m.HostInput.View())
	b.WriteString("\n")
	return b.String()
}

// SelectedDevice returns the device chosen with enter, or nil
func (m DiscoveryModel) SelectedDevice() *wemo.Device {
	if !m.Selected {
		return nil
	}
	if item, ok := m.DeviceList.SelectedItem().(deviceItem); ok {
		return item.device
	}
	return nil
}
