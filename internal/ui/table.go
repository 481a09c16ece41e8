package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/wemo/internal/wemo"
)

// column describes one device table column
type column struct {
	title string
	min   int
	value func(*wemo.Device) string
}

var deviceColumns = []column{
	{"KIND", 11, func(d *wemo.Device) string { return d.Kind.String() }},
	{"NAME", 12, func(d *wemo.Device) string { return d.FriendlyName }},
	{"MAC", 12, func(d *wemo.Device) string { return d.MAC }},
	{"LOCATION", 20, func(d *wemo.Device) string { return d.Location }},
}

// RenderDeviceTable renders devices as an aligned table no wider than width.
// The location column is truncated first when space runs out.
func RenderDeviceTable(devices []*wemo.Device, width int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	widths := make([]int, len(deviceColumns))
	for i, col := range deviceColumns {
		widths[i] = max(col.min, len(col.title))
		for _, d := range devices {
			widths[i] = max(widths[i], lipgloss.Width(col.value(d)))
		}
	}

	// Two spaces between columns plus two of left margin
	used := 2 + 2*(len(deviceColumns)-1)
	for _, w := range widths {
		used += w
	}
	last := len(widths) - 1
	if used > width {
		widths[last] = max(deviceColumns[last].min, widths[last]-(used-width))
	}

	var b strings.Builder
	cells := make([]string, len(deviceColumns))
	for i, col := range deviceColumns {
		cells[i] = TableHeaderStyle.Render(pad(col.title, widths[i]))
	}
	b.WriteString("  " + strings.Join(cells, "  ") + "\n")

	for _, d := range devices {
		for i, col := range deviceColumns {
			text := pad(truncate(col.value(d), widths[i]), widths[i])
			switch col.title {
			case "KIND":
				cells[i] = KindStyle(d.Kind).Render(text)
			case "LOCATION":
				cells[i] = TableMutedCellStyle.Render(text)
			default:
				cells[i] = TableCellStyle.Render(text)
			}
		}
		b.WriteString("  " + strings.Join(cells, "  ") + "\n")
	}

	return b.String()
}

// RenderDeviceCompact renders one line per device using Device.String
func RenderDeviceCompact(devices []*wemo.Device) string {
	var b strings.Builder
	for _, d := range devices {
		fmt.Fprintln(&b, d.String())
	}
	return b.String()
}

func pad(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width || width < 2 {
		return s
	}
	return string(runes[:width-1]) + "…"
}
