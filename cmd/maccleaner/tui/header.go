package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Tab identifies one dashboard tab.
type Tab int

// Dashboard tabs in display order.
const (
	TabOverview Tab = iota
	TabProcesses
	TabLogs
)

// tabLabels are the tab bar captions, indexed by Tab.
var tabLabels = []string{"Overview", "Processes", "Logs"}

// String returns the tab's caption.
func (t Tab) String() string {
	if int(t) < 0 || int(t) >= len(tabLabels) {
		return "?"
	}
	return tabLabels[t]
}

// next returns the tab after t, wrapping around.
func (t Tab) next() Tab {
	return Tab((int(t) + 1) % len(tabLabels))
}

// prev returns the tab before t, wrapping around.
func (t Tab) prev() Tab {
	return Tab((int(t) + len(tabLabels) - 1) % len(tabLabels))
}

// renderAppHeader renders the shared application header: icon, app name,
// telemetry source and sample age. The live indicator shows when readings
// stream from the agent rather than direct probes.
func renderAppHeader(version, source string, sampledAt time.Time, width int) string {
	icon := "🧹"
	appName := titleStyle.Bold(true).Render("MACCLEANER")

	meta := mutedTextStyle.Render("  " + version)
	left := fmt.Sprintf(" %s %s%s", icon, appName, meta)

	if source == "agent" {
		left += successTextStyle.Render("  ● LIVE")
	}

	var right string
	if !sampledAt.IsZero() {
		right = mutedTextStyle.Render(fmt.Sprintf("sampled %s via %s ", sampledAt.Format("15:04:05"), source))
	}

	spacing := width - lipgloss.Width(left) - lipgloss.Width(right)
	if spacing < 1 {
		spacing = 1
	}

	return left + strings.Repeat(" ", spacing) + right
}

// renderTabBar renders the tab row with the active tab highlighted.
func renderTabBar(active Tab) string {
	var parts []string
	for i, label := range tabLabels {
		caption := fmt.Sprintf("%d %s", i+1, label)
		if Tab(i) == active {
			parts = append(parts, activeTabStyle.Render(caption))
		} else {
			parts = append(parts, inactiveTabStyle.Render(caption))
		}
	}
	return " " + strings.Join(parts, " ")
}

// renderKeyHints renders a help bar from key/description pairs.
func renderKeyHints(hints [][2]string) string {
	var parts []string
	for _, h := range hints {
		parts = append(parts, keyStyle.Render("["+h[0]+"]")+" "+keyDescStyle.Render(h[1]))
	}
	return "  " + strings.Join(parts, "  ")
}

// formatDuration formats a duration as M:SS.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d", m, s)
}
