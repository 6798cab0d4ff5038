package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// historyCap bounds the sparkline sample history.
const historyCap = 120

// sparkChars are the block characters for the sparkline, lowest first.
var sparkChars = []rune("▁▂▃▄▅▆▇█")

// pushHistory appends a used-percent observation, evicting the oldest
// once the ring is full.
func pushHistory(values []int, v int) []int {
	values = append(values, v)
	if len(values) > historyCap {
		values = values[len(values)-historyCap:]
	}
	return values
}

// gaugeFill returns the style for a gauge's filled portion based on the
// utilization percentage: green below 75, yellow below 90, red above.
func gaugeFill(pct float64) lipgloss.Style {
	switch {
	case pct >= 90:
		return gaugeDangerStyle
	case pct >= 75:
		return gaugeWarnStyle
	default:
		return gaugeFillStyle
	}
}

// renderGauge renders a labeled utilization bar with a detail suffix.
func renderGauge(label string, pct float64, detail string, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	labelStr := padRight(label, 8)
	pctStr := padLeft(fmt.Sprintf("%3.0f%%", pct), 5)

	barWidth := width - len(labelStr) - len(pctStr) - lipgloss.Width(detail) - 6
	if barWidth < 10 {
		barWidth = 10
	}

	filled := int(pct / 100 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	empty := barWidth - filled

	bar := gaugeFill(pct).Render(strings.Repeat("█", filled)) +
		gaugeEmptyStyle.Render(strings.Repeat("░", empty))

	return fmt.Sprintf("  %s %s %s  %s", statsLabelStyle.Render(labelStr), bar, statsValueStyle.Render(pctStr), mutedTextStyle.Render(detail))
}

// renderPressureBadge renders the memory pressure classification badge.
func renderPressureBadge(p types.PressureReading) string {
	label := strings.ToUpper(string(p.Level))
	switch p.Level {
	case types.PressureNormal:
		return badgeNormalStyle.Render(label)
	case types.PressureWarning:
		return badgeWarningStyle.Render(label)
	case types.PressureCritical:
		return badgeCriticalStyle.Render(label)
	default:
		return badgeUnknownStyle.Render(label)
	}
}

// renderSparkline renders a block-character sparkline of used-percent
// history, newest at the right edge.
func renderSparkline(values []int, width int) string {
	if width < 1 || len(values) == 0 {
		return ""
	}

	if len(values) > width {
		values = values[len(values)-width:]
	}

	var b strings.Builder
	for _, v := range values {
		if v < 0 {
			v = 0
		}
		if v > 100 {
			v = 100
		}
		idx := v * (len(sparkChars) - 1) / 100
		b.WriteRune(sparkChars[idx])
	}

	return sparklineStyle.Render(b.String())
}

// renderBatteryLine renders the battery row, or an empty string on
// machines without a battery.
func renderBatteryLine(b types.BatteryInfo) string {
	if !b.Present {
		return ""
	}

	parts := []string{fmt.Sprintf("%d%%", b.Percent)}
	if b.State != "" {
		parts = append(parts, b.State)
	}
	if b.TimeRemaining != "" {
		parts = append(parts, b.TimeRemaining+" remaining")
	}
	if b.Health != "" {
		parts = append(parts, fmt.Sprintf("%s, %d cycles", b.Health, b.CycleCount))
	}

	value := strings.Join(parts, "  ·  ")
	style := statsValueStyle
	switch {
	case b.Percent < 10:
		style = errorTextStyle
	case b.Percent < 25:
		style = warningTextStyle
	}

	return fmt.Sprintf("  %s %s", statsLabelStyle.Render(padRight("Battery", 8)), style.Render(value))
}

// renderOverview renders the overview tab: memory gauge with pressure
// badge, CPU and disk gauges, battery and a used-memory sparkline.
func renderOverview(sample types.TelemetrySample, history []int, width, height int) string {
	var b strings.Builder

	mem := sample.Memory
	memDetail := fmt.Sprintf("%s of %s used, %s free",
		types.FormatBytes(mem.Used), types.FormatBytes(mem.Total), types.FormatBytes(mem.Free))
	b.WriteString(renderGauge("Memory", float64(mem.UsedPercent), memDetail, width))
	b.WriteString("\n")

	pressure := fmt.Sprintf("  %s %s", statsLabelStyle.Render(padRight("Pressure", 8)), renderPressureBadge(sample.Pressure))
	if sample.Pressure.FreePercent >= 0 {
		pressure += mutedTextStyle.Render(fmt.Sprintf("  %d%% system-wide free", sample.Pressure.FreePercent))
	}
	b.WriteString(pressure)
	b.WriteString("\n\n")

	cpu := sample.CPU
	cpuDetail := fmt.Sprintf("load %.2f / %.2f / %.2f on %d cores",
		cpu.Load1, cpu.Load5, cpu.Load15, cpu.LogicalCPUs)
	b.WriteString(renderGauge("CPU", cpu.UsagePercent, cpuDetail, width))
	b.WriteString("\n")

	if disk := sample.Disk; disk.Total > 0 {
		diskDetail := fmt.Sprintf("%s of %s on %s",
			types.FormatBytes(disk.Used), types.FormatBytes(disk.Total), disk.Mount)
		b.WriteString(renderGauge("Disk", disk.UsedPercent, diskDetail, width))
		b.WriteString("\n")
	}

	if battery := renderBatteryLine(sample.Battery); battery != "" {
		b.WriteString(battery)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(renderDivider(width))
	b.WriteString("\n")
	b.WriteString("  " + statsLabelStyle.Render("Memory used, recent samples"))
	b.WriteString("\n")

	spark := renderSparkline(history, width-4)
	if spark == "" {
		b.WriteString("  " + mutedTextStyle.Render("collecting..."))
	} else {
		b.WriteString("  " + spark)
	}
	b.WriteString("\n")

	// Detail figures under the sparkline
	b.WriteString("\n")
	b.WriteString(renderMemoryDetail(mem, width))

	return b.String()
}

// renderMemoryDetail renders the wired/active/inactive/compressed boxes.
func renderMemoryDetail(mem types.ResourceSnapshot, totalWidth int) string {
	boxWidth := (totalWidth - 10) / 4
	if boxWidth < 12 {
		boxWidth = 12
	}

	wired := renderStatBox("Wired", types.FormatBytes(mem.Wired), boxWidth)
	active := renderStatBox("Active", types.FormatBytes(mem.Active), boxWidth)
	inactive := renderStatBox("Inactive", types.FormatBytes(mem.Inactive), boxWidth)
	compressed := renderStatBox("Compressed", types.FormatBytes(mem.Compressed), boxWidth)

	return lipgloss.JoinHorizontal(lipgloss.Top, "  ", wired, " ", active, " ", inactive, " ", compressed)
}

// renderStatBox renders a single bordered stat box.
func renderStatBox(label, value string, width int) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		center(statsLabelStyle.Render(label), width-4),
		center(statsValueStyle.Render(value), width-4))

	return statsBoxStyle.Width(width).Render(content)
}
