package tui

import (
	"strings"
	"testing"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

func TestPushHistory(t *testing.T) {
	var values []int

	values = pushHistory(values, 10)
	values = pushHistory(values, 20)
	if len(values) != 2 || values[0] != 10 || values[1] != 20 {
		t.Fatalf("expected [10 20], got %v", values)
	}

	// Fill to the cap, then one more evicts the oldest.
	values = nil
	for i := 0; i < historyCap; i++ {
		values = pushHistory(values, i)
	}
	if len(values) != historyCap {
		t.Fatalf("expected %d values at cap, got %d", historyCap, len(values))
	}

	values = pushHistory(values, 999)
	if len(values) != historyCap {
		t.Errorf("expected history to stay capped at %d, got %d", historyCap, len(values))
	}
	if values[0] != 1 {
		t.Errorf("expected oldest value evicted, first is %d", values[0])
	}
	if values[len(values)-1] != 999 {
		t.Errorf("expected newest value last, got %d", values[len(values)-1])
	}
}

func TestGaugeFill(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{0, "fill"},
		{50, "fill"},
		{74.9, "fill"},
		{75, "warn"},
		{89.9, "warn"},
		{90, "danger"},
		{100, "danger"},
	}

	for _, tt := range tests {
		style := gaugeFill(tt.pct)
		var got string
		switch style.GetForeground() {
		case gaugeFillStyle.GetForeground():
			got = "fill"
		case gaugeWarnStyle.GetForeground():
			got = "warn"
		case gaugeDangerStyle.GetForeground():
			got = "danger"
		}
		if got != tt.want {
			t.Errorf("gaugeFill(%v) = %s, want %s", tt.pct, got, tt.want)
		}
	}
}

func TestRenderSparkline(t *testing.T) {
	if got := renderSparkline(nil, 10); got != "" {
		t.Errorf("expected empty sparkline for no values, got %q", got)
	}
	if got := renderSparkline([]int{50}, 0); got != "" {
		t.Errorf("expected empty sparkline for zero width, got %q", got)
	}

	tests := []struct {
		value    int
		expected string
	}{
		{0, "▁"},
		{-5, "▁"}, // clamped
		{14, "▁"},
		{15, "▂"},
		{50, "▄"},
		{100, "█"},
		{150, "█"}, // clamped
	}

	for _, tt := range tests {
		got := renderSparkline([]int{tt.value}, 10)
		if !strings.Contains(got, tt.expected) {
			t.Errorf("renderSparkline([%d]) = %q, want to contain %q", tt.value, got, tt.expected)
		}
	}

	// Only the newest values fit the width.
	values := []int{0, 0, 0, 0, 0, 100, 100, 100}
	got := renderSparkline(values, 3)
	if strings.Contains(got, "▁") {
		t.Errorf("expected only newest values rendered, got %q", got)
	}
	if strings.Count(got, "█") != 3 {
		t.Errorf("expected 3 full blocks, got %q", got)
	}
}

func TestRenderPressureBadge(t *testing.T) {
	tests := []struct {
		level    types.PressureLevel
		expected string
	}{
		{types.PressureNormal, "NORMAL"},
		{types.PressureWarning, "WARNING"},
		{types.PressureCritical, "CRITICAL"},
		{types.PressureUnknown, "UNKNOWN"},
	}

	for _, tt := range tests {
		got := renderPressureBadge(types.PressureReading{Level: tt.level})
		if !strings.Contains(got, tt.expected) {
			t.Errorf("renderPressureBadge(%v) = %q, want to contain %q", tt.level, got, tt.expected)
		}
	}
}

func TestRenderBatteryLine(t *testing.T) {
	if got := renderBatteryLine(types.BatteryInfo{Present: false}); got != "" {
		t.Errorf("expected empty line without a battery, got %q", got)
	}

	b := types.BatteryInfo{
		Present:       true,
		Percent:       87,
		State:         "discharging",
		TimeRemaining: "2:41",
		Health:        "Good",
		CycleCount:    123,
	}
	got := renderBatteryLine(b)

	for _, want := range []string{"87%", "discharging", "2:41 remaining", "Good, 123 cycles"} {
		if !strings.Contains(got, want) {
			t.Errorf("battery line %q missing %q", got, want)
		}
	}
}

func TestRenderGauge(t *testing.T) {
	got := renderGauge("Memory", 62, "32 GB of 64 GB", 80)

	if !strings.Contains(got, "Memory") {
		t.Errorf("gauge missing label: %q", got)
	}
	if !strings.Contains(got, "62%") {
		t.Errorf("gauge missing percentage: %q", got)
	}
	if !strings.Contains(got, "32 GB of 64 GB") {
		t.Errorf("gauge missing detail: %q", got)
	}

	// Out-of-range values clamp.
	if got := renderGauge("CPU", 250, "", 80); !strings.Contains(got, "100%") {
		t.Errorf("expected clamp to 100%%, got %q", got)
	}
	if got := renderGauge("CPU", -5, "", 80); !strings.Contains(got, "0%") {
		t.Errorf("expected clamp to 0%%, got %q", got)
	}
}

func TestRenderOverviewSmoke(t *testing.T) {
	sample := types.TelemetrySample{
		Memory: types.ResourceSnapshot{
			Total:       64 << 30,
			Used:        32 << 30,
			Free:        8 << 30,
			Wired:       4 << 30,
			Active:      16 << 30,
			Inactive:    6 << 30,
			Compressed:  2 << 30,
			UsedPercent: 50,
		},
		Pressure: types.PressureReading{Level: types.PressureNormal, FreePercent: 42},
		CPU:      types.CPUInfo{UsagePercent: 18.5, Load1: 2.1, Load5: 1.8, Load15: 1.5, LogicalCPUs: 10},
		Disk:     types.DiskInfo{Mount: "/", Total: 1 << 40, Used: 1 << 39, UsedPercent: 50},
	}

	out := renderOverview(sample, []int{40, 50, 60}, 100, 30)

	for _, want := range []string{"Memory", "Pressure", "NORMAL", "CPU", "Disk", "Wired", "Compressed"} {
		if !strings.Contains(out, want) {
			t.Errorf("overview missing %q", want)
		}
	}
}
