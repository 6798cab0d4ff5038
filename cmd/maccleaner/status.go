package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/output"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

func newStatusCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show a system health snapshot",
		Long: `Show memory, pressure, CPU, disk and battery at a glance.

Readings come from the background agent when it is running, with a
direct system probe as fallback.`,
		Args: cobra.NoArgs,
		RunE: a.runStatus,
	}
}

func (a *App) runStatus(cmd *cobra.Command, _ []string) error {
	sample, source := a.currentSample(cmd.Context())
	return a.render(statusDocument(sample, source))
}

// currentSample prefers the agent's latest sample and falls back to a
// direct reading when the agent is unreachable or has nothing yet.
func (a *App) currentSample(ctx context.Context) (types.TelemetrySample, string) {
	dialCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if c, err := a.agentClient(dialCtx); err == nil {
		sample, err := c.Status(dialCtx)
		if err == nil {
			return sample, "agent"
		}
		a.printVerbose("agent has no sample: %v", err)
	} else {
		a.printVerbose("agent unreachable: %v", err)
	}

	return a.reader.Sample(ctx), "probe"
}

func statusDocument(s types.TelemetrySample, source string) *output.Document {
	doc := &output.Document{
		Title:   "System Status",
		Payload: s,
	}

	mem := s.Memory
	doc.AddSection("Memory",
		output.Fact{
			Label:  "Used",
			Value:  fmt.Sprintf("%s of %s (%d%%)", types.FormatBytes(mem.Used), types.FormatBytes(mem.Total), mem.UsedPercent),
			Status: usageStatus(float64(mem.UsedPercent)),
		},
		output.Fact{Label: "Free", Value: types.FormatBytes(mem.Free)},
		output.Fact{Label: "Wired", Value: types.FormatBytes(mem.Wired)},
		output.Fact{Label: "Compressed", Value: types.FormatBytes(mem.Compressed)},
		output.Fact{Label: "Pressure", Value: string(s.Pressure.Level), Status: pressureStatus(s.Pressure.Level)},
	)

	cpu := s.CPU
	doc.AddSection("CPU",
		output.Fact{
			Label:  "Usage",
			Value:  fmt.Sprintf("%.1f%%", cpu.UsagePercent),
			Status: usageStatus(cpu.UsagePercent),
		},
		output.Fact{Label: "Load", Value: fmt.Sprintf("%.2f / %.2f / %.2f", cpu.Load1, cpu.Load5, cpu.Load15)},
		output.Fact{Label: "Cores", Value: fmt.Sprintf("%d physical, %d logical", cpu.Cores, cpu.LogicalCPUs)},
	)

	if disk := s.Disk; disk.Total > 0 {
		doc.AddSection("Disk",
			output.Fact{Label: "Mount", Value: disk.Mount},
			output.Fact{
				Label:  "Used",
				Value:  fmt.Sprintf("%s of %s (%.1f%%)", types.FormatBytes(disk.Used), types.FormatBytes(disk.Total), disk.UsedPercent),
				Status: usageStatus(disk.UsedPercent),
			},
			output.Fact{Label: "Free", Value: types.FormatBytes(disk.Free)},
		)
	}

	if b := s.Battery; b.Present {
		facts := []output.Fact{
			{Label: "Charge", Value: fmt.Sprintf("%d%% (%s)", b.Percent, b.State), Status: chargeStatus(b.Percent)},
		}
		if b.Health != "" {
			facts = append(facts, output.Fact{Label: "Health", Value: fmt.Sprintf("%s, %d cycles", b.Health, b.CycleCount)})
		}
		if b.TimeRemaining != "" {
			facts = append(facts, output.Fact{Label: "Remaining", Value: b.TimeRemaining})
		}
		doc.AddSection("Battery", facts...)
	}

	doc.AddSection("",
		output.Fact{Label: "Sampled", Value: fmt.Sprintf("%s via %s", s.TakenAt.Format("15:04:05"), source)},
	)

	return doc
}

// usageStatus grades a 0-100 utilization figure.
func usageStatus(percent float64) output.Status {
	switch {
	case percent >= 90:
		return output.StatusBad
	case percent >= 75:
		return output.StatusWarn
	default:
		return output.StatusGood
	}
}

func pressureStatus(level types.PressureLevel) output.Status {
	switch level {
	case types.PressureNormal:
		return output.StatusGood
	case types.PressureWarning:
		return output.StatusWarn
	case types.PressureCritical:
		return output.StatusBad
	default:
		return output.StatusNone
	}
}

func chargeStatus(percent int) output.Status {
	switch {
	case percent < 10:
		return output.StatusBad
	case percent < 25:
		return output.StatusWarn
	default:
		return output.StatusNone
	}
}
