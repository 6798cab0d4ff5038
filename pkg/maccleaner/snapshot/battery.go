package snapshot

import (
	"bufio"
	"bytes"
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

var (
	powerSourcePattern   = regexp.MustCompile(`Now drawing from '([^']+)'`)
	batteryPctPattern    = regexp.MustCompile(`(\d+)%`)
	timeRemainingPattern = regexp.MustCompile(`(\d+:\d+) remaining`)
	cycleCountPattern    = regexp.MustCompile(`Cycle Count: (\d+)`)
	conditionPattern     = regexp.MustCompile(`Condition: ([^\n]+)`)
)

// Battery reads battery state from pmset, enriched with health and
// cycle count from system_profiler when a battery is present.
// A machine without a battery yields Present false.
func (r *CommandReader) Battery(ctx context.Context) types.BatteryInfo {
	cctx, cancel := context.WithTimeout(ctx, infoTimeout)
	defer cancel()

	out, err := r.run.Output(cctx, "pmset", "-g", "batt")
	if err != nil {
		r.log.Warn("pmset failed", "error", err)
		return types.BatteryInfo{}
	}

	info := ParsePmsetBattery(out)
	if !info.Present {
		return info
	}

	pctx, pcancel := context.WithTimeout(ctx, profilerTimeout)
	defer pcancel()

	profile, err := r.run.Output(pctx, "system_profiler", "SPPowerDataType")
	if err != nil {
		r.log.Warn("system_profiler failed", "error", err)
		return info
	}

	health, cycles := ParsePowerProfile(profile)
	info.Health = health
	info.CycleCount = cycles

	return info
}

// ParsePmsetBattery parses `pmset -g batt` output.
//
// The first line names the power source ("Now drawing from 'Battery
// Power'"); a following InternalBattery line carries charge, state and
// the time estimate:
//
//	-InternalBattery-0 (id=4522083)  95%; discharging; 4:33 remaining present: true
//
// Output without an InternalBattery line (desktops) yields Present
// false with only Source set.
func ParsePmsetBattery(out []byte) types.BatteryInfo {
	var info types.BatteryInfo

	if m := powerSourcePattern.FindSubmatch(out); m != nil {
		info.Source = string(m[1])
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "InternalBattery") {
			continue
		}

		info.Present = true

		if m := batteryPctPattern.FindStringSubmatch(line); m != nil {
			if pct, err := strconv.Atoi(m[1]); err == nil {
				info.Percent = pct
			}
		}

		// State is the field after the percentage: "95%; discharging; ..."
		if idx := strings.Index(line, "%;"); idx >= 0 {
			rest := line[idx+2:]
			if end := strings.Index(rest, ";"); end >= 0 {
				info.State = strings.TrimSpace(rest[:end])
			} else {
				info.State = strings.TrimSpace(rest)
			}
		}

		if m := timeRemainingPattern.FindStringSubmatch(line); m != nil {
			info.TimeRemaining = m[1]
		}

		break
	}

	return info
}

// ParsePowerProfile extracts the battery condition and cycle count from
// `system_profiler SPPowerDataType` output. Missing fields yield ""
// and 0.
func ParsePowerProfile(out []byte) (health string, cycleCount int) {
	if m := conditionPattern.FindSubmatch(out); m != nil {
		health = strings.TrimSpace(string(m[1]))
	}

	if m := cycleCountPattern.FindSubmatch(out); m != nil {
		if n, err := strconv.Atoi(string(m[1])); err == nil {
			cycleCount = n
		}
	}

	return health, cycleCount
}
