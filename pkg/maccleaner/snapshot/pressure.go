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

var freePercentPattern = regexp.MustCompile(`System-wide memory free percentage: (\d+)%`)

// ReadPressure reads memory pressure from memory_pressure. Returns an
// unknown reading when the utility is unavailable.
func (r *CommandReader) ReadPressure(ctx context.Context) types.PressureReading {
	cctx, cancel := context.WithTimeout(ctx, infoTimeout)
	defer cancel()

	out, err := r.run.Output(cctx, "memory_pressure")
	if err != nil {
		r.log.Warn("memory_pressure failed", "error", err)
		return types.PressureReading{Level: types.PressureUnknown, FreePercent: -1}
	}

	return ParsePressure(out)
}

// ParsePressure classifies memory_pressure output.
//
// The status line ("The system has memory pressure status: Normal" on
// recent releases) is matched by substring: critical wins over warn,
// warn over normal. When no status text is found the free-percentage
// line ("System-wide memory free percentage: 44%") is classified by
// threshold instead. Output carrying neither yields an unknown reading
// with FreePercent -1.
func ParsePressure(out []byte) types.PressureReading {
	reading := types.PressureReading{
		Level:       types.PressureUnknown,
		FreePercent: -1,
	}

	if m := freePercentPattern.FindSubmatch(out); m != nil {
		if pct, err := strconv.Atoi(string(m[1])); err == nil {
			reading.FreePercent = pct
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lowered := strings.ToLower(line)
		if !strings.Contains(lowered, "pressure") {
			continue
		}

		switch {
		case strings.Contains(lowered, "critical"):
			reading.Level = types.PressureCritical
			reading.RawStatus = line
		case strings.Contains(lowered, "warn"):
			reading.Level = types.PressureWarning
			reading.RawStatus = line
		case strings.Contains(lowered, "normal"):
			reading.Level = types.PressureNormal
			reading.RawStatus = line
		}

		if reading.RawStatus != "" {
			return reading
		}
	}

	// No usable status text; fall back to thresholds on the free
	// percentage when one was reported.
	if reading.FreePercent >= 0 {
		reading.Level = types.ClassifyFreePercent(reading.FreePercent)
	}

	return reading
}
