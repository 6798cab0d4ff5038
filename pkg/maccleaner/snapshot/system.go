package snapshot

import (
	"context"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// CPU returns overall and per-core utilization plus load averages.
// Partial failures degrade the affected fields to zero.
func (r *CommandReader) CPU(ctx context.Context) types.CPUStats {
	var stats types.CPUStats

	if overall, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		r.log.Warn("cpu utilization read failed", "error", err)
	} else if len(overall) > 0 {
		stats.UsagePercent = overall[0]
	}

	if perCore, err := cpu.PercentWithContext(ctx, 0, true); err == nil {
		stats.PerCore = perCore
	}

	if cores, err := cpu.CountsWithContext(ctx, false); err == nil {
		stats.Cores = cores
	}
	if logical, err := cpu.CountsWithContext(ctx, true); err == nil {
		stats.LogicalCPUs = logical
	}

	if avg, err := load.AvgWithContext(ctx); err != nil {
		r.log.Warn("load average read failed", "error", err)
	} else {
		stats.Load1 = avg.Load1
		stats.Load5 = avg.Load5
		stats.Load15 = avg.Load15
	}

	return stats
}

// Disk returns usage of the root filesystem.
func (r *CommandReader) Disk(ctx context.Context) types.DiskStats {
	usage, err := disk.UsageWithContext(ctx, "/")
	if err != nil {
		r.log.Warn("disk usage read failed", "error", err)
		return types.DiskStats{Mount: "/"}
	}

	return types.DiskStats{
		Mount:       usage.Path,
		Fstype:      usage.Fstype,
		Total:       usage.Total,
		Used:        usage.Used,
		Free:        usage.Free,
		UsedPercent: usage.UsedPercent,
	}
}

// Host returns machine identity and uptime. The OS version prefers
// sw_vers over gopsutil's platform version so it matches what the
// About panel shows.
func (r *CommandReader) Host(ctx context.Context) types.HostStats {
	var stats types.HostStats

	if info, err := host.InfoWithContext(ctx); err != nil {
		r.log.Warn("host info read failed", "error", err)
	} else {
		stats.Hostname = info.Hostname
		stats.Platform = info.Platform
		stats.OSVersion = info.PlatformVersion
		stats.Uptime = time.Duration(info.Uptime) * time.Second
		stats.Procs = info.Procs
	}

	if version := r.osVersion(ctx); version != "" {
		stats.OSVersion = version
	}

	return stats
}

// osVersion reads the product version from sw_vers, or "" on failure.
func (r *CommandReader) osVersion(ctx context.Context) string {
	cctx, cancel := context.WithTimeout(ctx, infoTimeout)
	defer cancel()

	out, err := r.run.Output(cctx, "sw_vers", "-productVersion")
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(out))
}
