package snapshot

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

var pageSizePattern = regexp.MustCompile(`page size of (\d+) bytes`)

// defaultPageSize is used when vm_stat omits the header line.
// Apple silicon reports 16384 and Intel 4096; the header is
// authoritative when present.
const defaultPageSize = 4096

// ReadMemorySnapshot reads memory figures from vm_stat, with the
// physical total from sysctl. Returns a zeroed snapshot when either
// source is unavailable or unparseable.
func (r *CommandReader) ReadMemorySnapshot(ctx context.Context) types.ResourceSnapshot {
	cctx, cancel := context.WithTimeout(ctx, infoTimeout)
	defer cancel()

	out, err := r.run.Output(cctx, "vm_stat")
	if err != nil {
		r.log.Warn("vm_stat failed", "error", err)
		return types.ResourceSnapshot{}
	}

	snap, err := ParseVMStat(out, r.totalMemory(ctx))
	if err != nil {
		r.log.Warn("vm_stat output unparseable", "error", err)
		return types.ResourceSnapshot{}
	}

	return snap
}

// totalMemory reads the physical memory size in bytes.
func (r *CommandReader) totalMemory(ctx context.Context) uint64 {
	cctx, cancel := context.WithTimeout(ctx, infoTimeout)
	defer cancel()

	out, err := r.run.Output(cctx, "sysctl", "-n", "hw.memsize")
	if err != nil {
		r.log.Warn("sysctl hw.memsize failed", "error", err)
		return 0
	}

	total, err := strconv.ParseUint(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		r.log.Warn("hw.memsize unparseable", "value", strings.TrimSpace(string(out)))
		return 0
	}

	return total
}

// ParseVMStat converts vm_stat output into a ResourceSnapshot.
//
// The page size comes from the header line ("page size of 16384
// bytes"); each counter line carries a page count with a trailing dot
// ("Pages free:  66522."). Free deliberately counts inactive pages as
// reclaimable:
//
//	free = (free + inactive) * page
//	used = (active + wired + compressed) * page
//
// total is the physical memory size from sysctl; zero leaves
// UsedPercent at zero. Returns ErrSnapshotUnavailable when the output
// carries no page counters at all.
func ParseVMStat(out []byte, total uint64) (types.ResourceSnapshot, error) {
	pageSize := uint64(defaultPageSize)
	if m := pageSizePattern.FindSubmatch(out); m != nil {
		if ps, err := strconv.ParseUint(string(m[1]), 10, 64); err == nil && ps > 0 {
			pageSize = ps
		}
	}

	pages := make(map[string]uint64)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.LastIndex(line, ":")
		if idx < 0 {
			continue
		}

		key := strings.Trim(strings.TrimSpace(line[:idx]), `"`)
		value := strings.TrimSuffix(strings.TrimSpace(line[idx+1:]), ".")
		count, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			continue
		}
		pages[key] = count
	}

	free, haveFree := pages["Pages free"]
	active, haveActive := pages["Pages active"]
	if !haveFree && !haveActive {
		return types.ResourceSnapshot{}, fmt.Errorf("%w: no page counters in vm_stat output", ErrSnapshotUnavailable)
	}

	inactive := pages["Pages inactive"]
	wired := pages["Pages wired down"]
	compressed := pages["Pages occupied by compressor"]

	snap := types.ResourceSnapshot{
		Total:      total,
		Free:       (free + inactive) * pageSize,
		Used:       (active + wired + compressed) * pageSize,
		Wired:      wired * pageSize,
		Active:     active * pageSize,
		Inactive:   inactive * pageSize,
		Compressed: compressed * pageSize,
	}

	if total > 0 {
		pct := int(math.Round(float64(snap.Used) / float64(total) * 100))
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		snap.UsedPercent = pct
	}

	return snap, nil
}
