//go:build darwin

package tuner

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Detect reads CPU and memory resources. Core count comes from the
// runtime; physical memory from the hw.memsize sysctl.
func Detect() (SystemResources, error) {
	memsize, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return SystemResources{CPUCores: runtime.NumCPU()}, fmt.Errorf("sysctl hw.memsize: %w", err)
	}

	total := int64(memsize)
	return SystemResources{
		CPUCores: runtime.NumCPU(),
		TotalRAM: total,
		// The OS, the file cache and other applications claim a large
		// share; assume half the machine is usable for sizing buffers.
		AvailableRAM: total / 2,
	}, nil
}
