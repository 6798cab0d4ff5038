//go:build !darwin

package tuner

import "runtime"

// fallbackTotalRAM stands in for the physical memory size on platforms
// without a detector.
const fallbackTotalRAM = 8 * 1024 * 1024 * 1024

// Detect reads CPU and memory resources. Off darwin only the core
// count is real; memory falls back to a fixed figure.
func Detect() (SystemResources, error) {
	return SystemResources{
		CPUCores:     runtime.NumCPU(),
		TotalRAM:     fallbackTotalRAM,
		AvailableRAM: fallbackTotalRAM / 2,
	}, nil
}
