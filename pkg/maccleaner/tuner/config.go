package tuner

// Worker bounds.
const (
	// maxDirWorkers caps the deep-scan traversal pool.
	maxDirWorkers = 64

	// minDirWorkers keeps traversal parallel even on small machines;
	// directory walking is metadata-bound, not CPU-bound.
	minDirWorkers = 4

	// maxFileWorkers caps concurrent external sizing commands. Each
	// one is a full du process hitting the same disk.
	maxFileWorkers = 8

	// minFileWorkers is the floor for concurrent sizing commands.
	minFileWorkers = 2
)

// Progress buffer sizing.
const (
	// bytesPerUpdate estimates the memory behind one buffered progress
	// update (a path string plus counters).
	bytesPerUpdate = 128

	// bufferMemoryFraction is the share of available RAM spent on the
	// progress buffer.
	bufferMemoryFraction = 0.01

	minProgressBuffer = 256
	maxProgressBuffer = 16384
)

// OptimalConfig is the derived worker sizing for the sizer.
type OptimalConfig struct {
	// DirWorkers is the traversal concurrency of the deep scan.
	DirWorkers int

	// FileWorkers bounds concurrent per-target sizing commands.
	FileWorkers int

	// ProgressBuffer is the progress channel capacity.
	ProgressBuffer int
}

// Calculate derives worker sizing from machine resources. Traversal
// workers scale with cores since walking is cheap per item; sizing
// commands stay few since each spawns a process that competes for the
// same disk.
func Calculate(resources SystemResources) OptimalConfig {
	dirWorkers := max(resources.CPUCores, minDirWorkers)
	dirWorkers = min(dirWorkers, maxDirWorkers)

	fileWorkers := max(resources.CPUCores/2, minFileWorkers)
	fileWorkers = min(fileWorkers, maxFileWorkers)

	return OptimalConfig{
		DirWorkers:     dirWorkers,
		FileWorkers:    fileWorkers,
		ProgressBuffer: progressBuffer(resources.AvailableRAM),
	}
}

// CalculateWithOverrides applies explicit worker counts over the
// derived sizing. Zero or negative overrides keep the derived value;
// positive overrides are still capped.
func CalculateWithOverrides(resources SystemResources, dirOverride, fileOverride int) OptimalConfig {
	cfg := Calculate(resources)

	if dirOverride > 0 {
		cfg.DirWorkers = min(dirOverride, maxDirWorkers)
	}
	if fileOverride > 0 {
		cfg.FileWorkers = min(fileOverride, maxFileWorkers)
	}

	return cfg
}

// progressBuffer sizes the progress channel from available memory.
func progressBuffer(availableRAM int64) int {
	entries := int(float64(availableRAM) * bufferMemoryFraction / bytesPerUpdate)
	entries = max(entries, minProgressBuffer)
	entries = min(entries, maxProgressBuffer)
	return entries
}
