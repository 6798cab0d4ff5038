// Package tuner detects machine resources and derives worker-pool
// sizing for the directory sizer: how many traversal workers the deep
// scan fans out and how many external sizing commands may run at once.
package tuner

// SystemResources describes the machine the sizer runs on.
type SystemResources struct {
	// CPUCores is the number of logical CPU cores.
	CPUCores int

	// TotalRAM is the physical memory in bytes.
	TotalRAM int64

	// AvailableRAM estimates the memory usable by the scan without
	// pressuring the rest of the system.
	AvailableRAM int64
}
