package types

import "time"

// ResourceSnapshot is an immutable record of the machine's memory figures
// at one point in time, derived from OS-reported page counts.
//
// Free deliberately counts inactive pages as reclaimable, so
// Used + Free == Total is NOT guaranteed and callers must not assume it.
type ResourceSnapshot struct {
	// Total is the physical memory size in bytes.
	Total uint64 `json:"total"`

	// Used is active + wired + compressed, in bytes.
	Used uint64 `json:"used"`

	// Free is free + inactive, in bytes.
	Free uint64 `json:"free"`

	// Wired is memory that cannot be paged out, in bytes.
	Wired uint64 `json:"wired"`

	// Active is recently referenced memory, in bytes.
	Active uint64 `json:"active"`

	// Inactive is memory not referenced recently, in bytes.
	Inactive uint64 `json:"inactive"`

	// Compressed is memory held by the compressor, in bytes.
	Compressed uint64 `json:"compressed"`

	// UsedPercent is Used as a share of Total, clamped to 0-100.
	UsedPercent int `json:"used_percent"`
}

// PressureLevel classifies system memory pressure.
type PressureLevel string

// Pressure levels reported by the snapshot reader.
const (
	PressureNormal   PressureLevel = "normal"
	PressureWarning  PressureLevel = "warning"
	PressureCritical PressureLevel = "critical"
	PressureUnknown  PressureLevel = "unknown"
)

// Free-percentage thresholds used when the OS does not report a usable
// pressure status string.
const (
	CriticalFreeThreshold = 5
	WarningFreeThreshold  = 12
)

// PressureReading reports system memory pressure. Level is derived from
// the OS-reported status text when available, from FreePercent thresholds
// otherwise, and is PressureUnknown when neither source is usable.
type PressureReading struct {
	// Level is the classified pressure level.
	Level PressureLevel `json:"level"`

	// RawStatus is the status text as reported by the OS, or empty.
	RawStatus string `json:"raw_status,omitempty"`

	// FreePercent is the OS-reported system-wide free percentage,
	// or -1 when the utility did not report one.
	FreePercent int `json:"free_percent"`
}

// ClassifyFreePercent maps a system-wide free percentage to a pressure
// level: critical below 5%, warning below 12%, normal otherwise.
// A negative value means the percentage is unavailable and yields
// PressureUnknown.
func ClassifyFreePercent(freePercent int) PressureLevel {
	switch {
	case freePercent < 0:
		return PressureUnknown
	case freePercent < CriticalFreeThreshold:
		return PressureCritical
	case freePercent < WarningFreeThreshold:
		return PressureWarning
	default:
		return PressureNormal
	}
}

// MemoryReading pairs a memory snapshot with the pressure observed at the
// same moment.
type MemoryReading struct {
	// Snapshot is the memory figures at TakenAt.
	Snapshot ResourceSnapshot `json:"snapshot"`

	// Pressure is the pressure classification at TakenAt.
	Pressure PressureReading `json:"pressure"`

	// TakenAt is when the reading was captured.
	TakenAt time.Time `json:"taken_at"`
}

// CPUStats reports processor utilization and load.
type CPUStats struct {
	// UsagePercent is the overall CPU utilization, 0-100.
	UsagePercent float64 `json:"usage_percent"`

	// PerCore is the per-core utilization, 0-100 each.
	PerCore []float64 `json:"per_core,omitempty"`

	// Load1, Load5 and Load15 are the standard load averages.
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`

	// Cores is the physical core count.
	Cores int `json:"cores"`

	// LogicalCPUs is the logical processor count.
	LogicalCPUs int `json:"logical_cpus"`
}

// DiskStats reports usage of one mounted filesystem.
type DiskStats struct {
	// Mount is the mount point, e.g. "/".
	Mount string `json:"mount"`

	// Fstype is the filesystem type, e.g. "apfs".
	Fstype string `json:"fstype"`

	// Total, Used and Free are byte counts.
	Total uint64 `json:"total"`
	Used  uint64 `json:"used"`
	Free  uint64 `json:"free"`

	// UsedPercent is Used as a share of Total.
	UsedPercent float64 `json:"used_percent"`
}

// BatteryInfo reports battery state. Present is false on machines without
// a battery, in which case the remaining fields are zero values.
type BatteryInfo struct {
	// Present reports whether a battery was detected.
	Present bool `json:"present"`

	// Percent is the charge level, 0-100.
	Percent int `json:"percent"`

	// State is the charging state, e.g. "charging", "discharging",
	// "charged".
	State string `json:"state,omitempty"`

	// TimeRemaining is the OS-reported estimate, e.g. "2:41", or empty
	// when the estimate is unavailable.
	TimeRemaining string `json:"time_remaining,omitempty"`

	// Health is the OS-reported condition, e.g. "Normal".
	Health string `json:"health,omitempty"`

	// CycleCount is the battery charge cycle count.
	CycleCount int `json:"cycle_count,omitempty"`

	// Source is the active power source, e.g. "AC Power" or
	// "Battery Power".
	Source string `json:"source,omitempty"`
}

// HostStats reports identity and uptime of the machine.
type HostStats struct {
	// Hostname is the machine's host name.
	Hostname string `json:"hostname"`

	// Platform is the OS platform, e.g. "darwin".
	Platform string `json:"platform"`

	// OSVersion is the product version, e.g. "14.5".
	OSVersion string `json:"os_version"`

	// Uptime is the time since boot.
	Uptime time.Duration `json:"uptime"`

	// Procs is the number of processes.
	Procs uint64 `json:"procs"`
}

// NetworkPort is one hardware network port as reported by the OS.
type NetworkPort struct {
	// Name is the service name, e.g. "Wi-Fi".
	Name string `json:"name"`

	// Device is the interface device, e.g. "en0".
	Device string `json:"device"`
}

// TelemetrySample is one complete observation of the machine, the unit
// the telemetry agent persists and streams.
type TelemetrySample struct {
	// TakenAt is when the sample was collected.
	TakenAt time.Time `json:"taken_at"`

	// Memory is the memory figures.
	Memory ResourceSnapshot `json:"memory"`

	// Pressure is the memory pressure classification.
	Pressure PressureReading `json:"pressure"`

	// CPU is processor utilization and load.
	CPU CPUStats `json:"cpu"`

	// Disk is usage of the root filesystem.
	Disk DiskStats `json:"disk"`

	// Battery is the battery state.
	Battery BatteryInfo `json:"battery"`
}
