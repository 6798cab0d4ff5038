package types

import "time"

// Authorization method tags recorded in AuthorizationOutcome.Method.
// These strings are part of the report contract and must not change.
const (
	AuthMethodCached   = "cached-credential"
	AuthMethodPrompted = "prompted-credential"
	AuthMethodDialog   = "native-dialog"
)

// AuthorizationOutcome records which privilege-escalation tier succeeded,
// or the failure of all of them.
type AuthorizationOutcome struct {
	// Success reports whether any tier authorized the operation.
	Success bool `json:"success"`

	// Method is the tag of the tier that succeeded: "cached-credential",
	// "prompted-credential" or "native-dialog". Empty on failure.
	Method string `json:"method,omitempty"`

	// Error is the most specific tier error text when Success is false.
	Error string `json:"error,omitempty"`
}

// Skip reasons recorded in StopResult.SkipReason. These strings are part
// of the report contract and must not change.
const (
	SkipInvalidPID = "invalid pid"
	SkipNotFound   = "not found"
	SkipNotAllowed = "not allowed"
)

// StopResult records the fate of one process-stop candidate in a guarded
// batch: either it was signaled, or the guard that rejected it.
type StopResult struct {
	// PID is the candidate process ID.
	PID int `json:"pid"`

	// Name is the process name when it could be resolved.
	Name string `json:"name,omitempty"`

	// Signaled reports whether SIGTERM was delivered.
	Signaled bool `json:"signaled"`

	// SkipReason is why the candidate was rejected: "invalid pid",
	// "not found" or "not allowed". Empty when Signaled.
	SkipReason string `json:"skip_reason,omitempty"`
}

// ProcessInfo describes one running process from the process directory.
type ProcessInfo struct {
	// PID is the process ID.
	PID int `json:"pid"`

	// Owner is the numeric UID of the owning user.
	Owner int `json:"owner"`

	// User is the owning username when resolvable.
	User string `json:"user,omitempty"`

	// Name is the command name.
	Name string `json:"name"`

	// ResidentBytes is the resident set size in bytes.
	ResidentBytes uint64 `json:"resident_bytes"`

	// CPUPercent is the recent CPU utilization, 0-100 per core.
	CPUPercent float64 `json:"cpu_percent"`
}

// CleanupReport aggregates the outcome of one privileged purge run:
// the reading captured before authorization, the immediate and stabilized
// readings captured after success, the derived byte deltas for both, the
// authorization outcome and any per-candidate stop results.
//
// A report is constructed fresh per invocation, returned once to the
// caller and discarded. Reports are never persisted.
type CleanupReport struct {
	// Before is the reading captured prior to authorization. Always set.
	Before MemoryReading `json:"before"`

	// Immediate is the reading captured right after the privileged
	// operation succeeded. Zero value when the operation failed.
	Immediate MemoryReading `json:"immediate"`

	// Stabilized is the reading captured after the settle interval.
	// Zero value when the operation failed.
	Stabilized MemoryReading `json:"stabilized"`

	// ImmediateFreeGain and ImmediateUsedDrop are the deltas between
	// Before and Immediate, clamped non-negative.
	ImmediateFreeGain uint64 `json:"immediate_free_gain"`
	ImmediateUsedDrop uint64 `json:"immediate_used_drop"`

	// StabilizedFreeGain and StabilizedUsedDrop are the deltas between
	// Before and Stabilized, clamped non-negative.
	StabilizedFreeGain uint64 `json:"stabilized_free_gain"`
	StabilizedUsedDrop uint64 `json:"stabilized_used_drop"`

	// Authorization records which escalation tier succeeded.
	Authorization AuthorizationOutcome `json:"authorization"`

	// Stops holds per-candidate results when the batch variant ran.
	Stops []StopResult `json:"stops,omitempty"`

	// Elapsed is the total wall time of the run, settle included.
	Elapsed time.Duration `json:"elapsed"`
}

// FreeGain returns the increase in free memory from before to after,
// clamped to zero when the figure regressed. Memory figures are noisy;
// an apparent regression is reported as zero gain, never negative.
func FreeGain(before, after ResourceSnapshot) uint64 {
	if after.Free <= before.Free {
		return 0
	}
	return after.Free - before.Free
}

// UsedDrop returns the decrease in used memory from before to after,
// clamped to zero when the figure regressed.
func UsedDrop(before, after ResourceSnapshot) uint64 {
	if before.Used <= after.Used {
		return 0
	}
	return before.Used - after.Used
}
