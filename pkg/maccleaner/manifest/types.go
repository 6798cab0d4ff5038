// Package manifest keeps a journal of maintenance operations as JSON
// files, one entry per run.
package manifest

import "time"

// OperationType names the kind of maintenance run an entry records.
type OperationType string

const (
	// OpClean records a clean-target run.
	OpClean OperationType = "clean"
	// OpUninstall records an application removal.
	OpUninstall OperationType = "uninstall"
	// OpPrivacy records a privacy-state clearing run.
	OpPrivacy OperationType = "privacy"
)

// Mode names how files were removed during the run.
type Mode string

const (
	// ModeTrash means files were sent to the platform trash.
	ModeTrash Mode = "trash"
	// ModeDelete means files were unlinked permanently.
	ModeDelete Mode = "delete"
	// ModeDryRun means nothing was removed.
	ModeDryRun Mode = "dry-run"
)

// Entry is a single journal record.
type Entry struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Operation OperationType `json:"operation"`
	// Targets identifies what the run touched: clean-target IDs, the
	// uninstalled application name, or privacy scopes.
	Targets []string     `json:"targets,omitempty"`
	Mode    Mode         `json:"mode"`
	Files   []FileRecord `json:"files"`
	Errors  []string     `json:"errors,omitempty"`
	Summary Summary      `json:"summary"`
}

// FileRecord is one removed (or would-be removed) path.
type FileRecord struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	ModTime   time.Time `json:"mod_time,omitzero"`
	RemovedAt time.Time `json:"removed_at,omitzero"`
}

// Summary aggregates an entry's file list.
type Summary struct {
	TotalFiles int64 `json:"total_files"`
	TotalBytes int64 `json:"total_bytes"`
}
