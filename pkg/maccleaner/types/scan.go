package types

import (
	"os"
	"time"
)

// FileInfo contains detailed information about a file found by the
// analyzer. It captures metadata needed for disk analysis including size,
// timestamps, and ownership information.
type FileInfo struct {
	// Path is the absolute path to the file.
	Path string `json:"path"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// ModTime is the last modification time of the file.
	ModTime time.Time `json:"mod_time"`

	// CreateTime is the creation time of the file (may be zero on some systems).
	CreateTime time.Time `json:"create_time,omitempty"`

	// Mode is the file's permission and mode bits.
	Mode os.FileMode `json:"mode"`

	// Owner is the username of the file's owner.
	Owner string `json:"owner"`

	// Group is the group name of the file's group.
	Group string `json:"group"`
}

// HumanSize returns the file size formatted as a human-readable string.
// It uses binary (IEC) units (KiB, MiB, GiB, TiB).
func (f *FileInfo) HumanSize() string {
	return FormatSize(f.Size)
}

// ScanResult contains the aggregated results of a deep scan.
// It includes all discovered files meeting the criteria, statistics about
// the scan, and any errors encountered during the scan.
type ScanResult struct {
	// Files contains all files that matched the scan criteria.
	Files []FileInfo `json:"files"`

	// DirsScanned is the total number of directories traversed.
	DirsScanned int64 `json:"dirs_scanned"`

	// FilesScanned is the total number of files examined.
	FilesScanned int64 `json:"files_scanned"`

	// TotalSize is the sum of all file sizes in bytes.
	TotalSize int64 `json:"total_size"`

	// Elapsed is the total time taken to complete the scan.
	Elapsed time.Duration `json:"elapsed"`

	// CacheHits is the number of subtrees answered from the size cache.
	CacheHits int64 `json:"cache_hits,omitempty"`

	// CacheMisses is the number of subtrees that had to be walked.
	CacheMisses int64 `json:"cache_misses,omitempty"`

	// Errors contains any errors encountered during scanning.
	Errors []ScanError `json:"errors,omitempty"`
}

// ScanError represents an error encountered during scanning.
// It pairs a file path with the error message for debugging and reporting.
type ScanError struct {
	// Path is the file or directory path where the error occurred.
	Path string `json:"path"`

	// Error is the error message describing what went wrong.
	Error string `json:"error"`
}

// ScanOptions configures the deep scan behavior.
// It allows customization of the scan root, size thresholds,
// exclusion patterns, and concurrency settings.
type ScanOptions struct {
	// Root is the starting directory for the scan.
	Root string `json:"root"`

	// MinSize is the minimum file size in bytes to include in results.
	// Files smaller than this are excluded from the results.
	MinSize int64 `json:"min_size"`

	// Exclude contains glob patterns for paths to skip during scanning.
	Exclude []string `json:"exclude"`

	// DirWorkers is the number of concurrent workers for directory traversal.
	DirWorkers int `json:"dir_workers"`

	// FileWorkers is the number of concurrent workers for file stat operations.
	FileWorkers int `json:"file_workers"`
}

// ScanProgress reports real-time scan progress.
// It provides a snapshot of the current scan state for progress reporting.
type ScanProgress struct {
	// DirsScanned is the number of directories processed so far.
	DirsScanned int64 `json:"dirs_scanned"`

	// FilesScanned is the number of files examined so far.
	FilesScanned int64 `json:"files_scanned"`

	// LargeFiles is the number of files found exceeding the minimum size threshold.
	LargeFiles int64 `json:"large_files"`

	// CurrentPath is the path currently being scanned.
	CurrentPath string `json:"current_path"`

	// BytesScanned is the total bytes of all files examined so far.
	BytesScanned int64 `json:"bytes_scanned"`

	// CacheHits is the number of files answered from the size cache.
	CacheHits int64 `json:"cache_hits,omitempty"`

	// CacheMisses is the number of files walked fresh.
	CacheMisses int64 `json:"cache_misses,omitempty"`

	// WalkComplete indicates that directory traversal is finished.
	// The dashboard uses this to freeze the displayed elapsed time.
	WalkComplete bool `json:"walk_complete,omitempty"`
}
