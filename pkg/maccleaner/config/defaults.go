// Package config provides configuration management for MacCleaner.
package config

import "time"

// Default configuration values.
const (
	// DefaultRefreshInterval is how often the dashboard and the agent
	// sampler refresh telemetry.
	DefaultRefreshInterval = 5 * time.Second

	// DefaultSettleDelay is how long the purge runner waits before the
	// stabilized reading.
	DefaultSettleDelay = 12 * time.Second

	// DefaultStopGrace is how long the purge runner waits after
	// signaling stop candidates.
	DefaultStopGrace = 1200 * time.Millisecond

	// DefaultMinSize is the minimum file size to include in analyze scans.
	DefaultMinSize = "100MB"

	// DefaultAnalyzePath is the default path to analyze when none is
	// specified.
	DefaultAnalyzePath = "~"

	// DefaultRetentionDays is the default number of days to retain
	// operation history records.
	DefaultRetentionDays = 30

	// DefaultAgentRetention is how long the agent keeps telemetry
	// samples.
	DefaultAgentRetention = 7 * 24 * time.Hour
)

// DefaultExclusions contains paths excluded from analyze scans by default:
// the sealed system volume, mounted volumes and cloud-synced placeholders.
var DefaultExclusions = []string{
	"/System/Volumes",
	"/Volumes",
	"~/Library/CloudStorage",
}
