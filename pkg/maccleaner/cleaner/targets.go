package cleaner

import (
	"path/filepath"
	"strings"
)

// RiskLevel grades how safe a target is to clean.
type RiskLevel string

const (
	// RiskLow marks caches that rebuild themselves.
	RiskLow RiskLevel = "low"
	// RiskMedium marks data whose loss is felt but not harmful.
	RiskMedium RiskLevel = "medium"
	// RiskHigh marks data that cannot be regenerated.
	RiskHigh RiskLevel = "high"
)

// Target is one cleanable category of files.
type Target struct {
	// ID is the stable identifier used on the command line.
	ID string

	// Name is the human-readable title.
	Name string

	// Category groups related targets: user, system, browser, developer.
	Category string

	// Description says what the files are and why removal is safe.
	Description string

	// Paths lists locations to clean. A leading ~ expands to the home
	// directory and glob metacharacters are honored. A plain directory
	// path is cleaned by removing its children, never the directory
	// itself.
	Paths []string

	// Risk grades the target for confirmation prompts.
	Risk RiskLevel

	// RequiresAdmin routes removal through sudo.
	RequiresAdmin bool

	// Permanent bypasses the trash even in trash mode. Emptying the
	// Trash itself is the canonical case.
	Permanent bool
}

// Targets returns the full clean-target registry.
func Targets() []Target {
	return []Target{
		{
			ID:          "user-caches",
			Name:        "User caches",
			Category:    "user",
			Description: "Per-application caches under ~/Library/Caches",
			Paths:       []string{"~/Library/Caches"},
			Risk:        RiskLow,
		},
		{
			ID:          "user-logs",
			Name:        "User logs",
			Category:    "user",
			Description: "Application log files under ~/Library/Logs",
			Paths:       []string{"~/Library/Logs"},
			Risk:        RiskLow,
		},
		{
			ID:          "trash",
			Name:        "Trash",
			Category:    "user",
			Description: "Items currently in the Trash",
			Paths:       []string{"~/.Trash"},
			Risk:        RiskMedium,
			Permanent:   true,
		},
		{
			ID:            "system-logs",
			Name:          "System logs",
			Category:      "system",
			Description:   "Log leftovers under /private/var/log and /Library/Logs",
			Paths:         []string{"/private/var/log", "/Library/Logs"},
			Risk:          RiskMedium,
			RequiresAdmin: true,
		},
		{
			ID:       "safari-cache",
			Name:     "Safari cache",
			Category: "browser",
			Description: "Safari web cache, including the sandboxed " +
				"container copy",
			Paths: []string{
				"~/Library/Caches/com.apple.Safari",
				"~/Library/Containers/com.apple.Safari/Data/Library/Caches",
			},
			Risk: RiskLow,
		},
		{
			ID:          "chrome-cache",
			Name:        "Chrome cache",
			Category:    "browser",
			Description: "Google Chrome web and GPU caches",
			Paths: []string{
				"~/Library/Caches/Google/Chrome",
				"~/Library/Application Support/Google/Chrome/*/GPUCache",
			},
			Risk: RiskLow,
		},
		{
			ID:          "firefox-cache",
			Name:        "Firefox cache",
			Category:    "browser",
			Description: "Mozilla Firefox profile caches (cache2)",
			Paths:       []string{"~/Library/Caches/Firefox/Profiles/*/cache2"},
			Risk:        RiskLow,
		},
		{
			ID:          "xcode-derived-data",
			Name:        "Xcode DerivedData",
			Category:    "developer",
			Description: "Per-project build products; Xcode rebuilds them on demand",
			Paths:       []string{"~/Library/Developer/Xcode/DerivedData"},
			Risk:        RiskLow,
		},
		{
			ID:       "ios-device-support",
			Name:     "iOS device support",
			Category: "developer",
			Description: "Symbol bundles for previously attached devices; " +
				"re-fetched on next attach",
			Paths: []string{"~/Library/Developer/Xcode/iOS DeviceSupport"},
			Risk:  RiskMedium,
		},
		{
			ID:          "cocoapods-cache",
			Name:        "CocoaPods cache",
			Category:    "developer",
			Description: "Downloaded pod specs and archives",
			Paths:       []string{"~/Library/Caches/CocoaPods"},
			Risk:        RiskLow,
		},
		{
			ID:          "npm-cache",
			Name:        "npm cache",
			Category:    "developer",
			Description: "npm content-addressable package cache",
			Paths:       []string{"~/.npm/_cacache"},
			Risk:        RiskLow,
		},
		{
			ID:          "yarn-cache",
			Name:        "Yarn cache",
			Category:    "developer",
			Description: "Yarn package cache",
			Paths:       []string{"~/Library/Caches/Yarn"},
			Risk:        RiskLow,
		},
		{
			ID:          "homebrew-cache",
			Name:        "Homebrew cache",
			Category:    "developer",
			Description: "Downloaded bottles and formula sources",
			Paths:       []string{"~/Library/Caches/Homebrew"},
			Risk:        RiskLow,
		},
		{
			ID:       "docker-data",
			Name:     "Docker VM images",
			Category: "developer",
			Description: "Docker Desktop virtual machine disks; removal " +
				"wipes all local images and containers",
			Paths: []string{"~/Library/Containers/com.docker.docker/Data/vms"},
			Risk:  RiskHigh,
		},
	}
}

// TargetByID looks up a target by its ID, case-insensitively.
func TargetByID(id string) (Target, bool) {
	for _, t := range Targets() {
		if strings.EqualFold(t.ID, id) {
			return t, true
		}
	}
	return Target{}, false
}

// TargetsByCategory returns the targets in a category, case-insensitively.
func TargetsByCategory(category string) []Target {
	var out []Target
	for _, t := range Targets() {
		if strings.EqualFold(t.Category, category) {
			out = append(out, t)
		}
	}
	return out
}

// Categories returns the distinct categories in registry order.
func Categories() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, t := range Targets() {
		if _, ok := seen[t.Category]; ok {
			continue
		}
		seen[t.Category] = struct{}{}
		out = append(out, t.Category)
	}
	return out
}

// protectedPaths returns paths that must never be removed, whatever a
// target resolves to. Targets clean the contents of these directories,
// not the directories themselves.
func protectedPaths(home string) []string {
	roots := []string{
		"/",
		"/Applications",
		"/Library",
		"/System",
		"/Users",
		"/Volumes",
		"/bin",
		"/etc",
		"/private",
		"/private/var",
		"/sbin",
		"/tmp",
		"/usr",
		"/var",
	}
	if home == "" {
		return roots
	}
	return append(roots,
		home,
		filepath.Join(home, "Applications"),
		filepath.Join(home, "Desktop"),
		filepath.Join(home, "Documents"),
		filepath.Join(home, "Downloads"),
		filepath.Join(home, "Library"),
		filepath.Join(home, "Movies"),
		filepath.Join(home, "Music"),
		filepath.Join(home, "Pictures"),
	)
}
