// Package sizer measures disk usage two ways: QuickSizer shells out to
// du for fast per-target totals, and Sizer runs a parallel fastwalk
// deep scan with a size cache for the analyzer.
package sizer

import (
	"fmt"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/cache"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/config"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/tuner"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// Options configures the deep scan.
type Options struct {
	// Root is the starting directory. A leading ~ is expanded by
	// Validate.
	Root string

	// MinSize is the smallest file size in bytes kept in results.
	MinSize int64

	// Exclude lists paths and glob patterns to skip. Plain paths match
	// as prefixes; patterns match the full path or the base name.
	Exclude []string

	// DirWorkers is the traversal concurrency. Zero means auto-tuned.
	DirWorkers int

	// FileWorkers bounds concurrent quick-size commands. Zero means
	// auto-tuned.
	FileWorkers int

	// OnProgress receives throttled progress updates. It must be safe
	// to call from multiple goroutines.
	OnProgress func(types.ScanProgress)

	// Cache is the optional size cache. Nil disables caching.
	Cache *cache.Cache
}

// DefaultOptions returns scan options for an analyzer run over the
// home directory.
func DefaultOptions() Options {
	return Options{
		Root:    config.DefaultAnalyzePath,
		MinSize: 100 * types.MiB,
		Exclude: config.DefaultExclusions,
	}
}

// Validate expands the root and fills missing fields. Worker counts
// left at zero are derived from the machine's resources.
func (o *Options) Validate() error {
	if o.Root == "" {
		o.Root = config.DefaultAnalyzePath
	}
	root, err := config.ExpandPath(o.Root)
	if err != nil {
		return fmt.Errorf("expand scan root: %w", err)
	}
	o.Root = root

	if len(o.Exclude) > 0 {
		// Copied so shared default slices are never rewritten.
		expanded := make([]string, 0, len(o.Exclude))
		for _, pattern := range o.Exclude {
			if p, err := config.ExpandPath(pattern); err == nil {
				pattern = p
			}
			expanded = append(expanded, pattern)
		}
		o.Exclude = expanded
	}

	if o.DirWorkers < 1 || o.FileWorkers < 1 {
		// Detection degrades to CPU-count heuristics on error.
		resources, _ := tuner.Detect()
		derived := tuner.CalculateWithOverrides(resources, o.DirWorkers, o.FileWorkers)
		if o.DirWorkers < 1 {
			o.DirWorkers = derived.DirWorkers
		}
		if o.FileWorkers < 1 {
			o.FileWorkers = derived.FileWorkers
		}
	}

	return nil
}
