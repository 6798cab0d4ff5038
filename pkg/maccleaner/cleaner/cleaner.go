// Package cleaner scans and empties the registry of cleanable targets:
// caches, logs, browser leftovers, developer junk and the Trash. Regular
// targets go to the platform trash or are unlinked directly; admin
// targets run through sudo as fixed argument vectors. Every run is
// recorded in the operation manifest.
package cleaner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/config"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/logging"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/manifest"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/privileged"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/trash"
)

// DefaultAdminTimeout bounds a single privileged removal.
const DefaultAdminTimeout = 2 * time.Minute

// Quick sizes paths without walking them.
type Quick interface {
	SizeAll(ctx context.Context, paths []string) map[string]int64
}

// Remover executes the non-privileged removal modes.
type Remover interface {
	MoveToTrash(ctx context.Context, path string) error
	Remove(path string) error
}

// trashRemover is the production Remover.
type trashRemover struct{}

func (trashRemover) MoveToTrash(ctx context.Context, path string) error {
	return trash.MoveToTrash(ctx, path)
}

func (trashRemover) Remove(path string) error {
	return trash.Remove(path)
}

// Options select the removal mode.
type Options struct {
	// Trash sends items to the platform trash instead of unlinking.
	// Admin and Permanent targets are removed permanently regardless.
	Trash bool

	// DryRun lists what would be removed without touching anything.
	DryRun bool

	// AdminTimeout bounds each privileged removal. Zero takes the
	// package default.
	AdminTimeout time.Duration
}

// DefaultOptions returns the standard mode: send to trash, really clean.
func DefaultOptions() Options {
	return Options{Trash: true}
}

func (o Options) withDefaults() Options {
	if o.AdminTimeout <= 0 {
		o.AdminTimeout = DefaultAdminTimeout
	}
	return o
}

func (o Options) mode() manifest.Mode {
	switch {
	case o.DryRun:
		return manifest.ModeDryRun
	case o.Trash:
		return manifest.ModeTrash
	default:
		return manifest.ModeDelete
	}
}

// Item is one removable path resolved from a target.
type Item struct {
	Path string
	Size int64
}

// TargetReport describes what a single target currently holds.
type TargetReport struct {
	Target    Target
	Items     []Item
	TotalSize int64
}

// Result summarizes one clean run.
type Result struct {
	Mode    manifest.Mode
	Reports []TargetReport

	// Removed lists what was actually taken away. Empty on dry runs.
	Removed []manifest.FileRecord

	// Freed is the byte total of successful removals.
	Freed int64

	// Errors collects per-item failures; the run continues past them.
	Errors []string

	// ManifestID is the recorded journal entry, when a manifest is wired.
	ManifestID string
}

// Cleaner resolves targets to paths, sizes them and removes them.
type Cleaner struct {
	quick   Quick
	exec    privileged.Executor
	remover Remover
	man     *manifest.Manifest
	opts    Options
	log     *logging.Logger

	protected map[string]struct{}
}

// New returns a Cleaner. The manifest may be nil, in which case runs
// are not journaled.
func New(quick Quick, exec privileged.Executor, man *manifest.Manifest, opts Options) *Cleaner {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	protected := make(map[string]struct{})
	for _, p := range protectedPaths(home) {
		protected[p] = struct{}{}
	}
	return &Cleaner{
		quick:     quick,
		exec:      exec,
		remover:   trashRemover{},
		man:       man,
		opts:      opts.withDefaults(),
		log:       logging.Get("cleaner"),
		protected: protected,
	}
}

// Scan resolves each target to its current items and sizes them. Targets
// that resolve to nothing still appear in the result with no items.
// When targets overlap, a path already claimed by an earlier target is
// not reported again.
func (c *Cleaner) Scan(ctx context.Context, targets []Target) ([]TargetReport, error) {
	resolved := make([][]string, len(targets))
	var all []string
	var claimed []string

	for i, t := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, path := range c.resolve(t) {
			if underAny(path, claimed) {
				c.log.Debug("path already claimed by an earlier target", "target", t.ID, "path", path)
				continue
			}
			claimed = append(claimed, path)
			resolved[i] = append(resolved[i], path)
			all = append(all, path)
		}
	}

	sizes := make(map[string]int64)
	if len(all) > 0 {
		sizes = c.quick.SizeAll(ctx, all)
	}

	reports := make([]TargetReport, 0, len(targets))
	for i, t := range targets {
		rep := TargetReport{Target: t}
		for _, path := range resolved[i] {
			item := Item{Path: path, Size: sizes[path]}
			rep.Items = append(rep.Items, item)
			rep.TotalSize += item.Size
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// Clean scans the targets and removes what they resolve to. Per-item
// failures are collected, never fatal. The returned result is non-nil
// whenever scanning succeeded, including on context cancellation, so
// partial work is always reported.
func (c *Cleaner) Clean(ctx context.Context, targets []Target) (*Result, error) {
	reports, err := c.Scan(ctx, targets)
	if err != nil {
		return nil, err
	}

	res := &Result{Mode: c.opts.mode(), Reports: reports}

	if c.opts.DryRun {
		c.log.Info("dry run, nothing removed", "targets", len(targets))
		c.record(res, targets)
		return res, nil
	}

	var cancelled bool
removal:
	for _, rep := range reports {
		for _, item := range rep.Items {
			if ctx.Err() != nil {
				cancelled = true
				break removal
			}
			c.removeItem(ctx, rep.Target, item, res)
		}
	}

	c.record(res, targets)
	if cancelled {
		return res, ctx.Err()
	}
	return res, nil
}

// resolve turns a target's path patterns into concrete removal
// candidates: glob patterns expand to their matches, a directory to its
// children, a file to itself. Missing paths resolve to nothing.
func (c *Cleaner) resolve(t Target) []string {
	var items []string
	for _, pattern := range t.Paths {
		expanded, err := config.ExpandPath(pattern)
		if err != nil {
			c.log.Warn("skipping target path", "target", t.ID, "path", pattern, "error", err)
			continue
		}

		if strings.ContainsAny(expanded, "*?[") {
			matches, err := filepath.Glob(expanded)
			if err != nil {
				c.log.Warn("skipping invalid glob", "target", t.ID, "pattern", expanded, "error", err)
				continue
			}
			items = append(items, matches...)
			continue
		}

		info, err := os.Stat(expanded)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			items = append(items, expanded)
			continue
		}
		entries, err := os.ReadDir(expanded)
		if err != nil {
			c.log.Warn("unreadable target directory", "target", t.ID, "path", expanded, "error", err)
			continue
		}
		for _, e := range entries {
			items = append(items, filepath.Join(expanded, e.Name()))
		}
	}
	return items
}

func (c *Cleaner) removeItem(ctx context.Context, t Target, item Item, res *Result) {
	if _, ok := c.protected[filepath.Clean(item.Path)]; ok {
		msg := fmt.Sprintf("refusing to remove protected path %s", item.Path)
		c.log.Error(msg, "target", t.ID)
		res.Errors = append(res.Errors, msg)
		return
	}

	var err error
	switch {
	case t.RequiresAdmin:
		err = c.adminRemove(ctx, item.Path)
	case c.opts.Trash && !t.Permanent:
		err = c.remover.MoveToTrash(ctx, item.Path)
	default:
		err = c.remover.Remove(item.Path)
	}
	if err != nil {
		c.log.Warn("removal failed", "target", t.ID, "path", item.Path, "error", err)
		res.Errors = append(res.Errors, err.Error())
		return
	}

	c.log.Info("removed", "target", t.ID, "path", item.Path, "size", item.Size)
	res.Removed = append(res.Removed, manifest.FileRecord{
		Path:      item.Path,
		Size:      item.Size,
		RemovedAt: time.Now().UTC(),
	})
	res.Freed += item.Size
}

// adminRemove unlinks a root-owned path through sudo. The path travels
// as an argument vector, never through a shell.
func (c *Cleaner) adminRemove(ctx context.Context, path string) error {
	cctx, cancel := context.WithTimeout(ctx, c.opts.AdminTimeout)
	defer cancel()
	if err := c.exec.NonInteractive(cctx, "rm", "-rf", "--", path); err != nil {
		return fmt.Errorf("admin removal of %s: %w", path, err)
	}
	return nil
}

// record journals the run. Dry runs log the would-be removals with no
// removal times.
func (c *Cleaner) record(res *Result, targets []Target) {
	if c.man == nil {
		return
	}

	ids := make([]string, 0, len(targets))
	for _, t := range targets {
		ids = append(ids, t.ID)
	}

	files := res.Removed
	if res.Mode == manifest.ModeDryRun {
		for _, rep := range res.Reports {
			for _, item := range rep.Items {
				files = append(files, manifest.FileRecord{Path: item.Path, Size: item.Size})
			}
		}
	}

	entry, err := c.man.LogClean(ids, res.Mode, files, res.Errors)
	if err != nil {
		c.log.Warn("manifest record failed", "error", err)
		return
	}
	res.ManifestID = entry.ID
}

// underAny reports whether path equals or lies beneath any of roots.
func underAny(path string, roots []string) bool {
	for _, root := range roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
