package sizer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/gobwas/glob"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/cache"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/logging"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// Sizer walks a directory tree in parallel and collects every file at
// or above the size threshold.
type Sizer struct {
	opts Options
	log  *logging.Logger

	excludes []excludeRule

	// Counters shared across walk goroutines.
	dirsScanned  atomic.Int64
	filesScanned atomic.Int64
	largeFiles   atomic.Int64
	bytesScanned atomic.Int64
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64

	currentPath  atomic.Value
	lastProgress atomic.Int64
	walkComplete atomic.Bool

	// mu guards results and errs.
	mu      sync.Mutex
	results []types.FileInfo
	errs    []types.ScanError

	// cacheMu guards entries and children, collected during the walk
	// and flushed to the cache afterwards. Keys are root-relative.
	cacheMu  sync.Mutex
	entries  map[string]*cache.Entry
	children map[string][]string

	// root is the resolved absolute path being scanned.
	root string
}

// New builds a Sizer. Missing option fields are filled with tuned
// defaults.
func New(opts Options) (*Sizer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	s := &Sizer{
		opts:    opts,
		log:     logging.Get("sizer"),
		results: make([]types.FileInfo, 0),
		errs:    make([]types.ScanError, 0),
	}
	s.excludes = compileExcludes(opts.Exclude, s.log)
	s.currentPath.Store("")
	return s, nil
}

// Scan walks the tree and returns the result. It blocks until the walk
// finishes or ctx is cancelled; a cancelled scan returns the partial
// results collected so far.
func (s *Sizer) Scan(ctx context.Context) (*types.ScanResult, error) {
	start := time.Now()

	root, err := s.resolveRoot()
	if err != nil {
		return nil, err
	}
	s.root = root

	s.currentPath.Store(root)
	s.reportProgressForce()

	staleDirs, early := s.consultCache(start)
	if early != nil {
		return early, nil
	}

	if s.opts.Cache != nil {
		s.entries = make(map[string]*cache.Entry)
		s.children = make(map[string][]string)
	}

	if err := s.walk(ctx, staleDirs); err != nil {
		return nil, err
	}

	s.walkComplete.Store(true)
	s.currentPath.Store("(updating cache)")
	s.reportProgressForce()

	s.flushCache()

	return &types.ScanResult{
		Files:        s.results,
		DirsScanned:  s.dirsScanned.Load(),
		FilesScanned: s.filesScanned.Load(),
		TotalSize:    s.bytesScanned.Load(),
		Elapsed:      time.Since(start),
		Errors:       s.errs,
		CacheHits:    s.cacheHits.Load(),
		CacheMisses:  s.cacheMisses.Load(),
	}, nil
}

// resolveRoot resolves the root to an absolute directory path.
func (s *Sizer) resolveRoot() (string, error) {
	root, err := filepath.Abs(s.opts.Root)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("scan root %s: %w", root, os.ErrInvalid)
	}

	return root, nil
}

// consultCache asks the size cache which parts of the tree are still
// trustworthy. A fully valid tree answers the scan without touching
// the disk; otherwise the stale subtrees are returned for walking.
func (s *Sizer) consultCache(start time.Time) (staleDirs []string, early *types.ScanResult) {
	if s.opts.Cache == nil {
		return nil, nil
	}

	validFiles, stale, err := s.opts.Cache.Validate(s.root)
	if err != nil || len(stale) > 0 {
		s.keepValid(validFiles, stale)
		return stale, nil
	}

	return nil, s.fromCache(validFiles, start)
}

// fromCache builds a result entirely from cached data.
func (s *Sizer) fromCache(validFiles []types.FileInfo, start time.Time) *types.ScanResult {
	s.cacheHits.Store(int64(len(validFiles)))
	s.filesScanned.Store(int64(len(validFiles)))

	var total int64
	for _, f := range validFiles {
		total += f.Size
		if f.Size >= s.opts.MinSize && !s.isExcluded(f.Path) {
			s.results = append(s.results, f)
			s.largeFiles.Add(1)
		}
	}
	s.bytesScanned.Store(total)

	s.currentPath.Store("(from cache)")
	s.reportProgressForce()

	return &types.ScanResult{
		Files:        s.results,
		FilesScanned: int64(len(validFiles)),
		TotalSize:    total,
		Elapsed:      time.Since(start),
		Errors:       s.errs,
		CacheHits:    s.cacheHits.Load(),
	}
}

// keepValid carries cached files outside the stale subtrees into the
// results so the walk only has to cover what changed.
func (s *Sizer) keepValid(validFiles []types.FileInfo, staleDirs []string) {
	if len(staleDirs) == 0 || len(validFiles) == 0 {
		return
	}

	var kept int64
	for _, f := range validFiles {
		if underAny(f.Path, staleDirs) {
			continue
		}
		kept++
		if f.Size >= s.opts.MinSize && !s.isExcluded(f.Path) {
			s.results = append(s.results, f)
			s.largeFiles.Add(1)
		}
	}
	s.cacheHits.Store(kept)
	s.reportProgressForce()
}

// walk runs fastwalk over the stale subtrees, or the whole root when
// the cache had nothing to offer.
func (s *Sizer) walk(ctx context.Context, staleDirs []string) error {
	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: s.opts.DirWorkers,
	}

	roots := staleDirs
	if len(roots) == 0 {
		roots = []string{s.root}
	}

	for _, dir := range roots {
		err := fastwalk.Walk(&conf, dir, s.visit(ctx))
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// A cancelled walk still reports what it saw.
			return nil
		}
		return err
	}
	return nil
}

// visit returns the walk callback. Entry errors are recorded and
// skipped rather than aborting the walk.
func (s *Sizer) visit(ctx context.Context) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		if err != nil {
			s.addError(path, err)
			return nil
		}

		if s.isExcluded(path) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			s.visitDir(path)
			return nil
		}

		if d.Type().IsRegular() {
			s.visitFile(path, d)
		}
		return nil
	}
}

// visitDir counts a directory and stages its cache entry. Children are
// attached at flush time.
func (s *Sizer) visitDir(path string) {
	s.dirsScanned.Add(1)
	s.currentPath.Store(path)
	s.reportProgress()

	if s.opts.Cache == nil {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		return
	}
	s.remember(path, &cache.Entry{
		IsDir: true,
		Mtime: info.ModTime().UnixNano(),
	})
}

// visitFile stats a regular file, stages its cache entry, and keeps it
// in the results when it clears the size threshold.
func (s *Sizer) visitFile(path string, d fs.DirEntry) {
	info, err := d.Info()
	if err != nil {
		s.addError(path, err)
		return
	}
	size := info.Size()

	s.filesScanned.Add(1)
	s.bytesScanned.Add(size)
	s.cacheMisses.Add(1)

	if s.opts.Cache != nil {
		s.remember(path, &cache.Entry{
			Size:  size,
			Mtime: info.ModTime().UnixNano(),
		})
	}

	if size < s.opts.MinSize {
		return
	}

	fi := types.FileInfo{
		Path:       path,
		Size:       size,
		ModTime:    info.ModTime(),
		CreateTime: getCreateTime(info),
		Mode:       info.Mode(),
	}
	fi.Owner, fi.Group = getOwnership(info)

	s.largeFiles.Add(1)
	s.mu.Lock()
	s.results = append(s.results, fi)
	s.mu.Unlock()
}

// remember stages a cache entry for path and registers it as a child
// of its parent directory.
func (s *Sizer) remember(path string, entry *cache.Entry) {
	if s.entries == nil {
		return
	}

	rel := s.rel(path)

	s.cacheMu.Lock()
	s.entries[rel] = entry
	if path != s.root {
		parent := s.rel(filepath.Dir(path))
		s.children[parent] = append(s.children[parent], filepath.Base(path))
	}
	s.cacheMu.Unlock()
}

// rel converts an absolute path under the root to the cache's
// root-relative form. The root itself maps to "".
func (s *Sizer) rel(path string) string {
	if path == s.root {
		return ""
	}
	return strings.TrimPrefix(path, s.root+string(filepath.Separator))
}

// flushCache merges the collected children into their directory
// entries and writes everything to the cache in one batch.
func (s *Sizer) flushCache() {
	if s.opts.Cache == nil || len(s.entries) == 0 {
		return
	}

	s.cacheMu.Lock()
	for rel, names := range s.children {
		if entry, ok := s.entries[rel]; ok && entry.IsDir {
			entry.Children = names
		}
	}
	s.cacheMu.Unlock()

	if err := s.opts.Cache.Update(s.root, s.entries); err != nil {
		s.addError("cache update", err)
	}
}

// addError records a non-fatal scan error.
func (s *Sizer) addError(path string, err error) {
	s.mu.Lock()
	s.errs = append(s.errs, types.ScanError{Path: path, Error: err.Error()})
	s.mu.Unlock()
}

// reportProgress sends a throttled progress update.
func (s *Sizer) reportProgress() {
	if s.opts.OnProgress == nil {
		return
	}

	// At most one update every 10ms.
	now := time.Now().UnixMilli()
	last := s.lastProgress.Load()
	if now-last < 10 {
		return
	}
	if !s.lastProgress.CompareAndSwap(last, now) {
		return
	}

	s.sendProgress()
}

// reportProgressForce bypasses the throttle for state changes the
// caller should always see.
func (s *Sizer) reportProgressForce() {
	if s.opts.OnProgress == nil {
		return
	}
	s.lastProgress.Store(time.Now().UnixMilli())
	s.sendProgress()
}

func (s *Sizer) sendProgress() {
	currentPath, _ := s.currentPath.Load().(string)

	s.opts.OnProgress(types.ScanProgress{
		DirsScanned:  s.dirsScanned.Load(),
		FilesScanned: s.filesScanned.Load(),
		LargeFiles:   s.largeFiles.Load(),
		CurrentPath:  currentPath,
		BytesScanned: s.bytesScanned.Load(),
		CacheHits:    s.cacheHits.Load(),
		CacheMisses:  s.cacheMisses.Load(),
		WalkComplete: s.walkComplete.Load(),
	})
}

// excludeRule is one precompiled exclusion. Plain paths become prefix
// rules; anything with glob metacharacters becomes a compiled glob
// matched against both the base name and the full path.
type excludeRule struct {
	prefix string
	glob   glob.Glob
}

// compileExcludes precompiles the exclusion list. Invalid patterns are
// logged and dropped.
func compileExcludes(patterns []string, log *logging.Logger) []excludeRule {
	rules := make([]excludeRule, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if !strings.ContainsAny(p, `*?[{\`) {
			rules = append(rules, excludeRule{prefix: p})
			continue
		}
		g, err := glob.Compile(p, filepath.Separator)
		if err != nil {
			log.Warn("dropping invalid exclude pattern", "pattern", p, "error", err)
			continue
		}
		rules = append(rules, excludeRule{glob: g})
	}
	return rules
}

// isExcluded reports whether path matches any exclusion rule.
func (s *Sizer) isExcluded(path string) bool {
	base := filepath.Base(path)
	for _, r := range s.excludes {
		if r.glob != nil {
			if r.glob.Match(base) || r.glob.Match(path) {
				return true
			}
			continue
		}
		if path == r.prefix || strings.HasPrefix(path, r.prefix+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// underAny reports whether path sits inside any of the given
// directories.
func underAny(path string, dirs []string) bool {
	for _, dir := range dirs {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
