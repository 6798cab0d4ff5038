// Package uninstall removes application bundles together with the
// residue they leave under ~/Library. The bundle ID read from the app's
// Info.plist and the app name drive residue discovery; bundle and
// residues go to the Trash and the run is journaled.
package uninstall

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/config"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/logging"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/manifest"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/trash"
)

var (
	// ErrAppNotFound means no installed bundle matched the query.
	ErrAppNotFound = errors.New("application not found")

	// ErrAmbiguousApp means the query matched several bundles.
	ErrAmbiguousApp = errors.New("application name is ambiguous")

	// ErrProtectedApp refuses to touch Apple's own applications.
	ErrProtectedApp = errors.New("refusing to uninstall a system application")
)

// bundleIDTimeout bounds the defaults read per bundle.
const bundleIDTimeout = 10 * time.Second

// Runner executes a command and returns its stdout.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Quick sizes paths without walking them.
type Quick interface {
	SizeAll(ctx context.Context, paths []string) map[string]int64
}

// Remover moves paths to the trash.
type Remover interface {
	MoveToTrash(ctx context.Context, path string) error
}

type trashRemover struct{}

func (trashRemover) MoveToTrash(ctx context.Context, path string) error {
	return trash.MoveToTrash(ctx, path)
}

// App is an installed application bundle.
type App struct {
	// Name is the bundle name without the .app suffix.
	Name string

	// Path is the full bundle path.
	Path string

	// BundleID is the CFBundleIdentifier, empty when unreadable.
	BundleID string

	// Size is the bundle's disk usage, filled during planning.
	Size int64
}

// Residue is one leftover path attributed to an application.
type Residue struct {
	Path string
	// Kind names the Library area: app-support, caches, preferences,
	// saved-state, containers, logs.
	Kind string
	Size int64
}

// Plan lists everything an uninstall would remove.
type Plan struct {
	App       App
	Residues  []Residue
	TotalSize int64
}

// Result summarizes one uninstall run.
type Result struct {
	Plan       *Plan
	Mode       manifest.Mode
	Removed    []manifest.FileRecord
	Freed      int64
	Errors     []string
	ManifestID string
}

// Options select uninstall behavior.
type Options struct {
	// KeepPrefs leaves ~/Library/Preferences entries in place.
	KeepPrefs bool

	// DryRun plans and journals without removing anything.
	DryRun bool
}

// Uninstaller discovers bundles, plans removals and executes them.
type Uninstaller struct {
	run     Runner
	quick   Quick
	remover Remover
	man     *manifest.Manifest
	opts    Options
	log     *logging.Logger

	// dirs are the bundle locations to enumerate.
	dirs []string
}

// New returns an Uninstaller. The manifest may be nil, in which case
// runs are not journaled.
func New(quick Quick, man *manifest.Manifest, opts Options) *Uninstaller {
	return NewWithRunner(execRunner{}, quick, man, opts)
}

// NewWithRunner is New with a custom command runner.
func NewWithRunner(run Runner, quick Quick, man *manifest.Manifest, opts Options) *Uninstaller {
	return &Uninstaller{
		run:     run,
		quick:   quick,
		remover: trashRemover{},
		man:     man,
		opts:    opts,
		log:     logging.Get("uninstall"),
		dirs:    []string{"/Applications", "~/Applications"},
	}
}

// List enumerates installed bundles, sorted by name. Sizes and bundle
// IDs are not filled; planning does that for the one app it needs.
func (u *Uninstaller) List(ctx context.Context) ([]App, error) {
	var apps []App
	for _, dir := range u.dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			continue
		}
		entries, err := os.ReadDir(expanded)
		if err != nil {
			// ~/Applications often does not exist.
			continue
		}
		for _, e := range entries {
			name, ok := strings.CutSuffix(e.Name(), ".app")
			if !ok || !e.IsDir() {
				continue
			}
			apps = append(apps, App{Name: name, Path: filepath.Join(expanded, e.Name())})
		}
	}

	slices.SortFunc(apps, func(a, b App) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return apps, nil
}

// Resolve finds the single bundle matching query: exact name first,
// then unique prefix, then unique substring, all case-insensitive. The
// .app suffix is ignored.
func (u *Uninstaller) Resolve(ctx context.Context, query string) (App, error) {
	apps, err := u.List(ctx)
	if err != nil {
		return App{}, err
	}

	want := strings.ToLower(strings.TrimSuffix(query, ".app"))

	var prefix, substr []App
	for _, app := range apps {
		name := strings.ToLower(app.Name)
		if name == want {
			return app, nil
		}
		if strings.HasPrefix(name, want) {
			prefix = append(prefix, app)
		} else if strings.Contains(name, want) {
			substr = append(substr, app)
		}
	}

	for _, candidates := range [][]App{prefix, substr} {
		switch len(candidates) {
		case 0:
		case 1:
			return candidates[0], nil
		default:
			names := make([]string, 0, len(candidates))
			for _, app := range candidates {
				names = append(names, app.Name)
			}
			return App{}, fmt.Errorf("%w: %q matches %s", ErrAmbiguousApp, query, strings.Join(names, ", "))
		}
	}
	return App{}, fmt.Errorf("%w: %q", ErrAppNotFound, query)
}

// Plan reads the app's bundle ID, locates its residues and sizes
// everything. Apple's own bundles are refused.
func (u *Uninstaller) Plan(ctx context.Context, app App) (*Plan, error) {
	app.BundleID = u.bundleID(ctx, app.Path)
	if strings.HasPrefix(app.BundleID, "com.apple.") {
		return nil, fmt.Errorf("%w: %s (%s)", ErrProtectedApp, app.Name, app.BundleID)
	}

	residues := u.residues(app.Name, app.BundleID)

	paths := make([]string, 0, len(residues)+1)
	paths = append(paths, app.Path)
	for _, r := range residues {
		paths = append(paths, r.Path)
	}
	sizes := u.quick.SizeAll(ctx, paths)

	plan := &Plan{App: app}
	plan.App.Size = sizes[app.Path]
	plan.TotalSize = plan.App.Size
	for _, r := range residues {
		r.Size = sizes[r.Path]
		plan.TotalSize += r.Size
		plan.Residues = append(plan.Residues, r)
	}
	return plan, nil
}

// Uninstall sends the planned bundle and residues to the Trash.
// Per-path failures are collected, never fatal.
func (u *Uninstaller) Uninstall(ctx context.Context, plan *Plan) (*Result, error) {
	res := &Result{Plan: plan, Mode: manifest.ModeTrash}
	if u.opts.DryRun {
		res.Mode = manifest.ModeDryRun
		u.log.Info("dry run, nothing removed", "app", plan.App.Name)
		u.record(res)
		return res, nil
	}

	u.removePath(ctx, plan.App.Path, plan.App.Size, res)
	for _, r := range plan.Residues {
		if err := ctx.Err(); err != nil {
			u.record(res)
			return res, err
		}
		u.removePath(ctx, r.Path, r.Size, res)
	}

	u.record(res)
	return res, nil
}

func (u *Uninstaller) removePath(ctx context.Context, path string, size int64, res *Result) {
	if err := u.remover.MoveToTrash(ctx, path); err != nil {
		u.log.Warn("trash move failed", "path", path, "error", err)
		res.Errors = append(res.Errors, err.Error())
		return
	}
	u.log.Info("trashed", "path", path, "size", size)
	res.Removed = append(res.Removed, manifest.FileRecord{
		Path:      path,
		Size:      size,
		RemovedAt: time.Now().UTC(),
	})
	res.Freed += size
}

// bundleID reads CFBundleIdentifier from the bundle's Info.plist. An
// unreadable plist yields an empty ID, not an error; residue discovery
// then falls back to the app name alone.
func (u *Uninstaller) bundleID(ctx context.Context, bundlePath string) string {
	cctx, cancel := context.WithTimeout(ctx, bundleIDTimeout)
	defer cancel()

	out, err := u.run.Output(cctx, "defaults", "read", filepath.Join(bundlePath, "Contents", "Info"), "CFBundleIdentifier")
	if err != nil {
		u.log.Debug("bundle ID unreadable", "bundle", bundlePath, "error", err)
		return ""
	}
	return strings.TrimSpace(string(out))
}

// residues returns the existing leftover paths for an app, probing the
// standard Library areas by bundle ID and by app name.
func (u *Uninstaller) residues(name, bundleID string) []Residue {
	type probe struct {
		kind    string
		pattern string
	}

	var probes []probe
	add := func(kind, pattern string) {
		if pattern != "" {
			probes = append(probes, probe{kind, pattern})
		}
	}

	byID := func(area string) string {
		if bundleID == "" {
			return ""
		}
		return filepath.Join("~/Library", area, bundleID)
	}
	byName := func(area string) string {
		return filepath.Join("~/Library", area, name)
	}

	add("app-support", byName("Application Support"))
	add("app-support", byID("Application Support"))
	add("caches", byName("Caches"))
	add("caches", byID("Caches"))
	if !u.opts.KeepPrefs && bundleID != "" {
		add("preferences", filepath.Join("~/Library/Preferences", bundleID+".plist"))
		add("preferences", filepath.Join("~/Library/Preferences", bundleID+".*.plist"))
	}
	if bundleID != "" {
		add("saved-state", filepath.Join("~/Library/Saved Application State", bundleID+".savedState"))
		add("containers", filepath.Join("~/Library/Containers", bundleID))
	}
	add("logs", byName("Logs"))
	add("logs", byID("Logs"))

	var residues []Residue
	seen := make(map[string]struct{})
	for _, p := range probes {
		expanded, err := config.ExpandPath(p.pattern)
		if err != nil {
			continue
		}
		for _, path := range expandProbe(expanded) {
			if _, dup := seen[path]; dup {
				continue
			}
			seen[path] = struct{}{}
			residues = append(residues, Residue{Path: path, Kind: p.kind})
		}
	}
	return residues
}

// expandProbe resolves one probe to existing paths. Glob patterns
// return their matches, plain paths return themselves when present.
func expandProbe(pattern string) []string {
	if strings.ContainsAny(pattern, "*?[") {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil
		}
		return matches
	}
	if _, err := os.Stat(pattern); err != nil {
		return nil
	}
	return []string{pattern}
}

func (u *Uninstaller) record(res *Result) {
	if u.man == nil {
		return
	}

	files := res.Removed
	if res.Mode == manifest.ModeDryRun {
		files = append(files, manifest.FileRecord{Path: res.Plan.App.Path, Size: res.Plan.App.Size})
		for _, r := range res.Plan.Residues {
			files = append(files, manifest.FileRecord{Path: r.Path, Size: r.Size})
		}
	}

	entry, err := u.man.LogUninstall(res.Plan.App.Name, res.Mode, files, res.Errors)
	if err != nil {
		u.log.Warn("manifest record failed", "error", err)
		return
	}
	res.ManifestID = entry.ID
}
