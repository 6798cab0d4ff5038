package cleaner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/manifest"
)

// fakeQuick serves scripted sizes and records what it was asked about.
type fakeQuick struct {
	sizes map[string]int64
	calls [][]string
}

func (f *fakeQuick) SizeAll(_ context.Context, paths []string) map[string]int64 {
	f.calls = append(f.calls, paths)
	out := make(map[string]int64, len(paths))
	for _, p := range paths {
		out[p] = f.sizes[p]
	}
	return out
}

// fakeExec records sudo argument vectors.
type fakeExec struct {
	calls [][]string
	err   error
}

func (f *fakeExec) NonInteractive(_ context.Context, args ...string) error {
	f.calls = append(f.calls, args)
	return f.err
}

func (f *fakeExec) Interactive(context.Context, ...string) error { return nil }
func (f *fakeExec) NativeDialog(context.Context, string) error   { return nil }

// fakeRemover records routing and serves scripted per-path failures.
type fakeRemover struct {
	trashed []string
	removed []string
	errs    map[string]error
	onTrash func(path string)
}

func (f *fakeRemover) MoveToTrash(_ context.Context, path string) error {
	if f.onTrash != nil {
		f.onTrash(path)
	}
	if err := f.errs[path]; err != nil {
		return err
	}
	f.trashed = append(f.trashed, path)
	return nil
}

func (f *fakeRemover) Remove(path string) error {
	if err := f.errs[path]; err != nil {
		return err
	}
	f.removed = append(f.removed, path)
	return nil
}

func newTestCleaner(t *testing.T, opts Options) (*Cleaner, *fakeQuick, *fakeExec, *fakeRemover) {
	t.Helper()
	quick := &fakeQuick{sizes: make(map[string]int64)}
	exec := &fakeExec{}
	remover := &fakeRemover{errs: make(map[string]error)}
	c := New(quick, exec, nil, opts)
	c.remover = remover
	return c, quick, exec, remover
}

// seedDir creates named files under a fresh temp directory and returns
// the directory and the full child paths in ReadDir order.
func seedDir(t *testing.T, names ...string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("junk"), 0o644))
		paths = append(paths, p)
	}
	return dir, paths
}

func TestTargetsRegistry(t *testing.T) {
	targets := Targets()
	require.NotEmpty(t, targets)

	seen := make(map[string]struct{})
	for _, target := range targets {
		assert.NotEmpty(t, target.ID)
		assert.NotEmpty(t, target.Name)
		assert.NotEmpty(t, target.Description)
		assert.NotEmpty(t, target.Paths, "target %s has no paths", target.ID)
		assert.Contains(t, []RiskLevel{RiskLow, RiskMedium, RiskHigh}, target.Risk, "target %s", target.ID)

		_, dup := seen[target.ID]
		assert.False(t, dup, "duplicate target ID %s", target.ID)
		seen[target.ID] = struct{}{}
	}

	assert.Equal(t, []string{"user", "system", "browser", "developer"}, Categories())
}

func TestTargetByID(t *testing.T) {
	target, ok := TargetByID("trash")
	require.True(t, ok)
	assert.True(t, target.Permanent)

	target, ok = TargetByID("Xcode-Derived-Data")
	require.True(t, ok)
	assert.Equal(t, "xcode-derived-data", target.ID)

	_, ok = TargetByID("no-such-target")
	assert.False(t, ok)
}

func TestTargetsByCategory(t *testing.T) {
	browser := TargetsByCategory("Browser")
	require.Len(t, browser, 3)
	for _, target := range browser {
		assert.Equal(t, "browser", target.Category)
	}

	assert.Empty(t, TargetsByCategory("no-such-category"))
}

func TestAdminTargetsAreSystemCategory(t *testing.T) {
	for _, target := range Targets() {
		if target.RequiresAdmin {
			assert.Equal(t, "system", target.Category, "target %s", target.ID)
		}
	}
}

func TestResolveDirectoryChildren(t *testing.T) {
	c, _, _, _ := newTestCleaner(t, DefaultOptions())
	dir, paths := seedDir(t, "a.cache", "b.cache")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	items := c.resolve(Target{ID: "x", Paths: []string{dir}})

	assert.Len(t, items, 3)
	assert.Contains(t, items, paths[0])
	assert.Contains(t, items, paths[1])
	assert.Contains(t, items, filepath.Join(dir, "sub"))
	assert.NotContains(t, items, dir, "the target directory itself must never be a candidate")
}

func TestResolveGlob(t *testing.T) {
	c, _, _, _ := newTestCleaner(t, DefaultOptions())
	dir, paths := seedDir(t, "one.log", "two.log", "keep.txt")

	items := c.resolve(Target{ID: "x", Paths: []string{filepath.Join(dir, "*.log")}})

	assert.ElementsMatch(t, paths[:2], items)
}

func TestResolveSingleFile(t *testing.T) {
	c, _, _, _ := newTestCleaner(t, DefaultOptions())
	_, paths := seedDir(t, "crash.dmp")

	items := c.resolve(Target{ID: "x", Paths: []string{paths[0]}})

	assert.Equal(t, paths, items)
}

func TestResolveMissingPath(t *testing.T) {
	c, _, _, _ := newTestCleaner(t, DefaultOptions())

	items := c.resolve(Target{ID: "x", Paths: []string{filepath.Join(t.TempDir(), "absent")}})

	assert.Empty(t, items)
}

func TestScan(t *testing.T) {
	c, quick, _, _ := newTestCleaner(t, DefaultOptions())
	dir, paths := seedDir(t, "a.cache", "b.cache")
	quick.sizes[paths[0]] = 1024
	quick.sizes[paths[1]] = 2048

	reports, err := c.Scan(context.Background(), []Target{
		{ID: "caches", Paths: []string{dir}},
		{ID: "empty", Paths: []string{filepath.Join(dir, "absent")}},
	})
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Len(t, reports[0].Items, 2)
	assert.Equal(t, int64(3072), reports[0].TotalSize)
	assert.Empty(t, reports[1].Items, "empty targets still get a report")
	assert.Zero(t, reports[1].TotalSize)

	require.Len(t, quick.calls, 1, "all targets sized in one batch")
	assert.ElementsMatch(t, paths, quick.calls[0])
}

func TestScanOverlappingTargetsClaimOnce(t *testing.T) {
	c, _, _, _ := newTestCleaner(t, DefaultOptions())
	dir, _ := seedDir(t, "a.cache")
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "inner.cache"), []byte("junk"), 0o644))

	reports, err := c.Scan(context.Background(), []Target{
		{ID: "parent", Paths: []string{dir}},
		{ID: "child", Paths: []string{sub}},
	})
	require.NoError(t, err)

	assert.Len(t, reports[0].Items, 2)
	assert.Empty(t, reports[1].Items, "paths under an earlier claim are not reported twice")
}

func TestCleanTrashMode(t *testing.T) {
	c, quick, _, remover := newTestCleaner(t, DefaultOptions())
	dir, paths := seedDir(t, "a.cache", "b.cache")
	quick.sizes[paths[0]] = 100
	quick.sizes[paths[1]] = 200

	res, err := c.Clean(context.Background(), []Target{{ID: "caches", Paths: []string{dir}}})
	require.NoError(t, err)

	assert.Equal(t, manifest.ModeTrash, res.Mode)
	assert.ElementsMatch(t, paths, remover.trashed)
	assert.Empty(t, remover.removed)
	assert.Equal(t, int64(300), res.Freed)
	require.Len(t, res.Removed, 2)
	assert.False(t, res.Removed[0].RemovedAt.IsZero())
	assert.Empty(t, res.Errors)
}

func TestCleanDeleteMode(t *testing.T) {
	c, _, _, remover := newTestCleaner(t, Options{Trash: false})
	dir, paths := seedDir(t, "a.cache")

	res, err := c.Clean(context.Background(), []Target{{ID: "caches", Paths: []string{dir}}})
	require.NoError(t, err)

	assert.Equal(t, manifest.ModeDelete, res.Mode)
	assert.ElementsMatch(t, paths, remover.removed)
	assert.Empty(t, remover.trashed)
}

func TestCleanPermanentTargetBypassesTrash(t *testing.T) {
	c, _, _, remover := newTestCleaner(t, DefaultOptions())
	dir, paths := seedDir(t, "deleted-thing")

	_, err := c.Clean(context.Background(), []Target{
		{ID: "trash", Paths: []string{dir}, Permanent: true},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, paths, remover.removed)
	assert.Empty(t, remover.trashed, "emptying the trash must not go back to the trash")
}

func TestCleanAdminTarget(t *testing.T) {
	c, _, exec, remover := newTestCleaner(t, DefaultOptions())
	dir, paths := seedDir(t, "system.log")

	res, err := c.Clean(context.Background(), []Target{
		{ID: "system-logs", Paths: []string{dir}, RequiresAdmin: true},
	})
	require.NoError(t, err)

	require.Len(t, exec.calls, 1)
	assert.Equal(t, []string{"rm", "-rf", "--", paths[0]}, exec.calls[0])
	assert.Empty(t, remover.trashed)
	assert.Empty(t, remover.removed)
	assert.Empty(t, res.Errors)
}

func TestCleanAdminFailureCollected(t *testing.T) {
	c, _, exec, _ := newTestCleaner(t, DefaultOptions())
	exec.err = errors.New("sudo: a password is required")
	dir, _ := seedDir(t, "system.log")

	res, err := c.Clean(context.Background(), []Target{
		{ID: "system-logs", Paths: []string{dir}, RequiresAdmin: true},
	})
	require.NoError(t, err, "per-item failures are collected, not fatal")

	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "admin removal")
	assert.Zero(t, res.Freed)
	assert.Empty(t, res.Removed)
}

func TestCleanDryRun(t *testing.T) {
	c, quick, exec, remover := newTestCleaner(t, Options{Trash: true, DryRun: true})
	dir, paths := seedDir(t, "a.cache")
	quick.sizes[paths[0]] = 512

	res, err := c.Clean(context.Background(), []Target{{ID: "caches", Paths: []string{dir}}})
	require.NoError(t, err)

	assert.Equal(t, manifest.ModeDryRun, res.Mode)
	assert.Empty(t, remover.trashed)
	assert.Empty(t, remover.removed)
	assert.Empty(t, exec.calls)
	assert.Empty(t, res.Removed)
	assert.Zero(t, res.Freed)
	require.Len(t, res.Reports, 1)
	assert.Equal(t, int64(512), res.Reports[0].TotalSize)

	_, statErr := os.Stat(paths[0])
	assert.NoError(t, statErr, "dry run must not touch the filesystem")
}

func TestCleanCollectsErrorsAndContinues(t *testing.T) {
	c, quick, _, remover := newTestCleaner(t, DefaultOptions())
	dir, paths := seedDir(t, "bad.cache", "good.cache")
	quick.sizes[paths[0]] = 100
	quick.sizes[paths[1]] = 200
	remover.errs[paths[0]] = errors.New("operation not permitted")

	res, err := c.Clean(context.Background(), []Target{{ID: "caches", Paths: []string{dir}}})
	require.NoError(t, err)

	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "operation not permitted")
	assert.Equal(t, []string{paths[1]}, remover.trashed)
	assert.Equal(t, int64(200), res.Freed)
}

func TestCleanProtectedPathRefused(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, "home1")
	require.NoError(t, os.Mkdir(home, 0o755))
	t.Setenv("HOME", home)

	c, _, _, remover := newTestCleaner(t, DefaultOptions())

	// The glob resolves to the home directory itself.
	res, err := c.Clean(context.Background(), []Target{
		{ID: "bad", Paths: []string{filepath.Join(tmp, "home*")}},
	})
	require.NoError(t, err)

	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "protected path")
	assert.Empty(t, remover.trashed)
	assert.Empty(t, remover.removed)

	_, statErr := os.Stat(home)
	assert.NoError(t, statErr)
}

func TestCleanCancelledMidRun(t *testing.T) {
	c, _, _, remover := newTestCleaner(t, DefaultOptions())
	dir, _ := seedDir(t, "a.cache", "b.cache")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	remover.onTrash = func(string) { cancel() }

	res, err := c.Clean(ctx, []Target{{ID: "caches", Paths: []string{dir}}})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res, "partial work is still reported")

	assert.Len(t, res.Removed, 1)
}

func TestCleanCancelledBeforeScan(t *testing.T) {
	c, _, _, _ := newTestCleaner(t, DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := c.Clean(ctx, []Target{{ID: "caches", Paths: []string{t.TempDir()}}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestCleanRecordsManifest(t *testing.T) {
	man, err := manifest.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, man.EnsureDir())

	quick := &fakeQuick{sizes: make(map[string]int64)}
	c := New(quick, &fakeExec{}, man, DefaultOptions())
	c.remover = &fakeRemover{errs: make(map[string]error)}

	dir, paths := seedDir(t, "a.cache")
	quick.sizes[paths[0]] = 42

	res, err := c.Clean(context.Background(), []Target{{ID: "user-caches", Paths: []string{dir}}})
	require.NoError(t, err)
	require.NotEmpty(t, res.ManifestID)

	entry, err := man.Get(res.ManifestID)
	require.NoError(t, err)
	assert.Equal(t, manifest.OpClean, entry.Operation)
	assert.Equal(t, manifest.ModeTrash, entry.Mode)
	assert.Equal(t, []string{"user-caches"}, entry.Targets)
	require.Len(t, entry.Files, 1)
	assert.Equal(t, int64(42), entry.Files[0].Size)
}

func TestCleanDryRunRecordsWouldBeRemovals(t *testing.T) {
	man, err := manifest.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, man.EnsureDir())

	quick := &fakeQuick{sizes: make(map[string]int64)}
	c := New(quick, &fakeExec{}, man, Options{Trash: true, DryRun: true})
	c.remover = &fakeRemover{errs: make(map[string]error)}

	dir, paths := seedDir(t, "a.cache")
	quick.sizes[paths[0]] = 7

	res, err := c.Clean(context.Background(), []Target{{ID: "user-caches", Paths: []string{dir}}})
	require.NoError(t, err)

	entry, err := man.Get(res.ManifestID)
	require.NoError(t, err)
	assert.Equal(t, manifest.ModeDryRun, entry.Mode)
	require.Len(t, entry.Files, 1)
	assert.Equal(t, paths[0], entry.Files[0].Path)
	assert.True(t, entry.Files[0].RemovedAt.IsZero(), "nothing was removed on a dry run")
}
