package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

func setupTestManifest(t *testing.T) *Manifest {
	t.Helper()

	m, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := m.EnsureDir(); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	return m
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("valid directory", func(t *testing.T) {
		t.Parallel()
		m, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if m == nil {
			t.Fatal("New() returned nil")
		}
	})

	t.Run("empty directory rejected", func(t *testing.T) {
		t.Parallel()
		if _, err := New(""); err == nil {
			t.Fatal("New(\"\") error = nil, want error")
		}
	})
}

func TestEnsureDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "history")
	m, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := m.EnsureDir(); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("path is not a directory")
	}

	// A second call on an existing directory succeeds.
	if err := m.EnsureDir(); err != nil {
		t.Fatalf("EnsureDir() second call error = %v", err)
	}
}

func TestLogClean(t *testing.T) {
	t.Parallel()

	m := setupTestManifest(t)

	now := time.Now()
	files := []FileRecord{
		{Path: "/Users/dev/Library/Caches/com.example.app", Size: 1 << 20, RemovedAt: now},
		{Path: "/Users/dev/Library/Logs/app.log", Size: 4096, RemovedAt: now},
	}

	entry, err := m.LogClean([]string{"user-caches", "user-logs"}, ModeTrash, files, nil)
	if err != nil {
		t.Fatalf("LogClean() error = %v", err)
	}

	if entry.Operation != OpClean {
		t.Errorf("Operation = %v, want %v", entry.Operation, OpClean)
	}
	if entry.Mode != ModeTrash {
		t.Errorf("Mode = %v, want %v", entry.Mode, ModeTrash)
	}
	if len(entry.Targets) != 2 {
		t.Errorf("len(Targets) = %d, want 2", len(entry.Targets))
	}
	if entry.Summary.TotalFiles != 2 {
		t.Errorf("TotalFiles = %d, want 2", entry.Summary.TotalFiles)
	}
	if entry.Summary.TotalBytes != int64(1<<20)+4096 {
		t.Errorf("TotalBytes = %d, want %d", entry.Summary.TotalBytes, int64(1<<20)+4096)
	}
	if !strings.HasPrefix(entry.ID, "clean-") {
		t.Errorf("ID = %q, want prefix %q", entry.ID, "clean-")
	}
}

func TestLogUninstall(t *testing.T) {
	t.Parallel()

	m := setupTestManifest(t)

	entry, err := m.LogUninstall("Firefox", ModeTrash, []FileRecord{
		{Path: "/Applications/Firefox.app", Size: 400 << 20},
	}, nil)
	if err != nil {
		t.Fatalf("LogUninstall() error = %v", err)
	}

	if entry.Operation != OpUninstall {
		t.Errorf("Operation = %v, want %v", entry.Operation, OpUninstall)
	}
	if len(entry.Targets) != 1 || entry.Targets[0] != "Firefox" {
		t.Errorf("Targets = %v, want [Firefox]", entry.Targets)
	}
	if !strings.HasPrefix(entry.ID, "uninstall-") {
		t.Errorf("ID = %q, want prefix %q", entry.ID, "uninstall-")
	}
}

func TestLogPrivacyWithErrors(t *testing.T) {
	t.Parallel()

	m := setupTestManifest(t)

	entry, err := m.LogPrivacy([]string{"recent", "dns"}, ModeDelete, nil,
		[]string{"flush dns: exit status 1"})
	if err != nil {
		t.Fatalf("LogPrivacy() error = %v", err)
	}

	if entry.Operation != OpPrivacy {
		t.Errorf("Operation = %v, want %v", entry.Operation, OpPrivacy)
	}
	if len(entry.Errors) != 1 {
		t.Errorf("len(Errors) = %d, want 1", len(entry.Errors))
	}
	if entry.Summary.TotalFiles != 0 {
		t.Errorf("TotalFiles = %d, want 0", entry.Summary.TotalFiles)
	}
}

func TestLogPersistsEntry(t *testing.T) {
	t.Parallel()

	m := setupTestManifest(t)

	original, err := m.LogClean([]string{"trash"}, ModeDryRun, []FileRecord{
		{Path: "/Users/dev/.Trash/old.zip", Size: 999},
	}, nil)
	if err != nil {
		t.Fatalf("LogClean() error = %v", err)
	}

	retrieved, err := m.Get(original.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if retrieved.ID != original.ID {
		t.Errorf("ID = %q, want %q", retrieved.ID, original.ID)
	}
	if retrieved.Mode != ModeDryRun {
		t.Errorf("Mode = %v, want %v", retrieved.Mode, ModeDryRun)
	}
	if len(retrieved.Files) != 1 || retrieved.Files[0].Path != "/Users/dev/.Trash/old.zip" {
		t.Errorf("Files = %v, want the logged record", retrieved.Files)
	}
}

func TestList(t *testing.T) {
	t.Parallel()

	t.Run("newest first", func(t *testing.T) {
		t.Parallel()
		m := setupTestManifest(t)

		if _, err := m.LogClean([]string{"first"}, ModeTrash, nil, nil); err != nil {
			t.Fatalf("LogClean() error = %v", err)
		}
		time.Sleep(10 * time.Millisecond)
		if _, err := m.LogUninstall("second", ModeTrash, nil, nil); err != nil {
			t.Fatalf("LogUninstall() error = %v", err)
		}
		time.Sleep(10 * time.Millisecond)
		if _, err := m.LogPrivacy([]string{"third"}, ModeDelete, nil, nil); err != nil {
			t.Fatalf("LogPrivacy() error = %v", err)
		}

		entries, err := m.List(0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("len(entries) = %d, want 3", len(entries))
		}
		for i := 0; i < len(entries)-1; i++ {
			if entries[i].Timestamp.Before(entries[i+1].Timestamp) {
				t.Errorf("entries out of order: %v before %v", entries[i].Timestamp, entries[i+1].Timestamp)
			}
		}
		if entries[0].Operation != OpPrivacy {
			t.Errorf("entries[0].Operation = %v, want %v", entries[0].Operation, OpPrivacy)
		}
	})

	t.Run("respects limit", func(t *testing.T) {
		t.Parallel()
		m := setupTestManifest(t)

		for i := 0; i < 5; i++ {
			if _, err := m.LogClean([]string{"t"}, ModeTrash, nil, nil); err != nil {
				t.Fatalf("LogClean() error = %v", err)
			}
		}

		entries, err := m.List(2)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(entries) != 2 {
			t.Errorf("len(entries) = %d, want 2", len(entries))
		}
	})

	t.Run("empty directory yields empty slice", func(t *testing.T) {
		t.Parallel()
		m := setupTestManifest(t)

		entries, err := m.List(0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if entries == nil {
			t.Error("List() returned nil, want empty slice")
		}
		if len(entries) != 0 {
			t.Errorf("len(entries) = %d, want 0", len(entries))
		}
	})

	t.Run("missing directory yields empty slice", func(t *testing.T) {
		t.Parallel()
		m, err := New(filepath.Join(t.TempDir(), "never-created"))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		entries, err := m.List(0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("len(entries) = %d, want 0", len(entries))
		}
	})

	t.Run("skips unparseable files", func(t *testing.T) {
		t.Parallel()
		m := setupTestManifest(t)

		if _, err := m.LogClean([]string{"t"}, ModeTrash, nil, nil); err != nil {
			t.Fatalf("LogClean() error = %v", err)
		}
		if err := os.WriteFile(filepath.Join(m.dir, "garbage.json"), []byte("{not json"), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		entries, err := m.List(0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("len(entries) = %d, want 1", len(entries))
		}
	})
}

func TestGet(t *testing.T) {
	t.Parallel()

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()
		m := setupTestManifest(t)

		_, err := m.Get("clean-0-deadbeef")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("empty id", func(t *testing.T) {
		t.Parallel()
		m := setupTestManifest(t)

		if _, err := m.Get(""); err == nil {
			t.Fatal("Get(\"\") error = nil, want error")
		}
	})

	t.Run("path-like id rejected", func(t *testing.T) {
		t.Parallel()
		m := setupTestManifest(t)

		_, err := m.Get("../outside")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})
}

func TestCleanup(t *testing.T) {
	t.Parallel()

	t.Run("removes aged entries and temp leftovers", func(t *testing.T) {
		t.Parallel()
		m := setupTestManifest(t)

		entry, err := m.LogClean([]string{"t"}, ModeTrash, nil, nil)
		if err != nil {
			t.Fatalf("LogClean() error = %v", err)
		}
		stale := filepath.Join(m.dir, "clean-1-abcdef.json.tmp")
		if err := os.WriteFile(stale, []byte("{}"), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		old := time.Now().AddDate(0, 0, -10)
		files, err := os.ReadDir(m.dir)
		if err != nil {
			t.Fatalf("ReadDir() error = %v", err)
		}
		for _, f := range files {
			if err := os.Chtimes(filepath.Join(m.dir, f.Name()), old, old); err != nil {
				t.Fatalf("Chtimes() error = %v", err)
			}
		}

		if err := m.Cleanup(5); err != nil {
			t.Fatalf("Cleanup() error = %v", err)
		}

		if _, err := m.Get(entry.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound after cleanup", err)
		}
		if _, err := os.Stat(stale); !os.IsNotExist(err) {
			t.Error("stale temp file survived cleanup")
		}
	})

	t.Run("keeps fresh entries", func(t *testing.T) {
		t.Parallel()
		m := setupTestManifest(t)

		entry, err := m.LogClean([]string{"t"}, ModeTrash, nil, nil)
		if err != nil {
			t.Fatalf("LogClean() error = %v", err)
		}

		if err := m.Cleanup(30); err != nil {
			t.Fatalf("Cleanup() error = %v", err)
		}
		if _, err := m.Get(entry.ID); err != nil {
			t.Errorf("Get() error = %v, entry should survive", err)
		}
	})

	t.Run("missing directory is a no-op", func(t *testing.T) {
		t.Parallel()
		m, err := New(filepath.Join(t.TempDir(), "never-created"))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if err := m.Cleanup(7); err != nil {
			t.Fatalf("Cleanup() error = %v", err)
		}
	})
}

func TestConcurrentLogs(t *testing.T) {
	t.Parallel()

	m := setupTestManifest(t)

	var wg sync.WaitGroup
	errCh := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := m.LogClean([]string{"concurrent"}, ModeTrash, []FileRecord{
				{Path: "/tmp/concurrent", Size: int64(idx)},
			}, nil)
			if err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("concurrent log error: %v", err)
	}

	entries, err := m.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 20 {
		t.Errorf("len(entries) = %d, want 20", len(entries))
	}
}

func TestGenerateID(t *testing.T) {
	t.Parallel()

	t.Run("prefix and shape", func(t *testing.T) {
		t.Parallel()

		id := generateID(OpClean)
		parts := strings.SplitN(id, "-", 3)
		if len(parts) != 3 {
			t.Fatalf("ID = %q, want op-<unixts>-<hex>", id)
		}
		if parts[0] != "clean" {
			t.Errorf("op part = %q, want clean", parts[0])
		}
		ts, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			t.Errorf("timestamp part %q is not an integer: %v", parts[1], err)
		}
		if now := time.Now().Unix(); ts < now-60 || ts > now+60 {
			t.Errorf("timestamp part %d is not near now (%d)", ts, now)
		}
		if len(parts[2]) != 12 {
			t.Errorf("suffix %q length = %d, want 12 hex chars", parts[2], len(parts[2]))
		}
	})

	t.Run("unique across calls", func(t *testing.T) {
		t.Parallel()

		seen := make(map[string]struct{})
		for i := 0; i < 100; i++ {
			id := generateID(OpPrivacy)
			if _, dup := seen[id]; dup {
				t.Fatalf("duplicate ID %q", id)
			}
			seen[id] = struct{}{}
		}
	})
}
