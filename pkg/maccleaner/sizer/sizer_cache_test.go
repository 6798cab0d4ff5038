package sizer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/cache"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/sizer"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// seedTree builds a root with 5 small files under small/ and 3 files
// over 1 KiB under large/.
func seedTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	for i := range 5 {
		path := filepath.Join(root, "small", "file"+string(rune('a'+i))+".txt")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, make([]byte, 100), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	for i := range 3 {
		path := filepath.Join(root, "large", "file"+string(rune('a'+i))+".dat")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, make([]byte, 10*1024), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	return root
}

func openTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.Open(filepath.Join(t.TempDir(), "sizecache"))
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func scan(t *testing.T, opts sizer.Options) *types.ScanResult {
	t.Helper()
	s, err := sizer.New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return result
}

func TestSizerWithCache(t *testing.T) {
	root := seedTree(t)
	c := openTestCache(t)

	first := scan(t, sizer.Options{Root: root, MinSize: 1024, Cache: c, DirWorkers: 2, FileWorkers: 2})
	if len(first.Files) != 3 {
		t.Fatalf("first scan found %d large files, want 3", len(first.Files))
	}
	if first.CacheMisses != 8 {
		t.Errorf("first scan CacheMisses = %d, want 8", first.CacheMisses)
	}

	second := scan(t, sizer.Options{Root: root, MinSize: 1024, Cache: c, DirWorkers: 2, FileWorkers: 2})
	if len(second.Files) != 3 {
		t.Errorf("cached scan found %d large files, want 3", len(second.Files))
	}
	if second.CacheHits != 8 {
		t.Errorf("cached scan CacheHits = %d, want 8", second.CacheHits)
	}
	if second.CacheMisses != 0 {
		t.Errorf("cached scan CacheMisses = %d, want 0", second.CacheMisses)
	}
	if second.DirsScanned != 0 {
		t.Errorf("cached scan DirsScanned = %d, want 0", second.DirsScanned)
	}
}

func TestSizerCacheDetectsRootChange(t *testing.T) {
	root := seedTree(t)
	c := openTestCache(t)

	first := scan(t, sizer.Options{Root: root, MinSize: 1024, Cache: c, DirWorkers: 2, FileWorkers: 2})
	if len(first.Files) != 3 {
		t.Fatalf("first scan found %d large files, want 3", len(first.Files))
	}

	// Adding an entry directly under the root bumps its mtime and
	// invalidates the cached tree.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(root, "newfile.dat"), make([]byte, 20*1024), 0o644); err != nil {
		t.Fatal(err)
	}

	second := scan(t, sizer.Options{Root: root, MinSize: 1024, Cache: c, DirWorkers: 2, FileWorkers: 2})
	if len(second.Files) != 4 {
		t.Errorf("rescan found %d large files, want 4", len(second.Files))
		for _, f := range second.Files {
			t.Logf("  found %s (%d bytes)", f.Path, f.Size)
		}
	}
	if second.CacheMisses == 0 {
		t.Error("rescan should have walked the tree")
	}
}

func TestSizerWithoutCache(t *testing.T) {
	root := seedTree(t)

	result := scan(t, sizer.Options{Root: root, MinSize: 1024, DirWorkers: 2, FileWorkers: 2})
	if len(result.Files) != 3 {
		t.Errorf("found %d large files, want 3", len(result.Files))
	}
	if result.CacheHits != 0 {
		t.Errorf("CacheHits = %d, want 0 without a cache", result.CacheHits)
	}
}

func TestSizerCacheWithExclusions(t *testing.T) {
	root := seedTree(t)
	c := openTestCache(t)

	opts := sizer.Options{
		Root:        root,
		MinSize:     1024,
		Exclude:     []string{filepath.Join(root, "large")},
		Cache:       c,
		DirWorkers:  2,
		FileWorkers: 2,
	}

	first := scan(t, opts)
	if len(first.Files) != 0 {
		t.Errorf("first scan found %d files, want 0 with large/ excluded", len(first.Files))
	}

	second := scan(t, opts)
	if len(second.Files) != 0 {
		t.Errorf("cached scan found %d files, want 0 with large/ excluded", len(second.Files))
	}
}
