package cache

import (
	"testing"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCacheLargeFiles(t *testing.T) {
	c := openTestCache(t)

	entries := map[string]*Entry{
		"":          {IsDir: true, Children: []string{"big.bin", "small.txt", "sub"}},
		"big.bin":   {Size: 500 * 1024 * 1024, Mtime: 1},
		"small.txt": {Size: 10, Mtime: 2},
		"sub":       {IsDir: true, Children: []string{"medium.log"}},
		"sub/medium.log": {
			Size:  150 * 1024 * 1024,
			Mtime: 3,
		},
	}
	if err := c.Update("/scan", entries); err != nil {
		t.Fatal(err)
	}

	files, err := c.LargeFiles("/scan", 100*1024*1024)
	if err != nil {
		t.Fatalf("LargeFiles failed: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("LargeFiles = %d entries, want 2", len(files))
	}
	for _, f := range files {
		if f.Size < 100*1024*1024 {
			t.Errorf("file %s below threshold: %d", f.Path, f.Size)
		}
	}
}

func TestCacheLargeFilesUnknownRoot(t *testing.T) {
	c := openTestCache(t)

	files, err := c.LargeFiles("/never-scanned", 0)
	if err != nil {
		t.Fatalf("LargeFiles failed: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("LargeFiles = %v, want none for unknown root", files)
	}
}

func TestCacheClear(t *testing.T) {
	c := openTestCache(t)

	if err := c.Update("/a", map[string]*Entry{"": {IsDir: true, Children: []string{"f"}}, "f": {Size: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := c.Update("/b", map[string]*Entry{"": {IsDir: true, Children: []string{"g"}}, "g": {Size: 2}}); err != nil {
		t.Fatal(err)
	}

	if err := c.Clear("/a"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	stats, err := c.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Roots != 1 {
		t.Errorf("Roots after Clear = %d, want 1", stats.Roots)
	}

	if err := c.ClearAll(); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	stats, err = c.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 0 {
		t.Errorf("Entries after ClearAll = %d, want 0", stats.Entries)
	}
}
