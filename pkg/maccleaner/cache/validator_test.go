package cache

import (
	"os"
	"path/filepath"
	"testing"
)

// seedTree creates root/file1.txt (1 KiB) and root/sub/file2.txt (2 KiB).
func seedTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	if err := os.WriteFile(filepath.Join(root, "file1.txt"), make([]byte, 1024), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "file2.txt"), make([]byte, 2048), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

// seedCache writes cache entries matching seedTree with the root's
// current mtime.
func seedCache(t *testing.T, store *Store, root string) {
	t.Helper()

	rootInfo, err := os.Stat(root)
	if err != nil {
		t.Fatal(err)
	}

	entries := map[string]*Entry{
		"":              {IsDir: true, Mtime: rootInfo.ModTime().UnixNano(), Children: []string{"file1.txt", "sub"}},
		"file1.txt":     {Size: 1024, Mtime: 1},
		"sub":           {IsDir: true, Children: []string{"file2.txt"}},
		"sub/file2.txt": {Size: 2048, Mtime: 2},
	}
	if err := store.PutBatch(root, entries); err != nil {
		t.Fatal(err)
	}
}

func TestValidateEmptyCache(t *testing.T) {
	root := seedTree(t)
	store := openTestStore(t)

	result, err := NewValidator(store).Validate(root)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if len(result.ValidFiles) != 0 {
		t.Errorf("ValidFiles = %d entries, want 0", len(result.ValidFiles))
	}
	if len(result.StaleDirs) != 1 || result.StaleDirs[0] != root {
		t.Errorf("StaleDirs = %v, want [%s]", result.StaleDirs, root)
	}
}

func TestValidateUnchangedRoot(t *testing.T) {
	root := seedTree(t)
	store := openTestStore(t)
	seedCache(t, store, root)

	result, err := NewValidator(store).Validate(root)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if len(result.StaleDirs) != 0 {
		t.Errorf("StaleDirs = %v, want none for an unchanged root", result.StaleDirs)
	}
	if len(result.ValidFiles) != 2 {
		t.Fatalf("ValidFiles = %d entries, want 2", len(result.ValidFiles))
	}

	sizes := map[string]int64{}
	for _, f := range result.ValidFiles {
		sizes[filepath.Base(f.Path)] = f.Size
	}
	if sizes["file1.txt"] != 1024 || sizes["file2.txt"] != 2048 {
		t.Errorf("cached sizes wrong: %v", sizes)
	}
}

func TestValidateChangedRoot(t *testing.T) {
	root := seedTree(t)
	store := openTestStore(t)

	// Cache an mtime that cannot match the real directory.
	entries := map[string]*Entry{
		"": {IsDir: true, Mtime: 12345, Children: []string{"file1.txt"}},
	}
	if err := store.PutBatch(root, entries); err != nil {
		t.Fatal(err)
	}

	result, err := NewValidator(store).Validate(root)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if len(result.StaleDirs) != 1 || result.StaleDirs[0] != root {
		t.Errorf("StaleDirs = %v, want [%s] for a changed root", result.StaleDirs, root)
	}
	if len(result.ValidFiles) != 0 {
		t.Errorf("ValidFiles = %v, want none for a changed root", result.ValidFiles)
	}
}
