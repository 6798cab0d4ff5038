package manifest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when no entry carries the requested ID.
var ErrNotFound = errors.New("manifest entry not found")

// Manifest persists operation entries to a directory, one JSON file each.
type Manifest struct {
	dir string
	mu  sync.Mutex
}

// New creates a Manifest rooted at dir. The directory is not created
// until EnsureDir is called.
func New(dir string) (*Manifest, error) {
	if dir == "" {
		return nil, errors.New("manifest directory is empty")
	}
	return &Manifest{dir: dir}, nil
}

// EnsureDir creates the manifest directory if it does not exist.
func (m *Manifest) EnsureDir() error {
	return os.MkdirAll(m.dir, 0o755)
}

// LogClean records a clean-target run.
func (m *Manifest) LogClean(targets []string, mode Mode, files []FileRecord, errs []string) (*Entry, error) {
	return m.log(OpClean, targets, mode, files, errs)
}

// LogUninstall records an application removal.
func (m *Manifest) LogUninstall(app string, mode Mode, files []FileRecord, errs []string) (*Entry, error) {
	return m.log(OpUninstall, []string{app}, mode, files, errs)
}

// LogPrivacy records a privacy-state clearing run.
func (m *Manifest) LogPrivacy(scopes []string, mode Mode, files []FileRecord, errs []string) (*Entry, error) {
	return m.log(OpPrivacy, scopes, mode, files, errs)
}

func (m *Manifest) log(op OperationType, targets []string, mode Mode, files []FileRecord, errs []string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var totalBytes int64
	for _, f := range files {
		totalBytes += f.Size
	}

	entry := &Entry{
		ID:        generateID(op),
		Timestamp: time.Now().UTC(),
		Operation: op,
		Targets:   targets,
		Mode:      mode,
		Files:     files,
		Errors:    errs,
		Summary: Summary{
			TotalFiles: int64(len(files)),
			TotalBytes: totalBytes,
		},
	}

	if err := m.writeEntry(entry); err != nil {
		return nil, fmt.Errorf("write manifest entry: %w", err)
	}
	return entry, nil
}

// writeEntry persists an entry atomically via a temp file and rename.
func (m *Manifest) writeEntry(entry *Entry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	path := filepath.Join(m.dir, entry.ID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// List returns entries newest first. A limit of zero or less returns all.
func (m *Manifest) List(limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	files, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("read manifest directory: %w", err)
	}

	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		entry, err := m.readEntryFile(f.Name())
		if err != nil {
			// A half-written or foreign file should not break listing.
			continue
		}
		entries = append(entries, *entry)
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get retrieves a single entry by ID.
func (m *Manifest) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry id is empty")
	}
	// IDs map straight to filenames, so refuse anything path-like.
	if filepath.Base(id) != id {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.readEntryFile(id + ".json")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return entry, nil
}

func (m *Manifest) readEntryFile(filename string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", filename, err)
	}
	return &entry, nil
}

// Cleanup removes entries older than retentionDays, judged by file
// modification time. Zero days removes everything. Leftover temp files
// from interrupted writes age out the same way.
func (m *Manifest) Cleanup(retentionDays int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	files, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read manifest directory: %w", err)
	}

	for _, f := range files {
		name := f.Name()
		if f.IsDir() || (!strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".json.tmp")) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(m.dir, name))
		}
	}
	return nil
}

// generateID builds IDs like "clean-1724515200-9f3ab2c871d4".
func generateID(op OperationType) string {
	suffix := make([]byte, 6)
	if _, err := rand.Read(suffix); err != nil {
		copy(suffix, strconv.Itoa(time.Now().Nanosecond()))
	}
	return fmt.Sprintf("%s-%d-%s", op, time.Now().Unix(), hex.EncodeToString(suffix))
}
