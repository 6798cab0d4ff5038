// Package filter narrows, orders and truncates the file lists produced
// by the analyzer. Criteria cover size, age, extension and type group,
// glob patterns, and depth; results can be sorted on several fields and
// capped.
package filter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// SortField selects the ordering applied by Sort.
type SortField int

const (
	// SortSize orders by file size.
	SortSize SortField = iota
	// SortAge orders by modification time, oldest first when ascending.
	SortAge
	// SortPath orders by full path.
	SortPath
	// SortName orders by base name.
	SortName
)

const (
	sortFieldSize = "size"
	sortFieldAge  = "age"
	sortFieldPath = "path"
	sortFieldName = "name"
)

// String returns the flag spelling of the sort field.
func (s SortField) String() string {
	switch s {
	case SortAge:
		return sortFieldAge
	case SortPath:
		return sortFieldPath
	case SortName:
		return sortFieldName
	default:
		return sortFieldSize
	}
}

// ErrInvalidSortField indicates an unrecognized sort field name.
var ErrInvalidSortField = errors.New("invalid sort field")

// ParseSortField parses "size", "age", "path" or "name",
// case-insensitively.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(s) {
	case sortFieldSize:
		return SortSize, nil
	case sortFieldAge:
		return SortAge, nil
	case sortFieldPath:
		return SortPath, nil
	case sortFieldName:
		return SortName, nil
	default:
		return SortSize, fmt.Errorf("%w: %q", ErrInvalidSortField, s)
	}
}

// TypeGroups maps type group names to their extensions.
var TypeGroups = map[string][]string{
	"video": {
		".mp4", ".mkv", ".avi", ".mov", ".wmv", ".flv", ".webm", ".m4v", ".mpeg", ".mpg",
	},
	"audio": {
		".mp3", ".flac", ".wav", ".aac", ".ogg", ".wma", ".m4a", ".opus", ".aiff", ".alac",
	},
	"image": {
		".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".tif", ".webp", ".svg", ".ico", ".heic", ".heif", ".raw",
	},
	"archive": {
		".zip", ".tar", ".gz", ".bz2", ".xz", ".7z", ".rar", ".tgz", ".tbz2", ".tar.gz", ".tar.bz2", ".tar.xz",
	},
	"installer": {
		".dmg", ".pkg", ".mpkg", ".xip", ".iso", ".ipsw",
	},
	"document": {
		".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".odt", ".ods", ".odp", ".rtf", ".txt", ".epub",
	},
	"code": {
		".go", ".py", ".js", ".ts", ".java", ".c", ".cpp", ".h", ".hpp", ".rs", ".rb", ".php", ".swift", ".kt", ".scala", ".cs", ".sh", ".bash", ".zsh", ".fish",
	},
	"log": {
		".log", ".logs",
	},
}

// FileInfo carries the fields filtering and sorting operate on.
type FileInfo struct {
	// Path is the absolute path to the file.
	Path string

	// Name is the base name of the file.
	Name string

	// Dir is the directory containing the file.
	Dir string

	// Ext is the extension including the dot.
	Ext string

	// Size is the file size in bytes.
	Size int64

	// ModTime is the last modification time.
	ModTime time.Time

	// Mode is the file's permission and mode bits.
	Mode os.FileMode

	// Owner is the username of the file's owner.
	Owner string

	// Depth is the directory depth below the scan root. A file directly
	// under the root has depth 1.
	Depth int
}

// FromScan converts a scan result entry for filtering, deriving the
// name, extension and depth fields.
func FromScan(fi types.FileInfo, root string) FileInfo {
	depth := 0
	if rel, err := filepath.Rel(root, fi.Path); err == nil && rel != "." {
		depth = strings.Count(rel, string(filepath.Separator)) + 1
	}

	return FileInfo{
		Path:    fi.Path,
		Name:    filepath.Base(fi.Path),
		Dir:     filepath.Dir(fi.Path),
		Ext:     filepath.Ext(fi.Path),
		Size:    fi.Size,
		ModTime: fi.ModTime,
		Mode:    fi.Mode,
		Owner:   fi.Owner,
		Depth:   depth,
	}
}

// FromScanAll converts a whole scan result.
func FromScanAll(files []types.FileInfo, root string) []FileInfo {
	out := make([]FileInfo, len(files))
	for i, fi := range files {
		out[i] = FromScan(fi, root)
	}
	return out
}
