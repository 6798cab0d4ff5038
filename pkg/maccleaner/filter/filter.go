package filter

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/gobwas/glob"
)

// Filter holds the criteria applied by Match, Sort and Apply.
type Filter struct {
	// MinSize excludes files smaller than this many bytes.
	MinSize int64

	// Include holds glob patterns. When non-empty, files must match at
	// least one.
	Include []string

	// Exclude holds glob patterns. Matching files are dropped.
	Exclude []string

	// Extensions holds extensions to keep, normalized to lowercase with
	// a leading dot. Empty keeps everything.
	Extensions []string

	// OlderThan drops files modified more recently than this long ago.
	OlderThan time.Duration

	// NewerThan drops files modified longer ago than this.
	NewerThan time.Duration

	// MaxDepth drops files deeper than this below the scan root.
	// Zero means unlimited.
	MaxDepth int

	// SortBy selects the ordering field.
	SortBy SortField

	// SortDescending reverses the ordering.
	SortDescending bool

	// Limit caps the result count. Zero means unlimited.
	Limit int
}

// Option configures a Filter.
type Option func(*Filter)

// New returns a Filter with the given options applied. The defaults
// keep the 50 largest files.
func New(opts ...Option) *Filter {
	f := &Filter{
		Limit:          50,
		SortBy:         SortSize,
		SortDescending: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WithLimit caps the result count. Non-positive means unlimited.
func WithLimit(limit int) Option {
	return func(f *Filter) {
		if limit < 0 {
			limit = 0
		}
		f.Limit = limit
	}
}

// WithMinSize sets the minimum file size in bytes.
func WithMinSize(minSize int64) Option {
	return func(f *Filter) {
		if minSize < 0 {
			minSize = 0
		}
		f.MinSize = minSize
	}
}

// WithInclude sets the include glob patterns.
func WithInclude(patterns ...string) Option {
	return func(f *Filter) {
		f.Include = patterns
	}
}

// WithExclude sets the exclude glob patterns.
func WithExclude(patterns ...string) Option {
	return func(f *Filter) {
		f.Exclude = patterns
	}
}

// WithExtensions sets the extensions to keep. Each is lowercased and
// given a leading dot when missing.
func WithExtensions(extensions ...string) Option {
	return func(f *Filter) {
		normalized := make([]string, 0, len(extensions))
		for _, ext := range extensions {
			ext = strings.ToLower(ext)
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			normalized = append(normalized, ext)
		}
		f.Extensions = normalized
	}
}

// WithTypeGroups expands group names like "video" or "installer" into
// their extensions. Unknown groups are ignored.
func WithTypeGroups(groups ...string) Option {
	return func(f *Filter) {
		var extensions []string
		for _, group := range groups {
			if exts, ok := TypeGroups[strings.ToLower(group)]; ok {
				extensions = append(extensions, exts...)
			}
		}
		f.Extensions = extensions
	}
}

// WithOlderThan keeps only files at least this old.
func WithOlderThan(d time.Duration) Option {
	return func(f *Filter) {
		f.OlderThan = d
	}
}

// WithNewerThan keeps only files at most this old.
func WithNewerThan(d time.Duration) Option {
	return func(f *Filter) {
		f.NewerThan = d
	}
}

// WithMaxDepth caps the directory depth. Non-positive means unlimited.
func WithMaxDepth(depth int) Option {
	return func(f *Filter) {
		if depth < 0 {
			depth = 0
		}
		f.MaxDepth = depth
	}
}

// WithSortBy selects the ordering field.
func WithSortBy(field SortField) Option {
	return func(f *Filter) {
		f.SortBy = field
	}
}

// WithSortDescending reverses the ordering.
func WithSortDescending(desc bool) Option {
	return func(f *Filter) {
		f.SortDescending = desc
	}
}

// Match reports whether the file passes every criterion.
func (f *Filter) Match(fi FileInfo) bool {
	if f.MinSize > 0 && fi.Size < f.MinSize {
		return false
	}
	if f.MaxDepth > 0 && fi.Depth > f.MaxDepth {
		return false
	}
	if !f.matchExtension(fi.Ext) {
		return false
	}
	if !f.matchAge(fi.ModTime) {
		return false
	}
	if matchesAny(fi.Path, f.Exclude) {
		return false
	}
	if len(f.Include) > 0 && !matchesAny(fi.Path, f.Include) {
		return false
	}
	return true
}

func (f *Filter) matchExtension(ext string) bool {
	if len(f.Extensions) == 0 {
		return true
	}
	ext = strings.ToLower(ext)
	return slices.Contains(f.Extensions, ext)
}

func (f *Filter) matchAge(modTime time.Time) bool {
	now := time.Now()
	if f.OlderThan > 0 && modTime.After(now.Add(-f.OlderThan)) {
		return false
	}
	if f.NewerThan > 0 && modTime.Before(now.Add(-f.NewerThan)) {
		return false
	}
	return true
}

// matchesAny reports whether path matches any pattern. Invalid
// patterns never match.
func matchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			continue
		}
		if g.Match(path) {
			return true
		}
	}
	return false
}

// Sort returns a sorted copy of files. The input is left alone.
func (f *Filter) Sort(files []FileInfo) []FileInfo {
	if len(files) == 0 {
		return []FileInfo{}
	}

	sorted := make([]FileInfo, len(files))
	copy(sorted, files)

	slices.SortFunc(sorted, func(a, b FileInfo) int {
		var c int
		switch f.SortBy {
		case SortAge:
			// Older files rank higher on the age axis.
			c = -a.ModTime.Compare(b.ModTime)
		case SortPath:
			c = cmp.Compare(a.Path, b.Path)
		case SortName:
			c = cmp.Compare(a.Name, b.Name)
		default:
			c = cmp.Compare(a.Size, b.Size)
		}
		if f.SortDescending {
			return -c
		}
		return c
	})

	return sorted
}

// Apply runs the full pipeline: match, sort, limit.
func (f *Filter) Apply(files []FileInfo) []FileInfo {
	var matched []FileInfo
	for _, fi := range files {
		if f.Match(fi) {
			matched = append(matched, fi)
		}
	}

	sorted := f.Sort(matched)

	if f.Limit > 0 && len(sorted) > f.Limit {
		return sorted[:f.Limit]
	}
	return sorted
}
