// Package output renders command results in interchangeable formats.
//
// Every command builds a Document, a format-neutral bundle of titled
// fact sections plus optional file and process tables, and hands it to
// a formatter selected from the registry at runtime.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, doc); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Status classifies a fact value so styled formatters can color it.
// Plain formats ignore it.
type Status string

const (
	// StatusNone renders the value without emphasis.
	StatusNone Status = ""
	// StatusGood marks a healthy reading.
	StatusGood Status = "good"
	// StatusWarn marks a reading worth watching.
	StatusWarn Status = "warn"
	// StatusBad marks a reading that needs attention.
	StatusBad Status = "bad"
)

// Fact is one labeled value inside a section.
type Fact struct {
	Label  string `json:"label" yaml:"label"`
	Value  string `json:"value" yaml:"value"`
	Status Status `json:"status,omitempty" yaml:"status,omitempty"`
}

// Section is an ordered group of facts under an optional title.
type Section struct {
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	Facts []Fact `json:"facts" yaml:"facts"`
}

// FileRow is one entry in a document's file table.
type FileRow struct {
	Path    string    `json:"path" yaml:"path"`
	Size    int64     `json:"size" yaml:"size"`
	ModTime time.Time `json:"mod_time,omitzero" yaml:"mod_time,omitempty"`
}

// ProcessRow is one entry in a document's process table.
type ProcessRow struct {
	PID           int     `json:"pid" yaml:"pid"`
	User          string  `json:"user" yaml:"user"`
	Name          string  `json:"name" yaml:"name"`
	ResidentBytes int64   `json:"resident_bytes" yaml:"resident_bytes"`
	CPUPercent    float64 `json:"cpu_percent" yaml:"cpu_percent"`
}

// Document is the renderable unit commands hand to a formatter.
type Document struct {
	// Title names the document, e.g. "Memory Purge".
	Title string

	// Sections carry the key/value facts of the result.
	Sections []Section

	// Files is an optional file table.
	Files []FileRow

	// Processes is an optional process table.
	Processes []ProcessRow

	// Payload is the machine-readable form of the whole result. When
	// set, the json and yaml formatters emit it instead of the generic
	// document structure.
	Payload any

	// Warnings collects non-fatal problems hit while producing the
	// data.
	Warnings []string
}

// AddSection appends a titled group of facts and returns the document
// for chaining.
func (d *Document) AddSection(title string, facts ...Fact) *Document {
	d.Sections = append(d.Sections, Section{Title: title, Facts: facts})
	return d
}

// TotalSize returns the sum of all file sizes in the document.
func (d *Document) TotalSize() int64 {
	var total int64
	for _, f := range d.Files {
		total += f.Size
	}
	return total
}

// humanBytes renders a byte count in IEC units.
func humanBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// Formatter is the interface that all output formatters implement.
type Formatter interface {
	// Format writes the rendered document to the buffer.
	Format(w *bytes.Buffer, d *Document) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry. It replaces any
// existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
