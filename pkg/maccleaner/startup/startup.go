// Package startup inspects launchd jobs that run at login and toggles
// user launch agents on and off.
//
// Items come from the standard launchd directories: per-user agents in
// ~/Library/LaunchAgents, global agents in /Library/LaunchAgents, and
// daemons in /Library/LaunchDaemons. Daemons are listed for visibility
// only. Toggling them needs root and a reboot story, so Enable and
// Disable refuse daemon labels outright.
package startup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/config"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/logging"
)

var (
	// ErrNotFound reports that no launchd item carries the requested label.
	ErrNotFound = errors.New("startup item not found")

	// ErrDaemonControl reports an attempt to toggle a launch daemon.
	ErrDaemonControl = errors.New("launch daemons cannot be toggled")
)

// launchctlTimeout bounds every launchctl invocation.
const launchctlTimeout = 30 * time.Second

// Scope identifies which launchd domain an item belongs to.
type Scope string

const (
	// ScopeUserAgent marks agents in ~/Library/LaunchAgents.
	ScopeUserAgent Scope = "user-agent"
	// ScopeGlobalAgent marks agents in /Library/LaunchAgents.
	ScopeGlobalAgent Scope = "global-agent"
	// ScopeDaemon marks daemons in /Library/LaunchDaemons.
	ScopeDaemon Scope = "daemon"
)

// Item is a single launchd job definition found on disk.
type Item struct {
	// Label identifies the job, taken from the plist file name. Jobs
	// whose internal label differs from the file name show as unloaded.
	Label string `json:"label"`

	// Path is the plist that defines the job.
	Path string `json:"path"`

	Scope Scope `json:"scope"`

	// Loaded reports whether launchctl currently knows the label.
	Loaded bool `json:"loaded"`

	// PID is the running process, zero when the job is loaded but idle.
	PID int `json:"pid,omitempty"`
}

// Job is one row of launchctl list output.
type Job struct {
	PID      int
	LastExit int
}

// Runner executes a command and returns its standard output.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// source pairs a launchd directory with the scope of its items.
type source struct {
	dir   string
	scope Scope
}

func defaultSources() []source {
	return []source{
		{dir: "~/Library/LaunchAgents", scope: ScopeUserAgent},
		{dir: "/Library/LaunchAgents", scope: ScopeGlobalAgent},
		{dir: "/Library/LaunchDaemons", scope: ScopeDaemon},
	}
}

// Manager lists launchd items and toggles user and global agents.
type Manager struct {
	run     Runner
	sources []source
	log     *logging.Logger
}

// Option customizes a Manager.
type Option func(*Manager)

// WithRunner substitutes the command runner.
func WithRunner(r Runner) Option {
	return func(m *Manager) { m.run = r }
}

// NewManager returns a Manager over the standard launchd directories.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		run:     execRunner{},
		sources: defaultSources(),
		log:     logging.Get("startup"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// List returns every launchd item on disk, sorted by label. Loaded
// state comes from a single launchctl list call up front.
func (m *Manager) List(ctx context.Context) ([]Item, error) {
	jobs := m.loadedJobs(ctx)

	var items []Item
	for _, src := range m.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dir, err := config.ExpandPath(src.dir)
		if err != nil {
			m.log.Warn("skipping launchd directory", "dir", src.dir, "error", err)
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			// /Library/LaunchAgents may be absent on a fresh system.
			continue
		}
		for _, e := range entries {
			label, ok := strings.CutSuffix(e.Name(), ".plist")
			if !ok || e.IsDir() {
				continue
			}
			item := Item{
				Label: label,
				Path:  filepath.Join(dir, e.Name()),
				Scope: src.scope,
			}
			if job, ok := jobs[label]; ok {
				item.Loaded = true
				item.PID = job.PID
			}
			items = append(items, item)
		}
	}

	slices.SortFunc(items, func(a, b Item) int {
		return strings.Compare(strings.ToLower(a.Label), strings.ToLower(b.Label))
	})
	return items, nil
}

// Lookup finds an item by label, ignoring case.
func (m *Manager) Lookup(ctx context.Context, label string) (Item, error) {
	items, err := m.List(ctx)
	if err != nil {
		return Item{}, err
	}
	for _, item := range items {
		if strings.EqualFold(item.Label, label) {
			return item, nil
		}
	}
	return Item{}, fmt.Errorf("%w: %s", ErrNotFound, label)
}

// Enable loads an agent and clears its disabled override so launchd
// starts it again at the next login.
func (m *Manager) Enable(ctx context.Context, label string) error {
	return m.toggle(ctx, label, "load")
}

// Disable unloads an agent and marks it disabled so launchd leaves it
// alone at the next login.
func (m *Manager) Disable(ctx context.Context, label string) error {
	return m.toggle(ctx, label, "unload")
}

func (m *Manager) toggle(ctx context.Context, label, verb string) error {
	item, err := m.Lookup(ctx, label)
	if err != nil {
		return err
	}
	if item.Scope == ScopeDaemon {
		return fmt.Errorf("%w: %s", ErrDaemonControl, item.Label)
	}
	// launchctl grumbles about jobs already in the requested state, so
	// treat those as done.
	if verb == "load" && item.Loaded {
		m.log.Info("agent already loaded", "label", item.Label)
		return nil
	}
	if verb == "unload" && !item.Loaded {
		m.log.Info("agent already unloaded", "label", item.Label)
		return nil
	}

	cctx, cancel := context.WithTimeout(ctx, launchctlTimeout)
	defer cancel()

	if _, err := m.run.Output(cctx, "launchctl", verb, "-w", item.Path); err != nil {
		return fmt.Errorf("launchctl %s %s: %w", verb, item.Path, err)
	}
	m.log.Info("agent toggled", "label", item.Label, "action", verb)
	return nil
}

// loadedJobs asks launchctl for the current job table. An unreachable
// launchctl degrades to an empty table so listing still works.
func (m *Manager) loadedJobs(ctx context.Context) map[string]Job {
	cctx, cancel := context.WithTimeout(ctx, launchctlTimeout)
	defer cancel()

	out, err := m.run.Output(cctx, "launchctl", "list")
	if err != nil {
		m.log.Warn("launchctl list unavailable", "error", err)
		return map[string]Job{}
	}
	return ParseJobs(out)
}

// ParseJobs decodes launchctl list output. Each row carries a PID, the
// last exit status, and the job label. A dash in the PID column means
// the job is loaded but not currently running.
func ParseJobs(out []byte) map[string]Job {
	jobs := make(map[string]Job)
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] == "PID" {
			continue
		}
		var job Job
		if pid, err := strconv.Atoi(fields[0]); err == nil {
			job.PID = pid
		}
		if status, err := strconv.Atoi(fields[1]); err == nil {
			job.LastExit = status
		}
		jobs[fields[2]] = job
	}
	return jobs
}
