// Package watcher watches the LaunchAgents and LaunchDaemons
// directories and notifies the broadcaster when startup items change.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/g4youu/MacCleaner/pkg/agent/broadcaster"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/logging"
)

// Watcher watches startup-item directories for plist churn.
// Watches are non-recursive: launchd only reads plists at the top
// level of each directory.
type Watcher struct {
	watcher     *fsnotify.Watcher
	broadcaster *broadcaster.Broadcaster
	paths       map[string]bool
	mu          sync.Mutex
	closed      bool
	log         *logging.Logger
}

// DefaultPaths returns the startup-item directories to watch:
// the user's LaunchAgents plus the system LaunchAgents and
// LaunchDaemons directories.
func DefaultPaths() []string {
	paths := []string{
		"/Library/LaunchAgents",
		"/Library/LaunchDaemons",
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append([]string{filepath.Join(home, "Library", "LaunchAgents")}, paths...)
	}

	return paths
}

// New creates a Watcher that notifies b on startup-item changes.
func New(b *broadcaster.Broadcaster) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:     fsw,
		broadcaster: b,
		paths:       make(map[string]bool),
		log:         logging.Get("watcher"),
	}, nil
}

// Watch adds a directory to the watch list. Missing directories are
// skipped silently; a user may have no LaunchAgents directory at all.
func (w *Watcher) Watch(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[dir] {
		return nil
	}

	if err := w.watcher.Add(dir); err != nil {
		w.log.Warn("failed to add watch", "path", dir, "error", err)
		return err
	}

	w.paths[dir] = true
	return nil
}

// WatchAll adds every directory in dirs, skipping those that are
// missing or fail.
func (w *Watcher) WatchAll(dirs []string) {
	for _, dir := range dirs {
		if err := w.Watch(dir); err != nil {
			w.log.Warn("skipping unwatchable directory", "path", dir, "error", err)
		}
	}
}

// Run starts the event loop. It blocks until the context is cancelled
// or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}

// handleEvent forwards plist changes to the broadcaster. Editor
// droppings and other non-plist churn inside the directories are
// ignored.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !isPlist(event.Name) {
		return
	}

	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.log.Debug("startup item changed", "path", event.Name, "op", event.Op.String())

	if w.broadcaster != nil {
		w.broadcaster.NotifyStartupChanged(event.Name)
	}
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	w.paths = make(map[string]bool)
	return w.watcher.Close()
}

// isPlist reports whether path names a property list file.
func isPlist(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".plist")
}
