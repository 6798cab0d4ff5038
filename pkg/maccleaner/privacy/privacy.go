// Package privacy clears activity traces a Mac accumulates during
// normal use: the recent-items lists, the download quarantine log, and
// the system DNS caches.
package privacy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/config"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/logging"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/manifest"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/privileged"
)

// dnsTimeout bounds each privileged flush command.
const dnsTimeout = 30 * time.Second

// Scope selects one category of privacy state.
type Scope string

const (
	// ScopeRecent covers the shared-file-list files behind the Recent
	// Items menus.
	ScopeRecent Scope = "recent"
	// ScopeQuarantine covers the LaunchServices quarantine-event log.
	ScopeQuarantine Scope = "quarantine"
	// ScopeDNS covers the directory-services and mDNSResponder caches.
	ScopeDNS Scope = "dns"
)

// AllScopes returns every scope in scrub order.
func AllScopes() []Scope {
	return []Scope{ScopeRecent, ScopeQuarantine, ScopeDNS}
}

// Report describes one privacy scrub.
type Report struct {
	Mode   manifest.Mode `json:"mode"`
	Scopes []Scope       `json:"scopes"`

	// RecentFiles are the shared-file-list files found, removed on a
	// real run.
	RecentFiles []manifest.FileRecord `json:"recent_files,omitempty"`

	// QuarantineEvents counts the rows in the quarantine log, cleared
	// on a real run.
	QuarantineEvents int64 `json:"quarantine_events"`

	DNSFlushed bool     `json:"dns_flushed"`
	Errors     []string `json:"errors,omitempty"`
	ManifestID string   `json:"manifest_id,omitempty"`
}

// Options configure a scrub.
type Options struct {
	// DryRun reports what would be cleared without touching anything.
	DryRun bool
}

// Scrubber clears privacy-sensitive state scope by scope.
type Scrubber struct {
	exec      privileged.Executor
	store     *QuarantineStore
	man       *manifest.Manifest
	opts      Options
	log       *logging.Logger
	recentDir string
}

// New returns a Scrubber over the standard shared-file-list and
// quarantine-database locations.
func New(exec privileged.Executor, man *manifest.Manifest, opts Options) (*Scrubber, error) {
	store, err := NewQuarantineStore("")
	if err != nil {
		return nil, err
	}
	return &Scrubber{
		exec:      exec,
		store:     store,
		man:       man,
		opts:      opts,
		log:       logging.Get("privacy"),
		recentDir: "~/Library/Application Support/com.apple.sharedfilelist",
	}, nil
}

// Run scrubs the given scopes in order and records the outcome in the
// operation manifest. An empty scope list means all of them. Failures
// in one scope never stop the others.
func (s *Scrubber) Run(ctx context.Context, scopes []Scope) (*Report, error) {
	if len(scopes) == 0 {
		scopes = AllScopes()
	}
	rep := &Report{Mode: s.mode(), Scopes: scopes}

	for _, scope := range scopes {
		if err := ctx.Err(); err != nil {
			s.record(rep)
			return rep, err
		}
		switch scope {
		case ScopeRecent:
			s.scrubRecent(rep)
		case ScopeQuarantine:
			s.scrubQuarantine(ctx, rep)
		case ScopeDNS:
			s.scrubDNS(ctx, rep)
		default:
			rep.Errors = append(rep.Errors, fmt.Sprintf("unknown privacy scope %q", scope))
		}
	}

	s.record(rep)
	return rep, nil
}

func (s *Scrubber) mode() manifest.Mode {
	if s.opts.DryRun {
		return manifest.ModeDryRun
	}
	return manifest.ModeDelete
}

// scrubRecent removes the shared-file-list files behind the Recent
// Items menus. macOS rebuilds them empty on next use.
func (s *Scrubber) scrubRecent(rep *Report) {
	dir, err := config.ExpandPath(s.recentDir)
	if err != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("resolve %s: %v", s.recentDir, err))
		return
	}
	for _, path := range recentLists(dir) {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		record := manifest.FileRecord{Path: path, Size: info.Size(), ModTime: info.ModTime()}
		if s.opts.DryRun {
			rep.RecentFiles = append(rep.RecentFiles, record)
			continue
		}
		if err := os.Remove(path); err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("remove %s: %v", path, err))
			continue
		}
		record.RemovedAt = time.Now().UTC()
		rep.RecentFiles = append(rep.RecentFiles, record)
		s.log.Info("removed recent-items list", "path", path)
	}
}

// recentLists globs the .sfl2 and .sfl3 lists directly under dir and in
// the per-application recents folder below it.
func recentLists(dir string) []string {
	var paths []string
	for _, sub := range []string{"", "com.apple.LSSharedFileList.ApplicationRecentDocuments"} {
		for _, ext := range []string{"*.sfl2", "*.sfl3"} {
			matches, err := filepath.Glob(filepath.Join(dir, sub, ext))
			if err != nil {
				continue
			}
			paths = append(paths, matches...)
		}
	}
	return paths
}

// scrubQuarantine counts the download-provenance rows and, on a real
// run, deletes them.
func (s *Scrubber) scrubQuarantine(ctx context.Context, rep *Report) {
	n, err := s.store.Count(ctx)
	if err != nil {
		rep.Errors = append(rep.Errors, err.Error())
		return
	}
	rep.QuarantineEvents = n
	if s.opts.DryRun || n == 0 {
		return
	}
	if _, err := s.store.Clear(ctx); err != nil {
		rep.Errors = append(rep.Errors, err.Error())
		return
	}
	s.log.Info("cleared quarantine events", "count", n)
}

// scrubDNS flushes the directory-services cache and tells
// mDNSResponder to drop its own. Both need root.
func (s *Scrubber) scrubDNS(ctx context.Context, rep *Report) {
	if s.opts.DryRun {
		s.log.Info("dry run, skipping dns flush")
		return
	}
	steps := [][]string{
		{"dscacheutil", "-flushcache"},
		{"killall", "-HUP", "mDNSResponder"},
	}
	for _, args := range steps {
		if err := s.flush(ctx, args); err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("%s: %v", strings.Join(args, " "), err))
			return
		}
	}
	rep.DNSFlushed = true
	s.log.Info("dns caches flushed")
}

// flush runs args through sudo, trying cached credentials before
// prompting. A prompt for the first command leaves sudo warm for the
// second.
func (s *Scrubber) flush(ctx context.Context, args []string) error {
	cctx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()
	if err := s.exec.NonInteractive(cctx, args...); err == nil {
		return nil
	}

	ictx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()
	return s.exec.Interactive(ictx, args...)
}

// record writes the scrub to the operation manifest.
func (s *Scrubber) record(rep *Report) {
	if s.man == nil {
		return
	}
	scopes := make([]string, len(rep.Scopes))
	for i, sc := range rep.Scopes {
		scopes[i] = string(sc)
	}
	entry, err := s.man.LogPrivacy(scopes, rep.Mode, rep.RecentFiles, rep.Errors)
	if err != nil {
		s.log.Warn("recording privacy scrub failed", "error", err)
		return
	}
	rep.ManifestID = entry.ID
}
