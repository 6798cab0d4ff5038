package privacy

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/config"
)

// DefaultQuarantineDBPath is where LaunchServices logs the provenance
// of every quarantined download.
const DefaultQuarantineDBPath = "~/Library/Preferences/com.apple.LaunchServices.QuarantineEventsV2"

// QuarantineStore reads and clears the LaunchServices quarantine-event
// database.
type QuarantineStore struct {
	path string
}

// NewQuarantineStore opens a store over the database at path. An empty
// path selects the standard location.
func NewQuarantineStore(path string) (*QuarantineStore, error) {
	if path == "" {
		path = DefaultQuarantineDBPath
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	return &QuarantineStore{path: expanded}, nil
}

// Path returns the resolved database location.
func (s *QuarantineStore) Path() string {
	return s.path
}

// Count returns the number of recorded quarantine events. A missing
// database counts as zero.
func (s *QuarantineStore) Count(ctx context.Context) (int64, error) {
	db, err := s.open()
	if err != nil || db == nil {
		return 0, err
	}
	defer db.Close()

	var n int64
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM LSQuarantineEvent").Scan(&n)
	if err != nil {
		if isMissingTable(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("count quarantine events: %w", err)
	}
	return n, nil
}

// Clear deletes every quarantine event and returns how many rows were
// removed. The file itself stays in place so LaunchServices keeps
// writing to it.
func (s *QuarantineStore) Clear(ctx context.Context) (int64, error) {
	db, err := s.open()
	if err != nil || db == nil {
		return 0, err
	}
	defer db.Close()

	res, err := db.ExecContext(ctx, "DELETE FROM LSQuarantineEvent")
	if err != nil {
		if isMissingTable(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("clear quarantine events: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear quarantine events: %w", err)
	}

	// Reclaim the deleted pages.
	_, _ = db.ExecContext(ctx, "VACUUM")
	return removed, nil
}

// open connects to the database, or returns a nil handle when the file
// does not exist. Opening through the driver would create an empty
// database where LaunchServices never wrote one.
func (s *QuarantineStore) open() (*sql.DB, error) {
	if _, err := os.Stat(s.path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", s.path, err)
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("open quarantine db: %w", err)
	}
	return db, nil
}

// isMissingTable recognizes a database syspolicyd has not written to
// yet.
func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}
