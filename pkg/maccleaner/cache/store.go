package cache

import (
	"bytes"
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound indicates a key with no cached entry.
var ErrNotFound = errors.New("cache entry not found")

// versionKey holds the format version marker. It sorts before any
// path key since roots are absolute paths.
var versionKey = []byte("!version")

// Store wraps Badger for size-cache operations.
type Store struct {
	db *badger.DB
}

// OpenStore opens or creates the store at path. A format version
// mismatch drops all cached entries before returning.
func OpenStore(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.ensureVersion(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// ensureVersion drops the cache when it was written by a different
// format version, then records the current one.
func (s *Store) ensureVersion() error {
	current := []byte{Version}

	var stored []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(versionKey)
		if err != nil {
			return err
		}
		stored, err = item.ValueCopy(nil)
		return err
	})

	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		// Fresh store, or one predating the marker: treat as stale.
		if err := s.db.DropAll(); err != nil {
			return err
		}
	case err != nil:
		return err
	case bytes.Equal(stored, current):
		return nil
	default:
		if err := s.db.DropAll(); err != nil {
			return err
		}
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(versionKey, current)
	})
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get retrieves the entry for root + relPath.
func (s *Store) Get(root, relPath string) (*Entry, error) {
	key := MakeKey(root, relPath)
	var entry Entry

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(entry.Decode)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Put stores one entry.
func (s *Store) Put(root, relPath string, entry *Entry) error {
	value, err := entry.Encode()
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(MakeKey(root, relPath), value)
	})
}

// Delete removes one entry.
func (s *Store) Delete(root, relPath string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(MakeKey(root, relPath))
	})
}

// DeleteRoot removes every entry under root.
func (s *Store) DeleteRoot(root string) error {
	return s.deletePrefix(RootPrefix(root))
}

// DeleteAll removes every cached entry, keeping the version marker.
func (s *Store) DeleteAll() error {
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if bytes.Equal(key, versionKey) {
				continue
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) deletePrefix(prefix []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := txn.Delete(it.Item().KeyCopy(nil)); err != nil {
				return err
			}
		}
		return nil
	})
}

// PutBatch stores many entries for one root in a single write batch.
// The sizer flushes its scan results through here.
func (s *Store) PutBatch(root string, entries map[string]*Entry) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for relPath, entry := range entries {
		value, err := entry.Encode()
		if err != nil {
			return err
		}
		if err := wb.Set(MakeKey(root, relPath), value); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// Stats summarizes the store contents for the cache subcommand.
type Stats struct {
	// Entries is the number of cached filesystem nodes.
	Entries int

	// Roots is the number of distinct scan roots.
	Roots int

	// DiskBytes is the on-disk footprint of the store.
	DiskBytes int64
}

// Stats scans the key space and reports entry and root counts plus
// the database's on-disk size.
func (s *Store) Stats() (Stats, error) {
	stats := Stats{}
	roots := make(map[string]struct{})

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			if bytes.Equal(key, versionKey) {
				continue
			}
			stats.Entries++
			root, _ := ParseKey(key)
			roots[root] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	stats.Roots = len(roots)
	lsm, vlog := s.db.Size()
	stats.DiskBytes = lsm + vlog
	return stats, nil
}
