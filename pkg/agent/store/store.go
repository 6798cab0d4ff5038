// Package store provides Badger-backed persistence for telemetry
// samples. Samples are keyed by capture time so time-ordered queries
// are iterator walks, and values are gob-encoded TelemetrySamples.
package store

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// prefixSample precedes every sample key. The timestamp is appended
// big-endian so byte order matches chronological order.
const prefixSample = "s:"

// ErrNoSamples indicates the store holds no telemetry yet.
var ErrNoSamples = errors.New("no telemetry samples recorded")

// Store is the telemetry history backed by Badger.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store at the given path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// sampleKey builds the key for a sample taken at t.
func sampleKey(t time.Time) []byte {
	key := make([]byte, len(prefixSample)+8)
	copy(key, prefixSample)
	binary.BigEndian.PutUint64(key[len(prefixSample):], uint64(t.UnixNano()))
	return key
}

// keyTime recovers the capture time from a sample key.
func keyTime(key []byte) (time.Time, bool) {
	if len(key) != len(prefixSample)+8 || string(key[:len(prefixSample)]) != prefixSample {
		return time.Time{}, false
	}
	nanos := int64(binary.BigEndian.Uint64(key[len(prefixSample):]))
	return time.Unix(0, nanos), true
}

// encodeSample gob-encodes a sample.
func encodeSample(sample types.TelemetrySample) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(sample); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeSample gob-decodes a sample.
func decodeSample(data []byte) (types.TelemetrySample, error) {
	var sample types.TelemetrySample
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&sample)
	return sample, err
}

// Append stores one sample keyed by its capture time.
func (s *Store) Append(sample types.TelemetrySample) error {
	value, err := encodeSample(sample)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sampleKey(sample.TakenAt), value)
	})
}

// Latest returns the most recent sample, or ErrNoSamples when the
// store is empty.
func (s *Store) Latest() (types.TelemetrySample, error) {
	var sample types.TelemetrySample
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration: seek just past the prefix space and walk
		// backwards; the first valid key is the newest sample.
		seek := append([]byte(prefixSample), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
		it.Seek(seek)
		if !it.ValidForPrefix([]byte(prefixSample)) {
			return nil
		}

		found = true
		return it.Item().Value(func(val []byte) error {
			var err error
			sample, err = decodeSample(val)
			return err
		})
	})
	if err != nil {
		return types.TelemetrySample{}, err
	}
	if !found {
		return types.TelemetrySample{}, ErrNoSamples
	}
	return sample, nil
}

// Recent returns up to limit samples, newest first. A limit of zero or
// less returns all samples.
func (s *Store) Recent(limit int) ([]types.TelemetrySample, error) {
	var results []types.TelemetrySample

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append([]byte(prefixSample), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
		for it.Seek(seek); it.ValidForPrefix([]byte(prefixSample)); it.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}

			err := it.Item().Value(func(val []byte) error {
				sample, err := decodeSample(val)
				if err != nil {
					return nil // Skip undecodable entries
				}
				results = append(results, sample)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	return results, err
}

// Prune removes samples older than the retention window and returns
// the number removed. A retention of zero or less prunes nothing.
func (s *Store) Prune(retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, nil
	}

	cutoff := time.Now().Add(-retention)
	removed := 0

	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var keysToDelete [][]byte
		prefix := []byte(prefixSample)

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			takenAt, ok := keyTime(key)
			if !ok {
				continue
			}
			if !takenAt.Before(cutoff) {
				// Keys are chronological; everything from here on is
				// inside the retention window.
				break
			}
			keysToDelete = append(keysToDelete, key)
		}

		for _, key := range keysToDelete {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		removed = len(keysToDelete)
		return nil
	})

	return removed, err
}

// Count returns the number of stored samples.
func (s *Store) Count() (int, error) {
	count := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixSample)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})

	return count, err
}

// Since returns all samples taken at or after the cutoff, oldest
// first. The dashboard sparkline reads its window through here.
func (s *Store) Since(cutoff time.Time) ([]types.TelemetrySample, error) {
	var results []types.TelemetrySample

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(sampleKey(cutoff)); it.ValidForPrefix([]byte(prefixSample)); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				sample, err := decodeSample(val)
				if err != nil {
					return nil // Skip undecodable entries
				}
				results = append(results, sample)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	return results, err
}
