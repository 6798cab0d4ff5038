// Package cache persists directory-scan results between runs in a
// Badger store so repeated analyzes of an unchanged tree skip the
// filesystem walk entirely. Entries are keyed by scan root plus
// relative path and validated against the root's modification time.
package cache

import (
	"bytes"
	"encoding/gob"
)

// Version is stored in the database and bumped when the entry format
// changes. A mismatch on open drops the whole cache.
const Version = 1

// keySeparator splits the scan root from the relative path inside a
// key. NUL cannot appear in a path.
const keySeparator = '\x00'

// Entry is one cached filesystem node. Directories carry their child
// names so a valid subtree can be reassembled without touching disk.
type Entry struct {
	IsDir    bool
	Size     int64    // file size in bytes, 0 for directories
	Mtime    int64    // modification time, UnixNano
	Children []string // child names for directories, nil for files
}

// Encode serializes the entry with gob.
func (e *Entry) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes a gob-encoded entry.
func (e *Entry) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(e)
}

// MakeKey builds the store key for a node: <root>\x00<relpath>. The
// root entry itself uses an empty relative path.
func MakeKey(root, relPath string) []byte {
	return []byte(root + string(keySeparator) + relPath)
}

// ParseKey splits a store key back into root and relative path.
func ParseKey(key []byte) (root, relPath string) {
	idx := bytes.IndexByte(key, keySeparator)
	if idx == -1 {
		return string(key), ""
	}
	return string(key[:idx]), string(key[idx+1:])
}

// RootPrefix returns the key prefix shared by every node under root.
func RootPrefix(root string) []byte {
	return []byte(root + string(keySeparator))
}
