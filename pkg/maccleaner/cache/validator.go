package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// ValidationResult is the outcome of checking a cached root against
// the filesystem.
type ValidationResult struct {
	// ValidFiles are cached files that can be trusted without a walk.
	ValidFiles []types.FileInfo

	// StaleDirs are directories that must be rescanned. Empty when the
	// whole cached tree is valid.
	StaleDirs []string
}

// Validator decides whether a cached tree is still trustworthy.
//
// The check is deliberately coarse: only the root's modification time
// is compared. An unchanged root validates the entire cached subtree
// with zero stat calls per file; any change marks the whole root stale
// for a full rescan.
type Validator struct {
	store *Store
}

// NewValidator returns a Validator over the given store.
func NewValidator(store *Store) *Validator {
	return &Validator{store: store}
}

// Validate checks root against the cache.
func (v *Validator) Validate(root string) (*ValidationResult, error) {
	result := &ValidationResult{}

	cachedRoot, err := v.store.Get(root, "")
	if errors.Is(err, ErrNotFound) {
		result.StaleDirs = []string{root}
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	rootInfo, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root %s: %w", root, err)
	}

	if rootInfo.ModTime().UnixNano() != cachedRoot.Mtime {
		result.StaleDirs = []string{root}
		return result, nil
	}

	if err := v.collect(root, "", result); err != nil {
		return nil, err
	}
	return result, nil
}

// collect gathers every cached file under relPath. The cache is
// trusted completely here; the root mtime was already verified.
func (v *Validator) collect(root, relPath string, result *ValidationResult) error {
	cached, err := v.store.Get(root, relPath)
	if err != nil {
		return err
	}

	fullPath := root
	if relPath != "" {
		fullPath = filepath.Join(root, relPath)
	}

	if !cached.IsDir {
		result.ValidFiles = append(result.ValidFiles, types.FileInfo{
			Path:    fullPath,
			Size:    cached.Size,
			ModTime: time.Unix(0, cached.Mtime),
		})
		return nil
	}

	for _, child := range cached.Children {
		childRel := child
		if relPath != "" {
			childRel = filepath.Join(relPath, child)
		}
		if err := v.collect(root, childRel, result); err != nil {
			return err
		}
	}
	return nil
}
