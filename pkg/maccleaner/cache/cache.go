package cache

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// Cache is the high-level size cache used by the sizer and the cache
// subcommand.
type Cache struct {
	store     *Store
	validator *Validator
}

// Open opens or creates the cache at path.
func Open(path string) (*Cache, error) {
	store, err := OpenStore(path)
	if err != nil {
		return nil, err
	}
	return &Cache{
		store:     store,
		validator: NewValidator(store),
	}, nil
}

// Close closes the cache.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Validate returns the cached files that are still trustworthy under
// root and the directories that need a fresh scan.
func (c *Cache) Validate(root string) ([]types.FileInfo, []string, error) {
	result, err := c.validator.Validate(root)
	if err != nil {
		return nil, nil, err
	}
	return result.ValidFiles, result.StaleDirs, nil
}

// Update replaces the cached entries for root with a scan's results.
func (c *Cache) Update(root string, entries map[string]*Entry) error {
	return c.store.PutBatch(root, entries)
}

// LargeFiles returns every cached file under root of at least minSize
// bytes. Sizes and times come from the cache; nothing is stat'ed.
func (c *Cache) LargeFiles(root string, minSize int64) ([]types.FileInfo, error) {
	var files []types.FileInfo
	if err := c.walk(root, "", minSize, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (c *Cache) walk(root, relPath string, minSize int64, files *[]types.FileInfo) error {
	entry, err := c.store.Get(root, relPath)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	fullPath := root
	if relPath != "" {
		fullPath = filepath.Join(root, relPath)
	}

	if !entry.IsDir {
		if entry.Size >= minSize {
			*files = append(*files, types.FileInfo{
				Path:    fullPath,
				Size:    entry.Size,
				ModTime: time.Unix(0, entry.Mtime),
			})
		}
		return nil
	}

	for _, child := range entry.Children {
		childRel := child
		if relPath != "" {
			childRel = filepath.Join(relPath, child)
		}
		if err := c.walk(root, childRel, minSize, files); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes the cached tree under root.
func (c *Cache) Clear(root string) error {
	return c.store.DeleteRoot(root)
}

// ClearAll empties the cache.
func (c *Cache) ClearAll() error {
	return c.store.DeleteAll()
}

// Stats reports entry and root counts plus on-disk size.
func (c *Cache) Stats() (Stats, error) {
	return c.store.Stats()
}
