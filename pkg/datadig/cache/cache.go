// Package cache keeps loaded tables in a badger database so repeated
// inspections of an unchanged data tree skip CSV parsing.
package cache

import (
	"errors"
	"io/fs"

	"github.com/jamesainslie/datadig/pkg/datadig/logging"
	"github.com/jamesainslie/datadig/pkg/datadig/table"
)

var logger = logging.Get("cache")

// Cache provides table caching keyed by inspection root and relative path.
// An entry is only served while the file's size and mtime are unchanged.
type Cache struct {
	store *Store
}

// Open opens or creates a cache at the given path.
func Open(path string) (*Cache, error) {
	store, err := OpenStore(path)
	if err != nil {
		return nil, err
	}
	return &Cache{store: store}, nil
}

// Close closes the cache.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Lookup returns the cached table for a file if it is still valid for info.
func (c *Cache) Lookup(root, relPath string, info fs.FileInfo) (*table.Table, bool) {
	entry, err := c.store.Get(root, relPath)
	if errors.Is(err, ErrNotFound) {
		return nil, false
	}
	if err != nil {
		logger.Warn("cache read failed", "path", relPath, "error", err)
		return nil, false
	}

	if entry.Version != CacheVersion || entry.Size != info.Size() || entry.Mtime != info.ModTime().UnixNano() || entry.Table == nil {
		logger.Debug("stale cache entry", "root", root, "path", relPath)
		return nil, false
	}
	return entry.Table, true
}

// Store records a freshly loaded table.
func (c *Cache) Store(root, relPath string, info fs.FileInfo, t *table.Table) error {
	return c.store.Put(root, relPath, &CachedTable{
		Version: CacheVersion,
		Size:    info.Size(),
		Mtime:   info.ModTime().UnixNano(),
		Table:   t,
	})
}

// Count returns the number of cached tables for a root, or for every root
// when root is empty.
func (c *Cache) Count(root string) (int, error) {
	if root == "" {
		return c.store.Count(nil)
	}
	return c.store.Count(MakeKeyPrefix(root))
}

// Paths lists the cached relative paths below a root.
func (c *Cache) Paths(root string) ([]string, error) {
	return c.store.Paths(MakeKeyPrefix(root))
}

// Forget removes the cached table for one file below a root.
func (c *Cache) Forget(root, relPath string) error {
	return c.store.Delete(root, relPath)
}

// Clear removes all cached entries for a root.
func (c *Cache) Clear(root string) error {
	return c.store.DeletePrefix(MakeKeyPrefix(root))
}

// ClearAll removes all cached entries.
func (c *Cache) ClearAll() error {
	return c.store.DeletePrefix(nil)
}
