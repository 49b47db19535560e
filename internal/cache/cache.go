// Package cache implements the content-hash-keyed load cache used by
// chipdesc's watch mode. It generalizes the teacher's root Cache
// interface (Get/Set/Delete keyed by an opaque string, velox/cache.go)
// from a stub abstraction over an external store into a single
// file-backed implementation, since this module has no network cache to
// abstract over and watch mode only ever needs one.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/chipdesc/chipdesc/chipdb"
	"github.com/chipdesc/chipdesc/jsoncodec"
)

// Cache stores one msgpack-encoded jsoncodec.Document per content hash
// under dir. A Cache is safe for sequential use by a single watch loop;
// it makes no concurrency guarantees beyond that.
type Cache struct {
	dir string
}

// Open returns a Cache rooted at dir, creating it if necessary. An empty
// dir defaults to a "chipdesc-cache" directory under os.TempDir.
func Open(dir string) (*Cache, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "chipdesc-cache")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Key returns the content hash of raw, the cache key Get/Set take.
func Key(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".msgpack")
}

// Get returns the cached Database for key, or (nil, false) on a miss or
// a corrupt entry (corruption is treated as a miss rather than an error:
// the caller always has the raw input to reload from).
func (c *Cache) Get(key string) (*chipdb.Database, bool) {
	raw, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	var doc jsoncodec.Document
	if err := msgpack.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}
	d, err := jsoncodec.FromDocument(doc)
	if err != nil {
		return nil, false
	}
	return d, true
}

// Set stores d under key, replacing any previous entry.
func (c *Cache) Set(key string, d *chipdb.Database) error {
	raw, err := msgpack.Marshal(jsoncodec.ToDocument(d))
	if err != nil {
		return err
	}
	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path(key))
}

// Delete removes key's entry, if any. A missing entry is not an error.
func (c *Cache) Delete(key string) error {
	err := os.Remove(c.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
