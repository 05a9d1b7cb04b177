package knowledge

import (
	"encoding/json"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
)

// ChunkCache persists Docs (path and raw text) keyed by path alone, so the
// critic doesn't re-read the same knowledge-base files on every session.
// Retrieve still splits the text on every call, and a file changed on disk
// after it was cached is served with its cached text.
// Adapted from internal/roles/memory/memory.go's LevelDB Store: a single
// key-value namespace, opened once per process, closed on shutdown.
type ChunkCache struct {
	db *leveldb.DB
}

// OpenChunkCache opens (or creates) a LevelDB database at dbPath.
func OpenChunkCache(dbPath string) (*ChunkCache, error) {
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		return nil, fmt.Errorf("knowledge: open chunk cache at %s: %w", dbPath, err)
	}
	return &ChunkCache{db: db}, nil
}

// Close releases the underlying LevelDB handle.
func (c *ChunkCache) Close() error {
	return c.db.Close()
}

// Put stores doc under its path.
func (c *ChunkCache) Put(doc Doc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("knowledge: marshal doc %s: %w", doc.Path, err)
	}
	return c.db.Put([]byte(doc.Path), data, nil)
}

// Get returns the cached Doc for path, or ok=false if absent.
func (c *ChunkCache) Get(path string) (Doc, bool, error) {
	data, err := c.db.Get([]byte(path), nil)
	if err == leveldb.ErrNotFound {
		return Doc{}, false, nil
	}
	if err != nil {
		return Doc{}, false, fmt.Errorf("knowledge: get %s: %w", path, err)
	}
	var doc Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Doc{}, false, fmt.Errorf("knowledge: unmarshal doc %s: %w", path, err)
	}
	return doc, true, nil
}
