package driver

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"soldef/internal/index"
)

// Current schema version - increment when IndexPayload format changes.
const diskCacheSchemaVersion uint16 = 1

// DiskCache stores sealed index payloads keyed by artifact digest.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// IndexPayload is the msgpack-serialized form of a sealed index.
type IndexPayload struct {
	Schema       uint16
	Entries      []index.Entry
	FileIDToPath map[int64]string
}

func payloadFromIndex(ix *index.PositionIndex) *IndexPayload {
	payload := &IndexPayload{
		Schema:       diskCacheSchemaVersion,
		FileIDToPath: make(map[int64]string),
	}
	for _, row := range ix.FileTable() {
		payload.FileIDToPath[row.FileID] = row.Path
	}
	for _, fileID := range ix.Files() {
		for _, e := range ix.Entries(fileID) {
			payload.Entries = append(payload.Entries, *e)
		}
	}
	return payload
}

// restore rebuilds a sealed PositionIndex from the payload. A schema
// mismatch reports false so the caller falls back to a fresh walk.
func (p *IndexPayload) restore() (*index.PositionIndex, bool) {
	if p.Schema != diskCacheSchemaVersion {
		return nil, false
	}
	ix := index.New()
	for fileID, path := range p.FileIDToPath {
		ix.SetFilePath(fileID, path)
	}
	for _, e := range p.Entries {
		ix.Add(e)
	}
	ix.Finalize()
	return ix, true
}

// OpenDiskCache initializes and returns a disk cache at the standard location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// OpenDiskCacheAt returns a disk cache rooted at an explicit directory.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key Digest) string {
	hexKey := hex.EncodeToString(key[:])
	return filepath.Join(c.dir, "artifacts", hexKey+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key Digest, payload *IndexPayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err := os.Remove(f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "driver: failed to remove temp file: %v\n", err)
		}
	}()

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(payload); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Atomic replace
	return os.Rename(f.Name(), p)
}

// Get reads and deserializes a payload from the disk cache.
func (c *DiskCache) Get(key Digest, out *IndexPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := c.pathFor(key)
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "driver: failed to close cache file: %v\n", closeErr)
		}
	}()
	dec := msgpack.NewDecoder(f)
	if err := dec.Decode(out); err != nil {
		return false, err
	}
	return true, nil
}
