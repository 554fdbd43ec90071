// Package tracecache keeps parsed traces on disk so that rendering the same
// export again skips splitting every row.
package tracecache

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/xxh3"

	"tracetree/internal/record"
)

// Current schema version - increment when Entry changes shape.
const schemaVersion uint16 = 1

// Digest identifies the bytes of a trace file.
type Digest [16]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// DigestFile hashes the content of the file at path with xxh3-128.
func DigestFile(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer f.Close()
	return DigestReader(f)
}

// DigestReader hashes everything r yields.
func DigestReader(r io.Reader) (Digest, error) {
	h := xxh3.New128()
	if _, err := io.Copy(h, r); err != nil {
		return Digest{}, fmt.Errorf("digest: %w", err)
	}
	return Digest(h.Sum128().Bytes()), nil
}

// Entry is the cached form of one parsed trace.
type Entry struct {
	Schema uint16

	Records []record.Record
	// Lines holds the trace row of each record.
	Lines []int

	// LastLine is the last row read, malformed or not.
	LastLine  int
	Truncated bool
}

// Cache stores entries as msgpack files named after their digest.
// Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Open returns the cache under $XDG_CACHE_HOME/<app>/traces, falling back to
// ~/.cache when XDG_CACHE_HOME is unset.
func Open(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDir(filepath.Join(base, app, "traces"))
}

// OpenDir returns a cache rooted at dir, creating it when needed.
func OpenDir(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("trace cache: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the directory holding the entries.
func (c *Cache) Dir() string { return c.dir }

func (c *Cache) pathFor(key Digest) string {
	return filepath.Join(c.dir, key.String()+".mp")
}

// Put writes e under key. The file appears atomically.
func (c *Cache) Put(key Digest, e *Entry) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.CreateTemp(c.dir, "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	payload := *e
	payload.Schema = schemaVersion
	if err = msgpack.NewEncoder(f).Encode(&payload); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(f.Name(), c.pathFor(key))
}

// Get loads the entry stored under key into out. It reports false when there
// is no entry or the entry was written by another schema version.
func (c *Cache) Get(key Digest, out *Entry) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	var e Entry
	if err := msgpack.NewDecoder(f).Decode(&e); err != nil {
		return false, fmt.Errorf("trace cache %s: %w", key, err)
	}
	if e.Schema != schemaVersion || len(e.Lines) != len(e.Records) {
		return false, nil
	}
	*out = e
	return true, nil
}
