// Package cache keeps finished profiles on disk so re-running on an unchanged
// log skips parsing and analysis.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"qigraph/internal/z3log"
)

// Current schema version - increment when Snapshot format changes.
const schemaVersion uint16 = 1

// ErrSchema is returned by Get for entries written by another schema version.
var ErrSchema = errors.New("cache entry has a different schema")

// Digest identifies one cache entry.
type Digest [sha256.Size]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Cache stores snapshots under <dir>/profiles. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// DefaultDir returns $XDG_CACHE_HOME/<app>, falling back to ~/.cache/<app>.
func DefaultDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app), nil
}

// Open creates the cache directory if needed.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.dir }

func (c *Cache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "profiles", key.String()+".mp")
}

// Key derives the entry key from the log contents and the parser settings
// that influence the result.
func Key(r io.Reader, cfg z3log.Config) (Digest, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return Digest{}, fmt.Errorf("hash log: %w", err)
	}
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], schemaVersion)
	h.Write(buf[:])
	fmt.Fprintf(h, "skip=%t ignore=%t max=%d eq=%t",
		cfg.SkipVersionCheck, cfg.IgnoreInvalidLines, cfg.MaxDiagnostics, cfg.LogTermEqualities)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}

// KeyFile is Key over the contents of path.
func KeyFile(path string, cfg z3log.Config) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer func() {
		_ = f.Close()
	}()
	return Key(f, cfg)
}

// Put writes snap atomically.
func (c *Cache) Put(key Digest, snap *Snapshot) error {
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
	committed := false
	defer func() {
		if !committed {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	snap.Schema = schemaVersion
	if err := msgpack.NewEncoder(f).Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	// атомарная замена
	if err := os.Rename(f.Name(), p); err != nil {
		return err
	}
	committed = true
	return nil
}

// Get reads the entry for key. A missing entry is (nil, false, nil).
func (c *Cache) Get(key Digest) (*Snapshot, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer func() {
		_ = f.Close()
	}()

	var snap Snapshot
	if err := msgpack.NewDecoder(f).Decode(&snap); err != nil {
		return nil, false, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	if snap.Schema != schemaVersion {
		return nil, false, fmt.Errorf("%w: %d, want %d", ErrSchema, snap.Schema, schemaVersion)
	}
	return &snap, true, nil
}

// DropAll removes every stored profile.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "profiles"))
}
