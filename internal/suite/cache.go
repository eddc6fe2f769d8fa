package suite

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"linecheck/internal/observ"
	"linecheck/internal/verify"
)

// Current schema version - increment when Verdict format changes
const cacheSchemaVersion uint16 = 1

// Key identifies a verdict by the bytes of both texts and the options.
type Key [sha256.Size]byte

func (k Key) String() string { return hex.EncodeToString(k[:]) }

// KeyFor hashes everything that can influence a verdict.
func KeyFor(annotation, output []byte, opts verify.Options) (Key, error) {
	encodedOpts, err := msgpack.Marshal(opts)
	if err != nil {
		return Key{}, fmt.Errorf("encode options: %w", err)
	}
	h := sha256.New()
	var schema [2]byte
	binary.BigEndian.PutUint16(schema[:], cacheSchemaVersion)
	h.Write(schema[:])
	for _, part := range [][]byte{annotation, output, encodedOpts} {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(part)))
		h.Write(n[:])
		h.Write(part)
	}
	var k Key
	copy(k[:], h.Sum(nil))
	return k, nil
}

// Verdict is the cached form of a verify.Result.
type Verdict struct {
	// Schema version for safe invalidation when format changes
	Schema uint16
	Result verify.Result
}

// Cache stores verdicts on disk, one msgpack file per key.
// Thread-safe for concurrent access.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// DefaultCacheDir returns the standard location for app.
func DefaultCacheDir(app string) (string, error) {
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

// ProjectCacheDir returns the cache directory for the project rooted at
// root: one subdirectory of the app cache per project.
func ProjectCacheDir(app, root string) (string, error) {
	base, err := DefaultCacheDir(app)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(filepath.ToSlash(abs)))
	return filepath.Join(base, "projects", hex.EncodeToString(sum[:8])), nil
}

// OpenCache initializes a cache rooted at dir.
func OpenCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Cache) pathFor(key Key) string {
	hexKey := key.String()
	// подкаталог по первым двум символам, чтобы не раздувать один каталог
	return filepath.Join(c.dir, "verdicts", hexKey[:2], hexKey+".mp")
}

// Put serializes and writes a verdict. Timings are not stored.
func (c *Cache) Put(key Key, res verify.Result) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	res.Timings = observ.Report{}
	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	enc := msgpack.NewEncoder(f)
	if err = enc.Encode(&Verdict{Schema: cacheSchemaVersion, Result: res}); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(tmp, p)
}

// Get reads a verdict. A missing entry or one written with another schema
// is a miss, not an error.
func (c *Cache) Get(key Key) (verify.Result, bool, error) {
	if c == nil {
		return verify.Result{}, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return verify.Result{}, false, nil
		}
		return verify.Result{}, false, err
	}
	defer f.Close()

	var v Verdict
	if err := msgpack.NewDecoder(f).Decode(&v); err != nil {
		return verify.Result{}, false, fmt.Errorf("decode verdict %s: %w", key, err)
	}
	if v.Schema != cacheSchemaVersion {
		return verify.Result{}, false, nil
	}
	return v.Result, true, nil
}

// DropAll removes every verdict.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "verdicts"))
}
