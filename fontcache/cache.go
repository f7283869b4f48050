// Package fontcache keeps a process-wide registry of font faces. Metadata is
// parsed when a font is inserted; the font bytes are read lazily, once per
// face, when a compilation first needs them.
package fontcache

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"
	"go.uber.org/multierr"

	"github.com/ByLCY/inkwell/fonts"
)

// Source is a font input: a PathSource or BytesSource.
type Source interface {
	isSource()
}

// PathSource is a font file or a directory searched recursively.
type PathSource string

// BytesSource is an in-memory font file.
type BytesSource []byte

func (PathSource) isSource()  {}
func (BytesSource) isSource() {}

type faceKey struct {
	identity uint64
	index    int
}

// Cache is a thread-safe font registry. The zero value is not usable; call New.
type Cache struct {
	mu     sync.RWMutex
	book   *book
	seen   map[faceKey]struct{}
	logger *log.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithEmbedded pre-seeds the cache with the embedded default faces.
func WithEmbedded() Option {
	return func(c *Cache) {
		for _, f := range fonts.All() {
			if _, err := c.insertData(f.Name, f.Data, true); err != nil {
				c.logger.Error("embedded font rejected", "name", f.Name, "err", err)
			}
		}
	}
}

// WithLogger sets the logger used for insert and watch events.
func WithLogger(l *log.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a cache. Options apply in order, so WithLogger should come first.
func New(opts ...Option) *Cache {
	c := &Cache{
		book:   newBook(),
		seen:   map[faceKey]struct{}{},
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCache = sync.OnceValue(func() *Cache {
	return New(WithEmbedded())
})

// Default returns the process-wide cache, seeded with the embedded faces on
// first use.
func Default() *Cache { return defaultCache() }

// Insert registers every face found in src and returns how many were new.
// Re-inserting a known face is a no-op. For directories, unreadable or
// unparsable files are reported in the returned error while the rest of the
// directory is still inserted.
func (c *Cache) Insert(src Source) (int, error) {
	switch s := src.(type) {
	case PathSource:
		return c.InsertPath(string(s))
	case BytesSource:
		return c.InsertBytes(s)
	default:
		return 0, fmt.Errorf("fontcache: unsupported source %T", src)
	}
}

// InsertBytes registers the faces of an in-memory font file. The bytes are
// retained as the loaded payload.
func (c *Cache) InsertBytes(data []byte) (int, error) {
	return c.insertData("", data, false)
}

// InsertPath registers a font file, or every font file below a directory.
func (c *Cache) InsertPath(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, &FontError{Path: path, Err: err}
	}
	if !info.IsDir() {
		return c.insertFile(path)
	}

	var (
		total int
		errs  error
	)
	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = multierr.Append(errs, &FontError{Path: p, Err: err})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsFontFile(p) {
			return nil
		}
		n, err := c.insertFile(p)
		total += n
		errs = multierr.Append(errs, err)
		return nil
	})
	return total, multierr.Append(errs, walkErr)
}

// InsertPaths inserts each path in turn. A bad path does not stop the batch;
// the count covers every face that was added.
func (c *Cache) InsertPaths(paths ...string) (int, error) {
	var (
		total int
		errs  error
	)
	for _, p := range paths {
		n, err := c.InsertPath(p)
		total += n
		errs = multierr.Append(errs, err)
	}
	return total, errs
}

func (c *Cache) insertFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, &FontError{Path: path, Err: err}
	}
	infos, err := parseFaces(data)
	if err != nil {
		return 0, &FontError{Path: path, Err: err}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	identity := xxhash.Sum64(data)
	n := c.register(identity, infos, func(info Info, index int) *Entry {
		return newEntry(info, index, abs, identity, false)
	})
	if n > 0 {
		c.logger.Debug("fonts registered", "path", abs, "faces", n)
	}
	return n, nil
}

func (c *Cache) insertData(name string, data []byte, embedded bool) (int, error) {
	infos, err := parseFaces(data)
	if err != nil {
		return 0, &FontError{Path: name, Err: err}
	}
	identity := xxhash.Sum64(data)
	return c.register(identity, infos, func(info Info, index int) *Entry {
		return newLoadedEntry(info, index, identity, data, embedded)
	}), nil
}

func (c *Cache) register(identity uint64, infos []Info, mk func(Info, int) *Entry) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	added := 0
	for i, info := range infos {
		key := faceKey{identity: identity, index: i}
		if _, dup := c.seen[key]; dup {
			continue
		}
		c.seen[key] = struct{}{}
		c.book.add(mk(info, i))
		added++
	}
	return added
}

// Lookup returns the face registered for (family, variant), falling back to
// the closest variant of the same family. Family names match case-insensitively.
func (c *Cache) Lookup(family string, v Variant) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pos, ok := c.book.find(family, v)
	if !ok {
		return nil, false
	}
	return c.book.entries[pos], true
}

// Len returns the number of registered faces.
func (c *Cache) Len(includeEmbedded bool) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if includeEmbedded {
		return len(c.book.entries)
	}
	n := 0
	for _, e := range c.book.entries {
		if !e.embedded {
			n++
		}
	}
	return n
}

// LoadedBytes returns the size of the font data held in memory. Faces that
// share one collection file count it once.
func (c *Cache) LoadedBytes(includeEmbedded bool) int64 {
	c.mu.RLock()
	entries := append([]*Entry(nil), c.book.entries...)
	c.mu.RUnlock()

	counted := map[uint64]bool{}
	var total int64
	for _, e := range entries {
		if e.embedded && !includeEmbedded || counted[e.identity] {
			continue
		}
		e.mu.Lock()
		n := -1
		if e.state == stateLoaded {
			n = len(e.data)
		}
		e.mu.Unlock()
		if n >= 0 {
			counted[e.identity] = true
			total += int64(n)
		}
	}
	return total
}

// Entries returns the registered faces in insertion order.
func (c *Cache) Entries() []*Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Entry(nil), c.book.entries...)
}

// Snapshot returns an immutable view of the cache. Faces inserted later do
// not appear in it; payloads loaded through it are shared with the cache.
func (c *Cache) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &Snapshot{book: c.book.clone()}
}

// Release drops the loaded bytes of file-backed faces by replacing their
// entries with fresh metadata-only ones. Snapshots taken earlier keep the old
// entries. It returns the number of entries replaced.
func (c *Cache) Release() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for i, e := range c.book.entries {
		if e.embedded || e.path == "" || !e.Loaded() {
			continue
		}
		c.book.entries[i] = newEntry(e.info, e.index, e.path, e.identity, false)
		n++
	}
	if n > 0 {
		c.logger.Debug("font payloads released", "entries", n)
	}
	return n
}
