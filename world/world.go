// Package world composes an input, a font snapshot, a global overlay and a
// package store into the provider a document engine compiles against, and
// captures the engine's output together with its diagnostics.
package world

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/zclconf/go-cty/cty"

	"github.com/ByLCY/inkwell/engine"
	"github.com/ByLCY/inkwell/fontcache"
	"github.com/ByLCY/inkwell/pkgstore"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// World is the engine.Provider for one input. Its fonts, overlay, packages
// and timestamp are frozen by Build. A World may be shared by concurrent
// compile calls.
type World struct {
	content *string // set in content mode
	root    string  // set in file mode
	main    engine.FileID

	overlay overlay
	library engine.Library
	book    *fontcache.Snapshot
	store   *pkgstore.Store
	now     time.Time

	engine     engine.Engine
	ppi        float64
	background color.Color
	workers    int
	logger     *log.Logger
}

var _ engine.Provider = (*World)(nil)

// fileCache holds one lazily read slot per file id.
type fileCache struct {
	mu    sync.Mutex
	slots map[string]func() ([]byte, error)
}

func newFileCache() *fileCache {
	return &fileCache{slots: map[string]func() ([]byte, error){}}
}

// slot returns the loader for key, creating it from load on first use.
// Concurrent callers of one slot share a single read.
func (c *fileCache) slot(key string, load func() ([]byte, error)) func() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[key]
	if !ok {
		s = sync.OnceValues(load)
		c.slots[key] = s
	}
	return s
}

// compileView is the provider handed to one engine.Compile call. Files read
// during the call are cached for that call only.
type compileView struct {
	*World
	files *fileCache
}

var _ engine.Provider = compileView{}

func (w *World) view() compileView {
	return compileView{World: w, files: newFileCache()}
}

// File returns the first read of id made through this view.
func (v compileView) File(ctx context.Context, id engine.FileID) ([]byte, error) {
	load := v.files.slot(id.String(), func() ([]byte, error) {
		return v.read(ctx, id)
	})
	return load()
}

func (v compileView) Source(ctx context.Context, id engine.FileID) (string, error) {
	return v.source(ctx, id, v.File)
}

// Main implements engine.Provider.
func (w *World) Main() engine.FileID { return w.main }

// Source implements engine.Provider. A leading byte order mark is removed;
// content that is not UTF-8 is ErrNotSource.
func (w *World) Source(ctx context.Context, id engine.FileID) (string, error) {
	return w.source(ctx, id, w.File)
}

func (w *World) source(ctx context.Context, id engine.FileID, file func(context.Context, engine.FileID) ([]byte, error)) (string, error) {
	if w.isContentMain(id) {
		return *w.content, nil
	}
	data, err := file(ctx, id)
	if err != nil {
		return "", err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", engine.ErrNotSource, id)
	}
	return string(data), nil
}

// File implements engine.Provider. Outside a compile call every read goes
// to disk; during one, each file is read once per call.
func (w *World) File(ctx context.Context, id engine.FileID) ([]byte, error) {
	return w.read(ctx, id)
}

func (w *World) isContentMain(id engine.FileID) bool {
	return w.content != nil && id.Package == nil && id.Path == ContentMain
}

func (w *World) read(ctx context.Context, id engine.FileID) ([]byte, error) {
	var base string
	switch {
	case id.Package != nil:
		dir, err := w.store.Resolve(ctx, *id.Package)
		if err != nil {
			return nil, err
		}
		base = dir
	case w.isContentMain(id):
		return []byte(*w.content), nil
	case w.content != nil:
		return nil, fmt.Errorf("%w: %s (content input has no project root)", engine.ErrNotFound, id)
	default:
		base = w.root
	}

	rel := path.Clean(strings.TrimPrefix(id.Path, "/"))
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return nil, fmt.Errorf("%w: %s", engine.ErrAccessDenied, id)
	}
	full := filepath.Join(base, filepath.FromSlash(rel))

	info, err := os.Stat(full)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", engine.ErrNotFound, id)
	case errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("%w: %s", engine.ErrAccessDenied, id)
	case err != nil:
		return nil, fmt.Errorf("stat %s: %w", id, err)
	case info.IsDir():
		return nil, fmt.Errorf("%w: %s", engine.ErrIsDirectory, id)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", id, err)
	}
	w.logger.Debug("file loaded", "id", id, "bytes", len(data))
	return data, nil
}

// Book implements engine.Provider.
func (w *World) Book() engine.FontBook { return w.book }

// Font implements engine.Provider.
func (w *World) Font(index int) (fontcache.Face, bool) {
	face, err := w.book.Face(index)
	if err != nil {
		w.logger.Warn("font unavailable", "index", index, "err", err)
		return fontcache.Face{}, false
	}
	return face, true
}

// Today implements engine.Provider. It returns the build timestamp in local
// time, or at a fixed UTC offset of offset hours.
func (w *World) Today(offset *int) (time.Time, bool) {
	if offset == nil {
		return w.now.Local(), true
	}
	h := *offset
	if h < -24 || h > 24 {
		return time.Time{}, false
	}
	return w.now.In(time.FixedZone(fmt.Sprintf("UTC%+d", h), h*3600)), true
}

// Global implements engine.Provider. The overlay shadows the engine's
// library.
func (w *World) Global(name string) (cty.Value, bool) {
	if v, ok := w.overlay.lookup(name); ok {
		return v, true
	}
	return w.library.Lookup(name)
}
