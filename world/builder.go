package world

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"go.uber.org/multierr"

	"github.com/ByLCY/inkwell/engine"
	"github.com/ByLCY/inkwell/engine/papyrus"
	"github.com/ByLCY/inkwell/fontcache"
	"github.com/ByLCY/inkwell/pkgstore"
)

// DefaultPPI is the raster density used unless WithPPI says otherwise.
const DefaultPPI = 144

// Builder collects the parameters of a World. Methods return the builder
// so calls chain; nothing is validated until Build.
type Builder struct {
	inputs    []Input
	fontPaths []string
	data      []Entry
	sysInputs map[string]string

	ppi        float64
	background color.Color
	workers    int

	engine engine.Engine
	fonts  *fontcache.Cache
	store  *pkgstore.Store
	logger *log.Logger
	clock  func() time.Time
}

// NewBuilder returns a builder with the defaults: the papyrus engine, the
// process-wide font cache and package store, 144 ppi on white, one render
// worker per available CPU.
func NewBuilder() *Builder {
	return &Builder{
		ppi:        DefaultPPI,
		background: color.White,
		logger:     log.New(io.Discard),
		clock:      time.Now,
	}
}

// WithContentInput compiles text directly.
func (b *Builder) WithContentInput(text string) *Builder {
	b.inputs = append(b.inputs, ContentInput{Text: text})
	return b
}

// WithFileInput compiles entry inside root. An empty root means the entry's
// directory.
func (b *Builder) WithFileInput(entry, root string) *Builder {
	b.inputs = append(b.inputs, FileInput{Entry: entry, Root: root})
	return b
}

// WithInput selects an input value directly.
func (b *Builder) WithInput(in Input) *Builder {
	b.inputs = append(b.inputs, in)
	return b
}

// WithFontPaths stages font files or directories to insert into the font
// cache before it is snapshotted.
func (b *Builder) WithFontPaths(paths ...string) *Builder {
	b.fontPaths = append(b.fontPaths, paths...)
	return b
}

// WithCustomData stages global overlay entries, in order.
func (b *Builder) WithCustomData(entries ...Entry) *Builder {
	b.data = append(b.data, entries...)
	return b
}

// WithInputs sets the string inputs the engine exposes in its own scope.
func (b *Builder) WithInputs(inputs map[string]string) *Builder {
	if b.sysInputs == nil {
		b.sysInputs = map[string]string{}
	}
	for k, v := range inputs {
		b.sysInputs[k] = v
	}
	return b
}

// WithPPI sets the raster density for PNG output.
func (b *Builder) WithPPI(ppi float64) *Builder {
	b.ppi = ppi
	return b
}

// WithBackground sets the page fill for PNG output. Nil means transparent.
func (b *Builder) WithBackground(c color.Color) *Builder {
	b.background = c
	return b
}

// WithWorkers bounds concurrent page rendering. Values below one select
// runtime.GOMAXPROCS(0).
func (b *Builder) WithWorkers(n int) *Builder {
	b.workers = n
	return b
}

// WithEngine replaces the papyrus engine.
func (b *Builder) WithEngine(e engine.Engine) *Builder {
	b.engine = e
	return b
}

// WithFontCache uses c instead of fontcache.Default().
func (b *Builder) WithFontCache(c *fontcache.Cache) *Builder {
	b.fonts = c
	return b
}

// WithPackageStore uses s instead of pkgstore.Default().
func (b *Builder) WithPackageStore(s *pkgstore.Store) *Builder {
	b.store = s
	return b
}

// WithLogger sets the logger. The default discards output.
func (b *Builder) WithLogger(l *log.Logger) *Builder {
	if l != nil {
		b.logger = l
	}
	return b
}

// WithClock replaces time.Now for the build-time timestamp.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	if now != nil {
		b.clock = now
	}
	return b
}

// Build validates the configuration and returns a World. Every violated
// precondition is reported in one *BuildError.
func (b *Builder) Build() (*World, error) {
	var errs error
	w := &World{
		ppi:        b.ppi,
		background: b.background,
		workers:    b.workers,
		engine:     b.engine,
		store:      b.store,
		logger:     b.logger,
	}
	if w.workers < 1 {
		w.workers = runtime.GOMAXPROCS(0)
	}
	if w.engine == nil {
		w.engine = papyrus.New(papyrus.WithLogger(b.logger))
	}

	switch len(b.inputs) {
	case 0:
		errs = multierr.Append(errs, ErrNoInput)
	case 1:
		errs = multierr.Append(errs, w.setInput(b.inputs[0]))
	default:
		errs = multierr.Append(errs, fmt.Errorf("%w: %d inputs", ErrConflictingInputs, len(b.inputs)))
	}

	for _, p := range b.fontPaths {
		if _, err := os.Stat(p); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s", ErrFontPathNotFound, p))
		}
	}

	ov, ovErrs := newOverlay(b.data)
	errs = multierr.Append(errs, multierr.Combine(ovErrs...))
	w.overlay = ov

	if b.ppi <= 0 || math.IsNaN(b.ppi) || math.IsInf(b.ppi, 0) {
		errs = multierr.Append(errs, fmt.Errorf("%w: %v", ErrInvalidPPI, b.ppi))
	}

	if w.store == nil {
		store, err := pkgstore.Default()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: %w", ErrPackageStore, err))
		}
		w.store = store
	}

	if errs != nil {
		return nil, &BuildError{Violations: multierr.Errors(errs)}
	}

	cache := b.fonts
	if cache == nil {
		cache = fontcache.Default()
	}
	if len(b.fontPaths) > 0 {
		// unreadable fonts are skipped; the rest stay usable
		n, err := cache.InsertPaths(b.fontPaths...)
		if err != nil {
			b.logger.Warn("some fonts could not be registered", "err", err)
		}
		b.logger.Debug("fonts registered", "count", n)
	}
	w.book = cache.Snapshot()
	w.library = w.engine.Library(b.sysInputs)
	w.now = b.clock()
	b.logger.Debug("world built", "main", w.main, "fonts", w.book.Len(), "globals", strings.Join(ov.names, ","))
	return w, nil
}

// setInput records the input, checking file-mode paths.
func (w *World) setInput(in Input) error {
	switch in := in.(type) {
	case ContentInput:
		w.content = &in.Text
		w.main = engine.FileID{Path: ContentMain}
		return nil
	case FileInput:
		return w.setFileInput(in)
	default:
		return fmt.Errorf("%w: unsupported input %T", ErrNoInput, in)
	}
}

func (w *World) setFileInput(in FileInput) error {
	entry, err := filepath.Abs(in.Entry)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEntryNotFound, in.Entry, err)
	}
	root := in.Root
	if root == "" {
		root = filepath.Dir(entry)
	}
	if root, err = filepath.Abs(root); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRootNotFound, in.Root, err)
	}

	var errs error
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		errs = multierr.Append(errs, fmt.Errorf("%w: %s", ErrRootNotFound, root))
	}
	if info, err := os.Stat(entry); err != nil || info.IsDir() {
		errs = multierr.Append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, entry))
	}
	rel, err := filepath.Rel(root, entry)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		errs = multierr.Append(errs, fmt.Errorf("%w: %s is not under %s", ErrEntryOutsideRoot, entry, root))
	}
	if errs != nil {
		return errs
	}
	w.root = root
	w.main = engine.Project(filepath.ToSlash(rel))
	return nil
}
