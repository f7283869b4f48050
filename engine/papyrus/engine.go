// Package papyrus is the reference engine: it parses papyrus documents,
// lays them out and renders them with the canvas renderer.
package papyrus

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/zclconf/go-cty/cty"

	"github.com/ByLCY/inkwell/binding"
	"github.com/ByLCY/inkwell/diag"
	"github.com/ByLCY/inkwell/dsl"
	"github.com/ByLCY/inkwell/engine"
	"github.com/ByLCY/inkwell/layout"
	"github.com/ByLCY/inkwell/renderer"
	canvasrenderer "github.com/ByLCY/inkwell/renderer/canvas"
)

// Version is reported to documents as sys.version.
const Version = "0.1.0"

// ErrForeignDocument is returned when a document from another engine is
// handed to this one.
var ErrForeignDocument = errors.New("papyrus: document was not produced by this engine")

// Engine implements engine.Engine. It holds no per-compile state and is
// safe for concurrent use.
type Engine struct {
	logger *log.Logger
	debug  layout.DebugOptions
}

var _ engine.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRawUnits keeps the author's original units in the layout debug output.
func WithRawUnits() Option {
	return func(e *Engine) { e.debug.RawUnits = true }
}

// New returns a papyrus engine.
func New(opts ...Option) *Engine {
	e := &Engine{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Document is a laid-out papyrus document.
type Document struct {
	result *layout.Result
}

// PageCount implements engine.Document.
func (d *Document) PageCount() int { return len(d.result.Pages) }

// Layout exposes the page layout, mainly for debugging and tests.
func (d *Document) Layout() *layout.Result { return d.result }

// Library returns the standard scope: sys.inputs holds the string inputs
// and sys.version the engine version.
func (e *Engine) Library(inputs map[string]string) engine.Library {
	in := cty.EmptyObjectVal
	if len(inputs) > 0 {
		attrs := make(map[string]cty.Value, len(inputs))
		for k, v := range inputs {
			attrs[k] = cty.StringVal(v)
		}
		in = cty.ObjectVal(attrs)
	}
	return library{
		"sys": cty.ObjectVal(map[string]cty.Value{
			"inputs":  in,
			"version": cty.StringVal(Version),
		}),
	}
}

type library map[string]cty.Value

func (l library) Lookup(name string) (cty.Value, bool) {
	v, ok := l[name]
	return v, ok
}

// Compile parses the provider's main file, resolves its imports, fonts and
// images through the provider and lays the document out. Any error
// diagnostic means no document.
func (e *Engine) Compile(ctx context.Context, p engine.Provider) (engine.Document, diag.List) {
	c := &compilation{ctx: ctx, p: p, logger: e.logger, files: map[string]engine.FileID{}, loading: map[string]bool{}}
	if err := ctx.Err(); err != nil {
		c.errorf(nil, "compilation cancelled: %v", err)
		return nil, c.diags
	}

	main := p.Main()
	doc, ok := c.parse(main, nil)
	if !ok {
		return nil, c.diags
	}
	res := layout.CollectResources(doc)
	res.Merge(c.imports(main, doc))
	res.EnsureDefaultFont()
	c.loadFonts(res)

	binder := binding.New(p.Global, p.Today)
	result, err := layout.Build(doc, res, layout.BuildOptions{
		Typesetter: canvasrenderer.New(canvasrenderer.WithLogger(e.logger)),
		Binder:     binder,
		Images:     c,
		Debug:      e.debug,
	})
	c.diags = append(c.diags, binder.Diagnostics()...)
	if err != nil {
		c.layoutError(err)
	}
	if err != nil || c.diags.HasErrors() {
		return nil, c.diags
	}
	e.logger.Debug("document compiled", "main", main, "pages", len(result.Pages))
	return &Document{result: result}, c.diags
}

// RenderPDF implements engine.Engine.
func (e *Engine) RenderPDF(doc engine.Document) ([]byte, error) {
	d, err := own(doc)
	if err != nil {
		return nil, err
	}
	return e.newRenderer().RenderPDF(d.result)
}

// RenderPage implements engine.Engine. Each call uses its own renderer so
// pages can render concurrently.
func (e *Engine) RenderPage(doc engine.Document, page int, format engine.Format, opts engine.RasterOptions) ([]byte, error) {
	d, err := own(doc)
	if err != nil {
		return nil, err
	}
	r := e.newRenderer()
	switch format {
	case engine.PNG:
		return r.RenderPNG(d.result, page, renderer.Raster{PPI: opts.PPI, Background: opts.Background})
	case engine.SVG:
		return r.RenderSVG(d.result, page)
	default:
		return nil, fmt.Errorf("papyrus: unsupported page format %s", format)
	}
}

func (e *Engine) newRenderer() renderer.Renderer {
	return canvasrenderer.New(canvasrenderer.WithLogger(e.logger))
}

func own(doc engine.Document) (*Document, error) {
	d, ok := doc.(*Document)
	if !ok || d == nil || d.result == nil {
		return nil, ErrForeignDocument
	}
	return d, nil
}

// parse reads and parses one file. at is the span blamed when the file
// cannot be read.
func (c *compilation) parse(id engine.FileID, at *diag.Span) (*dsl.Document, bool) {
	src, err := c.p.Source(c.ctx, id)
	if err != nil {
		c.errorf(at, "cannot read %s: %v", id, err)
		return nil, false
	}
	name := id.String()
	c.files[name] = id
	doc, err := dsl.ParseFile(name, src)
	if err != nil {
		c.diags = append(c.diags, diag.FromParse(name, err))
		return nil, false
	}
	return doc, true
}
