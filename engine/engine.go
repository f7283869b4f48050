// Package engine defines the boundary between a compilation world and the
// document engine that consumes it.
package engine

import (
	"context"
	"image/color"
	"time"

	"github.com/ByLCY/inkwell/diag"
	"github.com/ByLCY/inkwell/fontcache"
	"github.com/zclconf/go-cty/cty"
)

// Provider answers the engine's questions about the outside world. Every
// method is total: misses are reported through the return values.
type Provider interface {
	// Main is the file compilation starts from.
	Main() FileID
	// Source returns the text of a source file.
	Source(ctx context.Context, id FileID) (string, error)
	// File returns the raw bytes of any file.
	File(ctx context.Context, id FileID) ([]byte, error)
	// Book describes the available fonts. Indexes are stable for the
	// provider's lifetime.
	Book() FontBook
	// Font loads the face at a book index.
	Font(index int) (fontcache.Face, bool)
	// Today returns the captured current date, at a fixed UTC offset in
	// hours when offset is non-nil.
	Today(offset *int) (time.Time, bool)
	// Global returns the value bound to a top-level name.
	Global(name string) (cty.Value, bool)
}

// FontBook is the read-only font index a provider exposes.
type FontBook interface {
	Len() int
	Info(index int) (fontcache.Info, bool)
	Select(family string, v fontcache.Variant) (int, bool)
}

// Library is the engine's standard top-level scope.
type Library interface {
	Lookup(name string) (cty.Value, bool)
}

// Document is a compiled, paginated document. Its concrete type belongs to
// the engine that produced it.
type Document interface {
	PageCount() int
}

// Format selects a per-page image encoding.
type Format int

const (
	PNG Format = iota
	SVG
)

func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case SVG:
		return "svg"
	default:
		return "unknown"
	}
}

// RasterOptions control per-page image output.
type RasterOptions struct {
	// PPI is the pixel density for raster formats.
	PPI float64
	// Background fills the page before drawing. Nil leaves it transparent.
	Background color.Color
}

// Engine compiles and renders documents. Implementations must be safe for
// concurrent RenderPage calls on one Document.
type Engine interface {
	Library(inputs map[string]string) Library
	Compile(ctx context.Context, p Provider) (Document, diag.List)
	RenderPDF(doc Document) ([]byte, error)
	RenderPage(doc Document, page int, format Format, opts RasterOptions) ([]byte, error)
}
