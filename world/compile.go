package world

import (
	"context"

	"github.com/sourcegraph/conc/iter"

	"github.com/ByLCY/inkwell/diag"
	"github.com/ByLCY/inkwell/engine"
)

// Output is what a compile call can produce: one document or one buffer per
// page.
type Output interface {
	[]byte | [][]byte
}

// Result carries the output, absent on failure, and every diagnostic the
// engine reported. Warnings do not make a result fail.
type Result[T Output] struct {
	Output      T
	Diagnostics diag.List
}

// OK reports whether output was produced.
func (r Result[T]) OK() bool { return len(r.Output) > 0 }

// CompilePDF compiles the document and exports it as one PDF.
func (w *World) CompilePDF(ctx context.Context) Result[[]byte] {
	doc, diags := w.compile(ctx)
	if doc == nil {
		return Result[[]byte]{Diagnostics: diags}
	}
	out, err := w.engine.RenderPDF(doc)
	if err != nil {
		diags = append(diags, diag.Errorf(nil, "pdf export failed: %v", err))
		return Result[[]byte]{Diagnostics: diags}
	}
	return Result[[]byte]{Output: out, Diagnostics: diags}
}

// CompilePNG compiles the document and rasterizes every page.
func (w *World) CompilePNG(ctx context.Context) Result[[][]byte] {
	return w.compilePages(ctx, engine.PNG)
}

// CompileSVG compiles the document and exports every page as SVG.
func (w *World) CompileSVG(ctx context.Context) Result[[][]byte] {
	return w.compilePages(ctx, engine.SVG)
}

// Document compiles without exporting. The document is nil when any error
// was reported; its concrete type belongs to the world's engine.
func (w *World) Document(ctx context.Context) (engine.Document, diag.List) {
	return w.compile(ctx)
}

func (w *World) compile(ctx context.Context) (engine.Document, diag.List) {
	doc, diags := w.engine.Compile(ctx, w.view())
	if doc != nil && diags.HasErrors() {
		doc = nil
	}
	w.logger.Debug("compiled", "main", w.main, "ok", doc != nil,
		"errors", len(diags.Errors()), "warnings", len(diags.Warnings()))
	return doc, diags
}

type pageOutput struct {
	data []byte
	err  error
}

// compilePages renders pages on at most w.workers goroutines. Results keep
// document order; any failed page drops the whole output.
func (w *World) compilePages(ctx context.Context, format engine.Format) Result[[][]byte] {
	doc, diags := w.compile(ctx)
	if doc == nil {
		return Result[[][]byte]{Diagnostics: diags}
	}
	pages := make([]int, doc.PageCount())
	for i := range pages {
		pages[i] = i
	}
	opts := engine.RasterOptions{PPI: w.ppi, Background: w.background}
	mapper := iter.Mapper[int, pageOutput]{MaxGoroutines: w.workers}
	rendered := mapper.Map(pages, func(page *int) pageOutput {
		if err := ctx.Err(); err != nil {
			return pageOutput{err: err}
		}
		data, err := w.engine.RenderPage(doc, *page, format, opts)
		return pageOutput{data: data, err: err}
	})

	out := make([][]byte, len(rendered))
	failed := false
	for i, p := range rendered {
		if p.err != nil {
			diags = append(diags, diag.Errorf(nil, "%s export of page %d failed: %v", format, i+1, p.err))
			failed = true
			continue
		}
		out[i] = p.data
	}
	if failed || len(out) == 0 {
		return Result[[][]byte]{Diagnostics: diags}
	}
	return Result[[][]byte]{Output: out, Diagnostics: diags}
}
