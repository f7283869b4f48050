package papyrus

import (
	"context"
	"errors"
	"fmt"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/charmbracelet/log"

	"github.com/ByLCY/inkwell/diag"
	"github.com/ByLCY/inkwell/dsl"
	"github.com/ByLCY/inkwell/engine"
	"github.com/ByLCY/inkwell/fontcache"
	"github.com/ByLCY/inkwell/fonts"
	"github.com/ByLCY/inkwell/layout"
)

// compilation is the state of one Compile call.
type compilation struct {
	ctx    context.Context
	p      engine.Provider
	logger *log.Logger
	diags  diag.List

	// files maps the file names recorded in AST positions back to ids.
	files   map[string]engine.FileID
	loading map[string]bool
}

func (c *compilation) errorf(at *diag.Span, format string, args ...any) {
	c.diags = append(c.diags, diag.Errorf(at, format, args...))
}

func (c *compilation) warnf(at *diag.Span, format string, args ...any) {
	c.diags = append(c.diags, diag.Warnf(at, format, args...))
}

func span(pos lexer.Position) *diag.Span {
	if pos.Line == 0 && pos.Filename == "" {
		return nil
	}
	return &diag.Span{File: pos.Filename, Line: pos.Line, Column: pos.Column}
}

// imports returns the merged resources of every document doc uses. Earlier
// imports win over later ones; the importing document's own resources win
// over all of them.
func (c *compilation) imports(id engine.FileID, doc *dsl.Document) layout.ResourceSet {
	merged := layout.NewResourceSet()
	c.loading[id.String()] = true
	defer delete(c.loading, id.String())

	for _, section := range doc.Sections {
		use := section.Use
		if use == nil {
			continue
		}
		at := span(use.Pos)
		target, err := engine.Resolve(id, string(use.Ref))
		if err != nil {
			c.errorf(at, "cannot import %q: %v", use.Ref, err)
			continue
		}
		if c.loading[target.String()] {
			c.errorf(at, "import cycle through %s", target)
			continue
		}
		imported, ok := c.parse(target, at)
		if !ok {
			continue
		}
		res := layout.CollectResources(imported)
		res.Merge(c.imports(target, imported))
		merged.Merge(res)
		c.logger.Debug("document imported", "from", id, "file", target)
	}
	return merged
}

// loadFonts attaches font data to every font resource. Fonts with a src are
// read as files; the rest are selected from the provider's font book.
func (c *compilation) loadFonts(res layout.ResourceSet) {
	for _, name := range res.FontNames() {
		font := res.Fonts[name]
		var err error
		if font.Src != "" {
			err = c.fontFromFile(&font)
		} else {
			err = c.fontFromBook(&font)
		}
		if err != nil {
			c.errorf(span(font.Pos), "font %s: %v", name, err)
			continue
		}
		res.Fonts[name] = font
	}
}

func (c *compilation) fontFromFile(font *layout.FontResource) error {
	id, err := engine.Resolve(c.fileOf(font.Pos), font.Src)
	if err != nil {
		return err
	}
	data, err := c.p.File(c.ctx, id)
	if err != nil {
		return err
	}
	font.Data = data
	font.Key = "file:" + id.String()
	return nil
}

func (c *compilation) fontFromBook(font *layout.FontResource) error {
	book := c.p.Book()
	variant := fontcache.ParseStyle(font.Style)
	family := font.Family
	if family == "" {
		family = font.Name
	}

	index, ok := book.Select(family, variant)
	if !ok && font.Fallback != "" {
		index, ok = book.Select(font.Fallback, variant)
	}
	if !ok {
		c.warnf(span(font.Pos), "unknown font family %q, using %q", family, fonts.DefaultFamily)
		index, ok = book.Select(fonts.DefaultFamily, variant)
	}
	if !ok {
		return fmt.Errorf("no font available for family %q", family)
	}
	face, ok := c.p.Font(index)
	if !ok {
		return fmt.Errorf("face %d of family %q could not be loaded", index, family)
	}
	font.Data = face.Data
	font.Index = face.Index
	font.Key = face.Key
	return nil
}

// LoadImage implements layout.ImageLoader. Relative sources resolve against
// the file the reference appears in.
func (c *compilation) LoadImage(src string, pos lexer.Position) ([]byte, error) {
	id, err := engine.Resolve(c.fileOf(pos), src)
	if err != nil {
		return nil, err
	}
	return c.p.File(c.ctx, id)
}

func (c *compilation) fileOf(pos lexer.Position) engine.FileID {
	if id, ok := c.files[pos.Filename]; ok {
		return id
	}
	return c.p.Main()
}

func (c *compilation) layoutError(err error) {
	var lerr *layout.Error
	if errors.As(err, &lerr) {
		c.errorf(span(lerr.Pos), "%s", lerr.Msg)
		return
	}
	c.errorf(nil, "%v", err)
}
