package papyrus

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/ByLCY/inkwell/diag"
	"github.com/ByLCY/inkwell/engine"
	"github.com/ByLCY/inkwell/fontcache"
)

// memProvider serves files from memory, keyed by FileID.String().
type memProvider struct {
	files   map[string][]byte
	book    *fontcache.Snapshot
	globals map[string]cty.Value
	lib     engine.Library
	now     time.Time
}

func newProvider(t *testing.T, main string) *memProvider {
	t.Helper()
	return &memProvider{
		files:   map[string][]byte{"/main.papyrus": []byte(main)},
		book:    fontcache.New(fontcache.WithEmbedded()).Snapshot(),
		globals: map[string]cty.Value{},
		lib:     New().Library(nil),
		now:     time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memProvider) Main() engine.FileID { return engine.Project("/main.papyrus") }

func (m *memProvider) Source(ctx context.Context, id engine.FileID) (string, error) {
	data, err := m.File(ctx, id)
	return string(data), err
}

func (m *memProvider) File(_ context.Context, id engine.FileID) ([]byte, error) {
	data, ok := m.files[id.String()]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return data, nil
}

func (m *memProvider) Book() engine.FontBook { return m.book }

func (m *memProvider) Font(i int) (fontcache.Face, bool) {
	face, err := m.book.Face(i)
	return face, err == nil
}

func (m *memProvider) Today(offset *int) (time.Time, bool) {
	if offset != nil {
		return m.now.In(time.FixedZone("", *offset*3600)), true
	}
	return m.now, true
}

func (m *memProvider) Global(name string) (cty.Value, bool) {
	if v, ok := m.globals[name]; ok {
		return v, true
	}
	return m.lib.Lookup(name)
}

func compile(t *testing.T, p *memProvider) (*Document, diag.List) {
	t.Helper()
	doc, diags := New().Compile(context.Background(), p)
	if doc == nil {
		return nil, diags
	}
	d, ok := doc.(*Document)
	require.True(t, ok)
	return d, diags
}

func TestCompileBindsGlobals(t *testing.T) {
	p := newProvider(t, `doc T v1 {
  meta { title: "Invoice ${_FOO}" }
  page A5 { flow { text { "value: ${_FOO} for ${upper(sys.inputs.who)}" } } }
}`)
	p.globals["_FOO"] = cty.StringVal("bar")
	p.lib = New().Library(map[string]string{"who": "ada"})

	doc, diags := compile(t, p)
	require.NotNil(t, doc, diags)
	assert.Empty(t, diags)
	assert.Equal(t, 1, doc.PageCount())
	assert.Equal(t, "value: bar for ADA", doc.Layout().Pages[0].Texts[0].Content)
	assert.Equal(t, "Invoice bar", doc.Layout().Meta.Title)
}

func TestCompileUnknownVariable(t *testing.T) {
	p := newProvider(t, `doc T v1 {
  page A5 { flow { text { "value: ${_FOO}" } } }
}`)
	doc, diags := compile(t, p)
	assert.Nil(t, doc)
	require.True(t, diags.HasErrors())
	assert.Contains(t, diags.Errors()[0].Message, "_FOO")
	require.NotNil(t, diags.Errors()[0].Span)
	assert.Equal(t, "/main.papyrus", diags.Errors()[0].Span.File)
	assert.Equal(t, 2, diags.Errors()[0].Span.Line)
}

func TestCompileParseError(t *testing.T) {
	p := newProvider(t, "doc Broken v1 {\n  page A4 {\n    = oops\n  }\n}\n")
	doc, diags := compile(t, p)
	assert.Nil(t, doc)
	require.Len(t, diags, 1)
	require.NotNil(t, diags[0].Span)
	assert.Equal(t, "/main.papyrus", diags[0].Span.File)
	assert.Positive(t, diags[0].Span.Line)
}

func TestCompileMissingMain(t *testing.T) {
	p := newProvider(t, "")
	delete(p.files, "/main.papyrus")
	doc, diags := compile(t, p)
	assert.Nil(t, doc)
	require.True(t, diags.HasErrors())
	assert.Contains(t, diags[0].Message, "/main.papyrus")
}

func TestCompileImports(t *testing.T) {
	p := newProvider(t, `doc Main v1 {
  use "shared/brand.papyrus"
  resources { style Title { color: Brand } }
  page A5 { flow { text Title { "Hello" } } }
}`)
	p.files["/shared/brand.papyrus"] = []byte(`doc Brand v1 {
  use "base.papyrus"
  resources { color Brand = #ff0000 }
}`)
	p.files["/shared/base.papyrus"] = []byte(`doc Base v1 {
  resources { color Brand = #00ff00 }
}`)

	doc, diags := compile(t, p)
	require.NotNil(t, doc, diags)
	assert.Equal(t, 255, doc.Layout().Pages[0].Texts[0].Color.R)
	assert.Contains(t, doc.Layout().Resources.Colors, "Brand")
}

func TestCompileImportFailures(t *testing.T) {
	p := newProvider(t, `doc Main v1 {
  use "missing.papyrus"
  use "self.papyrus"
  page A5 { flow { text { "Hello" } } }
}`)
	p.files["/self.papyrus"] = []byte(`doc Self v1 {
  use "self.papyrus"
}`)

	doc, diags := compile(t, p)
	assert.Nil(t, doc)
	errs := diags.Errors()
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Message, "missing.papyrus")
	assert.Equal(t, 2, errs[0].Span.Line)
	assert.Contains(t, errs[1].Message, "cycle")
}

func TestCompileUnknownFontFamilyWarns(t *testing.T) {
	p := newProvider(t, `doc T v1 {
  resources { font Body { family: "Nope Sans" style: "bold" } }
  page A5 { flow { text { "Hello" } } }
}`)
	doc, diags := compile(t, p)
	require.NotNil(t, doc, diags)
	require.Len(t, diags.Warnings(), 1)
	assert.Contains(t, diags.Warnings()[0].Message, "Nope Sans")

	font := doc.Layout().Resources.Fonts["Body"]
	assert.NotEmpty(t, font.Data)
	assert.NotEmpty(t, font.Key)
}

func TestCompileFontFromFile(t *testing.T) {
	p := newProvider(t, `doc T v1 {
  resources { font Body { src: "fonts/custom.ttf" } }
  page A5 { flow { text { "Hello" } } }
}`)
	face, err := p.book.Face(0)
	require.NoError(t, err)
	p.files["/fonts/custom.ttf"] = face.Data

	doc, diags := compile(t, p)
	require.NotNil(t, doc, diags)
	assert.Equal(t, "file:/fonts/custom.ttf", doc.Layout().Resources.Fonts["Body"].Key)

	delete(p.files, "/fonts/custom.ttf")
	doc, diags = compile(t, p)
	assert.Nil(t, doc)
	assert.True(t, diags.HasErrors())
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.Black)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCompileReadsImagesThroughProvider(t *testing.T) {
	p := newProvider(t, `doc T v1 {
  use "parts/logo.papyrus"
  page A5 { flow { image Logo } }
}`)
	p.files["/parts/logo.papyrus"] = []byte(`doc Logo v1 {
  resources { image Logo { src: "logo.png" width: 20mm } }
}`)
	p.files["/parts/logo.png"] = pngBytes(t)

	doc, diags := compile(t, p)
	require.NotNil(t, doc, diags)
	assert.Equal(t, p.files["/parts/logo.png"], doc.Layout().Pages[0].Images[0].Data)

	delete(p.files, "/parts/logo.png")
	doc, diags = compile(t, p)
	assert.Nil(t, doc)
	assert.True(t, diags.HasErrors())
}

func TestCompileHonoursCancellation(t *testing.T) {
	p := newProvider(t, `doc T v1 { page A5 { flow { text { "x" } } } }`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc, diags := New().Compile(ctx, p)
	assert.Nil(t, doc)
	assert.True(t, diags.HasErrors())
}

func TestRender(t *testing.T) {
	p := newProvider(t, `doc T v1 {
  page A5 { flow { text { "first" } } }
  page A5 { flow { text { "second" } } }
}`)
	e := New()
	doc, diags := e.Compile(context.Background(), p)
	require.NotNil(t, doc, diags)
	require.Equal(t, 2, doc.PageCount())

	pdf, err := e.RenderPDF(doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))

	raster, err := e.RenderPage(doc, 1, engine.PNG, engine.RasterOptions{PPI: 72, Background: color.White})
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(raster))
	require.NoError(t, err)

	svg, err := e.RenderPage(doc, 0, engine.SVG, engine.RasterOptions{})
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")

	_, err = e.RenderPage(doc, 2, engine.PNG, engine.RasterOptions{PPI: 72})
	assert.Error(t, err)
}

type foreign struct{}

func (foreign) PageCount() int { return 1 }

func TestRenderRejectsForeignDocuments(t *testing.T) {
	_, err := New().RenderPDF(foreign{})
	assert.ErrorIs(t, err, ErrForeignDocument)
	_, err = New().RenderPage(foreign{}, 0, engine.SVG, engine.RasterOptions{})
	assert.ErrorIs(t, err, ErrForeignDocument)
}

func TestLibrary(t *testing.T) {
	lib := New().Library(map[string]string{"customer": "ACME"})
	sys, ok := lib.Lookup("sys")
	require.True(t, ok)
	assert.Equal(t, "ACME", sys.GetAttr("inputs").GetAttr("customer").AsString())
	assert.Equal(t, Version, sys.GetAttr("version").AsString())

	_, ok = lib.Lookup("nope")
	assert.False(t, ok)
}
