package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/ByLCY/inkwell/layout"
	"github.com/ByLCY/inkwell/renderer"
)

const tableBorderWidth = 0.2

// Renderer 基于 github.com/tdewolff/canvas 绘制布局结果。字体数据取自
// layout.FontResource，缺少数据时回退到内置的 Go 字体。
type Renderer struct {
	logger *log.Logger

	fontMu         sync.Mutex
	fontFamilies   map[string]*canvas.FontFamily
	fallbackFamily *canvas.FontFamily
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

// Option 配置 Renderer。
type Option func(*Renderer)

// WithLogger 设置日志输出，默认丢弃。
func WithLogger(l *log.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// New 创建基于 canvas 的渲染器。
func New(opts ...Option) *Renderer {
	r := &Renderer{
		logger:       log.New(io.Discard),
		fontFamilies: map[string]*canvas.FontFamily{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderPDF 将所有页面输出为一份 PDF。
func (r *Renderer) RenderPDF(result *layout.Result) ([]byte, error) {
	if err := checkResult(result); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := pdf.New(&buf, result.Pages[0].Width, result.Pages[0].Height, nil)
	keywords := strings.Join(result.Meta.Keywords, ", ")
	writer.SetInfo(result.Meta.Title, result.Meta.Subject, keywords, result.Meta.Author, result.Meta.Creator)
	for i, page := range result.Pages {
		if i > 0 {
			writer.NewPage(page.Width, page.Height)
		}
		c, err := r.pageCanvas(page, result.Resources, nil)
		if err != nil {
			return nil, fmt.Errorf("第 %d 页: %w", i+1, err)
		}
		c.RenderTo(writer)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPNG 按 opts.PPI 将单页栅格化。
func (r *Renderer) RenderPNG(result *layout.Result, page int, opts renderer.Raster) ([]byte, error) {
	p, err := pageAt(result, page)
	if err != nil {
		return nil, err
	}
	if opts.PPI <= 0 || math.IsNaN(opts.PPI) || math.IsInf(opts.PPI, 0) {
		return nil, fmt.Errorf("无效的像素密度 %v", opts.PPI)
	}
	c, err := r.pageCanvas(p, result.Resources, opts.Background)
	if err != nil {
		return nil, err
	}
	img := rasterizer.Draw(c, canvas.DPI(opts.PPI), canvas.DefaultColorSpace)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderSVG 将单页输出为独立的 SVG 文档。
func (r *Renderer) RenderSVG(result *layout.Result, page int) ([]byte, error) {
	p, err := pageAt(result, page)
	if err != nil {
		return nil, err
	}
	c, err := r.pageCanvas(p, result.Resources, nil)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	writer := svg.New(&buf, p.Width, p.Height, nil)
	c.RenderTo(writer)
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 SVG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// pageCanvas 把一页绘制到新的画布上；background 非空时先铺满底色。
func (r *Renderer) pageCanvas(page layout.Page, resources layout.ResourceSet, background color.Color) (*canvas.Canvas, error) {
	c := canvas.New(page.Width, page.Height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

	if background != nil {
		ctx.SetFillColor(background)
		ctx.SetStrokeColor(canvas.Transparent)
		ctx.DrawPath(0, 0, canvas.Rectangle(page.Width, page.Height))
	}
	if err := r.drawPage(ctx, page, resources); err != nil {
		return nil, err
	}
	return c, nil
}

func checkResult(result *layout.Result) error {
	if result == nil {
		return fmt.Errorf("渲染结果为空")
	}
	if len(result.Pages) == 0 {
		return fmt.Errorf("缺少可渲染的页面")
	}
	return nil
}

func pageAt(result *layout.Result, page int) (layout.Page, error) {
	if err := checkResult(result); err != nil {
		return layout.Page{}, err
	}
	if page < 0 || page >= len(result.Pages) {
		return layout.Page{}, fmt.Errorf("页码 %d 超出范围（共 %d 页）", page, len(result.Pages))
	}
	return result.Pages[page], nil
}

// LayoutLines 实现 layout.Typesetter 接口，使用贪心换行算法。
// 约定：fontSize/lineHeight 入参均为毫米（mm）。渲染器内部与字体系统交互使用 pt，并在边界做 mm↔pt 换算。
func (r *Renderer) LayoutLines(content string, width float64, font layout.FontResource, fontSize, lineHeight float64, wrap string) ([]layout.TextLine, error) {
	face, err := r.fontFace(font, toPt(fontSize), layout.Color{R: 30, G: 30, B: 30})
	if err != nil {
		return nil, err
	}
	if wrap == "" {
		wrap = "anywhere"
	}
	lines := greedyWrapTokens(content, width, face, wrap)
	textHeight := face.Metrics().LineHeight
	if textHeight <= 0 {
		textHeight = lineHeight
	}
	leading := math.Max(lineHeight-textHeight, 0)
	if len(lines) == 0 {
		lines = []layout.TextLine{{Height: textHeight}}
	}
	for i := range lines {
		if lines[i].Height <= 0 {
			lines[i].Height = textHeight
		}
		if i > 0 {
			lines[i].GapBefore = leading
		}
	}
	return lines, nil
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * layout.MmToPt }
