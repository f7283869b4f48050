package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/tdewolff/canvas"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/ByLCY/inkwell/layout"
)

// drawPage 依次绘制页眉、主体与页脚。每个区域先画形状作为背景，再画文本与图片。
func (r *Renderer) drawPage(ctx *canvas.Context, page layout.Page, resources layout.ResourceSet) error {
	if err := r.drawBand(ctx, page.Header, resources); err != nil {
		return err
	}

	drawLines(ctx, page.Lines)
	drawRects(ctx, page.Rects)
	drawCircles(ctx, page.Circles)
	for _, tb := range page.Texts {
		if err := r.drawTextBox(ctx, tb, resolveFontResource(tb.Font, resources.Fonts)); err != nil {
			return err
		}
	}
	if err := drawImages(ctx, page.Images); err != nil {
		return err
	}
	if err := r.drawTables(ctx, page.Tables, resources.Fonts); err != nil {
		return err
	}

	return r.drawBand(ctx, page.Footer, resources)
}

func (r *Renderer) drawBand(ctx *canvas.Context, band layout.HeaderFooter, resources layout.ResourceSet) error {
	drawLines(ctx, band.Lines)
	drawRects(ctx, band.Rects)
	drawCircles(ctx, band.Circles)
	for _, tb := range band.Texts {
		if err := r.drawTextBox(ctx, tb, resolveFontResource(tb.Font, resources.Fonts)); err != nil {
			return err
		}
	}
	return drawImages(ctx, band.Images)
}

func (r *Renderer) drawTextBox(ctx *canvas.Context, tb layout.TextBox, fontRes layout.FontResource) error {
	// TextBox 的坐标/字号/行高均为 mm；创建字体面需要 pt，这里做一次 mm→pt。
	face, err := r.fontFace(fontRes, toPt(tb.FontSize), tb.Color)
	if err != nil {
		return err
	}

	lines := tb.Lines
	if len(lines) == 0 {
		lines = []layout.TextLine{{Content: tb.Content, Width: tb.Width, Height: tb.LineHeight}}
	}

	var textAlign canvas.TextAlign
	var anchorX float64
	switch strings.ToLower(tb.Align) {
	case "center":
		textAlign = canvas.Center
		anchorX = tb.X + tb.Width/2
	case "right", "end":
		textAlign = canvas.Right
		anchorX = tb.X + tb.Width
	default:
		textAlign = canvas.Left
		anchorX = tb.X
	}

	ascent := face.Metrics().Ascent
	cursorY := tb.Y
	for _, line := range lines {
		cursorY += line.GapBefore
		lineHeight := line.Height
		if lineHeight <= 0 {
			lineHeight = tb.LineHeight
		}
		// 基线 = 行顶部 + 字体上升部
		ctx.DrawText(anchorX, cursorY+ascent, canvas.NewTextLine(face, line.Content, textAlign))
		cursorY += lineHeight
	}
	return nil
}

func drawImages(ctx *canvas.Context, images []layout.ImageBox) error {
	for _, img := range images {
		if len(img.Data) == 0 {
			return fmt.Errorf("图片 %s 没有数据", img.Path)
		}
		decoded, _, err := image.Decode(bytes.NewReader(img.Data))
		if err != nil {
			return fmt.Errorf("解码图片 %s 失败: %w", img.Path, err)
		}
		px := decoded.Bounds().Dx()
		width := img.Width
		if width <= 0 {
			width = float64(px) / 4.0
		}
		if px <= 0 || width <= 0 {
			continue
		}
		ctx.DrawImage(img.X, img.Y, decoded, canvas.DPMM(float64(px)/width))
	}
	return nil
}

func (r *Renderer) drawTables(ctx *canvas.Context, tables []layout.TableBox, fonts map[string]layout.FontResource) error {
	headerFill := canvas.Hex("#f8f8f8")
	for _, table := range tables {
		if len(table.ColumnWidths) == 0 {
			continue
		}
		for _, row := range table.Rows {
			x := table.X
			for idx, cell := range row.Cells {
				colWidth := table.ColumnWidths[min(idx, len(table.ColumnWidths)-1)]
				fill := color.Color(canvas.White)
				if row.IsHeader {
					fill = headerFill
				}
				ctx.SetFillColor(fill)
				ctx.SetStrokeColor(colorFromLayout(table.BorderColor))
				ctx.SetStrokeWidth(tableBorderWidth)
				ctx.DrawPath(x, row.Y, canvas.Rectangle(colWidth, row.Height))

				text := cell.Text
				text.X += tableBorderWidth
				text.Y += tableBorderWidth
				if err := r.drawTextBox(ctx, text, resolveFontResource(text.Font, fonts)); err != nil {
					return err
				}
				x += colWidth
			}
		}
	}
	return nil
}

func drawLines(ctx *canvas.Context, lines []layout.Line) {
	for _, ln := range lines {
		ctx.SetStrokeColor(colorFromLayout(ln.Color))
		ctx.SetStrokeWidth(strokeWidth(ln.Width))
		p := &canvas.Path{}
		p.MoveTo(0, 0)
		p.LineTo(ln.X2-ln.X1, ln.Y2-ln.Y1)
		ctx.DrawPath(ln.X1, ln.Y1, p)
	}
}

func drawRects(ctx *canvas.Context, rects []layout.Rect) {
	for _, rc := range rects {
		setShapeStyle(ctx, rc.StrokeColor, rc.StrokeWidth, rc.FillColor)
		ctx.DrawPath(rc.X, rc.Y, canvas.Rectangle(rc.Width, rc.Height))
	}
}

func drawCircles(ctx *canvas.Context, circles []layout.Circle) {
	for _, c := range circles {
		setShapeStyle(ctx, c.StrokeColor, c.StrokeWidth, c.FillColor)
		ctx.DrawPath(c.CX-c.R, c.CY-c.R, canvas.Circle(c.R))
	}
}

func setShapeStyle(ctx *canvas.Context, stroke layout.Color, width float64, fill *layout.Color) {
	if fill != nil {
		ctx.SetFillColor(colorFromLayout(*fill))
	} else {
		ctx.SetFillColor(canvas.Transparent)
	}
	ctx.SetStrokeColor(colorFromLayout(stroke))
	ctx.SetStrokeWidth(strokeWidth(width))
}

func strokeWidth(w float64) float64 {
	if w <= 0 {
		return tableBorderWidth
	}
	return w
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}
