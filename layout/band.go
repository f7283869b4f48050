package layout

import (
	"strings"

	"github.com/ByLCY/inkwell/dsl"
)

// band 布局页眉或页脚（text/image/图形），结果在每一页重复绘制。
// 页眉内容贴合区域底边，页脚区域从页面底部向上占用 height。
func (b *builder) band(cmd *dsl.Command, pageW, pageH float64, margin Margin) (HeaderFooter, error) {
	var hf HeaderFooter
	if cmd.Block == nil {
		return hf, nil
	}
	_, attrs := parseArgs(cmd.Args, false)
	header := cmd.Name == "header"
	width := pageW - margin.Left - margin.Right

	acc := &pageAccumulator{}
	cursor := 0.0
	for _, st := range cmd.Block.Statements {
		c := st.Command
		if c == nil {
			continue
		}
		switch name := strings.ToLower(c.Name); name {
		case "text":
			style, tattrs := parseArgs(c.Args, true)
			all := b.withStyle(style, tattrs)
			tb, err := b.textBox(style, all, b.content(c.Block), width, normalizeWrap(all["wrap"]), c.Pos)
			if err != nil {
				return hf, err
			}
			tb.X, tb.Y = margin.Left, cursor
			if header && tb.Align == "" {
				tb.Align = "center"
			}
			acc.texts = append(acc.texts, tb)
			cursor += tb.Height + blockSpacing
		case "image":
			img, err := b.imageBox(c, width)
			if err != nil {
				return hf, err
			}
			_, iattrs := parseArgs(c.Args, true)
			align := normalizeAlign(iattrs["align"])
			if align == "" && header {
				align = "center"
			}
			img.X = margin.Left + alignOffset(width, img.Width, align)
			img.Y = cursor
			acc.images = append(acc.images, img)
			cursor += img.Height + blockSpacing
		case "line", "rect", "circle":
			_, a := parseArgs(c.Args, false)
			b.shape(name, a, acc)
		}
	}
	if cursor > 0 {
		cursor -= blockSpacing
	}

	content := cursor
	area := content
	if h := parseDimension(attrs["height"], width); h > 0 {
		area = h
	}
	base := pageH - area
	if header {
		base = max(area-content, 0)
	}
	for i := range acc.texts {
		acc.texts[i].Y += base
	}
	for i := range acc.images {
		acc.images[i].Y += base
	}

	hf.Height = area
	hf.Texts = acc.texts
	hf.Images = acc.images
	hf.Lines = acc.lines
	hf.Rects = acc.rects
	hf.Circles = acc.circles
	return hf, nil
}
