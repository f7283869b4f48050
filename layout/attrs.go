package layout

import (
	"strconv"
	"strings"

	"github.com/ByLCY/inkwell/dsl"
)

var defaultTextColor = Color{R: 30, G: 30, B: 30}

// parseArgs 将命令参数解析为样式名与 key/value 属性。
// 参数个数为奇数时，首个标识符视为样式名。
func parseArgs(args []*dsl.Lexeme, allowStyle bool) (string, map[string]string) {
	attrs := map[string]string{}
	cursor := 0
	var style string
	if allowStyle && len(args)%2 == 1 && args[0].Type == "Ident" {
		style = args[0].Value
		cursor = 1
	}
	for ; cursor+1 < len(args); cursor += 2 {
		attrs[args[cursor].Value] = args[cursor+1].Value
	}
	return style, attrs
}

// withStyle 返回样式属性与行内属性合并后的结果，行内优先。
func (b *builder) withStyle(style string, inline map[string]string) map[string]string {
	out := map[string]string{}
	if s, ok := b.res.Styles[style]; ok {
		for k, v := range s.Props {
			out[k] = v
		}
	}
	for k, v := range inline {
		out[k] = v
	}
	return out
}

func (b *builder) color(value string, fallback Color) Color {
	if value == "" {
		return fallback
	}
	if c, ok := b.res.Colors[value]; ok {
		return c
	}
	if c, err := parseColor(value); err == nil {
		return c
	}
	return fallback
}

// parseLength 返回以毫米为单位的长度；无单位的数值按毫米处理。
func parseLength(value string) float64 {
	return ParseRawLengthStr(value).ToMM()
}

// parseDimension 支持百分比（相对 reference）与绝对长度。
func parseDimension(value string, reference float64) float64 {
	if num, ok := strings.CutSuffix(strings.TrimSpace(value), "%"); ok {
		if f, err := strconv.ParseFloat(num, 64); err == nil {
			return reference * f / 100
		}
		return 0
	}
	return parseLength(value)
}

// isLength 判断 token 是否为数值（可带单位）。
func isLength(value string) bool {
	num := strings.ToLower(value)
	for _, suffix := range []string{"pt", "mm", "cm", "in", "%"} {
		if trimmed, ok := strings.CutSuffix(num, suffix); ok {
			num = trimmed
			break
		}
	}
	_, err := strconv.ParseFloat(num, 64)
	return err == nil
}

// parseLineHeight 支持倍数（1.2x）与绝对长度（18pt），默认 1.4 倍。
func parseLineHeight(value string) LineHeightSpec {
	v := strings.TrimSpace(value)
	if factor, ok := strings.CutSuffix(v, "x"); ok {
		if f, err := strconv.ParseFloat(factor, 64); err == nil && f > 0 {
			return LineHeightSpec{Kind: LineHeightFactor, Factor: f}
		}
	} else if l := ParseRawLengthStr(v); l.Value > 0 {
		return LineHeightSpec{Kind: LineHeightAbsolute, Len: l}
	}
	return LineHeightSpec{Kind: LineHeightFactor, Factor: defaultLineFactor}
}

// normalizeAlign 规范化对齐方式，start/end 映射为 left/right；无法识别时返回空串。
func normalizeAlign(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "left", "start":
		return "left"
	case "center", "middle":
		return "center"
	case "right", "end":
		return "right"
	default:
		return ""
	}
}

func normalizeWrap(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "break-word", "word-break:break-word":
		return "break-word"
	case "nowrap", "no-wrap":
		return "nowrap"
	case "normal":
		return "normal"
	default:
		return "anywhere"
	}
}

func alignOffset(container, width float64, align string) float64 {
	if container <= width {
		return 0
	}
	switch normalizeAlign(align) {
	case "center":
		return (container - width) / 2
	case "right":
		return container - width
	default:
		return 0
	}
}

// shape 解析 line/rect/circle 命令，坐标为页面坐标（mm）。
func (b *builder) shape(name string, attrs map[string]string, acc *pageAccumulator) {
	switch name {
	case "line":
		if ln, ok := b.lineShape(attrs); ok {
			acc.lines = append(acc.lines, ln)
		}
	case "rect":
		if rc, ok := b.rectShape(attrs); ok {
			acc.rects = append(acc.rects, rc)
		}
	case "circle":
		if c, ok := b.circleShape(attrs); ok {
			acc.circles = append(acc.circles, c)
		}
	}
}

// lineShape 支持完整形式 x1/y1/x2/y2 与简写形式：
//
//	line x <len> y <len> length <len> [dir h|v] [color <..>] [width <len>]
func (b *builder) lineShape(attrs map[string]string) (Line, bool) {
	ln := Line{
		X1:    parseLength(attrs["x1"]),
		Y1:    parseLength(attrs["y1"]),
		X2:    parseLength(attrs["x2"]),
		Y2:    parseLength(attrs["y2"]),
		Color: b.color(attrs["color"], Color{}),
		Width: parseLength(attrs["width"]),
	}
	if ln.X1 != 0 || ln.Y1 != 0 || ln.X2 != 0 || ln.Y2 != 0 {
		return ln, true
	}
	x, y := parseLength(attrs["x"]), parseLength(attrs["y"])
	length := parseLength(attrs["length"])
	if (x == 0 && y == 0) || length <= 0 {
		return Line{}, false
	}
	ln.X1, ln.Y1 = x, y
	switch strings.ToLower(strings.TrimSpace(attrs["dir"])) {
	case "", "h", "hor", "horizontal":
		ln.X2, ln.Y2 = x+length, y
	case "v", "ver", "vertical":
		ln.X2, ln.Y2 = x, y+length
	default:
		return Line{}, false
	}
	return ln, true
}

func (b *builder) rectShape(attrs map[string]string) (Rect, bool) {
	rc := Rect{
		X:           parseLength(attrs["x"]),
		Y:           parseLength(attrs["y"]),
		Width:       parseLength(attrs["width"]),
		Height:      parseLength(attrs["height"]),
		StrokeColor: b.color(attrs["stroke"], Color{}),
		StrokeWidth: parseLength(attrs["stroke-width"]),
	}
	if rc.Width <= 0 || rc.Height <= 0 {
		return Rect{}, false
	}
	if v := attrs["fill"]; v != "" {
		c := b.color(v, Color{})
		rc.FillColor = &c
	}
	return rc, true
}

func (b *builder) circleShape(attrs map[string]string) (Circle, bool) {
	c := Circle{
		CX:          parseLength(attrs["cx"]),
		CY:          parseLength(attrs["cy"]),
		R:           parseLength(attrs["r"]),
		StrokeColor: b.color(attrs["stroke"], Color{}),
		StrokeWidth: parseLength(attrs["stroke-width"]),
	}
	if c.R <= 0 {
		return Circle{}, false
	}
	if v := attrs["fill"]; v != "" {
		fill := b.color(v, Color{})
		c.FillColor = &fill
	}
	return c, true
}
