package layout

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/ByLCY/inkwell/dsl"
	"github.com/ByLCY/inkwell/fonts"
)

// DefaultFont 是未指定字体时使用的资源名。
const DefaultFont = "Body"

// NewResourceSet 返回一个空的资源集合。
func NewResourceSet() ResourceSet {
	return ResourceSet{
		Fonts:  map[string]FontResource{},
		Colors: map[string]Color{},
		Images: map[string]ImageResource{},
		Styles: map[string]Style{},
	}
}

// CollectResources 收集文档 resources 段中声明的字体、颜色、图片与样式。
// 样式继承留到 Build 时解析，这样导入的资源可以先合并。
func CollectResources(doc *dsl.Document) ResourceSet {
	res := NewResourceSet()
	if doc == nil {
		return res
	}
	for _, section := range doc.Sections {
		if section.Resources == nil || section.Resources.Block == nil {
			continue
		}
		for _, stmt := range section.Resources.Block.Statements {
			cmd := stmt.Command
			if cmd == nil || len(cmd.Args) == 0 {
				continue
			}
			name := cmd.Args[0].Value
			switch cmd.Name {
			case "font":
				res.Fonts[name] = parseFontResource(cmd)
			case "color":
				if c, err := parseColor(cmd.Args[len(cmd.Args)-1].Value); err == nil && len(cmd.Args) > 1 {
					res.Colors[name] = c
				}
			case "image":
				res.Images[name] = parseImageResource(cmd)
			case "style":
				res.Styles[name] = parseStyleResource(cmd)
			}
		}
	}
	return res
}

// Merge 把 base 中本集合没有的资源补进来；同名资源以本集合为准。
func (r ResourceSet) Merge(base ResourceSet) {
	mergeMissing(r.Fonts, base.Fonts)
	mergeMissing(r.Colors, base.Colors)
	mergeMissing(r.Images, base.Images)
	mergeMissing(r.Styles, base.Styles)
}

func mergeMissing[V any](dst, src map[string]V) {
	for k, v := range src {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
}

// EnsureDefaultFont 在没有声明任何字体时补一个使用默认字体族的 Body。
func (r *ResourceSet) EnsureDefaultFont() {
	if r.Fonts == nil {
		r.Fonts = map[string]FontResource{}
	}
	if len(r.Fonts) == 0 {
		r.Fonts[DefaultFont] = FontResource{Name: DefaultFont, Family: fonts.DefaultFamily}
	}
}

// FontNames 按名称排序返回所有字体资源名。
func (r ResourceSet) FontNames() []string {
	names := make([]string, 0, len(r.Fonts))
	for name := range r.Fonts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parseFontResource(cmd *dsl.Command) FontResource {
	font := FontResource{
		Name:   cmd.Args[0].Value,
		Family: cmd.Args[0].Value,
		Pos:    cmd.Pos,
	}
	for _, a := range assignments(cmd.Block) {
		val := valueToString(a.Value)
		switch a.Key {
		case "family":
			font.Family = val
		case "style":
			font.Style = val
		case "src":
			font.Src = val
		case "fallback":
			font.Fallback = val
		}
	}
	return font
}

func parseImageResource(cmd *dsl.Command) ImageResource {
	image := ImageResource{Name: cmd.Args[0].Value, Pos: cmd.Pos}
	for _, a := range assignments(cmd.Block) {
		val := valueToString(a.Value)
		switch a.Key {
		case "src":
			image.Src = val
		case "width":
			image.Width = parseLength(val)
		case "height":
			image.Height = parseLength(val)
		case "dpi":
			if v, err := strconv.Atoi(val); err == nil {
				image.DPI = v
			}
		}
	}
	return image
}

func parseStyleResource(cmd *dsl.Command) Style {
	style := Style{Name: cmd.Args[0].Value, Props: map[string]string{}, Pos: cmd.Pos}
	if len(cmd.Args) >= 3 && strings.EqualFold(cmd.Args[1].Value, "extends") {
		style.Extends = cmd.Args[2].Value
	}
	for _, a := range assignments(cmd.Block) {
		if val := valueToString(a.Value); val != "" {
			style.Props[a.Key] = val
		}
	}
	return style
}

func assignments(block *dsl.Block) []*dsl.Assignment {
	if block == nil {
		return nil
	}
	var out []*dsl.Assignment
	for _, stmt := range block.Statements {
		if stmt.Assignment != nil {
			out = append(out, stmt.Assignment)
		}
	}
	return out
}

// resolveStyles 展开 extends 继承链，子样式覆盖父样式。
func resolveStyles(styles map[string]Style) (map[string]Style, error) {
	resolved := make(map[string]Style, len(styles))
	visiting := map[string]bool{}

	var visit func(name string, from lexer.Position) (Style, error)
	visit = func(name string, from lexer.Position) (Style, error) {
		if style, ok := resolved[name]; ok {
			return style, nil
		}
		style, ok := styles[name]
		if !ok {
			return Style{}, errorf(from, "style %s 未定义", name)
		}
		if visiting[name] {
			return Style{}, errorf(style.Pos, "style 继承存在循环：%s", name)
		}
		visiting[name] = true
		defer delete(visiting, name)

		props := map[string]string{}
		if style.Extends != "" {
			parent, err := visit(style.Extends, style.Pos)
			if err != nil {
				return Style{}, err
			}
			for k, v := range parent.Props {
				props[k] = v
			}
		}
		for k, v := range style.Props {
			props[k] = v
		}
		style.Props = props
		resolved[name] = style
		return style, nil
	}

	names := make([]string, 0, len(styles))
	for name := range styles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := visit(name, styles[name].Pos); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

func (b *builder) meta(doc *dsl.Document) DocumentMeta {
	meta := DocumentMeta{Creator: "inkwell"}
	for _, section := range doc.Sections {
		if section.Meta == nil {
			continue
		}
		for _, a := range assignments(section.Meta.Block) {
			switch strings.ToLower(a.Key) {
			case "title":
				meta.Title = b.bind(valueToString(a.Value), a.Pos)
			case "author":
				meta.Author = b.bind(valueToString(a.Value), a.Pos)
			case "subject":
				meta.Subject = b.bind(valueToString(a.Value), a.Pos)
			case "creator":
				meta.Creator = b.bind(valueToString(a.Value), a.Pos)
			case "keywords":
				for _, kw := range valueToStringSlice(a.Value) {
					meta.Keywords = append(meta.Keywords, b.bind(kw, a.Pos))
				}
			}
		}
	}
	return meta
}

func valueToString(val *dsl.Value) string {
	if val == nil {
		return ""
	}
	switch {
	case val.String != nil:
		return string(*val.String)
	case val.Number != nil:
		return *val.Number
	case val.Color != nil:
		return *val.Color
	case val.Expr != nil:
		var sb strings.Builder
		for _, part := range val.Expr.Parts {
			sb.WriteString(part.Value)
		}
		return sb.String()
	default:
		return ""
	}
}

func valueToStringSlice(val *dsl.Value) []string {
	if val == nil {
		return nil
	}
	if val.Array == nil {
		if s := valueToString(val); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(val.Array.Values))
	for _, item := range val.Array.Values {
		if s := valueToString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseColor(value string) (Color, error) {
	hex := strings.TrimPrefix(value, "#")
	if len(hex) == 3 {
		hex = strings.Repeat(hex[0:1], 2) + strings.Repeat(hex[1:2], 2) + strings.Repeat(hex[2:3], 2)
	}
	if !strings.HasPrefix(value, "#") || (len(hex) != 6 && len(hex) != 8) {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	v, err := strconv.ParseUint(hex[:6], 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	return Color{R: int(v >> 16 & 0xff), G: int(v >> 8 & 0xff), B: int(v & 0xff)}, nil
}
