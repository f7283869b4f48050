package layout

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/ByLCY/inkwell/dsl"
)

const (
	blockSpacing      = 3.0
	cellPadding       = 1.2
	defaultFontSize   = 12 * PtToMm
	defaultLineFactor = 1.4
)

var tableBorder = Color{R: 200, G: 200, B: 200}

// Build 根据 DSL AST 与资源集合生成页面布局。res 一般来自 CollectResources，
// 字体数据由调用方提前填好；每个 page 段落依次产生一页或多页。
func Build(doc *dsl.Document, res ResourceSet, opts BuildOptions) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	if opts.Typesetter == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	res.EnsureDefaultFont()
	styles, err := resolveStyles(res.Styles)
	if err != nil {
		return nil, err
	}
	res.Styles = styles

	b := &builder{res: res, opts: opts}
	var pages []Page
	for _, section := range doc.Sections {
		if section.Page == nil {
			continue
		}
		p, err := b.pages(section.Page)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p...)
	}
	if len(pages) == 0 {
		return nil, errorf(doc.Pos, "文档中缺少 page 段落")
	}
	return &Result{Pages: pages, Resources: res, Meta: b.meta(doc)}, nil
}

type builder struct {
	res  ResourceSet
	opts BuildOptions
}

func (b *builder) bind(text string, pos lexer.Position) string {
	if b.opts.Binder == nil {
		return text
	}
	return b.opts.Binder.Bind(text, pos)
}

func (b *builder) pages(section *dsl.PageSection) ([]Page, error) {
	width, height, err := resolvePageSize(section.Spec)
	if err != nil {
		return nil, errorf(section.Pos, "%v", err)
	}
	if section.Block == nil {
		return nil, errorf(section.Pos, "page 段落缺少内容")
	}
	margin := resolveMargin(section.Spec.Params)
	collector := newPageCollector(width, height, margin)

	// 先布局页眉/页脚，确定内容区域
	for _, st := range section.Block.Statements {
		cmd := st.Command
		if cmd == nil || (cmd.Name != "header" && cmd.Name != "footer") {
			continue
		}
		band, err := b.band(cmd, width, height, margin)
		if err != nil {
			return nil, err
		}
		if cmd.Name == "header" {
			collector.header = band
		} else {
			collector.footer = band
		}
	}

	root := &flowContext{
		baseX:          margin.Left,
		baseY:          collector.contentTop(),
		width:          width - margin.Left - margin.Right,
		cursorY:        collector.contentTop(),
		collector:      collector,
		allowPageBreak: true,
		textWrap:       "anywhere",
	}
	if err := b.block(section.Block, root); err != nil {
		return nil, err
	}
	return collector.pages(), nil
}

// block 依次处理容器内的命令。
func (b *builder) block(block *dsl.Block, ctx *flowContext) error {
	for _, stmt := range block.Statements {
		cmd := stmt.Command
		if cmd == nil {
			continue
		}
		var err error
		switch name := strings.ToLower(cmd.Name); name {
		case "flow":
			err = b.flow(cmd, ctx)
		case "absolute":
			err = b.absolute(cmd, ctx)
		case "text":
			err = b.text(cmd, ctx)
		case "image":
			err = b.image(cmd, ctx)
		case "table":
			err = b.table(cmd, ctx)
		case "line", "rect", "circle":
			_, attrs := parseArgs(cmd.Args, false)
			b.shape(name, attrs, ctx.acc())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) flow(cmd *dsl.Command, parent *flowContext) error {
	if cmd.Block == nil {
		return errorf(cmd.Pos, "flow 语句缺少子内容")
	}
	style, attrs := parseArgs(cmd.Args, false)
	attrs = b.withStyle(style, attrs)
	align := normalizeAlign(attrs["align"])

	width := parent.width
	if v := attrs["width"]; v != "" {
		if w := parseDimension(v, parent.width); w > 0 && w <= parent.width {
			width = w
		}
	} else if align == "center" || align == "right" {
		// 居中/右对齐且未给宽度时，按内容实际宽度收缩
		if w := b.measureBlock(cmd.Block, parent.width); w > 0 {
			width = math.Min(w, parent.width)
		}
	}

	child := parent.child(parent.baseX+alignOffset(parent.width, width, align), parent.cursorY, width)
	if align != "" {
		child.textAlign = align
	}
	if v := strings.TrimSpace(attrs["wrap"]); v != "" {
		child.textWrap = normalizeWrap(v)
	}
	if err := b.block(cmd.Block, child); err != nil {
		return err
	}
	if child.cursorY > parent.cursorY {
		parent.cursorY = child.cursorY + blockSpacing
	}
	return nil
}

func (b *builder) absolute(cmd *dsl.Command, parent *flowContext) error {
	if cmd.Block == nil {
		return errorf(cmd.Pos, "absolute 语句缺少子内容")
	}
	style, attrs := parseArgs(cmd.Args, false)
	attrs = b.withStyle(style, attrs)
	width := parent.width
	if w := parseDimension(attrs["width"], parent.width); w > 0 {
		width = w
	}
	x := parseDimension(attrs["x"], parent.width)
	y := parseDimension(attrs["y"], parent.width)

	child := parent.child(parent.baseX+x, parent.baseY+y, width)
	child.allowPageBreak = false
	child.textAlign = ""
	return b.block(cmd.Block, child)
}

func (b *builder) text(cmd *dsl.Command, ctx *flowContext) error {
	style, attrs := parseArgs(cmd.Args, true)
	attrs = b.withStyle(style, attrs)
	if normalizeAlign(attrs["align"]) == "" && ctx.textAlign != "" {
		attrs["align"] = ctx.textAlign
	}
	content := b.content(cmd.Block)
	if content == "" {
		return errorf(cmd.Pos, "text 语句缺少文本内容")
	}
	wrap := ctx.textWrap
	if v := strings.TrimSpace(attrs["wrap"]); v != "" {
		wrap = normalizeWrap(v)
	}
	tb, err := b.textBox(style, attrs, content, ctx.width, wrap, cmd.Pos)
	if err != nil {
		return err
	}
	ctx.ensureSpace(tb.Height)
	tb.X, tb.Y = ctx.baseX, ctx.cursorY
	ctx.acc().texts = append(ctx.acc().texts, tb)
	ctx.cursorY += tb.Height + blockSpacing
	return nil
}

// content 拼接块内的文本字面量，并逐段求值模板。
func (b *builder) content(block *dsl.Block) string {
	if block == nil {
		return ""
	}
	var sb strings.Builder
	for _, stmt := range block.Statements {
		if stmt.Text != nil {
			sb.WriteString(b.bind(string(stmt.Text.Value), stmt.Text.Pos))
		}
	}
	return sb.String()
}

// textBox 计算字号、行高与折行，返回坐标为 0 的文本框。
func (b *builder) textBox(style string, attrs map[string]string, content string, width float64, wrap string, pos lexer.Position) (TextBox, error) {
	fontName := attrs["font"]
	if fontName == "" {
		fontName = style
	}
	font, err := b.font(fontName, pos)
	if err != nil {
		return TextBox{}, err
	}

	size := ParseRawLengthStr(attrs["size"])
	fontSize := size.ToMM()
	if fontSize <= 0 {
		size = Length{Value: 12, Unit: UnitPT}
		fontSize = defaultFontSize
	}
	lh := parseLineHeight(attrs["line-height"])
	lineHeight := lh.Resolve(Length{Value: fontSize, Unit: UnitMM}, UnitMM)

	lines, err := b.opts.Typesetter.LayoutLines(content, width, font, fontSize, lineHeight, wrap)
	if err != nil {
		return TextBox{}, errorf(pos, "排版失败：%v", err)
	}
	if len(lines) == 0 {
		lines = []TextLine{{Width: width, Height: fontSize}}
	}
	leading := math.Max(lineHeight-fontSize, 0)
	total := 0.0
	for i := range lines {
		if lines[i].Height <= 0 {
			lines[i].Height = fontSize
		}
		switch {
		case i == 0:
			lines[i].GapBefore = 0
		case lines[i].GapBefore <= 0:
			lines[i].GapBefore = leading
		}
		total += lines[i].GapBefore + lines[i].Height
	}

	tb := TextBox{
		Content:    content,
		Width:      width,
		LineHeight: lineHeight,
		Font:       font.Name,
		FontSize:   fontSize,
		Color:      b.color(attrs["color"], defaultTextColor),
		Lines:      lines,
		Height:     total,
		Align:      normalizeAlign(attrs["align"]),
		Wrap:       wrap,
	}
	if b.opts.Debug.RawUnits {
		raw := lh.raw()
		tb.Debug = &TextBoxDebug{RawUnits: &RawUnits{
			FontSize:   &RawLengthJSON{Value: size.Value, Unit: UnitToString(size.Unit)},
			LineHeight: &raw,
		}}
	}
	return tb, nil
}

// font 查找字体资源；名称为空或未定义时退回 Body，再退回按名称排序的第一个字体。
func (b *builder) font(name string, pos lexer.Position) (FontResource, error) {
	if f, ok := b.res.Fonts[name]; ok {
		return f, nil
	}
	if f, ok := b.res.Fonts[DefaultFont]; ok {
		return f, nil
	}
	if names := b.res.FontNames(); len(names) > 0 {
		return b.res.Fonts[names[0]], nil
	}
	return FontResource{}, errorf(pos, "字体 %s 未定义，且没有可用的默认字体", name)
}

func (b *builder) image(cmd *dsl.Command, ctx *flowContext) error {
	box, err := b.imageBox(cmd, ctx.width)
	if err != nil {
		return err
	}
	ctx.ensureSpace(box.Height)
	box.X, box.Y = ctx.baseX, ctx.cursorY
	ctx.acc().images = append(ctx.acc().images, box)
	ctx.cursorY += box.Height + blockSpacing
	return nil
}

// imageBox 解析 image 命令：可引用 image 资源，也可直接给出 src。
func (b *builder) imageBox(cmd *dsl.Command, width float64) (ImageBox, error) {
	style, attrs := parseArgs(cmd.Args, true)
	attrs = b.withStyle(style, attrs)
	name := style
	for _, key := range []string{"image", "src"} {
		if attrs[key] != "" {
			name = attrs[key]
		}
	}
	if name == "" && len(cmd.Args) > 0 {
		name = cmd.Args[0].Value
	}
	if name == "" {
		return ImageBox{}, errorf(cmd.Pos, "image 语句缺少资源或 src")
	}

	box := ImageBox{Path: name, Fit: attrs["fit"], Opacity: 1}
	src, from := name, cmd.Pos
	if r, ok := b.res.Images[name]; ok {
		if r.Src != "" {
			box.Path, src, from = r.Src, r.Src, r.Pos
		}
		box.Width, box.Height = r.Width, r.Height
	}
	if v, err := strconv.ParseFloat(attrs["opacity"], 64); err == nil {
		box.Opacity = v
	}
	if w := parseDimension(attrs["width"], width); w > 0 {
		box.Width = w
	}
	if h := parseDimension(attrs["height"], width); h > 0 {
		box.Height = h
	}
	if box.Width == 0 {
		box.Width = width
		if box.Width <= 0 {
			box.Width = 40
		}
	}
	if box.Height == 0 {
		box.Height = box.Width * 0.6
	}

	if b.opts.Images != nil {
		data, err := b.opts.Images.LoadImage(src, from)
		if err != nil {
			return ImageBox{}, errorf(cmd.Pos, "图片 %s 无法读取：%v", src, err)
		}
		box.Data = data
	}
	return box, nil
}

func (b *builder) table(cmd *dsl.Command, ctx *flowContext) error {
	if cmd.Block == nil {
		return errorf(cmd.Pos, "table 语句缺少内容")
	}
	style, attrs := parseArgs(cmd.Args, false)
	attrs = b.withStyle(style, attrs)

	width := ctx.width
	if w := parseDimension(attrs["width"], ctx.width); w > 0 {
		width = w
	}
	rowGap := 0.0
	for _, key := range []string{"row-gap", "rowGap"} {
		if v := attrs[key]; v != "" {
			rowGap = math.Max(parseLength(v), 0)
			break
		}
	}
	columns, _ := strconv.Atoi(attrs["columns"])

	layoutAt := func(top float64) (TableBox, error) {
		t := TableBox{X: ctx.baseX, Y: top, Width: width, RowGap: rowGap, BorderColor: tableBorder}
		cols := max(columns, 0)
		y := top
		for _, stmt := range cmd.Block.Statements {
			rc := stmt.Command
			if rc == nil || (rc.Name != "header" && rc.Name != "row") {
				continue
			}
			row, n, err := b.row(rc, cols, width, t.X, y)
			if err != nil {
				return TableBox{}, err
			}
			if cols == 0 {
				cols = n
			}
			t.Rows = append(t.Rows, row)
			y += row.Height + rowGap
		}
		if cols == 0 {
			return TableBox{}, errorf(cmd.Pos, "table 需要至少一个单元格")
		}
		t.ColumnWidths = make([]float64, cols)
		for i := range t.ColumnWidths {
			t.ColumnWidths[i] = width / float64(cols)
		}
		return t, nil
	}
	height := func(t TableBox) float64 {
		if len(t.Rows) == 0 {
			return 0
		}
		last := t.Rows[len(t.Rows)-1]
		return last.Y + last.Height - t.Y
	}

	t, err := layoutAt(ctx.cursorY)
	if err != nil {
		return err
	}
	// 整表放不下时整体移到下一页
	if ctx.allowPageBreak && ctx.cursorY+height(t) > ctx.collector.contentBottom() {
		ctx.pageBreak()
		if t, err = layoutAt(ctx.cursorY); err != nil {
			return err
		}
	}
	ctx.acc().tables = append(ctx.acc().tables, t)
	ctx.cursorY += height(t) + blockSpacing
	return nil
}

// row 布局一行单元格，返回行与实际单元格数。
func (b *builder) row(cmd *dsl.Command, columns int, tableWidth, x, y float64) (TableRow, int, error) {
	row := TableRow{Y: y, IsHeader: cmd.Name == "header"}
	if cmd.Block == nil {
		return row, 0, errorf(cmd.Pos, "row/header 缺少 cell 定义")
	}
	if columns <= 0 {
		for _, stmt := range cmd.Block.Statements {
			if stmt.Command != nil && stmt.Command.Name == "cell" {
				columns++
			}
		}
	}
	colWidth := tableWidth / float64(max(columns, 1))
	inner := colWidth - 2*cellPadding
	if inner <= 0 {
		inner = colWidth
	}

	tallest := 0.0
	for _, stmt := range cmd.Block.Statements {
		cell := stmt.Command
		if cell == nil || cell.Name != "cell" {
			continue
		}
		content := b.content(cell.Block)
		if content == "" {
			continue
		}
		style, attrs := parseArgs(cell.Args, true)
		attrs = b.withStyle(style, attrs)
		tb, err := b.textBox(style, attrs, content, inner, normalizeWrap(attrs["wrap"]), cell.Pos)
		if err != nil {
			return row, 0, err
		}
		tb.X = x + float64(len(row.Cells))*colWidth + cellPadding
		tb.Y = y + cellPadding
		row.Cells = append(row.Cells, TableCell{Text: tb})
		tallest = math.Max(tallest, tb.Height)
	}
	if len(row.Cells) == 0 {
		return row, 0, errorf(cmd.Pos, "row/header 中至少需要一个 cell")
	}
	row.Height = tallest + 2*cellPadding
	return row, len(row.Cells), nil
}

// measureBlock 估算块内容不折行时的宽度，用于收缩居中/右对齐的 flow。
func (b *builder) measureBlock(block *dsl.Block, limit float64) float64 {
	widest := 0.0
	for _, stmt := range block.Statements {
		cmd := stmt.Command
		if cmd == nil {
			continue
		}
		var w float64
		switch cmd.Name {
		case "flow":
			if cmd.Block != nil {
				w = b.measureBlock(cmd.Block, limit)
			}
		case "text":
			style, attrs := parseArgs(cmd.Args, true)
			attrs = b.withStyle(style, attrs)
			if v := attrs["width"]; v != "" {
				w = parseDimension(v, limit)
				break
			}
			content := b.content(cmd.Block)
			if content == "" {
				continue
			}
			tb, err := b.textBox(style, attrs, content, math.MaxFloat64, "nowrap", cmd.Pos)
			if err != nil {
				continue
			}
			for _, ln := range tb.Lines {
				w = math.Max(w, ln.Width)
			}
		case "image", "table":
			_, attrs := parseArgs(cmd.Args, cmd.Name == "image")
			w = parseDimension(attrs["width"], limit)
		}
		widest = math.Max(widest, w)
	}
	return widest
}

var pagePresets = map[string][2]float64{
	"A3":     {297, 420},
	"A4":     {210, 297},
	"A5":     {148, 210},
	"LETTER": {215.9, 279.4},
	"LEGAL":  {215.9, 355.6},
}

func resolvePageSize(spec dsl.PageSpec) (float64, float64, error) {
	size, ok := pagePresets[strings.ToUpper(spec.Size)]
	if !ok {
		return 0, 0, fmt.Errorf("暂不支持的纸张尺寸：%s", spec.Size)
	}
	w, h := size[0], size[1]
	for _, token := range spec.Params {
		if token.Value == "landscape" {
			w, h = h, w
		}
	}
	return w, h, nil
}

// resolveMargin 解析 margin 后最多四个长度，语义与 CSS 类似：
// 1 个值四边相同；2 个值为上下、左右；3 个值为上、右、下（左为 0）；4 个值为上、右、下、左。
func resolveMargin(params []*dsl.Lexeme) Margin {
	margin := Margin{Top: 20, Right: 20, Bottom: 20, Left: 20}
	for i, token := range params {
		if token.Value != "margin" {
			continue
		}
		var vals []float64
		for _, p := range params[i+1:] {
			if len(vals) == 4 || !isLength(p.Value) {
				break
			}
			vals = append(vals, parseLength(p.Value))
		}
		switch len(vals) {
		case 1:
			margin = Margin{Top: vals[0], Right: vals[0], Bottom: vals[0], Left: vals[0]}
		case 2:
			margin = Margin{Top: vals[0], Right: vals[1], Bottom: vals[0], Left: vals[1]}
		case 3:
			margin = Margin{Top: vals[0], Right: vals[1], Bottom: vals[2]}
		case 4:
			margin = Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[3]}
		}
	}
	return margin
}
