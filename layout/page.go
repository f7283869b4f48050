package layout

// pageAccumulator 收集某一页的主体元素。
type pageAccumulator struct {
	texts   []TextBox
	images  []ImageBox
	tables  []TableBox
	lines   []Line
	rects   []Rect
	circles []Circle
}

// pageCollector 管理一个 page 段落产生的所有页面；页眉页脚在每页重复。
type pageCollector struct {
	width, height float64
	margin        Margin
	header        HeaderFooter
	footer        HeaderFooter
	accs          []*pageAccumulator
}

func newPageCollector(width, height float64, margin Margin) *pageCollector {
	pc := &pageCollector{width: width, height: height, margin: margin}
	pc.newPage()
	return pc
}

func (pc *pageCollector) newPage() *pageAccumulator {
	acc := &pageAccumulator{}
	pc.accs = append(pc.accs, acc)
	return acc
}

func (pc *pageCollector) curr() *pageAccumulator { return pc.accs[len(pc.accs)-1] }

// contentTop 为内容区域顶部：上边距与页眉高度取大者。
func (pc *pageCollector) contentTop() float64 {
	return max(pc.margin.Top, pc.header.Height)
}

// contentBottom 为内容区域底部：页面高度减去下边距与页脚高度中的大者。
func (pc *pageCollector) contentBottom() float64 {
	return pc.height - max(pc.margin.Bottom, pc.footer.Height)
}

func (pc *pageCollector) pages() []Page {
	out := make([]Page, len(pc.accs))
	for i, acc := range pc.accs {
		out[i] = Page{
			Width:   pc.width,
			Height:  pc.height,
			Margin:  pc.margin,
			Texts:   acc.texts,
			Images:  acc.images,
			Tables:  acc.tables,
			Lines:   acc.lines,
			Rects:   acc.rects,
			Circles: acc.circles,
			Header:  pc.header,
			Footer:  pc.footer,
		}
	}
	return out
}

// flowContext 是一个排版容器：flow 在父容器内纵向堆叠，absolute 固定位置且不分页。
type flowContext struct {
	baseX, baseY   float64
	width          float64
	cursorY        float64
	parent         *flowContext
	collector      *pageCollector
	allowPageBreak bool
	textAlign      string // 子 text 未声明 align 时继承
	textWrap       string // 子 text 未声明 wrap 时继承
}

func (ctx *flowContext) child(baseX, baseY, width float64) *flowContext {
	return &flowContext{
		baseX:          baseX,
		baseY:          baseY,
		width:          width,
		cursorY:        baseY,
		parent:         ctx,
		collector:      ctx.collector,
		allowPageBreak: ctx.allowPageBreak,
		textAlign:      ctx.textAlign,
		textWrap:       ctx.textWrap,
	}
}

// ensureSpace 在剩余空间不足 height 时换页。
func (ctx *flowContext) ensureSpace(height float64) {
	if !ctx.allowPageBreak || ctx.cursorY+height <= ctx.collector.contentBottom() {
		return
	}
	ctx.pageBreak()
}

func (ctx *flowContext) pageBreak() {
	if ctx.parent != nil {
		ctx.parent.pageBreak()
		ctx.baseY = ctx.parent.cursorY
		ctx.cursorY = ctx.baseY
		return
	}
	ctx.collector.newPage()
	ctx.baseX = ctx.collector.margin.Left
	ctx.baseY = ctx.collector.contentTop()
	ctx.cursorY = ctx.baseY
}

func (ctx *flowContext) acc() *pageAccumulator { return ctx.collector.curr() }
