package canvasrenderer

import (
	"math"
	"strings"
	"unicode"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/inkwell/layout"
)

// lineBuffer 累积一行文本及其宽度（mm）。
type lineBuffer struct {
	lines []layout.TextLine
	sb    strings.Builder
	width float64
}

// emit 结束当前行；force 为 true 时即使为空也输出一行（显式换行）。
func (lb *lineBuffer) emit(force bool) {
	if lb.sb.Len() == 0 {
		if force {
			lb.lines = append(lb.lines, layout.TextLine{})
		}
		return
	}
	lb.lines = append(lb.lines, layout.TextLine{Content: lb.sb.String(), Width: lb.width})
	lb.sb.Reset()
	lb.width = 0
}

func (lb *lineBuffer) add(s string, w float64) {
	lb.sb.WriteString(s)
	lb.width += w
}

// greedyWrapTokens 按 wrap 策略折行，所有宽度单位均为 mm。
//   - nowrap：仅按显式换行划分
//   - break-word：忽略空白，纯按宽度逐字切分
//   - 其他（anywhere）：优先在空白处分割，单词超宽时在词内拆分
func greedyWrapTokens(content string, width float64, face *canvas.FontFace, wrap string) []layout.TextLine {
	limit := width
	if limit <= 0 {
		limit = math.MaxFloat64
	}

	switch wrap {
	case "nowrap":
		parts := strings.Split(strings.ReplaceAll(content, "\r", ""), "\n")
		lines := make([]layout.TextLine, 0, len(parts))
		for _, p := range parts {
			lines = append(lines, layout.TextLine{Content: p, Width: face.TextWidth(p)})
		}
		return lines

	case "break-word":
		var lb lineBuffer
		for _, r := range content {
			switch r {
			case '\r':
				continue
			case '\n':
				lb.emit(true)
				continue
			}
			s := string(r)
			cw := face.TextWidth(s)
			if lb.width > 0 && lb.width+cw > limit {
				lb.emit(false)
			}
			lb.add(s, cw)
		}
		lb.emit(true)
		return lb.lines
	}

	var lb lineBuffer
	place := func(token string, w float64) {
		if lb.width > 0 && lb.width+w > limit {
			lb.emit(false)
		}
		lb.add(token, w)
		if lb.width > limit {
			lb.emit(false)
		}
	}
	for _, token := range tokenizeContent(content) {
		if token == "\n" {
			lb.emit(true)
			continue
		}
		tokenWidth := face.TextWidth(token)
		if tokenWidth <= limit {
			place(token, tokenWidth)
			continue
		}
		for _, chunk := range splitTokenByWidth(token, limit, face) {
			place(chunk, face.TextWidth(chunk))
		}
	}
	lb.emit(true)
	return lb.lines
}

// tokenizeContent 将文本拆成交替的空白/非空白片段，显式换行单独成为 "\n"。
func tokenizeContent(s string) []string {
	var tokens []string
	var sb strings.Builder
	lastWasSpace := false
	flush := func() {
		if sb.Len() > 0 {
			tokens = append(tokens, sb.String())
			sb.Reset()
		}
	}
	for _, r := range s {
		if r == '\r' {
			continue
		}
		if r == '\n' {
			flush()
			tokens = append(tokens, "\n")
			continue
		}
		isSpace := unicode.IsSpace(r)
		if sb.Len() > 0 && lastWasSpace != isSpace {
			flush()
		}
		lastWasSpace = isSpace
		sb.WriteRune(r)
	}
	flush()
	return tokens
}

func splitTokenByWidth(token string, limit float64, face *canvas.FontFace) []string {
	if limit <= 0 || limit == math.MaxFloat64 {
		return []string{token}
	}
	var parts []string
	var current []rune
	for _, r := range token {
		current = append(current, r)
		if len(current) > 1 && face.TextWidth(string(current)) > limit {
			parts = append(parts, string(current[:len(current)-1]))
			current = current[len(current)-1:]
		}
	}
	if len(current) > 0 {
		parts = append(parts, string(current))
	}
	return parts
}
