// Package binding 负责求值文档文本中嵌入的 ${...} 模板。
package binding

import (
	"strings"
	"time"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/ByLCY/inkwell/diag"
)

// ScopeFunc 按名称查找顶层符号。
type ScopeFunc func(name string) (cty.Value, bool)

// TodayFunc 返回编译时刻的日期；offset 为小时偏移。
type TodayFunc func(offset *int) (time.Time, bool)

// Binder 对文本模板求值，并收集求值过程中产生的诊断。
// 一个 Binder 只服务于一次编译，不可并发使用。
type Binder struct {
	scope ScopeFunc
	funcs map[string]function.Function
	diags diag.List
	seen  map[string]bool
}

// New 创建 Binder。today 可以为 nil，此时 today() 报错。
func New(scope ScopeFunc, today TodayFunc) *Binder {
	if scope == nil {
		scope = func(string) (cty.Value, bool) { return cty.NilVal, false }
	}
	return &Binder{scope: scope, funcs: Functions(today), seen: map[string]bool{}}
}

// Bind 对 text 求值。text 中没有模板语法时原样返回；
// 求值失败时记录诊断并返回原文。
func (b *Binder) Bind(text string, pos lexer.Position) string {
	if !strings.Contains(text, "${") && !strings.Contains(text, "%{") {
		return text
	}
	start := hcl.Pos{Line: max(pos.Line, 1), Column: pos.Column + 1}
	expr, diags := hclsyntax.ParseTemplate([]byte(text), pos.Filename, start)
	if diags.HasErrors() {
		b.report(diag.FromHCL(diags)...)
		return text
	}

	vars := map[string]cty.Value{}
	for _, traversal := range expr.Variables() {
		name := traversal.RootName()
		if _, seen := vars[name]; seen {
			continue
		}
		if v, ok := b.scope(name); ok {
			vars[name] = v
		}
	}
	// vars 非空 map 才能让 HCL 对未定义的名称报告 "Unknown variable"
	val, diags := expr.Value(&hcl.EvalContext{Variables: vars, Functions: b.funcs})
	if diags.HasErrors() {
		b.report(diag.FromHCL(diags)...)
		return text
	}
	out, err := convert.Convert(val, cty.String)
	if err != nil || out.IsNull() || !out.IsKnown() {
		msg := "template result is not text"
		if err != nil {
			msg += ": " + err.Error()
		}
		b.report(diag.Errorf(spanOf(pos), "%s", msg))
		return text
	}
	return out.AsString()
}

// report 记录诊断；同一段文本被多次求值时只保留一份。
func (b *Binder) report(ds ...diag.Diagnostic) {
	for _, d := range ds {
		key := d.String()
		if b.seen[key] {
			continue
		}
		b.seen[key] = true
		b.diags = append(b.diags, d)
	}
}

// Diagnostics 返回目前为止收集到的诊断。
func (b *Binder) Diagnostics() diag.List { return b.diags }

func spanOf(pos lexer.Position) *diag.Span {
	return &diag.Span{File: pos.Filename, Line: pos.Line, Column: pos.Column}
}
