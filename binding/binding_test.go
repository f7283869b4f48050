package binding

import (
	"testing"
	"time"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func scopeOf(vars map[string]cty.Value) ScopeFunc {
	return func(name string) (cty.Value, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

var at = lexer.Position{Filename: "/main.papyrus", Line: 3, Column: 10}

func TestBindInterpolates(t *testing.T) {
	b := New(scopeOf(map[string]cty.Value{
		"_FOO": cty.StringVal("bar"),
		"customer": cty.ObjectVal(map[string]cty.Value{
			"name":  cty.StringVal("Ada"),
			"items": cty.ListVal([]cty.Value{cty.StringVal("pen"), cty.StringVal("ink")}),
		}),
		"total": cty.NumberIntVal(42),
	}), nil)

	assert.Equal(t, "value: bar", b.Bind("value: ${_FOO}", at))
	assert.Equal(t, "Dear ADA", b.Bind("Dear ${upper(customer.name)}", at))
	assert.Equal(t, "pen, ink", b.Bind(`${join(", ", customer.items)}`, at))
	assert.Equal(t, "ink", b.Bind("${customer.items[1]}", at))
	assert.Equal(t, "42", b.Bind("${total}", at))
	assert.Empty(t, b.Diagnostics())
}

func TestBindPlainTextIsUntouched(t *testing.T) {
	b := New(nil, nil)
	assert.Equal(t, "$5 and 100%", b.Bind("$5 and 100%", at))
	assert.Empty(t, b.Diagnostics())
}

func TestBindUnknownVariable(t *testing.T) {
	b := New(scopeOf(nil), nil)

	got := b.Bind("value: ${_FOO}", at)
	assert.Equal(t, "value: ${_FOO}", got)

	diags := b.Diagnostics()
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, "Unknown variable")
	assert.Contains(t, diags[0].Message, "_FOO")
	require.NotNil(t, diags[0].Span)
	assert.Equal(t, "/main.papyrus", diags[0].Span.File)
	assert.Equal(t, 3, diags[0].Span.Line)
}

func TestBindSyntaxError(t *testing.T) {
	b := New(nil, nil)
	b.Bind("broken ${", at)
	assert.True(t, b.Diagnostics().HasErrors())
}

func TestBindToday(t *testing.T) {
	now := time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC)
	today := func(offset *int) (time.Time, bool) {
		if offset == nil {
			return now, true
		}
		return now.In(time.FixedZone("", *offset*3600)), true
	}
	b := New(nil, today)

	assert.Equal(t, "2026-03-14", b.Bind(`${formatdate("YYYY-MM-DD", today())}`, at))
	assert.Equal(t, "2026-03-15", b.Bind(`${formatdate("YYYY-MM-DD", today(2))}`, at))
	assert.Empty(t, b.Diagnostics())

	b = New(nil, nil)
	b.Bind("${today()}", at)
	assert.True(t, b.Diagnostics().HasErrors())
}
