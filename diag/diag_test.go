package diag

import (
	"testing"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/hashicorp/hcl/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFilters(t *testing.T) {
	l := List{
		Warnf(nil, "font %q missing", "Inter"),
		Errorf(&Span{File: "/main.papyrus", Line: 3, Column: 7}, "unknown variable"),
	}
	assert.True(t, l.HasErrors())
	assert.Len(t, l.Errors(), 1)
	assert.Len(t, l.Warnings(), 1)
	require.Error(t, l.Err())
	assert.Contains(t, l.Err().Error(), "/main.papyrus:3:7: error: unknown variable")

	assert.False(t, l.Warnings().HasErrors())
	assert.NoError(t, l.Warnings().Err())
}

func TestFromHCL(t *testing.T) {
	got := FromHCL(hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  "Unknown variable",
		Detail:   `There is no variable named "_FOO".`,
		Subject: &hcl.Range{
			Filename: "/main.papyrus",
			Start:    hcl.Pos{Line: 4, Column: 12},
		},
	}})
	require.Len(t, got, 1)
	assert.Equal(t, Error, got[0].Severity)
	assert.Equal(t, `Unknown variable; There is no variable named "_FOO".`, got[0].Message)
	assert.Equal(t, &Span{File: "/main.papyrus", Line: 4, Column: 12}, got[0].Span)
}

func TestFromParse(t *testing.T) {
	err := participle.Errorf(lexer.Position{Filename: "/main.papyrus", Line: 2, Column: 5}, "unexpected token %q", "}")
	d := FromParse("/fallback", err)
	assert.Equal(t, Error, d.Severity)
	assert.Equal(t, `unexpected token "}"`, d.Message)
	assert.Equal(t, &Span{File: "/main.papyrus", Line: 2, Column: 5}, d.Span)
}
