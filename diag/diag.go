// Package diag carries positioned compiler messages from an engine to the
// caller.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/hashicorp/hcl/v2"
)

// Severity of a diagnostic.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Span locates a diagnostic in a source file. Line and Column are 1-based.
type Span struct {
	File   string
	Line   int
	Column int
}

func (s Span) String() string {
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// Diagnostic is one message reported by the engine.
type Diagnostic struct {
	Severity Severity
	Message  string
	Span     *Span
	Hints    []string
}

func (d Diagnostic) String() string {
	var b strings.Builder
	if d.Span != nil {
		b.WriteString(d.Span.String())
		b.WriteString(": ")
	}
	b.WriteString(d.Severity.String())
	b.WriteString(": ")
	b.WriteString(d.Message)
	for _, h := range d.Hints {
		b.WriteString("\n  hint: ")
		b.WriteString(h)
	}
	return b.String()
}

// Errorf builds an error diagnostic.
func Errorf(span *Span, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: Error, Message: fmt.Sprintf(format, args...), Span: span}
}

// Warnf builds a warning diagnostic.
func Warnf(span *Span, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: Warning, Message: fmt.Sprintf(format, args...), Span: span}
}

// List keeps diagnostics in the order the engine reported them.
type List []Diagnostic

// HasErrors reports whether any diagnostic is an error.
func (l List) HasErrors() bool {
	for _, d := range l {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

func (l List) Errors() List   { return l.filter(Error) }
func (l List) Warnings() List { return l.filter(Warning) }

func (l List) filter(sev Severity) List {
	var out List
	for _, d := range l {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// Err joins the error diagnostics into one error, or returns nil.
func (l List) Err() error {
	var errs []error
	for _, d := range l.Errors() {
		errs = append(errs, errors.New(d.String()))
	}
	return errors.Join(errs...)
}

// FromHCL converts HCL diagnostics, keeping their subject ranges.
func FromHCL(diags hcl.Diagnostics) List {
	out := make(List, 0, len(diags))
	for _, d := range diags {
		item := Diagnostic{Severity: Error, Message: d.Summary}
		if d.Severity == hcl.DiagWarning {
			item.Severity = Warning
		}
		if d.Detail != "" {
			item.Message += "; " + d.Detail
		}
		if d.Subject != nil {
			item.Span = &Span{File: d.Subject.Filename, Line: d.Subject.Start.Line, Column: d.Subject.Start.Column}
		}
		out = append(out, item)
	}
	return out
}

// FromParse converts a participle parse error. Other errors become an
// unpositioned diagnostic attributed to file.
func FromParse(file string, err error) Diagnostic {
	var perr participle.Error
	if errors.As(err, &perr) {
		pos := perr.Position()
		name := pos.Filename
		if name == "" {
			name = file
		}
		return Diagnostic{
			Severity: Error,
			Message:  perr.Message(),
			Span:     &Span{File: name, Line: pos.Line, Column: pos.Column},
		}
	}
	return Diagnostic{Severity: Error, Message: err.Error(), Span: &Span{File: file}}
}
