package world

import (
	"fmt"
	"image/color"
	"time"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Entry binds one global name to an engine value. Names starting with an
// underscore never clash with the engine's own scope; other names shadow
// it.
type Entry struct {
	Name  string
	Value cty.Value
	err   error
}

// Value binds an already converted value.
func Value(name string, v cty.Value) Entry { return Entry{Name: name, Value: v} }

// String binds a string.
func String(name, s string) Entry { return Value(name, cty.StringVal(s)) }

// Number binds a number.
func Number(name string, f float64) Entry { return Value(name, cty.NumberFloatVal(f)) }

// Bool binds a boolean.
func Bool(name string, b bool) Entry { return Value(name, cty.BoolVal(b)) }

// Date binds a timestamp as an RFC 3339 string, the form formatdate accepts.
func Date(name string, t time.Time) Entry {
	return Value(name, cty.StringVal(t.Format(time.RFC3339)))
}

// Color binds a color as a "#rrggbb" string. Alpha is dropped.
func Color(name string, c color.Color) Entry {
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Value(name, cty.StringVal(fmt.Sprintf("#%02x%02x%02x", nc.R, nc.G, nc.B)))
}

// Data binds an arbitrary Go value. Struct fields need `cty:"name"` tags.
// Conversion failures are reported by Build.
func Data(name string, v any) Entry {
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return Entry{Name: name, err: err}
	}
	val, err := gocty.ToCtyValue(v, ty)
	if err != nil {
		return Entry{Name: name, err: err}
	}
	return Value(name, val)
}

// JSON binds raw JSON. Objects become objects, arrays become tuples.
// Malformed input is reported by Build.
func JSON(name string, raw []byte) Entry {
	ty, err := ctyjson.ImpliedType(raw)
	if err != nil {
		return Entry{Name: name, err: err}
	}
	val, err := ctyjson.Unmarshal(raw, ty)
	if err != nil {
		return Entry{Name: name, err: err}
	}
	return Value(name, val)
}

// overlay is the validated, immutable form of the entries.
type overlay struct {
	names  []string
	values map[string]cty.Value
}

// newOverlay validates entries and reports every problem found.
func newOverlay(entries []Entry) (overlay, []error) {
	o := overlay{values: make(map[string]cty.Value, len(entries))}
	var errs []error
	for _, e := range entries {
		switch {
		case !hclsyntax.ValidIdentifier(e.Name):
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidKey, e.Name))
			continue
		case e.err != nil:
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalidValue, e.Name, e.err))
			continue
		case e.Value.IsNull():
			errs = append(errs, fmt.Errorf("%w: %s is null", ErrInvalidValue, e.Name))
			continue
		}
		if _, dup := o.values[e.Name]; dup {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateKey, e.Name))
			continue
		}
		o.names = append(o.names, e.Name)
		o.values[e.Name] = e.Value
	}
	return o, errs
}

func (o overlay) lookup(name string) (cty.Value, bool) {
	v, ok := o.values[name]
	return v, ok
}
