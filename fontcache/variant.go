package fontcache

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Weight is an OS/2 weight class, 100 (thin) to 900 (black).
type Weight uint16

// Common weights.
const (
	WeightThin       Weight = 100
	WeightExtraLight Weight = 200
	WeightLight      Weight = 300
	WeightRegular    Weight = 400
	WeightMedium     Weight = 500
	WeightSemiBold   Weight = 600
	WeightBold       Weight = 700
	WeightExtraBold  Weight = 800
	WeightBlack      Weight = 900
)

// Style is the slant of a face.
type Style uint8

const (
	StyleNormal Style = iota
	StyleItalic
	StyleOblique
)

func (s Style) String() string {
	switch s {
	case StyleItalic:
		return "italic"
	case StyleOblique:
		return "oblique"
	default:
		return "normal"
	}
}

// Stretch is an OS/2 width class, 1 (ultra-condensed) to 9 (ultra-expanded).
type Stretch uint8

// StretchNormal is the width class of regular faces.
const StretchNormal Stretch = 5

// Variant identifies a face within a family.
type Variant struct {
	Weight  Weight
	Style   Style
	Stretch Stretch
}

// Regular is the variant of an upright, normal width, regular weight face.
var Regular = Variant{Weight: WeightRegular, Style: StyleNormal, Stretch: StretchNormal}

func (v Variant) String() string {
	return fmt.Sprintf("%d/%s/%d", v.Weight, v.Style, v.Stretch)
}

func (v Variant) normalize() Variant {
	if v.Weight == 0 {
		v.Weight = WeightRegular
	}
	if v.Weight > WeightBlack {
		v.Weight = WeightBlack
	}
	if v.Stretch == 0 || v.Stretch > 9 {
		v.Stretch = StretchNormal
	}
	return v
}

// distance ranks how far o is from v: style first, then stretch, then weight.
func (v Variant) distance(o Variant) int {
	d := 0
	switch {
	case v.Style == o.Style:
	case v.Style != StyleNormal && o.Style != StyleNormal:
		d += 5000
	default:
		d += 10000
	}
	d += absInt(int(v.Stretch)-int(o.Stretch)) * 1000
	d += absInt(int(v.Weight) - int(o.Weight))
	return d
}

// Info is the metadata kept for every registered face.
type Info struct {
	Family  string
	Variant Variant
}

func foldFamily(family string) string {
	return cases.Fold().String(strings.TrimSpace(family))
}

// variantFromName guesses a variant from a subfamily string such as "Bold Italic".
func variantFromName(sub string) Variant {
	s := strings.ToLower(strings.ReplaceAll(sub, " ", ""))
	v := Regular
	switch {
	case strings.Contains(s, "thin"), strings.Contains(s, "hairline"):
		v.Weight = WeightThin
	case strings.Contains(s, "extralight"), strings.Contains(s, "ultralight"):
		v.Weight = WeightExtraLight
	case strings.Contains(s, "semibold"), strings.Contains(s, "demibold"):
		v.Weight = WeightSemiBold
	case strings.Contains(s, "extrabold"), strings.Contains(s, "ultrabold"):
		v.Weight = WeightExtraBold
	case strings.Contains(s, "black"), strings.Contains(s, "heavy"):
		v.Weight = WeightBlack
	case strings.Contains(s, "bold"):
		v.Weight = WeightBold
	case strings.Contains(s, "medium"):
		v.Weight = WeightMedium
	case strings.Contains(s, "light"):
		v.Weight = WeightLight
	}
	switch {
	case strings.Contains(s, "italic"):
		v.Style = StyleItalic
	case strings.Contains(s, "oblique"):
		v.Style = StyleOblique
	}
	prefix := 0
	switch {
	case strings.Contains(s, "ultracondensed"), strings.Contains(s, "ultraexpanded"):
		prefix = 4
	case strings.Contains(s, "extracondensed"), strings.Contains(s, "extraexpanded"):
		prefix = 3
	case strings.Contains(s, "semicondensed"), strings.Contains(s, "semiexpanded"):
		prefix = 1
	case strings.Contains(s, "condensed"), strings.Contains(s, "expanded"):
		prefix = 2
	}
	if strings.Contains(s, "condensed") {
		v.Stretch = Stretch(int(StretchNormal) - prefix)
	} else if strings.Contains(s, "expanded") {
		v.Stretch = Stretch(int(StretchNormal) + prefix)
	}
	return v
}

// ParseStyle reads a style description like "bold italic" or "600" into a variant.
func ParseStyle(desc string) Variant {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return Regular
	}
	var w int
	if _, err := fmt.Sscanf(desc, "%d", &w); err == nil && w >= 100 && w <= 900 {
		v := variantFromName(strings.TrimLeft(desc, "0123456789"))
		v.Weight = Weight(w)
		return v
	}
	return variantFromName(desc)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
