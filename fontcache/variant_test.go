package fontcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStyle(t *testing.T) {
	cases := []struct {
		in   string
		want Variant
	}{
		{"", Regular},
		{"bold", Variant{Weight: WeightBold, Stretch: StretchNormal}},
		{"Bold Italic", Variant{Weight: WeightBold, Style: StyleItalic, Stretch: StretchNormal}},
		{"SemiBold", Variant{Weight: WeightSemiBold, Stretch: StretchNormal}},
		{"ExtraLight Oblique", Variant{Weight: WeightExtraLight, Style: StyleOblique, Stretch: StretchNormal}},
		{"600 italic", Variant{Weight: WeightSemiBold, Style: StyleItalic, Stretch: StretchNormal}},
		{"Condensed Medium", Variant{Weight: WeightMedium, Stretch: 3}},
		{"SemiExpanded", Variant{Weight: WeightRegular, Stretch: 6}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseStyle(tc.in))
		})
	}
}

func TestVariantDistancePrefersStyle(t *testing.T) {
	want := Variant{Weight: WeightRegular, Style: StyleItalic, Stretch: StretchNormal}
	boldItalic := Variant{Weight: WeightBold, Style: StyleItalic, Stretch: StretchNormal}
	regular := Regular
	assert.Less(t, want.distance(boldItalic), want.distance(regular))
}
