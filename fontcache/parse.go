package fontcache

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	xsfnt "golang.org/x/image/font/sfnt"
	"seehuhn.de/go/sfnt"
)

var fontExtensions = map[string]bool{
	".ttf": true,
	".otf": true,
	".ttc": true,
	".otc": true,
}

// IsFontFile reports whether path has a font file extension.
func IsFontFile(path string) bool {
	return fontExtensions[strings.ToLower(filepath.Ext(path))]
}

// parseFaces reads the name and OS/2 data of every face in data without
// keeping any of it.
func parseFaces(data []byte) ([]Info, error) {
	coll, err := xsfnt.ParseCollection(data)
	if err != nil {
		return nil, err
	}
	n := coll.NumFonts()
	if n == 0 {
		return nil, ErrNoFaces
	}

	var buf xsfnt.Buffer
	infos := make([]Info, 0, n)
	for i := 0; i < n; i++ {
		f, err := coll.Font(i)
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", i, err)
		}
		family := fontName(f, &buf, xsfnt.NameIDTypographicFamily, xsfnt.NameIDFamily)
		if family == "" {
			return nil, fmt.Errorf("face %d: %w", i, ErrNoFamily)
		}
		sub := fontName(f, &buf, xsfnt.NameIDTypographicSubfamily, xsfnt.NameIDSubfamily)
		infos = append(infos, Info{Family: family, Variant: variantFromName(sub)})
	}

	// single faces carry an OS/2 table we can trust over the subfamily name
	if n == 1 {
		if f, err := sfnt.Read(bytes.NewReader(data)); err == nil {
			v := Variant{
				Weight:  Weight(f.Weight),
				Stretch: Stretch(f.Width),
			}
			switch {
			case f.IsItalic:
				v.Style = StyleItalic
			case f.IsOblique:
				v.Style = StyleOblique
			}
			infos[0].Variant = v
		}
	}
	for i := range infos {
		infos[i].Variant = infos[i].Variant.normalize()
	}
	return infos, nil
}

func fontName(f *xsfnt.Font, buf *xsfnt.Buffer, ids ...xsfnt.NameID) string {
	for _, id := range ids {
		name, err := f.Name(buf, id)
		if err != nil {
			if !errors.Is(err, xsfnt.ErrNotFound) {
				return ""
			}
			continue
		}
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	return ""
}
