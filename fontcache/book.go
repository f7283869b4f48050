package fontcache

type variantKey struct {
	family  string
	variant Variant
}

// book is the ordered entry list plus its lookup indexes.
type book struct {
	entries  []*Entry
	exact    map[variantKey]int
	families map[string][]int
}

func newBook() *book {
	return &book{
		exact:    map[variantKey]int{},
		families: map[string][]int{},
	}
}

func (b *book) add(e *Entry) int {
	pos := len(b.entries)
	b.entries = append(b.entries, e)
	family := foldFamily(e.info.Family)
	key := variantKey{family: family, variant: e.info.Variant}
	if _, ok := b.exact[key]; !ok {
		b.exact[key] = pos
	}
	b.families[family] = append(b.families[family], pos)
	return pos
}

// find returns the exact match for (family, variant), or else the closest
// variant registered under the family.
func (b *book) find(family string, v Variant) (int, bool) {
	family = foldFamily(family)
	v = v.normalize()
	if pos, ok := b.exact[variantKey{family: family, variant: v}]; ok {
		return pos, true
	}
	best, bestDist := -1, 0
	for _, pos := range b.families[family] {
		d := v.distance(b.entries[pos].info.Variant)
		if best < 0 || d < bestDist {
			best, bestDist = pos, d
		}
	}
	return best, best >= 0
}

func (b *book) clone() *book {
	out := &book{
		entries:  append([]*Entry(nil), b.entries...),
		exact:    make(map[variantKey]int, len(b.exact)),
		families: make(map[string][]int, len(b.families)),
	}
	for k, v := range b.exact {
		out.exact[k] = v
	}
	for k, v := range b.families {
		out.families[k] = append([]int(nil), v...)
	}
	return out
}
