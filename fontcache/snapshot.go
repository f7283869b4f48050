package fontcache

// Snapshot is a frozen view of a Cache handed to one World. Indexes into a
// snapshot are stable for its whole life.
type Snapshot struct {
	book *book
}

// Len returns the number of faces in the snapshot.
func (s *Snapshot) Len() int { return len(s.book.entries) }

// Info returns the metadata of face i.
func (s *Snapshot) Info(i int) (Info, bool) {
	if i < 0 || i >= len(s.book.entries) {
		return Info{}, false
	}
	return s.book.entries[i].info, true
}

// Select returns the index of the best face for (family, variant).
func (s *Snapshot) Select(family string, v Variant) (int, bool) {
	return s.book.find(family, v)
}

// Entry returns face i.
func (s *Snapshot) Entry(i int) (*Entry, bool) {
	if i < 0 || i >= len(s.book.entries) {
		return nil, false
	}
	return s.book.entries[i], true
}

// Face loads face i.
func (s *Snapshot) Face(i int) (Face, error) {
	e, ok := s.Entry(i)
	if !ok {
		return Face{}, &FontError{Err: ErrNoPayload}
	}
	return e.face()
}

// Families lists the distinct family names in insertion order.
func (s *Snapshot) Families() []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range s.book.entries {
		key := foldFamily(e.info.Family)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e.info.Family)
	}
	return out
}
