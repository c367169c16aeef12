package feed

import (
	"slices"
)

// IdentitySet records which article ids are already part of the feed.
// The zero value is ready to use. It is not safe for concurrent use; the
// Controller only touches it while holding its lock.
type IdentitySet struct {
	ids map[Identifier]struct{}
}

// NewIdentitySet returns a set pre-populated with ids.
func NewIdentitySet(ids ...Identifier) *IdentitySet {
	s := &IdentitySet{}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was new.
func (s *IdentitySet) Add(id Identifier) bool {
	if s.ids == nil {
		s.ids = make(map[Identifier]struct{})
	}
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Has reports whether id is in the set.
func (s *IdentitySet) Has(id Identifier) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of ids in the set.
func (s *IdentitySet) Len() int {
	return len(s.ids)
}

// Reset empties the set.
func (s *IdentitySet) Reset() {
	clear(s.ids)
}

// IDs returns the ids in sorted order.
func (s *IdentitySet) IDs() []Identifier {
	out := make([]Identifier, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Partition splits articles into those whose id is new to the set and the ids
// that were already present, adding the new ones as it goes. A repeated id
// within articles counts as a duplicate after its first occurrence.
func (s *IdentitySet) Partition(articles []Article) (fresh []Article, dups []Identifier) {
	fresh = make([]Article, 0, len(articles))
	for _, a := range articles {
		if s.Add(a.ID) {
			fresh = append(fresh, a)
			continue
		}
		dups = append(dups, a.ID)
	}
	return fresh, dups
}
