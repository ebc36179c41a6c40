package domain

import (
	"encoding/json"
	"sort"
)

// Set is an unordered collection of ids. It encodes to JSON as a sorted array
// so persisted states are stable byte-for-byte.
type Set map[string]struct{}

// NewSet builds a set from ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership. A nil set is empty.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id and reports whether it was new.
func (s Set) Add(id string) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy. Cloning nil yields an empty set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Minus returns the members of s that are not in other, sorted.
func (s Set) Minus(other Set) []string {
	var out []string
	for _, id := range s.Sorted() {
		if !other.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewSet(ids...)
	return nil
}
