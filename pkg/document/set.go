package document

// Set accumulates values with structural deduplication, kept sorted by
// Compare so the resulting collection is deterministic regardless of
// insertion order. Partial-set rules and set comprehensions build their
// results through a Set.
type Set struct {
	elems []Value
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{}
}

// Add inserts v unless a structurally equal element is already present.
func (s *Set) Add(v Value) {
	i := s.search(v)
	if i < len(s.elems) && Equal(s.elems[i], v) {
		return
	}
	s.elems = append(s.elems, Value{})
	copy(s.elems[i+1:], s.elems[i:])
	s.elems[i] = v
}

// Contains reports whether a structurally equal element is present.
func (s *Set) Contains(v Value) bool {
	i := s.search(v)
	return i < len(s.elems) && Equal(s.elems[i], v)
}

// Len returns the element count.
func (s *Set) Len() int { return len(s.elems) }

// Value returns the set as an ordered array value.
func (s *Set) Value() Value {
	return Array(s.elems...)
}

// search returns the insertion index for v (first element >= v).
func (s *Set) search(v Value) int {
	lo, hi := 0, len(s.elems)
	for lo < hi {
		mid := (lo + hi) / 2
		if Compare(s.elems[mid], v) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
