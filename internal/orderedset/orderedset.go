// Package orderedset provides insertion-ordered set and map containers.
//
// Both containers iterate in first-insertion order. Re-inserting an existing
// key never moves it.
package orderedset

// Set is an insertion-ordered set of comparable keys.
// The zero value is ready to use.
type Set[K comparable] struct {
	index map[K]struct{}
	keys  []K
}

// New returns a set pre-populated with keys, in order.
func New[K comparable](keys ...K) *Set[K] {
	s := &Set[K]{}
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

// Add inserts k and reports whether it was absent.
func (s *Set[K]) Add(k K) bool {
	if s.index == nil {
		s.index = make(map[K]struct{})
	}
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = struct{}{}
	s.keys = append(s.keys, k)
	return true
}

// Contains reports whether k is in the set.
func (s *Set[K]) Contains(k K) bool {
	if s == nil || s.index == nil {
		return false
	}
	_, ok := s.index[k]
	return ok
}

// Len returns the number of keys.
func (s *Set[K]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns a copy of the keys in insertion order.
func (s *Set[K]) Keys() []K {
	if s == nil {
		return nil
	}
	out := make([]K, len(s.keys))
	copy(out, s.keys)
	return out
}

// Map is an insertion-ordered map. The zero value is ready to use.
type Map[K comparable, V any] struct {
	index map[K]int
	keys  []K
	vals  []V
}

// NewMap returns an empty ordered map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{}
}

// Set stores v under k. An existing key keeps its position.
func (m *Map[K, V]) Set(k K, v V) {
	if m.index == nil {
		m.index = make(map[K]int)
	}
	if i, ok := m.index[k]; ok {
		m.vals[i] = v
		return
	}
	m.index[k] = len(m.keys)
	m.keys = append(m.keys, k)
	m.vals = append(m.vals, v)
}

// Get returns the value stored under k.
func (m *Map[K, V]) Get(k K) (V, bool) {
	var zero V
	if m == nil || m.index == nil {
		return zero, false
	}
	i, ok := m.index[k]
	if !ok {
		return zero, false
	}
	return m.vals[i], true
}

// Has reports whether k is present.
func (m *Map[K, V]) Has(k K) bool {
	_, ok := m.Get(k)
	return ok
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns a copy of the keys in insertion order.
func (m *Map[K, V]) Keys() []K {
	if m == nil {
		return nil
	}
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}

// Each calls fn for every entry in insertion order until fn returns false.
func (m *Map[K, V]) Each(fn func(k K, v V) bool) {
	if m == nil {
		return
	}
	for i, k := range m.keys {
		if !fn(k, m.vals[i]) {
			return
		}
	}
}
