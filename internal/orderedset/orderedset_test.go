package orderedset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_InsertionOrder(t *testing.T) {
	s := New("b", "a", "b", "c", "a")

	assert.Equal(t, []string{"b", "a", "c"}, s.Keys())
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Contains("c"))
	assert.False(t, s.Contains("d"))
}

func TestSet_AddReportsNovelty(t *testing.T) {
	var s Set[int]

	assert.True(t, s.Add(1))
	assert.False(t, s.Add(1))
	assert.True(t, s.Add(2))
	assert.Equal(t, []int{1, 2}, s.Keys())
}

func TestSet_NilSafe(t *testing.T) {
	var s *Set[string]

	assert.False(t, s.Contains("x"))
	assert.Equal(t, 0, s.Len())
	assert.Nil(t, s.Keys())
}

func TestMap_KeepsFirstPosition(t *testing.T) {
	m := NewMap[string, int]()
	m.Set("x", 1)
	m.Set("y", 2)
	m.Set("x", 3)

	assert.Equal(t, []string{"x", "y"}, m.Keys())
	v, ok := m.Get("x")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	assert.True(t, m.Has("y"))
	assert.False(t, m.Has("z"))
}

func TestMap_EachStopsEarly(t *testing.T) {
	m := NewMap[string, int]()
	for i, k := range []string{"a", "b", "c"} {
		m.Set(k, i)
	}

	var seen []string
	m.Each(func(k string, _ int) bool {
		seen = append(seen, k)
		return k != "b"
	})

	assert.Equal(t, []string{"a", "b"}, seen)
}
