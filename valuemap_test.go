package nanolisp

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueMap_PutGetDelete(t *testing.T) {
	m := newValueMap(4, true)
	m.put(Str("a"), Int(1))
	m.put(Str("b"), Int(2))

	v, ok := m.get(Str("a"))
	require.True(t, ok)
	assert.Equal(t, Int(1), v)
	assert.Equal(t, 2, m.len())

	assert.True(t, m.delete(Str("a")))
	_, ok = m.get(Str("a"))
	assert.False(t, ok)
	assert.Equal(t, 1, m.len())

	// A later put can reuse the tombstoned slot.
	m.put(Str("c"), Int(3))
	v, ok = m.get(Str("c"))
	require.True(t, ok)
	assert.Equal(t, Int(3), v)
}

func TestValueMap_PutOverwritesExistingKey(t *testing.T) {
	m := newValueMap(4, true)
	m.put(Str("k"), Int(1))
	m.put(Str("k"), Int(2))
	assert.Equal(t, 1, m.len())
	v, ok := m.get(Str("k"))
	require.True(t, ok)
	assert.Equal(t, Int(2), v)
}

func TestValueMap_GrowsAndKeepsAllEntries(t *testing.T) {
	m := newValueMap(2, true)
	const n = 200
	for i := 0; i < n; i++ {
		m.put(Str(fmt.Sprintf("key-%d", i)), Int(i))
	}
	assert.Equal(t, n, m.len())
	for i := 0; i < n; i++ {
		v, ok := m.get(Str(fmt.Sprintf("key-%d", i)))
		require.True(t, ok)
		assert.Equal(t, Int(i), v)
	}
}

func TestValueMap_EachVisitsEveryLiveEntry(t *testing.T) {
	m := newValueMap(4, true)
	want := map[string]Int{"a": 1, "b": 2, "c": 3}
	for k, v := range want {
		m.put(Str(k), v)
	}
	m.delete(Str("b"))
	delete(want, "b")

	got := map[string]Int{}
	m.each(func(k, v Value) {
		got[string(k.(Str))] = v.(Int)
	})
	assert.Equal(t, want, got)
}

func TestValueMap_CloneIsIndependent(t *testing.T) {
	m := newValueMap(4, true)
	m.put(Str("a"), Int(1))
	c := m.clone()
	c.put(Str("b"), Int(2))
	assert.Equal(t, 1, m.len())
	assert.Equal(t, 2, c.len())
}

func TestTable_LiteralConstructionThroughPut(t *testing.T) {
	tab := NewTable(0)
	tab.Put(Str("x"), Int(10))
	tab.Put(Str("y"), Int(20))
	assert.Equal(t, 2, tab.Len())
	v, ok := tab.Get(Str("x"))
	require.True(t, ok)
	assert.Equal(t, Int(10), v)
}
