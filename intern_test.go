package nanolisp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Interning the same text twice yields pointer-identical results, the
// invariant the whole value model's Symbol/Keyword equality leans on.
func TestInternTable_SameTextInternsToSamePointer(t *testing.T) {
	tab := NewInternTable()
	a := tab.Symbol("foo")
	b := tab.Symbol("foo")
	assert.Same(t, a.id, b.id)
	assert.True(t, a.Equal(b))
}

func TestInternTable_DifferentTextInternsDistinct(t *testing.T) {
	tab := NewInternTable()
	a := tab.Symbol("foo")
	b := tab.Symbol("bar")
	assert.NotSame(t, a.id, b.id)
	assert.False(t, a.Equal(b))
}

// A symbol and a keyword sharing the same text never compare equal,
// since Symbol.Equal/Keyword.Equal only match their own kind.
func TestInternTable_SymbolAndKeywordAreDistinctKinds(t *testing.T) {
	tab := NewInternTable()
	sym := tab.Symbol("x")
	kw := tab.Keyword("x")
	assert.NotEqual(t, sym.Kind(), kw.Kind())
	assert.NotSame(t, sym.id, kw.id)
}

func TestInternTable_LenCountsDistinctEntries(t *testing.T) {
	tab := NewInternTable()
	tab.Symbol("a")
	tab.Symbol("b")
	tab.Symbol("a")
	tab.Keyword("a")
	assert.Equal(t, 3, tab.Len())
}

func TestInternTable_EvictRemovesEntry(t *testing.T) {
	tab := NewInternTable()
	tab.Symbol("gone")
	require := assert.New(t)
	require.Equal(1, tab.Len())
	tab.Evict(identSymbolKind, "gone")
	require.Equal(0, tab.Len())
	again := tab.Symbol("gone")
	assert.NotNil(t, again.id)
}

func TestInternTable_TwoTablesDoNotShareIdentity(t *testing.T) {
	t1 := NewInternTable()
	t2 := NewInternTable()
	a := t1.Symbol("shared")
	b := t2.Symbol("shared")
	assert.NotSame(t, a.id, b.id, "separate execution contexts never share interned identity")
}
