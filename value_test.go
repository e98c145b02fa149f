package nanolisp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue_KindOrderBreaksCrossKindComparisons(t *testing.T) {
	assert.True(t, Nil.Compare(False) < 0)
	assert.True(t, False.Compare(True) < 0)
	assert.True(t, True.Compare(Int(0)) < 0)
	assert.True(t, Int(0).Compare(Str("")) < 0)
}

func TestValue_IntAndRealCompareNumerically(t *testing.T) {
	assert.Equal(t, 0, Int(3).Compare(Real(3.0)))
	assert.True(t, Int(3).Equal(Real(3.0)))
	assert.True(t, Int(2).Compare(Real(3.0)) < 0)
}

func TestValue_NaNSortsBelowEveryReal(t *testing.T) {
	nan := Real(math.NaN())
	assert.True(t, nan.Compare(Real(math.Inf(-1))) < 0)
	assert.Equal(t, 0, nan.Compare(Real(math.NaN())))
}

func TestValue_StrEqualityIsStructural(t *testing.T) {
	a := Str("hello")
	b := Str("hello")
	assert.True(t, a.Equal(b))
	assert.Equal(t, 0, a.Compare(b))
}

func TestValue_SymbolEqualityIsIdentity(t *testing.T) {
	tab := NewInternTable()
	a := tab.Symbol("x")
	b := tab.Symbol("x")
	assert.True(t, a.Equal(b))

	other := NewInternTable().Symbol("x")
	assert.False(t, a.Equal(other), "symbols from different tables never compare equal")
}

func TestValue_TupleEqualityIsStructuralAndOrderSensitive(t *testing.T) {
	a := NewTuple([]Value{Int(1), Int(2)}, 0, 0)
	b := NewTuple([]Value{Int(1), Int(2)}, 5, 5)
	c := NewTuple([]Value{Int(2), Int(1)}, 0, 0)
	assert.True(t, a.Equal(b), "source position is not part of structural equality")
	assert.False(t, a.Equal(c))
	assert.True(t, a.Compare(c) < 0)
}

func TestValue_TupleHashIsStableAndNeverZero(t *testing.T) {
	tup := NewTuple([]Value{Int(1), Str("a")}, 0, 0)
	h1 := tup.Hash()
	h2 := tup.Hash()
	assert.Equal(t, h1, h2)
	assert.NotZero(t, h1)
}

func TestValue_ArrayEqualityIsReferenceIdentity(t *testing.T) {
	a := NewArray([]Value{Int(1)})
	b := NewArray([]Value{Int(1)})
	assert.False(t, a.Equal(b), "arrays with equal contents are still distinct references")
	assert.True(t, a.Equal(a))
}

func TestValue_TruthyOnlyNilAndFalseAreFalsy(t *testing.T) {
	assert.False(t, Truthy(Nil))
	assert.False(t, Truthy(False))
	assert.True(t, Truthy(True))
	assert.True(t, Truthy(Int(0)))
	assert.True(t, Truthy(Str("")))
}
