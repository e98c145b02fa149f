package nanolisp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAllocator_ReusesLowestFreedBit(t *testing.T) {
	ra := newRegisterAllocator()
	r0 := ra.Alloc()
	r1 := ra.Alloc()
	r2 := ra.Alloc()
	assert.Equal(t, []int{0, 1, 2}, []int{r0, r1, r2})
	assert.Equal(t, 3, ra.HighWater())

	ra.Free(r1)
	r3 := ra.Alloc()
	assert.Equal(t, r1, r3, "freeing a register must make it the next allocation")
	assert.Equal(t, 3, ra.HighWater(), "high water mark never shrinks")
}

func TestRegisterAllocator_OverflowsToFarRegisters(t *testing.T) {
	ra := newRegisterAllocator()
	for i := 0; i < 256; i++ {
		ra.Alloc()
	}
	far := ra.Alloc()
	assert.Equal(t, 256, far)
	assert.Equal(t, 257, ra.HighWater())
}

func TestRegisterAllocator_MergeHighWater(t *testing.T) {
	parent := newRegisterAllocator()
	parent.Alloc()
	child := newRegisterAllocator()
	for i := 0; i < 5; i++ {
		child.Alloc()
	}
	parent.MergeHighWater(child)
	assert.Equal(t, 5, parent.HighWater())
}

// Scope.Resolve's upvalue closure property (spec.md §8): a binding
// defined in the outermost of three nested functions and referenced
// from the innermost (two function levels in) gets exactly one
// upvalue entry per function it crosses, chained.
func TestScope_UpvalueChainThreeLevelsDeep(t *testing.T) {
	synth := NewInternTable()
	xSym := synth.Symbol("x")

	outer := newFunctionScope(nil)
	xReg := outer.regs.Alloc()
	outer.Bind(xSym, Slot{Reg: xReg, EnvIndex: -1})

	middle := newFunctionScope(outer)
	inner := newFunctionScope(middle)

	slot, ok := inner.Resolve(xSym)
	require.True(t, ok)
	assert.True(t, slot.IsUpvalue())
	assert.True(t, outer.flags&FlagCapturesEnvironment != 0)

	require.Len(t, middle.upvalues, 1)
	assert.True(t, middle.upvalues[0].FromParentLocal)
	assert.Equal(t, xReg, middle.upvalues[0].Index)

	require.Len(t, inner.upvalues, 1)
	assert.False(t, inner.upvalues[0].FromParentLocal)
	assert.Equal(t, 0, inner.upvalues[0].Index)

	// Resolving the same symbol again must not duplicate the chain.
	_, ok = inner.Resolve(xSym)
	require.True(t, ok)
	assert.Len(t, middle.upvalues, 1)
	assert.Len(t, inner.upvalues, 1)
}

func TestScope_ResolveWithinSameFunctionIsLocal(t *testing.T) {
	synth := NewInternTable()
	ySym := synth.Symbol("y")

	fn := newFunctionScope(nil)
	reg := fn.regs.Alloc()
	fn.Bind(ySym, Slot{Reg: reg, EnvIndex: -1})

	block := newBlockScope(fn)
	slot, ok := block.Resolve(ySym)
	require.True(t, ok)
	assert.False(t, slot.IsUpvalue())
	assert.Equal(t, reg, slot.Reg)
}

func TestConstPool_DedupsStructurallyEqualValues(t *testing.T) {
	cp := newConstPool()
	idx1, err := cp.Add(Int(42))
	require.Nil(t, err)
	idx2, err := cp.Add(Int(42))
	require.Nil(t, err)
	assert.Equal(t, idx1, idx2)

	idx3, err := cp.Add(Str("hi"))
	require.Nil(t, err)
	assert.NotEqual(t, idx1, idx3)
	assert.Len(t, cp.values, 2)
}

func TestConstPool_DedupsStructurallyEqualTuples(t *testing.T) {
	cp := newConstPool()
	a := NewTuple([]Value{Int(1), Int(2)}, 1, 1)
	b := NewTuple([]Value{Int(1), Int(2)}, 9, 9) // different source position, same shape
	idxA, err := cp.Add(a)
	require.Nil(t, err)
	idxB, err := cp.Add(b)
	require.Nil(t, err)
	assert.Equal(t, idxA, idxB)
}
