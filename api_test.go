package nanolisp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rejectAllVM struct{}

func (rejectAllVM) Call(Value, []Value) (Value, *MacroFiber, error) {
	return nil, nil, assertError("macro expansion is not used by these tests")
}

type assertError string

func (e assertError) Error() string { return string(e) }

func readOne(t *testing.T, src string) Value {
	t.Helper()
	r := NewReader()
	n, err := r.Consume([]byte(src))
	require.NoError(t, err)
	require.Equal(t, len(src), n)
	require.NoError(t, r.Eof())
	require.True(t, r.HasMore())
	v, ok := r.Produce()
	require.True(t, ok)
	return v
}

// Scenario 1: (+ 1 2) resolves `+` from the environment and lowers to
// load-constant/load-integer/push-2/tailcall.
func TestCompile_SimpleCall(t *testing.T) {
	src := readOne(t, "(+ 1 2)")
	env := NewEnv()
	plusSym := src.(*Tuple).Items[0].(Symbol)
	env.Def(plusSym, NewCFunction("+", nil))

	fd, cerr := Compile(src, env, "test", rejectAllVM{})
	require.Nil(t, cerr)
	require.NotEmpty(t, fd.Bytecode)

	ops := make([]Opcode, len(fd.Bytecode))
	for i, w := range fd.Bytecode {
		ops[i] = Opcode(w & 0xff)
	}
	assert.Contains(t, ops, OpLoadConstant)
	assert.Contains(t, ops, OpLoadInt)
	assert.Contains(t, ops, OpPush2)
	assert.Contains(t, ops, OpTailCall)
	assert.NotContains(t, ops, OpCall)
}

// Scenario 2: a doubly-nested fn capturing the outer parameter
// produces exactly one upvalue in the inner funcdef and marks the
// outer funcdef as capturing its environment.
func TestCompile_NestedFnUpvalue(t *testing.T) {
	src := readOne(t, "(fn [x] (fn [y] (+ x y)))")
	env := NewEnv()
	plusSym := src.(*Tuple).Items[2].(*Tuple).Items[2].(*Tuple).Items[0].(Symbol)
	env.Def(plusSym, NewCFunction("+", nil))

	fd, cerr := Compile(src, env, "test", rejectAllVM{})
	require.Nil(t, cerr)
	require.Len(t, fd.Nested, 1)
	outer := fd.Nested[0]
	assert.True(t, outer.CapturesEnvironment())
	require.Len(t, outer.Nested, 1)
	inner := outer.Nested[0]
	require.Len(t, inner.Upvalues, 1)
	assert.True(t, inner.Upvalues[0].FromParentLocal)
}

// Scenario 6: compiling (var x 1) (set x 2) x writes then reads
// through get-index/put-index on the backing ref cell. All three forms
// come from one reader so the three x symbols share one interned
// identity.
func TestCompile_VarSetGet(t *testing.T) {
	r := NewReader()
	_, err := r.Consume([]byte("(var x 1) (set x 2) x"))
	require.NoError(t, err)
	require.NoError(t, r.Eof())
	var forms []Value
	for r.HasMore() {
		v, _ := r.Produce()
		forms = append(forms, v)
	}
	require.Len(t, forms, 3)
	synth := NewInternTable()
	doSym := synth.Symbol("do")
	program := NewTuple(append([]Value{doSym}, forms...), 1, 1)

	fd, cerr := Compile(program, NewEnv(), "test", rejectAllVM{})
	require.Nil(t, cerr)

	var gets, puts int
	for _, w := range fd.Bytecode {
		switch Opcode(w & 0xff) {
		case OpGetIndex:
			gets++
		case OpPutIndex:
			puts++
		}
	}
	assert.GreaterOrEqual(t, puts, 1, "set must emit at least one put-index")
	assert.GreaterOrEqual(t, gets, 1, "the trailing x reference must emit a get-index")
}

// In non-tail position both branches must converge on a shared
// register via a join jump after the then-branch.
func TestCompile_IfBranchesJoinInNonTailPosition(t *testing.T) {
	src := readOne(t, "(do (if true 1 2) 3)")
	fd, cerr := Compile(src, NewEnv(), "test", rejectAllVM{})
	require.Nil(t, cerr)

	var sawJumpIfNot, sawJump bool
	for _, w := range fd.Bytecode {
		switch Opcode(w & 0xff) {
		case OpJumpIfNot:
			sawJumpIfNot = true
		case OpJump:
			sawJump = true
		}
	}
	assert.True(t, sawJumpIfNot)
	assert.True(t, sawJump)
}

// In tail position each branch terminates the function on its own
// with a return, rather than falling through from the then-branch
// into the else-branch.
func TestCompile_IfBranchesReturnInTailPosition(t *testing.T) {
	src := readOne(t, "(if true 1 2)")
	fd, cerr := Compile(src, NewEnv(), "test", rejectAllVM{})
	require.Nil(t, cerr)

	var sawJumpIfNot bool
	var returns int
	for _, w := range fd.Bytecode {
		switch Opcode(w & 0xff) {
		case OpJumpIfNot:
			sawJumpIfNot = true
		case OpReturn:
			returns++
		}
	}
	assert.True(t, sawJumpIfNot)
	assert.Equal(t, 2, returns, "each branch must return on its own in tail position")
}

func TestCompile_UnknownSymbolErrors(t *testing.T) {
	src := readOne(t, "undefined-name")
	_, cerr := Compile(src, NewEnv(), "test", rejectAllVM{})
	require.NotNil(t, cerr)
	assert.Equal(t, ErrUnknownSymbol, cerr.Kind)
}

func TestCompile_QuoteIsLiteral(t *testing.T) {
	src := readOne(t, "(quote (a b c))")
	fd, cerr := Compile(src, NewEnv(), "test", rejectAllVM{})
	require.Nil(t, cerr)
	require.Len(t, fd.Constants, 1)
	tup, ok := fd.Constants[0].(*Tuple)
	require.True(t, ok)
	assert.Len(t, tup.Items, 3)
}
