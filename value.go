package nanolisp

import (
	"math"
	"strconv"
	"strings"
	"unsafe"
)

// Kind is the discriminant of the Value sum type. Its enumeration
// order is the fixed kind-order spec.md §3 requires for breaking
// cross-kind comparisons.
type Kind uint8

const (
	KindNil Kind = iota
	KindFalse
	KindTrue
	KindFiber
	KindInt
	KindReal
	KindString
	KindSymbol
	KindKeyword
	KindArray
	KindTuple
	KindTable
	KindStruct
	KindBuffer
	KindFunction
	KindCFunction
	KindAbstract
)

var kindNames = [...]string{
	"nil", "false", "true", "fiber", "integer", "real", "string",
	"symbol", "keyword", "array", "tuple", "table", "struct", "buffer",
	"function", "cfunction", "abstract",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is the sum type over every kind in spec.md §3. Equality is
// structural for strings/symbols/keywords/tuples/structs/numbers and
// reference-identity for mutable containers and opaque types. Compare
// gives a total order across all kinds via the fixed kind-order above.
type Value interface {
	Kind() Kind
	Equal(other Value) bool
	Compare(other Value) int
	String() string
}

// Truthy reports Janet-style truthiness: only nil and false are falsy.
func Truthy(v Value) bool {
	k := v.Kind()
	return k != KindNil && k != KindFalse
}

func compareByKind(a, b Value) int {
	ka, kb := a.Kind(), b.Kind()
	if ka == kb {
		return 0
	}
	if ka < kb {
		return -1
	}
	return 1
}

func numeric(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Real:
		return float64(n), true
	default:
		return 0, false
	}
}

// ---- nil / false / true ----

type nilValue struct{}

// Nil is the single nil value.
var Nil Value = nilValue{}

func (nilValue) Kind() Kind   { return KindNil }
func (nilValue) String() string { return "nil" }
func (n nilValue) Equal(o Value) bool { return o.Kind() == KindNil }
func (n nilValue) Compare(o Value) int { return compareByKind(n, o) }

type falseValue struct{}

// False is the single false value.
var False Value = falseValue{}

func (falseValue) Kind() Kind     { return KindFalse }
func (falseValue) String() string { return "false" }
func (f falseValue) Equal(o Value) bool  { return o.Kind() == KindFalse }
func (f falseValue) Compare(o Value) int { return compareByKind(f, o) }

type trueValue struct{}

// True is the single true value.
var True Value = trueValue{}

func (trueValue) Kind() Kind     { return KindTrue }
func (trueValue) String() string { return "true" }
func (t trueValue) Equal(o Value) bool  { return o.Kind() == KindTrue }
func (t trueValue) Compare(o Value) int { return compareByKind(t, o) }

// Bool lifts a Go bool into the nanolisp True/False values.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// ---- numbers ----

// Int is a 32-bit signed integer value.
type Int int32

func (Int) Kind() Kind        { return KindInt }
func (n Int) String() string  { return strconv.FormatInt(int64(n), 10) }

func (n Int) Equal(o Value) bool {
	ov, ok := numeric(o)
	return ok && float64(n) == ov
}

func (n Int) Compare(o Value) int {
	ov, ok := numeric(o)
	if !ok {
		return compareByKind(n, o)
	}
	return compareFloats(float64(n), ov)
}

// Real is an IEEE-754 double value.
type Real float64

func (Real) Kind() Kind { return KindReal }

func (n Real) String() string {
	f := float64(n)
	if math.IsNaN(f) {
		return "nan"
	}
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func (n Real) Equal(o Value) bool {
	ov, ok := numeric(o)
	return ok && float64(n) == ov
}

func (n Real) Compare(o Value) int {
	ov, ok := numeric(o)
	if !ok {
		return compareByKind(n, o)
	}
	return compareFloats(float64(n), ov)
}

// compareFloats totally orders float64 values, placing NaN below every
// real per spec.md §3.
func compareFloats(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// ---- string ----

// Str is an immutable byte string value.
type Str string

func (Str) Kind() Kind       { return KindString }
func (s Str) String() string { return string(s) }

func (s Str) Equal(o Value) bool {
	other, ok := o.(Str)
	return ok && s == other
}

func (s Str) Compare(o Value) int {
	other, ok := o.(Str)
	if !ok {
		return compareByKind(s, o)
	}
	return strings.Compare(string(s), string(other))
}

// ---- symbol / keyword (interned) ----

// Symbol is an interned identifier. Two Symbol values compare equal
// iff they share the same *internedIdent, i.e. identity reduces to a
// pointer comparison as spec.md §3's intern invariant requires.
type Symbol struct{ id *internedIdent }

func (Symbol) Kind() Kind        { return KindSymbol }
func (s Symbol) Name() string    { return s.id.text }
func (s Symbol) String() string  { return s.id.text }

func (s Symbol) Equal(o Value) bool {
	other, ok := o.(Symbol)
	return ok && s.id == other.id
}

func (s Symbol) Compare(o Value) int {
	other, ok := o.(Symbol)
	if !ok {
		return compareByKind(s, o)
	}
	return strings.Compare(s.id.text, other.id.text)
}

// Keyword is an interned identifier prefixed by ':' in source form.
type Keyword struct{ id *internedIdent }

func (Keyword) Kind() Kind       { return KindKeyword }
func (k Keyword) Name() string   { return k.id.text }
func (k Keyword) String() string { return ":" + k.id.text }

func (k Keyword) Equal(o Value) bool {
	other, ok := o.(Keyword)
	return ok && k.id == other.id
}

func (k Keyword) Compare(o Value) int {
	other, ok := o.(Keyword)
	if !ok {
		return compareByKind(k, o)
	}
	return strings.Compare(k.id.text, other.id.text)
}

// ---- tuple (immutable) ----

// Tuple is an immutable ordered sequence carrying a precomputed hash
// and the source line/column it was read at.
type Tuple struct {
	Items  []Value
	hash   uint64
	Line   int
	Column int
}

// NewTuple builds a Tuple; the hash is left unset (0) and computed
// lazily on first use, per spec.md's "may be 0 unset and lazily
// filled" invariant.
func NewTuple(items []Value, line, column int) *Tuple {
	return &Tuple{Items: items, Line: line, Column: column}
}

func (*Tuple) Kind() Kind { return KindTuple }

func (t *Tuple) Hash() uint64 {
	if t.hash == 0 {
		t.hash = hashValues(t.Items) | 1
	}
	return t.hash
}

func (t *Tuple) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, it := range t.Items {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(it.String())
	}
	b.WriteByte(')')
	return b.String()
}

func (t *Tuple) Equal(o Value) bool {
	other, ok := o.(*Tuple)
	if !ok || len(t.Items) != len(other.Items) {
		return false
	}
	for i, it := range t.Items {
		if !it.Equal(other.Items[i]) {
			return false
		}
	}
	return true
}

func (t *Tuple) Compare(o Value) int {
	other, ok := o.(*Tuple)
	if !ok {
		return compareByKind(t, o)
	}
	n := len(t.Items)
	if len(other.Items) < n {
		n = len(other.Items)
	}
	for i := 0; i < n; i++ {
		if c := t.Items[i].Compare(other.Items[i]); c != 0 {
			return c
		}
	}
	return intCompare(len(t.Items), len(other.Items))
}

func intCompare(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// ---- array (mutable) ----

// Array is a mutable sequence compared by reference identity.
type Array struct{ Items []Value }

func NewArray(items []Value) *Array { return &Array{Items: items} }

func (*Array) Kind() Kind { return KindArray }

func (a *Array) String() string {
	var b strings.Builder
	b.WriteByte('@')
	b.WriteByte('[')
	for i, it := range a.Items {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(it.String())
	}
	b.WriteByte(']')
	return b.String()
}

func (a *Array) Equal(o Value) bool {
	other, ok := o.(*Array)
	return ok && a == other
}

func (a *Array) Compare(o Value) int {
	other, ok := o.(*Array)
	if !ok {
		return compareByKind(a, o)
	}
	if a == other {
		return 0
	}
	return ptrOrder(unsafe.Pointer(a), unsafe.Pointer(other))
}

// ---- buffer (mutable) ----

// Buffer is a mutable byte-oriented value compared by reference identity.
type Buffer struct{ Bytes []byte }

func NewBuffer(b []byte) *Buffer { return &Buffer{Bytes: b} }

func (*Buffer) Kind() Kind       { return KindBuffer }
func (b *Buffer) String() string { return "@\"" + string(b.Bytes) + "\"" }

func (b *Buffer) Equal(o Value) bool {
	other, ok := o.(*Buffer)
	return ok && b == other
}

func (b *Buffer) Compare(o Value) int {
	other, ok := o.(*Buffer)
	if !ok {
		return compareByKind(b, o)
	}
	if b == other {
		return 0
	}
	return ptrOrder(unsafe.Pointer(b), unsafe.Pointer(other))
}

// ptrOrder gives an arbitrary but stable total order over two distinct
// pointers, used to order mutable/opaque values that compare by
// reference identity.
func ptrOrder(a, b unsafe.Pointer) int {
	pa, pb := uintptr(a), uintptr(b)
	switch {
	case pa < pb:
		return -1
	case pa > pb:
		return 1
	default:
		return 0
	}
}
