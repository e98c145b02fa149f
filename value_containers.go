package nanolisp

import (
	"sort"
	"strings"
	"unsafe"
)

// Table is a mutable key/value container compared by reference
// identity. Its backing store is the same power-of-two bucket array
// Struct uses, grown on demand.
type Table struct{ m *valueMap }

func NewTable(hint int) *Table { return &Table{m: newValueMap(hint, true)} }

func (*Table) Kind() Kind { return KindTable }

func (t *Table) Get(key Value) (Value, bool) { return t.m.get(key) }
func (t *Table) Put(key, val Value)           { t.m.put(key, val) }
func (t *Table) Delete(key Value) bool        { return t.m.delete(key) }
func (t *Table) Len() int                     { return t.m.len() }
func (t *Table) Each(fn func(k, v Value))      { t.m.each(fn) }

func (t *Table) String() string {
	var b strings.Builder
	b.WriteString("@{")
	first := true
	t.entriesSorted(func(k, v Value) {
		if !first {
			b.WriteByte(' ')
		}
		first = false
		b.WriteString(k.String())
		b.WriteByte(' ')
		b.WriteString(v.String())
	})
	b.WriteByte('}')
	return b.String()
}

func (t *Table) entriesSorted(fn func(k, v Value)) {
	type kv struct{ k, v Value }
	var all []kv
	t.m.each(func(k, v Value) { all = append(all, kv{k, v}) })
	sort.Slice(all, func(i, j int) bool { return all[i].k.Compare(all[j].k) < 0 })
	for _, e := range all {
		fn(e.k, e.v)
	}
}

func (t *Table) Equal(o Value) bool {
	other, ok := o.(*Table)
	return ok && t == other
}

func (t *Table) Compare(o Value) int {
	other, ok := o.(*Table)
	if !ok {
		return compareByKind(t, o)
	}
	if t == other {
		return 0
	}
	return ptrOrder(unsafe.Pointer(t), unsafe.Pointer(other))
}

// Struct is an immutable key/value container built once from a flat
// sequence of alternating keys and values; equality/ordering is
// lifted lexicographically over its sorted key/value pairs.
type Struct struct {
	m      *valueMap
	frozen bool
}

// NewStruct builds a Struct from alternating key/value entries,
// erroring if the count is odd (spec.md §4.1's curly-brace odd-arg
// rule applies at the reader layer; this constructor enforces the
// same invariant for any other caller).
func NewStruct(kvs []Value) (*Struct, error) {
	if len(kvs)%2 != 0 {
		return nil, newCompileError(ErrSyntax, Location{}, "struct literal requires an even number of key/value slots")
	}
	m := newValueMap(len(kvs)/2, false)
	for i := 0; i < len(kvs); i += 2 {
		m.put(kvs[i], kvs[i+1])
	}
	return &Struct{m: m, frozen: true}, nil
}

func (*Struct) Kind() Kind { return KindStruct }

func (s *Struct) Get(key Value) (Value, bool) { return s.m.get(key) }
func (s *Struct) Len() int                     { return s.m.len() }
func (s *Struct) Each(fn func(k, v Value))     { s.m.each(fn) }

func (s *Struct) sortedPairs() []Value {
	type kv struct{ k, v Value }
	var all []kv
	s.m.each(func(k, v Value) { all = append(all, kv{k, v}) })
	sort.Slice(all, func(i, j int) bool { return all[i].k.Compare(all[j].k) < 0 })
	out := make([]Value, 0, len(all)*2)
	for _, e := range all {
		out = append(out, e.k, e.v)
	}
	return out
}

func (s *Struct) String() string {
	var b strings.Builder
	b.WriteByte('{')
	pairs := s.sortedPairs()
	for i := 0; i < len(pairs); i += 2 {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(pairs[i].String())
		b.WriteByte(' ')
		b.WriteString(pairs[i+1].String())
	}
	b.WriteByte('}')
	return b.String()
}

func (s *Struct) hash() uint64 {
	var h uint64
	s.m.each(func(k, v Value) {
		h ^= hashValue(k)*31 + hashValue(v)
	})
	return h
}

func (s *Struct) Equal(o Value) bool {
	other, ok := o.(*Struct)
	if !ok || s.Len() != other.Len() {
		return false
	}
	equal := true
	s.m.each(func(k, v Value) {
		ov, found := other.Get(k)
		if !found || !ov.Equal(v) {
			equal = false
		}
	})
	return equal
}

func (s *Struct) Compare(o Value) int {
	other, ok := o.(*Struct)
	if !ok {
		return compareByKind(s, o)
	}
	a, b := s.sortedPairs(), other.sortedPairs()
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := a[i].Compare(b[i]); c != 0 {
			return c
		}
	}
	return intCompare(len(a), len(b))
}
