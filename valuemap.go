package nanolisp

import (
	"hash/fnv"
	"math"
	"unsafe"
)

// valueMap is the fixed-capacity, power-of-two open-addressed bucket
// array spec.md §3 describes for Struct, and the mutable counterpart
// Table is built on the same structure with growth enabled.
type valueMap struct {
	buckets  []mapEntry
	size     int
	tombs    int
	growable bool
}

type mapEntry struct {
	key, val Value
	state    entryState
}

type entryState uint8

const (
	entryEmpty entryState = iota
	entryUsed
	entryTomb
)

func newValueMap(hint int, growable bool) *valueMap {
	cap := 8
	for cap < hint*2 {
		cap <<= 1
	}
	return &valueMap{buckets: make([]mapEntry, cap), growable: growable}
}

func (m *valueMap) mask() uint64 { return uint64(len(m.buckets) - 1) }

func (m *valueMap) find(key Value) (int, bool) {
	h := hashValue(key)
	idx := int(h & m.mask())
	firstTomb := -1
	for probe := 0; probe < len(m.buckets); probe++ {
		i := (idx + probe) & int(m.mask())
		e := &m.buckets[i]
		switch e.state {
		case entryEmpty:
			if firstTomb >= 0 {
				return firstTomb, false
			}
			return i, false
		case entryTomb:
			if firstTomb < 0 {
				firstTomb = i
			}
		case entryUsed:
			if e.key.Equal(key) {
				return i, true
			}
		}
	}
	if firstTomb >= 0 {
		return firstTomb, false
	}
	return -1, false
}

func (m *valueMap) get(key Value) (Value, bool) {
	i, ok := m.find(key)
	if !ok || i < 0 {
		return nil, false
	}
	return m.buckets[i].val, true
}

func (m *valueMap) put(key, val Value) {
	if m.growable && (m.size+m.tombs+1)*2 > len(m.buckets) {
		m.grow()
	}
	i, existed := m.find(key)
	if i < 0 {
		m.grow()
		i, existed = m.find(key)
	}
	if !existed {
		if m.buckets[i].state == entryTomb {
			m.tombs--
		}
		m.size++
	}
	m.buckets[i] = mapEntry{key: key, val: val, state: entryUsed}
}

func (m *valueMap) delete(key Value) bool {
	i, ok := m.find(key)
	if !ok {
		return false
	}
	m.buckets[i] = mapEntry{state: entryTomb}
	m.size--
	m.tombs++
	return true
}

func (m *valueMap) grow() {
	old := m.buckets
	m.buckets = make([]mapEntry, len(old)*2)
	m.size, m.tombs = 0, 0
	for _, e := range old {
		if e.state == entryUsed {
			m.put(e.key, e.val)
		}
	}
}

func (m *valueMap) each(fn func(k, v Value)) {
	for _, e := range m.buckets {
		if e.state == entryUsed {
			fn(e.key, e.val)
		}
	}
}

func (m *valueMap) len() int { return m.size }

// clone makes an independent copy sharing no mutable backing storage.
func (m *valueMap) clone() *valueMap {
	n := &valueMap{buckets: make([]mapEntry, len(m.buckets)), size: m.size, tombs: m.tombs, growable: m.growable}
	copy(n.buckets, m.buckets)
	return n
}

// hashValue computes a structural hash for the kinds with structural
// equality, and a reference-identity hash (by pointer) for mutable
// containers and opaque values, matching Equal's split in value.go.
func hashValue(v Value) uint64 {
	h := fnv.New64a()
	switch n := v.(type) {
	case nilValue:
		return 1
	case falseValue:
		return 2
	case trueValue:
		return 3
	case Int:
		// Hashed as its float64 value so an Int and an equal Real hash alike.
		var buf [8]byte
		putU64(buf[:], math.Float64bits(float64(n)))
		h.Write(buf[:])
	case Real:
		var buf [8]byte
		putU64(buf[:], math.Float64bits(float64(n)))
		h.Write(buf[:])
	case Str:
		h.Write([]byte(n))
	case Symbol:
		return uint64(uintptr(unsafe.Pointer(n.id)))
	case Keyword:
		return uint64(uintptr(unsafe.Pointer(n.id))) ^ 0xabcd
	case *Tuple:
		return n.Hash()
	case *Struct:
		return n.hash()
	default:
		return identityHash(v)
	}
	return h.Sum64()
}

func identityHash(v Value) uint64 {
	switch n := v.(type) {
	case *Array:
		return uint64(uintptr(unsafe.Pointer(n)))
	case *Buffer:
		return uint64(uintptr(unsafe.Pointer(n)))
	case *Table:
		return uint64(uintptr(unsafe.Pointer(n)))
	case *Function:
		return uint64(uintptr(unsafe.Pointer(n)))
	case *CFunction:
		return uint64(uintptr(unsafe.Pointer(n)))
	case *Abstract:
		return uint64(uintptr(unsafe.Pointer(n)))
	case *Fiber:
		return uint64(uintptr(unsafe.Pointer(n)))
	default:
		return 0
	}
}

func putU64(buf []byte, v uint64) {
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
}

// hashValues combines a slice of Values into one order-sensitive hash,
// used for Tuple (order matters: tuples are ordered sequences).
func hashValues(items []Value) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, it := range items {
		putU64(buf[:], hashValue(it))
		h.Write(buf[:])
	}
	return h.Sum64()
}
