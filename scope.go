package nanolisp

import "fmt"

// SlotFlags are the compile-time bit-flags a Slot carries, per
// spec.md §3.
type SlotFlags uint8

const (
	SlotConstant SlotFlags = 1 << iota
	SlotRef
	SlotNamed
	SlotMutable
	SlotReturned
)

// Slot is the compile-time descriptor of a value's location: a
// register, an upvalue, a constant, or a reference cell. Slots are
// small and value-like; copying one is always cheap, per spec.md §3.
type Slot struct {
	Flags    SlotFlags
	Reg      int // -1: not in a register; 0..255 near; >255 far
	EnvIndex int // -1: local; >=0: index into the owning funcdef's upvalue table
	Literal  Value
}

func (s Slot) IsConstant() bool { return s.Flags&SlotConstant != 0 }
func (s Slot) IsRef() bool      { return s.Flags&SlotRef != 0 }
func (s Slot) IsUpvalue() bool  { return s.EnvIndex >= 0 }
func (s Slot) IsNearReg() bool  { return s.Reg >= 0 && s.Reg < 256 }

// RegisterAllocator is a bit-set over the 256 near registers plus an
// overflow counter for far registers, grounded on the teacher's
// vm_stack.go frame-stack idiom of tracking a high-water mark as
// frames push and pop.
type RegisterAllocator struct {
	used      [256]bool
	highWater int
	farNext   int
}

func newRegisterAllocator() *RegisterAllocator {
	return &RegisterAllocator{farNext: 256}
}

// Alloc returns the lowest clear near-register bit, or a fresh far
// register once the near space is exhausted.
func (ra *RegisterAllocator) Alloc() int {
	for i := 0; i < 256; i++ {
		if !ra.used[i] {
			ra.used[i] = true
			if i+1 > ra.highWater {
				ra.highWater = i + 1
			}
			return i
		}
	}
	r := ra.farNext
	ra.farNext++
	if r+1 > ra.highWater {
		ra.highWater = r + 1
	}
	return r
}

// Free clears a near register's bit. Far registers are never reused
// (they are the overflow case and expected to be rare).
func (ra *RegisterAllocator) Free(reg int) {
	if reg >= 0 && reg < 256 {
		ra.used[reg] = false
	}
}

// HighWater is the largest (index+1) ever allocated — the function's
// final slot count.
func (ra *RegisterAllocator) HighWater() int { return ra.highWater }

// MergeHighWater propagates a child scope's high-water mark upward on
// pop, per spec.md §8's slot-allocator correctness property.
func (ra *RegisterAllocator) MergeHighWater(child *RegisterAllocator) {
	if child.highWater > ra.highWater {
		ra.highWater = child.highWater
	}
}

// UpvalueDesc records how one function captures a single binding from
// its immediately enclosing function: either that function's own
// local register (FromParentLocal) or one of its own upvalue slots
// (propagating a capture further out).
type UpvalueDesc struct {
	FromParentLocal bool
	Index           int
}

// ScopeKind distinguishes a function's root scope from a top-level
// compilation unit and from a lexical block nested inside a function.
type ScopeKind int

const (
	ScopeTopLevel ScopeKind = iota
	ScopeFunction
	ScopeBlock
)

// ScopeFlags mirror spec.md §3's scope flag set.
type ScopeFlags uint8

const (
	FlagFunctionRoot ScopeFlags = 1 << iota
	FlagCapturesEnvironment
	FlagUnusedCompile // reserved: would mark a dead (unreachable) compile path; this
	// non-optimizing implementation never sets it, since spec.md's
	// Non-goals exclude dead-code elimination.
	FlagTopLevel
)

type scopeBinding struct {
	Name Symbol
	Slot Slot
	Keep bool
}

// Scope is one entry of the compiler's parent/child scope stack,
// grounded on spec.md §9's "owned vector of scopes, each referring to
// its parent" design note and the teacher's vm_stack.go explicit-stack
// idiom.
type Scope struct {
	parent *Scope
	kind   ScopeKind
	flags  ScopeFlags

	bindings []scopeBinding

	regs *RegisterAllocator // shared by every scope within one function

	// Function-root-only bookkeeping:
	consts       *constPool
	nested       []*FuncDef
	upvalues     []UpvalueDesc
	upvalueIndex map[string]int
	prog         *Program
	funcRoot     *Scope

	bcStart int
}

func newFunctionScope(parent *Scope) *Scope {
	s := &Scope{
		kind:         ScopeFunction,
		flags:        FlagFunctionRoot,
		parent:       parent,
		regs:         newRegisterAllocator(),
		consts:       newConstPool(),
		prog:         NewProgram(),
		upvalueIndex: make(map[string]int),
	}
	s.funcRoot = s
	return s
}

func newTopLevelScope() *Scope {
	s := newFunctionScope(nil)
	s.flags |= FlagTopLevel
	return s
}

func newBlockScope(parent *Scope) *Scope {
	s := &Scope{
		kind:     ScopeBlock,
		parent:   parent,
		regs:     parent.regs,
		funcRoot: parent.funcRoot,
		prog:     parent.funcRoot.prog,
	}
	s.bcStart = s.prog.Len()
	return s
}

// Bind adds a new binding visible from this scope onward.
func (s *Scope) Bind(name Symbol, slot Slot) {
	s.bindings = append(s.bindings, scopeBinding{Name: name, Slot: slot})
}

func findBinding(s *Scope, name Symbol) (*scopeBinding, bool) {
	for i := len(s.bindings) - 1; i >= 0; i-- {
		if s.bindings[i].Name.id == name.id {
			return &s.bindings[i], true
		}
	}
	return nil, false
}

// Resolve searches this scope and its ancestors, inner to outer, per
// spec.md §4.3. On a hit outside the current function it records an
// upvalue capture chain through every intervening function scope.
func (s *Scope) Resolve(name Symbol) (Slot, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		b, ok := findBinding(cur, name)
		if !ok {
			continue
		}
		if b.Slot.Flags&(SlotConstant|SlotRef) != 0 {
			return b.Slot, true
		}
		if cur.funcRoot == s.funcRoot {
			return b.Slot, true
		}
		return s.propagateUpvalue(cur, b, name)
	}
	return Slot{}, false
}

// propagateUpvalue marks the owning binding "keep" and threads an
// upvalue descriptor through every function scope between the
// reference site and the scope that owns the binding, so each
// intervening function gets exactly one upvalue entry for it and the
// chain bottoms out at the original defining slot (spec.md §8's
// "upvalue closure" property).
func (s *Scope) propagateUpvalue(owner *Scope, b *scopeBinding, name Symbol) (Slot, bool) {
	b.Keep = true
	ownerFn := owner.funcRoot
	ownerFn.flags |= FlagCapturesEnvironment

	var chain []*Scope
	for fr := s.funcRoot; fr != nil && fr != ownerFn; {
		chain = append(chain, fr)
		if fr.parent == nil {
			break
		}
		fr = fr.parent.funcRoot
	}

	isLocal := true
	index := b.Slot.Reg
	for i := len(chain) - 1; i >= 0; i-- {
		fn := chain[i]
		key := fmt.Sprintf("%v:%d:%p", isLocal, index, name.id)
		idx, ok := fn.upvalueIndex[key]
		if !ok {
			idx = len(fn.upvalues)
			fn.upvalues = append(fn.upvalues, UpvalueDesc{FromParentLocal: isLocal, Index: index})
			fn.upvalueIndex[key] = idx
		}
		isLocal = false
		index = idx
	}
	return Slot{Reg: -1, EnvIndex: index}, true
}

// Pop merges this scope's register high-water mark into its parent
// (a no-op across a function boundary, since each function owns its
// own allocator) and returns the bindings that must keep their slot
// alive in the parent because they were captured by a nested closure.
func (s *Scope) Pop() []scopeBinding {
	if s.parent != nil && s.parent.regs == s.regs {
		s.parent.regs.MergeHighWater(s.regs)
	}
	var kept []scopeBinding
	for _, b := range s.bindings {
		if b.Keep {
			kept = append(kept, b)
		}
	}
	return kept
}

// constPool is the per-function constant table, deduplicated by
// structural equality per spec.md §4.4, capped at 65535 entries.
type constPool struct {
	values []Value
	index  map[string]int
}

func newConstPool() *constPool {
	return &constPool{index: make(map[string]int)}
}

// Add interns v into the pool, returning its index. Dedup key
// construction is this repo's decision (spec.md §4.4 leaves it
// unspecified, see SPEC_FULL.md §11): non-container kinds key on
// (Kind, String()); tuples/structs key on a canonical Print() encoding
// so structurally-equal composites collapse to one entry; values that
// compare by reference identity (arrays, tables, buffers, functions,
// cfunctions, abstracts, fibers) key on their pointer.
func (cp *constPool) Add(v Value) (uint16, *CompileError) {
	key := constKey(v)
	if idx, ok := cp.index[key]; ok {
		return uint16(idx), nil
	}
	if len(cp.values) >= 65535 {
		return 0, newCompileError(ErrOverflow, Location{}, "%s", overflowMessage("constants", 65535))
	}
	idx := len(cp.values)
	cp.values = append(cp.values, v)
	cp.index[key] = idx
	return uint16(idx), nil
}

func constKey(v Value) string {
	switch v.(type) {
	case *Tuple, *Struct:
		return v.Kind().String() + ":" + Print(v)
	case *Array, *Table, *Buffer, *Function, *CFunction, *Abstract, *Fiber:
		return fmt.Sprintf("%s:%p", v.Kind(), v)
	default:
		return v.Kind().String() + ":" + v.String()
	}
}
