package nanolisp

// Compiler holds the mutable state threaded through one call to
// Compile: the macro-calling VM seam, the top-level environment, the
// latched first error, and the bounded recursion counters spec.md
// §4.2 requires. One Compiler is used for exactly one compilation;
// it is not reused across calls. Its first error latches for good;
// unlike the reader in reader.go, it has no Flush to clear it.
type Compiler struct {
	env        *Env
	vm         VMCaller
	cfg        *CompilerConfig
	sourceName string

	synth *InternTable // private table for symbols the compiler synthesizes (e.g. the implicit `do` wrapping a fn body)
	doSym Symbol

	depth    int
	lastLoc  SourceLocation
	err      *CompileError

	loops []loopCtx
}

type loopCtx struct {
	breakLabel int
	resultHint int
}

func newCompiler(env *Env, vm VMCaller, sourceName string, cfg *CompilerConfig) *Compiler {
	synth := NewInternTable()
	c := &Compiler{env: env, vm: vm, sourceName: sourceName, cfg: cfg, synth: synth}
	c.doSym = synth.Symbol("do")
	return c
}

// fail latches the first CompileError produced during this
// compilation and returns it; later calls are no-ops that return the
// same value, per spec.md §7's "error latches" rule.
func (c *Compiler) fail(kind ErrorKind, loc SourceLocation, format string, args ...any) *CompileError {
	if c.err != nil {
		return c.err
	}
	c.err = newCompileError(kind, c.toLocation(loc), format, args...)
	return c.err
}

func (c *Compiler) toLocation(sl SourceLocation) Location {
	return Location{Line: sl.Line, Column: sl.Column, Source: c.sourceName}
}

// locOf tracks the "inherit the previous mapping" rule from pos.go's
// SourceLocation doc comment: a Tuple's own Line/Column become the
// current location; anything else (an atom with no position of its
// own) inherits whatever location was last observed.
func (c *Compiler) locOf(x Value) SourceLocation {
	if t, ok := x.(*Tuple); ok {
		c.lastLoc = SourceLocation{Line: t.Line, Column: t.Column}
	}
	return c.lastLoc
}

func (c *Compiler) destReg(scope *Scope, hint int) int {
	if hint >= 0 {
		return hint
	}
	return scope.regs.Alloc()
}

// compile is the dispatch algorithm from spec.md §4.2: a bounded
// recursion counter guards every call; each iteration of the loop
// below re-checks "is this a special form, then is this a macro call"
// (step 2, repeated per spec.md's wording) before falling through to
// kind-based dispatch (steps 4-5) once neither applies.
func (c *Compiler) compile(scope *Scope, x Value, tail bool, hint int) (Slot, *CompileError) {
	if c.err != nil {
		return Slot{}, c.err
	}
	c.depth++
	defer func() { c.depth-- }()
	if c.depth > c.cfg.MaxRecursionDepth() {
		return Slot{}, c.fail(ErrRecursionDepth, c.lastLoc, "compiler recursed too deeply")
	}

	cur := x
	expansions := 0
	for {
		loc := c.locOf(cur)
		tup, ok := cur.(*Tuple)
		if !ok || len(tup.Items) == 0 {
			break
		}
		sym, ok := tup.Items[0].(Symbol)
		if !ok {
			break
		}
		if IsSpecialForm(sym) {
			slot, err := c.compileSpecialForm(scope, sym, tup, tail, hint, loc)
			if err != nil {
				return Slot{}, err
			}
			return c.finishTail(scope, slot, tail, loc)
		}
		macroVal, isMacro := IsMacro(c.env, sym)
		if !isMacro {
			break
		}
		expansions++
		if expansions > c.cfg.MaxMacroExpansions() {
			return Slot{}, c.fail(ErrRecursionDepth, loc, "recursed too deeply expanding macro %s", sym.Name())
		}
		args := append([]Value(nil), tup.Items[1:]...)
		result, fiber, err := c.vm.Call(macroVal, args)
		if err != nil {
			cerr := newCompileError(ErrMacro, c.toLocation(loc), "%s", err.Error())
			if fiber == nil {
				fiber = newMacroFiber(sym.Name())
			}
			cerr.Fiber = fiber
			c.err = cerr
			return Slot{}, cerr
		}
		cur = result
	}
	loc := c.locOf(cur)
	slot, err := c.compileByKind(scope, cur, tail, hint)
	if err != nil {
		return Slot{}, err
	}
	return c.finishTail(scope, slot, tail, loc)
}

// finishTail is spec.md §4.2 step 5: a tail-position compile that
// didn't already divert control flow on its own (a tailcall, or a
// break jumping out of a loop — both already SlotReturned) must not
// fall off the end of the function. Materialize its value and emit an
// explicit return instead.
func (c *Compiler) finishTail(scope *Scope, slot Slot, tail bool, loc SourceLocation) (Slot, *CompileError) {
	if !tail || slot.Flags&SlotReturned != 0 {
		return slot, nil
	}
	materialized, cerr := c.materializeSlot(scope, slot, -1, loc)
	if cerr != nil {
		return Slot{}, cerr
	}
	scope.prog.Emit(IReturn{baseInstr{loc}, byte(materialized.Reg)})
	return Slot{Reg: -1, EnvIndex: -1, Flags: SlotReturned}, nil
}

// compileByKind implements spec.md §4.2 steps 4-5 once a value is
// known to be neither a special form nor a macro call.
func (c *Compiler) compileByKind(scope *Scope, x Value, tail bool, hint int) (Slot, *CompileError) {
	loc := c.locOf(x)
	switch v := x.(type) {
	case *Tuple:
		if len(v.Items) == 0 {
			return c.emitConstant(scope, x, hint, loc)
		}
		return c.compileCall(scope, v, tail, hint, loc)
	case Symbol:
		return c.compileSymbolRef(scope, v, hint, loc)
	case *Array:
		return c.compileArrayLiteral(scope, v, hint, loc)
	case *Table:
		return c.compileTableLiteral(scope, v, hint, loc)
	case *Struct:
		return c.compileStructLiteral(scope, v, hint, loc)
	case *Buffer:
		return c.compileBufferLiteral(scope, v, hint, loc)
	default:
		// nil, true, false, Int, Real, Str, Keyword, Function,
		// CFunction, Abstract: all leaf constants.
		return c.emitConstant(scope, x, hint, loc)
	}
}

// emitConstant lowers a leaf value to a register, using a dedicated
// fixed-width load for nil/true/false/small integers and the constant
// pool for everything else, per spec.md §4.4's instruction set.
func (c *Compiler) emitConstant(scope *Scope, v Value, hint int, loc SourceLocation) (Slot, *CompileError) {
	dst := c.destReg(scope, hint)
	switch v.Kind() {
	case KindNil:
		scope.prog.Emit(ILoadNil{baseInstr{loc}, byte(dst)})
	case KindTrue:
		scope.prog.Emit(ILoadTrue{baseInstr{loc}, byte(dst)})
	case KindFalse:
		scope.prog.Emit(ILoadFalse{baseInstr{loc}, byte(dst)})
	case KindInt:
		n := int64(v.(Int))
		if n >= -32768 && n <= 32767 {
			scope.prog.Emit(ILoadInt{baseInstr{loc}, byte(dst), int16(n)})
			break
		}
		idx, cerr := scope.consts.Add(v)
		if cerr != nil {
			c.err = cerr
			return Slot{}, cerr
		}
		scope.prog.Emit(ILoadConstant{baseInstr{loc}, byte(dst), idx})
	default:
		idx, cerr := scope.consts.Add(v)
		if cerr != nil {
			c.err = cerr
			return Slot{}, cerr
		}
		scope.prog.Emit(ILoadConstant{baseInstr{loc}, byte(dst), idx})
	}
	return Slot{Reg: dst, EnvIndex: -1}, nil
}

// materializeSlot turns a resolved binding Slot into a concrete
// register holding its current value: a near-register binding is
// moved (or used in place) for free, an upvalue is fetched with
// load-upvalue, a ref cell is dereferenced through get-index 0, and a
// scope-level compile-time constant is re-emitted via emitConstant.
func (c *Compiler) materializeSlot(scope *Scope, slot Slot, hint int, loc SourceLocation) (Slot, *CompileError) {
	switch {
	case slot.Flags&SlotRef != 0 && slot.Literal != nil:
		dst := c.destReg(scope, hint)
		idx, cerr := scope.consts.Add(slot.Literal)
		if cerr != nil {
			c.err = cerr
			return Slot{}, cerr
		}
		scope.prog.Emit(ILoadConstant{baseInstr{loc}, byte(dst), idx})
		scope.prog.Emit(IGetIndex{baseInstr{loc}, byte(dst), byte(dst), 0})
		return Slot{Reg: dst, EnvIndex: -1}, nil
	case slot.Flags&SlotRef != 0:
		dst := hint
		if dst < 0 || dst == slot.Reg {
			dst = scope.regs.Alloc()
		}
		scope.prog.Emit(IGetIndex{baseInstr{loc}, byte(dst), byte(slot.Reg), 0})
		return Slot{Reg: dst, EnvIndex: -1}, nil
	case slot.Flags&SlotConstant != 0:
		return c.emitConstant(scope, slot.Literal, hint, loc)
	case slot.EnvIndex >= 0:
		dst := c.destReg(scope, hint)
		scope.prog.Emit(ILoadUpvalue{baseInstr{loc}, byte(dst), 0, byte(slot.EnvIndex)})
		return Slot{Reg: dst, EnvIndex: -1}, nil
	default:
		if hint >= 0 && hint != slot.Reg {
			scope.prog.Emit(IMove{baseInstr{loc}, byte(hint), byte(slot.Reg)})
			return Slot{Reg: hint, EnvIndex: -1}, nil
		}
		return slot, nil
	}
}

func (c *Compiler) compileSymbolRef(scope *Scope, sym Symbol, hint int, loc SourceLocation) (Slot, *CompileError) {
	if slot, ok := scope.Resolve(sym); ok {
		return c.materializeSlot(scope, slot, hint, loc)
	}
	b, ok := c.env.Lookup(sym)
	if !ok {
		return Slot{}, c.fail(ErrUnknownSymbol, loc, "unknown symbol %s", sym.Name())
	}
	switch b.Kind {
	case BindDef, BindMacro:
		return c.emitConstant(scope, b.Value, hint, loc)
	case BindVar:
		return c.materializeSlot(scope, Slot{Flags: SlotRef, Reg: -1, EnvIndex: -1, Literal: b.Value}, hint, loc)
	default:
		return Slot{}, c.fail(ErrInternal, loc, "unreachable binding kind for %s", sym.Name())
	}
}

// pushArgs batches a run of argument registers into the fewest
// push/push-2/push-3 instructions, per spec.md §4.4's call-argument
// batching.
func (c *Compiler) pushArgs(scope *Scope, regs []byte, loc SourceLocation) {
	i := 0
	for i < len(regs) {
		switch len(regs) - i {
		case 1:
			scope.prog.Emit(IPush{baseInstr{loc}, regs[i]})
			i++
		case 2:
			scope.prog.Emit(IPush2{baseInstr{loc}, regs[i], regs[i+1]})
			i += 2
		default:
			scope.prog.Emit(IPush3{baseInstr{loc}, regs[i], regs[i+1], regs[i+2]})
			i += 3
		}
	}
}

// compileCall handles a non-empty tuple whose head is not a special
// form or macro: compile the callee, compile and push every argument,
// then emit call or, in tail position, tailcall.
func (c *Compiler) compileCall(scope *Scope, tup *Tuple, tail bool, hint int, loc SourceLocation) (Slot, *CompileError) {
	calleeSlot, err := c.compile(scope, tup.Items[0], false, -1)
	if err != nil {
		return Slot{}, err
	}
	args := tup.Items[1:]
	regs := make([]byte, 0, len(args))
	for _, a := range args {
		s, err := c.compile(scope, a, false, -1)
		if err != nil {
			return Slot{}, err
		}
		regs = append(regs, byte(s.Reg))
	}
	c.pushArgs(scope, regs, loc)
	if tail {
		scope.prog.Emit(ITailCall{baseInstr{loc}, byte(calleeSlot.Reg), byte(len(args))})
		return Slot{Reg: -1, EnvIndex: -1, Flags: SlotReturned}, nil
	}
	dst := c.destReg(scope, hint)
	scope.prog.Emit(ICall{baseInstr{loc}, byte(dst), byte(calleeSlot.Reg), byte(len(args))})
	return Slot{Reg: dst, EnvIndex: -1}, nil
}

func (c *Compiler) compileArrayLiteral(scope *Scope, arr *Array, hint int, loc SourceLocation) (Slot, *CompileError) {
	regs := make([]byte, 0, len(arr.Items))
	for _, it := range arr.Items {
		s, err := c.compile(scope, it, false, -1)
		if err != nil {
			return Slot{}, err
		}
		regs = append(regs, byte(s.Reg))
	}
	c.pushArgs(scope, regs, loc)
	dst := c.destReg(scope, hint)
	scope.prog.Emit(IMakeArray{newCtor(OpMakeArray, loc, byte(dst), byte(len(regs)))})
	return Slot{Reg: dst, EnvIndex: -1}, nil
}

func (c *Compiler) compileTableLiteral(scope *Scope, tbl *Table, hint int, loc SourceLocation) (Slot, *CompileError) {
	var regs []byte
	var kvErr *CompileError
	tbl.entriesSorted(func(k, v Value) {
		if kvErr != nil {
			return
		}
		ks, err := c.compile(scope, k, false, -1)
		if err != nil {
			kvErr = err
			return
		}
		vs, err := c.compile(scope, v, false, -1)
		if err != nil {
			kvErr = err
			return
		}
		regs = append(regs, byte(ks.Reg), byte(vs.Reg))
	})
	if kvErr != nil {
		return Slot{}, kvErr
	}
	c.pushArgs(scope, regs, loc)
	dst := c.destReg(scope, hint)
	scope.prog.Emit(IMakeTable{newCtor(OpMakeTable, loc, byte(dst), byte(len(regs)))})
	return Slot{Reg: dst, EnvIndex: -1}, nil
}

func (c *Compiler) compileStructLiteral(scope *Scope, st *Struct, hint int, loc SourceLocation) (Slot, *CompileError) {
	var regs []byte
	var kvErr *CompileError
	for _, kv := range st.sortedPairs() {
		if kvErr != nil {
			break
		}
		s, err := c.compile(scope, kv, false, -1)
		if err != nil {
			kvErr = err
			break
		}
		regs = append(regs, byte(s.Reg))
	}
	if kvErr != nil {
		return Slot{}, kvErr
	}
	c.pushArgs(scope, regs, loc)
	dst := c.destReg(scope, hint)
	scope.prog.Emit(IMakeStruct{newCtor(OpMakeStruct, loc, byte(dst), byte(len(regs)))})
	return Slot{Reg: dst, EnvIndex: -1}, nil
}

// compileBufferLiteral emits a buffer constructor call with its
// contents as a single string argument.
func (c *Compiler) compileBufferLiteral(scope *Scope, buf *Buffer, hint int, loc SourceLocation) (Slot, *CompileError) {
	contents := Str(buf.Bytes)
	s, err := c.emitConstant(scope, contents, -1, loc)
	if err != nil {
		return Slot{}, err
	}
	scope.prog.Emit(IPush{baseInstr{loc}, byte(s.Reg)})
	dst := c.destReg(scope, hint)
	scope.prog.Emit(IMakeBuffer{newCtor(OpMakeBuffer, loc, byte(dst), 1)})
	return Slot{Reg: dst, EnvIndex: -1}, nil
}
