package nanolisp

import "fmt"

// compileSpecialForm dispatches the closed set of forms IsSpecialForm
// recognizes, per spec.md §4.2's step 2.
func (c *Compiler) compileSpecialForm(scope *Scope, sym Symbol, tup *Tuple, tail bool, hint int, loc SourceLocation) (Slot, *CompileError) {
	switch sym.Name() {
	case "def":
		return c.compileDefOrVar(scope, tup, false, loc)
	case "var":
		return c.compileDefOrVar(scope, tup, true, loc)
	case "set":
		return c.compileSet(scope, tup, loc)
	case "if":
		return c.compileIf(scope, tup, tail, hint, loc)
	case "do":
		return c.compileDo(scope, tup, tail, hint, loc)
	case "while":
		return c.compileWhile(scope, tup, hint, loc)
	case "fn":
		return c.compileFn(scope, tup, hint, loc)
	case "quote":
		return c.compileQuote(scope, tup, hint, loc)
	case "quasiquote":
		return c.compileQuasiquote(scope, tup, hint, loc)
	case "unquote", "splice":
		return Slot{}, c.fail(ErrSyntax, loc, "%s is only valid inside quasiquote", sym.Name())
	case "break":
		return c.compileBreak(scope, tup, loc)
	default:
		return Slot{}, c.fail(ErrInternal, loc, "unhandled special form %s", sym.Name())
	}
}

// compileDefOrVar binds name at the current scope. def binds the
// compiled value's register directly; var wraps it in a runtime
// one-element array (the same ref-cell shape env.go's NewVarBinding
// uses) so later reads/writes compile to get-index/put-index.
func (c *Compiler) compileDefOrVar(scope *Scope, tup *Tuple, isVar bool, loc SourceLocation) (Slot, *CompileError) {
	items := tup.Items
	if len(items) != 3 {
		return Slot{}, c.fail(ErrSyntax, loc, "%s requires a name and a value", tup.Items[0].(Symbol).Name())
	}
	nameSym, ok := items[1].(Symbol)
	if !ok {
		return Slot{}, c.fail(ErrSyntax, loc, "def/var name must be a symbol")
	}
	valSlot, err := c.compile(scope, items[2], false, -1)
	if err != nil {
		return Slot{}, err
	}
	if isVar {
		cellReg := scope.regs.Alloc()
		scope.prog.Emit(IPush{baseInstr{loc}, byte(valSlot.Reg)})
		scope.prog.Emit(IMakeArray{newCtor(OpMakeArray, loc, byte(cellReg), 1)})
		scope.Bind(nameSym, Slot{Reg: cellReg, EnvIndex: -1, Flags: SlotRef})
		return Slot{Reg: cellReg, EnvIndex: -1}, nil
	}
	scope.Bind(nameSym, Slot{Reg: valSlot.Reg, EnvIndex: -1})
	return valSlot, nil
}

// compileSet assigns through a var's ref cell. Assignment to an
// indexed place (e.g. an array element) is left unsupported in this
// implementation; spec.md leaves the exact surface syntax for that
// case open (see DESIGN.md, section C), and the tested scenarios only ever
// set a var by name.
func (c *Compiler) compileSet(scope *Scope, tup *Tuple, loc SourceLocation) (Slot, *CompileError) {
	items := tup.Items
	if len(items) != 3 {
		return Slot{}, c.fail(ErrSyntax, loc, "set requires a target and a value")
	}
	sym, ok := items[1].(Symbol)
	if !ok {
		return Slot{}, c.fail(ErrSyntax, loc, "set to an indexed place is not supported; target must be a var symbol")
	}
	valSlot, err := c.compile(scope, items[2], false, -1)
	if err != nil {
		return Slot{}, err
	}
	if slot, ok := scope.Resolve(sym); ok {
		if slot.Flags&SlotRef == 0 {
			return Slot{}, c.fail(ErrSyntax, loc, "%s is not a var", sym.Name())
		}
		return c.emitRefWrite(scope, slot, valSlot, loc)
	}
	if b, ok := c.env.Lookup(sym); ok && b.Kind == BindVar {
		return c.emitRefWrite(scope, Slot{Flags: SlotRef, Reg: -1, EnvIndex: -1, Literal: b.Value}, valSlot, loc)
	}
	return Slot{}, c.fail(ErrUnknownSymbol, loc, "set target %s is not a var", sym.Name())
}

func (c *Compiler) emitRefWrite(scope *Scope, refSlot, valSlot Slot, loc SourceLocation) (Slot, *CompileError) {
	if refSlot.Literal != nil {
		idx, cerr := scope.consts.Add(refSlot.Literal)
		if cerr != nil {
			c.err = cerr
			return Slot{}, cerr
		}
		tmp := scope.regs.Alloc()
		scope.prog.Emit(ILoadConstant{baseInstr{loc}, byte(tmp), idx})
		scope.prog.Emit(IPutIndex{baseInstr{loc}, byte(tmp), 0, byte(valSlot.Reg)})
		scope.regs.Free(tmp)
		return valSlot, nil
	}
	scope.prog.Emit(IPutIndex{baseInstr{loc}, byte(refSlot.Reg), 0, byte(valSlot.Reg)})
	return valSlot, nil
}

// compileIf short-circuits on condition via jump-if-not, joining
// both branches on a shared destination register unless the whole
// form is itself in tail position, in which case each branch ends the
// function on its own.
func (c *Compiler) compileIf(scope *Scope, tup *Tuple, tail bool, hint int, loc SourceLocation) (Slot, *CompileError) {
	items := tup.Items
	if len(items) < 3 || len(items) > 4 {
		return Slot{}, c.fail(ErrSyntax, loc, "if requires a condition, a then-branch and an optional else-branch")
	}
	condSlot, err := c.compile(scope, items[1], false, -1)
	if err != nil {
		return Slot{}, err
	}
	elseLabel := scope.prog.NewLabel()
	endLabel := scope.prog.NewLabel()
	scope.prog.Emit(IJumpIfNot{baseInstr{loc}, byte(condSlot.Reg), elseLabel})

	dst := hint
	if !tail && dst < 0 {
		dst = scope.regs.Alloc()
	}
	if _, err := c.compile(scope, items[2], tail, dst); err != nil {
		return Slot{}, err
	}
	if !tail {
		scope.prog.Emit(IJump{baseInstr{loc}, endLabel})
	}
	scope.prog.PlaceLabel(elseLabel)
	var elseVal Value = Nil
	if len(items) == 4 {
		elseVal = items[3]
	}
	if _, err := c.compile(scope, elseVal, tail, dst); err != nil {
		return Slot{}, err
	}
	if !tail {
		scope.prog.PlaceLabel(endLabel)
	}
	if tail {
		return Slot{Reg: -1, EnvIndex: -1, Flags: SlotReturned}, nil
	}
	return Slot{Reg: dst, EnvIndex: -1}, nil
}

// compileDo sequences its body, discarding every value but the last.
func (c *Compiler) compileDo(scope *Scope, tup *Tuple, tail bool, hint int, loc SourceLocation) (Slot, *CompileError) {
	items := tup.Items[1:]
	if len(items) == 0 {
		return c.emitConstant(scope, Nil, hint, loc)
	}
	var last Slot
	for i, it := range items {
		isLast := i == len(items)-1
		h := -1
		if isLast {
			h = hint
		}
		s, err := c.compile(scope, it, isLast && tail, h)
		if err != nil {
			return Slot{}, err
		}
		last = s
	}
	return last, nil
}

// compileWhile loops while its condition holds: the condition and body
// are compiled once and a jump back to the start re-evaluates them on
// every iteration; break (tracked via c.loops)
// exits to a label placed after the loop.
func (c *Compiler) compileWhile(scope *Scope, tup *Tuple, hint int, loc SourceLocation) (Slot, *CompileError) {
	items := tup.Items
	if len(items) < 2 {
		return Slot{}, c.fail(ErrSyntax, loc, "while requires a condition")
	}
	startLabel := scope.prog.NewLabel()
	breakLabel := scope.prog.NewLabel()
	scope.prog.PlaceLabel(startLabel)

	condSlot, err := c.compile(scope, items[1], false, -1)
	if err != nil {
		return Slot{}, err
	}
	scope.prog.Emit(IJumpIfNot{baseInstr{loc}, byte(condSlot.Reg), breakLabel})

	resultReg := c.destReg(scope, hint)
	scope.prog.Emit(ILoadNil{baseInstr{loc}, byte(resultReg)})

	c.loops = append(c.loops, loopCtx{breakLabel: breakLabel, resultHint: resultReg})
	for _, body := range items[2:] {
		if _, err := c.compile(scope, body, false, -1); err != nil {
			c.loops = c.loops[:len(c.loops)-1]
			return Slot{}, err
		}
	}
	c.loops = c.loops[:len(c.loops)-1]

	scope.prog.Emit(IJump{baseInstr{loc}, startLabel})
	scope.prog.PlaceLabel(breakLabel)
	return Slot{Reg: resultReg, EnvIndex: -1}, nil
}

// compileBreak exits the innermost enclosing while, optionally
// carrying a value into that loop's result register.
func (c *Compiler) compileBreak(scope *Scope, tup *Tuple, loc SourceLocation) (Slot, *CompileError) {
	if len(c.loops) == 0 {
		return Slot{}, c.fail(ErrSyntax, loc, "break outside of a loop")
	}
	top := c.loops[len(c.loops)-1]
	if len(tup.Items) > 1 {
		if _, err := c.compile(scope, tup.Items[1], false, top.resultHint); err != nil {
			return Slot{}, err
		}
	}
	scope.prog.Emit(IJump{baseInstr{loc}, top.breakLabel})
	return Slot{Reg: -1, EnvIndex: -1, Flags: SlotReturned}, nil
}

// compileFn produces a nested FuncDef from a (fn [name] params body...)
// form and emits a closure instruction that materializes it at the
// call site, per spec.md §4.3's scope/slot model.
func (c *Compiler) compileFn(scope *Scope, tup *Tuple, hint int, loc SourceLocation) (Slot, *CompileError) {
	items := tup.Items[1:]
	if len(items) == 0 {
		return Slot{}, c.fail(ErrSyntax, loc, "fn requires a parameter list")
	}
	idx := 0
	var nameSym Symbol
	hasName := false
	if sym, ok := items[0].(Symbol); ok {
		nameSym = sym
		hasName = true
		idx = 1
	}
	if idx >= len(items) {
		return Slot{}, c.fail(ErrSyntax, loc, "fn requires a parameter list")
	}
	params, variadic, perr := parseParamList(items[idx])
	if perr != nil {
		return Slot{}, c.fail(ErrSyntax, loc, "%s", perr.Error())
	}
	idx++
	bodyForms := items[idx:]

	fnScope := newFunctionScope(scope)
	for _, p := range params {
		reg := fnScope.regs.Alloc()
		fnScope.Bind(p, Slot{Reg: reg, EnvIndex: -1})
	}
	functionName := ""
	if hasName {
		functionName = nameSym.Name()
		selfReg := fnScope.regs.Alloc()
		fnScope.prog.Emit(ILoadSelf{baseInstr{loc}, byte(selfReg)})
		fnScope.Bind(nameSym, Slot{Reg: selfReg, EnvIndex: -1})
	}

	savedLoops := c.loops
	c.loops = nil
	doBody := NewTuple(append([]Value{c.doSym}, bodyForms...), tup.Line, tup.Column)
	if _, err := c.compile(fnScope, doBody, true, -1); err != nil {
		c.loops = savedLoops
		return Slot{}, err
	}
	c.loops = savedLoops

	fd, cerr := finalizeFuncDef(fnScope, c.sourceName, functionName, len(params), variadic)
	if cerr != nil {
		c.err = cerr
		return Slot{}, cerr
	}
	root := scope.funcRoot
	root.nested = append(root.nested, fd)
	nestedIdx := len(root.nested) - 1

	dst := c.destReg(scope, hint)
	scope.prog.Emit(IClosure{baseInstr{loc}, byte(dst), uint16(nestedIdx)})
	return Slot{Reg: dst, EnvIndex: -1}, nil
}

func parseParamList(v Value) ([]Symbol, bool, error) {
	var items []Value
	switch p := v.(type) {
	case *Tuple:
		items = p.Items
	case *Array:
		items = p.Items
	default:
		return nil, false, fmt.Errorf("parameter list must be a tuple or array of symbols")
	}
	var params []Symbol
	variadic := false
	for i := 0; i < len(items); i++ {
		sym, ok := items[i].(Symbol)
		if !ok {
			return nil, false, fmt.Errorf("parameter must be a symbol")
		}
		if sym.Name() == "&" {
			if i+1 >= len(items) {
				return nil, false, fmt.Errorf("&-rest requires a following parameter name")
			}
			restSym, ok := items[i+1].(Symbol)
			if !ok {
				return nil, false, fmt.Errorf("rest parameter must be a symbol")
			}
			params = append(params, restSym)
			variadic = true
			break
		}
		params = append(params, sym)
	}
	return params, variadic, nil
}

// compileQuote yields its argument as a literal constant, never
// evaluating it.
func (c *Compiler) compileQuote(scope *Scope, tup *Tuple, hint int, loc SourceLocation) (Slot, *CompileError) {
	if len(tup.Items) != 2 {
		return Slot{}, c.fail(ErrSyntax, loc, "quote requires exactly one argument")
	}
	return c.emitConstant(scope, tup.Items[1], hint, loc)
}

// compileQuasiquote walks its template, evaluating unquote/splice
// forms found at the current nesting depth and otherwise treating the
// structure as quoted data, composing the runtime result with
// make-tuple when any dynamic piece is present.
func (c *Compiler) compileQuasiquote(scope *Scope, tup *Tuple, hint int, loc SourceLocation) (Slot, *CompileError) {
	if len(tup.Items) != 2 {
		return Slot{}, c.fail(ErrSyntax, loc, "quasiquote requires exactly one argument")
	}
	return c.quasiExpand(scope, tup.Items[1], 1, hint, loc)
}

func (c *Compiler) quasiExpand(scope *Scope, v Value, depth int, hint int, loc SourceLocation) (Slot, *CompileError) {
	t, ok := v.(*Tuple)
	if !ok || len(t.Items) == 0 {
		return c.emitConstant(scope, v, hint, loc)
	}
	if headSym, ok := t.Items[0].(Symbol); ok {
		switch headSym.Name() {
		case "unquote":
			if depth == 1 {
				if len(t.Items) != 2 {
					return Slot{}, c.fail(ErrSyntax, loc, "unquote requires exactly one argument")
				}
				return c.compile(scope, t.Items[1], false, hint)
			}
			return c.quasiTupleLiteral(scope, t, depth-1, hint, loc)
		case "quasiquote":
			return c.quasiTupleLiteral(scope, t, depth+1, hint, loc)
		case "splice":
			if depth == 1 {
				return Slot{}, c.fail(ErrSyntax, loc, "splice is only valid as a direct element of a quasiquoted tuple")
			}
		}
	}
	return c.quasiTupleLiteral(scope, t, depth, hint, loc)
}

// quasiItemIsDynamic reports, without compiling anything, whether an
// element of a quasiquoted tuple needs a runtime-built result: a
// direct unquote/splice at the current depth, or any nested tuple
// (conservatively — it may turn out to be purely literal once
// expanded, but treating it as dynamic is always safe, never wrong).
func quasiItemIsDynamic(item Value, depth int) bool {
	it, ok := item.(*Tuple)
	if !ok {
		return false
	}
	if len(it.Items) > 0 && depth == 1 {
		if sym, ok := it.Items[0].(Symbol); ok {
			switch sym.Name() {
			case "unquote", "splice":
				return true
			}
		}
	}
	return true
}

// quasiTupleLiteral builds a tuple at runtime from a template,
// compiling and pushing unquote/splice elements in source order and
// treating everything else as a nested quasiquote expansion. When
// nothing dynamic is found it folds the whole tuple to one constant
// instead, without having emitted any pushes first.
func (c *Compiler) quasiTupleLiteral(scope *Scope, t *Tuple, depth int, hint int, loc SourceLocation) (Slot, *CompileError) {
	anyDynamic := false
	for _, item := range t.Items {
		if quasiItemIsDynamic(item, depth) {
			anyDynamic = true
			break
		}
	}
	if !anyDynamic {
		return c.emitConstant(scope, t, hint, loc)
	}

	count := 0
	for _, item := range t.Items {
		if it, ok := item.(*Tuple); ok && len(it.Items) > 0 && depth == 1 {
			if sym, ok := it.Items[0].(Symbol); ok {
				switch sym.Name() {
				case "unquote":
					s, err := c.compile(scope, it.Items[1], false, -1)
					if err != nil {
						return Slot{}, err
					}
					scope.prog.Emit(IPush{baseInstr{loc}, byte(s.Reg)})
					count++
					continue
				case "splice":
					s, err := c.compile(scope, it.Items[1], false, -1)
					if err != nil {
						return Slot{}, err
					}
					scope.prog.Emit(IPushArray{baseInstr{loc}, byte(s.Reg)})
					count++
					continue
				}
			}
		}
		s, err := c.quasiExpand(scope, item, depth, -1, loc)
		if err != nil {
			return Slot{}, err
		}
		scope.prog.Emit(IPush{baseInstr{loc}, byte(s.Reg)})
		count++
	}
	dst := c.destReg(scope, hint)
	scope.prog.Emit(IMakeTuple{newCtor(OpMakeTuple, loc, byte(dst), byte(count))})
	return Slot{Reg: dst, EnvIndex: -1}, nil
}
