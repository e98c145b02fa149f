package nanolisp

// FuncDefFlags are the funcdef-level flags spec.md §3 names.
type FuncDefFlags uint8

const (
	FuncVariadic FuncDefFlags = 1 << iota
	FuncCapturesEnvironment
)

// FuncDef is the immutable function-definition artifact the compiler
// hands to the VM, per spec.md §3. It is never mutated after
// finalization.
type FuncDef struct {
	Bytecode     []uint32
	SourceMap    []SourceLocation
	Constants    []Value
	Nested       []*FuncDef
	Upvalues     []UpvalueDesc
	SourceName   string
	FunctionName string
	Arity        int
	Flags        FuncDefFlags
	SlotCount    int
}

func (f *FuncDef) IsVariadic() bool           { return f.Flags&FuncVariadic != 0 }
func (f *FuncDef) CapturesEnvironment() bool  { return f.Flags&FuncCapturesEnvironment != 0 }

// finalizeFuncDef pops a function-root scope into its immutable
// FuncDef: bytecode is encoded from the scope's Program, constants and
// nested funcdefs and upvalues are flattened from their growable
// backing slices into fixed arrays, and slot count is read from the
// register allocator's high-water mark — exactly spec.md §4.4's
// "finalization" recipe.
func finalizeFuncDef(scope *Scope, sourceName, functionName string, arity int, variadic bool) (*FuncDef, *CompileError) {
	bc, err := Encode(scope.prog)
	if err != nil {
		return nil, newCompileError(ErrInternal, Location{}, "%s", err.Error())
	}
	var flags FuncDefFlags
	if variadic {
		flags |= FuncVariadic
	}
	if scope.flags&FlagCapturesEnvironment != 0 {
		flags |= FuncCapturesEnvironment
	}
	return &FuncDef{
		Bytecode:     bc.Words,
		SourceMap:    bc.SourceMap,
		Constants:    append([]Value(nil), scope.consts.values...),
		Nested:       append([]*FuncDef(nil), scope.nested...),
		Upvalues:     append([]UpvalueDesc(nil), scope.upvalues...),
		SourceName:   sourceName,
		FunctionName: functionName,
		Arity:        arity,
		Flags:        flags,
		SlotCount:    scope.regs.HighWater(),
	}, nil
}
