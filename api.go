package nanolisp

// Compile is this package's compiler entry point: it compiles one
// already-read value into a top-level FuncDef, threading macro
// expansion through vm and name resolution through env, per
// SPEC_FULL.md §6's declared signature.
func Compile(source Value, env *Env, sourceName string, vm VMCaller) (*FuncDef, *CompileError) {
	return CompileWithConfig(source, env, sourceName, vm, NewCompilerConfig())
}

// CompileWithConfig is Compile with an explicit, caller-owned
// CompilerConfig, for hosts that want to tune the recursion and
// macro-expansion limits. Those two are the only settings the compiler
// reads; source mapping is always emitted, whatever
// "compiler.source_map" holds.
func CompileWithConfig(source Value, env *Env, sourceName string, vm VMCaller, cfg *CompilerConfig) (*FuncDef, *CompileError) {
	if env == nil {
		env = NewEnv()
	}
	if cfg == nil {
		cfg = NewCompilerConfig()
	}
	c := newCompiler(env, vm, sourceName, cfg)
	scope := newTopLevelScope()

	if _, err := c.compile(scope, source, true, -1); err != nil {
		return nil, err
	}
	if c.err != nil {
		return nil, c.err
	}
	return finalizeFuncDef(scope, sourceName, "", 0, false)
}
