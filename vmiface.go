package nanolisp

import "github.com/google/uuid"

// VMCaller is the cyclic-reference seam spec.md §9 describes: the
// compiler must invoke user-defined macros during expansion, but the
// VM that runs them is out of this package's scope. The compiler only
// ever consumes this interface; it never constructs a VM.
type VMCaller interface {
	// Call invokes callable with args and returns its result. A macro
	// that signals an error returns a non-nil error and, when the
	// error originated inside a running fiber, a non-nil traceback.
	Call(callable Value, args []Value) (Value, *MacroFiber, error)
}

// newMacroFiber stamps a fresh synthetic traceback id for a macro
// invocation, so two macro errors raised during the same compile are
// distinguishable even though no real VM fiber exists yet to point at.
func newMacroFiber(macroName string) *MacroFiber {
	return &MacroFiber{ID: uuid.NewString(), Frames: []string{macroName}}
}
