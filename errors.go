package nanolisp

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// ErrorKind enumerates the error taxonomy from spec.md §7.
type ErrorKind int

const (
	ErrLex ErrorKind = iota
	ErrSyntax
	ErrUTF8
	ErrUnknownSymbol
	ErrRecursionDepth
	ErrMacro
	ErrOverflow
	ErrInternal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrLex:
		return "lex-error"
	case ErrSyntax:
		return "syntax-error"
	case ErrUTF8:
		return "utf8-error"
	case ErrUnknownSymbol:
		return "unknown-symbol"
	case ErrRecursionDepth:
		return "recursion-depth"
	case ErrMacro:
		return "macro-error"
	case ErrOverflow:
		return "overflow-error"
	case ErrInternal:
		return "internal"
	default:
		return "unknown-error"
	}
}

// ReadError is the single error type the reader ever latches. Once set
// it is returned verbatim until Flush() is called, per spec.md's
// "first error latches" rule.
type ReadError struct {
	Kind    ErrorKind
	Message string
	Loc     Location
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: %s @ %s", e.Kind, e.Message, e.Loc)
}

func newReadError(kind ErrorKind, loc Location, format string, args ...any) *ReadError {
	return &ReadError{Kind: kind, Message: fmt.Sprintf(format, args...), Loc: loc}
}

// CompileError is the single-shot compile error surfaced by
// Compile(). Once a compile step produces one, every subsequent step in
// the same compilation must return the identical value (spec.md §7's
// "error latching" property).
type CompileError struct {
	Kind    ErrorKind
	Message string
	Loc     Location
	// Fiber carries a macro-expansion traceback when Kind is
	// ErrMacro. It is a lightweight textual substitute for the real
	// VM fiber spec.md's design notes describe: an externally
	// owned call stack this package never interprets, only
	// forwards.
	Fiber *MacroFiber
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s @ %s", e.Kind, e.Message, e.Loc)
}

func newCompileError(kind ErrorKind, loc Location, format string, args ...any) *CompileError {
	return &CompileError{Kind: kind, Message: fmt.Sprintf(format, args...), Loc: loc}
}

// MacroFiber is the traceback attached to a macro-expansion error. Each
// frame names the macro whose expansion was in flight when the VM
// reported the error. ID is a synthetic, process-unique identifier so
// two macro errors produced during the same compile are distinguishable
// even without a real fiber object to point at.
type MacroFiber struct {
	ID     string
	Frames []string
}

func overflowMessage(kind string, limit int) string {
	return fmt.Sprintf("too many %s: limit is %s", kind, humanize.Comma(int64(limit)))
}
