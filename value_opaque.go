package nanolisp

import (
	"fmt"
	"unsafe"
)

// Function is a closure over a FuncDef plus the upvalue environments
// it captured at creation time. Compared by reference identity.
type Function struct {
	Def     *FuncDef
	Upvals  []*Array
}

func (*Function) Kind() Kind { return KindFunction }

func (f *Function) String() string {
	name := f.Def.FunctionName
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("<function %s>", name)
}

func (f *Function) Equal(o Value) bool {
	other, ok := o.(*Function)
	return ok && f == other
}

func (f *Function) Compare(o Value) int {
	other, ok := o.(*Function)
	if !ok {
		return compareByKind(f, o)
	}
	if f == other {
		return 0
	}
	return ptrOrder(unsafe.Pointer(f), unsafe.Pointer(other))
}

// CFunction wraps a host (Go-native) callable exposed to compiled
// code, e.g. environment-provided macros and intrinsics.
type CFunction struct {
	Name string
	Fn   func(args []Value) (Value, error)
}

func NewCFunction(name string, fn func([]Value) (Value, error)) *CFunction {
	return &CFunction{Name: name, Fn: fn}
}

func (*CFunction) Kind() Kind       { return KindCFunction }
func (c *CFunction) String() string { return fmt.Sprintf("<cfunction %s>", c.Name) }

func (c *CFunction) Equal(o Value) bool {
	other, ok := o.(*CFunction)
	return ok && c == other
}

func (c *CFunction) Compare(o Value) int {
	other, ok := o.(*CFunction)
	if !ok {
		return compareByKind(c, o)
	}
	if c == other {
		return 0
	}
	return ptrOrder(unsafe.Pointer(c), unsafe.Pointer(other))
}

// Abstract is an opaque host value the compiler treats as an
// uninspectable leaf constant (e.g. a handle owned by a standard
// library binding, out of this package's scope per spec.md §1).
type Abstract struct {
	Tag  string
	Data any
}

func NewAbstract(tag string, data any) *Abstract { return &Abstract{Tag: tag, Data: data} }

func (*Abstract) Kind() Kind       { return KindAbstract }
func (a *Abstract) String() string { return fmt.Sprintf("<%s>", a.Tag) }

func (a *Abstract) Equal(o Value) bool {
	other, ok := o.(*Abstract)
	return ok && a == other
}

func (a *Abstract) Compare(o Value) int {
	other, ok := o.(*Abstract)
	if !ok {
		return compareByKind(a, o)
	}
	if a == other {
		return 0
	}
	return ptrOrder(unsafe.Pointer(a), unsafe.Pointer(other))
}

// Fiber represents a suspended VM execution context. The core never
// executes one (the interpreter is out of scope, spec.md §1) but
// needs the kind to exist so macro-expansion errors can carry one for
// traceback purposes and so fiber-valued constants can flow through
// compiled code untouched.
type Fiber struct {
	Traceback *MacroFiber
}

func NewFiber(tb *MacroFiber) *Fiber { return &Fiber{Traceback: tb} }

func (*Fiber) Kind() Kind       { return KindFiber }
func (f *Fiber) String() string { return "<fiber>" }

func (f *Fiber) Equal(o Value) bool {
	other, ok := o.(*Fiber)
	return ok && f == other
}

func (f *Fiber) Compare(o Value) int {
	other, ok := o.(*Fiber)
	if !ok {
		return compareByKind(f, o)
	}
	if f == other {
		return 0
	}
	return ptrOrder(unsafe.Pointer(f), unsafe.Pointer(other))
}
