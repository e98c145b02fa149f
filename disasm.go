package nanolisp

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/nanolisp/core/ascii"
)

// Disassemble renders a FuncDef's bytecode as human-readable text,
// one instruction per line, grounded on the teacher's disassembler
// convention of a gutter column (offset) followed by a mnemonic and
// decoded operands. Nested function definitions are rendered
// recursively, indented one level, after the parent's full listing.
func Disassemble(fd *FuncDef) string {
	var b strings.Builder
	disasmFuncDef(&b, fd, 0)
	return b.String()
}

func disasmFuncDef(b *strings.Builder, fd *FuncDef, indent int) {
	pad := strings.Repeat("  ", indent)
	name := fd.FunctionName
	if name == "" {
		name = "<anonymous>"
	}
	fmt.Fprintf(b, "%s%s (arity %d%s, slots %d)\n", pad, ascii.Color(ascii.DefaultTheme.Accent, "%s", name), fd.Arity, variadicSuffix(fd), fd.SlotCount)

	gutterWidth := len(fmt.Sprintf("%d", len(fd.Bytecode)))
	for i, word := range fd.Bytecode {
		op := Opcode(word & 0xff)
		a := byte((word >> 8) & 0xff)
		bb := byte((word >> 16) & 0xff)
		c := byte((word >> 24) & 0xff)
		offset := fmt.Sprintf("%d", i)
		gutter := offset + strings.Repeat(" ", max0(gutterWidth-runewidth.StringWidth(offset)))
		loc := ""
		if i < len(fd.SourceMap) {
			loc = fd.SourceMap[i].String()
		}
		fmt.Fprintf(b, "%s%s  %-14s %s\n", pad, ascii.Color(ascii.DefaultTheme.Muted, "%s", gutter), ascii.Color(ascii.DefaultTheme.Operator, "%s", op.String()), decodeOperands(op, a, bb, c, loc))
	}
	for _, nested := range fd.Nested {
		disasmFuncDef(b, nested, indent+1)
	}
}

func variadicSuffix(fd *FuncDef) string {
	if fd.IsVariadic() {
		return "+"
	}
	return ""
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// decodeOperands formats an instruction's packed fields in the shape
// that best matches how it was encoded: a 16-bit immediate/index for
// the load-integer/load-constant/closure/jump family, three small
// register/byte fields otherwise.
func decodeOperands(op Opcode, a, b, c byte, loc string) string {
	operand := ascii.Color(ascii.DefaultTheme.Operand, "%s", fmt.Sprintf("r%d r%d r%d", a, b, c))
	switch op {
	case OpLoadInt:
		imm := int16(uint16(b) | uint16(c)<<8)
		operand = fmt.Sprintf("r%d %s", a, ascii.Color(ascii.DefaultTheme.Literal, "%d", imm))
	case OpLoadConstant, OpClosure:
		idx := uint16(b) | uint16(c)<<8
		operand = fmt.Sprintf("r%d #%d", a, idx)
	case OpJump:
		off := int16(uint16(b) | uint16(c)<<8)
		operand = ascii.Color(ascii.DefaultTheme.Span, "%+d", off)
	case OpJumpIf, OpJumpIfNot:
		off := int16(uint16(b) | uint16(c)<<8)
		operand = fmt.Sprintf("r%d %s", a, ascii.Color(ascii.DefaultTheme.Span, "%+d", off))
	case OpLoadNil, OpLoadTrue, OpLoadFalse, OpLoadSelf, OpReturn:
		operand = fmt.Sprintf("r%d", a)
	case OpHalt:
		operand = ""
	}
	if loc != "" {
		return operand + "  " + ascii.Color(ascii.DefaultTheme.Comment, "; %s", loc)
	}
	return operand
}
