package nanolisp

import "fmt"

// Bytecode is the final, immutable artifact Encode produces: a packed
// array of little-endian 32-bit instruction words and a parallel
// source map, per spec.md §6's wire contract.
type Bytecode struct {
	Words     []uint32
	SourceMap []SourceLocation
}

func packOp(op Opcode, a, b, c byte) uint32 {
	return uint32(op) | uint32(a)<<8 | uint32(b)<<16 | uint32(c)<<24
}

func packOpImm16(op Opcode, reg byte, imm int16) uint32 {
	return uint32(op) | uint32(reg)<<8 | uint32(uint16(imm))<<16
}

func packOpIdx16(op Opcode, reg byte, idx uint16) uint32 {
	return uint32(op) | uint32(reg)<<8 | uint32(idx)<<16
}

// Encode lowers a Program's instruction objects to the final packed
// word array, resolving every jump label to a word-count offset
// relative to the instruction after the jump — the teacher's
// vm_encoder.go two-pass "labels known, then encode" pipeline, adapted
// to fixed-width words instead of byte-oriented PEG opcodes.
func Encode(p *Program) (*Bytecode, error) {
	bc := &Bytecode{
		Words:     make([]uint32, 0, p.Len()),
		SourceMap: make([]SourceLocation, 0, p.Len()),
	}
	for i, instr := range p.instrs {
		idx := i
		resolve := func(label int) (int32, bool) {
			target, ok := p.labels[label]
			if !ok {
				return 0, false
			}
			return int32(target - (idx + 1)), true
		}
		word, ok := instr.encode(resolve)
		if !ok {
			return nil, fmt.Errorf("unresolved jump label in instruction %d (%s)", i, instr.Name())
		}
		bc.Words = append(bc.Words, word)
		bc.SourceMap = append(bc.SourceMap, instr.SourceLocation())
	}
	return bc, nil
}
