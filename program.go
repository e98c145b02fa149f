package nanolisp

// Program is the emitter's growable instruction vector for one
// function body, plus its label table — the teacher's vm_program.go
// Program adapted to this spec's packed-word format instead of
// variable-width PEG bytecode.
type Program struct {
	instrs []Instruction
	labels map[int]int // label id -> instruction index, once placed
	nextID int
}

// NewProgram creates an empty instruction vector.
func NewProgram() *Program {
	return &Program{labels: make(map[int]int)}
}

// Emit appends an instruction and returns its index.
func (p *Program) Emit(instr Instruction) int {
	p.instrs = append(p.instrs, instr)
	return len(p.instrs) - 1
}

// NewLabel allocates a fresh label id, unplaced until PlaceLabel.
func (p *Program) NewLabel() int {
	id := p.nextID
	p.nextID++
	return id
}

// PlaceLabel records that label now refers to the next instruction to
// be emitted (i.e. the current end of the instruction vector).
func (p *Program) PlaceLabel(label int) {
	p.labels[label] = len(p.instrs)
}

// Len reports how many instructions have been emitted so far.
func (p *Program) Len() int { return len(p.instrs) }

// At returns the instruction at index i.
func (p *Program) At(i int) Instruction { return p.instrs[i] }
