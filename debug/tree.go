// Package debug renders reader and compiler internal state as trees,
// for diagnostics and REPL introspection. It depends only on the
// public ReaderState/FuncDef surface of the nanolisp package, never on
// its unexported internals.
package debug

import (
	"fmt"

	"github.com/xlab/treeprint"

	"github.com/nanolisp/core"
)

// ReaderStateTree renders a reader.State() snapshot as a tree: one
// branch per open frame, innermost frame deepest, with its buffered
// text and pending-item count in the branch label.
func ReaderStateTree(st nanolisp.ReaderState) string {
	root := treeprint.New()
	root.SetValue(fmt.Sprintf("reader (delimiters to close: %q)", st.Delimiters))
	cur := root
	for i := 0; i < len(st.Frames); i++ {
		f := st.Frames[i]
		label := fmt.Sprintf("%s @ %d:%d", f.Type, f.Line, f.Column)
		if f.Buffer != "" {
			label += fmt.Sprintf(" buf=%q", f.Buffer)
		}
		if len(f.Pending) > 0 {
			label += fmt.Sprintf(" pending=%d", len(f.Pending))
		}
		cur = cur.AddBranch(label)
	}
	return root.String()
}

// FuncDefTree renders a compiled FuncDef's nested-closure structure,
// without decoding bytecode (see Disassemble for that).
func FuncDefTree(fd *nanolisp.FuncDef) string {
	root := treeprint.New()
	addFuncDefBranch(root, fd)
	return root.String()
}

func addFuncDefBranch(parent treeprint.Tree, fd *nanolisp.FuncDef) {
	name := fd.FunctionName
	if name == "" {
		name = "<anonymous>"
	}
	node := parent.AddBranch(fmt.Sprintf("%s (arity %d, slots %d, upvalues %d)", name, fd.Arity, fd.SlotCount, len(fd.Upvalues)))
	for _, nested := range fd.Nested {
		addFuncDefBranch(node, nested)
	}
}
