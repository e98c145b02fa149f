// Command nanolispc reads a source file, compiles it, and prints the
// resulting bytecode — a thin smoke-test harness around the reader
// and compiler, in the teacher's cmd/ flag-driven style.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/nanolisp/core"
	"github.com/nanolisp/core/debug"
)

type args struct {
	inputPath *string
	astOnly   *bool
	treeOnly  *bool
}

func readArgs() *args {
	a := &args{
		inputPath: flag.String("input", "", "Path to the source file to compile"),
		astOnly:   flag.Bool("ast-only", false, "Print the values read from the source instead of compiling them"),
		treeOnly:  flag.Bool("tree-only", false, "Print the compiled function's nested-closure tree instead of its bytecode"),
	}
	flag.Parse()
	return a
}

func main() {
	a := readArgs()
	if *a.inputPath == "" {
		log.Fatal("missing required -input flag")
	}
	src, err := os.ReadFile(*a.inputPath)
	if err != nil {
		log.Fatal(err)
	}

	r := nanolisp.NewReader()
	r.SetSource(*a.inputPath)
	n, err := r.Consume(src)
	if err != nil {
		log.Fatalf("read error: %s", err)
	}
	if n != len(src) {
		log.Fatalf("read error: stopped at byte %d of %d", n, len(src))
	}
	if err := r.Eof(); err != nil {
		log.Fatalf("read error: %s", err)
	}

	var forms []nanolisp.Value
	for r.HasMore() {
		v, ok := r.Produce()
		if !ok {
			break
		}
		forms = append(forms, v)
	}

	if *a.astOnly {
		for _, v := range forms {
			fmt.Println(v.String())
		}
		return
	}

	if len(forms) == 0 {
		log.Fatal("source produced no forms to compile")
	}
	env := nanolisp.NewEnv()
	source := forms[0]
	if len(forms) > 1 {
		source = wrapInDo(forms)
	}

	fd, cerr := nanolisp.Compile(source, env, *a.inputPath, noopVM{})
	if cerr != nil {
		log.Fatalf("compile error: %s", cerr)
	}
	if *a.treeOnly {
		fmt.Print(debug.FuncDefTree(fd))
		return
	}
	fmt.Print(nanolisp.Disassemble(fd))
}

// wrapInDo threads multiple top-level forms through a single implicit
// `do`, since Compile's entry point takes exactly one value.
func wrapInDo(forms []nanolisp.Value) nanolisp.Value {
	synth := nanolisp.NewInternTable()
	items := append([]nanolisp.Value{synth.Symbol("do")}, forms...)
	return nanolisp.NewTuple(items, 0, 0)
}

// noopVM rejects every macro call: this CLI is a bytecode smoke test,
// not a host for user-defined macros.
type noopVM struct{}

func (noopVM) Call(nanolisp.Value, []nanolisp.Value) (nanolisp.Value, *nanolisp.MacroFiber, error) {
	return nil, nil, fmt.Errorf("macro expansion is not supported by this command")
}
