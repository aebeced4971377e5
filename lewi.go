// Package lewi is the embedding façade over the lex/parse/compile/run
// pipeline: a host program that wants to run lewi source needs nothing
// from internal/* directly, just the four functions below.
package lewi

import (
	"github.com/kristofer/lewi/internal/ast"
	"github.com/kristofer/lewi/internal/bytecode"
	"github.com/kristofer/lewi/internal/compiler"
	"github.com/kristofer/lewi/internal/hostmodule"
	"github.com/kristofer/lewi/internal/parser"
	"github.com/kristofer/lewi/internal/stdlib"
	"github.com/kristofer/lewi/internal/value"
	"github.com/kristofer/lewi/internal/vm"
)

// RunSource parses, compiles, and runs source in one call — the fast
// path for a program that runs exactly once. name is accepted for the
// caller to label the source, but it is not used: it appears in no
// diagnostic and is not passed past RunAST.
func RunSource(source, name string) (value.Value, error) {
	prog, err := parser.New(source).Parse()
	if err != nil {
		return nil, err
	}
	return RunAST(prog, name)
}

// RunAST compiles and runs an already-parsed program.
func RunAST(prog *ast.Program, name string) (value.Value, error) {
	code, err := Compile(prog)
	if err != nil {
		return nil, err
	}
	return RunCode(code)
}

// Compile lowers prog to bytecode with the reserved built-in names
// (internal/stdlib.Names) pre-declared at their well-known global
// slots, so RunCode's stdlib.Install lines up with what the compiled
// Code actually expects at slots 0..len(Names)-1.
func Compile(prog *ast.Program) (*bytecode.Code, error) {
	return compiler.CompileWithReserved(prog, stdlib.Names)
}

// RunCode runs a compiled Code object on a fresh VM, with the reserved
// built-ins installed and a host dynamic-library loader wired in for
// ImportDll. Each call gets its own VM, so concurrent calls never share
// global state; a caller that wants global state to persist across
// several inputs (a REPL) should build its own VM via internal/vm and
// internal/stdlib directly instead of calling RunCode repeatedly.
func RunCode(code *bytecode.Code) (value.Value, error) {
	m := vm.New(hostmodule.NewLoader())
	stdlib.Install(m)
	return m.Run(code)
}
