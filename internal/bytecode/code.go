package bytecode

import "github.com/kristofer/lewi/internal/value"

// Instruction is a single (opcode, operand) pair. The operand's meaning
// depends on Op: an unsigned slot/constant index, a signed jump delta
// relative to the instruction's own slot, a packed UnaryKind, or the raw
// bits of a float64 (PushReal only — use math.Float64bits/Float64frombits
// to round-trip it).
type Instruction struct {
	Op      Opcode
	Operand int64
}

// Frame is an immutable bundle of compiled code representing one
// function body: its bytecode, its declared name ("" for a lambda), its
// parameter count, and the number of local slots its frame needs
// (Glossary: "Frame"). Frame implements value.CompiledProc so a
// value.Function can carry one without the value package depending on
// bytecode.
type Frame struct {
	FrameName string
	NumParams int
	NumLocals int
	Code      []Instruction
}

// Name satisfies value.CompiledProc.
func (f *Frame) Name() string { return f.FrameName }

// Arity satisfies value.CompiledProc.
func (f *Frame) Arity() int { return f.NumParams }

// Code is the top-level compiled object a Compiler produces: a globals
// vector of constants (string literals and nested function Frames,
// wrapped as value.Function) referenced by PushGlobal, and the
// top-level instruction stream (Glossary: "Code").
type Code struct {
	Globals      []value.Value
	Instructions []Instruction
	NumGlobalVars int // count of VM-owned top-level variable slots this Code declares
}
