package vm

import (
	"github.com/kristofer/lewi/internal/bytecode"
	"github.com/kristofer/lewi/internal/value"
)

// callFrame is one activation of a Frame: its own instruction pointer,
// its own operand stack, and its own local-variable slots. Frames never
// share an operand stack — a call pushes a fresh one rather than
// continuing to grow the caller's, so a callee can never read or
// corrupt a value the caller left sitting below the call site.
type callFrame struct {
	name   string
	code   []bytecode.Instruction
	ip     int
	locals []value.Value
	stack  []value.Value
}

func newCallFrame(name string, code []bytecode.Instruction, numLocals int) *callFrame {
	return &callFrame{
		name:   name,
		code:   code,
		locals: make([]value.Value, numLocals),
		stack:  make([]value.Value, 0, 8),
	}
}

func (f *callFrame) push(v value.Value) { f.stack = append(f.stack, v) }

func (f *callFrame) pop() value.Value {
	n := len(f.stack) - 1
	v := f.stack[n]
	f.stack = f.stack[:n]
	return v
}

func (f *callFrame) top() value.Value { return f.stack[len(f.stack)-1] }
