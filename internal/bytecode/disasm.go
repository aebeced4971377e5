package bytecode

import (
	"fmt"
	"math"
	"strings"

	"github.com/kristofer/lewi/internal/value"
)

// Disassemble renders a textual dump of c's top-level instructions, one
// line per slot: `slot\topcode\toperand-decoded-if-any`. Jump operands
// print as `delta -> absolute-target-slot` (spec.md §6). Nested function
// frames reached through the globals vector are dumped after the
// top-level stream. This format is diagnostic only — see format.go's
// .lewic for the load/store format.
func Disassemble(c *Code) string {
	var b strings.Builder
	disassembleInto(&b, c.Instructions)
	for i, g := range c.Globals {
		fn, ok := g.(*value.Function)
		if !ok {
			continue
		}
		frame, ok := fn.Proc.(*Frame)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n; global[%d] = frame %q (%d params, %d locals)\n", i, frame.FrameName, frame.NumParams, frame.NumLocals)
		disassembleInto(&b, frame.Code)
	}
	return b.String()
}

func disassembleInto(b *strings.Builder, instrs []Instruction) {
	for slot, ins := range instrs {
		fmt.Fprintf(b, "%d\t%s", slot, ins.Op)
		switch ins.Op {
		case PushReal:
			fmt.Fprintf(b, "\t%v", math.Float64frombits(uint64(ins.Operand)))
		case Jump, JumpIfTrue, JumpIfFalse, ForLoop:
			fmt.Fprintf(b, "\t%d -> %d", ins.Operand, int64(slot)+ins.Operand)
		case UnaryOp:
			fmt.Fprintf(b, "\t%s", UnaryKind(ins.Operand))
		case PushBool, PushGlobal, PushEmptyClass, LoadGlobal, StoreGlobal, Load, Store, MakeArray, Call:
			fmt.Fprintf(b, "\t%d", ins.Operand)
		}
		b.WriteByte('\n')
	}
}
