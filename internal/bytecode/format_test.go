package bytecode

import (
	"bytes"
	"testing"

	"github.com/kristofer/lewi/internal/value"
)

func sampleCode() *Code {
	inner := &Frame{
		FrameName: "double",
		NumParams: 1,
		NumLocals: 1,
		Code: []Instruction{
			{Op: Load, Operand: 0},
			{Op: Load, Operand: 0},
			{Op: Add},
			{Op: ReturnExpr},
		},
	}
	return &Code{
		Globals: []value.Value{
			value.NewString("hello"),
			value.NewFunction(inner),
		},
		NumGlobalVars: 1,
		Instructions: []Instruction{
			{Op: PushGlobal, Operand: 0},
			{Op: StoreGlobal, Operand: 0},
			{Op: PushReal, Operand: 0},
			{Op: JumpIfFalse, Operand: 2},
			{Op: Jump, Operand: 1},
			{Op: Halt},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := sampleCode()

	var buf bytes.Buffer
	if err := Encode(original, &buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if len(decoded.Instructions) != len(original.Instructions) {
		t.Fatalf("instruction count = %d, want %d", len(decoded.Instructions), len(original.Instructions))
	}
	for i, ins := range decoded.Instructions {
		if ins != original.Instructions[i] {
			t.Errorf("instruction[%d] = %+v, want %+v", i, ins, original.Instructions[i])
		}
	}

	if decoded.NumGlobalVars != original.NumGlobalVars {
		t.Errorf("NumGlobalVars = %d, want %d", decoded.NumGlobalVars, original.NumGlobalVars)
	}

	if len(decoded.Globals) != 2 {
		t.Fatalf("globals count = %d, want 2", len(decoded.Globals))
	}
	str, ok := decoded.Globals[0].(*value.String)
	if !ok || str.Val != "hello" {
		t.Errorf("globals[0] = %#v, want String(hello)", decoded.Globals[0])
	}
	fn, ok := decoded.Globals[1].(*value.Function)
	if !ok {
		t.Fatalf("globals[1] = %#v, want *value.Function", decoded.Globals[1])
	}
	frame, ok := fn.Proc.(*Frame)
	if !ok || frame.FrameName != "double" || frame.NumParams != 1 || len(frame.Code) != 4 {
		t.Errorf("decoded frame = %#v, want double/1/4 instructions", frame)
	}
}

func TestJumpArithmetic(t *testing.T) {
	code := sampleCode()
	for slot, ins := range code.Instructions {
		switch ins.Op {
		case Jump, JumpIfTrue, JumpIfFalse, ForLoop:
			target := int64(slot) + ins.Operand
			if target < 0 || target > int64(len(code.Instructions)) {
				t.Errorf("slot %d: jump target %d out of range", slot, target)
			}
		}
	}
}

func TestDisassembleRendersJumpTargets(t *testing.T) {
	out := Disassemble(sampleCode())
	if !bytes.Contains([]byte(out), []byte("-> 5")) {
		t.Errorf("expected disassembly to decode JumpIfFalse's absolute target, got:\n%s", out)
	}
	if !bytes.Contains([]byte(out), []byte("global[1] = frame \"double\"")) {
		t.Errorf("expected disassembly to recurse into the nested frame, got:\n%s", out)
	}
}
