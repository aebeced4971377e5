package compiler

import (
	"testing"

	"github.com/kristofer/lewi/internal/bytecode"
	"github.com/kristofer/lewi/internal/parser"
	"github.com/kristofer/lewi/internal/value"
)

func mustCompile(t *testing.T, src string) *bytecode.Code {
	t.Helper()
	prog, err := parser.New(src).Parse()
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	code, err := Compile(prog)
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	return code
}

func opsOf(instrs []bytecode.Instruction) []bytecode.Opcode {
	ops := make([]bytecode.Opcode, len(instrs))
	for i, ins := range instrs {
		ops[i] = ins.Op
	}
	return ops
}

func assertOps(t *testing.T, got []bytecode.Instruction, want ...bytecode.Opcode) {
	t.Helper()
	gotOps := opsOf(got)
	if len(gotOps) != len(want) {
		t.Fatalf("opcode count = %d, want %d\ngot:  %v\nwant: %v", len(gotOps), len(want), gotOps, want)
	}
	for i := range want {
		if gotOps[i] != want[i] {
			t.Errorf("opcode[%d] = %s, want %s\ngot:  %v\nwant: %v", i, gotOps[i], want[i], gotOps, want)
		}
	}
}

func TestFinalExprStmtSurvivesWithoutPop(t *testing.T) {
	code := mustCompile(t, "var a = 50\na")
	// var a = 50 -> PushReal, StoreGlobal, Pop; then bare "a" -> LoadGlobal (kept, no trailing Pop); Halt.
	assertOps(t, code.Instructions,
		bytecode.PushReal, bytecode.StoreGlobal, bytecode.Pop,
		bytecode.LoadGlobal, bytecode.Halt)
}

func TestNonFinalExprStmtGetsPopped(t *testing.T) {
	code := mustCompile(t, "1\n2")
	assertOps(t, code.Instructions,
		bytecode.PushReal, bytecode.Pop,
		bytecode.PushReal,
		bytecode.Halt)
}

func TestEmptyProgramPushesNull(t *testing.T) {
	code := mustCompile(t, "")
	assertOps(t, code.Instructions, bytecode.PushNull, bytecode.Halt)
}

func TestBinaryOperatorOrderAndOpcode(t *testing.T) {
	code := mustCompile(t, "1 < 2")
	assertOps(t, code.Instructions, bytecode.PushReal, bytecode.PushReal, bytecode.LT, bytecode.Halt)
}

func TestAssignToIndexPushOrder(t *testing.T) {
	code := mustCompile(t, "var a = [1]\na[0] = 2")
	// a[0] = 2: push value(2), push key(0), push target(a) then AccessAssign.
	// [var a=[1] -> PushReal, MakeArray, StoreGlobal, Pop]
	// [a[0]=2 (kept, final stmt) -> PushReal(2), PushReal(0), LoadGlobal(a), AccessAssign]
	assertOps(t, code.Instructions,
		bytecode.PushReal, bytecode.MakeArray, bytecode.StoreGlobal, bytecode.Pop,
		bytecode.PushReal, bytecode.PushReal, bytecode.LoadGlobal, bytecode.AccessAssign,
		bytecode.Halt)
}

func TestMemberAssignUsesAccessMemberAssignNotMakeMember(t *testing.T) {
	code := mustCompile(t, "fn f(): end\nf.x = 1")
	found := false
	for _, ins := range code.Instructions {
		if ins.Op == bytecode.AccessMemberAssign {
			found = true
		}
		if ins.Op == bytecode.MakeMember {
			t.Errorf("member assignment outside a class body must not emit MakeMember")
		}
	}
	if !found {
		t.Errorf("expected an AccessMemberAssign instruction, got %v", opsOf(code.Instructions))
	}
}

func TestClassDeclEmitsMakeMemberPerMember(t *testing.T) {
	code := mustCompile(t, "class Point:\n  x = 0\n  y = 0\nend")
	count := 0
	for _, ins := range code.Instructions {
		if ins.Op == bytecode.MakeMember {
			count++
		}
	}
	if count != 2 {
		t.Errorf("MakeMember count = %d, want 2 (one per member)", count)
	}
}

func TestNamedFunctionCanRecurse(t *testing.T) {
	src := `fn fib(n):
  if n < 2:
    return n
  end
  return fib(n - 1) + fib(n - 2)
end
fib(7)`
	code := mustCompile(t, src)
	// Recursion is checked structurally: fib's own compiled frame must
	// contain a Call instruction (the recursive call to itself).
	var frame *bytecode.Frame
	for _, g := range code.Globals {
		fn, ok := g.(*value.Function)
		if !ok {
			continue
		}
		if f, ok := fn.Proc.(*bytecode.Frame); ok && f.FrameName == "fib" {
			frame = f
		}
	}
	if frame == nil {
		t.Fatalf("no compiled frame named fib found in globals")
	}
	foundCall := false
	for _, ins := range frame.Code {
		if ins.Op == bytecode.Call {
			foundCall = true
		}
	}
	if !foundCall {
		t.Errorf("fib's body has no Call instruction; recursion would be impossible")
	}
}

func TestBreakOutsideLoopIsCompileError(t *testing.T) {
	prog, err := parser.New("if true:\n  break\nend").Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := Compile(prog); err == nil {
		t.Fatalf("expected a compile error for break outside a loop")
	}
}

func TestBreakInsideIfInsideWhileIsLegal(t *testing.T) {
	src := `var x = 0
while true:
  x = x + 1
  if x > 5:
    break
  end
end
x`
	if _, err := parser.New(src).Parse(); err != nil {
		t.Fatalf("parse: %v", err)
	}
	code := mustCompile(t, src)
	if code == nil {
		t.Fatalf("expected successful compile")
	}
}

func TestReturnInsideForInsideFunctionIsLegal(t *testing.T) {
	src := `fn firstOver(items, limit):
  for it in items:
    if it > limit:
      return it
    end
  end
  return null
end
firstOver([1, 2, 3], 1)`
	mustCompile(t, src)
}

func TestContinueOutsideLoopIsCompileError(t *testing.T) {
	prog, err := parser.New("fn f():\n  continue\nend").Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := Compile(prog); err == nil {
		t.Fatalf("expected a compile error for continue outside a loop")
	}
}

func TestUnresolvedIdentifierIsCompileError(t *testing.T) {
	prog, err := parser.New("notDeclared").Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := Compile(prog); err == nil {
		t.Fatalf("expected an unresolved-identifier compile error")
	}
}

func TestForLoopReloadsIteratorFromHiddenSlot(t *testing.T) {
	// At top level the hidden iterator slot is a global, so the reload
	// before each ForLoop is a LoadGlobal.
	code := mustCompile(t, "for x in [1, 2, 3]:\n  x\nend")
	loadBeforeForLoop := false
	for i, ins := range code.Instructions {
		if ins.Op == bytecode.ForLoop && i > 0 && code.Instructions[i-1].Op == bytecode.LoadGlobal {
			loadBeforeForLoop = true
		}
	}
	if !loadBeforeForLoop {
		t.Errorf("expected a LoadGlobal immediately before ForLoop (hidden-slot reload), got %v", opsOf(code.Instructions))
	}
}

// mustCompileProgram is mustCompile's incremental-session counterpart:
// it reuses the given Compiler instead of building a fresh one, the
// shape a REPL driver calls CompileProgram in.
func mustCompileProgram(t *testing.T, c *Compiler, src string) *bytecode.Code {
	t.Helper()
	prog, err := parser.New(src).Parse()
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	code, err := c.CompileProgram(prog)
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	return code
}

// TestCompileProgramReturnsOnlyTheNewSuffix guards against a prior bug
// where the second and later CompileProgram calls on the same Compiler
// returned the whole accumulated instruction buffer — including every
// earlier call's trailing Halt — so a VM given that Code would run from
// instruction 0 and stop at the first Halt, re-executing line one
// forever instead of the new line.
func TestCompileProgramReturnsOnlyTheNewSuffix(t *testing.T) {
	c := New()

	first := mustCompileProgram(t, c, "var a = 1")
	if got := opsOf(first.Instructions); len(got) == 0 {
		t.Fatalf("first call produced no instructions")
	}
	firstHalts := countOp(first.Instructions, bytecode.Halt)
	if firstHalts != 1 {
		t.Fatalf("first call: got %d Halt instructions, want exactly 1", firstHalts)
	}

	second := mustCompileProgram(t, c, "a + 1")
	secondHalts := countOp(second.Instructions, bytecode.Halt)
	if secondHalts != 1 {
		t.Fatalf("second call: got %d Halt instructions, want exactly 1 (not the accumulated total)", secondHalts)
	}
	for _, ins := range second.Instructions {
		if ins.Op == bytecode.Store || ins.Op == bytecode.StoreGlobal {
			t.Errorf("second call's instructions include %s, suggesting it replayed the first call's statement", ins.Op)
		}
	}
}

func countOp(instrs []bytecode.Instruction, op bytecode.Opcode) int {
	n := 0
	for _, ins := range instrs {
		if ins.Op == op {
			n++
		}
	}
	return n
}
