package vm

import (
	"testing"

	"github.com/kristofer/lewi/internal/compiler"
	"github.com/kristofer/lewi/internal/parser"
	"github.com/kristofer/lewi/internal/value"
)

func mustRun(t *testing.T, src string) value.Value {
	t.Helper()
	prog, err := parser.New(src).Parse()
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	code, err := compiler.Compile(prog)
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	result, err := New(nil).Run(code)
	if err != nil {
		t.Fatalf("run %q: %v", src, err)
	}
	return result
}

func TestNumberLiteral(t *testing.T) {
	got := mustRun(t, "42")
	n, ok := got.(*value.Number)
	if !ok || n.Val != 42 {
		t.Errorf("got %#v, want Number(42)", got)
	}
}

func TestStringLiteral(t *testing.T) {
	got := mustRun(t, `"hello"`)
	s, ok := got.(*value.String)
	if !ok || s.Val != "hello" {
		t.Errorf("got %#v, want String(hello)", got)
	}
}

func TestBooleanLiterals(t *testing.T) {
	for _, tt := range []struct {
		src  string
		want bool
	}{
		{"true", true},
		{"false", false},
	} {
		got := mustRun(t, tt.src)
		b, ok := got.(*value.Boolean)
		if !ok || b.Val != tt.want {
			t.Errorf("%q: got %#v, want Boolean(%v)", tt.src, got, tt.want)
		}
	}
}

func TestArithmetic(t *testing.T) {
	for _, tt := range []struct {
		src  string
		want float64
	}{
		{"1 + 2", 3},
		{"10 - 4", 6},
		{"3 * 4", 12},
		{"10 / 4", 2.5},
		{"2 + 3 * 4", 14},
	} {
		got := mustRun(t, tt.src)
		n, ok := got.(*value.Number)
		if !ok || n.Val != tt.want {
			t.Errorf("%q: got %#v, want Number(%v)", tt.src, got, tt.want)
		}
	}
}

func TestComparisonAndBooleanCoercion(t *testing.T) {
	got := mustRun(t, "1 < 2")
	b, ok := got.(*value.Boolean)
	if !ok || !b.Val {
		t.Errorf("got %#v, want Boolean(true)", got)
	}
	got = mustRun(t, "true + 1")
	n, ok := got.(*value.Number)
	if !ok || n.Val != 2 {
		t.Errorf("true + 1: got %#v, want Number(2)", got)
	}
}

func TestVariableAssignmentReturnsValue(t *testing.T) {
	got := mustRun(t, "var a = 5\na = a + 1")
	n, ok := got.(*value.Number)
	if !ok || n.Val != 6 {
		t.Errorf("got %#v, want Number(6)", got)
	}
}

func TestIfElseTakesTrueBranch(t *testing.T) {
	got := mustRun(t, "var x = 10\nvar r = 0\nif x > 5:\n  r = 1\nelse:\n  r = 0\nend\nr")
	n, ok := got.(*value.Number)
	if !ok || n.Val != 1 {
		t.Errorf("got %#v, want Number(1)", got)
	}
}

func TestWhileLoopAccumulates(t *testing.T) {
	src := `var total = 0
var i = 0
while i < 5:
  total = total + i
  i = i + 1
end
total`
	got := mustRun(t, src)
	n, ok := got.(*value.Number)
	if !ok || n.Val != 10 {
		t.Errorf("got %#v, want Number(10)", got)
	}
}

func TestForLoopOverArraySumsElements(t *testing.T) {
	src := `var total = 0
for x in [1, 2, 3, 4]:
  total = total + x
end
total`
	got := mustRun(t, src)
	n, ok := got.(*value.Number)
	if !ok || n.Val != 10 {
		t.Errorf("got %#v, want Number(10)", got)
	}
}

func TestForLoopReloadsIteratorAcrossNestedCalls(t *testing.T) {
	// the loop body calls a function before touching the loop variable
	// again; if the compiler's hidden-local reload were broken this
	// would desync the iterator against the operand stack.
	src := `fn identity(n):
  return n
end
var total = 0
for x in [1, 2, 3]:
  total = total + identity(x)
end
total`
	got := mustRun(t, src)
	n, ok := got.(*value.Number)
	if !ok || n.Val != 6 {
		t.Errorf("got %#v, want Number(6)", got)
	}
}

func TestRecursiveFunctionCall(t *testing.T) {
	src := `fn fib(n):
  if n < 2:
    return n
  end
  return fib(n - 1) + fib(n - 2)
end
fib(10)`
	got := mustRun(t, src)
	n, ok := got.(*value.Number)
	if !ok || n.Val != 55 {
		t.Errorf("got %#v, want Number(55)", got)
	}
}

func TestArrayIndexingAndAssignment(t *testing.T) {
	got := mustRun(t, "var a = [1, 2, 3]\na[1] = 9\na[1]")
	n, ok := got.(*value.Number)
	if !ok || n.Val != 9 {
		t.Errorf("got %#v, want Number(9)", got)
	}
}

func TestArrayOutOfBoundsIsRuntimeError(t *testing.T) {
	prog, err := parser.New("var a = [1]\na[5]").Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	code, err := compiler.Compile(prog)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if _, err := New(nil).Run(code); err == nil {
		t.Fatalf("expected a bounds error")
	}
}

func TestClassMemberAccessAndMethodCall(t *testing.T) {
	src := `class Counter:
  value = 0
  fn bump(self):
    self.value = self.value + 1
    return self.value
  end
end
Counter.bump()
Counter.bump()`
	got := mustRun(t, src)
	n, ok := got.(*value.Number)
	if !ok || n.Val != 2 {
		t.Errorf("got %#v, want Number(2)", got)
	}
}

func TestForLoopOverClassYieldsDeclaredMemberNames(t *testing.T) {
	src := `class Point:
  x = 0
  y = 0
  fn len(self):
    return self.x
  end
end
var names = []
for m in Point:
  names.append(m)
end
names`
	got := mustRun(t, src)
	arr, ok := got.(*value.Array)
	if !ok || len(arr.Elems) != 3 {
		t.Fatalf("got %#v, want a 3-element Array of member names", got)
	}
	want := []string{"x", "y", "len"}
	for i, w := range want {
		s, ok := arr.Elems[i].(*value.String)
		if !ok || s.Val != w {
			t.Errorf("names[%d] = %#v, want String(%q)", i, arr.Elems[i], w)
		}
	}
}

func TestFunctionStaticVariablePersistsAcrossCalls(t *testing.T) {
	src := `fn counter():
  counter.calls = counter.calls + 1
  return counter.calls
end
counter.calls = 0
counter()
counter()
counter()`
	got := mustRun(t, src)
	n, ok := got.(*value.Number)
	if !ok || n.Val != 3 {
		t.Errorf("got %#v, want Number(3)", got)
	}
}

func TestCallArityMismatchIsRuntimeError(t *testing.T) {
	prog, err := parser.New("fn f(a, b):\n  return a\nend\nf(1)").Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	code, err := compiler.Compile(prog)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if _, err := New(nil).Run(code); err == nil {
		t.Fatalf("expected an arity error")
	}
}

func TestImportWithoutLoaderIsRuntimeError(t *testing.T) {
	prog, err := parser.New(`import "libm.so"`).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	code, err := compiler.Compile(prog)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if _, err := New(nil).Run(code); err == nil {
		t.Fatalf("expected an error from a VM with no module loader configured")
	}
}

// evalSessionLine compiles src against the session's persistent
// Compiler and runs it on the session's persistent VM, the same
// sequence cmd/lewi's REPL runs one input line through.
func evalSessionLine(t *testing.T, m *VM, c *compiler.Compiler, src string) value.Value {
	t.Helper()
	prog, err := parser.New(src).Parse()
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	code, err := c.CompileProgram(prog)
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	got, err := m.Run(code)
	if err != nil {
		t.Fatalf("run %q: %v", src, err)
	}
	return got
}

// TestIncrementalSessionRunsEachLineOnce guards the REPL's core
// contract: a second line compiled and run against the same persistent
// VM/Compiler pair must execute only itself, not replay the first
// line's statement and return its value again.
func TestIncrementalSessionRunsEachLineOnce(t *testing.T) {
	m := New(nil)
	c := compiler.New()

	first := evalSessionLine(t, m, c, "var a = 1")
	if n, ok := first.(*value.Number); !ok || n.Val != 1 {
		t.Fatalf("first line: got %#v, want Number(1)", first)
	}

	second := evalSessionLine(t, m, c, "a + 1")
	n, ok := second.(*value.Number)
	if !ok || n.Val != 2 {
		t.Fatalf("second line: got %#v, want Number(2) — a replayed instead of evaluating the new statement", second)
	}

	third := evalSessionLine(t, m, c, "a = a + 10")
	n, ok = third.(*value.Number)
	if !ok || n.Val != 11 {
		t.Fatalf("third line: got %#v, want Number(11) (a reassigned via the persisted global)", third)
	}
}
