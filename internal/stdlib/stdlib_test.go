package stdlib

import (
	"bytes"
	"testing"

	"github.com/kristofer/lewi/internal/compiler"
	"github.com/kristofer/lewi/internal/parser"
	"github.com/kristofer/lewi/internal/value"
	"github.com/kristofer/lewi/internal/vm"
)

func mustRun(t *testing.T, src string, out *bytes.Buffer) value.Value {
	t.Helper()
	prog, err := parser.New(src).Parse()
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	code, err := compiler.CompileWithReserved(prog, Names)
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	m := vm.New(nil)
	InstallTo(m, out)
	result, err := m.Run(code)
	if err != nil {
		t.Fatalf("run %q: %v", src, err)
	}
	return result
}

func TestPrintWritesSpaceSeparatedArguments(t *testing.T) {
	var out bytes.Buffer
	mustRun(t, `print(1, "two", true)`, &out)
	if got, want := out.String(), "1 two True\n"; got != want {
		t.Errorf("print output = %q, want %q", got, want)
	}
}

func TestTypeReturnsRuntimeTypeName(t *testing.T) {
	var out bytes.Buffer
	got := mustRun(t, `type(42)`, &out)
	s, ok := got.(*value.String)
	if !ok || s.Val != "Number" {
		t.Errorf("got %#v, want String(Number)", got)
	}
}

func TestStringBuiltinStringifiesAnyValue(t *testing.T) {
	var out bytes.Buffer
	got := mustRun(t, `String(42)`, &out)
	s, ok := got.(*value.String)
	if !ok || s.Val != "42" {
		t.Errorf("got %#v, want String(42)", got)
	}
}

func TestRangeBuiltinWithStartEndAndStep(t *testing.T) {
	var out bytes.Buffer
	src := `var total = 0
for x in Range(2, 8, 2):
  total = total + x
end
total`
	got := mustRun(t, src, &out)
	n, ok := got.(*value.Number)
	if !ok || n.Val != 12 {
		t.Errorf("got %#v, want Number(12)", got)
	}
}

func TestIteratorBuiltinReturnsArraysOwnIterator(t *testing.T) {
	var out bytes.Buffer
	src := `var it = Iterator([1, 2])
print(it)`
	mustRun(t, src, &out)
	if got, want := out.String(), "Iterator\n"; got != want {
		t.Errorf("print output = %q, want %q", got, want)
	}
}

func TestReservedNamesCanBeShadowedAsOrdinaryGlobals(t *testing.T) {
	// print, type, etc. occupy ordinary global slots like any other
	// top-level name; a program is free to shadow them with "var".
	var out bytes.Buffer
	got := mustRun(t, "var type = 5\ntype", &out)
	n, ok := got.(*value.Number)
	if !ok || n.Val != 5 {
		t.Errorf("got %#v, want Number(5)", got)
	}
}
