package lewi

import (
	"testing"

	"github.com/kristofer/lewi/internal/parser"
	"github.com/kristofer/lewi/internal/value"
)

func TestRunSourceEvaluatesProgram(t *testing.T) {
	got, err := RunSource("1 + 2 * 3", "test")
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	n, ok := got.(*value.Number)
	if !ok || n.Val != 7 {
		t.Errorf("got %#v, want Number(7)", got)
	}
}

func TestRunSourceInstallsReservedBuiltins(t *testing.T) {
	got, err := RunSource(`type(Range(1, 5))`, "test")
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	s, ok := got.(*value.String)
	if !ok || s.Val != "Range" {
		t.Errorf("got %#v, want String(Range)", got)
	}
}

func TestRunSourceParseErrorFormatsAsStageError(t *testing.T) {
	_, err := RunSource("var = ", "test")
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if got := FormatError(err); got[:len("[PARSE ERROR]")] != "[PARSE ERROR]" {
		t.Errorf("FormatError(%v) = %q, want a [PARSE ERROR] prefix", err, got)
	}
}

func TestRunSourceRuntimeErrorFormatsAsStageError(t *testing.T) {
	_, err := RunSource("var a = [1]\na[5]", "test")
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	if got := FormatError(err); got[:len("[RUNTIME ERROR]")] != "[RUNTIME ERROR]" {
		t.Errorf("FormatError(%v) = %q, want a [RUNTIME ERROR] prefix", err, got)
	}
}

func TestCompileThenRunCodeMatchesRunSource(t *testing.T) {
	prog, err := parser.New("10 / 4").Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	code, err := Compile(prog)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got, err := RunCode(code)
	if err != nil {
		t.Fatalf("RunCode: %v", err)
	}
	n, ok := got.(*value.Number)
	if !ok || n.Val != 2.5 {
		t.Errorf("got %#v, want Number(2.5)", got)
	}
}
