package hostmodule

import (
	"runtime"
	"testing"

	"github.com/kristofer/lewi/internal/value"
)

// libmPath is best-effort: where a test runs without a system libm at
// this exact path, TestLoadResolvesAndCallsLibmSymbol skips rather than
// fails, since hostmodule's contract is about the loader mechanism, not
// about any particular machine having libm installed at a fixed path.
func libmPath() (string, bool) {
	switch runtime.GOOS {
	case "linux":
		return "libm.so.6", true
	case "darwin":
		return "libm.dylib", true
	default:
		return "", false
	}
}

func TestLoadResolvesAndCallsLibmSymbol(t *testing.T) {
	path, ok := libmPath()
	if !ok {
		t.Skip("no known libm path for this platform")
	}

	loader := NewLoader()
	resolver, err := loader.Load(path)
	if err != nil {
		t.Skipf("libm not available in this environment: %v", err)
	}

	sqrtFn, err := resolver.Symbol("sqrt")
	if err != nil {
		t.Fatalf("Symbol(sqrt): %v", err)
	}

	got, err := sqrtFn([]value.Value{value.NewNumber(16)})
	if err != nil {
		t.Fatalf("sqrt(16): %v", err)
	}
	n, ok := got.(*value.Number)
	if !ok || n.Val != 4 {
		t.Errorf("sqrt(16) = %#v, want Number(4)", got)
	}
}

func TestLoadReusesHandleForRepeatedPath(t *testing.T) {
	path, ok := libmPath()
	if !ok {
		t.Skip("no known libm path for this platform")
	}

	loader := NewLoader()
	first, err := loader.Load(path)
	if err != nil {
		t.Skipf("libm not available in this environment: %v", err)
	}
	second, err := loader.Load(path)
	if err != nil {
		t.Fatalf("second Load(%q): %v", path, err)
	}
	if first != second {
		t.Errorf("expected repeated Load of the same path to return the same resolver")
	}
}

func TestSymbolOnMissingNameIsError(t *testing.T) {
	path, ok := libmPath()
	if !ok {
		t.Skip("no known libm path for this platform")
	}
	loader := NewLoader()
	resolver, err := loader.Load(path)
	if err != nil {
		t.Skipf("libm not available in this environment: %v", err)
	}
	if _, err := resolver.Symbol("definitely_not_a_real_symbol_name"); err == nil {
		t.Fatal("expected an error resolving a nonexistent symbol")
	}
}
