// Package stdlib installs lewi's small, fixed set of reserved host
// built-ins (spec.md §6: print, type, Iterator, String, Range) as
// global values, the scripting-language equivalent of the teacher's
// pkg/vm/primitives.go — except lewi's reserved set is closed and
// small, so each name gets its own pre-declared global slot rather
// than smog's open-ended keyword-selector switch inside the VM's main
// dispatch loop.
package stdlib

import (
	"fmt"
	"io"
	"os"

	"github.com/kristofer/lewi/internal/value"
)

// Names lists the reserved built-ins in the exact order
// compiler.CompileWithReserved must declare them in, so the slot
// Install writes each implementation to is the same slot the compiler
// bound the bare name to.
var Names = []string{"print", "type", "Iterator", "String", "Range"}

// globalSetter is the sliver of *vm.VM that Install needs. Depending on
// the concrete vm package here would be an import cycle (vm never
// imports stdlib, and stdlib has no reason to import vm beyond this one
// method), so Install is written against the method set instead.
type globalSetter interface {
	SetGlobal(idx int, v value.Value)
}

// Install seeds dst's reserved global slots, in Names order. Call it
// after compiling with compiler.CompileWithReserved(prog, stdlib.Names)
// and before Run. print writes to os.Stdout; use InstallTo to redirect
// it, as tests do to capture output without touching the real stdout.
func Install(dst globalSetter) { InstallTo(dst, os.Stdout) }

// InstallTo is Install, but print writes to w instead of os.Stdout.
func InstallTo(dst globalSetter, w io.Writer) {
	builtins := []*value.NativeMethod{
		newPrint(w),
		newType(),
		newIteratorFn(),
		newStringFn(),
		newRangeFn(),
	}
	for i, fn := range builtins {
		dst.SetGlobal(i, fn)
	}
}

// newPrint implements print(...): each argument's textual form
// (Value.String, spec.md §6's "to_string"), space-separated, followed
// by a newline. Variadic, so it opts out of arity checking (-1) the
// same way Array's append NativeMethod does.
func newPrint(w io.Writer) *value.NativeMethod {
	return value.NewNativeMethod("print", -1, func(args []value.Value) (value.Value, error) {
		for i, a := range args {
			if i > 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprint(w, a.String())
		}
		fmt.Fprintln(w)
		return value.Null{}, nil
	})
}

// newType implements type(x): the name of x's runtime Type.
func newType() *value.NativeMethod {
	return value.NewNativeMethod("type", 1, func(args []value.Value) (value.Value, error) {
		return value.NewString(args[0].Type().String()), nil
	})
}

// newIteratorFn implements Iterator(x): x's own iterator, i.e.
// value.Iterable.Iterator() called on x. Calling Iterator on a value
// that isn't Iterable is a type error exactly like calling it on the
// wrong operand of a binary operator.
func newIteratorFn() *value.NativeMethod {
	return value.NewNativeMethod("Iterator", 1, func(args []value.Value) (value.Value, error) {
		it, ok := args[0].(value.Iterable)
		if !ok {
			return nil, value.NewUnaryTypeError("Iterator", args[0].Type())
		}
		return it.Iterator()
	})
}

// newStringFn implements String(x): x's textual form, wrapped as a
// lewi String value.
func newStringFn() *value.NativeMethod {
	return value.NewNativeMethod("String", 1, func(args []value.Value) (value.Value, error) {
		return value.NewString(args[0].String()), nil
	})
}

// newRangeFn implements Range(end | start, end | start, end, step),
// grounded on original_source/LEngine/Range.h's range_constructor:
// one argument is the exclusive end with start 0 and step 1; two
// arguments add an explicit start; three add an explicit step.
func newRangeFn() *value.NativeMethod {
	return value.NewNativeMethod("Range", -1, func(args []value.Value) (value.Value, error) {
		start, end, step := 0.0, 0.0, 1.0
		switch len(args) {
		case 1:
			var err error
			if end, err = rangeArg(args[0]); err != nil {
				return nil, err
			}
		case 2:
			var err error
			if start, err = rangeArg(args[0]); err != nil {
				return nil, err
			}
			if end, err = rangeArg(args[1]); err != nil {
				return nil, err
			}
		case 3:
			var err error
			if start, err = rangeArg(args[0]); err != nil {
				return nil, err
			}
			if end, err = rangeArg(args[1]); err != nil {
				return nil, err
			}
			if step, err = rangeArg(args[2]); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("Range expects 1 to 3 arguments, got %d", len(args))
		}
		return value.NewRange(start, end, step), nil
	})
}

func rangeArg(v value.Value) (float64, error) {
	n, ok := v.(*value.Number)
	if !ok {
		return 0, value.NewUnaryTypeError("Range", v.Type())
	}
	return n.Val, nil
}
