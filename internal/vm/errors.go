package vm

import (
	"fmt"

	"github.com/pkg/errors"
)

// RuntimeError reports a problem raised by executing bytecode rather
// than by one of the earlier pipeline stages: an arity mismatch, a
// call to a non-callable value, an undeclared global, or any error
// bubbled up from internal/value's capability interfaces (TypeError,
// BoundsError, MemberError, ...). It wraps the originating error so
// FormatError can still see the concrete cause. Bytecode instructions
// carry no source line, so unlike LexError/ParseError/CompileError this
// can only name the active frame, not a line number.
type RuntimeError struct {
	Cause error
	Frame string // the Frame.FrameName active when the error occurred ("" at top level)
}

func (e *RuntimeError) Error() string {
	if e.Frame == "" {
		return fmt.Sprintf("runtime error: %s", e.Cause)
	}
	return fmt.Sprintf("runtime error in %s: %s", e.Frame, e.Cause)
}

func (e *RuntimeError) Unwrap() error { return e.Cause }

// Stage identifies this error as belonging to the run stage, mirroring
// LexError/ParseError/CompileError's Stage method.
func (e *RuntimeError) Stage() string { return "RUNTIME" }

func wrapErr(frame string, cause error) error {
	return errors.WithStack(&RuntimeError{Cause: cause, Frame: frame})
}

func runtimeErr(frame, format string, args ...any) error {
	return wrapErr(frame, fmt.Errorf(format, args...))
}

// ArityError reports a call whose argument count doesn't match the
// callee's declared parameter count (spec.md §7, "Runtime-arity").
type ArityError struct {
	Callee string
	Want   int
	Got    int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%s expects %d argument(s), got %d", e.Callee, e.Want, e.Got)
}

// StackOverflowError reports the call stack exceeding maxCallDepth,
// lewi's only recursion guard (there is no tail-call elimination).
type StackOverflowError struct{}

func (e *StackOverflowError) Error() string { return "call stack exceeded maximum depth" }
