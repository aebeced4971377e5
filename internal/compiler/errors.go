package compiler

import (
	"fmt"

	"github.com/pkg/errors"
)

// CompileError reports a problem discovered while lowering an AST to
// bytecode: an unresolved name, a redeclared local, an escape
// (break/continue/return) used where its enclosing block does not
// accept it, or an lvalue the compiler cannot lower.
type CompileError struct {
	Message string
	Line    int
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile error at line %d: %s", e.Line, e.Message)
}

// Stage identifies which pipeline stage produced the error, mirroring
// LexError/ParseError's Stage method.
func (e *CompileError) Stage() string { return "COMPILE" }

func newCompileError(line int, format string, args ...any) error {
	return errors.WithStack(&CompileError{Message: fmt.Sprintf(format, args...), Line: line})
}
