package lewi

import (
	"errors"
	"fmt"
)

// stageError is implemented by every concrete error type in the
// pipeline (lexer.LexError, parser.ParseError, compiler.CompileError,
// vm.RuntimeError), each tagging which stage raised it.
type stageError interface {
	error
	Stage() string
}

// FormatError renders err as "[STAGE ERROR] <message>" when it (or
// something it wraps) is one of the pipeline's stage errors, and falls
// back to err.Error() for anything else — a bare read error from a
// host opening a source file, say.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	var se stageError
	if errors.As(err, &se) {
		return fmt.Sprintf("[%s ERROR] %s", se.Stage(), se.Error())
	}
	return err.Error()
}
