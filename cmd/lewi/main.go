// Command lewi is the CLI driver for the lewi scripting language: run a
// source file, start an interactive REPL, or inspect/serialize compiled
// bytecode. It mirrors the teacher's cmd/smog dispatch (run/repl/
// compile/disassemble), rebuilt on cobra instead of a bare os.Args
// switch.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
