package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/kristofer/lewi"
	"github.com/kristofer/lewi/internal/compiler"
	"github.com/kristofer/lewi/internal/hostmodule"
	"github.com/kristofer/lewi/internal/parser"
	"github.com/kristofer/lewi/internal/stdlib"
	"github.com/kristofer/lewi/internal/vm"
)

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "start an interactive read-eval-print loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runREPL()
			return nil
		},
	}
}

// runREPL drives an interactive session over a single, long-lived VM
// and a single, long-lived Compiler: every line typed compiles and runs
// against the same global storage, so a "var" declared on one line
// resolves on the next, the same persistent-session behavior the
// teacher's own REPL gets from its compiler's CompileIncremental.
func runREPL() {
	fmt.Printf("lewi %s\n", version)
	fmt.Println("type an expression, or .exit to quit")

	loader := hostmodule.NewLoader()
	m := vm.New(loader)
	wireLogging(m, loader)
	stdlib.Install(m)

	c := compiler.New()
	if err := c.DeclareReserved(stdlib.Names); err != nil {
		fmt.Fprintln(os.Stderr, lewi.FormatError(err))
		return
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt("lewi> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return
			}
			fmt.Fprintln(os.Stderr, err)
			return
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		if strings.TrimSpace(input) == ".exit" {
			return
		}
		line.AppendHistory(input)
		evalREPL(m, c, input)
	}
}

// evalREPL parses, compiles, and runs a single REPL line against the
// session's persistent VM and Compiler. Errors are reported and the
// session continues rather than exiting, the same "bad input doesn't
// kill the REPL" behavior as the teacher's evalREPL.
func evalREPL(m *vm.VM, c *compiler.Compiler, input string) {
	prog, err := parser.New(input).Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, lewi.FormatError(err))
		return
	}

	code, err := c.CompileProgram(prog)
	if err != nil {
		fmt.Fprintln(os.Stderr, lewi.FormatError(err))
		return
	}

	result, err := m.Run(code)
	if err != nil {
		fmt.Fprintln(os.Stderr, lewi.FormatError(err))
		return
	}
	if result != nil {
		fmt.Printf("=> %s\n", result.String())
	}
}
