package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kristofer/lewi"
	"github.com/kristofer/lewi/internal/bytecode"
	"github.com/kristofer/lewi/internal/hostmodule"
	"github.com/kristofer/lewi/internal/parser"
	"github.com/kristofer/lewi/internal/stdlib"
	"github.com/kristofer/lewi/internal/vm"
)

// bytecodeExt is the extension a precompiled module (cmd/lewi's
// "compile" output) carries on disk, mirroring the teacher's own
// .smog/.sg source/bytecode split.
const bytecodeExt = ".lewic"

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "run a source file, or a precompiled .lewic bytecode file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(args[0])
		},
	}
}

func runFile(path string) error {
	loader := hostmodule.NewLoader()
	m := vm.New(loader)
	wireLogging(m, loader)
	stdlib.Install(m)

	var code *bytecode.Code
	if filepath.Ext(path) == bytecodeExt {
		c, err := loadBytecodeFile(path)
		if err != nil {
			return err
		}
		code = c
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		prog, err := parser.New(string(data)).Parse()
		if err != nil {
			fmt.Fprintln(os.Stderr, lewi.FormatError(err))
			os.Exit(1)
		}
		c, err := lewi.Compile(prog)
		if err != nil {
			fmt.Fprintln(os.Stderr, lewi.FormatError(err))
			os.Exit(1)
		}
		code = c
	}

	if _, err := m.Run(code); err != nil {
		fmt.Fprintln(os.Stderr, lewi.FormatError(err))
		os.Exit(1)
	}
	return nil
}

func loadBytecodeFile(path string) (*bytecode.Code, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return bytecode.Decode(file)
}
