package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kristofer/lewi"
	"github.com/kristofer/lewi/internal/bytecode"
	"github.com/kristofer/lewi/internal/parser"
)

func newCompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile <in.lewi> [out.lewic]",
		Short: "compile a source file to a .lewic bytecode file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := ""
			if len(args) == 2 {
				out = args[1]
			}
			return compileFile(args[0], out)
		},
	}
}

func compileFile(in, out string) error {
	if out == "" {
		out = defaultCompiledName(in)
	}

	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}

	prog, err := parser.New(string(data)).Parse()
	if err != nil {
		return fmt.Errorf("%s", lewi.FormatError(err))
	}

	code, err := lewi.Compile(prog)
	if err != nil {
		return fmt.Errorf("%s", lewi.FormatError(err))
	}

	outFile, err := os.Create(out)
	if err != nil {
		return err
	}
	defer outFile.Close()

	if err := bytecode.Encode(code, outFile); err != nil {
		return fmt.Errorf("writing bytecode: %w", err)
	}

	fmt.Printf("compiled %s -> %s\n", in, out)
	return nil
}

func defaultCompiledName(in string) string {
	if ext := filepath.Ext(in); ext != "" {
		return in[:len(in)-len(ext)] + bytecodeExt
	}
	return in + bytecodeExt
}
