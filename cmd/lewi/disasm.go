package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kristofer/lewi/internal/bytecode"
)

func newDisasmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <file.lewic>",
		Short: "print a human-readable listing of a compiled bytecode file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return disasmFile(args[0])
		},
	}
}

func disasmFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	code, err := bytecode.Decode(file)
	if err != nil {
		return fmt.Errorf("loading bytecode: %w", err)
	}

	fmt.Print(bytecode.Disassemble(code))
	return nil
}
