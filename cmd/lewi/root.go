package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kristofer/lewi/internal/compiler"
	"github.com/kristofer/lewi/internal/hostmodule"
	"github.com/kristofer/lewi/internal/vm"
)

var verbose bool

// newLogger builds the process-wide diagnostic logger: silent unless
// -v/--verbose is set, matching internal/vm's and internal/compiler's
// "silent by default" logging convention.
func newLogger() zerolog.Logger {
	if !verbose {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "lewi",
		Short:   "lewi is a small dynamically-typed embeddable scripting language",
		Version: version,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable diagnostic logging")
	root.AddCommand(newRunCmd(), newReplCmd(), newDisasmCmd(), newCompileCmd())
	return root
}

// wireLogging installs the process's logger into every component that
// accepts one, matching SPEC_FULL's "VM, compiler, and hostmodule
// loader accept an optional zerolog.Logger" ambient-stack requirement.
func wireLogging(m *vm.VM, loader *hostmodule.Loader) {
	l := newLogger()
	m.SetLogger(l)
	loader.SetLogger(l)
	compiler.SetLogger(l)
}

const version = "0.1.0"
