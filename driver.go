package lox

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Exit codes per spec.md §6.
const (
	ExitUsage        = 64
	ExitCompileError = 65
	ExitRuntimeError = 70
	ExitIOError      = 74
	ExitOK           = 0
)

// RunFile reads path and interprets it against a fresh VM, writing
// compile/runtime diagnostics to stderr. It returns the process exit
// code the CLI should use; it never calls os.Exit itself so it stays
// testable.
func RunFile(path string, cfg *Config) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Can't open file %q: %v\n", path, err)
		return ExitIOError
	}

	vm := NewVM(cfg)
	err = vm.Interpret(string(src))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return exitCodeFor(err)
}

func exitCodeFor(err error) int {
	switch err.(type) {
	case nil:
		return ExitOK
	case *CompileErrors:
		return ExitCompileError
	case *RuntimeError:
		return ExitRuntimeError
	default:
		return ExitRuntimeError
	}
}

// REPL reads source line by line from in, feeding each line to the
// same long-lived VM so top-level declarations persist across lines,
// printing a prompt only when in is an interactive terminal
// (mattn/go-isatty lets this behave sensibly whether stdin is a
// terminal or a pipe, the same check spec.md's supplemented-features
// discussion calls for).
func REPL(in *os.File, out io.Writer, cfg *Config) {
	vm := NewVM(cfg)
	interactive := isatty.IsTerminal(in.Fd()) || isatty.IsCygwinTerminal(in.Fd())

	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := vm.Interpret(line); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}
