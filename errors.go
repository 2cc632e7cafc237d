package lox

import (
	"fmt"
	"strings"
)

// CompileError is one diagnostic the compiler reported before
// synchronizing (spec.md §7). A single Compile call can surface many.
type CompileError struct {
	Line    int
	Where   string // lexeme, or "end"
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("[line %d] Error at %s: %s", e.Line, e.Where, e.Message)
}

// CompileErrors aggregates every diagnostic from one compile attempt.
type CompileErrors struct {
	Errors []*CompileError
}

func (e *CompileErrors) Error() string {
	lines := make([]string, len(e.Errors))
	for i, ce := range e.Errors {
		lines[i] = ce.Error()
	}
	return strings.Join(lines, "\n")
}

// RuntimeError aborts the current Interpret call: a formatted message
// plus a frame-by-frame trace, innermost frame first (spec.md §4.4,
// §7).
type RuntimeError struct {
	Message string
	Trace   []string
}

func (e *RuntimeError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	for _, line := range e.Trace {
		sb.WriteByte('\n')
		sb.WriteString(line)
	}
	return sb.String()
}
