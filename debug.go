package lox

import (
	"fmt"
	"io"
)

// traceInstruction prints the value stack and the instruction about to
// execute, gated by the "vm.trace_execution" config knob (spec.md
// §4.4's debug tracing). Writes to vm.stderr, so a trace run leaves
// the program's own stdout output unchanged.
func (vm *VM) traceInstruction(f *CallFrame) {
	fmt.Fprint(vm.stderr, "          ")
	for _, v := range vm.stack {
		fmt.Fprintf(vm.stderr, "[ %s ]", v.String())
	}
	fmt.Fprintln(vm.stderr)

	disassembleInstruction(vm.stderr, &f.closure.Function.Chunk, f.ip)
}

// disassembleInstruction writes one human-readable instruction line at
// offset to w, mirroring clox's debug.c layout closely enough that
// golden-output tests can assert on it.
func disassembleInstruction(w io.Writer, chunk *Chunk, offset int) {
	line := chunk.LineAt(offset)
	op := OpCode(chunk.code[offset])

	prefix := fmt.Sprintf("%04d %4d %s", offset, line, op)

	switch op {
	case OpConstant, OpGetLocal, OpSetLocal, OpGetGlobal, OpDefineGlobal,
		OpSetGlobal, OpGetUpvalue, OpSetUpvalue, OpGetProperty, OpSetProperty,
		OpGetSuper, OpClass, OpMethod, OpCall:
		if offset+1 < len(chunk.code) {
			fmt.Fprintf(w, "%s %d\n", prefix, chunk.code[offset+1])
			return
		}
	case OpInvoke, OpSuperInvoke:
		if offset+2 < len(chunk.code) {
			fmt.Fprintf(w, "%s %d (%d args)\n", prefix, chunk.code[offset+1], chunk.code[offset+2])
			return
		}
	case OpJump, OpJumpIfFalse, OpLoop:
		if offset+2 < len(chunk.code) {
			jump := int(chunk.code[offset+1])<<8 | int(chunk.code[offset+2])
			fmt.Fprintf(w, "%s %d\n", prefix, jump)
			return
		}
	}
	fmt.Fprintln(w, prefix)
}
