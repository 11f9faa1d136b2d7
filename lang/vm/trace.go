package vm

import (
	"fmt"

	"github.com/mna/glox/lang/value"
	"github.com/mna/glox/lang/vm/debug"
)

// traceInstruction prints the live stack followed by the disassembly of
// the instruction about to execute in fr, gated on GLOX_TRACE
// (original_source/src/vm.c's DBG_TRACE_EXECUTION block).
func (vm *VM) traceInstruction(fr *callFrame) {
	fmt.Fprint(vm.traceWriter, "          ")
	for i := 0; i < vm.stackTop; i++ {
		fmt.Fprintf(vm.traceWriter, "[ %s ]", value.Stringify(vm.stack[i]))
	}
	fmt.Fprintln(vm.traceWriter)
	debug.DisassembleInstruction(vm.traceWriter, &fr.closure.Fn.Chunk, fr.ip)
}

func (vm *VM) traceGCBegin() {
	fmt.Fprintln(vm.traceWriter, "== gc begin ==")
}

func (vm *VM) traceGCEnd() {
	fmt.Fprintln(vm.traceWriter, "== gc end ==")
}
