// Package debug implements the bytecode disassembler and execution-trace
// formatting gated behind GLOX_TRACE, grounded on
// original_source/src/debug.c's disassemble_chunk/disassemble_inst family.
package debug

import (
	"fmt"
	"io"

	"github.com/mna/glox/lang/chunk"
	"github.com/mna/glox/lang/value"
)

// DisassembleChunk writes every instruction in c to w, labelled name.
func DisassembleChunk(w io.Writer, c *chunk.Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < c.Len(); {
		offset = DisassembleInstruction(w, c, offset)
	}
}

// DisassembleInstruction writes the single instruction at offset to w and
// returns the offset of the next one.
func DisassembleInstruction(w io.Writer, c *chunk.Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)

	line := c.LineFor(offset)
	if offset > 0 && line == c.LineFor(offset-1) {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", line)
	}

	op := chunk.OpCode(c.Code[offset])
	switch op {
	case chunk.OpConst, chunk.OpDefineGlobal, chunk.OpGetGlobal, chunk.OpSetGlobal,
		chunk.OpClass, chunk.OpMethod, chunk.OpGetProperty, chunk.OpSetProperty,
		chunk.OpGetSuper:
		return constInstruction(w, op, c, offset)

	case chunk.OpConstLong, chunk.OpDefineGlobalLong, chunk.OpGetGlobalLong, chunk.OpSetGlobalLong,
		chunk.OpClassLong, chunk.OpMethodLong, chunk.OpGetPropertyLong, chunk.OpSetPropertyLong,
		chunk.OpGetSuperLong:
		return constLongInstruction(w, op, c, offset)

	case chunk.OpClosure:
		return closureInstruction(w, op, c, offset, false)
	case chunk.OpClosureLong:
		return closureInstruction(w, op, c, offset, true)

	case chunk.OpGetLocal, chunk.OpSetLocal, chunk.OpCall:
		return byteInstruction(w, op, c, offset)
	case chunk.OpGetLocalLong, chunk.OpSetLocalLong:
		return u24Instruction(w, op, c, offset)

	case chunk.OpGetUpvalue, chunk.OpSetUpvalue:
		return byteInstruction(w, op, c, offset)
	case chunk.OpGetUpvalueLong, chunk.OpSetUpvalueLong:
		return shortInstruction(w, op, c, offset)

	case chunk.OpJump, chunk.OpJumpIfFalse:
		return jumpInstruction(w, op, c, offset, 1)
	case chunk.OpLoop:
		return jumpInstruction(w, op, c, offset, -1)

	case chunk.OpInvoke, chunk.OpSuperInvoke:
		return invokeInstruction(w, op, c, offset, false)
	case chunk.OpInvokeLong, chunk.OpSuperInvokeLong:
		return invokeInstruction(w, op, c, offset, true)

	default:
		return simpleInstruction(w, op, offset)
	}
}

func simpleInstruction(w io.Writer, op chunk.OpCode, offset int) int {
	fmt.Fprintln(w, op.String())
	return offset + 1
}

func constAt(c *chunk.Chunk, poolOffset int) value.Value {
	return c.Constants[poolOffset].(value.Value)
}

func constInstruction(w io.Writer, op chunk.OpCode, c *chunk.Chunk, offset int) int {
	poolOffset := int(c.Code[offset+1])
	fmt.Fprintf(w, "%-20s %4d '%s'\n", op.String(), poolOffset, value.Stringify(constAt(c, poolOffset)))
	return offset + 2
}

func constLongInstruction(w io.Writer, op chunk.OpCode, c *chunk.Chunk, offset int) int {
	poolOffset := readU24(c.Code, offset+1)
	fmt.Fprintf(w, "%-20s %4d '%s'\n", op.String(), poolOffset, value.Stringify(constAt(c, poolOffset)))
	return offset + 4
}

func byteInstruction(w io.Writer, op chunk.OpCode, c *chunk.Chunk, offset int) int {
	slot := c.Code[offset+1]
	fmt.Fprintf(w, "%-20s %4d\n", op.String(), slot)
	return offset + 2
}

func shortInstruction(w io.Writer, op chunk.OpCode, c *chunk.Chunk, offset int) int {
	v := int(c.Code[offset+1]) | int(c.Code[offset+2])<<8
	fmt.Fprintf(w, "%-20s %4d\n", op.String(), v)
	return offset + 3
}

func u24Instruction(w io.Writer, op chunk.OpCode, c *chunk.Chunk, offset int) int {
	v := readU24(c.Code, offset+1)
	fmt.Fprintf(w, "%-20s %4d\n", op.String(), v)
	return offset + 4
}

func jumpInstruction(w io.Writer, op chunk.OpCode, c *chunk.Chunk, offset int, sign int) int {
	dist := int(c.Code[offset+1]) | int(c.Code[offset+2])<<8
	dest := offset + 3 + sign*dist
	fmt.Fprintf(w, "%-20s %4d -> %d\n", op.String(), offset, dest)
	return offset + 3
}

func invokeInstruction(w io.Writer, op chunk.OpCode, c *chunk.Chunk, offset int, long bool) int {
	var poolOffset, next int
	if long {
		poolOffset = readU24(c.Code, offset+1)
		next = offset + 4
	} else {
		poolOffset = int(c.Code[offset+1])
		next = offset + 2
	}
	argc := c.Code[next]
	fmt.Fprintf(w, "%-20s (%d args) %4d '%s'\n", op.String(), argc, poolOffset, value.Stringify(constAt(c, poolOffset)))
	return next + 1
}

func closureInstruction(w io.Writer, op chunk.OpCode, c *chunk.Chunk, offset int, long bool) int {
	var poolOffset, next int
	if long {
		poolOffset = readU24(c.Code, offset+1)
		next = offset + 4
	} else {
		poolOffset = int(c.Code[offset+1])
		next = offset + 2
	}
	fnVal := constAt(c, poolOffset)
	fmt.Fprintf(w, "%-20s %4d '%s'\n", op.String(), poolOffset, value.Stringify(fnVal))

	fn := fnVal.AsObject().(*value.Function)
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := c.Code[next] != 0
		idx := c.Code[next+1]
		kind := "upvalue"
		if isLocal {
			kind = "local"
		}
		fmt.Fprintf(w, "%04d      |                     %s %d\n", next, kind, idx)
		next += 2
	}
	return next
}

func readU24(code []byte, at int) int {
	return int(code[at]) | int(code[at+1])<<8 | int(code[at+2])<<16
}
