package vm

import (
	"fmt"

	"github.com/mna/glox/lang/chunk"
	"github.com/mna/glox/lang/value"
)

// run is the dispatch loop of spec.md §4.4: a tight switch over the
// opcode byte, with the active call frame cached in fr and refreshed
// after every call or return. Grounded on original_source/src/vm.c's
// run(), extended with the class/method/inheritance opcodes spec.md
// names that the retrieved original's run() did not implement.
func (vm *VM) run() error {
	fr := &vm.frames[vm.frameCount-1]

	readByte := func() byte {
		b := fr.closure.Fn.Chunk.Code[fr.ip]
		fr.ip++
		return b
	}
	readShort := func() int {
		lo := readByte()
		hi := readByte()
		return int(lo) | int(hi)<<8
	}
	readU24 := func() int {
		b0 := readByte()
		b1 := readByte()
		b2 := readByte()
		return int(b0) | int(b1)<<8 | int(b2)<<16
	}
	readConstAt := func(off int) value.Value {
		return fr.closure.Fn.Chunk.Constants[off].(value.Value)
	}
	readShortOrLongOffset := func(isLong bool) int {
		if isLong {
			return readU24()
		}
		return int(readByte())
	}
	readUpvalueOffset := func(isLong bool) int {
		if isLong {
			return readShort()
		}
		return int(readByte())
	}
	readNameAt := func(isLong bool) *value.String {
		return readConstAt(readShortOrLongOffset(isLong)).AsObject().(*value.String)
	}

	for {
		if vm.traceEnabled {
			vm.traceInstruction(fr)
		}

		op := chunk.OpCode(readByte())
		switch op {
		case chunk.OpExit:
			return nil

		case chunk.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(&vm.stack[fr.slotsBase])
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop() // the top-level script closure
				return nil
			}
			vm.stackTop = fr.slotsBase
			vm.push(result)
			fr = &vm.frames[vm.frameCount-1]

		case chunk.OpConst:
			vm.push(readConstAt(int(readByte())))
		case chunk.OpConstLong:
			vm.push(readConstAt(readU24()))

		case chunk.OpTrue:
			vm.push(value.Bool(true))
		case chunk.OpFalse:
			vm.push(value.Bool(false))
		case chunk.OpNil:
			vm.push(value.Nil)

		case chunk.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Cannot negate an object that is not numeric")
			}
			vm.push(value.Number(-vm.pop().AsNumber()))

		case chunk.OpNot:
			vm.push(value.Bool(isFalsey(vm.pop())))

		case chunk.OpAdd:
			b, a := vm.peek(0), vm.peek(1)
			switch {
			case a.IsNumber() && b.IsNumber():
				vm.pop()
				vm.pop()
				vm.push(value.Number(a.AsNumber() + b.AsNumber()))
			case a.Is(value.ObjString) && b.Is(value.ObjString):
				vm.concatenate()
			default:
				return vm.runtimeError("Both operands must be strings or numbers")
			}

		case chunk.OpSubtract:
			if rerr := vm.binaryNumberOp(func(a, b float64) value.Value { return value.Number(a - b) }); rerr != nil {
				return rerr
			}
		case chunk.OpMultiply:
			if rerr := vm.binaryNumberOp(func(a, b float64) value.Value { return value.Number(a * b) }); rerr != nil {
				return rerr
			}
		case chunk.OpDivide:
			if rerr := vm.binaryNumberOp(func(a, b float64) value.Value { return value.Number(a / b) }); rerr != nil {
				return rerr
			}
		case chunk.OpGreater:
			if rerr := vm.binaryNumberOp(func(a, b float64) value.Value { return value.Bool(a > b) }); rerr != nil {
				return rerr
			}
		case chunk.OpLess:
			if rerr := vm.binaryNumberOp(func(a, b float64) value.Value { return value.Bool(a < b) }); rerr != nil {
				return rerr
			}

		case chunk.OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))

		case chunk.OpPrint:
			fmt.Fprintln(vm.stdout, value.Stringify(vm.pop()))

		case chunk.OpPop:
			vm.pop()

		case chunk.OpDefineGlobal, chunk.OpDefineGlobalLong:
			name := readNameAt(op == chunk.OpDefineGlobalLong)
			vm.globals.Set(name, vm.peek(0))
			vm.pop()

		case chunk.OpGetGlobal, chunk.OpGetGlobalLong:
			name := readNameAt(op == chunk.OpGetGlobalLong)
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined identifier: '%s'.", name.Chars)
			}
			vm.push(v)

		case chunk.OpSetGlobal, chunk.OpSetGlobalLong:
			name := readNameAt(op == chunk.OpSetGlobalLong)
			if !vm.globals.Has(name) {
				return vm.runtimeError("Undefined identifier: '%s'.", name.Chars)
			}
			vm.globals.Set(name, vm.peek(0))

		case chunk.OpGetLocal, chunk.OpGetLocalLong:
			slot := readShortOrLongOffset(op == chunk.OpGetLocalLong)
			vm.push(vm.stack[fr.slotsBase+slot])
		case chunk.OpSetLocal, chunk.OpSetLocalLong:
			slot := readShortOrLongOffset(op == chunk.OpSetLocalLong)
			vm.stack[fr.slotsBase+slot] = vm.peek(0)

		case chunk.OpGetUpvalue, chunk.OpGetUpvalueLong:
			idx := readUpvalueOffset(op == chunk.OpGetUpvalueLong)
			vm.push(fr.closure.Upvalues[idx].Get())
		case chunk.OpSetUpvalue, chunk.OpSetUpvalueLong:
			idx := readUpvalueOffset(op == chunk.OpSetUpvalueLong)
			fr.closure.Upvalues[idx].Set(vm.peek(0))

		case chunk.OpJump:
			fr.ip += readShort()
		case chunk.OpJumpIfFalse:
			dist := readShort()
			if isFalsey(vm.peek(0)) {
				fr.ip += dist
			}
		case chunk.OpLoop:
			fr.ip -= readShort()

		case chunk.OpCall:
			argc := int(readByte())
			callee := vm.peek(argc)
			if !callable(callee) {
				return vm.runtimeError("object is not callable.")
			}
			if rerr := vm.callValue(callee, argc); rerr != nil {
				return rerr
			}
			fr = &vm.frames[vm.frameCount-1]

		case chunk.OpClosure, chunk.OpClosureLong:
			fnVal := readConstAt(readShortOrLongOffset(op == chunk.OpClosureLong))
			fn := fnVal.AsObject().(*value.Function)
			cl := vm.NewClosure(fn)
			vm.push(value.Object(cl))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := readByte() != 0
				idx := int(readByte())
				if isLocal {
					cl.Upvalues[i] = vm.captureUpvalue(&vm.stack[fr.slotsBase+idx])
				} else {
					cl.Upvalues[i] = fr.closure.Upvalues[idx]
				}
			}

		case chunk.OpCloseUpvalue:
			vm.closeUpvalues(&vm.stack[vm.stackTop-1])
			vm.pop()

		case chunk.OpClass, chunk.OpClassLong:
			name := readNameAt(op == chunk.OpClassLong)
			vm.push(value.Object(vm.newClass(name)))

		case chunk.OpMethod, chunk.OpMethodLong:
			name := readNameAt(op == chunk.OpMethodLong)
			method := vm.peek(0)
			cls := vm.peek(1).AsObject().(*value.Class)
			cls.Methods.Set(name, method)
			vm.pop()

		case chunk.OpGetProperty, chunk.OpGetPropertyLong:
			name := readNameAt(op == chunk.OpGetPropertyLong)
			if !vm.peek(0).Is(value.ObjInstance) {
				return vm.runtimeError("Only instances have properties.")
			}
			instance := vm.peek(0).AsObject().(*value.Instance)
			if v, ok := instance.Fields.Get(name); ok {
				vm.pop()
				vm.push(v)
			} else if rerr := vm.bindMethod(instance.Class, name); rerr != nil {
				return rerr
			}

		case chunk.OpSetProperty, chunk.OpSetPropertyLong:
			name := readNameAt(op == chunk.OpSetPropertyLong)
			if !vm.peek(1).Is(value.ObjInstance) {
				return vm.runtimeError("Only instances have fields.")
			}
			instance := vm.peek(1).AsObject().(*value.Instance)
			instance.Fields.Set(name, vm.peek(0))
			v := vm.pop()
			vm.pop()
			vm.push(v)

		case chunk.OpInherit:
			superVal := vm.peek(1)
			if !superVal.Is(value.ObjClass) {
				return vm.runtimeError("Superclass must be a class.")
			}
			superclass := superVal.AsObject().(*value.Class)
			subclass := vm.peek(0).AsObject().(*value.Class)
			superclass.Methods.Each(func(k *value.String, v value.Value) {
				subclass.Methods.Set(k, v)
			})
			vm.pop() // subclass only; superclass remains bound to the "super" local

		case chunk.OpGetSuper, chunk.OpGetSuperLong:
			name := readNameAt(op == chunk.OpGetSuperLong)
			superclass := vm.pop().AsObject().(*value.Class)
			if rerr := vm.bindMethod(superclass, name); rerr != nil {
				return rerr
			}

		case chunk.OpInvoke, chunk.OpInvokeLong:
			name := readNameAt(op == chunk.OpInvokeLong)
			argc := int(readByte())
			if rerr := vm.invoke(name, argc); rerr != nil {
				return rerr
			}
			fr = &vm.frames[vm.frameCount-1]

		case chunk.OpSuperInvoke, chunk.OpSuperInvokeLong:
			name := readNameAt(op == chunk.OpSuperInvokeLong)
			argc := int(readByte())
			superclass := vm.pop().AsObject().(*value.Class)
			if rerr := vm.invokeFromClass(superclass, name, argc); rerr != nil {
				return rerr
			}
			fr = &vm.frames[vm.frameCount-1]

		default:
			internalErrorf("unknown opcode %d", op)
		}
	}
}

// binaryNumberOp implements the BINARY_OP macro of original_source/src/vm.c:
// both operands must be numbers; op computes the result from (left, right)
// in that order.
func (vm *VM) binaryNumberOp(op func(left, right float64) value.Value) *RuntimeError {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	right := vm.pop().AsNumber()
	left := vm.pop().AsNumber()
	vm.push(op(left, right))
	return nil
}
