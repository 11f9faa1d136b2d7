// Package vm implements the stack-based virtual machine of spec.md §4.4:
// a dispatch loop over one bytecode chunk per active call frame, a flat
// preallocated value stack, an open/closed upvalue list, string
// interning, globals, and property/method dispatch on class instances,
// all serviced by the tri-color mark-sweep collector in gc.go.
//
// Grounded on original_source/src/vm.c for frame/call/upvalue mechanics
// and original_source/src/memory.c for the allocator/collector contract.
package vm

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mna/glox/lang/compiler"
	"github.com/mna/glox/lang/table"
	"github.com/mna/glox/lang/value"
)

// FramesMax bounds call-frame recursion depth (spec.md §3 "VM state":
// "call-frame stack (depth F=64)").
const FramesMax = 64

// localsPerFrame mirrors lang/compiler's maxLocals: the widest a single
// frame's slot range can be.
const localsPerFrame = 256

// StackMax is FramesMax*localsPerFrame, the worst case where every active
// frame uses its full local-slot budget (spec.md §3: "up to 16384 slots
// acceptable").
const StackMax = FramesMax * localsPerFrame

type callFrame struct {
	closure   *value.Closure
	ip        int
	slotsBase int // index into vm.stack of this frame's slot 0
}

// Options configures a new VM. All fields are optional; zero values fall
// back to sane defaults (stdout for Stdout, no tracing, threshold-based
// GC).
type Options struct {
	Stdout   io.Writer
	Trace    io.Writer // if non-nil, GLOX_TRACE-style execution trace goes here
	GCStress bool      // collect before every allocation, not just over threshold
	REPL     bool      // compile bare top-level expression statements as PRINT
}

// VM holds all interpreter state: spec.md §3's "VM state" list made
// concrete.
type VM struct {
	stack      [StackMax]value.Value
	stackTop   int
	frames     [FramesMax]callFrame
	frameCount int

	globals table.Table[*value.String, value.Value]
	strings table.Table[*value.String, *value.String]

	openUpvalues *value.Upvalue
	objects      value.Obj

	gray       []value.Obj
	pinned     []value.Value
	allocated  int
	gcThreshold int
	gcStress   bool
	collecting bool

	initString *value.String

	traceEnabled bool
	traceWriter  io.Writer

	isREPL bool
	stdout io.Writer
}

// New builds a VM with its native bindings and interned "init" string
// already installed (original_source/src/vm.c's vm_init()).
func New(opts Options) *VM {
	vm := &VM{
		gcThreshold: initialGCThreshold,
		gcStress:    opts.GCStress,
		isREPL:      opts.REPL,
		stdout:      opts.Stdout,
	}
	if vm.stdout == nil {
		vm.stdout = os.Stdout
	}
	if opts.Trace != nil {
		vm.traceEnabled = true
		vm.traceWriter = opts.Trace
	}

	vm.initString = vm.internString("init")
	vm.defineNative("clock", nativeClock)
	vm.defineNative("hasattr", nativeHasAttr)

	return vm
}

func (vm *VM) defineNative(name string, fn func(args []value.Value) (value.Value, error)) {
	// The name string and native object are pushed/popped around the
	// globals insert (original's define_native_fn) even though Go doesn't
	// need the stack-pin trick here, to keep the shape recognizable and
	// because internString/newNative can themselves trigger a GC that must
	// see both as roots; pinning makes that safe regardless of allocator
	// internals.
	nameStr := vm.internString(name)
	vm.PinRoot(value.Object(nameStr))
	native := vm.newNative(name, fn)
	vm.PinRoot(value.Object(native))
	vm.globals.Set(nameStr, value.Object(native))
	vm.Unpin()
	vm.Unpin()
}

// Interpret compiles source and runs it to completion. It returns a
// *RuntimeError for a recoverable runtime fault, the compiler's
// scanner.ErrorList for a compile error, or nil on success. An
// *InternalError panic (a violated invariant in otherwise well-formed
// bytecode) is recovered here and reported the same way a RuntimeError
// would be, since both are faults the driver reports and exits 70 for.
func (vm *VM) Interpret(ctx context.Context, source string) (err error) {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	result, err := compiler.Compile(source, vm, vm.isREPL)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(*InternalError); ok {
				err = ie
				return
			}
			panic(r)
		}
	}()

	vm.push(value.Object(result.Closure))
	if rerr := vm.callValue(value.Object(result.Closure), 0); rerr != nil {
		return rerr
	}
	return vm.run()
}

// --- stack ---------------------------------------------------------------

func (vm *VM) push(v value.Value) {
	if vm.stackTop >= len(vm.stack) {
		internalErrorf("value stack overflow")
	}
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	if vm.stackTop == 0 {
		internalErrorf("pop on empty stack")
	}
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() { vm.stackTop = 0 }

func isFalsey(v value.Value) bool { return v.Falsey() }

// --- errors & traces -------------------------------------------------------

// captureTrace renders spec.md §7's call-stack trace: one line per active
// frame, innermost first, "in f()" or "in script" for the top-level frame.
func (vm *VM) captureTrace() []Frame {
	trace := make([]Frame, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		fr := &vm.frames[i]
		fn := fr.closure.Fn
		line := fn.Chunk.LineFor(fr.ip)
		name := ""
		if fn.Name != nil {
			name = fn.Name.Chars
		}
		trace = append(trace, Frame{Line: line, FuncName: name})
	}
	return trace
}

func (vm *VM) runtimeError(format string, args ...any) *RuntimeError {
	msg := fmt.Sprintf(format, args...)
	trace := vm.captureTrace()
	vm.resetStack()
	vm.frameCount = 0
	vm.openUpvalues = nil
	return &RuntimeError{Message: msg, Trace: trace}
}

// --- calls -----------------------------------------------------------------

func callable(v value.Value) bool {
	if !v.IsObject() {
		return false
	}
	switch v.ObjKind() {
	case value.ObjClosure, value.ObjClass, value.ObjNative, value.ObjBoundMethod:
		return true
	default:
		return false
	}
}

// callValue dispatches a call to whatever is callable: a closure pushes
// a new frame, a class instantiates (invoking `init` if present), a
// native runs immediately, a bound method rebinds the receiver into slot
// 0 and calls through to its closure (original_source/src/vm.c's
// call_value, extended with class/bound-method handling spec.md §4.4
// names but the retrieved original did not implement in its run loop).
func (vm *VM) callValue(callee value.Value, argc int) *RuntimeError {
	if !callee.IsObject() {
		return vm.runtimeError("object is not callable.")
	}
	switch callee.ObjKind() {
	case value.ObjClosure:
		return vm.call(callee.AsObject().(*value.Closure), argc)
	case value.ObjNative:
		native := callee.AsObject().(*value.Native)
		args := vm.stack[vm.stackTop-argc : vm.stackTop]
		result, err := native.Fn(args)
		if err != nil {
			return vm.runtimeError("%s", err.Error())
		}
		vm.stackTop -= argc + 1
		vm.push(result)
		return nil
	case value.ObjClass:
		cls := callee.AsObject().(*value.Class)
		instance := vm.newInstance(cls)
		vm.stack[vm.stackTop-argc-1] = value.Object(instance)
		if init, ok := cls.Methods.Get(vm.initString); ok {
			return vm.call(init.AsObject().(*value.Closure), argc)
		}
		if argc != 0 {
			return vm.runtimeError("Expect 0 parameters but got %d.", argc)
		}
		return nil
	case value.ObjBoundMethod:
		bound := callee.AsObject().(*value.BoundMethod)
		vm.stack[vm.stackTop-argc-1] = bound.Receiver
		return vm.call(bound.Method, argc)
	default:
		return vm.runtimeError("object is not callable.")
	}
}

func (vm *VM) call(closure *value.Closure, argc int) *RuntimeError {
	if argc != closure.Fn.Arity {
		return vm.runtimeError("Expect %d parameters but got %d.", closure.Fn.Arity, argc)
	}
	if vm.frameCount >= FramesMax {
		return vm.runtimeError("Stack overflow.")
	}
	vm.frames[vm.frameCount] = callFrame{
		closure:   closure,
		ip:        0,
		slotsBase: vm.stackTop - argc - 1,
	}
	vm.frameCount++
	return nil
}

// bindMethod looks up name on cls, wraps it with receiver (currently on
// top of the stack) into a BoundMethod, and replaces the receiver on the
// stack with it.
func (vm *VM) bindMethod(cls *value.Class, name *value.String) *RuntimeError {
	method, ok := cls.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	bound := vm.newBoundMethod(vm.peek(0), method.AsObject().(*value.Closure))
	vm.pop()
	vm.push(value.Object(bound))
	return nil
}

// invoke resolves and calls instance.name(args) in one step, skipping the
// intermediate BoundMethod allocation the general GET_PROPERTY+CALL path
// would need (spec.md §4.4's OP_INVOKE fast path).
func (vm *VM) invoke(name *value.String, argc int) *RuntimeError {
	receiver := vm.peek(argc)
	if !receiver.Is(value.ObjInstance) {
		return vm.runtimeError("Only instances have methods.")
	}
	instance := receiver.AsObject().(*value.Instance)

	if field, ok := instance.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argc-1] = field
		return vm.callValue(field, argc)
	}
	return vm.invokeFromClass(instance.Class, name, argc)
}

func (vm *VM) invokeFromClass(cls *value.Class, name *value.String, argc int) *RuntimeError {
	method, ok := cls.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	return vm.call(method.AsObject().(*value.Closure), argc)
}

// --- upvalues ----------------------------------------------------------

// captureUpvalue finds or creates the open upvalue referencing the stack
// slot at location, keeping vm.openUpvalues sorted by descending stack
// address (spec.md §3), matching original_source/src/vm.c's
// capture_upval.
func (vm *VM) captureUpvalue(location *value.Value) *value.Upvalue {
	var prev *value.Upvalue
	cur := vm.openUpvalues
	for cur != nil && uintptrOf(location) < uintptrOf(cur.Location) {
		prev = cur
		cur = cur.NextOpen
	}
	if cur != nil && cur.Location == location {
		return cur
	}

	created := vm.newUpvalue(location)
	created.NextOpen = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// closeUpvalues closes every open upvalue at or above last, copying each
// referent off the stack into owned storage (original's close_upvalues).
func (vm *VM) closeUpvalues(last *value.Value) {
	for vm.openUpvalues != nil && uintptrOf(vm.openUpvalues.Location) >= uintptrOf(last) {
		up := vm.openUpvalues
		vm.openUpvalues = up.NextOpen
		up.Close()
	}
}

// concatenate pops the top two stack values (assumed strings) and pushes
// their interned concatenation.
func (vm *VM) concatenate() {
	b := vm.pop().AsObject().(*value.String)
	a := vm.pop().AsObject().(*value.String)
	vm.push(value.Object(vm.internString(a.Chars + b.Chars)))
}

