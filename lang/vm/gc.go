package vm

import (
	"github.com/mna/glox/lang/table"
	"github.com/mna/glox/lang/value"
)

// gcGrowFactor matches original_source/include/memory.h's GC_GROW_FACTOR:
// after each collection the next threshold is set to a multiple of the
// bytes still live, so the heap grows proportionally to its own size
// rather than by a fixed increment.
const gcGrowFactor = 2

// initialGCThreshold mirrors original_source/src/vm.c's `vm.gc.threshold =
// 2 << 8`: deliberately small, so the first few collections happen early
// and the growth policy takes over from real data.
const initialGCThreshold = 2 << 8

// objectSize estimates the bytes a heap object is "charged" against the
// allocator's threshold. Go has no sizeof/malloc to hook, so sizes are
// approximated by shape (a fixed header cost plus any variable-length
// payload), which is enough to reproduce the original's amortized-growth
// behavior without pretending to track exact host memory use.
func objectSize(o value.Obj) int {
	const headerCost = 16
	switch t := o.(type) {
	case *value.String:
		return headerCost + t.Len()
	case *value.Function:
		return headerCost + 64
	case *value.Closure:
		return headerCost + 8*len(t.Upvalues)
	case *value.Native:
		return headerCost + len(t.Name)
	case *value.Upvalue:
		return headerCost
	case *value.Class:
		return headerCost + 32
	case *value.Instance:
		return headerCost + 32
	case *value.BoundMethod:
		return headerCost
	default:
		return headerCost
	}
}

// registerObject links a freshly built object into the VM's intrusive
// object list and charges its estimated size against the allocator,
// triggering a collection if the threshold (or stress mode) demands it —
// original_source/src/memory.c's reallocate().
func (vm *VM) registerObject(o value.Obj) {
	value.SetNext(o, vm.objects)
	vm.objects = o
	vm.allocated += objectSize(o)

	if vm.collecting {
		return
	}
	if vm.gcStress || vm.allocated >= vm.gcThreshold {
		vm.collectGarbage()
	}
}

// --- Allocator (compiler.Allocator) and internal construction -----------

// InternString returns the single *value.String for s's contents,
// allocating and registering one if this is the first occurrence
// (spec.md §3 "String object": "interning is enforced on construction").
func (vm *VM) InternString(s string) *value.String {
	return vm.internString(s)
}

func (vm *VM) internString(s string) *value.String {
	hash := value.HashOf(s)
	if found, ok := vm.strings.FindString(hash, func(k *value.String) bool { return k.Chars == s }); ok {
		return found
	}
	str := value.NewStringUninterned(s)
	vm.registerObject(str)
	vm.strings.Set(str, str)
	return str
}

// NewFunction allocates a not-yet-populated function object.
func (vm *VM) NewFunction(name *value.String, arity int) *value.Function {
	fn := &value.Function{Name: name, Arity: arity}
	vm.registerObject(fn)
	return fn
}

// NewClosure wraps fn in a closure with fn.UpvalueCount nil upvalue
// slots, ready for OP_CLOSURE's descriptor loop to fill in.
func (vm *VM) NewClosure(fn *value.Function) *value.Closure {
	cl := value.NewClosure(fn)
	vm.registerObject(cl)
	return cl
}

func (vm *VM) newNative(name string, fn func(args []value.Value) (value.Value, error)) *value.Native {
	n := &value.Native{Name: name, Fn: fn}
	vm.registerObject(n)
	return n
}

func (vm *VM) newClass(name *value.String) *value.Class {
	c := value.NewClass(name)
	vm.registerObject(c)
	return c
}

func (vm *VM) newInstance(cls *value.Class) *value.Instance {
	i := value.NewInstance(cls)
	vm.registerObject(i)
	return i
}

func (vm *VM) newUpvalue(loc *value.Value) *value.Upvalue {
	u := &value.Upvalue{Location: loc}
	vm.registerObject(u)
	return u
}

func (vm *VM) newBoundMethod(receiver value.Value, method *value.Closure) *value.BoundMethod {
	b := &value.BoundMethod{Receiver: receiver, Method: method}
	vm.registerObject(b)
	return b
}

// PinRoot and Unpin implement the "construction pin" alternative spec.md
// §9 authorizes in place of walking the compiler's frame chain as GC
// roots: an object under construction (e.g. a constant about to be
// appended to a chunk's pool) is kept reachable by pushing it here for
// the duration of the operation that might trigger a collection.
func (vm *VM) PinRoot(v value.Value) { vm.pinned = append(vm.pinned, v) }

func (vm *VM) Unpin() { vm.pinned = vm.pinned[:len(vm.pinned)-1] }

// --- mark-sweep collector -------------------------------------------------

func (vm *VM) markValue(v value.Value) {
	if v.IsObject() {
		vm.markObject(v.AsObject())
	}
}

func (vm *VM) markObject(o value.Obj) bool {
	if o == nil {
		return false
	}
	if value.Marked(o) {
		return true
	}
	value.SetMarked(o, true)
	vm.gray = append(vm.gray, o)
	return true
}

func markTable[K table.Key, V any](vm *VM, t *table.Table[K, V], markKey func(K), markVal func(V)) {
	t.Each(func(k K, v V) {
		markKey(k)
		markVal(v)
	})
}

// markRoots marks every Value directly reachable from the VM's own state:
// the live stack range, the globals table, each active call frame's
// closure, and the open-upvalue list — original_source/src/memory.c's
// mark_vm_roots(). Compiler-held roots are covered by PinRoot/Unpin
// instead of a parallel mark_compiler_roots walk (spec.md §9).
func (vm *VM) markRoots() {
	for i := 0; i < vm.stackTop; i++ {
		vm.markValue(vm.stack[i])
	}
	markTable(vm, &vm.globals, func(s *value.String) { vm.markObject(s) }, vm.markValue)
	for i := 0; i < vm.frameCount; i++ {
		vm.markObject(vm.frames[i].closure)
	}
	for up := vm.openUpvalues; up != nil; up = up.NextOpen {
		vm.markObject(up)
	}
	for _, v := range vm.pinned {
		vm.markValue(v)
	}
}

// blacken marks every object directly referenced by o, per
// original_source/src/memory.c's mark_reachable_objects().
func (vm *VM) blacken(o value.Obj) {
	switch t := o.(type) {
	case *value.String, *value.Native:
		// no outgoing references
	case *value.Function:
		if t.Name != nil {
			vm.markObject(t.Name)
		}
		for _, c := range t.Chunk.Constants {
			vm.markValue(c.(value.Value))
		}
	case *value.Closure:
		vm.markObject(t.Fn)
		for _, u := range t.Upvalues {
			if u != nil {
				vm.markObject(u)
			}
		}
	case *value.Upvalue:
		vm.markValue(t.Get())
	case *value.Class:
		vm.markObject(t.Name)
		markTable(vm, &t.Methods, func(s *value.String) { vm.markObject(s) }, vm.markValue)
	case *value.Instance:
		vm.markObject(t.Class)
		markTable(vm, &t.Fields, func(s *value.String) { vm.markObject(s) }, vm.markValue)
	case *value.BoundMethod:
		vm.markValue(t.Receiver)
		vm.markObject(t.Method)
	}
}

// traceReferences drains the gray worklist, blackening each object in
// turn, until every reachable object has been visited exactly once
// (original_source/src/memory.c's discover_all_reachable()).
func (vm *VM) traceReferences() {
	for len(vm.gray) > 0 {
		o := vm.gray[len(vm.gray)-1]
		vm.gray = vm.gray[:len(vm.gray)-1]
		vm.blacken(o)
	}
}

// sweep walks the intrusive object list, dropping every object whose
// mark bit was not set this cycle and clearing the bit on survivors for
// the next one (original_source/src/memory.c's sweep_unreachable()).
func (vm *VM) sweep() {
	var prev value.Obj
	cur := vm.objects
	for cur != nil {
		if value.Marked(cur) {
			value.SetMarked(cur, false)
			prev = cur
			cur = value.Next(cur)
			continue
		}
		unreachable := cur
		cur = value.Next(unreachable)
		if prev == nil {
			vm.objects = cur
		} else {
			value.SetNext(prev, cur)
		}
		value.SetNext(unreachable, nil)
		vm.allocated -= objectSize(unreachable)
	}
}

// collectGarbage runs one full mark-sweep cycle. The collecting guard
// matches spec.md §5's "the GC never runs inside itself": registerObject
// skips the threshold check entirely while a collection is already in
// progress.
func (vm *VM) collectGarbage() {
	vm.collecting = true
	defer func() { vm.collecting = false }()

	if vm.traceEnabled {
		vm.traceGCBegin()
	}

	vm.markRoots()
	vm.traceReferences()
	vm.strings.RemoveUnreachable(func(s *value.String) bool { return value.Marked(s) })
	vm.sweep()
	vm.gcThreshold = vm.allocated * gcGrowFactor

	if vm.traceEnabled {
		vm.traceGCEnd()
	}
}
