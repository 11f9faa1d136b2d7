package vm

import (
	"unsafe"

	"github.com/mna/glox/lang/value"
)

// uintptrOf orders pointers into vm.stack so the open-upvalue list can be
// kept sorted by descending stack address (spec.md §3). Go pointers
// support equality but not relational comparison directly; converting to
// uintptr for ordering within a single non-moving allocation (vm.stack is
// a fixed array embedded in VM, never reallocated) is the standard idiom
// for this.
func uintptrOf(p *value.Value) uintptr { return uintptr(unsafe.Pointer(p)) }
