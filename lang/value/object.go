package value

// ObjKind discriminates the heap object hierarchy (spec.md §3).
type ObjKind uint8

const (
	_ ObjKind = iota
	ObjString
	ObjFunction
	ObjClosure
	ObjUpvalue
	ObjNative
	ObjClass
	ObjInstance
	ObjBoundMethod
)

func (k ObjKind) String() string {
	switch k {
	case ObjString:
		return "string"
	case ObjFunction:
		return "function"
	case ObjClosure:
		return "closure"
	case ObjUpvalue:
		return "upvalue"
	case ObjNative:
		return "native"
	case ObjClass:
		return "class"
	case ObjInstance:
		return "instance"
	case ObjBoundMethod:
		return "bound method"
	default:
		return "unknown"
	}
}

// Obj is implemented by every heap object. Every heap object carries a kind
// tag, an intrusive pointer into the VM's global object list, and a mark
// bit (spec.md §3 "Heap object header"); Header provides exactly that, and
// concrete object types embed it.
type Obj interface {
	objKind() ObjKind
	header() *Header
}

// Header is embedded in every heap object. The VM's object list owns the
// Next chain; only the garbage collector removes nodes from it.
type Header struct {
	Marked bool
	Next   Obj
}

func (h *Header) header() *Header { return h }

// Marked reports whether obj has been marked by the current (or most
// recent) collection cycle.
func Marked(o Obj) bool { return o.header().Marked }

// SetMarked sets obj's mark bit.
func SetMarked(o Obj, m bool) { o.header().Marked = m }

// Next returns the next object in the VM's intrusive object list.
func Next(o Obj) Obj { return o.header().Next }

// SetNext sets the next pointer in the VM's intrusive object list.
func SetNext(o Obj, next Obj) { o.header().Next = next }
