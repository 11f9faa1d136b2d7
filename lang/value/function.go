package value

import "github.com/mna/glox/lang/chunk"

// Function is immutable after compilation: arity, upvalue count, an owned
// Chunk, and an optional name (spec.md §3).
type Function struct {
	Header
	Arity        int
	UpvalueCount int
	Chunk        chunk.Chunk
	Name         *String // nil for the synthesized top-level script function
}

var _ Obj = (*Function)(nil)

func (f *Function) objKind() ObjKind { return ObjFunction }

func (f *Function) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return "<fn " + f.Name.Chars + ">"
}

// Closure pairs a function with an array of upvalue references sized to
// Fn.UpvalueCount. Upvalues may be nil during the tight window between
// closure allocation and OP_CLOSURE finishing (spec.md §3).
type Closure struct {
	Header
	Fn       *Function
	Upvalues []*Upvalue
}

var _ Obj = (*Closure)(nil)

func (c *Closure) objKind() ObjKind { return ObjClosure }

func (c *Closure) String() string { return c.Fn.String() }

// NewClosure allocates a closure for fn with an upvalue slice of the
// correct size, all nil until OP_CLOSURE's descriptor loop fills them in.
func NewClosure(fn *Function) *Closure {
	return &Closure{Fn: fn, Upvalues: make([]*Upvalue, fn.UpvalueCount)}
}

// Native wraps a host function (argc, argv) -> Value (spec.md §3).
type Native struct {
	Header
	Name string
	Fn   func(args []Value) (Value, error)
}

var _ Obj = (*Native)(nil)

func (n *Native) objKind() ObjKind { return ObjNative }

func (n *Native) String() string { return "<native fn " + n.Name + ">" }
