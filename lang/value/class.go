package value

import "github.com/mna/glox/lang/table"

// Class is a name plus a method table (string -> closure), per spec.md §3.
type Class struct {
	Header
	Name    *String
	Methods table.Table[*String, Value]
}

var _ Obj = (*Class)(nil)

func (c *Class) objKind() ObjKind { return ObjClass }

func (c *Class) String() string { return c.Name.Chars }

// NewClass allocates an empty class named name.
func NewClass(name *String) *Class { return &Class{Name: name} }

// Instance is a class reference plus a field table (string -> Value),
// per spec.md §3.
type Instance struct {
	Header
	Class  *Class
	Fields table.Table[*String, Value]
}

var _ Obj = (*Instance)(nil)

func (i *Instance) objKind() ObjKind { return ObjInstance }

func (i *Instance) String() string { return i.Class.Name.Chars + " instance" }

// NewInstance allocates an instance of class cls with no fields set.
func NewInstance(cls *Class) *Instance { return &Instance{Class: cls} }

// BoundMethod pairs a receiver Value with a closure. Its lifetime is
// independent of the receiver; the receiver is kept alive through the
// bound method (spec.md §3).
type BoundMethod struct {
	Header
	Receiver Value
	Method   *Closure
}

var _ Obj = (*BoundMethod)(nil)

func (b *BoundMethod) objKind() ObjKind { return ObjBoundMethod }

func (b *BoundMethod) String() string { return b.Method.String() }
