package value

// Upvalue is either "open" (Location points into the value stack) or
// "closed" (Closed holds an owned Value). Open upvalues additionally form
// a singly linked list owned by the VM (via Next), kept sorted by
// descending stack address of the referent, so that any local's upvalue
// is found or created in O(depth-from-top) (spec.md §3).
type Upvalue struct {
	Header
	Location *Value // non-nil while open
	Closed   Value
	NextOpen *Upvalue // VM's open-upvalue list linkage; nil once closed
}

var _ Obj = (*Upvalue)(nil)

func (u *Upvalue) objKind() ObjKind { return ObjUpvalue }

func (u *Upvalue) String() string { return "upvalue" }

// Get returns the upvalue's current value, whether open or closed.
func (u *Upvalue) Get() Value {
	if u.Location != nil {
		return *u.Location
	}
	return u.Closed
}

// Set writes through to the stack slot if open, or to the owned storage
// if closed.
func (u *Upvalue) Set(v Value) {
	if u.Location != nil {
		*u.Location = v
		return
	}
	u.Closed = v
}

// Close copies the current value out of the stack slot into owned
// storage and severs the Location pointer, turning the upvalue closed.
func (u *Upvalue) Close() {
	u.Closed = *u.Location
	u.Location = nil
	u.NextOpen = nil
}

// IsOpen reports whether the upvalue still refers to a live stack slot.
func (u *Upvalue) IsOpen() bool { return u.Location != nil }
