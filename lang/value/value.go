// Package value implements the tagged Value union and the heap Obj
// hierarchy described in spec.md §3: nil, booleans, IEEE doubles, and
// heap-object references (strings, functions, closures, upvalues, natives,
// classes, instances, bound methods).
//
// A concrete tagged struct is used instead of an interface family (contrast
// with mna-nenuphar/lang/machine/value.go's Value interface) because the
// VM stores Value directly in a flat, preallocated stack and pushes/pops it
// on every instruction; boxing every push through an interface would cost
// an allocation exactly where spec.md §5 says none may occur outside the
// allocator.
package value

import "math"

type kind uint8

const (
	kindNil kind = iota
	kindBool
	kindNumber
	kindObject
)

// Value is nil, a boolean, a double, or a reference to a heap Obj.
type Value struct {
	k   kind
	num float64
	obj Obj
}

// Nil is the Lox nil value.
var Nil = Value{k: kindNil}

// Bool returns a boolean Value.
func Bool(b bool) Value {
	if b {
		return Value{k: kindBool, num: 1}
	}
	return Value{k: kindBool, num: 0}
}

// Number returns a numeric Value.
func Number(f float64) Value { return Value{k: kindNumber, num: f} }

// Object returns a Value referencing a heap object.
func Object(o Obj) Value { return Value{k: kindObject, obj: o} }

func (v Value) IsNil() bool    { return v.k == kindNil }
func (v Value) IsBool() bool   { return v.k == kindBool }
func (v Value) IsNumber() bool { return v.k == kindNumber }
func (v Value) IsObject() bool { return v.k == kindObject }

// AsBool returns the boolean payload. Only valid if IsBool.
func (v Value) AsBool() bool { return v.num != 0 }

// AsNumber returns the numeric payload. Only valid if IsNumber.
func (v Value) AsNumber() float64 { return v.num }

// AsObject returns the heap object payload. Only valid if IsObject.
func (v Value) AsObject() Obj { return v.obj }

// ObjKind returns the heap object's kind, or a zero ObjKind if v is not an
// object.
func (v Value) ObjKind() ObjKind {
	if v.k != kindObject {
		return 0
	}
	return v.obj.objKind()
}

// Is reports whether v is an object of the given kind.
func (v Value) Is(k ObjKind) bool { return v.k == kindObject && v.obj.objKind() == k }

// Falsey reports whether v is "falsey": nil or boolean false. Everything
// else, including 0 and the empty string, is truthy (spec.md §3).
func (v Value) Falsey() bool {
	switch v.k {
	case kindNil:
		return true
	case kindBool:
		return v.num == 0
	default:
		return false
	}
}

// Truthy is the negation of Falsey.
func (v Value) Truthy() bool { return !v.Falsey() }

// Equal implements spec.md §3's value equality: nil=nil; booleans by
// value; numbers by IEEE equality (NaN≠NaN, 0==-0); heap objects by
// identity, except interned strings, whose identity coincides with
// content equality because they are deduplicated on construction.
func Equal(a, b Value) bool {
	if a.k != b.k {
		return false
	}
	switch a.k {
	case kindNil:
		return true
	case kindBool:
		return a.num == b.num
	case kindNumber:
		return a.num == b.num // Go's == on float64 already gives IEEE semantics
	case kindObject:
		if as, ok := a.obj.(*String); ok {
			if bs, ok := b.obj.(*String); ok {
				return as == bs // interning makes identity equivalent to content equality
			}
			return false
		}
		return a.obj == b.obj
	}
	return false
}

// IsNaN reports whether v is the numeric NaN value, a case callers
// sometimes need to special-case explicitly (e.g. ordering comparisons).
func (v Value) IsNaN() bool { return v.k == kindNumber && math.IsNaN(v.num) }
