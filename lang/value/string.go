package value

// fnv1a32 computes the 32-bit FNV-1a hash of s. Reimplemented inline
// (rather than through hash/fnv's streaming hash.Hash32, which forces an
// allocation per call) using the exact constants from
// original_source/src/object.c's hash_string.
func fnv1a32(s string) uint32 {
	const (
		offsetBasis = 2166136261
		prime       = 16777619
	)
	h := uint32(offsetBasis)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// String is an immutable, interned byte sequence. Interning is enforced on
// construction (spec.md §3): obtaining a *String always goes through the
// VM's intern table, so two equal-content strings anywhere in a running
// program are always the identical object, and Value equality can compare
// interned strings by pointer identity.
type String struct {
	Header
	Chars string
	hash  uint32
}

var (
	_ Obj = (*String)(nil)
)

func (s *String) objKind() ObjKind { return ObjString }

// Hash satisfies table.Key.
func (s *String) Hash() uint32 { return s.hash }

func (s *String) String() string { return s.Chars }

// Len returns the byte length of the string's contents.
func (s *String) Len() int { return len(s.Chars) }

// NewStringUninterned builds a *String without consulting the intern
// table. It exists only for the VM's interning path itself (which must
// construct a candidate before it can look it up or insert it) and for
// tests; all other callers must go through the VM's InternString so the
// "exactly one object per distinct content" invariant holds.
func NewStringUninterned(chars string) *String {
	return &String{Chars: chars, hash: fnv1a32(chars)}
}

// HashOf is exported so the interning table's lookup-by-content helper
// (table.Table.FindString) can be driven without constructing a candidate
// *String first.
func HashOf(chars string) uint32 { return fnv1a32(chars) }
