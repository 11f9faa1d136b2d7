package value_test

import (
	"math"
	"testing"

	"github.com/mna/glox/lang/value"
	"github.com/stretchr/testify/assert"
)

func TestFalseyTruthy(t *testing.T) {
	assert.True(t, value.Nil.Falsey())
	assert.True(t, value.Bool(false).Falsey())
	assert.False(t, value.Bool(true).Falsey())
	assert.False(t, value.Number(0).Falsey(), "0 is truthy")
	assert.True(t, value.Number(0).Truthy())
	assert.True(t, value.Object(value.NewStringUninterned("")).Truthy(), "empty string is truthy")
}

func TestEqualNil(t *testing.T) {
	assert.True(t, value.Equal(value.Nil, value.Nil))
	assert.False(t, value.Equal(value.Nil, value.Bool(false)), "different kinds never compare equal")
}

func TestEqualBool(t *testing.T) {
	assert.True(t, value.Equal(value.Bool(true), value.Bool(true)))
	assert.False(t, value.Equal(value.Bool(true), value.Bool(false)))
}

func TestEqualNumberIEEE(t *testing.T) {
	assert.True(t, value.Equal(value.Number(1), value.Number(1)))
	assert.False(t, value.Equal(value.Number(1), value.Number(2)))

	nan := value.Number(math.NaN())
	assert.False(t, value.Equal(nan, nan), "NaN != NaN even when it is the same Value")

	assert.True(t, value.Equal(value.Number(0), value.Number(math.Copysign(0, -1))), "0 == -0")
}

func TestEqualObjectIdentity(t *testing.T) {
	a := value.NewStringUninterned("hi")
	b := value.NewStringUninterned("hi")
	// Not interned through a shared table: same contents, different
	// objects, so identity-based string equality reports them unequal.
	assert.False(t, value.Equal(value.Object(a), value.Object(b)))
	assert.True(t, value.Equal(value.Object(a), value.Object(a)))
}

func TestObjKindAndIs(t *testing.T) {
	s := value.NewStringUninterned("x")
	v := value.Object(s)
	assert.Equal(t, value.ObjString, v.ObjKind())
	assert.True(t, v.Is(value.ObjString))
	assert.False(t, v.Is(value.ObjFunction))
	assert.Equal(t, value.ObjKind(0), value.Nil.ObjKind())
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "nil", value.Stringify(value.Nil))
	assert.Equal(t, "true", value.Stringify(value.Bool(true)))
	assert.Equal(t, "false", value.Stringify(value.Bool(false)))
	assert.Equal(t, "3", value.Stringify(value.Number(3)))
	assert.Equal(t, "3.5", value.Stringify(value.Number(3.5)))
	assert.Equal(t, "hi", value.Stringify(value.Object(value.NewStringUninterned("hi"))))
}

func TestStringHashStable(t *testing.T) {
	a := value.NewStringUninterned("hello")
	b := value.NewStringUninterned("hello")
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Equal(t, value.HashOf("hello"), a.Hash())
}

func TestStringLen(t *testing.T) {
	s := value.NewStringUninterned("hello")
	assert.Equal(t, 5, s.Len())
}
