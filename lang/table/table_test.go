package table_test

import (
	"testing"

	"github.com/mna/glox/lang/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// key is a minimal table.Key for exercising Table in isolation, independent
// of lang/value's *String (which is itself backed by this package).
type key string

func (k key) Hash() uint32 {
	const (
		offsetBasis = 2166136261
		prime       = 16777619
	)
	h := uint32(offsetBasis)
	for i := 0; i < len(k); i++ {
		h ^= uint32(k[i])
		h *= prime
	}
	return h
}

func TestSetGetHas(t *testing.T) {
	var tbl table.Table[key, int]

	existed := tbl.Set("a", 1)
	assert.False(t, existed)
	existed = tbl.Set("b", 2)
	assert.False(t, existed)

	existed = tbl.Set("a", 10)
	assert.True(t, existed, "re-setting an existing key reports it as already present")

	v, ok := tbl.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)

	v, ok = tbl.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	assert.True(t, tbl.Has("a"))
	assert.False(t, tbl.Has("missing"))
	assert.Equal(t, 2, tbl.Len())
}

func TestGetMissingOnEmptyTable(t *testing.T) {
	var tbl table.Table[key, int]
	_, ok := tbl.Get("anything")
	assert.False(t, ok)
}

func TestDeleteLeavesTombstoneButShrinksCount(t *testing.T) {
	var tbl table.Table[key, int]
	tbl.Set("a", 1)
	tbl.Set("b", 2)

	val, ok := tbl.Delete("a")
	require.True(t, ok)
	assert.Equal(t, 1, val)
	assert.Equal(t, 1, tbl.Len())
	assert.False(t, tbl.Has("a"))

	// "b" must still resolve correctly: the tombstone left behind by
	// deleting "a" must not break b's probe chain.
	v, ok := tbl.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = tbl.Delete("a")
	assert.False(t, ok, "deleting an already-deleted key is a no-op")
}

func TestSetAfterDeleteReusesTombstone(t *testing.T) {
	var tbl table.Table[key, int]
	tbl.Set("a", 1)
	tbl.Delete("a")

	existed := tbl.Set("a", 99)
	assert.False(t, existed, "re-inserting after delete is not a prior hit")
	v, ok := tbl.Get("a")
	require.True(t, ok)
	assert.Equal(t, 99, v)
	assert.Equal(t, 1, tbl.Len())
}

func TestGrowthPreservesAllEntries(t *testing.T) {
	var tbl table.Table[key, int]
	const n = 200
	for i := 0; i < n; i++ {
		k := key(rune('A') + rune(i%26))
		k = key(string(k) + string(rune('0'+i%10)) + string(rune('a'+i%5)))
		tbl.Set(k, i)
	}
	// re-read everything back; growth must not have lost or corrupted entries.
	seen := map[key]int{}
	tbl.Each(func(k key, v int) { seen[k] = v })
	for k, v := range seen {
		got, ok := tbl.Get(k)
		require.True(t, ok)
		assert.Equal(t, v, got)
	}
}

func TestEach(t *testing.T) {
	var tbl table.Table[key, int]
	tbl.Set("a", 1)
	tbl.Set("b", 2)
	tbl.Delete("b")
	tbl.Set("c", 3)

	seen := map[key]int{}
	tbl.Each(func(k key, v int) { seen[k] = v })
	assert.Equal(t, map[key]int{"a": 1, "c": 3}, seen)
}

func TestRemoveUnreachable(t *testing.T) {
	var tbl table.Table[key, int]
	tbl.Set("keep", 1)
	tbl.Set("drop", 2)

	tbl.RemoveUnreachable(func(k key) bool { return k == "keep" })

	assert.True(t, tbl.Has("keep"))
	assert.False(t, tbl.Has("drop"))
	assert.Equal(t, 1, tbl.Len())
}

func TestFindString(t *testing.T) {
	var tbl table.Table[key, key]
	tbl.Set("hello", "hello")
	tbl.Set("world", "world")

	found, ok := tbl.FindString(key("hello").Hash(), func(k key) bool { return string(k) == "hello" })
	require.True(t, ok)
	assert.Equal(t, key("hello"), found)

	_, ok = tbl.FindString(key("missing").Hash(), func(k key) bool { return string(k) == "missing" })
	assert.False(t, ok)
}

func TestFindStringOnEmptyTable(t *testing.T) {
	var tbl table.Table[key, key]
	_, ok := tbl.FindString(key("x").Hash(), func(k key) bool { return true })
	assert.False(t, ok)
}
