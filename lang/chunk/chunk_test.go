package chunk_test

import (
	"testing"

	"github.com/mna/glox/lang/chunk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndLineFor(t *testing.T) {
	var c chunk.Chunk
	c.Append(1, 10)
	c.Append(2, 10)
	c.Append(3, 11)
	c.AppendBytes(12, 4, 5, 6)

	assert.Equal(t, 6, c.Len())
	assert.Equal(t, 10, c.LineFor(0))
	assert.Equal(t, 10, c.LineFor(1))
	assert.Equal(t, 11, c.LineFor(2))
	assert.Equal(t, 12, c.LineFor(3))
	assert.Equal(t, 12, c.LineFor(5))
}

func TestAddConstant(t *testing.T) {
	var c chunk.Chunk
	off, err := c.AddConstant("a")
	require.NoError(t, err)
	assert.Equal(t, 0, off)

	off, err = c.AddConstant("b")
	require.NoError(t, err)
	assert.Equal(t, 1, off)
	assert.Equal(t, []chunk.Value{"a", "b"}, c.Constants)
}

func TestAddConstantPoolFull(t *testing.T) {
	var c chunk.Chunk
	c.Constants = make([]chunk.Value, chunk.MaxConstants)

	_, err := c.AddConstant("overflow")
	require.ErrorIs(t, err, chunk.ErrPoolFull)
	assert.Len(t, c.Constants, chunk.MaxConstants)
}

func TestLineForEmptyChunk(t *testing.T) {
	var c chunk.Chunk
	assert.Equal(t, 0, c.LineFor(0))
}
