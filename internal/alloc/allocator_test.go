package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocSequential(t *testing.T) {
	a := New(48)
	assert.Equal(t, uint64(48), a.Alloc(16, "a"))
	assert.Equal(t, uint64(64), a.Alloc(100, "b"))
	assert.Equal(t, uint64(164), a.EOF())
	assert.Equal(t, uint64(164), a.Alloc(0, "empty"))
	assert.Equal(t, uint64(164), a.EOF())

	st := a.Stats()
	assert.Equal(t, 2, st.Blocks)
	assert.Equal(t, uint64(116), st.Bytes)
	assert.Equal(t, uint64(100), st.Largest)
}

func TestAllocAligned(t *testing.T) {
	a := New(48)
	a.Alloc(3, "odd")
	addr := a.AllocAligned(8, 8, "aligned")
	assert.Equal(t, uint64(56), addr)
	assert.Equal(t, uint64(5), a.Stats().Padding)
	require.NoError(t, a.Validate())
}

func TestValidate(t *testing.T) {
	a := New(0)
	a.Alloc(10, "x")
	a.Alloc(10, "y")
	require.NoError(t, a.Validate())

	a.blocks = append(a.blocks, Block{Addr: 5, Size: 2, Tag: "bad"})
	assert.Error(t, a.Validate())
}
