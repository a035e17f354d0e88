package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	var r Registry
	require.NoError(t, r.Register("depth", 4))
	require.NoError(t, r.Register("time", 2))
	require.NoError(t, r.Register("depth", 4), "same length again is a no-op")

	assert.ErrorIs(t, r.Register("depth", 5), ErrDimensionConflict)
	assert.ErrorIs(t, r.Register("lat", -1), ErrShapeMismatch)

	n, err := r.Resolve("time")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = r.Resolve("lat")
	assert.ErrorIs(t, err, ErrUnknownDimension)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 1, r.Index("time"))
	assert.Equal(t, -1, r.Index("lat"))
	assert.Equal(t, []Dimension{{"depth", 4}, {"time", 2}}, r.Dimensions())
}
