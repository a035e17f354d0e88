package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeStoreOrder(t *testing.T) {
	s := NewAttributeStore()
	require.NoError(t, s.Set("title", "profile"))
	require.NoError(t, s.Set("institution", "NPI"))
	require.NoError(t, s.Set("title", "depth profile"))

	assert.Equal(t, []string{"title", "institution"}, s.Keys())
	v, ok := s.Get("title")
	require.True(t, ok)
	assert.Equal(t, "depth profile", v)
}

func TestAttributeStoreSetAll(t *testing.T) {
	s := NewAttributeStore()
	require.NoError(t, s.SetAll(
		Attr("b", 1),
		Attr("a", 2.5),
		Attr("c", []float32{1, 2}),
	))
	assert.Equal(t, []string{"b", "a", "c"}, s.Keys())

	v, _ := s.Get("b")
	assert.Equal(t, int64(1), v, "plain int widens to int64")
	v, _ = s.Get("c")
	assert.Equal(t, []float32{1, 2}, v)
}

func TestAttributeStoreRejects(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"nil value", "units", nil},
		{"empty key", "", "m"},
		{"empty sequence", "valid_range", []float64{}},
		{"unsupported type", "flag", struct{}{}},
		{"string sequence", "names", []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewAttributeStore()
			err := s.Set(tt.key, tt.value)
			require.ErrorIs(t, err, ErrInvalidAttribute)
			assert.Equal(t, 0, s.Len())
		})
	}
}

func TestAttributeStoreDelete(t *testing.T) {
	s := NewAttributeStore()
	require.NoError(t, s.SetAll(Attr("a", "1"), Attr("b", "2"), Attr("c", "3")))
	require.NoError(t, s.Delete("b"))
	require.NoError(t, s.Delete("missing"))
	assert.Equal(t, []string{"a", "c"}, s.Keys())
	assert.False(t, s.Has("b"))
}

func TestAttributeStoreCopiesSlices(t *testing.T) {
	in := []float64{1, 2}
	s := NewAttributeStore()
	require.NoError(t, s.Set("valid_range", in))
	in[0] = 99

	v, _ := s.Get("valid_range")
	assert.Equal(t, []float64{1, 2}, v)
}

func TestAttributeStoreEqualIgnoresOrder(t *testing.T) {
	a := NewAttributeStore()
	b := NewAttributeStore()
	require.NoError(t, a.SetAll(Attr("x", "1"), Attr("y", 2.0)))
	require.NoError(t, b.SetAll(Attr("y", 2.0), Attr("x", "1")))
	assert.True(t, a.Equal(b))

	require.NoError(t, b.Set("y", float32(2)))
	assert.False(t, a.Equal(b))
}

func TestAttributeStoreFrozen(t *testing.T) {
	s := NewAttributeStore()
	require.NoError(t, s.Set("a", "1"))
	s.freeze()
	assert.ErrorIs(t, s.Set("b", "2"), ErrFinalized)
	assert.ErrorIs(t, s.Delete("a"), ErrFinalized)
}
