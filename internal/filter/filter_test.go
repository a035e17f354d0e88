package filter

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/cfnc/internal/message"
)

func float32Bytes(n int) []byte {
	buf := make([]byte, 4*n)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(270+float32(i)*0.01))
	}
	return buf
}

func TestShuffleLayout(t *testing.T) {
	s := NewShuffle([]uint32{2})
	got, err := s.Encode([]byte{1, 2, 3, 4, 5, 6, 7})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 3, 5, 2, 4, 6, 7}, got)

	back, err := s.Decode(got)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7}, back)
}

func TestDeflateRoundTrip(t *testing.T) {
	raw := float32Bytes(1000)
	d := NewDeflate([]uint32{9})
	packed, err := d.Encode(raw)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(raw))
	assert.Equal(t, byte(0x78), packed[0], "zlib header")

	got, err := d.Decode(packed)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestDeflateDefaultLevel(t *testing.T) {
	assert.Equal(t, DefaultLevel, NewDeflate(nil).Level())
}

func TestPipelineRoundTrip(t *testing.T) {
	raw := float32Bytes(500)
	p, err := NewPipeline(&message.FilterPipeline{Filters: Messages(4, 6, true)})
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())

	stored, err := p.Encode(raw)
	require.NoError(t, err)
	assert.False(t, bytes.Equal(raw, stored))

	got, err := p.Decode(stored, 0)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestPipelineShuffleHelpsCompression(t *testing.T) {
	raw := float32Bytes(2000)
	plain, err := NewPipeline(&message.FilterPipeline{Filters: Messages(4, 6, false)})
	require.NoError(t, err)
	shuffled, err := NewPipeline(&message.FilterPipeline{Filters: Messages(4, 6, true)})
	require.NoError(t, err)

	a, err := plain.Encode(raw)
	require.NoError(t, err)
	b, err := shuffled.Encode(raw)
	require.NoError(t, err)
	assert.Less(t, len(b), len(a))
}

func TestPipelineFilterMask(t *testing.T) {
	p, err := NewPipeline(&message.FilterPipeline{Filters: Messages(2, 1, true)})
	require.NoError(t, err)
	raw := []byte{1, 2, 3, 4}

	// Deflate skipped: stored bytes are only shuffled.
	shuffled, err := NewShuffle([]uint32{2}).Encode(raw)
	require.NoError(t, err)
	got, err := p.Decode(shuffled, 0b10)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestNewUnsupported(t *testing.T) {
	_, err := New(message.Filter{ID: 4})
	require.ErrorIs(t, err, ErrUnsupportedFilter)
	assert.Contains(t, err.Error(), "SZIP")

	f, err := New(message.Filter{ID: 32015, Flags: 1})
	require.NoError(t, err)
	assert.Nil(t, f)

	p, err := NewPipeline(&message.FilterPipeline{Filters: []message.Filter{{ID: 32015, Flags: 1}}})
	require.NoError(t, err)
	out, err := p.Decode([]byte{9}, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, out)

	p, err = NewPipeline(nil)
	require.NoError(t, err)
	assert.True(t, p.Empty())
}
