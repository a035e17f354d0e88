package layout

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/cfnc/internal/binary"
	"github.com/robert-malhotra/cfnc/internal/filter"
	"github.com/robert-malhotra/cfnc/internal/message"
)

func fileWith(data []byte, at int) *binary.Reader {
	buf := make([]byte, at+len(data))
	copy(buf[at:], data)
	return binary.NewBytesReader(buf, binary.DefaultConfig())
}

func TestCompact(t *testing.T) {
	l, err := New(Storage{Layout: &message.DataLayout{Class: message.LayoutCompact, Compact: []byte{1, 2, 3, 4}}}, nil)
	require.NoError(t, err)
	assert.Equal(t, message.LayoutCompact, l.Class())

	got, err := l.Read(4)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, got)

	_, err = l.Read(8)
	assert.Error(t, err)
}

func TestContiguous(t *testing.T) {
	data := []byte{10, 20, 30, 40, 50, 60}
	l, err := New(Storage{Layout: message.NewContiguousLayout(32, 6), ElemSize: 2}, fileWith(data, 32))
	require.NoError(t, err)

	got, err := l.Read(6)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = l.Read(12)
	assert.Error(t, err, "reading past the end of the file")
}

func TestContiguousUnwritten(t *testing.T) {
	fill := &message.FillValue{Defined: true, Value: []byte{0xff, 0x7f}}
	s := Storage{
		Layout:   message.NewContiguousLayout(binary.Undefined, 0),
		Fill:     fill,
		ElemSize: 2,
	}
	l, err := New(s, fileWith(nil, 0))
	require.NoError(t, err)

	got, err := l.Read(6)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0x7f, 0xff, 0x7f, 0xff, 0x7f}, got)

	s.Fill = nil
	l, err = New(s, fileWith(nil, 0))
	require.NoError(t, err)
	got, err = l.Read(4)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 4), got)
}

func TestChunkedRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte{1, 0, 0, 0}, 256)
	fp := &message.FilterPipeline{Filters: filter.Messages(4, 6, true)}
	stored, err := Store(raw, fp)
	require.NoError(t, err)
	assert.Less(t, len(stored), len(raw))

	s := Storage{
		Layout:   message.NewSingleChunkLayout([]uint64{256}, 4, 64, true, uint64(len(stored))),
		Filters:  fp,
		ElemSize: 4,
	}
	l, err := New(s, fileWith(stored, 64))
	require.NoError(t, err)
	assert.Equal(t, message.LayoutChunked, l.Class())

	got, err := l.Read(len(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestChunkedUnfiltered(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	s := Storage{
		Layout:   message.NewSingleChunkLayout([]uint64{2}, 4, 16, false, 0),
		ElemSize: 4,
	}
	l, err := New(s, fileWith(raw, 16))
	require.NoError(t, err)
	got, err := l.Read(8)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestStoreWithoutPipeline(t *testing.T) {
	raw := []byte{1, 2, 3}
	got, err := Store(raw, nil)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestNewRejects(t *testing.T) {
	_, err := New(Storage{}, nil)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = New(Storage{Layout: &message.DataLayout{Class: message.LayoutClass(7)}}, nil)
	assert.ErrorIs(t, err, ErrUnsupported)

	btree := message.NewSingleChunkLayout([]uint64{4}, 4, 0, false, 0)
	btree.Index = message.ChunkIndexBTreeV2
	_, err = New(Storage{Layout: btree}, nil)
	assert.ErrorIs(t, err, ErrUnsupported)

	unknown := &message.FilterPipeline{Filters: []message.Filter{{ID: 32000}}}
	_, err = New(Storage{Layout: message.NewSingleChunkLayout([]uint64{4}, 4, 0, true, 8), Filters: unknown}, nil)
	assert.ErrorIs(t, err, ErrUnsupported)
}
