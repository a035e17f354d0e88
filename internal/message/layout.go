package message

import (
	"fmt"

	"github.com/robert-malhotra/cfnc/internal/binary"
)

// LayoutClass is the raw data storage class.
type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
)

// ChunkIndex is the version 4 chunk indexing type.
type ChunkIndex uint8

const (
	ChunkIndexSingle     ChunkIndex = 1
	ChunkIndexImplicit   ChunkIndex = 2
	ChunkIndexFixedArray ChunkIndex = 3
	ChunkIndexExtensible ChunkIndex = 4
	ChunkIndexBTreeV2    ChunkIndex = 5
)

// DataLayout is the data storage layout message (type 0x0008).
//
// Contiguous layouts use Address and Size. Chunked layouts written here
// always hold the whole dataset in one chunk: ChunkDims equals the dataset
// shape, Address points at the chunk, and Filtered records the on-disk
// chunk size and filter mask when a filter pipeline is present.
type DataLayout struct {
	Class   LayoutClass
	Address uint64
	Size    uint64

	ChunkDims   []uint64
	ElementSize uint32
	Index       ChunkIndex
	Filtered    bool
	ChunkSize   uint64
	FilterMask  uint32

	Compact []byte
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

// NewContiguousLayout stores size bytes at addr.
func NewContiguousLayout(addr, size uint64) *DataLayout {
	return &DataLayout{Class: LayoutContiguous, Address: addr, Size: size}
}

// NewSingleChunkLayout stores the whole dataset as one chunk at addr.
// chunkSize is the stored (possibly compressed) size when filtered is true.
func NewSingleChunkLayout(dims []uint64, elemSize uint32, addr uint64, filtered bool, chunkSize uint64) *DataLayout {
	return &DataLayout{
		Class:       LayoutChunked,
		Address:     addr,
		ChunkDims:   append([]uint64(nil), dims...),
		ElementSize: elemSize,
		Index:       ChunkIndexSingle,
		Filtered:    filtered,
		ChunkSize:   chunkSize,
	}
}

// Encode writes version 3 for contiguous storage and version 4 for the
// single chunk index.
func (m *DataLayout) Encode(w *binary.Writer) {
	switch m.Class {
	case LayoutContiguous:
		w.Uint8(3)
		w.Uint8(uint8(LayoutContiguous))
		w.Offset(m.Address)
		w.Length(m.Size)
	case LayoutChunked:
		// version(1) class(1) flags(1) ndims(1) dim width(1) dims
		// index type(1) [chunk size(L) filter mask(4)] address(O)
		var flags uint8
		if m.Filtered {
			flags |= 0x02
		}
		dims := append(append([]uint64(nil), m.ChunkDims...), uint64(m.ElementSize))
		width := dimWidth(dims)
		w.Uint8(4)
		w.Uint8(uint8(LayoutChunked))
		w.Uint8(flags)
		w.Uint8(uint8(len(dims)))
		w.Uint8(uint8(width))
		for _, d := range dims {
			w.UintN(d, width)
		}
		w.Uint8(uint8(ChunkIndexSingle))
		if m.Filtered {
			w.Length(m.ChunkSize)
			w.Uint32(m.FilterMask)
		}
		w.Offset(m.Address)
	case LayoutCompact:
		w.Uint8(3)
		w.Uint8(uint8(LayoutCompact))
		w.Uint16(uint16(len(m.Compact)))
		w.Bytes(m.Compact)
	}
}

// dimWidth returns the fewest bytes that hold every dimension.
func dimWidth(dims []uint64) int {
	width := 1
	for _, d := range dims {
		for width < 8 && d >= uint64(1)<<(8*width) {
			width++
		}
	}
	return width
}

func decodeDataLayout(r *binary.Reader) (*DataLayout, error) {
	version := r.Uint8()
	if version != 3 && version != 4 {
		return nil, fmt.Errorf("layout version %d: %w", version, ErrUnsupported)
	}
	m := &DataLayout{Class: LayoutClass(r.Uint8())}
	switch m.Class {
	case LayoutCompact:
		m.Compact = r.Bytes(int(r.Uint16()))
	case LayoutContiguous:
		m.Address = r.Offset()
		m.Size = r.Length()
	case LayoutChunked:
		if version == 3 {
			return nil, fmt.Errorf("B-tree chunk index: %w", ErrUnsupported)
		}
		flags := r.Uint8()
		ndims := int(r.Uint8())
		width := int(r.Uint8())
		dims := make([]uint64, ndims)
		for i := range dims {
			dims[i] = r.UintN(width)
		}
		if ndims > 0 {
			m.ChunkDims = dims[:ndims-1]
			m.ElementSize = uint32(dims[ndims-1])
		}
		m.Index = ChunkIndex(r.Uint8())
		if m.Index != ChunkIndexSingle {
			return nil, fmt.Errorf("chunk index type %d: %w", m.Index, ErrUnsupported)
		}
		if flags&0x02 != 0 {
			m.Filtered = true
			m.ChunkSize = r.Length()
			m.FilterMask = r.Uint32()
		}
		m.Address = r.Offset()
	default:
		return nil, fmt.Errorf("layout class %d: %w", m.Class, ErrUnsupported)
	}
	return m, r.Err()
}
