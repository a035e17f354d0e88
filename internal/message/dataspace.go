package message

import (
	"fmt"

	"github.com/robert-malhotra/cfnc/internal/binary"
)

// DataspaceType is the dataspace class.
type DataspaceType uint8

const (
	DataspaceScalar DataspaceType = 0
	DataspaceSimple DataspaceType = 1
	DataspaceNull   DataspaceType = 2
)

// Dataspace describes the shape of a dataset or attribute (type 0x0001).
type Dataspace struct {
	SpaceType  DataspaceType
	Dimensions []uint64
	MaxDims    []uint64 // nil when equal to Dimensions
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// NewScalarDataspace returns a single-element dataspace.
func NewScalarDataspace() *Dataspace {
	return &Dataspace{SpaceType: DataspaceScalar}
}

// NewSimpleDataspace returns a fixed-size N-dimensional dataspace.
func NewSimpleDataspace(dims ...uint64) *Dataspace {
	return &Dataspace{SpaceType: DataspaceSimple, Dimensions: append([]uint64(nil), dims...)}
}

// NumElements returns the number of elements.
func (m *Dataspace) NumElements() uint64 {
	switch m.SpaceType {
	case DataspaceScalar:
		return 1
	case DataspaceSimple:
		n := uint64(1)
		for _, d := range m.Dimensions {
			n *= d
		}
		return n
	}
	return 0
}

// Encode writes a version 2 dataspace.
//
//	version(1) rank(1) flags(1) type(1) dims(rank*L) [maxdims(rank*L)]
func (m *Dataspace) Encode(w *binary.Writer) {
	rank := len(m.Dimensions)
	if m.SpaceType != DataspaceSimple {
		rank = 0
	}
	var flags uint8
	if m.MaxDims != nil && rank > 0 {
		flags |= 0x01
	}
	w.Uint8(2)
	w.Uint8(uint8(rank))
	w.Uint8(flags)
	w.Uint8(uint8(m.SpaceType))
	if rank == 0 {
		return
	}
	for _, d := range m.Dimensions {
		w.Length(d)
	}
	if flags&0x01 != 0 {
		for _, d := range m.MaxDims {
			w.Length(d)
		}
	}
}

func decodeDataspace(r *binary.Reader) (*Dataspace, error) {
	version := r.Uint8()
	rank := int(r.Uint8())
	flags := r.Uint8()

	m := &Dataspace{}
	switch version {
	case 1:
		r.Skip(5) // reserved(1) + reserved(4)
		m.SpaceType = DataspaceSimple
		if rank == 0 {
			m.SpaceType = DataspaceScalar
		}
	case 2:
		m.SpaceType = DataspaceType(r.Uint8())
	default:
		return nil, fmt.Errorf("dataspace version %d: %w", version, ErrUnsupported)
	}
	if m.SpaceType != DataspaceSimple {
		return m, nil
	}

	m.Dimensions = make([]uint64, rank)
	for i := range m.Dimensions {
		m.Dimensions[i] = r.Length()
	}
	if flags&0x01 != 0 {
		m.MaxDims = make([]uint64, rank)
		for i := range m.MaxDims {
			m.MaxDims[i] = r.Length()
		}
	}
	return m, r.Err()
}
