package message

import (
	"fmt"

	"github.com/robert-malhotra/cfnc/internal/binary"
)

// Space allocation times.
const (
	AllocEarly       uint8 = 1
	AllocLate        uint8 = 2
	AllocIncremental uint8 = 3
)

// Fill value write times.
const (
	FillOnAlloc uint8 = 0
	FillNever   uint8 = 1
	FillIfSet   uint8 = 2
)

// FillValue is the dataset fill value message (type 0x0005).
type FillValue struct {
	AllocTime uint8
	WriteTime uint8
	Defined   bool
	Value     []byte
}

func (m *FillValue) Type() Type { return TypeFillValue }

// Encode writes a version 3 fill value message.
//
//	version(1) flags(1) [size(4) value(size)]
//
// Flag bits 0-1 hold the allocation time, bits 2-3 the write time and bit
// 5 marks a defined value.
func (m *FillValue) Encode(w *binary.Writer) {
	flags := m.AllocTime&0x03 | (m.WriteTime&0x03)<<2
	if m.Defined {
		flags |= 0x20
	}
	w.Uint8(3)
	w.Uint8(flags)
	if m.Defined {
		w.Uint32(uint32(len(m.Value)))
		w.Bytes(m.Value)
	}
}

func decodeFillValue(r *binary.Reader) (*FillValue, error) {
	m := &FillValue{}
	switch version := r.Uint8(); version {
	case 1, 2:
		m.AllocTime = r.Uint8()
		m.WriteTime = r.Uint8()
		m.Defined = r.Uint8() != 0
		if m.Defined {
			if n := r.Uint32(); n > 0 {
				m.Value = r.Bytes(int(n))
			}
		}
	case 3:
		flags := r.Uint8()
		m.AllocTime = flags & 0x03
		m.WriteTime = (flags >> 2) & 0x03
		if flags&0x20 != 0 {
			m.Defined = true
			m.Value = r.Bytes(int(r.Uint32()))
		}
	default:
		return nil, fmt.Errorf("fill value version %d: %w", version, ErrUnsupported)
	}
	return m, r.Err()
}
