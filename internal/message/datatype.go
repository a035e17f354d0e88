package message

import (
	"fmt"

	"github.com/robert-malhotra/cfnc/internal/binary"
)

// DatatypeClass is the HDF5 datatype class.
type DatatypeClass uint8

const (
	ClassFixedPoint DatatypeClass = 0
	ClassFloatPoint DatatypeClass = 1
	ClassTime       DatatypeClass = 2
	ClassString     DatatypeClass = 3
	ClassBitfield   DatatypeClass = 4
	ClassOpaque     DatatypeClass = 5
	ClassCompound   DatatypeClass = 6
	ClassReference  DatatypeClass = 7
	ClassEnum       DatatypeClass = 8
	ClassVarLen     DatatypeClass = 9
	ClassArray      DatatypeClass = 10
)

// Character sets for strings.
const (
	CharsetASCII uint8 = 0
	CharsetUTF8  uint8 = 1
)

// Datatype describes element encoding (type 0x0003).
type Datatype struct {
	Class DatatypeClass
	Size  uint32

	// Fixed and floating point
	BigEndian bool
	Signed    bool

	// Strings
	Charset uint8
	Padding uint8 // 0 null terminate, 1 null pad, 2 space pad

	// Variable length: sequence of Base, or a string when VarLenString
	VarLenString bool
	Base         *Datatype

	// Compound
	Members []CompoundMember

	// Floating point bit layout, kept so unusual floats round trip
	floatProps []byte
}

// CompoundMember is one field of a compound datatype.
type CompoundMember struct {
	Name   string
	Offset uint32
	Type   *Datatype
}

func (m *Datatype) Type() Type { return TypeDatatype }

// NewFixedPoint returns a little-endian integer type of size bytes.
func NewFixedPoint(size int, signed bool) *Datatype {
	return &Datatype{Class: ClassFixedPoint, Size: uint32(size), Signed: signed}
}

// NewFloatPoint returns a little-endian IEEE 754 type of 4 or 8 bytes.
func NewFloatPoint(size int) *Datatype {
	return &Datatype{Class: ClassFloatPoint, Size: uint32(size)}
}

// NewFixedString returns a null-terminated string type of size bytes,
// terminator included.
func NewFixedString(size int, utf8 bool) *Datatype {
	dt := &Datatype{Class: ClassString, Size: uint32(size)}
	if utf8 {
		dt.Charset = CharsetUTF8
	}
	return dt
}

// NewObjectReference returns the object reference type for the given
// offset size.
func NewObjectReference(offsetSize int) *Datatype {
	return &Datatype{Class: ClassReference, Size: uint32(offsetSize)}
}

// NewVarLenSequence returns a variable-length sequence of base. In a file
// each element is a 4-byte count followed by a global heap ID.
func NewVarLenSequence(base *Datatype, offsetSize int) *Datatype {
	return &Datatype{Class: ClassVarLen, Size: uint32(4 + offsetSize + 4), Base: base}
}

// NewCompound returns a compound type of the given total size.
func NewCompound(size int, members ...CompoundMember) *Datatype {
	return &Datatype{Class: ClassCompound, Size: uint32(size), Members: members}
}

func (m *Datatype) version() uint8 {
	if m.Class == ClassCompound {
		return 3
	}
	return 1
}

func (m *Datatype) classBits() uint32 {
	var bits uint32
	switch m.Class {
	case ClassFixedPoint:
		if m.BigEndian {
			bits |= 0x01
		}
		if m.Signed {
			bits |= 0x08
		}
	case ClassFloatPoint:
		if m.BigEndian {
			bits |= 0x01
		}
		// Implied leading mantissa bit, sign bit at the top.
		bits |= 0x20
		bits |= (m.Size*8 - 1) << 8
	case ClassString:
		bits = uint32(m.Padding&0x0F) | uint32(m.Charset&0x0F)<<4
	case ClassVarLen:
		if m.VarLenString {
			bits = 1 | uint32(m.Padding&0x0F)<<4 | uint32(m.Charset&0x0F)<<8
		}
	case ClassCompound:
		bits = uint32(len(m.Members))
	}
	return bits
}

// Encode writes the datatype.
//
//	class+version(1) class bits(3) size(4) properties(var)
func (m *Datatype) Encode(w *binary.Writer) {
	bits := m.classBits()
	w.Uint8(uint8(m.Class) | m.version()<<4)
	w.Uint8(uint8(bits))
	w.Uint8(uint8(bits >> 8))
	w.Uint8(uint8(bits >> 16))
	w.Uint32(m.Size)

	switch m.Class {
	case ClassFixedPoint:
		w.Uint16(0)                  // bit offset
		w.Uint16(uint16(m.Size * 8)) // precision
	case ClassFloatPoint:
		if m.floatProps != nil {
			w.Bytes(m.floatProps)
			return
		}
		w.Bytes(ieeeProperties(m.Size))
	case ClassVarLen:
		m.Base.Encode(w)
	case ClassCompound:
		width := compoundOffsetWidth(m.Size)
		for _, mem := range m.Members {
			w.Bytes(append([]byte(mem.Name), 0))
			w.UintN(uint64(mem.Offset), width)
			mem.Type.Encode(w)
		}
	}
}

// ieeeProperties returns bit offset, precision, exponent location and size,
// mantissa location and size, and exponent bias for IEEE 754 binary32/64.
func ieeeProperties(size uint32) []byte {
	if size == 4 {
		return []byte{0, 0, 32, 0, 23, 8, 0, 23, 127, 0, 0, 0}
	}
	return []byte{0, 0, 64, 0, 52, 11, 0, 52, 0xFF, 0x03, 0, 0}
}

// compoundOffsetWidth is the byte width of member offsets in a version 3
// compound: the fewest bytes able to hold the compound size.
func compoundOffsetWidth(size uint32) int {
	switch {
	case size < 1<<8:
		return 1
	case size < 1<<16:
		return 2
	case size < 1<<24:
		return 3
	}
	return 4
}

func decodeDatatype(r *binary.Reader) (*Datatype, error) {
	cv := r.Uint8()
	b0, b1, b2 := r.Uint8(), r.Uint8(), r.Uint8()
	bits := uint32(b0) | uint32(b1)<<8 | uint32(b2)<<16
	m := &Datatype{Class: DatatypeClass(cv & 0x0F), Size: r.Uint32()}
	version := cv >> 4

	switch m.Class {
	case ClassFixedPoint:
		m.BigEndian = bits&0x01 != 0
		m.Signed = bits&0x08 != 0
		r.Skip(4)
	case ClassFloatPoint:
		m.BigEndian = bits&0x01 != 0
		m.floatProps = r.Bytes(12)
	case ClassString:
		m.Padding = uint8(bits & 0x0F)
		m.Charset = uint8(bits>>4) & 0x0F
	case ClassReference:
		if bits&0x0F != 0 {
			return nil, fmt.Errorf("region references: %w", ErrUnsupported)
		}
	case ClassVarLen:
		m.VarLenString = bits&0x0F == 1
		m.Padding = uint8(bits>>4) & 0x0F
		m.Charset = uint8(bits>>8) & 0x0F
		base, err := decodeDatatype(r)
		if err != nil {
			return nil, err
		}
		m.Base = base
	case ClassCompound:
		n := int(bits & 0xFFFF)
		for i := 0; i < n; i++ {
			mem, err := decodeMember(r, version, m.Size)
			if err != nil {
				return nil, err
			}
			m.Members = append(m.Members, mem)
		}
	default:
		return nil, fmt.Errorf("datatype class %d: %w", m.Class, ErrUnsupported)
	}
	return m, r.Err()
}

func decodeMember(r *binary.Reader, version uint8, size uint32) (CompoundMember, error) {
	var mem CompoundMember
	start := r.Pos()
	mem.Name = r.CString(1 << 16)
	switch version {
	case 1, 2:
		// Names are padded to a multiple of eight bytes.
		if n := r.Pos() - start; n%8 != 0 {
			r.Skip(int(8 - n%8))
		}
		mem.Offset = r.Uint32()
		if version == 1 {
			r.Skip(1 + 3 + 4 + 4 + 16) // dimensionality, reserved, permutation, reserved, dims
		}
	case 3:
		mem.Offset = uint32(r.UintN(compoundOffsetWidth(size)))
	default:
		return mem, fmt.Errorf("compound version %d: %w", version, ErrUnsupported)
	}
	dt, err := decodeDatatype(r)
	if err != nil {
		return mem, err
	}
	mem.Type = dt
	return mem, nil
}
