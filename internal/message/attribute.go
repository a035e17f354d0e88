package message

import (
	"fmt"
	"unicode/utf8"

	"github.com/robert-malhotra/cfnc/internal/binary"
)

// Attribute is a named value attached to an object (type 0x000C).
type Attribute struct {
	Name      string
	Datatype  *Datatype
	Dataspace *Dataspace
	Data      []byte
}

func (m *Attribute) Type() Type { return TypeAttribute }

// Encode writes a version 3 attribute.
//
//	version(1) flags(1) name size(2) datatype size(2) dataspace size(2)
//	name encoding(1) name datatype dataspace data
func (m *Attribute) Encode(w *binary.Writer) {
	cfg := w.Config()
	name := append([]byte(m.Name), 0)
	var enc uint8
	if !isASCII(m.Name) && utf8.ValidString(m.Name) {
		enc = CharsetUTF8
	}
	w.Uint8(3)
	w.Uint8(0)
	w.Uint16(uint16(len(name)))
	w.Uint16(uint16(Size(m.Datatype, cfg)))
	w.Uint16(uint16(Size(m.Dataspace, cfg)))
	w.Uint8(enc)
	w.Bytes(name)
	m.Datatype.Encode(w)
	m.Dataspace.Encode(w)
	w.Bytes(m.Data)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func decodeAttribute(r *binary.Reader, total int) (*Attribute, error) {
	version := r.Uint8()
	r.Skip(1) // flags
	nameSize := int(r.Uint16())
	dtSize := int(r.Uint16())
	dsSize := int(r.Uint16())

	pad := func(n int) int { return n }
	switch version {
	case 1:
		pad = func(n int) int { return (n + 7) &^ 7 }
	case 2:
	case 3:
		r.Skip(1) // name encoding
	default:
		return nil, fmt.Errorf("attribute version %d: %w", version, ErrUnsupported)
	}

	m := &Attribute{}
	name := r.Bytes(pad(nameSize))
	if nameSize > 0 && len(name) >= nameSize {
		name = name[:nameSize]
		if name[len(name)-1] == 0 {
			name = name[:len(name)-1]
		}
	}
	m.Name = string(name)

	dtBytes := r.Bytes(pad(dtSize))
	dsBytes := r.Bytes(pad(dsSize))
	if err := r.Err(); err != nil {
		return nil, err
	}
	cfg := r.Config()
	dt, err := decodeDatatype(binary.NewBytesReader(dtBytes, cfg))
	if err != nil {
		return nil, fmt.Errorf("attribute %q datatype: %w", m.Name, err)
	}
	ds, err := decodeDataspace(binary.NewBytesReader(dsBytes, cfg))
	if err != nil {
		return nil, fmt.Errorf("attribute %q dataspace: %w", m.Name, err)
	}
	m.Datatype, m.Dataspace = dt, ds

	if rest := total - int(r.Pos()); rest > 0 {
		m.Data = r.Bytes(rest)
	}
	return m, r.Err()
}
