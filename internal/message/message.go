// Package message encodes and decodes the HDF5 object header messages used
// by netCDF-4 files: dataspace, datatype, fill value, layout, filter
// pipeline, attributes, and the compact-storage group messages.
//
// Encoding writes the current message versions (dataspace v2, datatype v1
// and v3 for compounds, fill value v3, layout v3/v4, filter pipeline v2,
// attribute v3, link v1). Decoding also accepts the older versions other
// writers produce for the same structures.
package message

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/cfnc/internal/binary"
)

// Type is an HDF5 header message type.
type Type uint16

// Header message types
const (
	TypeNIL                      Type = 0x0000
	TypeDataspace                Type = 0x0001
	TypeLinkInfo                 Type = 0x0002
	TypeDatatype                 Type = 0x0003
	TypeFillValueOld             Type = 0x0004
	TypeFillValue                Type = 0x0005
	TypeLink                     Type = 0x0006
	TypeDataLayout               Type = 0x0008
	TypeGroupInfo                Type = 0x000A
	TypeFilterPipeline           Type = 0x000B
	TypeAttribute                Type = 0x000C
	TypeObjectModTime            Type = 0x000E
	TypeObjectHeaderContinuation Type = 0x0010
	TypeSymbolTable              Type = 0x0011
	TypeAttributeInfo            Type = 0x0015
)

// ErrUnsupported is returned for valid HDF5 structures this package does
// not handle.
var ErrUnsupported = errors.New("unsupported")

// Message is implemented by all header messages.
type Message interface {
	Type() Type
}

// Encoder is a message that can be written to a file.
type Encoder interface {
	Message
	Encode(w *binary.Writer)
}

// Size returns the encoded size of m.
func Size(m Encoder, cfg binary.Config) int {
	buf := &binary.Buffer{}
	w := binary.NewWriter(buf, cfg)
	m.Encode(w)
	return int(w.Pos())
}

// Bytes returns the encoding of m.
func Bytes(m Encoder, cfg binary.Config) []byte {
	buf := &binary.Buffer{}
	m.Encode(binary.NewWriter(buf, cfg))
	return buf.Bytes()
}

// Decode parses the body of a header message. Unknown types are returned
// as *Unknown.
func Decode(typ Type, data []byte, cfg binary.Config) (Message, error) {
	r := binary.NewBytesReader(data, cfg)
	var (
		m   Message
		err error
	)
	switch typ {
	case TypeDataspace:
		m, err = decodeDataspace(r)
	case TypeDatatype:
		m, err = decodeDatatype(r)
	case TypeFillValue:
		m, err = decodeFillValue(r)
	case TypeDataLayout:
		m, err = decodeDataLayout(r)
	case TypeFilterPipeline:
		m, err = decodeFilterPipeline(r)
	case TypeAttribute:
		m, err = decodeAttribute(r, len(data))
	case TypeLink:
		m, err = decodeLink(r)
	case TypeLinkInfo:
		m, err = decodeLinkInfo(r)
	case TypeAttributeInfo:
		m, err = decodeAttributeInfo(r)
	case TypeGroupInfo:
		m = &GroupInfo{}
	default:
		return &Unknown{typ: typ, Data: data}, nil
	}
	if err == nil {
		err = r.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("message 0x%04x: %w", uint16(typ), err)
	}
	return m, nil
}

// Unknown holds a message type this package does not decode.
type Unknown struct {
	typ  Type
	Data []byte
}

func (m *Unknown) Type() Type { return m.typ }
