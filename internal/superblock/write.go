package superblock

import (
	"github.com/robert-malhotra/cfnc/internal/binary"
)

// New returns a version 2 superblock for a file whose root group header is
// at root and whose last byte is eof-1.
func New(root, eof uint64) *Superblock {
	return &Superblock{
		Version:          2,
		OffsetSize:       8,
		LengthSize:       8,
		ExtensionAddress: binary.Undefined,
		EOFAddress:       eof,
		RootGroupAddress: root,
	}
}

// Encode returns the superblock bytes including the checksum.
func (sb *Superblock) Encode() []byte {
	buf := &binary.Buffer{}
	w := binary.NewWriter(buf, sb.Config())
	w.Bytes(Signature)
	w.Uint8(sb.Version)
	w.Uint8(sb.OffsetSize)
	w.Uint8(sb.LengthSize)
	w.Uint8(sb.ConsistencyFlags)
	w.Offset(sb.BaseAddress)
	w.Offset(sb.ExtensionAddress)
	w.Offset(sb.EOFAddress)
	w.Offset(sb.RootGroupAddress)
	w.Uint32(binary.Lookup3Checksum(buf.Bytes()))
	return buf.Bytes()
}
