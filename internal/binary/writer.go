// Package binary provides the low-level encoding primitives for HDF5 files:
// variable-width offsets and lengths, little-endian integers, and the
// lookup3 metadata checksum.
package binary

import (
	"encoding/binary"
	"io"
)

// Config holds the file-wide encoding parameters recorded in the superblock.
type Config struct {
	ByteOrder  binary.ByteOrder
	OffsetSize int // 2, 4, or 8 bytes
	LengthSize int // 2, 4, or 8 bytes
}

// DefaultConfig is little-endian with 8-byte offsets and lengths.
func DefaultConfig() Config {
	return Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: 8,
		LengthSize: 8,
	}
}

// Writer writes HDF5 fields at a position in an io.WriterAt. The first
// failed write is kept and reported by Err; later writes are skipped.
type Writer struct {
	w   io.WriterAt
	cfg Config
	pos int64
	err error
}

// NewWriter creates a writer at offset 0.
func NewWriter(w io.WriterAt, cfg Config) *Writer {
	return &Writer{w: w, cfg: cfg}
}

// At returns a writer at offset sharing the destination. Errors are not
// shared.
func (w *Writer) At(offset int64) *Writer {
	return &Writer{w: w.w, cfg: w.cfg, pos: offset}
}

// Pos returns the current position.
func (w *Writer) Pos() int64 { return w.pos }

// Err returns the first write error.
func (w *Writer) Err() error { return w.err }

// Config returns the encoding parameters.
func (w *Writer) Config() Config { return w.cfg }

// OffsetSize returns the size of file addresses in bytes.
func (w *Writer) OffsetSize() int { return w.cfg.OffsetSize }

// LengthSize returns the size of lengths in bytes.
func (w *Writer) LengthSize() int { return w.cfg.LengthSize }

// Bytes writes data verbatim.
func (w *Writer) Bytes(data []byte) {
	if w.err != nil || len(data) == 0 {
		return
	}
	n, err := w.w.WriteAt(data, w.pos)
	w.pos += int64(n)
	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	w.err = err
}

// Zeros writes n zero bytes.
func (w *Writer) Zeros(n int) {
	if n > 0 {
		w.Bytes(make([]byte, n))
	}
}

// Uint8 writes one byte.
func (w *Writer) Uint8(v uint8) { w.Bytes([]byte{v}) }

// Uint16 writes v in file byte order.
func (w *Writer) Uint16(v uint16) {
	var buf [2]byte
	w.cfg.ByteOrder.PutUint16(buf[:], v)
	w.Bytes(buf[:])
}

// Uint32 writes v in file byte order.
func (w *Writer) Uint32(v uint32) {
	var buf [4]byte
	w.cfg.ByteOrder.PutUint32(buf[:], v)
	w.Bytes(buf[:])
}

// Uint64 writes v in file byte order.
func (w *Writer) Uint64(v uint64) {
	var buf [8]byte
	w.cfg.ByteOrder.PutUint64(buf[:], v)
	w.Bytes(buf[:])
}

// UintN writes the low n bytes of v, n being 1 to 8.
func (w *Writer) UintN(v uint64, n int) {
	var buf [8]byte
	w.cfg.ByteOrder.PutUint64(buf[:], v)
	if w.cfg.ByteOrder == binary.BigEndian {
		w.Bytes(buf[8-n:])
		return
	}
	w.Bytes(buf[:n])
}

// Offset writes a file address.
func (w *Writer) Offset(v uint64) { w.UintN(v, w.cfg.OffsetSize) }

// Length writes a length field.
func (w *Writer) Length(v uint64) { w.UintN(v, w.cfg.LengthSize) }

// UndefinedOffset writes the all-ones "no address" marker.
func (w *Writer) UndefinedOffset() { w.Offset(Undefined) }

// Undefined is the HDF5 undefined address. Writers and readers truncate it
// to the offset size.
const Undefined = ^uint64(0)
