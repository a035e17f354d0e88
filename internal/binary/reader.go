package binary

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// ErrInvalidSize is returned for offset or length sizes other than 2, 4 or 8.
var ErrInvalidSize = errors.New("invalid offset/length size: must be 2, 4, or 8")

// Reader reads HDF5 fields from an io.ReaderAt. Like Writer it keeps the
// first error; reads after a failure return zero values.
type Reader struct {
	r   io.ReaderAt
	cfg Config
	pos int64
	err error
}

// NewReader creates a reader at offset 0.
func NewReader(r io.ReaderAt, cfg Config) *Reader {
	return &Reader{r: r, cfg: cfg}
}

// NewBytesReader reads from an in-memory message body.
func NewBytesReader(data []byte, cfg Config) *Reader {
	return NewReader(bytes.NewReader(data), cfg)
}

// At returns a reader at offset sharing the source.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{r: r.r, cfg: r.cfg, pos: offset}
}

// WithSizes returns a reader at the same position with new field sizes.
func (r *Reader) WithSizes(offsetSize, lengthSize int) (*Reader, error) {
	for _, s := range []int{offsetSize, lengthSize} {
		if s != 2 && s != 4 && s != 8 {
			return nil, ErrInvalidSize
		}
	}
	cfg := r.cfg
	cfg.OffsetSize, cfg.LengthSize = offsetSize, lengthSize
	return &Reader{r: r.r, cfg: cfg, pos: r.pos}, nil
}

// Pos returns the current position.
func (r *Reader) Pos() int64 { return r.pos }

// Err returns the first read error.
func (r *Reader) Err() error { return r.err }

// Config returns the field sizes and byte order.
func (r *Reader) Config() Config { return r.cfg }

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int) { r.pos += int64(n) }

// Bytes reads n bytes.
func (r *Reader) Bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pastEnd(n) {
		r.err = io.ErrUnexpectedEOF
		return nil
	}
	buf := make([]byte, n)
	got, err := r.r.ReadAt(buf, r.pos)
	r.pos += int64(got)
	if got < n {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		r.err = err
		return nil
	}
	return buf
}

// sized is implemented by bytes.Reader and io.SectionReader.
type sized interface {
	Size() int64
}

// pastEnd reports whether n bytes at the current position run past the end
// of a source that knows its size.
func (r *Reader) pastEnd(n int) bool {
	s, ok := r.r.(sized)
	if !ok {
		return false
	}
	return r.pos < 0 || r.pos > s.Size() || int64(n) > s.Size()-r.pos
}

// Uint8 reads one byte.
func (r *Reader) Uint8() uint8 {
	b := r.Bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Uint16 reads a 2-byte integer.
func (r *Reader) Uint16() uint16 { return uint16(r.UintN(2)) }

// Uint32 reads a 4-byte integer.
func (r *Reader) Uint32() uint32 { return uint32(r.UintN(4)) }

// Uint64 reads an 8-byte integer.
func (r *Reader) Uint64() uint64 { return r.UintN(8) }

// UintN reads an n-byte integer, n being 1 to 8.
func (r *Reader) UintN(n int) uint64 {
	b := r.Bytes(n)
	if b == nil {
		return 0
	}
	var buf [8]byte
	if r.cfg.ByteOrder == binary.BigEndian {
		copy(buf[8-n:], b)
		return binary.BigEndian.Uint64(buf[:])
	}
	copy(buf[:], b)
	return binary.LittleEndian.Uint64(buf[:])
}

// Offset reads a file address.
func (r *Reader) Offset() uint64 { return r.UintN(r.cfg.OffsetSize) }

// Length reads a length field.
func (r *Reader) Length() uint64 { return r.UintN(r.cfg.LengthSize) }

// IsUndefined reports whether addr is the all-ones marker for the reader's
// offset size.
func (r *Reader) IsUndefined(addr uint64) bool {
	if r.cfg.OffsetSize >= 8 {
		return addr == Undefined
	}
	return addr == (uint64(1)<<(8*r.cfg.OffsetSize))-1
}

// CString reads a null-terminated string of at most max bytes including
// the terminator.
func (r *Reader) CString(max int) string {
	var out []byte
	for i := 0; i < max; i++ {
		c := r.Uint8()
		if r.err != nil || c == 0 {
			break
		}
		out = append(out, c)
	}
	return string(out)
}
