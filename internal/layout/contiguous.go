package layout

import (
	"fmt"

	"github.com/robert-malhotra/cfnc/internal/binary"
	"github.com/robert-malhotra/cfnc/internal/message"
)

// Contiguous is data stored in a single block of the file.
type Contiguous struct {
	address  uint64
	fill     *message.FillValue
	elemSize int
	reader   *binary.Reader
}

func (c *Contiguous) Class() message.LayoutClass { return message.LayoutContiguous }

// Read reads want bytes at the data address. Storage that was never
// allocated reads as the fill value, or zeros when none is defined.
func (c *Contiguous) Read(want int) ([]byte, error) {
	if want == 0 {
		return []byte{}, nil
	}
	if c.reader.IsUndefined(c.address) {
		return Unwritten(c.fill, want, c.elemSize), nil
	}
	r := c.reader.At(int64(c.address))
	data := r.Bytes(want)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading contiguous data: %w", err)
	}
	return data, nil
}

// Unwritten returns want bytes of never-written storage.
func Unwritten(fv *message.FillValue, want, elemSize int) []byte {
	raw := make([]byte, want)
	if fv == nil || !fv.Defined || elemSize <= 0 || len(fv.Value) != elemSize {
		return raw
	}
	for off := 0; off+elemSize <= want; off += elemSize {
		copy(raw[off:], fv.Value)
	}
	return raw
}
