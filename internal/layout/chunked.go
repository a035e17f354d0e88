package layout

import (
	"fmt"

	"github.com/robert-malhotra/cfnc/internal/binary"
	"github.com/robert-malhotra/cfnc/internal/filter"
	"github.com/robert-malhotra/cfnc/internal/message"
)

// Chunked is data stored as one chunk spanning the whole array.
type Chunked struct {
	address  uint64
	size     uint64 // stored size when filtered
	filtered bool
	mask     uint32
	pipeline *filter.Pipeline
	fill     *message.FillValue
	elemSize int
	reader   *binary.Reader
}

func newChunked(s Storage, r *binary.Reader) (*Chunked, error) {
	if s.Layout.Index != message.ChunkIndexSingle {
		return nil, fmt.Errorf("%w: chunk index %d", ErrUnsupported, s.Layout.Index)
	}
	pl, err := filter.NewPipeline(s.Filters)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	return &Chunked{
		address:  s.Layout.Address,
		size:     s.Layout.ChunkSize,
		filtered: s.Layout.Filtered,
		mask:     s.Layout.FilterMask,
		pipeline: pl,
		fill:     s.Fill,
		elemSize: s.ElemSize,
		reader:   r,
	}, nil
}

func (c *Chunked) Class() message.LayoutClass { return message.LayoutChunked }

// Read reads the chunk and undoes its filters.
func (c *Chunked) Read(want int) ([]byte, error) {
	if want == 0 {
		return []byte{}, nil
	}
	if c.reader.IsUndefined(c.address) {
		return Unwritten(c.fill, want, c.elemSize), nil
	}
	n := want
	if c.filtered {
		n = int(c.size)
	}
	r := c.reader.At(int64(c.address))
	stored := r.Bytes(n)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading chunk: %w", err)
	}
	data, err := c.pipeline.Decode(stored, c.mask)
	if err != nil {
		return nil, fmt.Errorf("decoding chunk: %w", err)
	}
	if len(data) < want {
		return nil, short(len(data), want)
	}
	return data[:want], nil
}
