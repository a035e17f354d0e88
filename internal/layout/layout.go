// Package layout reads and prepares the raw data of a variable for the three
// storage classes the netCDF-4 files written here use.
//
//   - Compact: the bytes live inside the object header.
//   - Contiguous: one block in the file, possibly never written.
//   - Chunked: a single chunk holding the whole array, optionally passed
//     through the filter pipeline.
//
// Use [New] to get a handler for a data layout message and [Layout.Read] to
// fetch the decoded bytes in row-major order.
package layout

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/cfnc/internal/binary"
	"github.com/robert-malhotra/cfnc/internal/filter"
	"github.com/robert-malhotra/cfnc/internal/message"
)

// ErrUnsupported reports a layout this package cannot read.
var ErrUnsupported = errors.New("unsupported storage layout")

// Layout reads the raw data of one variable.
type Layout interface {
	// Read returns want bytes of element data.
	Read(want int) ([]byte, error)

	Class() message.LayoutClass
}

// Storage gathers the messages of an object header that describe its data.
type Storage struct {
	Layout   *message.DataLayout
	Filters  *message.FilterPipeline
	Fill     *message.FillValue
	ElemSize int
}

// New creates the handler for s.Layout.
func New(s Storage, r *binary.Reader) (Layout, error) {
	if s.Layout == nil {
		return nil, fmt.Errorf("%w: no data layout", ErrUnsupported)
	}
	switch s.Layout.Class {
	case message.LayoutCompact:
		return &Compact{data: s.Layout.Compact}, nil
	case message.LayoutContiguous:
		return &Contiguous{address: s.Layout.Address, fill: s.Fill, elemSize: s.ElemSize, reader: r}, nil
	case message.LayoutChunked:
		return newChunked(s, r)
	default:
		return nil, fmt.Errorf("%w: class %d", ErrUnsupported, s.Layout.Class)
	}
}

// Store runs raw through the pipeline described by fp and returns the bytes
// to place in the file. A nil fp stores raw unchanged.
func Store(raw []byte, fp *message.FilterPipeline) ([]byte, error) {
	if fp == nil || len(raw) == 0 {
		return raw, nil
	}
	pl, err := filter.NewPipeline(fp)
	if err != nil {
		return nil, err
	}
	return pl.Encode(raw)
}

func short(got, want int) error {
	return fmt.Errorf("data holds %d bytes, want %d", got, want)
}
