package filter

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/cfnc/internal/message"
)

// ErrUnsupportedFilter is returned for required filters with no
// implementation.
var ErrUnsupportedFilter = errors.New("unsupported filter")

// Filter is the interface implemented by all HDF5 filters.
type Filter interface {
	// ID returns the filter identifier.
	ID() uint16

	// Encode transforms raw data to its stored form.
	Encode(input []byte) ([]byte, error)

	// Decode transforms stored data back to raw form.
	Decode(input []byte) ([]byte, error)
}

// Registry maps filter IDs to filter constructors.
var Registry = map[uint16]func([]uint32) Filter{
	message.FilterDeflate: func(cd []uint32) Filter { return NewDeflate(cd) },
	message.FilterShuffle: func(cd []uint32) Filter { return NewShuffle(cd) },
}

// filterNames maps known filter IDs to their names for error messages.
var filterNames = map[uint16]string{
	message.FilterFletcher32: "Fletcher32",
	4:                        "SZIP",
	5:                        "N-bit",
	6:                        "scale-offset",
	32015:                    "zstd",
}

// New creates a filter from a pipeline entry. Optional filters without an
// implementation return nil.
func New(info message.Filter) (Filter, error) {
	constructor, ok := Registry[info.ID]
	if !ok {
		if info.Flags&0x01 != 0 {
			return nil, nil
		}
		if name, known := filterNames[info.ID]; known {
			return nil, fmt.Errorf("%s filter (ID %d): %w", name, info.ID, ErrUnsupportedFilter)
		}
		return nil, fmt.Errorf("filter ID %d: %w", info.ID, ErrUnsupportedFilter)
	}
	return constructor(info.ClientData), nil
}

// Messages returns the pipeline entries netCDF-4 writes for a variable:
// shuffle first when requested, then deflate at level.
func Messages(elemSize, level int, shuffle bool) []message.Filter {
	var fs []message.Filter
	if shuffle {
		fs = append(fs, message.Filter{ID: message.FilterShuffle, ClientData: []uint32{uint32(elemSize)}})
	}
	return append(fs, message.Filter{ID: message.FilterDeflate, ClientData: []uint32{uint32(level)}})
}
