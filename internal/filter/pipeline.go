package filter

import (
	"fmt"

	"github.com/robert-malhotra/cfnc/internal/message"
)

// Pipeline is an ordered list of filters.
type Pipeline struct {
	filters []Filter
	skipped []bool // optional filters with no implementation
}

// NewPipeline creates a pipeline from a filter pipeline message. A nil
// message gives an empty pipeline.
func NewPipeline(fp *message.FilterPipeline) (*Pipeline, error) {
	p := &Pipeline{}
	if fp == nil {
		return p, nil
	}
	for _, info := range fp.Filters {
		f, err := New(info)
		if err != nil {
			return nil, err
		}
		p.filters = append(p.filters, f)
		p.skipped = append(p.skipped, f == nil)
	}
	return p, nil
}

// Encode applies the filters in order.
func (p *Pipeline) Encode(input []byte) ([]byte, error) {
	data := input
	for i, f := range p.filters {
		if p.skipped[i] {
			continue
		}
		var err error
		if data, err = f.Encode(data); err != nil {
			return nil, fmt.Errorf("filter %d encode: %w", f.ID(), err)
		}
	}
	return data, nil
}

// Decode applies the filters in reverse order. Bit i of filterMask skips
// filter i.
func (p *Pipeline) Decode(input []byte, filterMask uint32) ([]byte, error) {
	data := input
	for i := len(p.filters) - 1; i >= 0; i-- {
		if p.skipped[i] || filterMask&(1<<uint(i)) != 0 {
			continue
		}
		var err error
		if data, err = p.filters[i].Decode(data); err != nil {
			return nil, fmt.Errorf("filter %d decode: %w", p.filters[i].ID(), err)
		}
	}
	return data, nil
}

// Empty returns true if the pipeline has no filters.
func (p *Pipeline) Empty() bool {
	return len(p.filters) == 0
}

// Len returns the number of filters in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.filters)
}
