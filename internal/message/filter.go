package message

import (
	"fmt"

	"github.com/robert-malhotra/cfnc/internal/binary"
)

// Filter identifiers
const (
	FilterDeflate    uint16 = 1
	FilterShuffle    uint16 = 2
	FilterFletcher32 uint16 = 3
)

// Filter is one stage of a filter pipeline.
type Filter struct {
	ID         uint16
	Name       string
	Flags      uint16 // bit 0: optional
	ClientData []uint32
}

// FilterPipeline lists the filters applied to chunks, in write order
// (type 0x000B).
type FilterPipeline struct {
	Filters []Filter
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

// Has reports whether the pipeline contains filter id.
func (m *FilterPipeline) Has(id uint16) bool {
	for _, f := range m.Filters {
		if f.ID == id {
			return true
		}
	}
	return false
}

// Encode writes a version 2 pipeline. Names are only stored for filter
// IDs of 256 and above.
func (m *FilterPipeline) Encode(w *binary.Writer) {
	w.Uint8(2)
	w.Uint8(uint8(len(m.Filters)))
	for _, f := range m.Filters {
		w.Uint16(f.ID)
		if f.ID >= 256 {
			w.Uint16(uint16(len(f.Name) + 1))
		}
		w.Uint16(f.Flags)
		w.Uint16(uint16(len(f.ClientData)))
		if f.ID >= 256 {
			w.Bytes(append([]byte(f.Name), 0))
		}
		for _, v := range f.ClientData {
			w.Uint32(v)
		}
	}
}

func decodeFilterPipeline(r *binary.Reader) (*FilterPipeline, error) {
	version := r.Uint8()
	n := int(r.Uint8())
	if version == 1 {
		r.Skip(6)
	} else if version != 2 {
		return nil, fmt.Errorf("filter pipeline version %d: %w", version, ErrUnsupported)
	}

	m := &FilterPipeline{}
	for i := 0; i < n; i++ {
		var f Filter
		f.ID = r.Uint16()
		var nameLen int
		if version == 1 || f.ID >= 256 {
			nameLen = int(r.Uint16())
		}
		f.Flags = r.Uint16()
		nvalues := int(r.Uint16())
		if nameLen > 0 {
			if version == 1 && nameLen%8 != 0 {
				nameLen += 8 - nameLen%8
			}
			name := r.Bytes(nameLen)
			for j, c := range name {
				if c == 0 {
					name = name[:j]
					break
				}
			}
			f.Name = string(name)
		}
		f.ClientData = make([]uint32, nvalues)
		for j := range f.ClientData {
			f.ClientData[j] = r.Uint32()
		}
		if version == 1 && nvalues%2 != 0 {
			r.Skip(4)
		}
		m.Filters = append(m.Filters, f)
	}
	return m, r.Err()
}
