package layout

import "github.com/robert-malhotra/cfnc/internal/message"

// Compact holds data stored in the object header.
type Compact struct {
	data []byte
}

func (c *Compact) Class() message.LayoutClass { return message.LayoutCompact }

// Read returns a copy of the header bytes.
func (c *Compact) Read(want int) ([]byte, error) {
	if len(c.data) < want {
		return nil, short(len(c.data), want)
	}
	out := make([]byte, want)
	copy(out, c.data)
	return out, nil
}
