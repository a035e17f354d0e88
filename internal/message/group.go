package message

import (
	"fmt"

	"github.com/robert-malhotra/cfnc/internal/binary"
)

// Link is a named hard link from a group to an object (type 0x0006).
type Link struct {
	Name          string
	Address       uint64
	CreationOrder uint64
	TrackOrder    bool // CreationOrder is stored
	Hard          bool // set by decoding; soft and external links are false
}

func (m *Link) Type() Type { return TypeLink }

// NewHardLink links name to the object header at addr.
func NewHardLink(name string, addr uint64) *Link {
	return &Link{Name: name, Address: addr, Hard: true}
}

// Encode writes a version 1 hard link.
//
//	version(1) flags(1) [creation order(8)] [charset(1)] name length(1-8)
//	name address(O)
func (m *Link) Encode(w *binary.Writer) {
	width := lengthWidth(uint64(len(m.Name)))
	flags := uint8(0)
	switch width {
	case 2:
		flags = 1
	case 4:
		flags = 2
	case 8:
		flags = 3
	}
	utf := !isASCII(m.Name)
	if m.TrackOrder {
		flags |= 0x04
	}
	if utf {
		flags |= 0x10
	}
	w.Uint8(1)
	w.Uint8(flags)
	if m.TrackOrder {
		w.Uint64(m.CreationOrder)
	}
	if utf {
		w.Uint8(CharsetUTF8)
	}
	w.UintN(uint64(len(m.Name)), width)
	w.Bytes([]byte(m.Name))
	w.Offset(m.Address)
}

func lengthWidth(n uint64) int {
	switch {
	case n < 1<<8:
		return 1
	case n < 1<<16:
		return 2
	case n < 1<<32:
		return 4
	}
	return 8
}

func decodeLink(r *binary.Reader) (*Link, error) {
	if version := r.Uint8(); version != 1 {
		return nil, fmt.Errorf("link version %d: %w", version, ErrUnsupported)
	}
	flags := r.Uint8()
	m := &Link{Hard: true}
	if flags&0x08 != 0 {
		m.Hard = r.Uint8() == 0
	}
	if flags&0x04 != 0 {
		m.TrackOrder = true
		m.CreationOrder = r.Uint64()
	}
	if flags&0x10 != 0 {
		r.Skip(1)
	}
	n := r.UintN(1 << (flags & 0x03))
	m.Name = string(r.Bytes(int(n)))
	if m.Hard {
		m.Address = r.Offset()
	}
	return m, r.Err()
}

// LinkInfo describes compact link storage in a group (type 0x0002).
type LinkInfo struct {
	TrackOrder       bool
	MaxCreationIndex uint64
}

func (m *LinkInfo) Type() Type { return TypeLinkInfo }

// Encode writes a version 0 link info message with no dense storage.
func (m *LinkInfo) Encode(w *binary.Writer) {
	w.Uint8(0)
	if m.TrackOrder {
		w.Uint8(0x01)
		w.Uint64(m.MaxCreationIndex)
	} else {
		w.Uint8(0)
	}
	w.UndefinedOffset() // fractal heap
	w.UndefinedOffset() // name index v2 B-tree
}

func decodeLinkInfo(r *binary.Reader) (*LinkInfo, error) {
	if version := r.Uint8(); version != 0 {
		return nil, fmt.Errorf("link info version %d: %w", version, ErrUnsupported)
	}
	flags := r.Uint8()
	m := &LinkInfo{}
	if flags&0x01 != 0 {
		m.TrackOrder = true
		m.MaxCreationIndex = r.Uint64()
	}
	heap := r.Offset()
	if !r.IsUndefined(heap) {
		return nil, fmt.Errorf("dense link storage: %w", ErrUnsupported)
	}
	return m, r.Err()
}

// GroupInfo is the group info message (type 0x000A). Only the default,
// no-hints form is written.
type GroupInfo struct{}

func (m *GroupInfo) Type() Type { return TypeGroupInfo }

// Encode writes version 0 with no flags.
func (m *GroupInfo) Encode(w *binary.Writer) {
	w.Uint8(0)
	w.Uint8(0)
}

// AttributeInfo records attribute creation order tracking (type 0x0015).
type AttributeInfo struct {
	TrackOrder       bool
	MaxCreationIndex uint16
}

func (m *AttributeInfo) Type() Type { return TypeAttributeInfo }

// Encode writes a version 0 attribute info message with no dense storage.
func (m *AttributeInfo) Encode(w *binary.Writer) {
	w.Uint8(0)
	if m.TrackOrder {
		w.Uint8(0x01)
		w.Uint16(m.MaxCreationIndex)
	} else {
		w.Uint8(0)
	}
	w.UndefinedOffset() // fractal heap
	w.UndefinedOffset() // name index v2 B-tree
}

func decodeAttributeInfo(r *binary.Reader) (*AttributeInfo, error) {
	if version := r.Uint8(); version != 0 {
		return nil, fmt.Errorf("attribute info version %d: %w", version, ErrUnsupported)
	}
	flags := r.Uint8()
	m := &AttributeInfo{}
	if flags&0x01 != 0 {
		m.TrackOrder = true
		m.MaxCreationIndex = r.Uint16()
	}
	heap := r.Offset()
	if !r.IsUndefined(heap) {
		return nil, fmt.Errorf("dense attribute storage: %w", ErrUnsupported)
	}
	return m, r.Err()
}
