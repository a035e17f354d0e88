package object

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/robert-malhotra/cfnc/internal/binary"
	"github.com/robert-malhotra/cfnc/internal/message"
)

// Signature starts every version 2 object header.
var Signature = []byte{'O', 'H', 'D', 'R'}

// Errors
var (
	ErrInvalidHeader    = errors.New("invalid object header")
	ErrChecksumMismatch = errors.New("object header checksum mismatch")
	ErrMessageTooLarge  = errors.New("header message too large")
)

// MaxMessageSize is the largest message body a header can hold.
const MaxMessageSize = 0xFFFF

// Header flag bits
const (
	flagTrackAttrOrder = 0x04
	flagPhaseChange    = 0x10
	flagTimes          = 0x20
)

// Header is a decoded object header.
type Header struct {
	Address  uint64
	Flags    uint8
	Messages []message.Message
}

// TracksAttributeOrder reports whether attribute creation order is stored.
func (h *Header) TracksAttributeOrder() bool { return h.Flags&flagTrackAttrOrder != 0 }

// GetMessage returns the first message of the given type, or nil if not found.
func (h *Header) GetMessage(typ message.Type) message.Message {
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			return msg
		}
	}
	return nil
}

// GetMessages returns all messages of the given type.
func (h *Header) GetMessages(typ message.Type) []message.Message {
	var result []message.Message
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			result = append(result, msg)
		}
	}
	return result
}

// Dataspace returns the dataspace message if present.
func (h *Header) Dataspace() *message.Dataspace {
	msg, _ := h.GetMessage(message.TypeDataspace).(*message.Dataspace)
	return msg
}

// Datatype returns the datatype message if present.
func (h *Header) Datatype() *message.Datatype {
	msg, _ := h.GetMessage(message.TypeDatatype).(*message.Datatype)
	return msg
}

// DataLayout returns the data layout message if present.
func (h *Header) DataLayout() *message.DataLayout {
	msg, _ := h.GetMessage(message.TypeDataLayout).(*message.DataLayout)
	return msg
}

// FillValue returns the fill value message if present.
func (h *Header) FillValue() *message.FillValue {
	msg, _ := h.GetMessage(message.TypeFillValue).(*message.FillValue)
	return msg
}

// FilterPipeline returns the filter pipeline message if present.
func (h *Header) FilterPipeline() *message.FilterPipeline {
	msg, _ := h.GetMessage(message.TypeFilterPipeline).(*message.FilterPipeline)
	return msg
}

// Attributes returns the attribute messages in stored order.
func (h *Header) Attributes() []*message.Attribute {
	var attrs []*message.Attribute
	for _, msg := range h.Messages {
		if a, ok := msg.(*message.Attribute); ok {
			attrs = append(attrs, a)
		}
	}
	return attrs
}

// Links returns the link messages in stored order.
func (h *Header) Links() []*message.Link {
	var links []*message.Link
	for _, msg := range h.Messages {
		if l, ok := msg.(*message.Link); ok {
			links = append(links, l)
		}
	}
	return links
}

// Read decodes the object header at addr. The checksum is verified before
// any message is parsed.
func Read(ra io.ReaderAt, addr uint64, cfg binary.Config) (*Header, error) {
	r := binary.NewReader(ra, cfg).At(int64(addr))
	if sig := r.Bytes(4); r.Err() != nil || !bytes.Equal(sig, Signature) {
		return nil, fmt.Errorf("%w at %d: bad signature", ErrInvalidHeader, addr)
	}
	if version := r.Uint8(); version != 2 {
		return nil, fmt.Errorf("%w at %d: version %d", ErrInvalidHeader, addr, version)
	}
	hdr := &Header{Address: addr, Flags: r.Uint8()}
	if hdr.Flags&flagTimes != 0 {
		r.Skip(16)
	}
	if hdr.Flags&flagPhaseChange != 0 {
		r.Skip(4)
	}
	chunk0 := r.UintN(1 << (hdr.Flags & 0x03))
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w at %d: %w", ErrInvalidHeader, addr, err)
	}
	if chunk0 > math.MaxInt32 {
		return nil, fmt.Errorf("%w at %d: chunk size %d", ErrInvalidHeader, addr, chunk0)
	}

	// Re-read the whole prefix plus chunk for the checksum.
	prefix := r.Pos() - int64(addr)
	raw := binary.NewReader(ra, cfg).At(int64(addr)).Bytes(int(prefix) + int(chunk0) + 4)
	if len(raw) < int(prefix)+int(chunk0)+4 {
		return nil, fmt.Errorf("%w at %d: truncated", ErrInvalidHeader, addr)
	}
	body := raw[:len(raw)-4]
	stored := binary.NewBytesReader(raw[len(raw)-4:], cfg).Uint32()
	if sum := binary.Lookup3Checksum(body); sum != stored {
		return nil, fmt.Errorf("%w at %d: stored 0x%08x, computed 0x%08x", ErrChecksumMismatch, addr, stored, sum)
	}

	mr := binary.NewBytesReader(body[prefix:], cfg)
	track := hdr.TracksAttributeOrder()
	for mr.Pos()+4 <= int64(chunk0) {
		typ := message.Type(mr.Uint8())
		size := int(mr.Uint16())
		mr.Skip(1) // message flags
		if track {
			mr.Skip(2)
		}
		data := mr.Bytes(size)
		if err := mr.Err(); err != nil {
			return nil, fmt.Errorf("%w at %d: %w", ErrInvalidHeader, addr, err)
		}
		switch typ {
		case message.TypeNIL:
			continue
		case message.TypeObjectHeaderContinuation:
			return nil, fmt.Errorf("object header at %d: continuation blocks: %w", addr, message.ErrUnsupported)
		}
		msg, err := message.Decode(typ, data, cfg)
		if err != nil {
			return nil, fmt.Errorf("object header at %d: %w", addr, err)
		}
		hdr.Messages = append(hdr.Messages, msg)
	}
	return hdr, nil
}
