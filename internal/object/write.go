package object

import (
	"fmt"

	"github.com/robert-malhotra/cfnc/internal/binary"
	"github.com/robert-malhotra/cfnc/internal/message"
)

// Encode builds a single-chunk version 2 object header holding msgs in
// order. With trackAttrOrder, every message carries a creation order field
// and attribute messages are numbered 0, 1, 2... in the order given.
//
// The encoded size depends only on the message sizes, so callers may size
// a header with placeholder addresses and encode it again once addresses
// are known.
func Encode(msgs []message.Encoder, trackAttrOrder bool, cfg binary.Config) ([]byte, error) {
	perMsg := 4
	if trackAttrOrder {
		perMsg += 2
	}

	bodies := make([][]byte, len(msgs))
	var chunk0 uint64
	for i, m := range msgs {
		b := message.Bytes(m, cfg)
		if len(b) > MaxMessageSize {
			return nil, fmt.Errorf("%w: 0x%04x message is %d bytes, limit %d",
				ErrMessageTooLarge, uint16(m.Type()), len(b), MaxMessageSize)
		}
		bodies[i] = b
		chunk0 += uint64(perMsg + len(b))
	}

	width, widthBits := chunkSizeWidth(chunk0)
	flags := widthBits
	if trackAttrOrder {
		flags |= flagTrackAttrOrder
	}

	buf := &binary.Buffer{}
	w := binary.NewWriter(buf, cfg)
	w.Bytes(Signature)
	w.Uint8(2)
	w.Uint8(flags)
	w.UintN(chunk0, width)

	var order uint16
	for i, m := range msgs {
		w.Uint8(uint8(m.Type()))
		w.Uint16(uint16(len(bodies[i])))
		w.Uint8(0)
		if trackAttrOrder {
			if m.Type() == message.TypeAttribute {
				w.Uint16(order)
				order++
			} else {
				w.Uint16(0)
			}
		}
		w.Bytes(bodies[i])
	}
	w.Uint32(binary.Lookup3Checksum(buf.Bytes()))
	if err := w.Err(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// chunkSizeWidth returns the byte width for the chunk#0 size field and the
// matching flag bits.
func chunkSizeWidth(n uint64) (int, uint8) {
	switch {
	case n < 1<<8:
		return 1, 0
	case n < 1<<16:
		return 2, 1
	case n < 1<<32:
		return 4, 2
	}
	return 8, 3
}
