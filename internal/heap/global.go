package heap

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/robert-malhotra/cfnc/internal/binary"
)

// Signature starts every global heap collection.
var Signature = []byte{'G', 'C', 'O', 'L'}

// MinCollectionSize is the smallest collection the HDF5 library creates.
const MinCollectionSize = 4096

// MaxObjects is the most objects one collection can index.
const MaxObjects = 0xFFFF

var (
	// ErrInvalidHeap reports a malformed collection or a missing object.
	ErrInvalidHeap = errors.New("invalid global heap")
	// ErrCollectionFull is returned by Add once MaxObjects are stored.
	ErrCollectionFull = errors.New("global heap collection full")
)

// ID references one object in a collection.
type ID struct {
	Collection uint64
	Index      uint32
}

// IDSize is the encoded size of an ID.
func IDSize(cfg binary.Config) int { return cfg.OffsetSize + 4 }

// EncodeID writes id as collection address(O) index(4).
func EncodeID(w *binary.Writer, id ID) {
	w.Offset(id.Collection)
	w.Uint32(id.Index)
}

// DecodeID reads an ID written by EncodeID.
func DecodeID(r *binary.Reader) ID {
	return ID{Collection: r.Offset(), Index: r.Uint32()}
}

func headerSize(cfg binary.Config) int { return 8 + cfg.LengthSize }

func objectHeaderSize(cfg binary.Config) int { return 8 + cfg.LengthSize }

func pad8(n int) int { return (n + 7) &^ 7 }

// Collection accumulates objects for a new collection. Object indexes
// start at 1.
type Collection struct {
	cfg     binary.Config
	objects [][]byte
}

// NewCollection returns an empty collection.
func NewCollection(cfg binary.Config) *Collection {
	return &Collection{cfg: cfg}
}

// Add appends an object and returns its index.
func (c *Collection) Add(data []byte) (uint32, error) {
	if len(c.objects) >= MaxObjects {
		return 0, fmt.Errorf("%w: %d objects", ErrCollectionFull, len(c.objects))
	}
	c.objects = append(c.objects, append([]byte(nil), data...))
	return uint32(len(c.objects)), nil
}

// Len returns the number of objects.
func (c *Collection) Len() int { return len(c.objects) }

// Size returns the encoded collection size: the used bytes rounded up to
// MinCollectionSize.
func (c *Collection) Size() uint64 {
	used := headerSize(c.cfg)
	for _, obj := range c.objects {
		used += objectHeaderSize(c.cfg) + pad8(len(obj))
	}
	return uint64(max(used, MinCollectionSize))
}

// Encode returns the collection bytes. Remaining space large enough for an
// object header becomes the free space object.
func (c *Collection) Encode() []byte {
	size := c.Size()
	buf := &binary.Buffer{}
	w := binary.NewWriter(buf, c.cfg)
	w.Bytes(Signature)
	w.Uint8(1)
	w.Zeros(3)
	w.Length(size)
	for i, obj := range c.objects {
		w.Uint16(uint16(i + 1))
		w.Uint16(1)
		w.Zeros(4)
		w.Length(uint64(len(obj)))
		w.Bytes(obj)
		w.Zeros(pad8(len(obj)) - len(obj))
	}
	if free := int(size) - int(w.Pos()); free >= objectHeaderSize(c.cfg) {
		w.Uint16(0)
		w.Uint16(0)
		w.Zeros(4)
		w.Length(uint64(free))
	}
	w.Zeros(int(size) - int(w.Pos()))
	return buf.Bytes()
}

// GlobalHeap is a decoded collection.
type GlobalHeap struct {
	Address uint64
	Size    uint64
	objects map[uint32][]byte
}

// Read decodes the collection at addr.
func Read(ra io.ReaderAt, addr uint64, cfg binary.Config) (*GlobalHeap, error) {
	r := binary.NewReader(ra, cfg).At(int64(addr))
	if sig := r.Bytes(4); !bytes.Equal(sig, Signature) {
		return nil, fmt.Errorf("%w at %d: bad signature", ErrInvalidHeap, addr)
	}
	if version := r.Uint8(); version != 1 {
		return nil, fmt.Errorf("%w at %d: version %d", ErrInvalidHeap, addr, version)
	}
	r.Skip(3)
	h := &GlobalHeap{Address: addr, Size: r.Length(), objects: make(map[uint32][]byte)}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w at %d: %w", ErrInvalidHeap, addr, err)
	}

	end := int64(addr + h.Size)
	for r.Pos()+int64(objectHeaderSize(cfg)) <= end {
		index := r.Uint16()
		r.Skip(2 + 4) // reference count, reserved
		size := r.Length()
		if index == 0 {
			break
		}
		if r.Pos()+int64(size) > end {
			return nil, fmt.Errorf("%w at %d: object %d overruns collection", ErrInvalidHeap, addr, index)
		}
		h.objects[uint32(index)] = r.Bytes(int(size))
		r.Skip(pad8(int(size)) - int(size))
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("%w at %d: %w", ErrInvalidHeap, addr, err)
		}
	}
	return h, nil
}

// Object returns the data of object index.
func (h *GlobalHeap) Object(index uint32) ([]byte, error) {
	data, ok := h.objects[index]
	if !ok {
		return nil, fmt.Errorf("%w: object %d not in collection at %d", ErrInvalidHeap, index, h.Address)
	}
	return data, nil
}

// Len returns the number of objects.
func (h *GlobalHeap) Len() int { return len(h.objects) }
