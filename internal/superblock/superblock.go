package superblock

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/robert-malhotra/cfnc/internal/binary"
)

// Signature is the HDF5 format signature.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

// Size is the encoded size of a version 2 superblock with 8-byte offsets.
const Size = 12 + 4*8 + 4

// Errors
var (
	ErrNotHDF5            = errors.New("not an HDF5 file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrInvalidSuperblock  = errors.New("invalid superblock structure")
)

// maxSearch bounds the signature search through user blocks.
const maxSearch = 1 << 20

// Superblock is the decoded file entry point.
type Superblock struct {
	Version          uint8
	OffsetSize       uint8
	LengthSize       uint8
	ConsistencyFlags uint8

	BaseAddress      uint64
	ExtensionAddress uint64
	EOFAddress       uint64
	RootGroupAddress uint64

	// FileOffset is where the signature was found.
	FileOffset int64
}

// Config returns the binary configuration the file uses.
func (sb *Superblock) Config() binary.Config {
	cfg := binary.DefaultConfig()
	cfg.OffsetSize = int(sb.OffsetSize)
	cfg.LengthSize = int(sb.LengthSize)
	return cfg
}

// Read locates and parses the superblock.
func Read(r io.ReaderAt) (*Superblock, error) {
	sig := make([]byte, len(Signature))
	for offset := int64(0); offset <= maxSearch; offset = nextOffset(offset) {
		n, err := r.ReadAt(sig, offset)
		if n < len(sig) {
			if err == nil || errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if bytes.Equal(sig, Signature) {
			return readAt(r, offset)
		}
	}
	return nil, ErrNotHDF5
}

func nextOffset(off int64) int64 {
	if off == 0 {
		return 512
	}
	return off * 2
}

func readAt(ra io.ReaderAt, offset int64) (*Superblock, error) {
	r := binary.NewReader(ra, binary.DefaultConfig()).At(offset + 8)
	sb := &Superblock{
		Version:          r.Uint8(),
		OffsetSize:       r.Uint8(),
		LengthSize:       r.Uint8(),
		ConsistencyFlags: r.Uint8(),
		FileOffset:       offset,
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSuperblock, err)
	}
	if sb.Version != 2 && sb.Version != 3 {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedVersion, sb.Version)
	}
	r, err := r.WithSizes(int(sb.OffsetSize), int(sb.LengthSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSuperblock, err)
	}
	sb.BaseAddress = r.Offset()
	sb.ExtensionAddress = r.Offset()
	sb.EOFAddress = r.Offset()
	sb.RootGroupAddress = r.Offset()
	end := r.Pos()
	stored := r.Uint32()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSuperblock, err)
	}

	raw := binary.NewReader(ra, binary.DefaultConfig()).At(offset).Bytes(int(end - offset))
	if sum := binary.Lookup3Checksum(raw); sum != stored {
		return nil, fmt.Errorf("%w: checksum 0x%08x, computed 0x%08x", ErrInvalidSuperblock, stored, sum)
	}
	return sb, nil
}
