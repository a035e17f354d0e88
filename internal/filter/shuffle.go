package filter

import (
	"github.com/robert-malhotra/cfnc/internal/message"
)

// Shuffle implements the byte shuffle filter: byte j of every element is
// grouped together, which makes smooth numeric data compress better.
// Trailing bytes that do not fill an element are left in place.
type Shuffle struct {
	elemSize int
}

// NewShuffle creates a new shuffle filter.
// Client data: [0] = element size in bytes
func NewShuffle(clientData []uint32) *Shuffle {
	elemSize := 1
	if len(clientData) > 0 && clientData[0] > 0 {
		elemSize = int(clientData[0])
	}
	return &Shuffle{elemSize: elemSize}
}

func (f *Shuffle) ID() uint16 {
	return message.FilterShuffle
}

// Encode gathers byte j of every element into plane j.
func (f *Shuffle) Encode(input []byte) ([]byte, error) {
	n := len(input) / f.elemSize
	if f.elemSize <= 1 || n <= 1 {
		return input, nil
	}
	output := make([]byte, len(input))
	for i := 0; i < n; i++ {
		for j := 0; j < f.elemSize; j++ {
			output[j*n+i] = input[i*f.elemSize+j]
		}
	}
	copy(output[n*f.elemSize:], input[n*f.elemSize:])
	return output, nil
}

// Decode reverses Encode.
func (f *Shuffle) Decode(input []byte) ([]byte, error) {
	n := len(input) / f.elemSize
	if f.elemSize <= 1 || n <= 1 {
		return input, nil
	}
	output := make([]byte, len(input))
	for i := 0; i < n; i++ {
		for j := 0; j < f.elemSize; j++ {
			output[i*f.elemSize+j] = input[j*n+i]
		}
	}
	copy(output[n*f.elemSize:], input[n*f.elemSize:])
	return output, nil
}
