package dtype

import (
	"errors"
	"fmt"
	"math"

	"github.com/robert-malhotra/cfnc/dataset"
	"github.com/robert-malhotra/cfnc/internal/message"
)

// Errors
var (
	ErrUnsupportedType = errors.New("unsupported datatype")
	ErrNotExact        = errors.New("value not exactly representable")
)

// ForKind returns the little-endian datatype that stores k.
func ForKind(k dataset.Kind) (*message.Datatype, error) {
	switch {
	case k.IsFloat():
		return message.NewFloatPoint(k.Size()), nil
	case k.IsSigned():
		return message.NewFixedPoint(k.Size(), true), nil
	case k.IsUnsigned():
		return message.NewFixedPoint(k.Size(), false), nil
	}
	return nil, fmt.Errorf("%w: kind %v", ErrUnsupportedType, k)
}

// KindOf maps a numeric datatype back to its kind.
func KindOf(dt *message.Datatype) (dataset.Kind, error) {
	if dt == nil {
		return dataset.Invalid, fmt.Errorf("%w: nil datatype", ErrUnsupportedType)
	}
	if dt.BigEndian {
		return dataset.Invalid, fmt.Errorf("%w: big-endian data", ErrUnsupportedType)
	}
	switch dt.Class {
	case message.ClassFloatPoint:
		switch dt.Size {
		case 4:
			return dataset.Float32, nil
		case 8:
			return dataset.Float64, nil
		}
	case message.ClassFixedPoint:
		signed := [...]dataset.Kind{1: dataset.Int8, 2: dataset.Int16, 4: dataset.Int32, 8: dataset.Int64}
		unsigned := [...]dataset.Kind{1: dataset.Uint8, 2: dataset.Uint16, 4: dataset.Uint32, 8: dataset.Uint64}
		if dt.Size <= 8 {
			k := unsigned[dt.Size]
			if dt.Signed {
				k = signed[dt.Size]
			}
			if k != dataset.Invalid {
				return k, nil
			}
		}
	}
	return dataset.Invalid, fmt.Errorf("%w: class %d size %d", ErrUnsupportedType, dt.Class, dt.Size)
}

// IntRange returns the smallest and largest value of integer kind k.
func IntRange(k dataset.Kind) (lo int64, hi uint64) {
	bits := uint(k.Size() * 8)
	if k.IsSigned() {
		return -1 << (bits - 1), 1<<(bits-1) - 1
	}
	if bits == 64 {
		return 0, math.MaxUint64
	}
	return 0, 1<<bits - 1
}

// FitsInt reports whether v is in range for integer kind k.
func FitsInt(k dataset.Kind, v int64) bool {
	lo, hi := IntRange(k)
	return v >= lo && (v < 0 || uint64(v) <= hi)
}

// FitsUint reports whether v is in range for integer kind k.
func FitsUint(k dataset.Kind, v uint64) bool {
	_, hi := IntRange(k)
	return v <= hi
}

// FitsFloat reports whether an integral float v is in range for integer
// kind k.
func FitsFloat(k dataset.Kind, v float64) bool {
	lo, hi := IntRange(k)
	// 2^63 and 2^64 are exact in float64; hi itself may not be.
	return v >= float64(lo) && v < float64(hi)+1
}
