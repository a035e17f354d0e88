package dtype

import (
	"fmt"
	"math"

	"github.com/robert-malhotra/cfnc/dataset"
	"github.com/robert-malhotra/cfnc/internal/message"
)

// DecodeArray converts n raw elements of kind k into an Array of the given
// shape.
func DecodeArray(k dataset.Kind, data []byte, shape []int) (*dataset.Array, error) {
	if k.Size() == 0 {
		return nil, fmt.Errorf("%w: kind %v", ErrUnsupportedType, k)
	}
	n, limit := 1, len(data)/k.Size()
	for _, d := range shape {
		if d < 0 || (d != 0 && n > limit/d) {
			return nil, fmt.Errorf("%d bytes hold fewer than %v %v values", len(data), shape, k)
		}
		n *= d
	}
	if n > limit {
		return nil, fmt.Errorf("%d bytes hold fewer than %v %v values", len(data), shape, k)
	}
	switch k {
	case dataset.Int8:
		return dataset.NewArray(decode(data, n, 1, func(b []byte) int8 { return int8(b[0]) }), shape...), nil
	case dataset.Uint8:
		return dataset.NewArray(decode(data, n, 1, func(b []byte) uint8 { return b[0] }), shape...), nil
	case dataset.Int16:
		return dataset.NewArray(decode(data, n, 2, func(b []byte) int16 { return int16(le.Uint16(b)) }), shape...), nil
	case dataset.Uint16:
		return dataset.NewArray(decode(data, n, 2, le.Uint16), shape...), nil
	case dataset.Int32:
		return dataset.NewArray(decode(data, n, 4, func(b []byte) int32 { return int32(le.Uint32(b)) }), shape...), nil
	case dataset.Uint32:
		return dataset.NewArray(decode(data, n, 4, le.Uint32), shape...), nil
	case dataset.Int64:
		return dataset.NewArray(decode(data, n, 8, func(b []byte) int64 { return int64(le.Uint64(b)) }), shape...), nil
	case dataset.Uint64:
		return dataset.NewArray(decode(data, n, 8, le.Uint64), shape...), nil
	case dataset.Float32:
		return dataset.NewArray(decode(data, n, 4, func(b []byte) float32 { return math.Float32frombits(le.Uint32(b)) }), shape...), nil
	case dataset.Float64:
		return dataset.NewArray(decode(data, n, 8, func(b []byte) float64 { return math.Float64frombits(le.Uint64(b)) }), shape...), nil
	}
	return nil, fmt.Errorf("%w: kind %v", ErrUnsupportedType, k)
}

func decode[T dataset.Number](data []byte, n, size int, get func([]byte) T) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = get(data[i*size:])
	}
	return out
}

// DecodeAttribute converts an attribute message back to the value
// EncodeAttribute was given: a string, a typed scalar, or a typed slice.
func DecodeAttribute(a *message.Attribute) (any, error) {
	dt, ds := a.Datatype, a.Dataspace
	if dt == nil || ds == nil {
		return nil, fmt.Errorf("attribute %q: missing datatype or dataspace", a.Name)
	}
	if dt.Class == message.ClassString {
		return trimString(a.Data, int(dt.Size)), nil
	}
	k, err := KindOf(dt)
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", a.Name, err)
	}
	n := int(ds.NumElements())
	arr, err := DecodeArray(k, a.Data, []int{n})
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", a.Name, err)
	}
	values := arr.Values()
	if ds.SpaceType == message.DataspaceScalar {
		return first(values), nil
	}
	return values, nil
}

// trimString cuts a fixed-length string at its first null byte.
func trimString(data []byte, size int) string {
	if size < len(data) {
		data = data[:size]
	}
	for i, c := range data {
		if c == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}

func first(values any) any {
	switch v := values.(type) {
	case []int8:
		return v[0]
	case []uint8:
		return v[0]
	case []int16:
		return v[0]
	case []uint16:
		return v[0]
	case []int32:
		return v[0]
	case []uint32:
		return v[0]
	case []int64:
		return v[0]
	case []uint64:
		return v[0]
	case []float32:
		return v[0]
	case []float64:
		return v[0]
	}
	return nil
}
