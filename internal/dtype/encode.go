package dtype

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/robert-malhotra/cfnc/dataset"
	"github.com/robert-malhotra/cfnc/internal/message"
)

var le = binary.LittleEndian

// PutInt stores v as element i of buf with kind k. The caller has checked
// the range.
func PutInt(buf []byte, k dataset.Kind, i int, v int64) {
	PutUint(buf, k, i, uint64(v))
}

// PutUint stores the low bytes of v as element i of buf with integer kind k.
func PutUint(buf []byte, k dataset.Kind, i int, v uint64) {
	off := i * k.Size()
	switch k.Size() {
	case 1:
		buf[off] = byte(v)
	case 2:
		le.PutUint16(buf[off:], uint16(v))
	case 4:
		le.PutUint32(buf[off:], uint32(v))
	case 8:
		le.PutUint64(buf[off:], v)
	}
}

// PutFloat stores v as element i of buf with float kind k.
func PutFloat(buf []byte, k dataset.Kind, i int, v float64) {
	off := i * k.Size()
	if k == dataset.Float32 {
		le.PutUint32(buf[off:], math.Float32bits(float32(v)))
		return
	}
	le.PutUint64(buf[off:], math.Float64bits(v))
}

// number splits a Go numeric value into its signed, unsigned or float form.
type number struct {
	i     int64
	u     uint64
	f     float64
	class byte // 'i', 'u' or 'f'
}

func toNumber(v any) (number, bool) {
	switch x := v.(type) {
	case int:
		return number{i: int64(x), class: 'i'}, true
	case int8:
		return number{i: int64(x), class: 'i'}, true
	case int16:
		return number{i: int64(x), class: 'i'}, true
	case int32:
		return number{i: int64(x), class: 'i'}, true
	case int64:
		return number{i: x, class: 'i'}, true
	case uint:
		return number{u: uint64(x), class: 'u'}, true
	case uint8:
		return number{u: uint64(x), class: 'u'}, true
	case uint16:
		return number{u: uint64(x), class: 'u'}, true
	case uint32:
		return number{u: uint64(x), class: 'u'}, true
	case uint64:
		return number{u: x, class: 'u'}, true
	case float32:
		return number{f: float64(x), class: 'f'}, true
	case float64:
		return number{f: x, class: 'f'}, true
	}
	return number{}, false
}

// Exact encodes the single value v as kind k, failing with ErrNotExact
// unless k holds v without loss.
func Exact(k dataset.Kind, v any) ([]byte, error) {
	n, ok := toNumber(v)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a number", ErrNotExact, v)
	}
	buf := make([]byte, k.Size())
	fail := fmt.Errorf("%w: %v as %v", ErrNotExact, v, k)

	switch {
	case k.IsFloat():
		var f float64
		switch n.class {
		case 'i':
			f = float64(n.i)
			if f >= math.MaxInt64 || int64(f) != n.i {
				return nil, fail
			}
		case 'u':
			f = float64(n.u)
			if f >= math.MaxUint64 || uint64(f) != n.u {
				return nil, fail
			}
		default:
			f = n.f
		}
		if k == dataset.Float32 && !math.IsNaN(f) && float64(float32(f)) != f {
			return nil, fail
		}
		PutFloat(buf, k, 0, f)
	default:
		switch n.class {
		case 'i':
			if !FitsInt(k, n.i) {
				return nil, fail
			}
			PutInt(buf, k, 0, n.i)
		case 'u':
			if !FitsUint(k, n.u) {
				return nil, fail
			}
			PutUint(buf, k, 0, n.u)
		default:
			if n.f != math.Trunc(n.f) || !FitsFloat(k, n.f) {
				return nil, fail
			}
			if n.f < 0 {
				PutInt(buf, k, 0, int64(n.f))
			} else {
				PutUint(buf, k, 0, uint64(n.f))
			}
		}
	}
	return buf, nil
}

// EncodeAttribute returns the datatype, dataspace and raw bytes of an
// attribute value. Strings become null-terminated fixed-length strings
// with a scalar dataspace, tagged UTF-8 when not plain ASCII. Numeric
// scalars use a scalar dataspace, numeric slices a 1-D one.
func EncodeAttribute(v any) (*message.Datatype, *message.Dataspace, []byte, error) {
	if s, ok := v.(string); ok {
		if !utf8.ValidString(s) {
			return nil, nil, nil, fmt.Errorf("%w: string is not valid UTF-8", ErrUnsupportedType)
		}
		dt := message.NewFixedString(len(s)+1, !isASCII(s))
		return dt, message.NewScalarDataspace(), append([]byte(s), 0), nil
	}
	if n, ok := toNumber(v); ok {
		k := scalarKind(v)
		dt, _ := ForKind(k)
		buf := make([]byte, k.Size())
		putNumber(buf, k, 0, n)
		return dt, message.NewScalarDataspace(), buf, nil
	}
	arr, err := sliceArray(v)
	if err != nil {
		return nil, nil, nil, err
	}
	k := arr.Kind()
	dt, _ := ForKind(k)
	buf := make([]byte, arr.Len()*k.Size())
	for i := 0; i < arr.Len(); i++ {
		switch {
		case k.IsFloat():
			PutFloat(buf, k, i, arr.Float(i))
		case k.IsUnsigned():
			u, _ := arr.Uint(i)
			PutUint(buf, k, i, u)
		default:
			x, _ := arr.Int(i)
			PutInt(buf, k, i, x)
		}
	}
	return dt, message.NewSimpleDataspace(uint64(arr.Len())), buf, nil
}

func putNumber(buf []byte, k dataset.Kind, i int, n number) {
	switch n.class {
	case 'i':
		PutInt(buf, k, i, n.i)
	case 'u':
		PutUint(buf, k, i, n.u)
	default:
		PutFloat(buf, k, i, n.f)
	}
}

func scalarKind(v any) dataset.Kind {
	switch v.(type) {
	case int8:
		return dataset.Int8
	case int16:
		return dataset.Int16
	case int32:
		return dataset.Int32
	case int, int64:
		return dataset.Int64
	case uint8:
		return dataset.Uint8
	case uint16:
		return dataset.Uint16
	case uint32:
		return dataset.Uint32
	case uint, uint64:
		return dataset.Uint64
	case float32:
		return dataset.Float32
	}
	return dataset.Float64
}

func sliceArray(v any) (*dataset.Array, error) {
	switch x := v.(type) {
	case []int8:
		return dataset.NewArray(x), nil
	case []int16:
		return dataset.NewArray(x), nil
	case []int32:
		return dataset.NewArray(x), nil
	case []int64:
		return dataset.NewArray(x), nil
	case []uint8:
		return dataset.NewArray(x), nil
	case []uint16:
		return dataset.NewArray(x), nil
	case []uint32:
		return dataset.NewArray(x), nil
	case []uint64:
		return dataset.NewArray(x), nil
	case []float32:
		return dataset.NewArray(x), nil
	case []float64:
		return dataset.NewArray(x), nil
	}
	return nil, fmt.Errorf("%w: attribute value %T", ErrUnsupportedType, v)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
