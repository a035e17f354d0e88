package netcdf

import (
	"fmt"
	"math"

	"github.com/robert-malhotra/cfnc/dataset"
	"github.com/robert-malhotra/cfnc/internal/dtype"
)

// castArray converts arr to the little-endian bytes of kind k. Missing
// cells take fill, or NaN for float storage when fill is nil. The returned
// problems are a *CastError for out-of-range cells and an
// ErrInvalidEncoding error for missing integer cells with no fill value.
func castArray(name string, arr *dataset.Array, k dataset.Kind, fill []byte) ([]byte, []error) {
	size := k.Size()
	buf := make([]byte, arr.Len()*size)
	var (
		overflow   *CastError
		unfillable int
	)
	bad := func(i int) {
		if overflow == nil {
			overflow = &CastError{Variable: name, Kind: k, Index: i, Value: arr.Float(i)}
		}
		overflow.Count++
	}

	for i := 0; i < arr.Len(); i++ {
		if arr.IsMissing(i) {
			switch {
			case fill != nil:
				copy(buf[i*size:], fill)
			case k.IsFloat():
				dtype.PutFloat(buf, k, i, math.NaN())
			default:
				unfillable++
			}
			continue
		}

		switch {
		case k.IsFloat():
			v := arr.Float(i)
			if k == dataset.Float32 && !math.IsInf(v, 0) && math.Abs(v) > math.MaxFloat32 {
				bad(i)
				continue
			}
			dtype.PutFloat(buf, k, i, v)

		case arr.Kind().IsFloat():
			v := math.Trunc(arr.Float(i))
			if math.IsInf(v, 0) || !dtype.FitsFloat(k, v) {
				bad(i)
				continue
			}
			if v < 0 {
				dtype.PutInt(buf, k, i, int64(v))
			} else {
				dtype.PutUint(buf, k, i, uint64(v))
			}

		case arr.Kind().IsUnsigned():
			u, _ := arr.Uint(i)
			if !dtype.FitsUint(k, u) {
				bad(i)
				continue
			}
			dtype.PutUint(buf, k, i, u)

		default:
			x, _ := arr.Int(i)
			if !dtype.FitsInt(k, x) {
				bad(i)
				continue
			}
			dtype.PutInt(buf, k, i, x)
		}
	}

	var problems []error
	if overflow != nil {
		problems = append(problems, overflow)
	}
	if unfillable > 0 {
		problems = append(problems, fmt.Errorf("%w: %s: %d missing value(s) and no fill value for %v storage",
			ErrInvalidEncoding, name, unfillable, k))
	}
	return buf, problems
}
