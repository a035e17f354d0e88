package dataset

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Kind is the numeric element type of an array. It doubles as the on-disk
// storage type of an encoded variable.
type Kind uint8

const (
	Invalid Kind = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
)

var kindNames = [...]struct {
	name string
	cdl  string
	size int
}{
	Invalid: {"invalid", "", 0},
	Int8:    {"int8", "byte", 1},
	Uint8:   {"uint8", "ubyte", 1},
	Int16:   {"int16", "short", 2},
	Uint16:  {"uint16", "ushort", 2},
	Int32:   {"int32", "int", 4},
	Uint32:  {"uint32", "uint", 4},
	Int64:   {"int64", "int64", 8},
	Uint64:  {"uint64", "uint64", 8},
	Float32: {"float32", "float", 4},
	Float64: {"float64", "double", 8},
}

func (k Kind) String() string {
	if int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindNames[k].name
}

// CDL returns the netCDF CDL type name, e.g. "float" for Float32.
func (k Kind) CDL() string {
	if int(k) >= len(kindNames) {
		return ""
	}
	return kindNames[k].cdl
}

// Size returns the element size in bytes.
func (k Kind) Size() int {
	if int(k) >= len(kindNames) {
		return 0
	}
	return kindNames[k].size
}

// Valid reports whether k names a storable type.
func (k Kind) Valid() bool { return k > Invalid && int(k) < len(kindNames) }

// IsFloat reports whether k is a floating-point kind.
func (k Kind) IsFloat() bool { return k == Float32 || k == Float64 }

// IsSigned reports whether k is a signed integer kind.
func (k Kind) IsSigned() bool {
	switch k {
	case Int8, Int16, Int32, Int64:
		return true
	}
	return false
}

// IsUnsigned reports whether k is an unsigned integer kind.
func (k Kind) IsUnsigned() bool {
	switch k {
	case Uint8, Uint16, Uint32, Uint64:
		return true
	}
	return false
}

// ParseKind accepts Go names ("float32"), CDL names ("float") and numpy
// codes ("f4", "i2", "u1").
func ParseKind(s string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	switch key {
	case "f4", "<f4", "single":
		return Float32, nil
	case "f8", "<f8":
		return Float64, nil
	case "i1":
		return Int8, nil
	case "u1", "char":
		return Uint8, nil
	case "i2", "<i2":
		return Int16, nil
	case "u2", "<u2":
		return Uint16, nil
	case "i4", "<i4", "int":
		return Int32, nil
	case "u4", "<u4":
		return Uint32, nil
	case "i8", "<i8", "long":
		return Int64, nil
	case "u8", "<u8":
		return Uint64, nil
	}
	for k := Int8; k <= Float64; k++ {
		if key == kindNames[k].name || key == kindNames[k].cdl {
			return k, nil
		}
	}
	return Invalid, fmt.Errorf("unknown numeric type %q", s)
}

// Number is the set of Go element types an Array can be built from.
type Number interface {
	int | int8 | int16 | int32 | int64 |
		uint | uint8 | uint16 | uint32 | uint64 |
		float32 | float64
}

// Array is a dense row-major block of numbers with a shape and an optional
// missing-cell mask. Signed integers are held as int64, unsigned as uint64
// and floats as float64; the Kind records the original element type.
type Array struct {
	kind  Kind
	shape []int
	i     []int64
	u     []uint64
	f     []float64
	mask  []bool
}

// NewArray copies values into a new Array. The shape defaults to a single
// axis of len(values).
func NewArray[T Number](values []T, shape ...int) *Array {
	a := &Array{kind: kindOf[T]()}
	switch {
	case a.kind.IsFloat():
		a.f = make([]float64, len(values))
		for i, v := range values {
			a.f[i] = float64(v)
		}
	case a.kind.IsUnsigned():
		a.u = make([]uint64, len(values))
		for i, v := range values {
			a.u[i] = uint64(v)
		}
	default:
		a.i = make([]int64, len(values))
		for i, v := range values {
			a.i[i] = int64(v)
		}
	}
	a.shape = defaultShape(len(values), shape)
	return a
}

// Full returns an array of n copies of v.
func Full[T Number](n int, v T, shape ...int) *Array {
	values := make([]T, n)
	for i := range values {
		values[i] = v
	}
	return NewArray(values, shape...)
}

func defaultShape(n int, shape []int) []int {
	if len(shape) == 0 {
		return []int{n}
	}
	out := make([]int, len(shape))
	copy(out, shape)
	return out
}

func kindOf[T Number]() Kind {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Int8
	case uint8:
		return Uint8
	case int16:
		return Int16
	case uint16:
		return Uint16
	case int32:
		return Int32
	case uint32:
		return Uint32
	case int, int64:
		return Int64
	case uint, uint64:
		return Uint64
	case float32:
		return Float32
	}
	return Float64
}

// FromNested builds an Array from a scalar or a rectangular nested slice such
// as [][]float64. The shape follows the nesting.
func FromNested(v any) (*Array, error) {
	val := reflect.ValueOf(v)
	if !val.IsValid() {
		return nil, fmt.Errorf("nil value: %w", ErrShapeMismatch)
	}

	var shape []int
	cur := val
	for cur.Kind() == reflect.Slice || cur.Kind() == reflect.Array {
		shape = append(shape, cur.Len())
		if cur.Len() == 0 {
			break
		}
		cur = cur.Index(0)
	}

	elem := val.Type()
	for elem.Kind() == reflect.Slice || elem.Kind() == reflect.Array {
		elem = elem.Elem()
	}
	kind, ok := reflectKind(elem.Kind())
	if !ok {
		return nil, fmt.Errorf("unsupported element type %s", elem)
	}

	a := &Array{kind: kind, shape: shape}
	if len(shape) == 0 {
		a.shape = []int{1}
	}
	if err := flatten(val, shape, a); err != nil {
		return nil, err
	}
	return a, nil
}

func flatten(v reflect.Value, shape []int, a *Array) error {
	if len(shape) == 0 {
		switch {
		case a.kind.IsFloat():
			a.f = append(a.f, v.Float())
		case a.kind.IsUnsigned():
			a.u = append(a.u, v.Uint())
		default:
			a.i = append(a.i, v.Int())
		}
		return nil
	}
	if v.Len() != shape[0] {
		return fmt.Errorf("ragged nested slice: axis length %d, expected %d: %w", v.Len(), shape[0], ErrShapeMismatch)
	}
	for j := 0; j < v.Len(); j++ {
		if err := flatten(v.Index(j), shape[1:], a); err != nil {
			return err
		}
	}
	return nil
}

func reflectKind(k reflect.Kind) (Kind, bool) {
	switch k {
	case reflect.Int8:
		return Int8, true
	case reflect.Uint8:
		return Uint8, true
	case reflect.Int16:
		return Int16, true
	case reflect.Uint16:
		return Uint16, true
	case reflect.Int32:
		return Int32, true
	case reflect.Uint32:
		return Uint32, true
	case reflect.Int, reflect.Int64:
		return Int64, true
	case reflect.Uint, reflect.Uint64:
		return Uint64, true
	case reflect.Float32:
		return Float32, true
	case reflect.Float64:
		return Float64, true
	}
	return Invalid, false
}

// Kind returns the element kind.
func (a *Array) Kind() Kind { return a.kind }

// Shape returns a copy of the shape.
func (a *Array) Shape() []int {
	out := make([]int, len(a.shape))
	copy(out, a.shape)
	return out
}

// Rank returns the number of axes.
func (a *Array) Rank() int { return len(a.shape) }

// Len returns the number of cells.
func (a *Array) Len() int {
	switch {
	case a.kind.IsFloat():
		return len(a.f)
	case a.kind.IsUnsigned():
		return len(a.u)
	}
	return len(a.i)
}

// Float returns cell i as float64.
func (a *Array) Float(i int) float64 {
	switch {
	case a.kind.IsFloat():
		return a.f[i]
	case a.kind.IsUnsigned():
		return float64(a.u[i])
	}
	return float64(a.i[i])
}

// Int returns cell i as int64. ok is false for non-integral or out of range
// values.
func (a *Array) Int(i int) (int64, bool) {
	switch {
	case a.kind.IsFloat():
		f := a.f[i]
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	case a.kind.IsUnsigned():
		if a.u[i] > math.MaxInt64 {
			return 0, false
		}
		return int64(a.u[i]), true
	}
	return a.i[i], true
}

// Uint returns cell i as uint64. ok is false for negative, non-integral or
// out of range values.
func (a *Array) Uint(i int) (uint64, bool) {
	switch {
	case a.kind.IsFloat():
		f := a.f[i]
		if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
			return 0, false
		}
		return uint64(f), true
	case a.kind.IsUnsigned():
		return a.u[i], true
	}
	if a.i[i] < 0 {
		return 0, false
	}
	return uint64(a.i[i]), true
}

// Floats returns all cells as float64. Missing integer cells read as NaN.
func (a *Array) Floats() []float64 {
	out := make([]float64, a.Len())
	for i := range out {
		if a.IsMissing(i) {
			out[i] = math.NaN()
			continue
		}
		out[i] = a.Float(i)
	}
	return out
}

// Values returns the cells as a typed slice matching Kind, e.g. []float32.
func (a *Array) Values() any {
	n := a.Len()
	switch a.kind {
	case Int8:
		return convertInts[int8](a.i)
	case Int16:
		return convertInts[int16](a.i)
	case Int32:
		return convertInts[int32](a.i)
	case Int64:
		return convertInts[int64](a.i)
	case Uint8:
		return convertUints[uint8](a.u)
	case Uint16:
		return convertUints[uint16](a.u)
	case Uint32:
		return convertUints[uint32](a.u)
	case Uint64:
		return convertUints[uint64](a.u)
	case Float32:
		out := make([]float32, n)
		for i, v := range a.f {
			out[i] = float32(v)
		}
		return out
	}
	out := make([]float64, n)
	copy(out, a.f)
	return out
}

func convertInts[T int8 | int16 | int32 | int64](src []int64) []T {
	out := make([]T, len(src))
	for i, v := range src {
		out[i] = T(v)
	}
	return out
}

func convertUints[T uint8 | uint16 | uint32 | uint64](src []uint64) []T {
	out := make([]T, len(src))
	for i, v := range src {
		out[i] = T(v)
	}
	return out
}

// SetMissing marks the given cells as missing.
func (a *Array) SetMissing(idx ...int) {
	if len(idx) == 0 {
		return
	}
	if a.mask == nil {
		a.mask = make([]bool, a.Len())
	}
	for _, i := range idx {
		a.mask[i] = true
	}
}

// IsMissing reports whether cell i is masked, or NaN in a float array.
func (a *Array) IsMissing(i int) bool {
	if a.mask != nil && a.mask[i] {
		return true
	}
	return a.kind.IsFloat() && math.IsNaN(a.f[i])
}

// MissingCount returns the number of missing cells.
func (a *Array) MissingCount() int {
	n := 0
	for i := 0; i < a.Len(); i++ {
		if a.IsMissing(i) {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	c := &Array{kind: a.kind, shape: a.Shape()}
	if a.i != nil {
		c.i = append([]int64(nil), a.i...)
	}
	if a.u != nil {
		c.u = append([]uint64(nil), a.u...)
	}
	if a.f != nil {
		c.f = append([]float64(nil), a.f...)
	}
	if a.mask != nil {
		c.mask = append([]bool(nil), a.mask...)
	}
	return c
}

// Equal reports whether a and b have the same kind, shape, cells and
// missing pattern. Missing cells compare equal regardless of value.
func (a *Array) Equal(b *Array) bool {
	if a.kind != b.kind || !equalInts(a.shape, b.shape) || a.Len() != b.Len() {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		am, bm := a.IsMissing(i), b.IsMissing(i)
		if am != bm {
			return false
		}
		if am {
			continue
		}
		switch {
		case a.kind.IsFloat():
			if a.f[i] != b.f[i] {
				return false
			}
		case a.kind.IsUnsigned():
			if a.u[i] != b.u[i] {
				return false
			}
		default:
			if a.i[i] != b.i[i] {
				return false
			}
		}
	}
	return true
}

// shapeLen returns the number of cells a shape describes.
func shapeLen(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
