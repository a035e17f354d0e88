package dataset

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
)

// CelsiusOffset converts degrees Celsius to kelvin.
const CelsiusOffset = 273.15

var celsiusUnits = map[string]bool{
	"degc":            true,
	"degree_celsius":  true,
	"degrees_celsius": true,
	"celsius":         true,
	"c":               true,
	"°c":              true,
	"deg_c":           true,
}

// Transform applies fn to every present cell and sets attrs in the same
// step. The values become float64. Missing cells stay missing.
func (v *variable) Transform(fn func(float64) float64, attrs ...Attribute) error {
	if err := v.checkMutable(); err != nil {
		return err
	}
	// Validate attributes before touching values so a failure leaves both
	// untouched.
	for _, a := range attrs {
		if a.Key == "" {
			return fmt.Errorf("variable %q: %w: empty key", v.name, ErrInvalidAttribute)
		}
		if _, err := normalizeValue(a.Value); err != nil {
			return fmt.Errorf("variable %q: attribute %q: %w", v.name, a.Key, err)
		}
	}
	out := v.values.toFloat64()
	for i := range out.f {
		if out.IsMissing(i) {
			continue
		}
		out.f[i] = fn(out.f[i])
	}
	v.values = out
	return v.attrs.SetAll(attrs...)
}

// ToKelvin converts Celsius values to kelvin and sets units to "K". It
// fails with ErrUnits when the declared units are not Celsius.
func (v *variable) ToKelvin() error {
	if err := v.checkMutable(); err != nil {
		return err
	}
	if u, ok := v.attrs.Get("units"); ok {
		s, _ := u.(string)
		if !celsiusUnits[strings.ToLower(strings.TrimSpace(s))] {
			return fmt.Errorf("variable %q: units %v are not Celsius: %w", v.name, u, ErrUnits)
		}
	}
	out := v.values.toFloat64()
	floats.AddConst(CelsiusOffset, out.f)
	v.values = out
	return v.attrs.Set("units", "K")
}

func (v *variable) checkMutable() error {
	if v.owner != nil && v.owner.finalized {
		return fmt.Errorf("transform %q: %w", v.name, ErrFinalized)
	}
	return nil
}

// toFloat64 returns a float64 copy of a. Masked integer cells become NaN.
func (a *Array) toFloat64() *Array {
	out := &Array{kind: Float64, shape: a.Shape(), f: make([]float64, a.Len())}
	for i := range out.f {
		if a.IsMissing(i) {
			out.f[i] = math.NaN()
			continue
		}
		out.f[i] = a.Float(i)
	}
	if a.mask != nil {
		out.mask = append([]bool(nil), a.mask...)
	}
	return out
}

// TimeUnit is the step of an epoch-relative time coordinate.
type TimeUnit string

const (
	Seconds TimeUnit = "seconds"
	Minutes TimeUnit = "minutes"
	Hours   TimeUnit = "hours"
	Days    TimeUnit = "days"
)

// seconds returns the length of one unit in seconds.
func (u TimeUnit) seconds() (int64, error) {
	switch u {
	case Seconds:
		return 1, nil
	case Minutes:
		return 60, nil
	case Hours:
		return 3600, nil
	case Days:
		return 86400, nil
	}
	return 0, fmt.Errorf("unknown time unit %q", string(u))
}

// TimeOffsets encodes instants as int64 offsets from epoch in whole units,
// truncated toward zero, and returns the matching units attribute, e.g.
// "hours since 2022-01-01T00:00:00Z". Offsets are exact for any span
// between year 1 and 9999.
func TimeOffsets(ts []time.Time, epoch time.Time, unit TimeUnit) (*Array, Attribute, error) {
	step, err := unit.seconds()
	if err != nil {
		return nil, Attribute{}, err
	}
	offsets := make([]int64, len(ts))
	for i, t := range ts {
		secs := t.Unix() - epoch.Unix()
		nanos := t.Nanosecond() - epoch.Nanosecond()
		// Give both parts the same sign so dropping the nanoseconds
		// truncates toward zero.
		switch {
		case secs > 0 && nanos < 0:
			secs--
		case secs < 0 && nanos > 0:
			secs++
		}
		offsets[i] = secs / step
	}
	units := fmt.Sprintf("%s since %s", unit, epoch.UTC().Format(DateLayout))
	return NewArray(offsets), Attr("units", units), nil
}
