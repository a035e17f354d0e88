// Package dataset models a CF-conventions scientific dataset: dimensions
// derived from coordinate variables, N-dimensional data variables over those
// dimensions, and ordered attribute stores at every level.
//
// A Dataset is built by one caller through the Attach methods, which fail
// fast on name, dimension and shape errors. Finalize stamps the provenance
// attributes and freezes the dataset for encoding.
package dataset

import (
	"fmt"
	"time"
)

// Reserved global attributes written by Finalize.
const (
	AttrDateCreated = "date_created"
	AttrHistory     = "history"

	// DateLayout is the format of the date_created attribute.
	DateLayout = "2006-01-02T15:04:05Z"

	// DefaultGenerator names the producing tool in the history attribute.
	DefaultGenerator = "cfnc"
)

// Option configures a Dataset.
type Option func(*Dataset)

// WithClock sets the clock used for date_created.
func WithClock(now func() time.Time) Option {
	return func(d *Dataset) {
		d.now = now
	}
}

// WithGenerator sets the tool name recorded in the history attribute.
func WithGenerator(name string) Option {
	return func(d *Dataset) {
		d.generator = name
	}
}

// Dataset aggregates dimensions, coordinates, data variables and global
// attributes. It is not safe for concurrent use.
type Dataset struct {
	dims   *Registry
	coords []*Coordinate
	data   []*DataVariable
	byName map[string]Variable
	attrs  *AttributeStore

	now       func() time.Time
	generator string
	finalized bool
}

// New returns an empty dataset.
func New(opts ...Option) *Dataset {
	d := &Dataset{
		dims:      NewRegistry(),
		byName:    make(map[string]Variable),
		attrs:     NewAttributeStore(),
		now:       time.Now,
		generator: DefaultGenerator,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Attrs returns the global attribute store.
func (d *Dataset) Attrs() *AttributeStore { return d.attrs }

// Dimensions returns the registered dimensions in registration order.
func (d *Dataset) Dimensions() []Dimension { return d.dims.Dimensions() }

// Dimension resolves a dimension length by name.
func (d *Dataset) Dimension(name string) (int, error) { return d.dims.Resolve(name) }

// DimensionIndex returns the registration index of a dimension, or -1.
func (d *Dataset) DimensionIndex(name string) int { return d.dims.Index(name) }

// AttachCoordinate adds a one-dimensional coordinate variable and registers
// the dimension of the same name with the array's length.
func (d *Dataset) AttachCoordinate(name string, values *Array, attrs ...Attribute) (*Coordinate, error) {
	if err := d.checkAttach(name, values); err != nil {
		return nil, err
	}
	if values.Rank() != 1 || values.Shape()[0] != values.Len() {
		return nil, fmt.Errorf("coordinate %q: shape %v is not one-dimensional: %w", name, values.Shape(), ErrShapeMismatch)
	}
	store, err := newStore(attrs)
	if err != nil {
		return nil, fmt.Errorf("coordinate %q: %w", name, err)
	}
	if err := d.dims.Register(name, values.Len()); err != nil {
		return nil, fmt.Errorf("coordinate %q: %w", name, err)
	}

	c := &Coordinate{variable{name: name, dims: []string{name}, values: values, attrs: store, owner: d}}
	d.coords = append(d.coords, c)
	d.byName[name] = c
	return c, nil
}

// AttachData adds a data variable over existing dimensions. The array shape
// must equal the dimension lengths in dims order.
func (d *Dataset) AttachData(name string, dims []string, values *Array, attrs ...Attribute) (*DataVariable, error) {
	if err := d.checkAttach(name, values); err != nil {
		return nil, err
	}
	want, err := d.dims.shapeOf(dims)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}
	if got := values.Shape(); !equalInts(got, want) || values.Len() != shapeLen(want) {
		return nil, fmt.Errorf("variable %q: array shape %v (%d cells), dimensions %v require %v: %w",
			name, got, values.Len(), dims, want, ErrShapeMismatch)
	}
	store, err := newStore(attrs)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}

	v := &DataVariable{variable{name: name, dims: append([]string(nil), dims...), values: values, attrs: store, owner: d}}
	d.data = append(d.data, v)
	d.byName[name] = v
	return v, nil
}

func (d *Dataset) checkAttach(name string, values *Array) error {
	if d.finalized {
		return fmt.Errorf("attach %q: %w", name, ErrFinalized)
	}
	if err := checkName(name); err != nil {
		return err
	}
	if _, ok := d.byName[name]; ok {
		return fmt.Errorf("%q: %w", name, ErrDuplicateName)
	}
	if values == nil {
		return fmt.Errorf("variable %q: nil values: %w", name, ErrShapeMismatch)
	}
	return nil
}

// Variable looks up a coordinate or data variable by name.
func (d *Dataset) Variable(name string) (Variable, bool) {
	v, ok := d.byName[name]
	return v, ok
}

// Coordinate looks up a coordinate variable by name.
func (d *Dataset) Coordinate(name string) (*Coordinate, bool) {
	c, ok := d.byName[name].(*Coordinate)
	return c, ok
}

// Data looks up a data variable by name.
func (d *Dataset) Data(name string) (*DataVariable, bool) {
	v, ok := d.byName[name].(*DataVariable)
	return v, ok
}

// Coordinates returns the coordinates in attach order.
func (d *Dataset) Coordinates() []*Coordinate {
	return append([]*Coordinate(nil), d.coords...)
}

// DataVariables returns the data variables in attach order.
func (d *Dataset) DataVariables() []*DataVariable {
	return append([]*DataVariable(nil), d.data...)
}

// Variables returns coordinates followed by data variables, each in attach
// order. This is the order variables are encoded in.
func (d *Dataset) Variables() []Variable {
	out := make([]Variable, 0, len(d.coords)+len(d.data))
	for _, c := range d.coords {
		out = append(out, c)
	}
	for _, v := range d.data {
		out = append(out, v)
	}
	return out
}

// Finalized reports whether Finalize has run.
func (d *Dataset) Finalized() bool { return d.finalized }

// Finalize stamps date_created and history as the last two global
// attributes and freezes the dataset. Later calls do nothing.
func (d *Dataset) Finalize() error {
	if d.finalized {
		return nil
	}
	stamp := d.now().UTC().Format(DateLayout)
	for _, key := range []string{AttrDateCreated, AttrHistory} {
		if err := d.attrs.Delete(key); err != nil {
			return err
		}
	}
	if err := d.attrs.SetAll(
		Attr(AttrDateCreated, stamp),
		Attr(AttrHistory, fmt.Sprintf("File created at %s using %s", stamp, d.generator)),
	); err != nil {
		return err
	}

	d.finalized = true
	d.attrs.freeze()
	for _, v := range d.Variables() {
		v.Attrs().freeze()
	}
	return nil
}

// Validate checks every cross-variable invariant and returns a
// *ValidationError listing all problems, or nil.
func (d *Dataset) Validate() error {
	verr := &ValidationError{}
	seen := make(map[string]bool)

	for _, c := range d.coords {
		if seen[c.name] {
			verr.Addf("%q: %w", c.name, ErrDuplicateName)
		}
		seen[c.name] = true
		if err := checkName(c.name); err != nil {
			verr.Add(err)
		}
		n, err := d.dims.Resolve(c.name)
		switch {
		case err != nil:
			verr.Addf("coordinate %q: %w", c.name, err)
		case c.values.Rank() != 1 || c.values.Len() != n:
			verr.Addf("coordinate %q: shape %v, dimension length %d: %w", c.name, c.values.Shape(), n, ErrShapeMismatch)
		}
		if m := c.values.MissingCount(); m > 0 {
			verr.Addf("coordinate %q: %d missing values, coordinates must be complete: %w", c.name, m, ErrShapeMismatch)
		}
	}

	for _, v := range d.data {
		if seen[v.name] {
			verr.Addf("%q: %w", v.name, ErrDuplicateName)
		}
		seen[v.name] = true
		if err := checkName(v.name); err != nil {
			verr.Add(err)
		}
		want := make([]int, len(v.dims))
		resolved := true
		for i, dim := range v.dims {
			n, err := d.dims.Resolve(dim)
			if err != nil {
				verr.Addf("variable %q: %w", v.name, err)
				resolved = false
				continue
			}
			want[i] = n
		}
		if resolved && (!equalInts(v.values.Shape(), want) || v.values.Len() != shapeLen(want)) {
			verr.Addf("variable %q: shape %v, dimensions %v require %v: %w", v.name, v.values.Shape(), v.dims, want, ErrShapeMismatch)
		}
	}

	for _, dim := range d.dims.Dimensions() {
		if _, ok := d.Coordinate(dim.Name); !ok {
			verr.Addf("dimension %q has no coordinate variable: %w", dim.Name, ErrUnknownDimension)
		}
	}
	return verr.Err()
}
