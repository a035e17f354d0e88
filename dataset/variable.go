package dataset

import (
	"fmt"
	"regexp"
)

// Variable is the read view shared by coordinates and data variables.
type Variable interface {
	Name() string
	Dims() []string
	Shape() []int
	Values() *Array
	Attrs() *AttributeStore
	IsCoordinate() bool
}

type variable struct {
	name   string
	dims   []string
	values *Array
	attrs  *AttributeStore
	owner  *Dataset
}

func (v *variable) Name() string { return v.name }

func (v *variable) Dims() []string {
	out := make([]string, len(v.dims))
	copy(out, v.dims)
	return out
}

func (v *variable) Shape() []int { return v.values.Shape() }

// Values returns the variable's array. Callers must not modify it after
// the dataset is finalized.
func (v *variable) Values() *Array { return v.values }

func (v *variable) Attrs() *AttributeStore { return v.attrs }

// Coordinate is a one-dimensional variable that labels the dimension of the
// same name.
type Coordinate struct {
	variable
}

func (c *Coordinate) IsCoordinate() bool { return true }

// Len returns the coordinate (and dimension) length.
func (c *Coordinate) Len() int { return c.values.Len() }

// DataVariable is an N-dimensional variable over registered dimensions.
type DataVariable struct {
	variable
}

func (d *DataVariable) IsCoordinate() bool { return false }

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.@+-]*$`)

// checkName enforces netCDF naming: a leading letter or underscore, no path
// separators.
func checkName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}

func newStore(attrs []Attribute) (*AttributeStore, error) {
	s := NewAttributeStore()
	if err := s.SetAll(attrs...); err != nil {
		return nil, err
	}
	return s, nil
}
