package netcdf

import (
	"fmt"

	"github.com/robert-malhotra/cfnc/dataset"
	"github.com/robert-malhotra/cfnc/internal/dtype"
	"github.com/robert-malhotra/cfnc/internal/filter"
)

// Encoding is the on-disk representation of one variable.
type Encoding struct {
	// Type is the storage kind. Invalid (zero) means the in-memory kind.
	Type dataset.Kind
	// FillValue marks missing cells. It must be exactly representable in
	// the storage kind and is not allowed on coordinates.
	FillValue any
	// Compress stores the variable deflated in a single chunk.
	Compress bool
	// Level is the deflate level, 1 to 9. Zero selects filter.DefaultLevel.
	Level int
	// Shuffle byte-shuffles the data before deflating it.
	Shuffle bool
}

func (e Encoding) level() int {
	if e.Level == 0 {
		return filter.DefaultLevel
	}
	return e.Level
}

// Resolver holds the per-variable encodings of one dataset.
type Resolver struct {
	ds   *dataset.Dataset
	encs map[string]Encoding
}

// NewResolver returns a resolver with every variable at its default
// encoding.
func NewResolver(ds *dataset.Dataset) *Resolver {
	return &Resolver{ds: ds, encs: make(map[string]Encoding)}
}

// Configure sets the encoding of the named variable, replacing any earlier
// one.
func (r *Resolver) Configure(name string, enc Encoding) error {
	v, ok := r.ds.Variable(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownVariable, name)
	}
	if err := checkEncoding(v, enc); err != nil {
		return err
	}
	r.encs[name] = enc
	return nil
}

// Resolve returns the encoding of the named variable with Type filled in.
func (r *Resolver) Resolve(name string) Encoding {
	var enc Encoding
	if r != nil {
		enc = r.encs[name]
		if enc.Type == dataset.Invalid {
			if v, ok := r.ds.Variable(name); ok {
				enc.Type = v.Values().Kind()
			}
		}
	}
	return enc
}

// resolveFor is Resolve for a variable that may not belong to r's dataset,
// as when a nil resolver is passed to Write.
func (r *Resolver) resolveFor(v dataset.Variable) Encoding {
	var enc Encoding
	if r != nil {
		enc = r.encs[v.Name()]
	}
	if enc.Type == dataset.Invalid {
		enc.Type = v.Values().Kind()
	}
	return enc
}

func checkEncoding(v dataset.Variable, enc Encoding) error {
	name := v.Name()
	if enc.FillValue != nil && v.IsCoordinate() {
		return fmt.Errorf("%w: %s: coordinates cannot have a fill value", ErrInvalidEncoding, name)
	}
	kind := enc.Type
	if kind == dataset.Invalid {
		kind = v.Values().Kind()
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: %s: unknown storage type %d", ErrInvalidEncoding, name, enc.Type)
	}
	if enc.Level < 0 || enc.Level > 9 {
		return fmt.Errorf("%w: %s: deflate level %d not in 0..9", ErrInvalidEncoding, name, enc.Level)
	}
	if enc.FillValue != nil {
		if _, err := dtype.Exact(kind, enc.FillValue); err != nil {
			return fmt.Errorf("%w: %s: fill value: %w", ErrInvalidEncoding, name, err)
		}
	}
	return nil
}
