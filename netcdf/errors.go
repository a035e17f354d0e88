package netcdf

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/cfnc/dataset"
)

// Common errors
var (
	ErrUnknownVariable = errors.New("unknown variable")
	ErrInvalidEncoding = errors.New("invalid encoding")
	ErrCastOverflow    = errors.New("value out of range for storage type")
	ErrWriteFailure    = errors.New("write failure")
	ErrNotNetCDF       = errors.New("not a netCDF-4 file")
	ErrUnsupported     = errors.New("unsupported netCDF-4 feature")
)

// CastError reports the cells of one variable that do not fit its storage
// kind. Index and Value describe the first offending cell.
type CastError struct {
	Variable string
	Kind     dataset.Kind
	Index    int
	Value    float64
	Count    int
}

func (e *CastError) Error() string {
	return fmt.Sprintf("%s: %d value(s) out of range for %v, first %g at index %d",
		e.Variable, e.Count, e.Kind, e.Value, e.Index)
}

func (e *CastError) Unwrap() error { return ErrCastOverflow }

// WriteError is an I/O failure while producing the output file. It matches
// both ErrWriteFailure and the underlying error.
type WriteError struct {
	Op   string
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() []error { return []error{ErrWriteFailure, e.Err} }
