package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for dataset construction.
var (
	// ErrDuplicateName is returned when a variable name is already in use.
	ErrDuplicateName = errors.New("duplicate variable name")

	// ErrUnknownDimension is returned when a dimension is not registered.
	ErrUnknownDimension = errors.New("unknown dimension")

	// ErrDimensionConflict is returned when a dimension is registered twice
	// with different lengths.
	ErrDimensionConflict = errors.New("dimension length conflict")

	// ErrShapeMismatch is returned when an array shape disagrees with the
	// dimensions it is declared over.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidName is returned for empty or malformed variable names.
	ErrInvalidName = errors.New("invalid name")

	// ErrInvalidAttribute is returned for attribute values that cannot be stored.
	ErrInvalidAttribute = errors.New("invalid attribute")

	// ErrFinalized is returned when a finalized dataset is modified.
	ErrFinalized = errors.New("dataset is finalized")

	// ErrUnits is returned when a unit conversion does not apply to the
	// variable's declared units.
	ErrUnits = errors.New("incompatible units")

	// ErrConvention is wrapped by CF convention problems.
	ErrConvention = errors.New("convention violation")
)

// ValidationError aggregates every problem found while validating a dataset.
type ValidationError struct {
	Problems []error
}

func (e *ValidationError) Error() string {
	switch len(e.Problems) {
	case 0:
		return "validation failed"
	case 1:
		return "validation failed: " + e.Problems[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "validation failed with %d problems:", len(e.Problems))
	for _, p := range e.Problems {
		b.WriteString("\n  - ")
		b.WriteString(p.Error())
	}
	return b.String()
}

// Unwrap exposes the individual problems to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error {
	return e.Problems
}

// Add records a problem. Nil errors are ignored.
func (e *ValidationError) Add(err error) {
	if err == nil {
		return
	}
	var nested *ValidationError
	if errors.As(err, &nested) && nested != e {
		e.Problems = append(e.Problems, nested.Problems...)
		return
	}
	e.Problems = append(e.Problems, err)
}

// Addf records a formatted problem.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Add(fmt.Errorf(format, args...))
}

// Err returns e if any problem was recorded, nil otherwise.
func (e *ValidationError) Err() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}
