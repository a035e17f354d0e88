package dataset

import "fmt"

// Dimension is a named axis length shared by one or more variables.
type Dimension struct {
	Name string
	Len  int
}

// Registry maps dimension names to lengths in registration order.
type Registry struct {
	names   []string
	lengths map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{lengths: make(map[string]int)}
}

// Register adds a dimension. Registering an existing name with the same
// length is a no-op.
func (r *Registry) Register(name string, length int) error {
	if length < 0 {
		return fmt.Errorf("dimension %q: negative length %d: %w", name, length, ErrShapeMismatch)
	}
	if existing, ok := r.lengths[name]; ok {
		if existing != length {
			return fmt.Errorf("dimension %q: registered with length %d, requested %d: %w",
				name, existing, length, ErrDimensionConflict)
		}
		return nil
	}
	if r.lengths == nil {
		r.lengths = make(map[string]int)
	}
	r.names = append(r.names, name)
	r.lengths[name] = length
	return nil
}

// Resolve returns the length of the named dimension.
func (r *Registry) Resolve(name string) (int, error) {
	n, ok := r.lengths[name]
	if !ok {
		return 0, fmt.Errorf("dimension %q: %w", name, ErrUnknownDimension)
	}
	return n, nil
}

// Index returns the registration index of name, or -1.
func (r *Registry) Index(name string) int {
	for i, n := range r.names {
		if n == name {
			return i
		}
	}
	return -1
}

// Len returns the number of registered dimensions.
func (r *Registry) Len() int { return len(r.names) }

// Dimensions returns all dimensions in registration order.
func (r *Registry) Dimensions() []Dimension {
	out := make([]Dimension, len(r.names))
	for i, n := range r.names {
		out[i] = Dimension{Name: n, Len: r.lengths[n]}
	}
	return out
}

// shapeOf resolves dims into a shape.
func (r *Registry) shapeOf(dims []string) ([]int, error) {
	shape := make([]int, len(dims))
	for i, d := range dims {
		n, err := r.Resolve(d)
		if err != nil {
			return nil, err
		}
		shape[i] = n
	}
	return shape, nil
}
