package dataset

import (
	"fmt"
	"reflect"
)

// Attribute is a single key/value pair of metadata.
type Attribute struct {
	Key   string
	Value any
}

// Attr is shorthand for constructing an Attribute.
func Attr(key string, value any) Attribute {
	return Attribute{Key: key, Value: value}
}

// AttributeStore is an ordered mapping of attribute keys to values.
// Setting an existing key replaces its value in place.
type AttributeStore struct {
	keys   []string
	values map[string]any
	frozen bool
}

// NewAttributeStore returns an empty store.
func NewAttributeStore() *AttributeStore {
	return &AttributeStore{values: make(map[string]any)}
}

// Set stores value under key, keeping the key's position if it already exists.
func (s *AttributeStore) Set(key string, value any) error {
	if s.frozen {
		return fmt.Errorf("set attribute %q: %w", key, ErrFinalized)
	}
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidAttribute)
	}
	v, err := normalizeValue(value)
	if err != nil {
		return fmt.Errorf("attribute %q: %w", key, err)
	}
	if s.values == nil {
		s.values = make(map[string]any)
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = v
	return nil
}

// SetAll applies attrs in order. It stops at the first invalid attribute.
func (s *AttributeStore) SetAll(attrs ...Attribute) error {
	for _, a := range attrs {
		if err := s.Set(a.Key, a.Value); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the value stored under key.
func (s *AttributeStore) Get(key string) (any, bool) {
	if s == nil || s.values == nil {
		return nil, false
	}
	v, ok := s.values[key]
	return v, ok
}

// String returns the value under key if it is a string.
func (s *AttributeStore) String(key string) (string, bool) {
	v, ok := s.Get(key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// Has reports whether key is present.
func (s *AttributeStore) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Delete removes key. It is a no-op if the key is absent.
func (s *AttributeStore) Delete(key string) error {
	if s.frozen {
		return fmt.Errorf("delete attribute %q: %w", key, ErrFinalized)
	}
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	return nil
}

// Keys returns the keys in insertion order.
func (s *AttributeStore) Keys() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of attributes.
func (s *AttributeStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// All returns the attributes in insertion order.
func (s *AttributeStore) All() []Attribute {
	if s == nil {
		return nil
	}
	out := make([]Attribute, len(s.keys))
	for i, k := range s.keys {
		out[i] = Attribute{Key: k, Value: s.values[k]}
	}
	return out
}

// Equal reports whether both stores hold the same key/value mapping.
// Order is ignored.
func (s *AttributeStore) Equal(other *AttributeStore) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, k := range s.Keys() {
		a, _ := s.Get(k)
		b, ok := other.Get(k)
		if !ok || !reflect.DeepEqual(a, b) {
			return false
		}
	}
	return true
}

func (s *AttributeStore) freeze() { s.frozen = true }

// normalizeValue validates an attribute value. Plain int and uint are widened
// to their 64-bit forms so the stored type has a fixed size.
func normalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil value", ErrInvalidAttribute)
	case string, int8, uint8, int16, uint16, int32, uint32, int64, uint64, float32, float64:
		return x, nil
	case int:
		return int64(x), nil
	case uint:
		return uint64(x), nil
	case []int:
		out := make([]int64, len(x))
		for i, e := range x {
			out[i] = int64(e)
		}
		return checkSlice(out)
	case []int8:
		return checkSlice(x)
	case []uint8:
		return checkSlice(x)
	case []int16:
		return checkSlice(x)
	case []uint16:
		return checkSlice(x)
	case []int32:
		return checkSlice(x)
	case []uint32:
		return checkSlice(x)
	case []int64:
		return checkSlice(x)
	case []uint64:
		return checkSlice(x)
	case []float32:
		return checkSlice(x)
	case []float64:
		return checkSlice(x)
	}
	return nil, fmt.Errorf("%w: unsupported value type %T", ErrInvalidAttribute, v)
}

func checkSlice[T Number](v []T) (any, error) {
	if len(v) == 0 {
		return nil, fmt.Errorf("%w: empty sequence", ErrInvalidAttribute)
	}
	out := make([]T, len(v))
	copy(out, v)
	return out, nil
}
