// Package recipe describes a dataset build declaratively: where each
// coordinate and data variable comes from, its attributes and its
// encoding. Recipes are TOML or YAML files; attribute order in the file is
// the order written to the output.
package recipe

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/cfnc/dataset"
)

// ErrInvalidRecipe is returned for recipes that cannot describe a dataset.
var ErrInvalidRecipe = errors.New("invalid recipe")

// Recipe is one dataset build.
type Recipe struct {
	// Output is the default output path, relative to the recipe file.
	Output string `toml:"output" yaml:"output"`
	// Workbook is the xlsx input, relative to the recipe file. Optional
	// when every variable lists its values inline.
	Workbook        string `toml:"workbook" yaml:"workbook"`
	DataSheet       string `toml:"data_sheet" yaml:"data_sheet"`
	AttributesSheet string `toml:"attributes_sheet" yaml:"attributes_sheet"`

	// Global attributes, applied after those of the attributes sheet.
	Global      map[string]any `toml:"global" yaml:"global"`
	Coordinates []Coordinate   `toml:"coordinates" yaml:"coordinates"`
	Variables   []Variable     `toml:"variables" yaml:"variables"`

	dir         string
	globalOrder []string
}

// Coordinate is a coordinate variable and the dimension it defines.
type Coordinate struct {
	Name   string `toml:"name" yaml:"name"`
	Column string `toml:"column" yaml:"column"`
	Values []any  `toml:"values" yaml:"values"`
	// Unique takes the sorted distinct values of the column, for long
	// tables that repeat each coordinate value on many rows.
	Unique bool `toml:"unique" yaml:"unique"`
	// Time names the unit (seconds, minutes, hours, days) of a time
	// coordinate. Its values are instants stored as offsets from Epoch,
	// which defaults to the earliest instant.
	Time  string `toml:"time" yaml:"time"`
	Epoch string `toml:"epoch" yaml:"epoch"`

	Attrs    map[string]any `toml:"attrs" yaml:"attrs"`
	Encoding Encoding       `toml:"encoding" yaml:"encoding"`

	attrOrder []string
}

// Variable is a data variable.
type Variable struct {
	Name   string   `toml:"name" yaml:"name"`
	Column string   `toml:"column" yaml:"column"`
	Values []any    `toml:"values" yaml:"values"`
	Dims   []string `toml:"dims" yaml:"dims"`
	// CelsiusToKelvin converts the values and sets units to "K".
	CelsiusToKelvin bool `toml:"celsius_to_kelvin" yaml:"celsius_to_kelvin"`

	Attrs    map[string]any `toml:"attrs" yaml:"attrs"`
	Encoding Encoding       `toml:"encoding" yaml:"encoding"`

	attrOrder []string
}

// Encoding is the storage of one variable.
type Encoding struct {
	DType     string `toml:"dtype" yaml:"dtype"`
	FillValue any    `toml:"fill_value" yaml:"fill_value"`
	Zlib      bool   `toml:"zlib" yaml:"zlib"`
	Complevel int    `toml:"complevel" yaml:"complevel"`
	Shuffle   bool   `toml:"shuffle" yaml:"shuffle"`
}

// IsZero reports whether e leaves every setting at its default.
func (e Encoding) IsZero() bool {
	return e.DType == "" && e.FillValue == nil && !e.Zlib && e.Complevel == 0 && !e.Shuffle
}

// Load reads the recipe at path. The format follows the extension:
// .toml, .yaml or .yml.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading recipe: %w", err)
	}
	r, err := Parse(data, strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.dir = filepath.Dir(path)
	return r, nil
}

// Parse decodes a recipe in the given format ("toml", "yaml" or "yml").
func Parse(data []byte, format string) (*Recipe, error) {
	var (
		r   *Recipe
		err error
	)
	switch strings.ToLower(format) {
	case "toml":
		r, err = parseTOML(data)
	case "yaml", "yml":
		r, err = parseYAML(data)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidRecipe, format)
	}
	if err != nil {
		return nil, err
	}
	return r, r.check()
}

func parseTOML(data []byte) (*Recipe, error) {
	r := &Recipe{}
	md, err := toml.Decode(string(data), r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecipe, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown keys %v", ErrInvalidRecipe, undecoded)
	}

	// Keys lists every key in document order. Each [[coordinates]] or
	// [[variables]] header starts the next element.
	coord, variable := -1, -1
	for _, key := range md.Keys() {
		switch {
		case len(key) == 1 && key[0] == "coordinates":
			coord++
		case len(key) == 1 && key[0] == "variables":
			variable++
		case len(key) == 2 && key[0] == "global":
			r.globalOrder = append(r.globalOrder, key[1])
		case len(key) == 3 && key[0] == "coordinates" && key[1] == "attrs" && coord >= 0 && coord < len(r.Coordinates):
			r.Coordinates[coord].attrOrder = append(r.Coordinates[coord].attrOrder, key[2])
		case len(key) == 3 && key[0] == "variables" && key[1] == "attrs" && variable >= 0 && variable < len(r.Variables):
			r.Variables[variable].attrOrder = append(r.Variables[variable].attrOrder, key[2])
		}
	}
	return r, nil
}

func parseYAML(data []byte) (*Recipe, error) {
	r := &Recipe{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecipe, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecipe, err)
	}
	if len(doc.Content) == 0 {
		return r, nil
	}
	root := doc.Content[0]
	r.globalOrder = mappingKeys(lookup(root, "global"))
	if seq := lookup(root, "coordinates"); seq != nil {
		for i, item := range seq.Content {
			if i < len(r.Coordinates) {
				r.Coordinates[i].attrOrder = mappingKeys(lookup(item, "attrs"))
			}
		}
	}
	if seq := lookup(root, "variables"); seq != nil {
		for i, item := range seq.Content {
			if i < len(r.Variables) {
				r.Variables[i].attrOrder = mappingKeys(lookup(item, "attrs"))
			}
		}
	}
	return r, nil
}

// lookup returns the value node of key in a mapping node.
func lookup(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func mappingKeys(n *yaml.Node) []string {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		keys = append(keys, n.Content[i].Value)
	}
	return keys
}

func (r *Recipe) check() error {
	names := make(map[string]bool)
	for _, c := range r.Coordinates {
		if err := checkSource(c.Name, c.Column, c.Values, names); err != nil {
			return err
		}
		if c.Unique && c.Column == "" {
			return fmt.Errorf("%w: %s: unique applies to columns only", ErrInvalidRecipe, c.Name)
		}
	}
	for _, v := range r.Variables {
		if err := checkSource(v.Name, v.Column, v.Values, names); err != nil {
			return err
		}
	}
	return nil
}

func checkSource(name, column string, values []any, seen map[string]bool) error {
	if name == "" {
		return fmt.Errorf("%w: variable without a name", ErrInvalidRecipe)
	}
	if seen[name] {
		return fmt.Errorf("%w: %s defined twice", ErrInvalidRecipe, name)
	}
	seen[name] = true
	if (column == "") == (values == nil) {
		return fmt.Errorf("%w: %s needs exactly one of column or values", ErrInvalidRecipe, name)
	}
	return nil
}

// path resolves p against the recipe's directory.
func (r *Recipe) path(p string) string {
	if p == "" || filepath.IsAbs(p) || r.dir == "" {
		return p
	}
	return filepath.Join(r.dir, p)
}

// OutputPath returns the output path relative to the recipe file.
func (r *Recipe) OutputPath() string { return r.path(r.Output) }

// GlobalAttrs returns the recipe's global attributes in file order.
func (r *Recipe) GlobalAttrs() ([]dataset.Attribute, error) {
	return orderedAttrs(r.Global, r.globalOrder)
}

// orderedAttrs converts m into attributes ordered by order, then any keys
// order does not name, sorted.
func orderedAttrs(m map[string]any, order []string) ([]dataset.Attribute, error) {
	keys := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, k := range order {
		if _, ok := m[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	attrs := make([]dataset.Attribute, 0, len(keys))
	for _, k := range keys {
		v, err := attrValue(m[k])
		if err != nil {
			return nil, fmt.Errorf("%w: attribute %q: %w", ErrInvalidRecipe, k, err)
		}
		attrs = append(attrs, dataset.Attr(k, v))
	}
	return attrs, nil
}

// attrValue maps a decoded TOML or YAML value onto an attribute value.
// Lists become []int64 when every element is an integer, else []float64.
func attrValue(v any) (any, error) {
	switch x := v.(type) {
	case string, int64, float64:
		return x, nil
	case int:
		return int64(x), nil
	case time.Time:
		return x.UTC().Format(dataset.DateLayout), nil
	case []any:
		if ints, ok := integers(x); ok {
			return ints, nil
		}
		out := make([]float64, len(x))
		for i, e := range x {
			f, err := cast.ToFloat64E(e)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value %v (%T)", v, v)
}

// integers returns values as []int64 when every element is a decoded
// integer.
func integers(values []any) ([]int64, bool) {
	out := make([]int64, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case int:
			out[i] = int64(x)
		case int64:
			out[i] = x
		default:
			return nil, false
		}
	}
	return out, true
}
