package recipe

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/robert-malhotra/cfnc/dataset"
	"github.com/robert-malhotra/cfnc/internal/sheet"
	"github.com/robert-malhotra/cfnc/netcdf"
)

// ErrDuplicateCell is returned when two rows of a long table fall on the
// same grid cell.
var ErrDuplicateCell = errors.New("two rows for one grid cell")

// axis is a built coordinate as seen by the data variables: the raw value
// of every row and, for unique coordinates, each value's position.
type axis struct {
	unique bool
	rows   []float64
	index  map[float64]int
}

type builder struct {
	r     *Recipe
	log   logrus.FieldLogger
	ds    *dataset.Dataset
	table *sheet.Table
	axes  map[string]*axis
}

// Build assembles the dataset the recipe describes and the encodings of
// its variables. The dataset is neither finalized nor written.
func (r *Recipe) Build(log logrus.FieldLogger, opts ...dataset.Option) (*dataset.Dataset, *netcdf.Resolver, error) {
	b := &builder{r: r, log: log, ds: dataset.New(opts...), axes: make(map[string]*axis)}
	if err := b.load(); err != nil {
		return nil, nil, err
	}
	for i := range r.Coordinates {
		c := &r.Coordinates[i]
		if err := b.coordinate(c); err != nil {
			return nil, nil, fmt.Errorf("coordinate %s: %w", c.Name, err)
		}
	}
	for i := range r.Variables {
		v := &r.Variables[i]
		if err := b.variable(v); err != nil {
			return nil, nil, fmt.Errorf("variable %s: %w", v.Name, err)
		}
	}
	res, err := b.resolver()
	if err != nil {
		return nil, nil, err
	}

	log.WithFields(logrus.Fields{
		"dimensions": len(b.ds.Dimensions()),
		"variables":  len(b.ds.Variables()),
		"attributes": b.ds.Attrs().Len(),
	}).Info("built dataset")
	return b.ds, res, nil
}

func (b *builder) load() error {
	var attrs []dataset.Attribute
	if b.r.Workbook != "" {
		path := b.r.path(b.r.Workbook)
		wb, err := sheet.Open(path)
		if err != nil {
			return err
		}
		name := b.r.DataSheet
		if name == "" {
			name = sheet.DataSheet
		}
		if b.table, err = wb.Table(name); err != nil {
			return err
		}
		if b.r.AttributesSheet != "" {
			if attrs, err = wb.Attributes(b.r.AttributesSheet); err != nil {
				return err
			}
		}
		b.log.WithFields(logrus.Fields{
			"workbook": path,
			"sheet":    name,
			"columns":  len(b.table.Columns),
		}).Debug("loaded workbook")
	}

	globals, err := b.r.GlobalAttrs()
	if err != nil {
		return err
	}
	return b.ds.Attrs().SetAll(append(attrs, globals...)...)
}

func (b *builder) column(name string) (*sheet.Column, error) {
	if b.table == nil {
		return nil, fmt.Errorf("%w: column %q named but no workbook given", ErrInvalidRecipe, name)
	}
	return b.table.Column(name)
}

func (b *builder) coordinate(c *Coordinate) error {
	attrs, err := orderedAttrs(c.Attrs, c.attrOrder)
	if err != nil {
		return err
	}

	var (
		arr  *dataset.Array
		rows []float64
	)
	if c.Time != "" {
		times, err := b.times(c)
		if err != nil {
			return err
		}
		epoch, err := b.epoch(c, times)
		if err != nil {
			return err
		}
		offsets, units, err := dataset.TimeOffsets(times, epoch, dataset.TimeUnit(c.Time))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRecipe, err)
		}
		rows = offsets.Floats()
		arr = offsets
		if c.Unique {
			keys := distinct(rows)
			ints := make([]int64, len(keys))
			for i, k := range keys {
				ints[i] = int64(k)
			}
			arr = dataset.NewArray(ints)
		}
		if _, ok := c.Attrs["units"]; !ok {
			attrs = append(attrs, units)
		}
	} else {
		var ints []int64
		if rows, ints, err = b.numbers(c.Column, c.Values); err != nil {
			return err
		}
		switch {
		case c.Unique:
			arr = dataset.NewArray(distinct(rows))
		case ints != nil:
			arr = dataset.NewArray(ints)
		default:
			arr = dataset.NewArray(rows)
		}
	}

	if _, err := b.ds.AttachCoordinate(c.Name, arr, attrs...); err != nil {
		return err
	}
	ax := &axis{unique: c.Unique, rows: rows}
	if c.Unique {
		ax.index = make(map[float64]int, arr.Len())
		for i := 0; i < arr.Len(); i++ {
			ax.index[arr.Float(i)] = i
		}
	}
	b.axes[c.Name] = ax
	b.log.WithFields(logrus.Fields{
		"coordinate": c.Name,
		"len":        arr.Len(),
		"unique":     c.Unique,
	}).Debug("built coordinate")
	return nil
}

func (b *builder) times(c *Coordinate) ([]time.Time, error) {
	if c.Column != "" {
		col, err := b.column(c.Column)
		if err != nil {
			return nil, err
		}
		return col.Times()
	}
	out := make([]time.Time, len(c.Values))
	for i, v := range c.Values {
		t, err := cast.ToTimeInDefaultLocationE(v, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: value %d: %w", ErrInvalidRecipe, i, err)
		}
		out[i] = t.UTC()
	}
	return out, nil
}

func (b *builder) epoch(c *Coordinate, times []time.Time) (time.Time, error) {
	if c.Epoch != "" {
		t, err := cast.ToTimeInDefaultLocationE(c.Epoch, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: epoch: %w", ErrInvalidRecipe, err)
		}
		return t.UTC(), nil
	}
	if len(times) == 0 {
		return time.Time{}, fmt.Errorf("%w: no instants and no epoch", ErrInvalidRecipe)
	}
	earliest := times[0]
	for _, t := range times[1:] {
		if t.Before(earliest) {
			earliest = t
		}
	}
	return earliest, nil
}

// numbers returns the values of a column or an inline list. The second
// result is set when an inline list holds only integers.
func (b *builder) numbers(column string, values []any) ([]float64, []int64, error) {
	if column != "" {
		col, err := b.column(column)
		if err != nil {
			return nil, nil, err
		}
		rows, err := col.Floats()
		return rows, nil, err
	}
	if ints, ok := integers(values); ok {
		rows := make([]float64, len(ints))
		for i, x := range ints {
			rows[i] = float64(x)
		}
		return rows, ints, nil
	}
	rows := make([]float64, len(values))
	for i, v := range values {
		if v == nil {
			rows[i] = math.NaN()
			continue
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: value %d: %w", ErrInvalidRecipe, i, err)
		}
		rows[i] = f
	}
	return rows, nil, nil
}

func (b *builder) variable(v *Variable) error {
	attrs, err := orderedAttrs(v.Attrs, v.attrOrder)
	if err != nil {
		return err
	}
	rows, ints, err := b.numbers(v.Column, v.Values)
	if err != nil {
		return err
	}
	arr, err := b.arrange(v.Dims, rows, ints)
	if err != nil {
		return err
	}
	dv, err := b.ds.AttachData(v.Name, v.Dims, arr, attrs...)
	if err != nil {
		return err
	}
	if v.CelsiusToKelvin {
		if err := dv.ToKelvin(); err != nil {
			return err
		}
	}
	b.log.WithFields(logrus.Fields{
		"variable": v.Name,
		"shape":    arr.Shape(),
		"missing":  arr.MissingCount(),
	}).Debug("built variable")
	return nil
}

// arrange shapes the values of a data variable. Over plain coordinates the
// values are taken in row-major order; over unique coordinates every row is
// placed at the cell its coordinate values name.
func (b *builder) arrange(dims []string, rows []float64, ints []int64) (*dataset.Array, error) {
	shape := make([]int, len(dims))
	axes := make([]*axis, len(dims))
	gridded := 0
	for i, d := range dims {
		n, err := b.ds.Dimension(d)
		if err != nil {
			return nil, err
		}
		shape[i] = n
		axes[i] = b.axes[d]
		if axes[i] != nil && axes[i].unique {
			gridded++
		}
	}

	if gridded == 0 {
		size := 1
		for _, n := range shape {
			size *= n
		}
		if size != len(rows) {
			return nil, fmt.Errorf("%w: %d values for shape %v", dataset.ErrShapeMismatch, len(rows), shape)
		}
		if ints != nil {
			return dataset.NewArray(ints, shape...), nil
		}
		return dataset.NewArray(rows, shape...), nil
	}
	if gridded != len(dims) {
		return nil, fmt.Errorf("%w: gridded and plain dimensions mixed in %v", ErrInvalidRecipe, dims)
	}
	return grid(rows, shape, axes)
}

func grid(rows []float64, shape []int, axes []*axis) (*dataset.Array, error) {
	size := 1
	for _, n := range shape {
		size *= n
	}
	cells := make([]float64, size)
	filled := make([]bool, size)
	for row, value := range rows {
		if math.IsNaN(value) {
			continue
		}
		idx := 0
		for k, ax := range axes {
			if row >= len(ax.rows) {
				return nil, fmt.Errorf("%w: row %d has no coordinate value", ErrInvalidRecipe, row+2)
			}
			pos, ok := ax.index[ax.rows[row]]
			if !ok {
				return nil, fmt.Errorf("%w: row %d has no coordinate value", ErrInvalidRecipe, row+2)
			}
			idx = idx*shape[k] + pos
		}
		if filled[idx] {
			return nil, fmt.Errorf("%w: row %d", ErrDuplicateCell, row+2)
		}
		cells[idx] = value
		filled[idx] = true
	}

	arr := dataset.NewArray(cells, shape...)
	var missing []int
	for i, ok := range filled {
		if !ok {
			missing = append(missing, i)
		}
	}
	arr.SetMissing(missing...)
	return arr, nil
}

// distinct returns the sorted distinct values, without NaN.
func distinct(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	n := 0
	for i, v := range out {
		if i == 0 || v != out[n-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}

func (b *builder) resolver() (*netcdf.Resolver, error) {
	res := netcdf.NewResolver(b.ds)
	configure := func(name string, e Encoding) error {
		if e.IsZero() {
			return nil
		}
		enc := netcdf.Encoding{
			FillValue: e.FillValue,
			Compress:  e.Zlib,
			Level:     e.Complevel,
			Shuffle:   e.Shuffle,
		}
		if e.DType != "" {
			k, err := dataset.ParseKind(e.DType)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalidRecipe, name, err)
			}
			enc.Type = k
		}
		return res.Configure(name, enc)
	}
	for _, c := range b.r.Coordinates {
		if err := configure(c.Name, c.Encoding); err != nil {
			return nil, err
		}
	}
	for _, v := range b.r.Variables {
		if err := configure(v.Name, v.Encoding); err != nil {
			return nil, err
		}
	}
	return res, nil
}
