// Package sheet reads the spreadsheet inputs of a dataset build: a data
// sheet whose first row names the columns, and an optional two-column
// sheet of global attributes.
package sheet

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/tealeg/xlsx"

	"github.com/robert-malhotra/cfnc/dataset"
)

// Default sheet names.
const (
	DataSheet       = "Data"
	AttributesSheet = "Global_Attributes"
)

var (
	ErrNoSheet  = errors.New("no such sheet")
	ErrNoColumn = errors.New("no such column")
)

// Workbook is an opened xlsx file.
type Workbook struct {
	file *xlsx.File
}

// Open reads the workbook at path.
func Open(path string) (*Workbook, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("sheet: opening %s: %w", path, err)
	}
	return &Workbook{file: f}, nil
}

// FromFile wraps an already loaded workbook.
func FromFile(f *xlsx.File) *Workbook { return &Workbook{file: f} }

// Sheets returns the sheet names in workbook order.
func (w *Workbook) Sheets() []string {
	names := make([]string, len(w.file.Sheets))
	for i, s := range w.file.Sheets {
		names[i] = s.Name
	}
	return names
}

func (w *Workbook) sheet(name string) (*xlsx.Sheet, error) {
	s, ok := w.file.Sheet[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSheet, name)
	}
	return s, nil
}

// Table reads the named sheet as columns. The first row holds the column
// names; columns with an empty name are ignored.
func (w *Workbook) Table(name string) (*Table, error) {
	s, err := w.sheet(name)
	if err != nil {
		return nil, err
	}
	t := &Table{Sheet: name, date1904: w.file.Date1904}
	if len(s.Rows) == 0 {
		return t, nil
	}

	header := s.Rows[0]
	for c, cell := range header.Cells {
		colName := strings.TrimSpace(cell.Value)
		if colName == "" {
			continue
		}
		col := Column{Name: colName, date1904: w.file.Date1904}
		for _, row := range s.Rows[1:] {
			col.cells = append(col.cells, cellAt(row, c))
		}
		col.trim()
		t.Columns = append(t.Columns, col)
	}
	return t, nil
}

func cellAt(row *xlsx.Row, c int) Cell {
	if row == nil || c >= len(row.Cells) || row.Cells[c] == nil {
		return Cell{}
	}
	cell := row.Cells[c]
	return Cell{
		Text:    strings.TrimSpace(cell.Value),
		Numeric: cell.Type() == xlsx.CellTypeNumeric,
	}
}

// Attributes reads a two-column key/value sheet. A first row whose key
// cell reads "Attribute" is a header and skipped, as are rows with an
// empty key. Numeric cells become int64 when integral and float64
// otherwise; every other cell is kept as text.
func (w *Workbook) Attributes(name string) ([]dataset.Attribute, error) {
	s, err := w.sheet(name)
	if err != nil {
		return nil, err
	}
	var attrs []dataset.Attribute
	for i, row := range s.Rows {
		key := cellAt(row, 0).Text
		if key == "" || (i == 0 && strings.EqualFold(key, "attribute")) {
			continue
		}
		value, err := cellAt(row, 1).Value()
		if err != nil {
			return nil, fmt.Errorf("sheet %q row %d (%s): %w", name, i+1, key, err)
		}
		attrs = append(attrs, dataset.Attr(key, value))
	}
	return attrs, nil
}

// Cell is the trimmed text of one cell.
type Cell struct {
	Text    string
	Numeric bool
}

// Value converts a numeric cell to int64 or float64 and returns any other
// cell as its text.
func (c Cell) Value() (any, error) {
	if !c.Numeric || c.Text == "" {
		return c.Text, nil
	}
	f, err := cast.ToFloat64E(c.Text)
	if err != nil {
		return nil, err
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f), nil
	}
	return f, nil
}

// Table is a data sheet read as named columns.
type Table struct {
	Sheet   string
	Columns []Column

	date1904 bool
}

// Column returns the named column. Names are matched exactly first, then
// ignoring case.
func (t *Table) Column(name string) (*Column, error) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], nil
		}
	}
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q in sheet %q", ErrNoColumn, name, t.Sheet)
}

// Column is one column of a data sheet, without its header and without
// trailing empty cells.
type Column struct {
	Name string

	cells    []Cell
	date1904 bool
}

func (c *Column) trim() {
	n := len(c.cells)
	for n > 0 && c.cells[n-1].Text == "" {
		n--
	}
	c.cells = c.cells[:n]
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.cells) }

// Cells returns the raw cells.
func (c *Column) Cells() []Cell { return c.cells }

// Floats converts every cell to float64. Empty cells are NaN.
func (c *Column) Floats() ([]float64, error) {
	out := make([]float64, len(c.cells))
	for i, cell := range c.cells {
		if cell.Text == "" {
			out[i] = math.NaN()
			continue
		}
		f, err := cast.ToFloat64E(cell.Text)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", c.Name, i+2, err)
		}
		out[i] = f
	}
	return out, nil
}

// Times converts every cell to an instant. Numeric cells are Excel serial
// dates; text cells are parsed by cast.ToTimeE and read as UTC when they
// carry no zone. Empty cells are an error.
func (c *Column) Times() ([]time.Time, error) {
	out := make([]time.Time, len(c.cells))
	for i, cell := range c.cells {
		var (
			t   time.Time
			err error
		)
		switch {
		case cell.Text == "":
			err = errors.New("empty cell")
		case cell.Numeric:
			var serial float64
			if serial, err = cast.ToFloat64E(cell.Text); err == nil {
				t = xlsx.TimeFromExcelTime(serial, c.date1904)
			}
		default:
			t, err = cast.ToTimeInDefaultLocationE(cell.Text, time.UTC)
		}
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", c.Name, i+2, err)
		}
		out[i] = t.UTC()
	}
	return out, nil
}
