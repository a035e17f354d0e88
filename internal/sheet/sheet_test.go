package sheet

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"github.com/robert-malhotra/cfnc/dataset"
)

func addRow(t *testing.T, s *xlsx.Sheet, cells ...any) {
	t.Helper()
	row := s.AddRow()
	for _, v := range cells {
		cell := row.AddCell()
		switch x := v.(type) {
		case nil:
		case string:
			cell.SetString(x)
		case int:
			cell.SetInt(x)
		case float64:
			cell.SetFloat(x)
		default:
			t.Fatalf("unsupported cell %T", v)
		}
	}
}

func workbook(t *testing.T) string {
	t.Helper()
	f := xlsx.NewFile()
	data, err := f.AddSheet(DataSheet)
	require.NoError(t, err)
	addRow(t, data, "Depth (m)", "Sea water temperature (degC)", "", "Time")
	addRow(t, data, 0, 4.1, "ignored", "2022-01-01T00:00:00Z")
	addRow(t, data, 10, 3.9, nil, 44562.5)
	addRow(t, data, 20, nil, nil, "2022-01-02 06:30:00")
	addRow(t, data, 30, 3.2)

	attrs, err := f.AddSheet(AttributesSheet)
	require.NoError(t, err)
	addRow(t, attrs, "Attribute", "Value")
	addRow(t, attrs, "title", "Sea water temperature profile")
	addRow(t, attrs, "", "no key")
	addRow(t, attrs, "processing_level", 2)
	addRow(t, attrs, "geospatial_lat_min", 78.5)

	path := filepath.Join(t.TempDir(), "input.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestTable(t *testing.T) {
	wb, err := Open(workbook(t))
	require.NoError(t, err)
	assert.Equal(t, []string{DataSheet, AttributesSheet}, wb.Sheets())

	tbl, err := wb.Table(DataSheet)
	require.NoError(t, err)
	require.Len(t, tbl.Columns, 3, "unnamed column skipped")

	depth, err := tbl.Column("depth (M)")
	require.NoError(t, err)
	values, err := depth.Floats()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 10, 20, 30}, values)

	temp, err := tbl.Column("Sea water temperature (degC)")
	require.NoError(t, err)
	values, err = temp.Floats()
	require.NoError(t, err)
	require.Len(t, values, 4)
	assert.Equal(t, 4.1, values[0])
	assert.True(t, math.IsNaN(values[2]))

	_, err = tbl.Column("Salinity")
	assert.ErrorIs(t, err, ErrNoColumn)
	_, err = wb.Table("Missing")
	assert.ErrorIs(t, err, ErrNoSheet)
}

func TestColumnTimes(t *testing.T) {
	wb, err := Open(workbook(t))
	require.NoError(t, err)
	tbl, err := wb.Table(DataSheet)
	require.NoError(t, err)
	col, err := tbl.Column("Time")
	require.NoError(t, err)
	assert.Equal(t, 3, col.Len(), "trailing empty cells dropped")

	times, err := col.Times()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), times[0])
	assert.WithinDuration(t, time.Date(2022, 1, 1, 12, 0, 0, 0, time.UTC), times[1], time.Second)
	assert.Equal(t, time.Date(2022, 1, 2, 6, 30, 0, 0, time.UTC), times[2])

	_, err = (&Column{Name: "bad", cells: []Cell{{Text: "yesterday"}}}).Times()
	assert.Error(t, err)
}

func TestAttributes(t *testing.T) {
	wb, err := Open(workbook(t))
	require.NoError(t, err)
	attrs, err := wb.Attributes(AttributesSheet)
	require.NoError(t, err)
	assert.Equal(t, []dataset.Attribute{
		dataset.Attr("title", "Sea water temperature profile"),
		dataset.Attr("processing_level", int64(2)),
		dataset.Attr("geospatial_lat_min", 78.5),
	}, attrs)
}

func TestCellValue(t *testing.T) {
	v, err := Cell{Text: "12", Numeric: true}.Value()
	require.NoError(t, err)
	assert.Equal(t, int64(12), v)

	v, err = Cell{Text: "12"}.Value()
	require.NoError(t, err)
	assert.Equal(t, "12", v, "text cells stay text")

	_, err = Cell{Text: "x", Numeric: true}.Value()
	assert.Error(t, err)
}
