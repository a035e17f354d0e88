package recipe

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"github.com/robert-malhotra/cfnc/dataset"
	"github.com/robert-malhotra/cfnc/netcdf"
)

func logger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

func fixedClock() time.Time { return time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC) }

const profileTOML = `
output = "profile.nc"

[global]
title = "Depth profile"
creator_name = "Luke Marsden"
project = "workshop"

[[coordinates]]
name = "depth"
values = [0, 10, 20, 30]

[coordinates.attrs]
standard_name = "depth"
units = "m"
positive = "down"

[[variables]]
name = "chlorophyll"
dims = ["depth"]
values = [21.5, 18.5, 17.6, 16.8]

[variables.attrs]
units = "mg m-3"
valid_range = [0.0, 100.0]

[variables.encoding]
dtype = "float32"
fill_value = -999
zlib = true
complevel = 6
`

func TestParseTOML(t *testing.T) {
	r, err := Parse([]byte(profileTOML), "toml")
	require.NoError(t, err)
	assert.Equal(t, "profile.nc", r.OutputPath())

	globals, err := r.GlobalAttrs()
	require.NoError(t, err)
	assert.Equal(t, []dataset.Attribute{
		dataset.Attr("title", "Depth profile"),
		dataset.Attr("creator_name", "Luke Marsden"),
		dataset.Attr("project", "workshop"),
	}, globals)

	ds, res, err := r.Build(logger(), dataset.WithClock(fixedClock))
	require.NoError(t, err)

	depth, ok := ds.Coordinate("depth")
	require.True(t, ok)
	assert.Equal(t, []int64{0, 10, 20, 30}, depth.Values().Values())
	assert.ElementsMatch(t, []string{"standard_name", "units", "positive"}, depth.Attrs().Keys())

	chl, ok := ds.Data("chlorophyll")
	require.True(t, ok)
	assert.Equal(t, []float64{21.5, 18.5, 17.6, 16.8}, chl.Values().Values())
	vr, _ := chl.Attrs().Get("valid_range")
	assert.Equal(t, []float64{0, 100}, vr)

	assert.Equal(t, netcdf.Encoding{
		Type:      dataset.Float32,
		FillValue: int64(-999),
		Compress:  true,
		Level:     6,
	}, res.Resolve("chlorophyll"))
	assert.Equal(t, dataset.Int64, res.Resolve("depth").Type)
}

const profileYAML = `
global:
  title: Depth profile
  creator_name: Luke Marsden
  date_created: will be replaced
coordinates:
  - name: depth
    values: [0, 10, 20, 30]
    attrs:
      units: m
      standard_name: depth
      positive: down
      coverage_content_type: coordinate
variables:
  - name: temperature
    dims: [depth]
    values: [4.1, 3.9, null, 3.2]
    celsius_to_kelvin: true
    attrs:
      standard_name: sea_water_temperature
      units: degC
      long_name: Sea water temperature
    encoding:
      dtype: float32
      fill_value: -999.0
`

func TestParseYAMLKeepsAttributeOrder(t *testing.T) {
	r, err := Parse([]byte(profileYAML), "yml")
	require.NoError(t, err)
	ds, res, err := r.Build(logger(), dataset.WithClock(fixedClock))
	require.NoError(t, err)

	assert.Equal(t, []string{"title", "creator_name", "date_created"}, ds.Attrs().Keys())
	depth, _ := ds.Coordinate("depth")
	assert.Equal(t, []string{"units", "standard_name", "positive", "coverage_content_type"}, depth.Attrs().Keys())

	temp, _ := ds.Data("temperature")
	assert.Equal(t, []string{"standard_name", "units", "long_name"}, temp.Attrs().Keys())
	units, _ := temp.Attrs().String("units")
	assert.Equal(t, "K", units)
	assert.InDelta(t, 277.25, temp.Values().Float(0), 1e-9)
	assert.True(t, temp.Values().IsMissing(2))

	data, err := netcdf.Marshal(ds, res, netcdf.WithLogger(logger()))
	require.NoError(t, err)
	f, err := netcdf.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	v, ok := f.Variable("temperature")
	require.True(t, ok)
	assert.Equal(t, dataset.Float32, v.Kind)
	assert.Equal(t, float32(-999), v.Fill)
	assert.True(t, v.Values.IsMissing(2))
	created, _ := f.Attrs().String(dataset.AttrDateCreated)
	assert.Equal(t, "2024-03-05T12:00:00Z", created)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name   string
		format string
		input  string
	}{
		{"unknown toml key", "toml", "colour = \"red\"\n"},
		{"unknown yaml key", "yaml", "colour: red\n"},
		{"column and values", "yaml", "coordinates:\n  - name: x\n    column: X\n    values: [1]\n"},
		{"neither column nor values", "toml", "[[variables]]\nname = \"v\"\n"},
		{"duplicate name", "yaml", "coordinates:\n  - {name: x, values: [1]}\nvariables:\n  - {name: x, values: [1], dims: [x]}\n"},
		{"unique inline", "yaml", "coordinates:\n  - {name: x, values: [1], unique: true}\n"},
		{"unknown format", "json", "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input), tt.format)
			assert.ErrorIs(t, err, ErrInvalidRecipe)
		})
	}
}

func TestBuildShapeMismatch(t *testing.T) {
	r, err := Parse([]byte(`
coordinates:
  - {name: depth, values: [0, 10, 20, 30]}
variables:
  - {name: t, dims: [depth], values: [1, 2, 3]}
`), "yaml")
	require.NoError(t, err)
	_, _, err = r.Build(logger())
	assert.ErrorIs(t, err, dataset.ErrShapeMismatch)
}

func TestBuildColumnWithoutWorkbook(t *testing.T) {
	r, err := Parse([]byte("coordinates:\n  - {name: depth, column: Depth}\n"), "yaml")
	require.NoError(t, err)
	_, _, err = r.Build(logger())
	assert.ErrorIs(t, err, ErrInvalidRecipe)
}

func TestInlineTimeCoordinate(t *testing.T) {
	r, err := Parse([]byte(`
coordinates:
  - name: time
    time: hours
    epoch: 2022-01-01T00:00:00Z
    values: ["2022-01-01T00:00:00Z", "2022-01-01T01:00:00Z", "2022-01-01T05:30:00Z"]
    attrs:
      standard_name: time
`), "yaml")
	require.NoError(t, err)
	ds, _, err := r.Build(logger())
	require.NoError(t, err)
	c, _ := ds.Coordinate("time")
	assert.Equal(t, []int64{0, 1, 5}, c.Values().Values())
	units, _ := c.Attrs().String("units")
	assert.Equal(t, "hours since 2022-01-01T00:00:00Z", units)
	assert.Equal(t, []string{"standard_name", "units"}, c.Attrs().Keys())
}

// longTable writes a workbook holding one row per (day, latitude,
// longitude) cell in scrambled order, with one cell absent.
func longTable(t *testing.T, dir string, duplicate bool) {
	t.Helper()
	f := xlsx.NewFile()
	data, err := f.AddSheet("Data")
	require.NoError(t, err)
	attrs, err := f.AddSheet("Global_Attributes")
	require.NoError(t, err)

	add := func(s *xlsx.Sheet, cells ...any) {
		row := s.AddRow()
		for _, v := range cells {
			switch x := v.(type) {
			case string:
				row.AddCell().SetString(x)
			case float64:
				row.AddCell().SetFloat(x)
			}
		}
	}
	add(data, "Day", "Latitude", "Longitude", "Sea water temperature (degC)")
	add(data, "2020-07-11T12:00:00Z", 79.0, 10.5, 8.0)
	add(data, "2020-07-10T12:00:00Z", 78.5, 10.0, 1.0)
	add(data, "2020-07-10T12:00:00Z", 78.5, 10.5, 2.0)
	add(data, "2020-07-10T12:00:00Z", 79.0, 10.0, 3.0)
	add(data, "2020-07-10T12:00:00Z", 79.0, 10.5, 4.0)
	add(data, "2020-07-11T12:00:00Z", 78.5, 10.0, 5.0)
	add(data, "2020-07-11T12:00:00Z", 79.0, 10.0, 7.0)
	if duplicate {
		add(data, "2020-07-11T12:00:00Z", 79.0, 10.0, 7.5)
	}

	add(attrs, "Attribute", "Value")
	add(attrs, "title", "Sea surface temperature")
	add(attrs, "id", "1234")

	require.NoError(t, f.Save(filepath.Join(dir, "grid.xlsx")))
}

const gridRecipe = `
workbook: grid.xlsx
attributes_sheet: Global_Attributes
output: grid.nc
global:
  title: Gridded temperature
coordinates:
  - name: time
    column: Day
    unique: true
    time: days
    epoch: 2020-07-10T12:00:00Z
    attrs:
      standard_name: time
    encoding:
      dtype: int32
  - name: latitude
    column: Latitude
    unique: true
    attrs: {standard_name: latitude, units: degrees_north}
  - name: longitude
    column: Longitude
    unique: true
    attrs: {standard_name: longitude, units: degrees_east}
variables:
  - name: sea_surface_skin_temperature
    column: Sea water temperature (degC)
    dims: [time, latitude, longitude]
    celsius_to_kelvin: true
    encoding: {fill_value: -999}
`

func writeGrid(t *testing.T, duplicate bool) string {
	t.Helper()
	dir := t.TempDir()
	longTable(t, dir, duplicate)
	path := filepath.Join(dir, "recipe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(gridRecipe), 0o644))
	return path
}

func TestBuildLongTable(t *testing.T) {
	path := writeGrid(t, false)
	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "grid.nc"), r.OutputPath())

	ds, res, err := r.Build(logger(), dataset.WithClock(fixedClock))
	require.NoError(t, err)
	assert.Equal(t, []dataset.Dimension{
		{Name: "time", Len: 2},
		{Name: "latitude", Len: 2},
		{Name: "longitude", Len: 2},
	}, ds.Dimensions())
	assert.Equal(t, []string{"title", "id"}, ds.Attrs().Keys(), "recipe globals override the sheet in place")
	title, _ := ds.Attrs().String("title")
	assert.Equal(t, "Gridded temperature", title)

	c, _ := ds.Coordinate("time")
	assert.Equal(t, []int64{0, 1}, c.Values().Values())
	lat, _ := ds.Coordinate("latitude")
	assert.Equal(t, []float64{78.5, 79.0}, lat.Values().Values())

	v, _ := ds.Data("sea_surface_skin_temperature")
	assert.Equal(t, []int{2, 2, 2}, v.Shape())
	values := v.Values()
	assert.Equal(t, 1, values.MissingCount())
	assert.True(t, values.IsMissing(5), "day 2, 78.5N, 10.5E has no row")
	for i, want := range []float64{1, 2, 3, 4, 5} {
		assert.InDelta(t, want+273.15, values.Float(i), 1e-9)
	}
	assert.InDelta(t, 7+273.15, values.Float(6), 1e-9)
	assert.InDelta(t, 8+273.15, values.Float(7), 1e-9)

	assert.Equal(t, dataset.Int32, res.Resolve("time").Type)
	assert.Equal(t, -999, res.Resolve("sea_surface_skin_temperature").FillValue)

	out := r.OutputPath()
	require.NoError(t, netcdf.Write(ds, res, out, netcdf.WithLogger(logger())))
	f, err := netcdf.Open(out)
	require.NoError(t, err)
	sst, ok := f.Variable("sea_surface_skin_temperature")
	require.True(t, ok)
	assert.Equal(t, []string{"time", "latitude", "longitude"}, sst.Dims)
	assert.True(t, sst.Values.IsMissing(5))
	assert.Equal(t, float64(-999), sst.Fill)
}

func TestBuildLongTableDuplicateCell(t *testing.T) {
	r, err := Load(writeGrid(t, true))
	require.NoError(t, err)
	_, _, err = r.Build(logger())
	assert.ErrorIs(t, err, ErrDuplicateCell)
}
