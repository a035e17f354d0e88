package netcdf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/cfnc/dataset"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
}

func quiet() Option {
	l, _ := test.NewNullLogger()
	return WithLogger(l)
}

func profile(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds := dataset.New(dataset.WithClock(fixedClock))
	_, err := ds.AttachCoordinate("depth", dataset.NewArray([]float64{0, 10, 20, 30}),
		dataset.Attr("standard_name", "depth"),
		dataset.Attr("units", "m"),
		dataset.Attr("positive", "down"),
	)
	require.NoError(t, err)
	_, err = ds.AttachData("temperature", []string{"depth"}, dataset.NewArray([]float64{4.1, 3.9, 3.5, 3.2}),
		dataset.Attr("units", "degC"),
		dataset.Attr("long_name", "sea water temperature"),
	)
	require.NoError(t, err)
	require.NoError(t, ds.Attrs().Set("title", "CTD profile"))
	return ds
}

func float32Temperature(t *testing.T, ds *dataset.Dataset) *Resolver {
	t.Helper()
	r := NewResolver(ds)
	require.NoError(t, r.Configure("temperature", Encoding{Type: dataset.Float32}))
	return r
}

func decode(t *testing.T, ds *dataset.Dataset, r *Resolver, opts ...Option) *File {
	t.Helper()
	data, err := Marshal(ds, r, append([]Option{quiet()}, opts...)...)
	require.NoError(t, err)
	f, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return f
}

func TestWriteProfile(t *testing.T) {
	ds := profile(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.nc")
	require.NoError(t, Write(ds, float32Temperature(t, ds), path, quiet()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files left behind")

	f, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, []dataset.Dimension{{Name: "depth", Len: 4}}, f.Dimensions())

	depth, ok := f.Variable("depth")
	require.True(t, ok)
	assert.True(t, depth.Coordinate)
	assert.Equal(t, dataset.Float64, depth.Kind)
	assert.Equal(t, []string{"depth"}, depth.Dims)
	assert.Equal(t, []float64{0, 10, 20, 30}, depth.Values.Floats())
	positive, _ := depth.Attrs.String("positive")
	assert.Equal(t, "down", positive)

	temp, ok := f.Variable("temperature")
	require.True(t, ok)
	assert.False(t, temp.Coordinate)
	assert.Equal(t, dataset.Float32, temp.Kind)
	assert.Equal(t, []int{4}, temp.Shape)
	assert.Equal(t, []string{"depth"}, temp.Dims)
	for i, want := range []float64{4.1, 3.9, 3.5, 3.2} {
		assert.InDelta(t, want, temp.Values.Float(i), 1e-6)
	}
	units, _ := temp.Attrs.String("units")
	assert.Equal(t, "degC", units)
	assert.Equal(t, []string{"units", "long_name"}, temp.Attrs.Keys())

	title, _ := f.Attrs().String("title")
	assert.Equal(t, "CTD profile", title)
	created, _ := f.Attrs().String(dataset.AttrDateCreated)
	assert.Equal(t, "2024-03-05T12:00:00Z", created)
	history, _ := f.Attrs().String(dataset.AttrHistory)
	assert.Equal(t, "File created at 2024-03-05T12:00:00Z using cfnc", history)
	assert.True(t, ds.Finalized())
}

func TestShapeMismatchNeverReachesEncoder(t *testing.T) {
	ds := profile(t)
	_, err := ds.AttachData("salinity", []string{"depth"}, dataset.NewArray([]float64{34.1, 34.2, 34.3}))
	require.ErrorIs(t, err, dataset.ErrShapeMismatch)

	f := decode(t, ds, nil)
	_, ok := f.Variable("salinity")
	assert.False(t, ok)
}

func TestKelvinFloat32(t *testing.T) {
	ds := profile(t)
	temp, _ := ds.Data("temperature")
	require.NoError(t, temp.ToKelvin())

	f := decode(t, ds, float32Temperature(t, ds))
	v, ok := f.Variable("temperature")
	require.True(t, ok)
	for i, c := range []float64{4.1, 3.9, 3.5, 3.2} {
		assert.InDelta(t, c+273.15, v.Values.Float(i), 1e-4)
	}
	units, _ := v.Attrs.String("units")
	assert.Equal(t, "K", units)
}

func constantDataset(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	ds := dataset.New(dataset.WithClock(fixedClock))
	x := make([]int32, n)
	for i := range x {
		x[i] = int32(i)
	}
	_, err := ds.AttachCoordinate("x", dataset.NewArray(x), dataset.Attr("long_name", "sample"), dataset.Attr("units", "1"))
	require.NoError(t, err)
	_, err = ds.AttachData("v", []string{"x"}, dataset.Full(n, 5.0))
	require.NoError(t, err)
	return ds
}

func TestCompressionShrinksConstantData(t *testing.T) {
	plain, err := Marshal(constantDataset(t, 10000), nil, quiet())
	require.NoError(t, err)

	ds := constantDataset(t, 10000)
	r := NewResolver(ds)
	require.NoError(t, r.Configure("v", Encoding{Compress: true}))
	packed, err := Marshal(ds, r, quiet())
	require.NoError(t, err)
	assert.Less(t, len(packed), len(plain))

	f, err := Decode(bytes.NewReader(packed))
	require.NoError(t, err)
	v, ok := f.Variable("v")
	require.True(t, ok)
	assert.True(t, v.Compressed)
	assert.Equal(t, 4, v.Level)
	assert.False(t, v.Shuffle)
	assert.Equal(t, 10000, v.Values.Len())
	for _, x := range v.Values.Floats() {
		if x != 5 {
			t.Fatalf("decoded %v, want 5", x)
		}
	}
}

func TestCompressionLevelAndShuffle(t *testing.T) {
	ds := constantDataset(t, 100)
	r := NewResolver(ds)
	require.NoError(t, r.Configure("v", Encoding{Type: dataset.Float32, Compress: true, Level: 9, Shuffle: true}))
	require.NoError(t, r.Configure("x", Encoding{Compress: true, Level: 1}))

	f := decode(t, ds, r)
	v, _ := f.Variable("v")
	assert.Equal(t, Encoding{Type: dataset.Float32, Compress: true, Level: 9, Shuffle: true}, v.Encoding())
	x, _ := f.Variable("x")
	assert.Equal(t, 1, x.Level)
	assert.Equal(t, []int32{0, 1, 2, 3, 4}, x.Values.Values().([]int32)[:5])
}

func TestFillValueMarksMissing(t *testing.T) {
	ds := profile(t)
	_, err := ds.AttachData("oxygen", []string{"depth"}, dataset.NewArray([]float64{310, 305, math.NaN(), 298}),
		dataset.Attr("units", "umol/kg"))
	require.NoError(t, err)
	r := NewResolver(ds)
	require.NoError(t, r.Configure("oxygen", Encoding{Type: dataset.Int16, FillValue: -999}))

	f := decode(t, ds, r)
	v, ok := f.Variable("oxygen")
	require.True(t, ok)
	assert.Equal(t, dataset.Int16, v.Kind)
	assert.Equal(t, int16(-999), v.Fill)
	assert.True(t, v.Values.IsMissing(2))
	assert.Equal(t, 1, v.Values.MissingCount())
	x, ok := v.Values.Int(0)
	require.True(t, ok)
	assert.Equal(t, int64(310), x)
	assert.Equal(t, []string{"units"}, v.Attrs.Keys(), "_FillValue is not a user attribute")
}

func TestMissingFloatWithoutFillIsNaN(t *testing.T) {
	ds := profile(t)
	temp, _ := ds.Data("temperature")
	temp.Values().SetMissing(1)

	f := decode(t, ds, nil)
	v, _ := f.Variable("temperature")
	assert.Nil(t, v.Fill)
	assert.True(t, math.IsNaN(v.Values.Float(1)))
	assert.True(t, v.Values.IsMissing(1))
}

func TestMissingIntegerWithoutFill(t *testing.T) {
	ds := profile(t)
	temp, _ := ds.Data("temperature")
	temp.Values().SetMissing(1)
	r := NewResolver(ds)
	require.NoError(t, r.Configure("temperature", Encoding{Type: dataset.Int32}))

	_, err := Marshal(ds, r, quiet())
	require.ErrorIs(t, err, ErrInvalidEncoding)
	assert.False(t, ds.Finalized(), "failed encode leaves the dataset open")
}

func TestCastOverflow(t *testing.T) {
	ds := profile(t)
	_, err := ds.AttachData("counts", []string{"depth"}, dataset.NewArray([]float64{1, 300, 400, 2}))
	require.NoError(t, err)
	r := NewResolver(ds)
	require.NoError(t, r.Configure("counts", Encoding{Type: dataset.Int8}))

	_, err = Marshal(ds, r, quiet())
	require.ErrorIs(t, err, ErrCastOverflow)
	var cerr *CastError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "counts", cerr.Variable)
	assert.Equal(t, 1, cerr.Index)
	assert.Equal(t, 300.0, cerr.Value)
	assert.Equal(t, 2, cerr.Count)
}

func TestFloat32Overflow(t *testing.T) {
	ds := profile(t)
	_, err := ds.AttachData("big", []string{"depth"}, dataset.NewArray([]float64{1, 1e39, math.Inf(1), 2}))
	require.NoError(t, err)
	r := NewResolver(ds)
	require.NoError(t, r.Configure("big", Encoding{Type: dataset.Float32}))

	_, err = Marshal(ds, r, quiet())
	var cerr *CastError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 1, cerr.Count, "infinity is representable")
}

func TestConfigureRejects(t *testing.T) {
	ds := profile(t)
	r := NewResolver(ds)

	assert.ErrorIs(t, r.Configure("salinity", Encoding{}), ErrUnknownVariable)
	assert.ErrorIs(t, r.Configure("depth", Encoding{FillValue: -1.0}), ErrInvalidEncoding)
	assert.ErrorIs(t, r.Configure("temperature", Encoding{Type: dataset.Int8, FillValue: 1000}), ErrInvalidEncoding)
	assert.ErrorIs(t, r.Configure("temperature", Encoding{Type: dataset.Float32, FillValue: 0.1}), ErrInvalidEncoding)
	assert.ErrorIs(t, r.Configure("temperature", Encoding{Compress: true, Level: 10}), ErrInvalidEncoding)

	require.NoError(t, r.Configure("temperature", Encoding{Type: dataset.Float32, FillValue: -999.0}))
	assert.Equal(t, dataset.Float32, r.Resolve("temperature").Type)
	assert.Equal(t, dataset.Float64, r.Resolve("depth").Type, "default keeps the in-memory kind")
}

func TestReservedAttribute(t *testing.T) {
	ds := profile(t)
	temp, _ := ds.Data("temperature")
	require.NoError(t, temp.Attrs().Set("_FillValue", -1.0))
	require.NoError(t, ds.Attrs().Set("_NCProperties", "version=2"))

	_, err := Marshal(ds, nil, quiet())
	require.ErrorIs(t, err, ErrInvalidEncoding)
	var verr *dataset.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 2)
}

func TestConventionWarnings(t *testing.T) {
	ds := dataset.New()
	_, err := ds.AttachCoordinate("x", dataset.NewArray([]float64{1, 2}))
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	_, err = Marshal(ds, nil, WithLogger(logger))
	require.NoError(t, err)
	var warnings int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings)

	strict := dataset.New()
	_, err = strict.AttachCoordinate("x", dataset.NewArray([]float64{1, 2}))
	require.NoError(t, err)
	_, err = Marshal(strict, nil, quiet(), WithStrictConventions())
	assert.ErrorIs(t, err, dataset.ErrConvention)
}

func TestWriteFailure(t *testing.T) {
	ds := profile(t)
	path := filepath.Join(t.TempDir(), "missing", "out.nc")
	err := Write(ds, nil, path, quiet())
	require.ErrorIs(t, err, ErrWriteFailure)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	var werr *WriteError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, path, werr.Path)
}

func TestEncodeIsDeterministic(t *testing.T) {
	ds := profile(t)
	r := float32Temperature(t, ds)
	first, err := Marshal(ds, r, quiet())
	require.NoError(t, err)
	second, err := Marshal(ds, r, quiet())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, ds, r, quiet()))
	assert.Equal(t, first, buf.Bytes())
}

func TestRebuildDataset(t *testing.T) {
	ds := dataset.New(dataset.WithClock(fixedClock))
	_, err := ds.AttachCoordinate("time", dataset.NewArray([]int64{0, 3600, 7200}),
		dataset.Attr("standard_name", "time"),
		dataset.Attr("units", "seconds since 2024-01-01T00:00:00Z"),
	)
	require.NoError(t, err)
	_, err = ds.AttachCoordinate("depth", dataset.NewArray([]float32{5, 15}),
		dataset.Attr("standard_name", "depth"),
		dataset.Attr("units", "m"),
		dataset.Attr("positive", "down"),
	)
	require.NoError(t, err)
	salinity := dataset.NewArray([]float64{34.1, 34.2, 34.3, 34.4, 34.5, 34.6}, 3, 2)
	salinity.SetMissing(3)
	_, err = ds.AttachData("salinity", []string{"time", "depth"}, salinity,
		dataset.Attr("units", "1e-3"),
		dataset.Attr("valid_range", []float32{0, 45}),
	)
	require.NoError(t, err)
	_, err = ds.AttachData("flag", []string{"time"}, dataset.NewArray([]uint8{0, 1, 4}))
	require.NoError(t, err)
	require.NoError(t, ds.Attrs().SetAll(dataset.Attr("title", "mooring"), dataset.Attr("station", int32(7))))

	r := NewResolver(ds)
	require.NoError(t, r.Configure("salinity", Encoding{Type: dataset.Float32, FillValue: float32(-1), Compress: true, Shuffle: true}))
	encoded, err := Marshal(ds, r, quiet())
	require.NoError(t, err)

	f, err := Decode(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.Equal(t, []dataset.Dimension{{Name: "time", Len: 3}, {Name: "depth", Len: 2}}, f.Dimensions())
	var names []string
	for _, v := range f.Variables() {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"time", "depth", "salinity", "flag"}, names)

	sal, _ := f.Variable("salinity")
	assert.Equal(t, []string{"time", "depth"}, sal.Dims)
	assert.Equal(t, []int{3, 2}, sal.Shape)
	assert.True(t, sal.Values.IsMissing(3))
	vr, _ := sal.Attrs.Get("valid_range")
	assert.Equal(t, []float32{0, 45}, vr)
	station, _ := f.Attrs().Get("station")
	assert.Equal(t, int32(7), station)

	rebuilt, err := f.Dataset(dataset.WithClock(fixedClock))
	require.NoError(t, err)
	assert.Equal(t, ds.Dimensions(), rebuilt.Dimensions())
	assert.True(t, ds.Attrs().Equal(rebuilt.Attrs()))
	flag, _ := rebuilt.Data("flag")
	assert.Equal(t, []uint8{0, 1, 4}, flag.Values().Values())

	rr, err := f.Resolver(rebuilt)
	require.NoError(t, err)
	again, err := Marshal(rebuilt, rr, quiet())
	require.NoError(t, err)
	assert.Equal(t, encoded, again, "decoded file re-encodes to the same bytes")
}

func TestDecodeRejectsOtherFiles(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("CDF\x01 classic netCDF is not HDF5")))
	assert.ErrorIs(t, err, ErrNotNetCDF)

	_, err = Open(filepath.Join(t.TempDir(), "absent.nc"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestDecodeCorruptedInput(t *testing.T) {
	ds := constantDataset(t, 64)
	r := NewResolver(ds)
	require.NoError(t, r.Configure("v", Encoding{Type: dataset.Float32, Compress: true, Shuffle: true}))
	data, err := Marshal(ds, r, quiet())
	require.NoError(t, err)

	for i := range data {
		for _, mask := range []byte{0x01, 0x80, 0xFF} {
			bad := bytes.Clone(data)
			bad[i] ^= mask
			assert.NotPanics(t, func() { _, _ = Decode(bytes.NewReader(bad)) }, "byte %d ^ %#x", i, mask)
		}
	}

	for _, n := range []int{0, 8, 40, len(data) / 2, len(data) - 1} {
		_, err := Decode(bytes.NewReader(data[:n]))
		assert.Error(t, err, "truncated to %d bytes", n)
	}
}

func TestDecodeHugeHeaderSize(t *testing.T) {
	ds := constantDataset(t, 4)
	data, err := Marshal(ds, nil, quiet())
	require.NoError(t, err)

	// The root group header: its chunk size field follows "OHDR", version
	// and flags. Claim the largest size the field can hold.
	root := int(binary.LittleEndian.Uint64(data[36:44]))
	require.Equal(t, "OHDR", string(data[root:root+4]))
	flags := data[root+5]
	width := 1 << (flags & 0x03)
	at := root + 6
	if flags&0x20 != 0 {
		at += 16
	}
	if flags&0x10 != 0 {
		at += 4
	}
	for i := 0; i < width; i++ {
		data[at+i] = 0xFF
	}
	_, err = Decode(bytes.NewReader(data))
	assert.Error(t, err)
}

// TestFileBytes checks the on-disk structures against the HDF5 format
// directly, without going through Decode.
func TestFileBytes(t *testing.T) {
	ds := constantDataset(t, 64)
	r := NewResolver(ds)
	require.NoError(t, r.Configure("v", Encoding{Type: dataset.Float32, Compress: true, Level: 6, Shuffle: true}))
	data, err := Marshal(ds, r, quiet())
	require.NoError(t, err)
	le := binary.LittleEndian

	// Superblock version 2: signature, version, offset and length sizes,
	// flags, base, extension, end of file and root group addresses.
	assert.Equal(t, []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}, data[:8])
	assert.Equal(t, []byte{2, 8, 8, 0}, data[8:12])
	assert.Equal(t, uint64(0), le.Uint64(data[12:20]))
	assert.Equal(t, uint64(math.MaxUint64), le.Uint64(data[20:28]))
	assert.Equal(t, uint64(len(data)), le.Uint64(data[28:36]))
	root := le.Uint64(data[36:44])
	assert.Equal(t, []byte("OHDR\x02"), data[root:root+5])

	// Filter pipeline version 2: shuffle(elem size 4) then deflate(6).
	pipeline := []byte{
		2, 2,
		2, 0, 0, 0, 1, 0, 4, 0, 0, 0,
		1, 0, 0, 0, 1, 0, 6, 0, 0, 0,
	}
	assert.True(t, bytes.Contains(data, pipeline), "filter pipeline message")

	// Layout version 4, chunked, single chunk index with filters: one
	// 64-element axis plus the 4-byte element size, 1-byte dimension width.
	prefix := []byte{4, 2, 0x02, 2, 1, 64, 4, 1}
	at := bytes.Index(data, prefix)
	require.GreaterOrEqual(t, at, 0, "layout message")
	info := data[at+len(prefix):]
	size := le.Uint64(info[0:8])
	assert.Equal(t, uint32(0), le.Uint32(info[8:12]), "filter mask")
	addr := le.Uint64(info[12:20])
	require.LessOrEqual(t, addr+size, uint64(len(data)))

	// The chunk is a plain zlib stream of byte-shuffled float32 values.
	zr, err := zlib.NewReader(bytes.NewReader(data[addr : addr+size]))
	require.NoError(t, err)
	shuffled, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.Len(t, shuffled, 64*4)
	five := []byte{0x00, 0x00, 0xa0, 0x40}
	for i := 0; i < 64; i++ {
		for b := 0; b < 4; b++ {
			if shuffled[b*64+i] != five[b] {
				t.Fatalf("element %d byte %d = %#x, want %#x", i, b, shuffled[b*64+i], five[b])
			}
		}
	}
}
