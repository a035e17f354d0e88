package dataset

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToKelvin(t *testing.T) {
	ds := depthDataset(t)
	celsius := []float64{4.1, 3.9, -1.5, 0}
	v, err := ds.AttachData("temperature", []string{"depth"}, NewArray(celsius), Attr("units", "degC"))
	require.NoError(t, err)

	require.NoError(t, v.ToKelvin())
	got := v.Values().Floats()
	for i, c := range celsius {
		assert.Equal(t, c+273.15, got[i])
	}
	units, _ := v.Attrs().String("units")
	assert.Equal(t, "K", units)
}

func TestToKelvinIntegerAndMissing(t *testing.T) {
	ds := depthDataset(t)
	values := NewArray([]int32{1, 2, 3, 4})
	values.SetMissing(2)
	v, err := ds.AttachData("temperature", []string{"depth"}, values)
	require.NoError(t, err)

	require.NoError(t, v.ToKelvin())
	assert.Equal(t, Float64, v.Values().Kind())
	assert.True(t, v.Values().IsMissing(2))
	assert.Equal(t, 274.15, v.Values().Float(0))
}

func TestToKelvinRejectsOtherUnits(t *testing.T) {
	ds := depthDataset(t)
	v, err := ds.AttachData("temperature", []string{"depth"}, NewArray([]float64{1, 2, 3, 4}), Attr("units", "K"))
	require.NoError(t, err)

	require.ErrorIs(t, v.ToKelvin(), ErrUnits)
	assert.Equal(t, []float64{1, 2, 3, 4}, v.Values().Floats(), "values untouched on failure")
}

func TestTransformUpdatesAttributesTogether(t *testing.T) {
	ds := depthDataset(t)
	c, _ := ds.Coordinate("depth")
	require.NoError(t, c.Transform(func(x float64) float64 { return x / 100 }, Attr("units", "hm")))
	assert.Equal(t, []float64{0, 0.1, 0.2, 0.3}, c.Values().Floats())
	units, _ := c.Attrs().String("units")
	assert.Equal(t, "hm", units)

	err := c.Transform(func(x float64) float64 { return x * 2 }, Attr("units", nil))
	require.ErrorIs(t, err, ErrInvalidAttribute)
	assert.Equal(t, []float64{0, 0.1, 0.2, 0.3}, c.Values().Floats())
}

func TestTimeOffsets(t *testing.T) {
	epoch := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := []time.Time{
		epoch,
		epoch.Add(90 * time.Minute),
		epoch.Add(48 * time.Hour),
	}
	arr, units, err := TimeOffsets(ts, epoch, Hours)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 48}, arr.Values())
	assert.Equal(t, Attr("units", "hours since 2022-01-01T00:00:00Z"), units)

	_, _, err = TimeOffsets(ts, epoch, TimeUnit("fortnights"))
	assert.Error(t, err)
}

func TestTimeOffsetsNegative(t *testing.T) {
	epoch := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	arr, _, err := TimeOffsets([]time.Time{epoch.Add(-90 * time.Second)}, epoch, Minutes)
	require.NoError(t, err)
	v, ok := arr.Int(0)
	require.True(t, ok)
	assert.Equal(t, int64(-1), v)
	assert.False(t, math.IsNaN(arr.Float(0)))
}

func TestTimeOffsetsLongSpan(t *testing.T) {
	instant := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		epoch time.Time
		unit  TimeUnit
		want  int64
	}{
		{time.Date(1700, 1, 1, 0, 0, 0, 0, time.UTC), Days, 117608},
		{time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC), Days, 738155},
		{time.Date(1700, 1, 1, 0, 0, 0, 0, time.UTC), Seconds, 117608 * 86400},
		{time.Date(2500, 1, 1, 0, 0, 0, 0, time.UTC), Days, -174586},
	}
	for _, tt := range tests {
		arr, units, err := TimeOffsets([]time.Time{instant}, tt.epoch, tt.unit)
		require.NoError(t, err)
		assert.Equal(t, []int64{tt.want}, arr.Values(), units.Value)
	}

	back := time.Date(1500, 6, 1, 12, 0, 0, 0, time.UTC)
	arr, _, err := TimeOffsets([]time.Time{back}, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), Hours)
	require.NoError(t, err)
	assert.Equal(t, []int64{-4379268}, arr.Values())
}

func TestTimeOffsetsTruncatesSubSecond(t *testing.T) {
	epoch := time.Date(2022, 1, 1, 0, 0, 0, 500_000_000, time.UTC)
	ts := []time.Time{
		epoch.Add(1750 * time.Millisecond),
		epoch.Add(-1500 * time.Millisecond),
		epoch.Add(-999 * time.Millisecond),
	}
	arr, _, err := TimeOffsets(ts, epoch, Seconds)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, -1, 0}, arr.Values())
}
