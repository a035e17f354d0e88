package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConventionsClean(t *testing.T) {
	ds := depthDataset(t)
	_, err := ds.AttachCoordinate("time", NewArray([]int64{0, 3600}),
		Attr("standard_name", "time"),
		Attr("units", "seconds since 2022-01-01T00:00:00Z"),
	)
	require.NoError(t, err)
	assert.Empty(t, ds.CheckConventions())
}

func TestCheckConventionsProblems(t *testing.T) {
	tests := []struct {
		name  string
		coord string
		attrs []Attribute
	}{
		{"no label", "x", []Attribute{Attr("units", "m")}},
		{"no units", "x", []Attribute{Attr("long_name", "distance")}},
		{"depth without positive", "depth", []Attribute{Attr("standard_name", "depth"), Attr("units", "m")}},
		{"bad positive", "altitude", []Attribute{Attr("standard_name", "altitude"), Attr("units", "m"), Attr("positive", "sideways")}},
		{"bad time units", "time", []Attribute{Attr("standard_name", "time"), Attr("units", "hours")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := New()
			_, err := ds.AttachCoordinate(tt.coord, NewArray([]float64{1, 2}), tt.attrs...)
			require.NoError(t, err)

			problems := ds.CheckConventions()
			require.Len(t, problems, 1)
			assert.ErrorIs(t, problems[0], ErrConvention)
		})
	}
}
