package charts

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aqdash/internal/modules/airquality/analysis"
	"aqdash/internal/modules/airquality/types"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func march2017() []types.Reading {
	day := func(d int, v float64) types.Reading {
		return types.Reading{StationID: "Jakarta", Time: time.Date(2017, 3, d, 0, 0, 0, 0, time.UTC), PM25: v}
	}
	return []types.Reading{day(1, 12), day(6, 70), day(12, 200), day(20, 300)}
}

func assertImage(t *testing.T, format Format, out []byte) {
	t.Helper()
	require.NotEmpty(t, out)
	switch format {
	case PNG:
		assert.True(t, bytes.HasPrefix(out, pngMagic), "missing PNG signature")
	case SVG:
		assert.Contains(t, string(out), "<svg")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "png", want: PNG},
		{in: " SVG ", want: SVG},
		{in: "pdf", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownFormat, tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	assert.Equal(t, "image/png", PNG.ContentType())
	assert.Equal(t, "image/svg+xml", SVG.ContentType())
}

func TestTimeSeries(t *testing.T) {
	series := march2017()
	trend, err := analysis.FitTrend(series)
	require.NoError(t, err)

	for _, format := range []Format{PNG, SVG} {
		var buf bytes.Buffer
		require.NoError(t, TimeSeries(&buf, "PM2.5 Jakarta", series, &trend, format))
		assertImage(t, format, buf.Bytes())
	}

	var buf bytes.Buffer
	require.NoError(t, TimeSeries(&buf, "no trend", series[:1], nil, SVG))
	assertImage(t, SVG, buf.Bytes())
}

func TestMonthlyBars(t *testing.T) {
	averages := []analysis.MonthlyAverage{
		{Month: time.January, Mean: 15, Count: 2},
		{Month: time.March, Mean: 94, Count: 3},
	}
	for _, format := range []Format{PNG, SVG} {
		var buf bytes.Buffer
		require.NoError(t, MonthlyBars(&buf, "Monthly", averages, format))
		assertImage(t, format, buf.Bytes())
	}
}

func TestHeatmap(t *testing.T) {
	grid, err := analysis.BuildWeekGrid(march2017(), 2017, time.March)
	require.NoError(t, err)

	for _, format := range []Format{PNG, SVG} {
		var buf bytes.Buffer
		require.NoError(t, Heatmap(&buf, "Calendar", grid, format))
		assertImage(t, format, buf.Bytes())
	}
}

func TestEmptyInputsRenderPlaceholder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TimeSeries(&buf, "empty", nil, nil, SVG))
	assert.Contains(t, buf.String(), "<svg")

	buf.Reset()
	require.NoError(t, MonthlyBars(&buf, "empty", nil, PNG))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))

	buf.Reset()
	require.NoError(t, Heatmap(&buf, "empty", analysis.WeekGrid{}, SVG))
	assert.Contains(t, buf.String(), "<svg")
}

func TestWeekGridXYZ(t *testing.T) {
	grid, err := analysis.BuildWeekGrid(march2017(), 2017, time.March)
	require.NoError(t, err)
	g := newWeekGridXYZ(grid)

	c, r := g.Dims()
	assert.Equal(t, 7, c)
	assert.Equal(t, len(grid.Weeks()), r)

	// First week (W09) is drawn on the top row.
	assert.Equal(t, float64(r-1), g.rowOf(9))
	assert.True(t, math.IsNaN(g.rowOf(40)))

	// 2017-03-01 is a Wednesday in week 9 with PM2.5 12 (Good).
	assert.Equal(t, float64(analysis.Good), g.Z(2, r-1))
	// Monday of week 9 is in February, so the cell is empty.
	assert.True(t, math.IsNaN(g.Z(0, r-1)))

	colors := categoryPalette().Colors()
	assert.Len(t, colors, len(analysis.Categories()))
}

func TestCategoryColor(t *testing.T) {
	for _, c := range analysis.Categories() {
		col, ok := CategoryColor(c).(colorful.Color)
		require.True(t, ok, c.String())
		assert.True(t, strings.EqualFold(c.Color(), col.Hex()), "%s: got %s want %s", c, col.Hex(), c.Color())
	}
	assert.Equal(t, unknownColor, CategoryColor(analysis.Category(99)))
}

func TestSingleReadingCharts(t *testing.T) {
	one := []types.Reading{{StationID: "Jakarta", Time: time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC), PM25: 40}}
	grid, err := analysis.BuildWeekGrid(one, 2017, time.March)
	require.NoError(t, err)

	for _, format := range []Format{PNG, SVG} {
		var buf bytes.Buffer
		require.NoError(t, TimeSeries(&buf, "one", one, nil, format))
		assertImage(t, format, buf.Bytes())

		buf.Reset()
		require.NoError(t, Heatmap(&buf, "one", grid, format))
		assertImage(t, format, buf.Bytes())
	}
}
