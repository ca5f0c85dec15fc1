package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"aqdash/internal/modules/airquality/analysis"
	"aqdash/internal/modules/airquality/service"
	"aqdash/internal/modules/airquality/types"
)

func march2017() []types.Reading {
	pm10 := 20.0
	return []types.Reading{
		{StationID: "Jakarta", Time: time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC), PM25: 12, PM10: &pm10},
		{StationID: "Jakarta", Time: time.Date(2017, 3, 6, 0, 0, 0, 0, time.UTC), PM25: 70},
		{StationID: "Jakarta", Time: time.Date(2017, 3, 12, 0, 0, 0, 0, time.UTC), PM25: 200},
	}
}

func testDashboard(t *testing.T) service.Dashboard {
	t.Helper()
	series := march2017()
	trend, err := analysis.FitTrend(series)
	require.NoError(t, err)
	grid, err := analysis.BuildWeekGrid(series, 2017, time.March)
	require.NoError(t, err)

	station := types.Station{ID: "Jakarta", Name: "Jakarta"}
	return service.Dashboard{
		Filter:   service.Filter{StationID: "Jakarta", Year: 2017, Month: time.March},
		Station:  station,
		Stations: []types.Station{station},
		Years:    []int{2017},
		Readings: series,
		Counts:   analysis.CategoryCounts(series),
		Trend:    &trend,
		Monthly:  analysis.MonthlyAverages(series),
		Calendar: &grid,
	}
}

func openWorkbook(t *testing.T, d service.Dashboard) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, d))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func cell(t *testing.T, f *excelize.File, sheet, axis string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, axis)
	require.NoError(t, err)
	return v
}

func TestWriteWorkbook(t *testing.T) {
	f := openWorkbook(t, testDashboard(t))

	assert.Equal(t,
		[]string{SheetSummary, SheetReadings, SheetMonthly, SheetCalendar, SheetTrend},
		f.GetSheetList())

	assert.Equal(t, "Jakarta", cell(t, f, SheetSummary, "B1"))
	assert.Equal(t, "2017", cell(t, f, SheetSummary, "B2"))
	assert.Equal(t, "March", cell(t, f, SheetSummary, "B3"))
	assert.Equal(t, "Good", cell(t, f, SheetSummary, "A7"))
	assert.Equal(t, "Baik", cell(t, f, SheetSummary, "B7"))
	assert.Equal(t, "1", cell(t, f, SheetSummary, "C7"))

	rows, err := f.GetRows(SheetReadings)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Time", "PM2.5", "PM10", "Category"}, rows[0])
	assert.Equal(t, "2017-03-01 00:00", rows[1][0])
	assert.Equal(t, "20", rows[1][2])
	assert.Equal(t, "VeryUnhealthy", rows[3][3])

	assert.Equal(t, "March", cell(t, f, SheetMonthly, "A2"))
	assert.Equal(t, "Week", cell(t, f, SheetCalendar, "A1"))
	assert.Equal(t, "Mon", cell(t, f, SheetCalendar, "B1"))
	assert.Equal(t, "W09", cell(t, f, SheetCalendar, "A2"))
	// 2017-03-01 is the Wednesday of week 9.
	assert.Equal(t, "12", cell(t, f, SheetCalendar, "D2"))
	assert.Equal(t, "Slope (µg/m³ per day)", cell(t, f, SheetTrend, "A2"))
}

func TestWriteWorkbook_MissingPanels(t *testing.T) {
	d := testDashboard(t)
	d.Trend = nil
	d.Calendar = nil
	d.Warnings = []string{"Trend unavailable: insufficient data for trend"}

	f := openWorkbook(t, d)
	assert.Equal(t, "Trend unavailable", cell(t, f, SheetTrend, "A2"))
	assert.Equal(t, "No readings for the selected month", cell(t, f, SheetCalendar, "A2"))

	rows, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	last := rows[len(rows)-1]
	assert.Equal(t, "Warnings", last[0])
	assert.Contains(t, last[1], "insufficient data")
}

func TestRenderCalendar(t *testing.T) {
	grid, err := analysis.BuildWeekGrid(march2017(), 2017, time.March)
	require.NoError(t, err)

	out := RenderCalendar(grid)
	assert.Contains(t, out, "PM2.5 2017-03")
	assert.Contains(t, out, "Mon")
	assert.Contains(t, out, "Sun")
	assert.Contains(t, out, "W09")
	assert.Contains(t, out, "W10")
	assert.Contains(t, out, "200")
	assert.Contains(t, out, "Hazardous (> 250)")
}

func TestRenderCalendar_Empty(t *testing.T) {
	out := RenderCalendar(analysis.WeekGrid{})
	assert.Contains(t, out, "no readings")
}

func TestRenderLegend(t *testing.T) {
	out := RenderLegend()
	assert.Contains(t, out, "Good (≤ 15)")
	assert.Contains(t, out, "VeryUnhealthy (≤ 250)")
	assert.Contains(t, out, "Hazardous (> 250)")
}
