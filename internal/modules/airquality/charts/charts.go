// Package charts renders dashboard charts as PNG or SVG images.
package charts

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"aqdash/internal/modules/airquality/analysis"
	"aqdash/internal/modules/airquality/types"
)

type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

var ErrUnknownFormat = errors.New("unknown chart format")

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case PNG:
		return PNG, nil
	case SVG:
		return SVG, nil
	default:
		return "", fmt.Errorf("%w: %q (allowed: png, svg)", ErrUnknownFormat, s)
	}
}

func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

const (
	defaultWidth  = 10 * vg.Inch
	defaultHeight = 4 * vg.Inch
)

var (
	seriesColor = mustHex("#1F77B4")
	trendColor  = mustHex("#D62728")
	barColor    = mustHex("#4C72B0")

	unknownColor = color.Gray{Y: 0x80}
)

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// CategoryColor returns the display color of c, or gray for an unknown category.
func CategoryColor(c analysis.Category) color.Color {
	col, err := colorful.Hex(c.Color())
	if err != nil {
		return unknownColor
	}
	return col
}

func newPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	return p
}

func save(w io.Writer, p *plot.Plot, width, height vg.Length, format Format) error {
	wt, err := p.WriterTo(width, height, string(format))
	if err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}
	return nil
}

// Placeholder renders an empty chart carrying only a message.
func Placeholder(w io.Writer, title, message string, format Format) error {
	p := newPlot(title)
	p.HideAxes()
	p.X.Min, p.X.Max = -1, 1
	p.Y.Min, p.Y.Max = -1, 1
	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: 0, Y: 0}},
		Labels: []string{message},
	})
	if err != nil {
		return err
	}
	labels.TextStyle[0].XAlign = draw.XCenter
	labels.TextStyle[0].YAlign = draw.YCenter
	labels.TextStyle[0].Font.Size = vg.Points(12)
	p.Add(labels)
	return save(w, p, defaultWidth, defaultHeight, format)
}

// TimeSeries draws PM2.5 against time with each point colored by category,
// plus the fitted trend as a dashed line when trend is not nil.
func TimeSeries(w io.Writer, title string, series []types.Reading, trend *analysis.TrendLine, format Format) error {
	if len(series) == 0 {
		return Placeholder(w, title, "No readings for the selected period", format)
	}

	p := newPlot(title)
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "PM2.5 (µg/m³)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "Jan 02\n15:04"}
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(series))
	for i, r := range series {
		xys[i] = plotter.XY{X: unix(r.Time), Y: r.PM25}
	}

	line, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("time series line: %w", err)
	}
	line.Color = seriesColor
	line.Width = vg.Points(1)

	points, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("time series points: %w", err)
	}
	points.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		return draw.GlyphStyle{
			Color:  CategoryColor(analysis.Categorize(series[i].PM25)),
			Radius: vg.Points(2.5),
			Shape:  draw.CircleGlyph{},
		}
	}
	p.Add(line, points)
	p.Legend.Add("PM2.5", line)

	if trend != nil {
		first, last := series[0].Time, series[len(series)-1].Time
		trendLine, err := plotter.NewLine(plotter.XYs{
			{X: unix(first), Y: trend.AtTime(first)},
			{X: unix(last), Y: trend.AtTime(last)},
		})
		if err != nil {
			return fmt.Errorf("trend line: %w", err)
		}
		trendLine.Color = trendColor
		trendLine.Width = vg.Points(2)
		trendLine.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
		p.Add(trendLine)
		p.Legend.Add(fmt.Sprintf("Trend (%+.2f/day)", trend.Slope), trendLine)
	}
	p.Legend.Top = true

	return save(w, p, defaultWidth, defaultHeight, format)
}

func unix(t time.Time) float64 {
	return float64(t.Unix())
}

// MonthlyBars draws one bar per calendar month, January to December. Months
// missing from averages are drawn with zero height.
func MonthlyBars(w io.Writer, title string, averages []analysis.MonthlyAverage, format Format) error {
	if len(averages) == 0 {
		return Placeholder(w, title, "No readings for the selected year", format)
	}

	values := make(plotter.Values, 12)
	var labelXYs plotter.XYs
	var labelText []string
	for _, a := range averages {
		i := int(a.Month) - 1
		values[i] = a.Mean
		labelXYs = append(labelXYs, plotter.XY{X: float64(i), Y: a.Mean})
		labelText = append(labelText, fmt.Sprintf("%.1f", a.Mean))
	}

	p := newPlot(title)
	p.Y.Label.Text = "Mean PM2.5 (µg/m³)"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return fmt.Errorf("monthly bars: %w", err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)

	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: labelXYs, Labels: labelText})
	if err != nil {
		return fmt.Errorf("monthly labels: %w", err)
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = draw.XCenter
	}
	labels.Offset = vg.Point{Y: vg.Points(3)}
	p.Add(labels)

	names := make([]string, 12)
	for m := time.January; m <= time.December; m++ {
		names[m-1] = m.String()[:3]
	}
	p.NominalX(names...)

	return save(w, p, defaultWidth, defaultHeight, format)
}

// Heatmap draws a week grid: weekday columns Monday to Sunday, one row per
// ISO week with the first week on top, cells colored by health category and
// labeled with their value. Days without data are left blank.
func Heatmap(w io.Writer, title string, grid analysis.WeekGrid, format Format) error {
	if grid.Len() == 0 {
		return Placeholder(w, title, "No readings for the selected month", format)
	}

	g := newWeekGridXYZ(grid)
	hm := plotter.NewHeatMap(g, categoryPalette())
	hm.Min = 0
	hm.Max = float64(len(analysis.Categories()) - 1)
	hm.NaN = color.Transparent

	p := newPlot(title)
	p.Add(hm)

	var labelXYs plotter.XYs
	var labelText []string
	for _, c := range grid.Cells() {
		labelXYs = append(labelXYs, plotter.XY{X: float64(c.Weekday), Y: g.rowOf(c.Week)})
		labelText = append(labelText, fmt.Sprintf("%.0f", c.Value))
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: labelXYs, Labels: labelText})
	if err != nil {
		return fmt.Errorf("heatmap labels: %w", err)
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = draw.XCenter
		labels.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(labels)

	p.NominalX(analysis.WeekdayLabels[:]...)
	ticks := make(plot.ConstantTicks, 0, len(g.weeks))
	for _, week := range g.weeks {
		ticks = append(ticks, plot.Tick{Value: g.rowOf(week), Label: fmt.Sprintf("W%02d", week)})
	}
	p.Y.Tick.Marker = ticks
	p.Y.Label.Text = "ISO week"

	height := vg.Length(len(g.weeks))*0.6*vg.Inch + 1.5*vg.Inch
	return save(w, p, 9*vg.Inch, height, format)
}

// weekGridXYZ exposes a WeekGrid as a plotter.GridXYZ whose Z is the
// category index of each cell.
type weekGridXYZ struct {
	grid  analysis.WeekGrid
	weeks []int
}

func newWeekGridXYZ(grid analysis.WeekGrid) weekGridXYZ {
	return weekGridXYZ{grid: grid, weeks: grid.Weeks()}
}

func (g weekGridXYZ) Dims() (c, r int) { return 7, len(g.weeks) }

// Rows run bottom-up, so row 0 holds the last week.
func (g weekGridXYZ) week(r int) int { return g.weeks[len(g.weeks)-1-r] }

func (g weekGridXYZ) rowOf(week int) float64 {
	for i, w := range g.weeks {
		if w == week {
			return float64(len(g.weeks) - 1 - i)
		}
	}
	return math.NaN()
}

func (g weekGridXYZ) Z(c, r int) float64 {
	cell, ok := g.grid.Cell(g.week(r), c)
	if !ok {
		return math.NaN()
	}
	return float64(cell.Category())
}

func (g weekGridXYZ) X(c int) float64 { return float64(c) }
func (g weekGridXYZ) Y(r int) float64 { return float64(r) }

type paletteColors []color.Color

func (p paletteColors) Colors() []color.Color { return p }

func categoryPalette() paletteColors {
	cats := analysis.Categories()
	out := make(paletteColors, len(cats))
	for i, c := range cats {
		out[i] = CategoryColor(c)
	}
	return out
}
