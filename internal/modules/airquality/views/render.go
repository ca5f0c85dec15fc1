package views

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"strconv"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"aqdash/internal/modules/airquality/analysis"
	"aqdash/internal/modules/airquality/service"
)

var dashboardTmpl *template.Template

var templateFuncs = template.FuncMap{
	"pm": func(v float64) string { return fmt.Sprintf("%.1f", v) },
}

// loadTemplatesFromFS loads dashboard templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	dashboardTmpl = tmpl
	return nil
}

// LoadTemplates loads embedded dashboard templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// Option is one entry of a selector.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// LegendEntry describes one health category for the legend.
type LegendEntry struct {
	Name  string
	Label string
	Color string
	Range string
}

type CountItem struct {
	LegendEntry
	Count int
}

type LatestData struct {
	Time     string
	PM25     float64
	Category LegendEntry
}

type CalendarCell struct {
	Value     string
	Title     string
	Color     string
	TextColor string
	Empty     bool
}

type CalendarRow struct {
	Week  string
	Cells []CalendarCell
}

// CalendarData is the view model for the calendar partial. Message is set
// instead of Rows when there is nothing to draw.
type CalendarData struct {
	Title    string
	Weekdays []string
	Rows     []CalendarRow
	Message  string
}

type ChartLinks struct {
	TimeSeries string
	Monthly    string
	Heatmap    string
}

type DashboardData struct {
	StationName string
	Period      string
	Stations    []Option
	Years       []Option
	Months      []Option
	Legend      []LegendEntry
	Counts      []CountItem
	Latest      *LatestData
	Charts      ChartLinks
	CalendarURL string
	ExportURL   string
	Calendar    CalendarData
	Warnings    []string
	Empty       bool
}

func RenderDashboard(w io.Writer, data *DashboardData) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}

// RenderCalendarPartial executes only the calendar partial into w.
// Use for HTMX fragment refresh.
func RenderCalendarPartial(w io.Writer, data *CalendarData) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "partials/calendar.html", data)
}

// Legend lists every category, least severe first.
func Legend() []LegendEntry {
	cats := analysis.Categories()
	out := make([]LegendEntry, 0, len(cats))
	for _, c := range cats {
		out = append(out, legendEntry(c))
	}
	return out
}

func legendEntry(c analysis.Category) LegendEntry {
	e := LegendEntry{Name: c.String(), Label: c.Label(), Color: c.Color()}
	var lower float64
	for _, prev := range analysis.Categories() {
		if prev == c {
			break
		}
		lower, _ = prev.UpperBound()
	}
	if upper, ok := c.UpperBound(); ok {
		e.Range = fmt.Sprintf("%.0f–%.0f µg/m³", lower, upper)
	} else {
		e.Range = fmt.Sprintf("> %.0f µg/m³", lower)
	}
	return e
}

// textColor picks black or white text for a background by lightness.
func textColor(background string) string {
	col, err := colorful.Hex(background)
	if err != nil {
		return "#000000"
	}
	if l, _, _ := col.Lab(); l > 0.6 {
		return "#000000"
	}
	return "#FFFFFF"
}

// FilterQuery encodes f as the station_id, year and month query parameters.
func FilterQuery(f service.Filter) string {
	q := url.Values{}
	if f.StationID != "" {
		q.Set("station_id", f.StationID)
	}
	if f.Year != 0 {
		q.Set("year", strconv.Itoa(f.Year))
	}
	if f.Month != 0 {
		q.Set("month", strconv.Itoa(int(f.Month)))
	}
	return q.Encode()
}

// NewCalendarData lays out grid for the calendar partial. A nil or empty grid
// yields a message instead of rows.
func NewCalendarData(grid *analysis.WeekGrid) *CalendarData {
	data := &CalendarData{Weekdays: analysis.WeekdayLabels[:]}
	if grid == nil || grid.Len() == 0 {
		data.Message = "No readings for the selected month"
		return data
	}
	data.Title = time.Date(grid.Year(), grid.Month(), 1, 0, 0, 0, 0, time.UTC).Format("January 2006")

	for _, week := range grid.Weeks() {
		row := CalendarRow{Week: fmt.Sprintf("W%02d", week), Cells: make([]CalendarCell, 7)}
		for weekday := range row.Cells {
			cell, ok := grid.Cell(week, weekday)
			if !ok {
				row.Cells[weekday] = CalendarCell{Empty: true}
				continue
			}
			c := cell.Category()
			row.Cells[weekday] = CalendarCell{
				Value:     fmt.Sprintf("%.0f", cell.Value),
				Title:     fmt.Sprintf("%s: %.1f µg/m³ (%s)", cell.Date.Format("2006-01-02"), cell.Value, c.Label()),
				Color:     c.Color(),
				TextColor: textColor(c.Color()),
			}
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}

// NewDashboardData turns a computed dashboard into the page view model.
func NewDashboardData(d service.Dashboard) *DashboardData {
	f := d.Filter
	query := FilterQuery(f)
	data := &DashboardData{
		StationName: d.Station.Name,
		Period:      time.Date(f.Year, f.Month, 1, 0, 0, 0, 0, time.UTC).Format("January 2006"),
		Legend:      Legend(),
		Charts: ChartLinks{
			TimeSeries: "/charts/timeseries.svg?" + query,
			Monthly:    "/charts/monthly.svg?" + query,
			Heatmap:    "/charts/heatmap.svg?" + query,
		},
		CalendarURL: "/partials/calendar?" + query,
		ExportURL:   "/api/v1/export.xlsx?" + query,
		Calendar:    *NewCalendarData(d.Calendar),
		Warnings:    d.Warnings,
		Empty:       d.Empty(),
	}

	for _, st := range d.Stations {
		data.Stations = append(data.Stations, Option{Value: st.ID, Label: st.Name, Selected: st.ID == f.StationID})
	}
	years := d.Years
	if len(years) == 0 {
		years = []int{f.Year}
	}
	for _, y := range years {
		data.Years = append(data.Years, Option{Value: strconv.Itoa(y), Label: strconv.Itoa(y), Selected: y == f.Year})
	}
	for m := time.January; m <= time.December; m++ {
		data.Months = append(data.Months, Option{Value: strconv.Itoa(int(m)), Label: m.String(), Selected: m == f.Month})
	}

	for _, c := range analysis.Categories() {
		data.Counts = append(data.Counts, CountItem{LegendEntry: legendEntry(c), Count: d.Counts[c]})
	}
	if d.Latest != nil {
		data.Latest = &LatestData{
			Time:     d.Latest.Time.Format("2006-01-02 15:04"),
			PM25:     d.Latest.PM25,
			Category: legendEntry(analysis.Categorize(d.Latest.PM25)),
		}
	}
	return data
}

// MessageDashboard is the page shown when nothing can be computed, such as an
// empty store.
func MessageDashboard(message string) *DashboardData {
	return &DashboardData{
		Legend:   Legend(),
		Calendar: CalendarData{Weekdays: analysis.WeekdayLabels[:], Message: message},
		Warnings: []string{message},
		Empty:    true,
	}
}
