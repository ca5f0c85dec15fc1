package controller

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"aqdash/internal/modules/airquality/analysis"
	"aqdash/internal/modules/airquality/charts"
	"aqdash/internal/modules/airquality/report"
	"aqdash/internal/modules/airquality/service"
	"aqdash/internal/modules/airquality/types"
	"aqdash/internal/modules/airquality/views"
	"aqdash/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (c *airQualityControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	f, err := parseFilter(r, "")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var data *views.DashboardData
	d, err := c.service.Dashboard(r.Context(), f)
	switch {
	case err == nil:
		data = views.NewDashboardData(d)
	case errors.Is(err, service.ErrNoStations):
		data = views.MessageDashboard("No stations loaded yet. Import a dataset to get started.")
	case errors.Is(err, service.ErrStationNotFound):
		utils.WriteError(w, http.StatusNotFound, err.Error())
		return
	default:
		slog.Error("dashboard: compute failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	var buf bytes.Buffer
	if err := views.RenderDashboard(&buf, data); err != nil {
		slog.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	writeBody(w, "text/html; charset=utf-8", buf.Bytes())
}

func (c *airQualityControllerImpl) handleCalendarPartial(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r, "")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var data *views.CalendarData
	grid, _, err := c.service.Calendar(r.Context(), f)
	switch {
	case err == nil:
		data = views.NewCalendarData(&grid)
	case errors.Is(err, analysis.ErrEmptyResult), errors.Is(err, service.ErrNoStations):
		data = views.NewCalendarData(nil)
	case errors.Is(err, service.ErrStationNotFound):
		utils.WriteError(w, http.StatusNotFound, err.Error())
		return
	default:
		slog.Error("calendar partial: compute failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load calendar")
		return
	}

	var buf bytes.Buffer
	if err := views.RenderCalendarPartial(&buf, data); err != nil {
		slog.Error("calendar partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
		return
	}
	writeBody(w, "text/html; charset=utf-8", buf.Bytes())
}

// handleChart serves /charts/{kind}.{png,svg}. Recoverable analysis errors
// render a placeholder image instead of failing the request.
func (c *airQualityControllerImpl) handleChart(w http.ResponseWriter, r *http.Request) {
	kind, format, err := parseChartName(r.PathValue("chart"))
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	f, err := parseFilter(r, "")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	switch kind {
	case chartTimeSeries:
		err = c.renderTimeSeries(r, &buf, f, format)
	case chartMonthly:
		err = c.renderMonthly(r, &buf, f, format)
	case chartHeatmap:
		err = c.renderHeatmap(r, &buf, f, format)
	}
	if errors.Is(err, service.ErrNoStations) {
		buf.Reset()
		err = charts.Placeholder(&buf, "PM2.5", "No stations loaded", format)
	}
	if err != nil {
		writeServiceError(w, "chart "+kind, err)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	writeBody(w, format.ContentType(), buf.Bytes())
}

func chartTitle(prefix string, f service.Filter) string {
	return fmt.Sprintf("%s %s, %s %d", prefix, f.StationID, f.Month, f.Year)
}

func (c *airQualityControllerImpl) renderTimeSeries(r *http.Request, buf *bytes.Buffer, f service.Filter, format charts.Format) error {
	series, resolved, err := c.service.Series(r.Context(), f)
	if err != nil {
		return err
	}
	var trend *analysis.TrendLine
	if line, err := analysis.FitTrend(series); err == nil {
		trend = &line
	} else if !errors.Is(err, analysis.ErrInsufficientData) {
		return err
	}
	return charts.TimeSeries(buf, chartTitle("PM2.5", resolved), series, trend, format)
}

func (c *airQualityControllerImpl) renderMonthly(r *http.Request, buf *bytes.Buffer, f service.Filter, format charts.Format) error {
	averages, resolved, err := c.service.Monthly(r.Context(), f)
	if err != nil {
		return err
	}
	title := fmt.Sprintf("Monthly mean PM2.5 %s, %d", resolved.StationID, resolved.Year)
	return charts.MonthlyBars(buf, title, averages, format)
}

func (c *airQualityControllerImpl) renderHeatmap(r *http.Request, buf *bytes.Buffer, f service.Filter, format charts.Format) error {
	grid, resolved, err := c.service.Calendar(r.Context(), f)
	if err != nil && !errors.Is(err, analysis.ErrEmptyResult) {
		return err
	}
	return charts.Heatmap(buf, chartTitle("Daily PM2.5", resolved), grid, format)
}

type categoryResponse struct {
	Name       string   `json:"name"`
	Label      string   `json:"label"`
	Color      string   `json:"color"`
	UpperBound *float64 `json:"upperBound"`
}

func (c *airQualityControllerImpl) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats := analysis.Categories()
	out := make([]categoryResponse, 0, len(cats))
	for _, cat := range cats {
		resp := categoryResponse{Name: cat.String(), Label: cat.Label(), Color: cat.Color()}
		if upper, ok := cat.UpperBound(); ok {
			resp.UpperBound = &upper
		}
		out = append(out, resp)
	}
	utils.WriteJSON(w, http.StatusOK, out)
}

func (c *airQualityControllerImpl) handleExport(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r, "")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	d, err := c.service.Dashboard(r.Context(), f)
	if err != nil {
		writeServiceError(w, "export", err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteWorkbook(&buf, d); err != nil {
		slog.Error("export: write workbook failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}
	name := fmt.Sprintf("aqdash-%s-%04d-%02d.xlsx", d.Station.ID, d.Filter.Year, int(d.Filter.Month))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	writeBody(w, xlsxContentType, buf.Bytes())
}

func (c *airQualityControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := c.service.Stations(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, stations)
}

func (c *airQualityControllerImpl) handleYears(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing station id")
		return
	}
	years, err := c.service.Years(r.Context(), id)
	if err != nil {
		writeServiceError(w, "years", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, years)
}

func (c *airQualityControllerImpl) handleLatest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing station id")
		return
	}

	limit, err := parseLatestQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	latest, err := c.service.Latest(r.Context(), id, limit)
	if err != nil {
		writeServiceError(w, "latest", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, latest)
}

func (c *airQualityControllerImpl) handleReadings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing station id")
		return
	}

	from, to, limit, err := parseReadingsQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	readings, err := c.service.Readings(r.Context(), id, from, to, limit)
	if err != nil {
		writeServiceError(w, "readings", err)
		return
	}
	total, err := c.service.ReadingsCount(r.Context(), id, from, to)
	if err != nil {
		writeServiceError(w, "readings count", err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	utils.WriteJSON(w, http.StatusOK, readings)
}

func (c *airQualityControllerImpl) handleImports(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	imports, err := c.service.Imports(r.Context(), limit)
	if err != nil {
		writeServiceError(w, "imports", err)
		return
	}
	if imports == nil {
		imports = []types.ImportSummary{}
	}
	utils.WriteJSON(w, http.StatusOK, imports)
}

type trendResponse struct {
	Filter service.Filter     `json:"filter"`
	Trend  analysis.TrendLine `json:"trend"`
}

func (c *airQualityControllerImpl) handleTrend(w http.ResponseWriter, r *http.Request) {
	f, ok := c.stationFilter(w, r)
	if !ok {
		return
	}
	trend, resolved, err := c.service.Trend(r.Context(), f)
	if err != nil {
		writeServiceError(w, "trend", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, trendResponse{Filter: resolved, Trend: trend})
}

type monthlyResponse struct {
	Filter  service.Filter            `json:"filter"`
	Monthly []analysis.MonthlyAverage `json:"monthly"`
}

func (c *airQualityControllerImpl) handleMonthly(w http.ResponseWriter, r *http.Request) {
	f, ok := c.stationFilter(w, r)
	if !ok {
		return
	}
	averages, resolved, err := c.service.Monthly(r.Context(), f)
	if err != nil {
		writeServiceError(w, "monthly", err)
		return
	}
	if averages == nil {
		averages = []analysis.MonthlyAverage{}
	}
	utils.WriteJSON(w, http.StatusOK, monthlyResponse{Filter: resolved, Monthly: averages})
}

type calendarResponse struct {
	Filter   service.Filter    `json:"filter"`
	Calendar analysis.WeekGrid `json:"calendar"`
}

func (c *airQualityControllerImpl) handleCalendar(w http.ResponseWriter, r *http.Request) {
	f, ok := c.stationFilter(w, r)
	if !ok {
		return
	}
	grid, resolved, err := c.service.Calendar(r.Context(), f)
	if err != nil {
		writeServiceError(w, "calendar", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, calendarResponse{Filter: resolved, Calendar: grid})
}

func (c *airQualityControllerImpl) handleRecentCalendars(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing station id")
		return
	}
	grids, err := c.service.RecentCalendars(r.Context(), id)
	if err != nil {
		writeServiceError(w, "recent calendars", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, grids)
}

// stationFilter builds the filter for /api/v1/stations/{id}/... routes and
// writes a 400 when the request is malformed.
func (c *airQualityControllerImpl) stationFilter(w http.ResponseWriter, r *http.Request) (service.Filter, bool) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing station id")
		return service.Filter{}, false
	}
	f, err := parseFilter(r, id)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return service.Filter{}, false
	}
	return f, true
}
