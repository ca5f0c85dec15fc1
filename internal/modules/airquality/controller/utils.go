package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"aqdash/internal/modules/airquality/analysis"
	"aqdash/internal/modules/airquality/charts"
	"aqdash/internal/modules/airquality/service"
	"aqdash/internal/utils"
)

const (
	chartTimeSeries = "timeseries"
	chartMonthly    = "monthly"
	chartHeatmap    = "heatmap"
)

func parseReadingsQuery(r *http.Request) (from time.Time, to time.Time, limit int, err error) {
	q := r.URL.Query()

	if s := q.Get("from"); s != "" {
		from, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, time.Time{}, 0, errors.New("invalid 'from' (expected RFC3339)")
		}
	}
	if s := q.Get("to"); s != "" {
		to, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, time.Time{}, 0, errors.New("invalid 'to' (expected RFC3339)")
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, 0, errors.New("'from' must be <= 'to'")
	}

	limit, err = parseLimit(q.Get("limit"))
	if err != nil {
		return time.Time{}, time.Time{}, 0, err
	}
	return from.UTC(), to.UTC(), limit, nil
}

func parseLatestQuery(r *http.Request) (limit int, err error) {
	return parseLimit(r.URL.Query().Get("limit"))
}

func parseLimit(s string) (int, error) {
	if s == "" {
		return 100, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid 'limit' (expected integer)")
	}
	if n <= 0 {
		return 0, errors.New("'limit' must be > 0")
	}
	if n > 1000 {
		return 0, errors.New("'limit' must be <= 1000")
	}
	return n, nil
}

// parseFilter reads year and month from the query. stationID overrides the
// station_id parameter when not empty. Missing values stay zero.
func parseFilter(r *http.Request, stationID string) (service.Filter, error) {
	q := r.URL.Query()
	f := service.Filter{StationID: strings.TrimSpace(q.Get("station_id"))}
	if stationID != "" {
		f.StationID = stationID
	}

	if s := q.Get("year"); s != "" {
		year, err := strconv.Atoi(s)
		if err != nil || year < 1 || year > 9999 {
			return service.Filter{}, errors.New("invalid 'year' (expected 1..9999)")
		}
		f.Year = year
	}
	if s := q.Get("month"); s != "" {
		month, err := strconv.Atoi(s)
		if err != nil || month < 1 || month > 12 {
			return service.Filter{}, errors.New("invalid 'month' (expected 1..12)")
		}
		f.Month = time.Month(month)
	}
	return f, nil
}

// parseChartName splits "heatmap.svg" into the chart kind and format.
func parseChartName(name string) (string, charts.Format, error) {
	ext := path.Ext(name)
	if ext == "" {
		return "", "", fmt.Errorf("chart %q has no format extension", name)
	}
	format, err := charts.ParseFormat(strings.TrimPrefix(ext, "."))
	if err != nil {
		return "", "", err
	}
	kind := strings.TrimSuffix(name, ext)
	switch kind {
	case chartTimeSeries, chartMonthly, chartHeatmap:
		return kind, format, nil
	default:
		return "", "", fmt.Errorf("unknown chart %q (allowed: %s, %s, %s)", kind, chartTimeSeries, chartMonthly, chartHeatmap)
	}
}

// writeServiceError maps service and analysis errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, service.ErrStationNotFound):
		utils.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNoStations):
		utils.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, analysis.ErrInsufficientData), errors.Is(err, analysis.ErrEmptyResult):
		utils.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		utils.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("%s failed: %v", action, err))
	}
}

func writeBody(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	if _, err := w.Write(body); err != nil {
		slog.Error("write response failed", "error", err)
	}
}
