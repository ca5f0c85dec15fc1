package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"aqdash/internal/modules/airquality/analysis"
	"aqdash/internal/modules/airquality/dataset"
	"aqdash/internal/modules/airquality/repository"
	"aqdash/internal/modules/airquality/types"
	"aqdash/internal/mqtt"
)

var (
	ErrStationNotFound = errors.New("station not found")
	ErrNoStations      = errors.New("no stations loaded")
	ErrEmptyDataset    = errors.New("dataset has no usable rows")
)

// maxLoggedRowErrors caps per-row warnings for a single import.
const maxLoggedRowErrors = 10

type Service struct {
	repository     repository.AirQualityRepository
	logger         *slog.Logger
	datasetTimeout time.Duration
}

func NewService(repository repository.AirQualityRepository, logger *slog.Logger, datasetTimeout time.Duration) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if datasetTimeout <= 0 {
		datasetTimeout = 30 * time.Second
	}
	return &Service{repository: repository, logger: logger, datasetTimeout: datasetTimeout}
}

func (s *Service) Register(subscriber mqtt.MQTTSubscriber) {
	registerMQTTHandler(subscriber, s, s.logger)
}

// Filter selects one station and month. Zero fields are resolved to defaults:
// the first station by name, its latest year and the latest month of that year.
type Filter struct {
	StationID string     `json:"stationId"`
	Year      int        `json:"year"`
	Month     time.Month `json:"month"`
}

// Dashboard is everything the page shows for one filter. Trend and Calendar
// are nil when their inputs are insufficient; Warnings then explains why.
type Dashboard struct {
	Filter   Filter                    `json:"filter"`
	Station  types.Station             `json:"station"`
	Stations []types.Station           `json:"stations"`
	Years    []int                     `json:"years"`
	Readings []types.Reading           `json:"readings"`
	Latest   *types.Reading            `json:"latest,omitempty"`
	Counts   map[analysis.Category]int `json:"counts"`
	Trend    *analysis.TrendLine       `json:"trend,omitempty"`
	Monthly  []analysis.MonthlyAverage `json:"monthly"`
	Calendar *analysis.WeekGrid        `json:"calendar,omitempty"`
	Warnings []string                  `json:"warnings,omitempty"`
}

// Empty reports whether the selected month has no readings.
func (d Dashboard) Empty() bool {
	return len(d.Readings) == 0
}

type selection struct {
	filter   Filter
	station  types.Station
	stations []types.Station
	years    []int
	// yearSeries holds every reading of filter.Year in time order.
	yearSeries []types.Reading
}

func (s *Service) resolve(ctx context.Context, f Filter) (selection, error) {
	stations, err := s.repository.GetStations(ctx)
	if err != nil {
		return selection{}, err
	}
	if len(stations) == 0 {
		return selection{}, ErrNoStations
	}

	sel := selection{stations: stations}
	if f.StationID == "" {
		sel.station = stations[0]
	} else {
		i := slices.IndexFunc(stations, func(st types.Station) bool { return st.ID == f.StationID })
		if i < 0 {
			return selection{}, fmt.Errorf("%w: %q", ErrStationNotFound, f.StationID)
		}
		sel.station = stations[i]
	}
	f.StationID = sel.station.ID

	sel.years, err = s.repository.GetYears(ctx, f.StationID)
	if err != nil {
		return selection{}, err
	}
	if f.Year == 0 && len(sel.years) > 0 {
		f.Year = sel.years[0]
	}
	if f.Year == 0 {
		f.Year = time.Now().UTC().Year()
	}

	from := time.Date(f.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	sel.yearSeries, err = s.repository.GetReadings(ctx, f.StationID, from, from.AddDate(1, 0, 0), -1, 0)
	if err != nil {
		return selection{}, err
	}

	if f.Month == 0 {
		f.Month = time.January
		if n := len(sel.yearSeries); n > 0 {
			f.Month = sel.yearSeries[n-1].Time.Month()
		}
	}
	if f.Month < time.January || f.Month > time.December {
		return selection{}, fmt.Errorf("invalid month %d", f.Month)
	}

	sel.filter = f
	return sel, nil
}

// ResolveFilter fills the zero fields of f with their defaults.
func (s *Service) ResolveFilter(ctx context.Context, f Filter) (Filter, error) {
	sel, err := s.resolve(ctx, f)
	if err != nil {
		return Filter{}, err
	}
	return sel.filter, nil
}

// Dashboard computes the page for f. ErrInsufficientData and ErrEmptyResult
// from the analysis become warnings; store failures are returned.
func (s *Service) Dashboard(ctx context.Context, f Filter) (Dashboard, error) {
	sel, err := s.resolve(ctx, f)
	if err != nil {
		return Dashboard{}, err
	}

	monthSeries := analysis.FilterMonth(sel.yearSeries, sel.filter.Year, sel.filter.Month)
	d := Dashboard{
		Filter:   sel.filter,
		Station:  sel.station,
		Stations: sel.stations,
		Years:    sel.years,
		Readings: monthSeries,
		Counts:   analysis.CategoryCounts(monthSeries),
		Monthly:  analysis.MonthlyAverages(sel.yearSeries),
	}
	if d.Readings == nil {
		d.Readings = []types.Reading{}
	}

	latest, err := s.repository.GetLatestReadings(ctx, sel.station.ID, 1)
	if err != nil {
		return Dashboard{}, err
	}
	if len(latest) > 0 {
		d.Latest = &latest[0]
	}

	trend, err := analysis.FitTrend(monthSeries)
	switch {
	case err == nil:
		d.Trend = &trend
	case errors.Is(err, analysis.ErrInsufficientData):
		d.Warnings = append(d.Warnings, "Trend unavailable: "+err.Error())
	default:
		return Dashboard{}, err
	}

	grid, err := analysis.BuildWeekGrid(sel.yearSeries, sel.filter.Year, sel.filter.Month)
	switch {
	case err == nil:
		d.Calendar = &grid
	case errors.Is(err, analysis.ErrEmptyResult):
		d.Warnings = append(d.Warnings, "Calendar unavailable: "+err.Error())
	default:
		return Dashboard{}, err
	}

	s.logger.Debug("dashboard computed",
		"station_id", sel.station.ID,
		"year", sel.filter.Year,
		"month", int(sel.filter.Month),
		"readings", len(monthSeries),
		"warnings", len(d.Warnings),
	)
	return d, nil
}

// Series returns the readings of the resolved month window in time order.
func (s *Service) Series(ctx context.Context, f Filter) ([]types.Reading, Filter, error) {
	sel, err := s.resolve(ctx, f)
	if err != nil {
		return nil, Filter{}, err
	}
	return analysis.FilterMonth(sel.yearSeries, sel.filter.Year, sel.filter.Month), sel.filter, nil
}

// Trend fits the trend line of the resolved month window.
func (s *Service) Trend(ctx context.Context, f Filter) (analysis.TrendLine, Filter, error) {
	series, resolved, err := s.Series(ctx, f)
	if err != nil {
		return analysis.TrendLine{}, Filter{}, err
	}
	trend, err := analysis.FitTrend(series)
	return trend, resolved, err
}

// Monthly averages the whole selected year by calendar month.
func (s *Service) Monthly(ctx context.Context, f Filter) ([]analysis.MonthlyAverage, Filter, error) {
	sel, err := s.resolve(ctx, f)
	if err != nil {
		return nil, Filter{}, err
	}
	return analysis.MonthlyAverages(sel.yearSeries), sel.filter, nil
}

// Calendar builds the week grid of the resolved month.
func (s *Service) Calendar(ctx context.Context, f Filter) (analysis.WeekGrid, Filter, error) {
	sel, err := s.resolve(ctx, f)
	if err != nil {
		return analysis.WeekGrid{}, Filter{}, err
	}
	grid, err := analysis.BuildWeekGrid(sel.yearSeries, sel.filter.Year, sel.filter.Month)
	return grid, sel.filter, err
}

// RecentCalendars builds one week grid per month with data in the year up to
// the station's latest reading, oldest first.
func (s *Service) RecentCalendars(ctx context.Context, stationID string) ([]analysis.WeekGrid, error) {
	if _, err := s.repository.GetStation(ctx, stationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrStationNotFound, stationID)
		}
		return nil, err
	}
	latest, err := s.repository.GetLatestReadings(ctx, stationID, 1)
	if err != nil {
		return nil, err
	}
	if len(latest) == 0 {
		return nil, fmt.Errorf("%w: station %q has no readings", analysis.ErrEmptyResult, stationID)
	}

	end := latest[0].Time
	series, err := s.repository.GetReadings(ctx, stationID, end.AddDate(-1, 0, 0), end.Add(time.Microsecond), -1, 0)
	if err != nil {
		return nil, err
	}

	months := analysis.RecentMonths(series, end)
	grids := make([]analysis.WeekGrid, 0, len(months))
	for _, ym := range months {
		grid, err := analysis.BuildWeekGrid(series, ym.Year, ym.Month)
		if err != nil {
			return nil, err
		}
		grids = append(grids, grid)
	}
	return grids, nil
}

func (s *Service) Stations(ctx context.Context) ([]types.Station, error) {
	return s.repository.GetStations(ctx)
}

func (s *Service) Years(ctx context.Context, stationID string) ([]int, error) {
	if err := s.ensureStation(ctx, stationID); err != nil {
		return nil, err
	}
	return s.repository.GetYears(ctx, stationID)
}

func (s *Service) Latest(ctx context.Context, stationID string, limit int) ([]types.Reading, error) {
	if err := s.ensureStation(ctx, stationID); err != nil {
		return nil, err
	}
	return s.repository.GetLatestReadings(ctx, stationID, limit)
}

// Readings returns readings in [from, to); zero bounds are open.
func (s *Service) Readings(ctx context.Context, stationID string, from, to time.Time, limit int) ([]types.Reading, error) {
	if err := s.ensureStation(ctx, stationID); err != nil {
		return nil, err
	}
	return s.repository.GetReadings(ctx, stationID, from, to, limit, 0)
}

// ReadingsCount counts a station's readings in [from, to). Zero bounds are open.
func (s *Service) ReadingsCount(ctx context.Context, stationID string, from, to time.Time) (int, error) {
	if err := s.ensureStation(ctx, stationID); err != nil {
		return 0, err
	}
	return s.repository.GetReadingsCount(ctx, stationID, from, to)
}

// Imports lists the most recent dataset imports, newest first.
func (s *Service) Imports(ctx context.Context, limit int) ([]types.ImportSummary, error) {
	return s.repository.GetImports(ctx, limit)
}

func (s *Service) ensureStation(ctx context.Context, stationID string) error {
	_, err := s.repository.GetStation(ctx, stationID)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %q", ErrStationNotFound, stationID)
	}
	return err
}

// Import reads a CSV dataset from a file path or http(s) URL and stores it.
func (s *Service) Import(ctx context.Context, source string) (types.ImportSummary, error) {
	body, _, err := dataset.Open(ctx, source, s.datasetTimeout)
	if err != nil {
		return types.ImportSummary{}, err
	}
	defer func() {
		if err := body.Close(); err != nil {
			s.logger.Warn("close dataset", "source", source, "error", err)
		}
	}()
	return s.ImportFrom(ctx, source, body)
}

// ImportFrom parses a CSV dataset from r and stores its readings in one
// transaction. Unusable rows are skipped and counted in the summary.
func (s *Service) ImportFrom(ctx context.Context, source string, r io.Reader) (types.ImportSummary, error) {
	start := time.Now()
	res, err := dataset.Parse(r)
	if err != nil {
		return types.ImportSummary{}, fmt.Errorf("parse %s: %w", source, err)
	}
	for i, rowErr := range res.Skipped {
		if i == maxLoggedRowErrors {
			s.logger.Warn("more rows skipped", "source", source, "remaining", len(res.Skipped)-i)
			break
		}
		s.logger.Warn("row skipped", "source", source, "line", rowErr.Line, "error", rowErr.Err)
	}
	if len(res.Readings) == 0 {
		return types.ImportSummary{}, fmt.Errorf("%w: %s (%d skipped)", ErrEmptyDataset, source, len(res.Skipped))
	}

	summary, err := s.repository.ImportReadings(ctx, source, res.Readings, len(res.Skipped))
	if err != nil {
		return types.ImportSummary{}, err
	}
	s.logger.Info("dataset imported",
		"source", source,
		"import_id", summary.ID,
		"rows", summary.Rows,
		"skipped", summary.Skipped,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return summary, nil
}

// HandleTelemetry stores one live reading received over MQTT.
func (s *Service) HandleTelemetry(ctx context.Context, telemetry mqtt.Telemetry) error {
	if err := telemetry.Validate(); err != nil {
		return err
	}
	return s.repository.InsertReading(ctx, types.Reading{
		StationID: telemetry.StationID,
		Time:      telemetry.Timestamp.UTC(),
		PM25:      *telemetry.PM25,
		PM10:      telemetry.PM10,
	})
}
