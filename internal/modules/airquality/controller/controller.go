package controller

import (
	"context"
	"net/http"
	"time"

	"aqdash/internal/modules/airquality/analysis"
	"aqdash/internal/modules/airquality/service"
	"aqdash/internal/modules/airquality/types"
)

type AirQualityController interface {
	RegisterRoutes(mux *http.ServeMux)
}

// Service is the part of service.Service the handlers use.
type Service interface {
	Dashboard(ctx context.Context, f service.Filter) (service.Dashboard, error)
	Series(ctx context.Context, f service.Filter) ([]types.Reading, service.Filter, error)
	Trend(ctx context.Context, f service.Filter) (analysis.TrendLine, service.Filter, error)
	Monthly(ctx context.Context, f service.Filter) ([]analysis.MonthlyAverage, service.Filter, error)
	Calendar(ctx context.Context, f service.Filter) (analysis.WeekGrid, service.Filter, error)
	RecentCalendars(ctx context.Context, stationID string) ([]analysis.WeekGrid, error)
	Stations(ctx context.Context) ([]types.Station, error)
	Years(ctx context.Context, stationID string) ([]int, error)
	Latest(ctx context.Context, stationID string, limit int) ([]types.Reading, error)
	Readings(ctx context.Context, stationID string, from, to time.Time, limit int) ([]types.Reading, error)
	ReadingsCount(ctx context.Context, stationID string, from, to time.Time) (int, error)
	Imports(ctx context.Context, limit int) ([]types.ImportSummary, error)
}

type airQualityControllerImpl struct {
	service Service
}

func NewAirQualityController(service Service) AirQualityController {
	return &airQualityControllerImpl{service: service}
}

func (c *airQualityControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleDashboard)
	mux.HandleFunc("GET /partials/calendar", c.handleCalendarPartial)
	mux.HandleFunc("GET /charts/{chart}", c.handleChart)

	mux.HandleFunc("GET /api/v1/categories", c.handleCategories)
	mux.HandleFunc("GET /api/v1/export.xlsx", c.handleExport)
	mux.HandleFunc("GET /api/v1/imports", c.handleImports)
	mux.HandleFunc("GET /api/v1/stations", c.handleStations)
	mux.HandleFunc("GET /api/v1/stations/{id}/years", c.handleYears)
	mux.HandleFunc("GET /api/v1/stations/{id}/latest", c.handleLatest)
	mux.HandleFunc("GET /api/v1/stations/{id}/readings", c.handleReadings)
	mux.HandleFunc("GET /api/v1/stations/{id}/trend", c.handleTrend)
	mux.HandleFunc("GET /api/v1/stations/{id}/monthly", c.handleMonthly)
	mux.HandleFunc("GET /api/v1/stations/{id}/calendar", c.handleCalendar)
	mux.HandleFunc("GET /api/v1/stations/{id}/calendars", c.handleRecentCalendars)
}
