package airquality

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"aqdash/internal/modules/airquality/controller"
	"aqdash/internal/modules/airquality/repository"
	"aqdash/internal/modules/airquality/service"
)

// RegisterFeature wires the air-quality routes onto mux and returns the
// service so callers can attach MQTT and dataset refresh to it.
func RegisterFeature(mux *http.ServeMux, db *sql.DB, logger *slog.Logger, datasetTimeout time.Duration) *service.Service {
	airQualityRepository := repository.NewRepository(db)
	airQualityService := service.NewService(airQualityRepository, logger, datasetTimeout)
	airQualityController := controller.NewAirQualityController(airQualityService)
	airQualityController.RegisterRoutes(mux)
	return airQualityService
}
