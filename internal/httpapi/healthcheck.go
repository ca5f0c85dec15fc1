package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"

	"aqdash/internal/utils"
)

const mqttDisabled = "disabled"

// StatusProvider reports the state of an optional dependency.
type StatusProvider interface {
	Status() string
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	db   *sql.DB
	mqtt StatusProvider
}

func NewHealthchecker(db *sql.DB, mqtt StatusProvider) healthchecker {
	return &healthcheckerImpl{db: db, mqtt: mqtt}
}

// handleHealthz fails only on the database. A disconnected broker is reported
// but keeps the service healthy.
func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	var ok int
	if err := h.db.QueryRowContext(r.Context(), `SELECT 1`).Scan(&ok); err != nil {
		slog.Error("failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check database connectivity")
		return
	}

	mqtt := mqttDisabled
	if h.mqtt != nil {
		mqtt = h.mqtt.Status()
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "mqtt": mqtt})
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB, mqtt StatusProvider) {
	healthchecker := NewHealthchecker(db, mqtt)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
