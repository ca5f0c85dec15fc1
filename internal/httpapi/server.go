package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"aqdash/internal/config"
)

func NewServer(cfg config.Config, mux *http.ServeMux, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestLogger(logger, mux),
		ReadHeaderTimeout: 10 * time.Second,
		// Chart rendering can take a while for a full year.
		WriteTimeout: 60 * time.Second,
	}
}
