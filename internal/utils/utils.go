package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to write JSON", "error", err)
	}
}

// WriteError writes the {error, message} body used by every API route.
// Server-side failures are also logged at error level.
func WriteError(w http.ResponseWriter, status int, msg string) {
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "message", msg)
	}
	WriteJSON(w, status, map[string]any{
		"error":   http.StatusText(status),
		"message": msg,
	})
}
