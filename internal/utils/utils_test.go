package utils

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	t.Run("sets content-type and status", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := map[string]string{"key": "value"}
		WriteJSON(w, http.StatusOK, body)

		if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
			t.Errorf("Content-Type = %q; want application/json; charset=utf-8", got)
		}
		if w.Code != http.StatusOK {
			t.Errorf("Code = %d; want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("encodes nil slice as null", func(t *testing.T) {
		w := httptest.NewRecorder()
		var readings []float64
		WriteJSON(w, http.StatusOK, readings)

		if got := w.Body.String(); got != "null\n" {
			t.Errorf("body = %q; want null", got)
		}
	})

	t.Run("encodes body as JSON", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := map[string]string{"foo": "bar"}
		WriteJSON(w, http.StatusCreated, body)

		var got map[string]string
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("body is not valid JSON: %v", err)
		}
		if got["foo"] != "bar" {
			t.Errorf("body[foo] = %q; want bar", got["foo"])
		}
	})
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		msg     string
		wantLog bool
	}{
		{name: "bad request", status: http.StatusBadRequest, msg: "invalid 'month' (expected 1..12)"},
		{name: "not found", status: http.StatusNotFound, msg: `station not found: "Depok"`},
		{name: "insufficient data", status: http.StatusUnprocessableEntity, msg: "insufficient data for trend"},
		{name: "internal", status: http.StatusInternalServerError, msg: "failed to load dashboard", wantLog: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureLogs(t)
			w := httptest.NewRecorder()
			WriteError(w, tt.status, tt.msg)

			if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
				t.Errorf("Content-Type = %q; want application/json; charset=utf-8", got)
			}
			if w.Code != tt.status {
				t.Errorf("Code = %d; want %d", w.Code, tt.status)
			}

			var got map[string]any
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("body is not valid JSON: %v", err)
			}
			if len(got) != 2 {
				t.Errorf("body has %d fields; want error and message only", len(got))
			}
			if got["error"] != http.StatusText(tt.status) {
				t.Errorf("error = %q; want %q", got["error"], http.StatusText(tt.status))
			}
			if got["message"] != tt.msg {
				t.Errorf("message = %q; want %q", got["message"], tt.msg)
			}

			logged := logs.Len() > 0
			if logged != tt.wantLog {
				t.Errorf("logged = %v; want %v (logs: %q)", logged, tt.wantLog, logs.String())
			}
		})
	}
}
