package httpapi

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"aqdash/internal/config"
)

type fakeStatus string

func (f fakeStatus) Status() string { return string(f) }

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v; body %q", err, rec.Body.String())
	}
	return body
}

func TestHealthz(t *testing.T) {
	tests := []struct {
		name string
		mqtt StatusProvider
		want string
	}{
		{name: "mqtt disabled", mqtt: nil, want: "disabled"},
		{name: "mqtt connected", mqtt: fakeStatus("connected"), want: "connected"},
		{name: "mqtt disconnected stays healthy", mqtt: fakeStatus("disconnected"), want: "disconnected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := NewMux(openDB(t), "", tt.mqtt)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
			}
			body := decodeBody(t, rec)
			if body["status"] != "ok" || body["mqtt"] != tt.want {
				t.Errorf("body = %v; want status ok, mqtt %s", body, tt.want)
			}
		})
	}
}

func TestHealthz_dbDown(t *testing.T) {
	db := openDB(t)
	_ = db.Close()

	mux := NewMux(db, "", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d; want %d", rec.Code, http.StatusInternalServerError)
	}
	if !strings.Contains(rec.Body.String(), "database connectivity") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestStatic(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "dashboard.css"), []byte("body{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	mux := NewMux(openDB(t), dir, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/dashboard.css", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "body{}" {
		t.Errorf("body = %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/missing.css", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing file status = %d; want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := requestLogger(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/brew", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d; want %d", rec.Code, http.StatusTeapot)
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log: %v; %q", err, buf.String())
	}
	if entry["msg"] != "http request" || entry["path"] != "/brew" || entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("log entry = %v", entry)
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("log entry missing duration_ms")
	}
}

func TestNewServer(t *testing.T) {
	srv := NewServer(config.Config{HTTPAddr: "127.0.0.1:0"}, http.NewServeMux(), nil)
	if srv.Addr != "127.0.0.1:0" {
		t.Errorf("Addr = %q", srv.Addr)
	}
	if srv.Handler == nil {
		t.Error("Handler is nil")
	}
}
