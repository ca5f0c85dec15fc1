package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so host settings do not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for key := range defaults {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	if got.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", got.HTTPAddr, ":8080")
	}
	assert.Equal(t, "sqlite3", got.Driver)
	assert.Equal(t, 1, got.MaxOpenConns)
	assert.False(t, got.LogSQL)
	assert.False(t, got.MQTTEnabled)
	assert.Equal(t, 1883, got.MQTTPort)
	assert.Empty(t, got.DatasetPath)
	assert.Empty(t, got.DatasetRefresh)
	assert.Equal(t, 30*time.Second, got.DatasetTimeout)
	assert.True(t, filepath.IsAbs(got.StaticDir))
}

func TestLoadFromEnv_AppEnv_Valid(t *testing.T) {
	tests := []struct {
		name   string
		appEnv string
		want   string
	}{
		{name: "dev", appEnv: "dev", want: "dev"},
		{name: "prod", appEnv: "prod", want: "prod"},
		{name: "dev with whitespace", appEnv: "  dev  ", want: "dev"},
		{name: "prod with whitespace", appEnv: "\nprod\t", want: "prod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("APP_ENV", tt.appEnv)

			got, err := LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v, want nil", err)
			}
			if got.AppEnv != tt.want {
				t.Errorf("AppEnv = %q, want %q", got.AppEnv, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "staging env", key: "APP_ENV", value: "staging"},
		{name: "uppercase env", key: "APP_ENV", value: "DEV"},
		{name: "loud log level", key: "LOG_LEVEL", value: "loud"},
		{name: "open conns not a number", key: "DB_MAX_OPEN_CONNS", value: "many"},
		{name: "open conns zero", key: "DB_MAX_OPEN_CONNS", value: "0"},
		{name: "lifetime", key: "DB_CONN_MAX_LIFETIME", value: "forever"},
		{name: "log sql", key: "DB_LOG_SQL", value: "sometimes"},
		{name: "mqtt enabled", key: "MQTT_ENABLED", value: "maybe"},
		{name: "mqtt port negative", key: "MQTT_PORT", value: "-1"},
		{name: "mqtt port too large", key: "MQTT_PORT", value: "70000"},
		{name: "refresh spec", key: "DATASET_REFRESH", value: "every tuesday"},
		{name: "dataset timeout", key: "DATASET_TIMEOUT", value: "-5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadFromEnv()
			if err == nil {
				t.Fatalf("LoadFromEnv() with %s=%q error = nil, want non-nil", tt.key, tt.value)
			}
		})
	}
}

func TestLoadFromEnv_HTTPAddr(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "default when empty", in: "", want: ":8080"},
		{name: "trims whitespace", in: "  :9090  ", want: ":9090"},
		{name: "host:port", in: "127.0.0.1:8081", want: "127.0.0.1:8081"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("HTTP_ADDR", tt.in)

			got, err := LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v, want nil", err)
			}
			if got.HTTPAddr != tt.want {
				t.Errorf("HTTPAddr = %q, want %q", got.HTTPAddr, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_DatasetRefresh(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATASET_REFRESH", "0 */6 * * *")
	t.Setenv("DATASET_PATH", "https://example.org/pm25.csv")

	got, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "0 */6 * * *", got.DatasetRefresh)
	assert.Equal(t, "https://example.org/pm25.csv", got.DatasetPath)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "aqdash.yaml")
	content := "app_env: prod\nlog_level: debug\nmqtt_enabled: true\nmqtt_port: 8883\nhttp_addr: \":9000\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "prod", got.AppEnv)
	assert.Equal(t, slog.LevelDebug, got.LogLevel)
	assert.True(t, got.MQTTEnabled)
	assert.Equal(t, 8883, got.MQTTPort)
	assert.Equal(t, ":9000", got.HTTPAddr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "aqdash.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":9000\"\n"), 0o600))
	t.Setenv("HTTP_ADDR", ":7000")

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", got.HTTPAddr)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseLogLevel_Valid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want slog.Level
	}{
		{name: "debug", in: "debug", want: slog.LevelDebug},
		{name: "info", in: "info", want: slog.LevelInfo},
		{name: "warn", in: "warn", want: slog.LevelWarn},
		{name: "warning", in: "warning", want: slog.LevelWarn},
		{name: "error", in: "error", want: slog.LevelError},
		{name: "case insensitive", in: "DeBuG", want: slog.LevelDebug},
		{name: "trims whitespace", in: "  warn \n", want: slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLogLevel(tt.in)
			if err != nil {
				t.Fatalf("parseLogLevel(%q) error = %v, want nil", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLogLevel_Invalid(t *testing.T) {
	for _, in := range []string{"", "nope", "warns", "1"} {
		got, err := parseLogLevel(in)
		if err == nil {
			t.Fatalf("parseLogLevel(%q) error = nil, want non-nil", in)
		}
		if got != slog.LevelInfo {
			t.Errorf("parseLogLevel(%q) = %v, want %v on error", in, got, slog.LevelInfo)
		}
	}
}
