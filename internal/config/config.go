package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// StaticDir is the absolute path to the directory served at /static/.
	// Set via STATIC_DIR (relative paths are resolved against the process working directory at startup).
	StaticDir string

	Driver          string
	DSN             string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogSQL          bool

	MQTTEnabled  bool
	MQTTBroker   string
	MQTTPort     int
	MQTTTopic    string
	MQTTClientID string

	// DatasetPath is a CSV file or http(s) URL imported at startup. Empty disables the import.
	DatasetPath string
	// DatasetRefresh is a standard five-field cron spec for re-importing DatasetPath.
	DatasetRefresh string
	DatasetTimeout time.Duration
}

var defaults = map[string]string{
	"APP_ENV":              "dev",
	"LOG_LEVEL":            "info",
	"HTTP_ADDR":            ":8080",
	"STATIC_DIR":           "static",
	"DB_DRIVER":            "sqlite3",
	"DB_DSN":               "",
	"SQLITE_PATH":          "data/aqdash.db",
	"DB_MAX_OPEN_CONNS":    "1",
	"DB_MAX_IDLE_CONNS":    "1",
	"DB_CONN_MAX_LIFETIME": "0s",
	"DB_LOG_SQL":           "false",
	"MQTT_ENABLED":         "false",
	"MQTT_BROKER":          "localhost",
	"MQTT_PORT":            "1883",
	"MQTT_TOPIC":           "aqdash/telemetry/+",
	"MQTT_CLIENT_ID":       "aqdash-server",
	"DATASET_PATH":         "",
	"DATASET_REFRESH":      "",
	"DATASET_TIMEOUT":      "30s",
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence. File keys use the same
// names as the environment variables (case-insensitive).
func Load(path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config %q: %w", path, err)
			}
		}
	}

	return fromViper(v)
}

// LoadFromEnv is Load without a config file.
func LoadFromEnv() (Config, error) {
	return Load("")
}

func fromViper(v *viper.Viper) (Config, error) {
	get := func(key string) string {
		s := strings.TrimSpace(v.GetString(key))
		if s == "" {
			return defaults[key]
		}
		return s
	}

	appEnv := get("APP_ENV")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(get("LOG_LEVEL"))
	if err != nil {
		return Config{}, err
	}

	staticDir, err := filepath.Abs(get("STATIC_DIR"))
	if err != nil {
		return Config{}, fmt.Errorf("STATIC_DIR %q: %w", get("STATIC_DIR"), err)
	}

	maxOpenConns, err := parsePositiveInt("DB_MAX_OPEN_CONNS", get("DB_MAX_OPEN_CONNS"))
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := strconv.Atoi(get("DB_MAX_IDLE_CONNS"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MAX_IDLE_CONNS %q: %w", get("DB_MAX_IDLE_CONNS"), err)
	}
	connMaxLifetime, err := time.ParseDuration(get("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", get("DB_CONN_MAX_LIFETIME"), err)
	}
	logSQL, err := strconv.ParseBool(get("DB_LOG_SQL"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_LOG_SQL %q: %w", get("DB_LOG_SQL"), err)
	}

	mqttEnabled, err := strconv.ParseBool(get("MQTT_ENABLED"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_ENABLED %q: %w", get("MQTT_ENABLED"), err)
	}
	mqttPort, err := parsePositiveInt("MQTT_PORT", get("MQTT_PORT"))
	if err != nil {
		return Config{}, err
	}
	if mqttPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d (must be 1-65535)", mqttPort)
	}

	refresh := get("DATASET_REFRESH")
	if refresh != "" {
		if _, err := cron.ParseStandard(refresh); err != nil {
			return Config{}, fmt.Errorf("invalid DATASET_REFRESH %q: %w", refresh, err)
		}
	}
	datasetTimeout, err := time.ParseDuration(get("DATASET_TIMEOUT"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DATASET_TIMEOUT %q: %w", get("DATASET_TIMEOUT"), err)
	}
	if datasetTimeout <= 0 {
		return Config{}, fmt.Errorf("invalid DATASET_TIMEOUT %q (must be positive)", get("DATASET_TIMEOUT"))
	}

	return Config{
		AppEnv:          appEnv,
		LogLevel:        level,
		HTTPAddr:        get("HTTP_ADDR"),
		StaticDir:       staticDir,
		Driver:          get("DB_DRIVER"),
		DSN:             get("DB_DSN"),
		Path:            get("SQLITE_PATH"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: connMaxLifetime,
		LogSQL:          logSQL,
		MQTTEnabled:     mqttEnabled,
		MQTTBroker:      get("MQTT_BROKER"),
		MQTTPort:        mqttPort,
		MQTTTopic:       get("MQTT_TOPIC"),
		MQTTClientID:    get("MQTT_CLIENT_ID"),
		DatasetPath:     get("DATASET_PATH"),
		DatasetRefresh:  refresh,
		DatasetTimeout:  datasetTimeout,
	}, nil
}

func parsePositiveInt(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s %d (must be positive)", name, n)
	}
	return n, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
