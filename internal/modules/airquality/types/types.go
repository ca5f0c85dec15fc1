package types

import "time"

type Station struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Reading is one PM2.5 observation for a station. Times carry no zone and are
// kept as UTC wall-clock values.
type Reading struct {
	StationID string    `json:"stationId"`
	Time      time.Time `json:"time"`
	PM25      float64   `json:"pm25"`
	PM10      *float64  `json:"pm10,omitempty"`
}

// ImportSummary records one dataset load into the store.
type ImportSummary struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Rows       int       `json:"rows"`
	Skipped    int       `json:"skipped"`
	ImportedAt time.Time `json:"importedAt"`
}
