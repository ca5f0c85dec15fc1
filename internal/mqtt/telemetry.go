package mqtt

import (
	"fmt"
	"math"
	"time"
)

// Telemetry is one PM reading published by a station.
type Telemetry struct {
	StationID string    `json:"station_id"`
	Timestamp time.Time `json:"timestamp"`
	PM25      *float64  `json:"pm25,omitempty"`
	PM10      *float64  `json:"pm10,omitempty"`
	Sequence  *int      `json:"sequence,omitempty"`
}

func (t Telemetry) Validate() error {
	if t.StationID == "" {
		return fmt.Errorf("station_id is required")
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if t.PM25 == nil {
		return fmt.Errorf("pm25 is required")
	}
	if err := checkConcentration("pm25", *t.PM25); err != nil {
		return err
	}
	if t.PM10 != nil {
		if err := checkConcentration("pm10", *t.PM10); err != nil {
			return err
		}
	}
	return nil
}

func checkConcentration(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s must be a finite number", name)
	}
	if v < 0 {
		return fmt.Errorf("%s must not be negative: %f", name, v)
	}
	return nil
}
