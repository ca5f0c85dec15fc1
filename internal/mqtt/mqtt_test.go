package mqtt

import (
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aqdash/internal/config"
)

func f(v float64) *float64 { return &v }

func TestTelemetryValidate(t *testing.T) {
	ts := time.Date(2017, 3, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		in      Telemetry
		wantErr bool
	}{
		{name: "valid", in: Telemetry{StationID: "Jakarta", Timestamp: ts, PM25: f(12)}},
		{name: "valid with pm10", in: Telemetry{StationID: "Jakarta", Timestamp: ts, PM25: f(0), PM10: f(40)}},
		{name: "missing station", in: Telemetry{Timestamp: ts, PM25: f(12)}, wantErr: true},
		{name: "missing timestamp", in: Telemetry{StationID: "Jakarta", PM25: f(12)}, wantErr: true},
		{name: "missing pm25", in: Telemetry{StationID: "Jakarta", Timestamp: ts}, wantErr: true},
		{name: "negative pm25", in: Telemetry{StationID: "Jakarta", Timestamp: ts, PM25: f(-1)}, wantErr: true},
		{name: "nan pm25", in: Telemetry{StationID: "Jakarta", Timestamp: ts, PM25: f(math.NaN())}, wantErr: true},
		{name: "negative pm10", in: Telemetry{StationID: "Jakarta", Timestamp: ts, PM25: f(1), PM10: f(-2)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewSubscriber(t *testing.T) {
	cfg := config.Config{MQTTBroker: "localhost", MQTTPort: 1883, MQTTTopic: "aqdash/telemetry/+", MQTTClientID: "test"}

	s, err := NewSubscriber(cfg, nil)
	require.NoError(t, err)
	assert.False(t, s.IsConnected())
	assert.Equal(t, StatusDisconnected, s.Status())

	_, err = NewSubscriber(config.Config{MQTTTopic: "x"}, nil)
	assert.Error(t, err)
	_, err = NewSubscriber(config.Config{MQTTBroker: "localhost"}, nil)
	assert.Error(t, err)
}

func TestHandleMessage(t *testing.T) {
	s := &Subscriber{logger: slog.Default(), stopCh: make(chan struct{})}
	var got []Telemetry
	s.SetMessageHandler(func(telemetry Telemetry) error {
		got = append(got, telemetry)
		return nil
	})

	s.handleMessage("aqdash/telemetry/Jakarta", []byte(`{"station_id":"Jakarta","timestamp":"2017-03-01T10:00:00Z","pm25":35.5}`))
	s.handleMessage("aqdash/telemetry/Jakarta", []byte(`not json`))
	s.handleMessage("aqdash/telemetry/Jakarta", []byte(`{"station_id":"Jakarta","timestamp":"2017-03-01T10:00:00Z","pm25":-3}`))
	s.handleMessage("aqdash/telemetry/Jakarta", []byte(`{"timestamp":"2017-03-01T10:00:00Z","pm25":3}`))

	require.Len(t, got, 1)
	assert.Equal(t, "Jakarta", got[0].StationID)
	require.NotNil(t, got[0].PM25)
	assert.Equal(t, 35.5, *got[0].PM25)
	assert.Nil(t, got[0].PM10)
}

func TestHandleMessage_HandlerErrorIsContained(t *testing.T) {
	s := &Subscriber{logger: slog.Default(), stopCh: make(chan struct{})}
	calls := 0
	s.SetMessageHandler(func(Telemetry) error {
		calls++
		return errors.New("store unavailable")
	})

	s.handleMessage("t", []byte(`{"station_id":"A","timestamp":"2017-03-01T10:00:00Z","pm25":1}`))
	assert.Equal(t, 1, calls)
}

func TestDisconnect_Idempotent(t *testing.T) {
	s, err := NewSubscriber(config.Config{MQTTBroker: "localhost", MQTTPort: 1883, MQTTTopic: "t", MQTTClientID: "c"}, nil)
	require.NoError(t, err)

	s.Disconnect()
	s.Disconnect()
	assert.Equal(t, StatusDisconnected, s.Status())
}
