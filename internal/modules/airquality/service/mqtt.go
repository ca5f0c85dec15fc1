package service

import (
	"context"
	"log/slog"
	"time"

	"aqdash/internal/mqtt"
)

// telemetryTimeout bounds the store write for one MQTT message.
const telemetryTimeout = 5 * time.Second

// registerMQTTHandler sets up the air-quality MQTT message handler
func registerMQTTHandler(subscriber mqtt.MQTTSubscriber, svc *Service, logger *slog.Logger) {
	subscriber.SetMessageHandler(func(telemetry mqtt.Telemetry) error {
		attrs := []any{"station_id", telemetry.StationID, "timestamp", telemetry.Timestamp}
		if telemetry.Sequence != nil {
			attrs = append(attrs, "sequence", *telemetry.Sequence)
		}
		logger.Debug("processing telemetry message", attrs...)

		ctx, cancel := context.WithTimeout(context.Background(), telemetryTimeout)
		defer cancel()

		if err := svc.HandleTelemetry(ctx, telemetry); err != nil {
			logger.Error("failed to insert reading", append(attrs, "error", err)...)
			return err
		}

		logger.Debug("successfully stored telemetry",
			"station_id", telemetry.StationID,
		)
		return nil
	})
}
