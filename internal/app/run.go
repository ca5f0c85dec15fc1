package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"aqdash/internal/config"
	"aqdash/internal/db"
	"aqdash/internal/httpapi"
	"aqdash/internal/migrate"
	"aqdash/internal/modules/airquality"
	"aqdash/internal/modules/airquality/service"
	"aqdash/internal/modules/airquality/views"
	"aqdash/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"staticDir", cfg.StaticDir,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"dbMaxIdleConns", cfg.MaxIdleConns,
		"dbConnMaxLifetime", cfg.ConnMaxLifetime,
		"mqttEnabled", cfg.MQTTEnabled,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
		"datasetPath", cfg.DatasetPath,
		"datasetRefresh", cfg.DatasetRefresh,
	)
	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := db.Close(dbConn)
		if closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(ctx, dbConn, logger); err != nil {
		return err
	}
	logger.Info("database connection successful")

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	var subscriber *mqtt.Subscriber
	var status httpapi.StatusProvider
	if cfg.MQTTEnabled {
		subscriber, err = mqtt.NewSubscriber(cfg, logger)
		if err != nil {
			return err
		}
		status = subscriber
	}

	mux := httpapi.NewMux(dbConn, cfg.StaticDir, status)
	svc := airquality.RegisterFeature(mux, dbConn, logger, cfg.DatasetTimeout)

	if subscriber != nil {
		// Set MQTT handler before Connect so OnConnectHandler can subscribe immediately.
		// The broker may send queued messages right after CONNACK; we must be subscribed
		// before that to receive them.
		svc.Register(subscriber)

		// Use a short timeout for initial MQTT connect so we don't block startup when broker is down.
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	}

	refresher, err := startDataset(ctx, cfg, svc, logger)
	if err != nil {
		return err
	}

	srv := httpapi.NewServer(cfg, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if refresher != nil {
		logger.Info("dataset refresh stopping")
		refresher.Stop(shutdownCtx)
	}

	if subscriber != nil {
		logger.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// startDataset imports cfg.DatasetPath once and, when DatasetRefresh is set,
// schedules re-imports. A failed initial import is logged so the server can
// still serve previously stored data.
func startDataset(ctx context.Context, cfg config.Config, svc *service.Service, logger *slog.Logger) (*service.Refresher, error) {
	if cfg.DatasetPath == "" {
		return nil, nil
	}
	if cfg.DatasetRefresh == "" {
		if _, err := svc.Import(ctx, cfg.DatasetPath); err != nil {
			logger.Warn("initial dataset import failed", "source", cfg.DatasetPath, "error", err)
		}
		return nil, nil
	}

	refresher, err := service.NewRefresher(svc, cfg.DatasetPath, cfg.DatasetRefresh, cfg.DatasetTimeout, logger)
	if err != nil {
		return nil, err
	}
	if err := refresher.RunOnce(ctx); err != nil {
		logger.Warn("initial dataset import failed", "source", cfg.DatasetPath, "error", err)
	}
	refresher.Start()
	return refresher, nil
}
