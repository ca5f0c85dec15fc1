package main

import (
	"github.com/spf13/cobra"

	"aqdash/internal/app"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP server",
		Long: `Start the HTTP server. When DATASET_PATH is set the dataset is imported at
startup and, with DATASET_REFRESH, re-imported on that cron schedule. With
MQTT_ENABLED live readings are stored as they arrive.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger.Info("starting",
				"app", appName,
				"version", version,
				"env", cfg.AppEnv,
				"log_level", cfg.LogLevel.String(),
			)
			return app.Run(cmd.Context(), cfg, logger)
		},
	}
}
