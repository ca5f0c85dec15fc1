package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"aqdash/internal/config"
	"aqdash/internal/logging"
)

const appName = "aqdash"

// Default version is "dev" if not set with -ldflags "-X main.version=..."
var version = "dev"

var (
	cfgFile string
	cfg     config.Config
	logger  *slog.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "PM2.5 air-quality dashboard",
		Long: `aqdash loads hourly PM2.5 readings per station, classifies them into
health categories and serves a dashboard with trend, monthly and calendar views.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (keys as environment variable names)")

	root.AddCommand(serveCmd())
	root.AddCommand(importCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(calendarCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(versionCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	var (
		loaded config.Config
		err    error
	)
	if cfgFile == "" {
		loaded, err = config.LoadFromEnv()
	} else {
		loaded, err = config.Load(cfgFile)
	}
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	cfg = loaded

	logger = logging.NewWithWriter(cmd.ErrOrStderr(), cfg, version, appName)
	slog.SetDefault(logger)
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, version)
		},
	}
}
