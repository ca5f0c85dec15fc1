package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"aqdash/internal/db"
	"aqdash/internal/migrate"
	"aqdash/internal/modules/airquality/repository"
	"aqdash/internal/modules/airquality/service"
)

// openService opens and migrates the configured store. The returned func
// closes it.
func openService(ctx context.Context) (*service.Service, func(), error) {
	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(dbConn); err != nil {
			logger.Warn("db close", "error", err)
		}
	}
	if err := migrate.Run(ctx, dbConn, logger); err != nil {
		closeDB()
		return nil, nil, err
	}
	return service.NewService(repository.NewRepository(dbConn), logger, cfg.DatasetTimeout), closeDB, nil
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("station", "", "station id (default: first station by name)")
	cmd.Flags().Int("year", 0, "year (default: latest year with data)")
	cmd.Flags().Int("month", 0, "month 1-12 (default: latest month with data)")
}

func readFilter(cmd *cobra.Command) (service.Filter, error) {
	station, _ := cmd.Flags().GetString("station")
	year, _ := cmd.Flags().GetInt("year")
	month, _ := cmd.Flags().GetInt("month")
	if year < 0 || year > 9999 {
		return service.Filter{}, fmt.Errorf("invalid --year %d", year)
	}
	if month < 0 || month > 12 {
		return service.Filter{}, fmt.Errorf("invalid --month %d (expected 1..12)", month)
	}
	return service.Filter{StationID: station, Year: year, Month: time.Month(month)}, nil
}
