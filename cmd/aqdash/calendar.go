package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"aqdash/internal/modules/airquality/report"
	"aqdash/internal/modules/airquality/service"
)

func calendarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Print a colored PM2.5 calendar for one month",
		Long: `Render the week-by-weekday calendar of daily PM2.5 for a station and month
in the terminal, each day colored by its health category. With --recent every
month with data in the year up to the latest reading is printed.`,
		RunE: runCalendar,
	}
	addFilterFlags(cmd)
	cmd.Flags().Bool("recent", false, "print every month of the last year with data")
	return cmd
}

func runCalendar(cmd *cobra.Command, _ []string) error {
	f, err := readFilter(cmd)
	if err != nil {
		return err
	}
	recent, _ := cmd.Flags().GetBool("recent")

	svc, closeDB, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	out := cmd.OutOrStdout()
	if recent {
		if f.StationID == "" {
			resolved, err := svc.ResolveFilter(cmd.Context(), service.Filter{})
			if err != nil {
				return err
			}
			f.StationID = resolved.StationID
		}
		grids, err := svc.RecentCalendars(cmd.Context(), f.StationID)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, f.StationID)
		for _, grid := range grids {
			fmt.Fprintln(out, report.RenderCalendar(grid))
			fmt.Fprintln(out)
		}
		return nil
	}

	grid, resolved, err := svc.Calendar(cmd.Context(), f)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, resolved.StationID)
	fmt.Fprintln(out, report.RenderCalendar(grid))
	return nil
}
