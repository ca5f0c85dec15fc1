package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aqdash/internal/modules/airquality/report"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the dashboard for one month as an xlsx workbook",
		RunE:  runExport,
	}
	addFilterFlags(cmd)
	cmd.Flags().StringP("out", "o", "", "output file (default: aqdash-<station>-<yyyy>-<mm>.xlsx)")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	f, err := readFilter(cmd)
	if err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("out")

	svc, closeDB, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	d, err := svc.Dashboard(cmd.Context(), f)
	if err != nil {
		return err
	}
	if path == "" {
		path = fmt.Sprintf("aqdash-%s-%04d-%02d.xlsx", d.Station.ID, d.Filter.Year, int(d.Filter.Month))
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := report.WriteWorkbook(out, d); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d readings)\n", path, len(d.Readings))
	for _, w := range d.Warnings {
		fmt.Fprintln(cmd.OutOrStdout(), "warning: "+w)
	}
	return nil
}
