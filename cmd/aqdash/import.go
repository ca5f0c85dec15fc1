package main

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"aqdash/internal/modules/airquality/dataset"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file-or-url>",
		Short: "Import a PM2.5 CSV dataset",
		Long: `Load a CSV dataset (station, datetime, PM2.5 and optional PM10 columns)
from a local file or an http(s) URL into the store. Rows that cannot be parsed
are skipped and counted; the import is all-or-nothing otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
	cmd.Flags().Bool("quiet", false, "do not show a progress bar")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	source := args[0]
	quiet, _ := cmd.Flags().GetBool("quiet")

	svc, closeDB, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	body, size, err := dataset.Open(cmd.Context(), source, cfg.DatasetTimeout)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	var r io.Reader = body
	var bar *progressbar.ProgressBar
	if !quiet {
		bar = progressbar.NewOptions64(size,
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionSetDescription("importing "+source),
			progressbar.OptionClearOnFinish(),
		)
		reader := progressbar.NewReader(body, bar)
		r = &reader
	}

	summary, err := svc.ImportFrom(cmd.Context(), source, r)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "imported %d readings from %s (%d rows skipped, import %s)\n",
		summary.Rows, summary.Source, summary.Skipped, summary.ID)
	return nil
}
