package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"aqdash/internal/db"
	"aqdash/internal/migrate"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Apply the embedded schema migrations to the configured database.
Migrations also run automatically on serve and import.`,
		RunE: runMigrate,
	}
	cmd.Flags().Bool("status", false, "list pending migrations without applying them")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(dbConn) }()

	pending, err := migrate.Pending(cmd.Context(), dbConn)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if status {
		if len(pending) == 0 {
			fmt.Fprintln(out, "database is up to date")
			return nil
		}
		fmt.Fprintf(out, "%d pending migration(s):\n", len(pending))
		for _, name := range pending {
			fmt.Fprintln(out, "  "+name)
		}
		return nil
	}

	if err := migrate.Run(cmd.Context(), dbConn, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Fprintf(out, "applied %d migration(s)\n", len(pending))
	return nil
}
