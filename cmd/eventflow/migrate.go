package main

import (
	"github.com/spf13/cobra"

	"eventflow/internal/repository/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		version, err := postgres.Migrate(cmd.Context(), db)
		if err != nil {
			return err
		}
		logger.Info("Database is up to date", "version", version)
		return nil
	},
}
