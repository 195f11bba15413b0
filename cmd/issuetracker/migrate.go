package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/spec-kit/issue-tracker/internal/persistence"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.Postgres.DSN == "" {
			return errors.New("POSTGRES_DSN is required to migrate")
		}
		pg, err := persistence.NewPostgres(cmd.Context(), cfg.Postgres, logger)
		if err != nil {
			return err
		}
		defer pg.Close()
		return persistence.RunMigrations(cmd.Context(), pg.Pool, cfg.Storage, logger)
	},
}
