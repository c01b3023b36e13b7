package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"authapp/internal/platform/config"
	"authapp/internal/platform/postgres"
)

func newMigrateCmd(envFile *string) *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(*envFile); err != nil {
				return err
			}
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
			if databaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}

			ctx := cmd.Context()
			db, err := postgres.Open(ctx, postgres.Config{URL: databaseURL, MaxOpenConns: 2})
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(ctx, db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection URL (defaults to $DATABASE_URL)")
	return cmd
}
