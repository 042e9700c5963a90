package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/appointbook/libs/config"
	"github.com/md-rashed-zaman/appointbook/libs/db"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/migrations"
)

func newMigrateCommand() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded SQL migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			dbURL, err := config.RequiredString("DATABASE_URL")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			pool, err := db.Open(ctx, dbURL)
			if err != nil {
				return fmt.Errorf("db connection failed: %w", err)
			}
			defer pool.Close()

			applied, err := db.Migrate(ctx, pool, migrations.FS, logger)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("migrations complete", "applied", len(applied))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall migration timeout")
	return cmd
}
