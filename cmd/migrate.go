/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/mautops/pulse-analytics/internal/database"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run database migrations to create or update the record store schema.
This command will:
- Create the users, teams, projects, tasks, delay_alerts and training_runs tables
- Update table schemas if needed
- Create composite indexes used by the analysis queries`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, _, err := bootstrap(cmd)
		if err != nil {
			return err
		}

		logger.WithField("driver", cfg.Database.Driver).Info("Connecting to database")
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
		defer database.Close(db)

		logger.Info("Running database migrations...")
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		logger.Info("Database migrations completed successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
