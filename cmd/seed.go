package cmd

import (
	"fmt"

	"github.com/mautops/pulse-analytics/internal/database"
	"github.com/mautops/pulse-analytics/internal/source"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// seedCmd 将合成数据写入数据库
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the synthetic dataset into the record store",
	Long: `Generate the synthetic demo dataset (5 users, 3 projects, 1 team,
12 tasks, 15 delay alerts) and upsert it into the configured database.
Migrations are applied first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, _, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		seed, _ := cmd.Flags().GetInt64("seed")
		if !cmd.Flags().Changed("seed") {
			seed = cfg.Source.SyntheticSeed
		}

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
		defer database.Close(db)
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		ds, err := source.NewSyntheticSource(seed).Load(cmd.Context())
		if err != nil {
			return err
		}
		if err := source.Seed(cmd.Context(), db, ds); err != nil {
			return fmt.Errorf("failed to seed database: %w", err)
		}

		fields := logrus.Fields{"seed": seed}
		for k, v := range ds.Summary() {
			fields[k] = v
		}
		logger.WithFields(fields).Info("Synthetic dataset written")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().Int64("seed", 42, "Random seed for the synthetic dataset (default: source.synthetic_seed)")
}
