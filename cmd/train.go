package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/mautops/pulse-analytics/internal/container"
	"github.com/spf13/cobra"
)

// trainCmd 训练模型并保存快照
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the delay models and save a snapshot",
	Long: `Load the dataset, fit the delay regressor and classifier, print the
training report and write the model snapshot to analysis.model_path.
The server loads this snapshot at startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, _, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		if out, _ := cmd.Flags().GetString("output"); out != "" {
			cfg.Analysis.ModelPath = out
		}

		ctr, err := container.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		result, err := ctr.Analysis().Train(cmd.Context())
		if err != nil {
			return err
		}
		if err := ctr.SaveModel(); err != nil {
			return fmt.Errorf("failed to save model: %w", err)
		}
		logger.WithField("path", cfg.Analysis.ModelPath).Info("Model snapshot saved")

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)
	trainCmd.Flags().String("output", "", "Snapshot path (default: analysis.model_path)")
}
