/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/mautops/pulse-analytics/internal/api"
	"github.com/mautops/pulse-analytics/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pulse-analytics",
	Short: "Project delay analytics service",
	Long: `Pulse Analytics predicts task delays for project portfolios.
It builds features from tasks, users, projects and teams, trains a
delay-days regressor and a delay-category classifier, and serves
predictions, risk summaries and trends over a REST API.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file path (default: search in current directory, ./config, or $HOME/.pulse-analytics)")
}

// GetRootCmd 返回根命令(用于测试)
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// bootstrap 加载配置并创建日志记录器
func bootstrap(cmd *cobra.Command) (*config.Config, *logrus.Logger, string, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := api.NewLoggerFromConfig(&cfg.Log)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to initialize logger: %w", err)
	}
	api.SetLogger(logger)
	return cfg, logger, configPath, nil
}
