package cmd

import (
	"fmt"
	"time"

	"github.com/mautops/pulse-analytics/internal/auth"
	"github.com/spf13/cobra"
)

// tokenCmd 签发访问受保护接口的令牌
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the protected endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, _, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		validator, err := auth.NewTokenValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
		if err != nil {
			return fmt.Errorf("auth.jwt_secret must be configured: %w", err)
		}

		subject, _ := cmd.Flags().GetString("subject")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		token, err := validator.IssueToken(subject, []string{"operator"}, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().String("subject", "operator", "Token subject")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
}
